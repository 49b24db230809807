package statlog

import (
	"math"
	"testing"

	"github.com/spf13/afero"

	"github.com/jfrellsen/muninn/array"
)

type fakeBinner struct {
	edges  []float64
	widths []float64
}

func (f fakeBinner) GetBinning() []float64   { return f.edges }
func (f fakeBinner) GetBinWidths() []float64 { return f.widths }

// TestAllModeRoundTrip checks spec.md §8.10: writing two rounds in ALL
// mode and reading them back yields bit-identical N/lnw/lnG/lnG_support/
// binning/bin_widths at the logger's configured precision.
func TestAllModeRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	l := NewLogger(fs, "stats.log", All, 15)

	bnr := fakeBinner{edges: []float64{0, 1, 2, 3}, widths: []float64{1, 1, 1}}

	round0 := Record{
		N:       array.NewFromData([]float64{3, 4, 5}, 3),
		Lnw:     array.NewFromData([]float64{0.1, 0.2, 0.3}, 3),
		LnG:     array.NewFromData([]float64{1.5, 2.5, 3.5}, 3),
		Support: array.NewBoolFromData([]bool{true, true, false}, 3),
		Binner:  bnr,
	}
	if err := l.Log(round0, nil); err != nil {
		t.Fatalf("Log round0: %v", err)
	}

	round1 := Record{
		N:       array.NewFromData([]float64{10, 20, 30}, 3),
		Lnw:     array.NewFromData([]float64{-1, -2, -3}, 3),
		LnG:     array.NewFromData([]float64{4.5, 5.5, 6.5}, 3),
		Support: array.NewBoolFromData([]bool{true, true, true}, 3),
		Binner:  bnr,
	}
	if err := l.Log(round1, nil); err != nil {
		t.Fatalf("Log round1: %v", err)
	}

	reader, err := ReadLogFile(fs, "stats.log", 0)
	if err != nil {
		t.Fatalf("ReadLogFile: %v", err)
	}
	if reader.Mode != All {
		t.Fatalf("Mode = %v, want All", reader.Mode)
	}
	if len(reader.Ns) != 2 || len(reader.Lnws) != 2 || len(reader.LnGs) != 2 {
		t.Fatalf("expected 2 rounds of N/lnw/lnG, got %d/%d/%d", len(reader.Ns), len(reader.Lnws), len(reader.LnGs))
	}

	checkFloats(t, "N0", reader.Ns[0].Data, round0.N.Data())
	checkFloats(t, "N1", reader.Ns[1].Data, round1.N.Data())
	checkFloats(t, "lnw0", reader.Lnws[0].Data, round0.Lnw.Data())
	checkFloats(t, "lnw1", reader.Lnws[1].Data, round1.Lnw.Data())

	lnG := reader.LnGArray()
	checkFloats(t, "lnG (final)", lnG.Data(), round1.LnG.Data())

	support := reader.SupportArray()
	for i, want := range round1.Support.Data() {
		if support.At(i) != want {
			t.Errorf("support[%d]=%v, want %v", i, support.At(i), want)
		}
	}

	edges := reader.BinningArray()
	checkFloats(t, "binning (final)", edges, bnr.edges)
}

func checkFloats(t *testing.T, label string, got, want []float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: length %d, want %d", label, len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("%s[%d] = %v, want %v", label, i, got[i], want[i])
		}
	}
}

// TestReferenceBinRoundTrip checks that an Extra scalar entry (x_zero, the
// key ReferenceBin reads, written here by a test Loggable) round-trips.
func TestReferenceBinRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	l := NewLogger(fs, "stats.log", All, 10)

	rec := Record{
		N:       array.New(2),
		Lnw:     array.New(2),
		LnG:     array.New(2),
		Support: array.NewBool(2),
		Extras:  []Loggable{x0Logger(1)},
	}
	if err := l.Log(rec, nil); err != nil {
		t.Fatalf("Log: %v", err)
	}

	reader, err := ReadLogFile(fs, "stats.log", 0)
	if err != nil {
		t.Fatalf("ReadLogFile: %v", err)
	}
	got, ok := reader.ReferenceBin()
	if !ok {
		t.Fatal("expected a reference bin to be found")
	}
	if got != 1 {
		t.Errorf("ReferenceBin() = %d, want 1", got)
	}
}

type x0Logger int

func (x x0Logger) AddStatisticsToLog(w *Writer) {
	w.AddEntry("x_zero", int64(x))
}
