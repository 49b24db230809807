// Package statlog implements the statistics logger and reader of
// spec.md §4.8: the append-only ALL mode and the rewrite-on-every-call
// CURRENT mode, both built on an afero filesystem so tests can log to an
// in-memory store instead of disk.
package statlog

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/jfrellsen/muninn/array"
	"github.com/jfrellsen/muninn/errs"
)

const osAppendFlags = os.O_APPEND | os.O_CREATE | os.O_WRONLY

// Mode selects how the logger writes to its file.
type Mode int

const (
	// None disables logging entirely; Logger.Log is then a no-op.
	None Mode = iota
	// All appends one block of entries per call and never touches
	// earlier ones.
	All
	// Current rewrites the whole file on every call with only the
	// newest estimate and the live history.
	Current
)

func (m Mode) String() string {
	switch m {
	case All:
		return "ALL"
	case Current:
		return "CURRENT"
	default:
		return "NONE"
	}
}

// Binner is the subset of binner.Binner the logger needs; declared
// locally so this package does not import binner (which in turn imports
// statlog for Loggable).
type Binner interface {
	GetBinning() []float64
	GetBinWidths() []float64
}

// Loggable is implemented by components that append their own
// diagnostic entries to a log record, such as the update scheme's
// this_max/prolonging state or a dynamic binner's slope estimates
// (spec.md's supplemented StatisticsLogger behavior).
type Loggable interface {
	AddStatisticsToLog(w *Writer)
}

// Logger is the statlog.Logger of spec.md §4.8.
type Logger struct {
	Fs        afero.Fs
	Filename  string
	Mode      Mode
	Precision int

	counter int
}

// NewLogger constructs a Logger. A zero Precision defaults to 10
// significant digits, matching the original library's default.
func NewLogger(fs afero.Fs, filename string, mode Mode, precision int) *Logger {
	if precision <= 0 {
		precision = 10
	}
	return &Logger{Fs: fs, Filename: filename, Mode: mode, Precision: precision}
}

// SetCounter sets the round index the next All-mode record is written
// under, so a Logger resuming onto an already-populated log file (spec.md
// §6 continue_statistics_log) continues the Nk/lnwk numbering instead of
// overwriting round 0. It has no effect in Current mode, which always
// rewrites the whole file from the live history.
func (l *Logger) SetCounter(n int) { l.counter = n }

// Writer accumulates "name = value" lines for one log record.
type Writer struct {
	precision int
	lines     []string
}

func newWriter(precision int) *Writer {
	return &Writer{precision: precision}
}

// AddEntry appends one "name = value" line. value may be *array.Array,
// *array.BoolArray, []float64, float64, or int64; anything else is
// formatted with fmt's default verb.
func (w *Writer) AddEntry(name string, value interface{}) {
	w.lines = append(w.lines, name+" = "+w.format(value))
}

func (w *Writer) format(value interface{}) string {
	switch v := value.(type) {
	case *array.Array:
		return formatFloats(v.Data(), w.precision, true)
	case *array.BoolArray:
		return formatBools(v.Data())
	case []float64:
		return formatFloats(v, w.precision, true)
	case float64:
		return strconv.FormatFloat(v, 'g', w.precision, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// formatFloats renders a float64 slice either as TArray(...) full format
// or as a bare "[...]" list (spec.md §4.8 / original_source TArray::write).
func formatFloats(data []float64, precision int, full bool) string {
	var b strings.Builder
	if full {
		b.WriteString("TArray(")
	}
	b.WriteByte('[')
	for i, v := range data {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatFloat(v, 'g', precision, 64))
	}
	b.WriteByte(']')
	if full {
		fmt.Fprintf(&b, ", type=d, shape=[%d])", len(data))
	}
	return b.String()
}

func formatBools(data []bool) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range data {
		if i > 0 {
			b.WriteByte(' ')
		}
		if v {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	b.WriteByte(']')
	return b.String()
}

// Record is the data a single Log call may contribute.
type Record struct {
	N      *array.Array
	Lnw    *array.Array
	LnG    *array.Array
	Support *array.BoolArray
	Binner  Binner
	Extras  []Loggable
}

// Log writes one record according to the logger's Mode. entries is the
// full live history, oldest first, used only in Current mode.
func (l *Logger) Log(rec Record, entries []HistoryEntry) error {
	switch l.Mode {
	case None:
		return nil
	case All:
		return l.logAll(rec)
	case Current:
		return l.logCurrent(rec, entries)
	default:
		return &errs.ConfigError{Msg: "statlog: unknown mode"}
	}
}

// HistoryEntry is the minimal per-entry view Current mode needs, kept
// local to avoid importing the history package (whose History in turn
// would need to know nothing about statlog — the dependency runs one
// way, from the orchestrator down into both).
type HistoryEntry struct {
	N   *array.Array
	Lnw *array.Array
}

func (l *Logger) logAll(rec Record) error {
	w := newWriter(l.Precision)
	idx := l.counter
	w.AddEntry(fmt.Sprintf("N%d", idx), rec.N)
	w.AddEntry(fmt.Sprintf("lnw%d", idx), rec.Lnw)
	w.AddEntry(fmt.Sprintf("lnG%d", idx), rec.LnG)
	w.AddEntry(fmt.Sprintf("lnG_support%d", idx), rec.Support)
	if rec.Binner != nil {
		w.AddEntry(fmt.Sprintf("binning%d", idx), rec.Binner.GetBinning())
		w.AddEntry(fmt.Sprintf("bin_widths%d", idx), rec.Binner.GetBinWidths())
	}
	for _, e := range rec.Extras {
		e.AddStatisticsToLog(w)
	}

	f, err := l.Fs.OpenFile(l.Filename, osAppendFlags, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, line := range w.lines {
		if _, err := f.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	if _, err := f.WriteString("\n"); err != nil {
		return err
	}
	l.counter++
	return nil
}

func (l *Logger) logCurrent(rec Record, entries []HistoryEntry) error {
	w := newWriter(l.Precision)
	counter := 0
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		w.AddEntry(fmt.Sprintf("N%d", counter), e.N)
		w.AddEntry(fmt.Sprintf("lnw%d", counter), e.Lnw)
		w.lines = append(w.lines, "")
		counter++
	}
	last := counter - 1
	if last < 0 {
		last = 0
	}
	w.AddEntry(fmt.Sprintf("lnG%d", last), rec.LnG)
	w.AddEntry(fmt.Sprintf("lnG_support%d", last), rec.Support)
	if rec.Binner != nil {
		w.AddEntry(fmt.Sprintf("binning%d", last), rec.Binner.GetBinning())
		w.AddEntry(fmt.Sprintf("bin_widths%d", last), rec.Binner.GetBinWidths())
	}
	for _, e := range rec.Extras {
		e.AddStatisticsToLog(w)
	}

	data := []byte(strings.Join(w.lines, "\n") + "\n")
	return afero.WriteFile(l.Fs, l.Filename, data, 0644)
}
