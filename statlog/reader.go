package statlog

import (
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/jfrellsen/muninn/array"
	"github.com/jfrellsen/muninn/errs"
)

// Entry pairs the literal key a value was logged under (e.g. "N3") with
// its parsed data, mirroring the original library's (id, array) pairs.
type Entry struct {
	ID   string
	Data []float64
}

// LogReader parses a file written by Logger, auto-detecting whether it
// was produced in All or Current mode (spec.md §4.8): All mode repeats
// the lnG family of keys once per logged update, Current mode has
// exactly one.
type LogReader struct {
	Ns           []Entry
	Lnws         []Entry
	LnGs         []Entry
	LnGSupports  []Entry
	Binnings     []Entry
	BinWidths    []Entry
	Extra        map[string][]Entry
	Mode         Mode
	Partial      bool
	MaxHistories int
}

// ReadLogFile reads and parses filename from fs. maxHistories, if
// nonzero, caps the number of N/lnw entries kept (oldest first); 0
// means no cap.
func ReadLogFile(fs afero.Fs, filename string, maxHistories int) (*LogReader, error) {
	data, err := afero.ReadFile(fs, filename)
	if err != nil {
		return nil, err
	}

	pairs, err := tokenize(string(data))
	if err != nil {
		return nil, err
	}

	r := &LogReader{Extra: make(map[string][]Entry), MaxHistories: maxHistories}
	byPrefix := make(map[string][]Entry)
	for _, p := range pairs {
		prefix, ok := splitPrefix(p.key)
		if !ok {
			prefix = p.key
		}
		byPrefix[prefix] = append(byPrefix[prefix], Entry{ID: p.key, Data: p.values})
	}

	known := map[string]bool{
		"N": true, "lnw": true, "lnG": true,
		"lnG_support": true, "binning": true, "bin_widths": true,
	}
	r.Ns = byPrefix["N"]
	r.Lnws = byPrefix["lnw"]
	r.LnGs = byPrefix["lnG"]
	r.LnGSupports = byPrefix["lnG_support"]
	r.Binnings = byPrefix["binning"]
	r.BinWidths = byPrefix["bin_widths"]
	for _, e := range [][]Entry{r.Ns, r.Lnws, r.LnGs, r.LnGSupports, r.Binnings, r.BinWidths} {
		sortByIndex(e)
	}
	for prefix, entries := range byPrefix {
		if !known[prefix] {
			r.Extra[prefix] = entries
		}
	}

	if len(r.LnGs) > 1 {
		r.Mode = All
	} else {
		r.Mode = Current
	}

	if maxHistories > 0 {
		r.Partial = len(r.Ns) > maxHistories
		r.Ns = capEntries(r.Ns, maxHistories)
		r.Lnws = capEntries(r.Lnws, maxHistories)
		if r.Mode == All {
			r.LnGs = capEntries(r.LnGs, maxHistories)
			r.LnGSupports = capEntries(r.LnGSupports, maxHistories)
			r.Binnings = capEntries(r.Binnings, maxHistories)
			r.BinWidths = capEntries(r.BinWidths, maxHistories)
		}
	}
	return r, nil
}

func capEntries(e []Entry, max int) []Entry {
	if len(e) <= max {
		return e
	}
	return e[:max]
}

// LnGArray returns the final entropy estimate as an *array.Array.
func (r *LogReader) LnGArray() *array.Array {
	if len(r.LnGs) == 0 {
		return nil
	}
	e := r.LnGs[len(r.LnGs)-1]
	return array.NewFromData(append([]float64(nil), e.Data...), len(e.Data))
}

// SupportArray returns the final support mask as a *array.BoolArray.
func (r *LogReader) SupportArray() *array.BoolArray {
	if len(r.LnGSupports) == 0 {
		return nil
	}
	e := r.LnGSupports[len(r.LnGSupports)-1]
	data := make([]bool, len(e.Data))
	for i, v := range e.Data {
		data[i] = v != 0
	}
	return array.NewBoolFromData(data, len(data))
}

// BinningArray returns the final logged bin edges, or nil if none were
// logged.
func (r *LogReader) BinningArray() []float64 {
	if len(r.Binnings) == 0 {
		return nil
	}
	e := r.Binnings[len(r.Binnings)-1]
	return append([]float64(nil), e.Data...)
}

// ReferenceBin returns the MLE reference bin x0 logged under "x_zero", and
// whether one was found. The original library logs it as a one-element
// array; only the final value is used.
func (r *LogReader) ReferenceBin() (int, bool) {
	entries, ok := r.Extra["x_zero"]
	if !ok || len(entries) == 0 {
		return 0, false
	}
	data := entries[len(entries)-1].Data
	if len(data) == 0 {
		return 0, false
	}
	return int(data[0]), true
}

type kv struct {
	key    string
	values []float64
}

// tokenize parses "name = value" lines, where value is either a bare
// "[...]" list or a full "TArray([...], type=d, shape=[...])" (spec.md
// §4.8 / original_source TArray text format). Shape is parsed but
// discarded: every array this package reads or writes is 1-D.
func tokenize(content string) ([]kv, error) {
	var out []kv
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		eq := strings.Index(line, "=")
		if eq < 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		val := strings.TrimSpace(line[eq+1:])
		values, err := parseValue(val)
		if err != nil {
			return nil, &errs.ReadError{Msg: "statlog: " + err.Error()}
		}
		out = append(out, kv{key: key, values: values})
	}
	return out, nil
}

func parseValue(val string) ([]float64, error) {
	val = strings.TrimPrefix(val, "TArray(")
	open := strings.IndexByte(val, '[')
	closeIdx := strings.IndexByte(val, ']')
	if open < 0 || closeIdx < 0 || closeIdx < open {
		// A bare scalar (e.g. an int/float Extra entry).
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, err
		}
		return []float64{f}, nil
	}
	inner := val[open+1 : closeIdx]
	fields := strings.Fields(inner)
	out := make([]float64, 0, len(fields))
	for _, tok := range fields {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// splitPrefix strips the trailing run of digits from key and reports
// whether it found one, e.g. "lnG_support12" -> ("lnG_support", true).
func splitPrefix(key string) (string, bool) {
	i := len(key)
	for i > 0 && key[i-1] >= '0' && key[i-1] <= '9' {
		i--
	}
	if i == len(key) {
		return "", false
	}
	return key[:i], true
}

// sortByIndex orders entries by the trailing numeric suffix of their ID.
// Logger always writes them in increasing order already; this exists for
// readers of hand-edited or concatenated log files.
func sortByIndex(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return numericSuffix(entries[i].ID) < numericSuffix(entries[j].ID)
	})
}

func numericSuffix(key string) int {
	_, ok := splitPrefix(key)
	if !ok {
		return 0
	}
	i := len(key)
	for i > 0 && key[i-1] >= '0' && key[i-1] <= '9' {
		i--
	}
	n, _ := strconv.Atoi(key[i:])
	return n
}
