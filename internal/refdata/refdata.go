// Package refdata loads the static UGC-code-to-name table used to render
// human-readable location strings. The table is immutable after Load and
// requires no synchronization (spec.md §5 "shared-resource policy").
package refdata

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Kind distinguishes county codes from forecast-zone codes within the same
// two-letter state. spec.md §9 leaves both present in affected_areas without
// unifying them; the reference table mirrors that by keeping separate
// entries keyed by the full code (which already embeds C vs Z).
type Kind string

const (
	KindCounty Kind = "C"
	KindZone   Kind = "Z"
)

// Entry is one row of the reference table.
type Entry struct {
	Code  string // e.g. "OHC085"
	Name  string // e.g. "Lake County"
	State string // e.g. "OH"
	Kind  Kind
}

// Table is the immutable, in-memory UGC lookup. The zero value is usable and
// empty.
type Table struct {
	byCode map[string]Entry
}

// Load reads a CSV reference file of the form "code,name,state,kind" (one
// header row, then one row per code) and returns an immutable Table. Errors
// here are fatal at startup per spec.md §4.6.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("refdata: open %s: %w", path, err)
	}
	defer f.Close()
	return loadFrom(f)
}

func loadFrom(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = 4
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("refdata: parse csv: %w", err)
	}

	t := &Table{byCode: make(map[string]Entry, len(records))}
	for i, rec := range records {
		if i == 0 && isHeaderRow(rec) {
			continue
		}
		code := strings.ToUpper(strings.TrimSpace(rec[0]))
		if code == "" {
			continue
		}
		kind := Kind(strings.ToUpper(strings.TrimSpace(rec[3])))
		t.byCode[code] = Entry{
			Code:  code,
			Name:  strings.TrimSpace(rec[1]),
			State: strings.ToUpper(strings.TrimSpace(rec[2])),
			Kind:  kind,
		}
	}
	return t, nil
}

func isHeaderRow(rec []string) bool {
	return len(rec) == 4 && strings.EqualFold(strings.TrimSpace(rec[0]), "code")
}

// Lookup returns the human name for a UGC code, or "", false if unknown.
func (t *Table) Lookup(code string) (string, bool) {
	if t == nil {
		return "", false
	}
	e, ok := t.byCode[strings.ToUpper(code)]
	if !ok {
		return "", false
	}
	return e.Name, true
}

// State returns the two-letter state for a UGC code, or "", false if unknown.
func (t *Table) State(code string) (string, bool) {
	if t == nil {
		return "", false
	}
	e, ok := t.byCode[strings.ToUpper(code)]
	if !ok {
		return "", false
	}
	return e.State, true
}

// Len returns the number of loaded entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byCode)
}

// Render joins the human names for a list of UGC codes with "; ",
// deduplicating consecutive or repeated names while preserving first-seen
// order (spec.md §4.1 step 8). Codes with no table entry render as the raw
// code so nothing silently disappears from the display string.
func (t *Table) Render(codes []string) string {
	seen := make(map[string]bool, len(codes))
	parts := make([]string, 0, len(codes))
	for _, code := range codes {
		name, ok := t.Lookup(code)
		if !ok {
			name = code
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		parts = append(parts, name)
	}
	return strings.Join(parts, "; ")
}
