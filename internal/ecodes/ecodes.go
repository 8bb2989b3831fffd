// Package ecodes holds the static E-code reference table. The table is
// embedded at build time, parsed once, and immutable afterwards. It is not
// consulted for classification decisions locally; it is passed verbatim to
// the remote classification service as contextual evidence, and exposed
// read-only through the API for user reference.
package ecodes

import (
	_ "embed"
	"encoding/csv"
	"strings"
	"sync"
)

//go:embed ecodes.csv
var rawTable string

// Entry is one row of the reference table.
type Entry struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Notes    string `json:"notes"`
}

var (
	parseOnce sync.Once
	entries   []Entry
	parseErr  error
)

// PromptBlock returns the table exactly as it is embedded, for inclusion in
// classification prompts.
func PromptBlock() string {
	return rawTable
}

// Entries returns the parsed table. The returned slice is shared and must be
// treated as read-only.
func Entries() ([]Entry, error) {
	parseOnce.Do(func() {
		r := csv.NewReader(strings.NewReader(rawTable))
		r.FieldsPerRecord = 4
		records, err := r.ReadAll()
		if err != nil {
			parseErr = err
			return
		}
		// Skip the header row.
		parsed := make([]Entry, 0, len(records)-1)
		for _, rec := range records[1:] {
			parsed = append(parsed, Entry{
				Code:     rec[0],
				Name:     rec[1],
				Category: rec[2],
				Notes:    rec[3],
			})
		}
		entries = parsed
	})
	return entries, parseErr
}
