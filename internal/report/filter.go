// internal/report/filter.go
package report

import (
	"fmt"
	"strings"
	"time"

	"cnpj-workers/internal/task"
)

// Filter holds the user-specified predicates. Every zero-valued field
// is a no-op, never an exclude-all. All predicates are conjunctive and
// independent.
type Filter struct {
	Identifiers          []string
	NameContains         string
	MunicipalityContains string
	ActivityContains     string

	// AddedOnOrBefore keeps tasks enqueued up to the end of the given
	// calendar day, interpreted in the display time zone.
	AddedOnOrBefore *time.Time

	Statuses []task.Status
}

// Apply filters the normalized table. Columns are unchanged; only rows
// are dropped.
func (e *Engine) Apply(tbl *Table, f Filter) *Table {
	idSet := map[string]bool{}
	for _, id := range f.Identifiers {
		idSet[id] = true
	}
	statusSet := map[task.Status]bool{}
	for _, s := range f.Statuses {
		statusSet[s] = true
	}

	var cutoff time.Time
	if f.AddedOnOrBefore != nil {
		d := f.AddedOnOrBefore.In(e.loc)
		cutoff = time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), e.loc)
	}

	out := &Table{Columns: tbl.Columns}
	for _, row := range tbl.Rows {
		if len(idSet) > 0 && !idSet[row.Task.Identifier] {
			continue
		}
		if f.NameContains != "" &&
			!cellContains(row.Cells["nome"], f.NameContains) &&
			!cellContains(row.Cells["fantasia"], f.NameContains) {
			continue
		}
		if f.MunicipalityContains != "" && !cellContains(row.Cells["municipio"], f.MunicipalityContains) {
			continue
		}
		if f.ActivityContains != "" && !cellContains(row.Cells["atividade_principal"], f.ActivityContains) {
			continue
		}
		if f.AddedOnOrBefore != nil && row.Task.EnqueuedAt.After(cutoff) {
			continue
		}
		if len(statusSet) > 0 && !statusSet[row.Task.Status] {
			continue
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

// cellContains is a case-insensitive substring match on a cell's
// rendered text. Nil cells never match.
func cellContains(cell interface{}, substr string) bool {
	if cell == nil {
		return false
	}
	text := fmt.Sprint(cell)
	return strings.Contains(strings.ToLower(text), strings.ToLower(substr))
}
