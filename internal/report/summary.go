// internal/report/summary.go
package report

import (
	"fmt"
	"sort"

	"cnpj-workers/internal/task"
)

// CountedValue is one line of a summary table: a value and how many
// distinct identifiers carry it.
type CountedValue struct {
	Value string
	Count int
}

// CountBySituacao counts distinct identifiers per registration status,
// largest groups first.
func CountBySituacao(tbl *Table) []CountedValue {
	return countDistinct(tbl, "situacao")
}

// CountByActivity counts distinct identifiers per primary activity,
// largest groups first.
func CountByActivity(tbl *Table) []CountedValue {
	return countDistinct(tbl, "atividade_principal")
}

// ErrorCount returns the number of distinct identifiers whose task
// ended in ERROR.
func ErrorCount(tbl *Table) int {
	seen := map[string]bool{}
	for _, row := range tbl.Rows {
		if row.Task.Status == task.StatusError {
			seen[row.Task.Identifier] = true
		}
	}
	return len(seen)
}

func countDistinct(tbl *Table, column string) []CountedValue {
	type pair struct{ id, val string }
	seen := map[pair]bool{}
	counts := map[string]int{}

	for _, row := range tbl.Rows {
		cell := row.Cells[column]
		if cell == nil {
			continue
		}
		p := pair{id: row.Task.Identifier, val: fmt.Sprint(cell)}
		if seen[p] {
			continue
		}
		seen[p] = true
		counts[p.val]++
	}

	out := make([]CountedValue, 0, len(counts))
	for val, n := range counts {
		out = append(out, CountedValue{Value: val, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}
