package report

import (
	"testing"
	"time"

	"cnpj-workers/internal/task"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filterFixture(t *testing.T, e *Engine) *Table {
	t.Helper()
	tasks := []task.Task{
		doneTask("00000000000001", `{
			"cnpj_consultado": "00000000000001",
			"nome": "PADARIA DO ZE LTDA",
			"fantasia": "PAO QUENTE",
			"municipio": "SAO PAULO",
			"atividade_principal": [{"text": "Fabricacao de produtos de padaria"}]
		}`),
		doneTask("00000000000002", `{
			"cnpj_consultado": "00000000000002",
			"nome": "TRANSPORTES RAPIDOS SA",
			"municipio": "CAMPINAS",
			"atividade_principal": [{"text": "Transporte rodoviario de carga"}]
		}`),
	}
	return e.Normalize(tasks)
}

func TestApply_EmptyFilterKeepsEverything(t *testing.T) {
	e := newTestEngine(t)
	tbl := filterFixture(t, e)

	out := e.Apply(tbl, Filter{})

	assert.Len(t, out.Rows, len(tbl.Rows))
	assert.Equal(t, tbl.Columns, out.Columns)
}

func TestApply_ConjunctivePredicates(t *testing.T) {
	tests := []struct {
		name        string
		filter      Filter
		expectedIDs []string
	}{
		{
			name:        "identifier set",
			filter:      Filter{Identifiers: []string{"00000000000002"}},
			expectedIDs: []string{"00000000000002"},
		},
		{
			name:        "name substring is case-insensitive",
			filter:      Filter{NameContains: "padaria"},
			expectedIDs: []string{"00000000000001"},
		},
		{
			name:        "name substring matches trade name too",
			filter:      Filter{NameContains: "pao quente"},
			expectedIDs: []string{"00000000000001"},
		},
		{
			name:        "municipality substring",
			filter:      Filter{MunicipalityContains: "campinas"},
			expectedIDs: []string{"00000000000002"},
		},
		{
			name:        "activity substring",
			filter:      Filter{ActivityContains: "transporte"},
			expectedIDs: []string{"00000000000002"},
		},
		{
			name: "predicates combine with AND",
			filter: Filter{
				NameContains:         "LTDA",
				MunicipalityContains: "CAMPINAS",
			},
			expectedIDs: nil,
		},
		{
			name:        "no match yields empty table",
			filter:      Filter{NameContains: "inexistente"},
			expectedIDs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t)
			out := e.Apply(filterFixture(t, e), tt.filter)

			var ids []string
			for _, row := range out.Rows {
				ids = append(ids, row.Task.Identifier)
			}
			assert.Equal(t, tt.expectedIDs, ids)
		})
	}
}

func TestApply_AddedOnOrBeforeIsEndOfDayInclusive(t *testing.T) {
	e := newTestEngine(t)

	// 2025-11-01 23:30 in Sao Paulo, stored as UTC.
	lateEvening := time.Date(2025, 11, 2, 2, 30, 0, 0, time.UTC)
	nextMorning := time.Date(2025, 11, 2, 12, 0, 0, 0, time.UTC)

	sameDay := doneTask("00000000000001", `{"cnpj_consultado": "00000000000001"}`)
	sameDay.EnqueuedAt = lateEvening
	dayAfter := doneTask("00000000000002", `{"cnpj_consultado": "00000000000002"}`)
	dayAfter.EnqueuedAt = nextMorning

	tbl := e.Normalize([]task.Task{sameDay, dayAfter})

	cutoff := time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)
	out := e.Apply(tbl, Filter{AddedOnOrBefore: &cutoff})

	require.Len(t, out.Rows, 1)
	assert.Equal(t, "00000000000001", out.Rows[0].Task.Identifier)
}

func TestApply_StatusSet(t *testing.T) {
	e := newTestEngine(t)

	done := doneTask("00000000000001", `{"cnpj_consultado": "00000000000001"}`)
	pending := task.Task{
		Identifier: "00000000000002",
		Status:     task.StatusPending,
		EnqueuedAt: time.Date(2025, 11, 1, 10, 0, 0, 0, time.UTC),
	}

	tbl := e.Normalize([]task.Task{done, pending})
	out := e.Apply(tbl, Filter{Statuses: []task.Status{task.StatusPending}})

	require.Len(t, out.Rows, 1)
	assert.Equal(t, "00000000000002", out.Rows[0].Task.Identifier)
}
