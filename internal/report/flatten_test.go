package report

import (
	"encoding/json"
	"testing"
	"time"

	"cnpj-workers/internal/common/config"
	"cnpj-workers/internal/common/logger"
	"cnpj-workers/internal/task"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestEngine(t *testing.T) *Engine {
	e, err := NewEngine(config.ReportConfig{TimeZone: "America/Sao_Paulo"}, logger.NewTestLogger(t))
	require.NoError(t, err)
	return e
}

func doneTask(identifier string, rawJSON string) task.Task {
	enq := time.Date(2025, 11, 1, 10, 0, 0, 0, time.UTC)
	done := enq.Add(2 * time.Minute)
	return task.Task{
		Identifier:  identifier,
		Status:      task.StatusDone,
		EnqueuedAt:  enq,
		CompletedAt: &done,
		RawResult:   json.RawMessage(rawJSON),
	}
}

// ==========================
// Cross-product expansion
// ==========================

func TestNormalize_CrossProductExpansion(t *testing.T) {
	e := newTestEngine(t)

	raw := `{
		"cnpj_consultado": "12345678000195",
		"nome": "EMPRESA TESTE LTDA",
		"qsa": [{"nome": "ALICE"}, {"nome": "BRUNO"}],
		"atividades_secundarias": [{"text": "A1"}, {"text": "A2"}, {"text": "A3"}]
	}`

	tbl := e.Normalize([]task.Task{doneTask("12345678000195", raw)})

	require.Len(t, tbl.Rows, 6, "2 partners x 3 activities must expand to 6 rows")

	var pairs [][2]interface{}
	for _, row := range tbl.Rows {
		pairs = append(pairs, [2]interface{}{
			row.Cells["quadro_societario"],
			row.Cells["atividade_secundaria"],
		})
	}
	// Partner-major order, activities in source order within each partner.
	assert.Equal(t, [][2]interface{}{
		{"ALICE", "A1"}, {"ALICE", "A2"}, {"ALICE", "A3"},
		{"BRUNO", "A1"}, {"BRUNO", "A2"}, {"BRUNO", "A3"},
	}, pairs)
}

func TestNormalize_NoExpandableFieldsYieldsSingleRow(t *testing.T) {
	e := newTestEngine(t)

	raw := `{"cnpj_consultado": "12345678000195", "nome": "EMPRESA TESTE LTDA"}`
	tbl := e.Normalize([]task.Task{doneTask("12345678000195", raw)})

	require.Len(t, tbl.Rows, 1)
	assert.Nil(t, tbl.Rows[0].Cells["quadro_societario"])
	assert.Nil(t, tbl.Rows[0].Cells["atividade_secundaria"])
}

func TestNormalize_EmptyListsBehaveLikeAbsent(t *testing.T) {
	e := newTestEngine(t)

	raw := `{"cnpj_consultado": "12345678000195", "qsa": [], "atividades_secundarias": []}`
	tbl := e.Normalize([]task.Task{doneTask("12345678000195", raw)})

	require.Len(t, tbl.Rows, 1)
	assert.Nil(t, tbl.Rows[0].Cells["quadro_societario"])
}

func TestNormalize_NonObjectPartnerKeptAsScalar(t *testing.T) {
	e := newTestEngine(t)

	raw := `{"cnpj_consultado": "12345678000195", "qsa": [{"nome": "ALICE"}, "avulso"]}`
	tbl := e.Normalize([]task.Task{doneTask("12345678000195", raw)})

	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "ALICE", tbl.Rows[0].Cells["quadro_societario"])
	assert.Equal(t, "avulso", tbl.Rows[1].Cells["quadro_societario"])
}

// ==========================
// Field collapsing and flattening
// ==========================

func TestNormalize_PrimaryActivityCollapse(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected interface{}
	}{
		{
			name:     "one-element list of object",
			raw:      `{"atividade_principal": [{"code": "62.01-5-01", "text": "Desenvolvimento de software"}]}`,
			expected: "Desenvolvimento de software",
		},
		{
			name:     "plain object",
			raw:      `{"atividade_principal": {"text": "Desenvolvimento de software"}}`,
			expected: "Desenvolvimento de software",
		},
		{
			name:     "empty list",
			raw:      `{"atividade_principal": []}`,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t)
			tbl := e.Normalize([]task.Task{doneTask("12345678000195", tt.raw)})
			require.Len(t, tbl.Rows, 1)
			assert.Equal(t, tt.expected, tbl.Rows[0].Cells["atividade_principal"])
		})
	}
}

func TestNormalize_NestedObjectsBecomeDottedPaths(t *testing.T) {
	e := newTestEngine(t)

	raw := `{
		"cnpj_consultado": "12345678000195",
		"simples": {"optante": true, "ultima_atualizacao": "2025-10-31T23:00:00-03:00"}
	}`
	tbl := e.Normalize([]task.Task{doneTask("12345678000195", raw)})

	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, true, tbl.Rows[0].Cells["simples.optante"])
	assert.Equal(t, "31/10/2025", tbl.Rows[0].Cells["simples.ultima_atualizacao"])
}

// ==========================
// Column projection
// ==========================

func TestNormalize_ColumnPriorityOrder(t *testing.T) {
	e := newTestEngine(t)

	raw := `{
		"uf": "SP",
		"municipio": "SAO PAULO",
		"situacao": "ATIVA",
		"nome": "EMPRESA TESTE LTDA",
		"cnpj_consultado": "12345678000195",
		"qsa": [{"nome": "ALICE"}]
	}`
	tbl := e.Normalize([]task.Task{doneTask("12345678000195", raw)})

	// Well-known columns first in their fixed order, then the rest in
	// first-appearance order.
	assert.Equal(t, []string{
		"cnpj_consultado", "nome", "status", "situacao",
		"atividade_secundaria", "quadro_societario",
		"uf", "municipio", "data_adicionado", "data_conclusao",
	}, tbl.Columns)
}

// ==========================
// Date rendering
// ==========================

func TestNormalize_DateFormattingDeterministic(t *testing.T) {
	e := newTestEngine(t)

	raw := `{"cnpj_consultado": "12345678000195", "abertura": "2005-02-01", "ultima_atualizacao": "2025-10-31T23:00:00-03:00"}`
	in := []task.Task{doneTask("12345678000195", raw)}

	first := e.Normalize(in)
	second := e.Normalize(in)

	require.Len(t, first.Rows, 1)
	assert.Equal(t, "01/02/2005", first.Rows[0].Cells["abertura"])
	assert.Equal(t, "31/10/2025", first.Rows[0].Cells["ultima_atualizacao"])
	// 2025-11-01 10:00 UTC is 07:00 in Sao Paulo, same calendar day.
	assert.Equal(t, "01/11/2025", first.Rows[0].Cells["data_adicionado"])
	assert.Equal(t, first.Rows[0].Cells, second.Rows[0].Cells)
}

func TestNormalize_UnparseableDatesRenderNotAvailable(t *testing.T) {
	e := newTestEngine(t)

	raw := `{"cnpj_consultado": "12345678000195", "abertura": "not a date", "data_situacao": null}`
	tbl := e.Normalize([]task.Task{doneTask("12345678000195", raw)})

	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, NotAvailable, tbl.Rows[0].Cells["abertura"])
	assert.Equal(t, NotAvailable, tbl.Rows[0].Cells["data_situacao"])
}

// ==========================
// Fallback and non-terminal tasks
// ==========================

func TestNormalize_MalformedResultFallsBackWithoutAbortingTable(t *testing.T) {
	e := newTestEngine(t)

	bad := doneTask("00000000000001", `[1, 2, 3]`)
	good := doneTask("00000000000002", `{"cnpj_consultado": "00000000000002", "nome": "EMPRESA BOA"}`)

	tbl := e.Normalize([]task.Task{bad, good})

	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "[1, 2, 3]", tbl.Rows[0].Cells["raw_result"])
	assert.Equal(t, "EMPRESA BOA", tbl.Rows[1].Cells["nome"])
}

func TestNormalize_PendingTaskRendersProgress(t *testing.T) {
	e := newTestEngine(t)

	pending := task.Task{
		Identifier: "12345678000195",
		Status:     task.StatusPending,
		EnqueuedAt: time.Date(2025, 11, 1, 10, 0, 0, 0, time.UTC),
	}
	tbl := e.Normalize([]task.Task{pending})

	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, "12345678000195", tbl.Rows[0].Cells["cnpj_consultado"])
	assert.Equal(t, "PENDING", tbl.Rows[0].Cells["status"])
	assert.Equal(t, NotAvailable, tbl.Rows[0].Cells["data_conclusao"])
}

func TestNormalize_ErrorTaskCarriesClassification(t *testing.T) {
	e := newTestEngine(t)

	enq := time.Date(2025, 11, 1, 10, 0, 0, 0, time.UTC)
	done := enq.Add(time.Minute)
	failed := task.Task{
		Identifier:  "12345678000195",
		Status:      task.StatusError,
		EnqueuedAt:  enq,
		CompletedAt: &done,
		RawResult:   json.RawMessage(`{"code": "TIMEOUT", "message": "lookup API did not respond within the timeout budget", "retryable": false}`),
	}
	tbl := e.Normalize([]task.Task{failed})

	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, "ERROR", tbl.Rows[0].Cells["status"])
	assert.Equal(t, "TIMEOUT", tbl.Rows[0].Cells["code"])
}
