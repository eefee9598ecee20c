// Package report turns stored tasks into the flat, filterable,
// column-stable table the viewer displays and exports.
package report

import (
	"fmt"
	"time"

	"cnpj-workers/internal/common/config"
	apperrors "cnpj-workers/internal/common/errors"
	"cnpj-workers/internal/common/logger"
	"cnpj-workers/internal/task"
)

// NotAvailable marks a timestamp cell with no usable value, so
// consumers can tell "no data" from an empty string.
const NotAvailable = "N/A"

const dateLayout = "02/01/2006"

// priorityColumns are placed first, in this order, whenever present.
// The viewer relies on the first columns being the same semantic fields
// regardless of which optional fields a batch happened to populate.
var priorityColumns = []string{
	"cnpj_consultado",
	"nome",
	"fantasia",
	"status",
	"situacao",
	"motivo_situacao",
	"atividade_principal",
	"atividade_secundaria",
	"quadro_societario",
}

var dateColumns = map[string]bool{
	"abertura":                   true,
	"data_situacao":              true,
	"ultima_atualizacao":         true,
	"data_situacao_especial":     true,
	"simples.ultima_atualizacao": true,
	"simei.ultima_atualizacao":   true,
	"data_adicionado":            true,
	"data_conclusao":             true,
}

// Row is one flattened, presentation-ready record. Row identity is not
// unique per task: a task with P partners and A secondary activities
// yields P×A rows.
type Row struct {
	Task  task.Task
	Cells map[string]interface{}
}

type Table struct {
	Columns []string
	Rows    []Row
}

// cells accumulates columns for one row while remembering the order in
// which each column first appeared.
type cells struct {
	keys []string
	m    map[string]interface{}
}

func newCells() *cells {
	return &cells{m: map[string]interface{}{}}
}

func (c *cells) set(key string, val interface{}) {
	if _, ok := c.m[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.m[key] = val
}

func (c *cells) has(key string) bool {
	_, ok := c.m[key]
	return ok
}

func (c *cells) clone() *cells {
	out := &cells{
		keys: append([]string(nil), c.keys...),
		m:    make(map[string]interface{}, len(c.m)),
	}
	for k, v := range c.m {
		out.m[k] = v
	}
	return out
}

// Engine is the result normalization engine. Given the same input it
// always yields the same rows in the same order.
type Engine struct {
	loc    *time.Location
	logger logger.Logger
}

func NewEngine(cfg config.ReportConfig, log logger.Logger) (*Engine, error) {
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid report timezone %q: %w", cfg.TimeZone, err)
	}
	return &Engine{
		loc:    loc,
		logger: log.WithFields(map[string]interface{}{"component": "report"}),
	}, nil
}

// Normalize expands every task into its flat rows and projects the
// stable column order. A task whose raw result cannot be flattened
// falls back to a single unflattened row; the rest of the table renders
// normally.
func (e *Engine) Normalize(tasks []task.Task) *Table {
	var (
		colOrder []string
		seen     = map[string]bool{}
		rows     []Row
	)

	for _, t := range tasks {
		expanded, err := e.expand(t)
		if err != nil {
			nerr := apperrors.NewNormalizationError(t.Identifier, err)
			e.logger.Warn("falling back to unflattened row", map[string]interface{}{
				"identifier": t.Identifier,
				"errorCode":  string(nerr.Code),
				"error":      err.Error(),
			})
			expanded = []*cells{e.fallbackCells(t)}
		}
		for _, rc := range expanded {
			for _, k := range rc.keys {
				if !seen[k] {
					seen[k] = true
					colOrder = append(colOrder, k)
				}
			}
			rows = append(rows, Row{Task: t, Cells: rc.m})
		}
	}

	return &Table{Columns: projectColumns(colOrder), Rows: rows}
}

// projectColumns puts the well-known columns first and every remaining
// column after them in first-appearance order.
func projectColumns(order []string) []string {
	present := map[string]bool{}
	for _, c := range order {
		present[c] = true
	}

	var out []string
	chosen := map[string]bool{}
	for _, c := range priorityColumns {
		if present[c] {
			out = append(out, c)
			chosen[c] = true
		}
	}
	for _, c := range order {
		if !chosen[c] {
			out = append(out, c)
		}
	}
	return out
}

// expand flattens one task and cross-joins its partner entries with its
// secondary activities: P partners × A activities yields P×A rows, in
// source order, partner-major.
func (e *Engine) expand(t task.Task) ([]*cells, error) {
	base := newCells()
	var partnersVal, activitiesVal Value

	if len(t.RawResult) > 0 {
		v, err := DecodeValue(t.RawResult)
		if err != nil {
			return nil, err
		}
		if v.Kind() != KindObject {
			return nil, fmt.Errorf("raw result is not an object")
		}
		partnersVal, activitiesVal = e.flattenInto(base, "", v)
	}

	if !base.has("cnpj_consultado") {
		base.set("cnpj_consultado", t.Identifier)
	}
	if !base.has("status") {
		base.set("status", string(t.Status))
	}
	if !base.has("nome") && t.Name != "" {
		base.set("nome", t.Name)
	}
	if !base.has("situacao") && t.RegistrationStatus != "" {
		base.set("situacao", t.RegistrationStatus)
	}
	base.set("data_adicionado", t.EnqueuedAt)
	if t.CompletedAt != nil {
		base.set("data_conclusao", *t.CompletedAt)
	} else {
		base.set("data_conclusao", nil)
	}

	partners := expandEntries(partnersVal, "nome")
	activities := expandEntries(activitiesVal, "text")

	out := make([]*cells, 0, len(partners)*len(activities))
	for _, p := range partners {
		for _, a := range activities {
			rc := base.clone()
			rc.set("quadro_societario", p)
			rc.set("atividade_secundaria", a)
			e.renderDates(rc)
			out = append(out, rc)
		}
	}
	return out, nil
}

// flattenInto walks the object in source key order, turning nested
// object keys into dotted paths. The two expandable list fields and the
// primary activity are intercepted at the top level; other lists are
// carried along as compact JSON.
func (e *Engine) flattenInto(dst *cells, prefix string, v Value) (partners, activities Value) {
	partners = Value{}
	activities = Value{}

	for _, k := range v.Keys() {
		f, _ := v.Field(k)
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}

		if prefix == "" {
			switch k {
			case "qsa":
				partners = f
				continue
			case "atividades_secundarias":
				activities = f
				continue
			case "atividade_principal":
				dst.set(k, collapseActivity(f))
				continue
			}
		}

		switch f.Kind() {
		case KindObject:
			e.flattenInto(dst, path, f)
		case KindList:
			dst.set(path, f.JSONString())
		case KindNull:
			dst.set(path, nil)
		default:
			dst.set(path, f.Scalar())
		}
	}
	return partners, activities
}

// collapseActivity reduces the primary-activity field to its inner text
// value: a one-element list-of-object and a plain object are treated
// the same way.
func collapseActivity(v Value) interface{} {
	switch v.Kind() {
	case KindList:
		items := v.Items()
		if len(items) == 0 {
			return nil
		}
		return collapseActivity(items[0])
	case KindObject:
		text, _ := v.Field("text")
		return text.Scalar()
	case KindScalar:
		return v.Scalar()
	default:
		return nil
	}
}

// expandEntries converts an expandable list field into one value per
// output row. An absent, empty or non-list field yields a single nil
// entry. Object elements contribute their nameKey value; non-object
// elements are retained as raw scalar fallbacks.
func expandEntries(v Value, nameKey string) []interface{} {
	if v.Kind() != KindList || len(v.Items()) == 0 {
		return []interface{}{nil}
	}
	out := make([]interface{}, 0, len(v.Items()))
	for _, item := range v.Items() {
		switch item.Kind() {
		case KindObject:
			name, _ := item.Field(nameKey)
			out = append(out, name.Scalar())
		case KindScalar:
			out = append(out, item.Scalar())
		default:
			out = append(out, nil)
		}
	}
	return out
}

func (e *Engine) renderDates(rc *cells) {
	for _, k := range rc.keys {
		if dateColumns[k] {
			rc.m[k] = e.renderDate(rc.m[k])
		}
	}
}

var dateParseLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// renderDate converts a timestamp cell into the display time zone as a
// fixed-format string. Absent or unparseable values render as the
// explicit N/A marker, never as an empty string.
func (e *Engine) renderDate(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return NotAvailable
	case time.Time:
		return t.In(e.loc).Format(dateLayout)
	case string:
		if t == "" {
			return NotAvailable
		}
		for _, layout := range dateParseLayouts {
			if parsed, err := time.ParseInLocation(layout, t, e.loc); err == nil {
				return parsed.In(e.loc).Format(dateLayout)
			}
		}
		return NotAvailable
	default:
		return NotAvailable
	}
}

// fallbackCells builds the single unflattened row used when a raw
// result defeats the flattening algorithm.
func (e *Engine) fallbackCells(t task.Task) *cells {
	rc := newCells()
	rc.set("cnpj_consultado", t.Identifier)
	rc.set("status", string(t.Status))
	rc.set("raw_result", string(t.RawResult))
	rc.set("data_adicionado", t.EnqueuedAt)
	if t.CompletedAt != nil {
		rc.set("data_conclusao", *t.CompletedAt)
	} else {
		rc.set("data_conclusao", nil)
	}
	e.renderDates(rc)
	return rc
}
