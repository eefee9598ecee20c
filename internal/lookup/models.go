// internal/lookup/models.go
package lookup

import (
	apperrors "cnpj-workers/internal/common/errors"
)

// Result is the outcome of a single lookup call: either a success
// payload (the remote service's nested JSON, decoded) or a classified
// failure. Exactly one of Data and Failure is set.
type Result struct {
	Identifier string
	Data       map[string]interface{}
	Failure    *apperrors.StandardError
}

func (r *Result) OK() bool {
	return r.Failure == nil
}

// errorBody is the shape a known API failure carries in its response
// body. Unknown failures have no parsable body.
type errorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
