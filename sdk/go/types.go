package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/anuphat-bit/Eco-Hero/core"
	"github.com/anuphat-bit/Eco-Hero/engine"
)

// Response payloads share their JSON shape with the server views.
type (
	User            = core.User
	Department      = core.Department
	LogEntry        = core.LogEntry
	TimelineStep    = core.TimelineStep
	Receipt         = engine.Receipt
	Dashboard       = engine.Dashboard
	LeaderboardView = engine.LeaderboardView
	AllTimeEntry    = engine.AllTimeEntry
	DepartmentView  = engine.DepartmentView
	IntegrityIssue  = engine.IntegrityIssue
)

// Roster is the /roster response.
type Roster struct {
	Departments []Department `json:"departments"`
	Users       []User       `json:"users"`
}

// Integrity is the /integrity response.
type Integrity struct {
	OK     bool             `json:"ok"`
	Issues []IntegrityIssue `json:"issues"`
}

// HealthStatus describes the /healthz response.
type HealthStatus struct {
	Status string                 `json:"status"`
	Checks map[string]interface{} `json:"checks"`
}

// HistoryQuery narrows History. Empty fields are not sent; From and To use
// the YYYY-MM-DD form.
type HistoryQuery struct {
	Type string
	From string
	To   string
}

// APIError is a non-2xx response. It matches core.ErrInvalidInput,
// core.ErrNotFound and core.ErrUnauthorized under errors.Is.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("eco-hero api: %d %s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		return core.ErrInvalidInput
	case http.StatusNotFound:
		return core.ErrNotFound
	case http.StatusUnauthorized:
		return core.ErrUnauthorized
	}
	return nil
}

func decodeJSON(resp *http.Response, target any) error {
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Code == "" {
			apiErr.Code = "http_error"
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if target == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

// ErrEmptyUserID is returned when user id is empty.
var ErrEmptyUserID = errors.New("user id is required")
