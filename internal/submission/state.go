// internal/submission/state.go
//
// Phases and the observable state of a Controller.

package submission

import (
	"github.com/yanizio/pesquisa/internal/form"
	"github.com/yanizio/pesquisa/internal/survey"
)

// Phase is one node of the submission state machine.
type Phase int

const (
	Idle Phase = iota
	Validating
	ValidationFailed
	Normalizing
	Delivering
	Success
	DuplicateConflict
	NetworkError
	UnexpectedError
)

var phaseNames = [...]string{
	Idle:              "idle",
	Validating:        "validating",
	ValidationFailed:  "validation_failed",
	Normalizing:       "normalizing",
	Delivering:        "delivering",
	Success:           "success",
	DuplicateConflict: "duplicate_conflict",
	NetworkError:      "network_error",
	UnexpectedError:   "unexpected_error",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// Busy reports whether an attempt is in flight in phase p.
func (p Phase) Busy() bool {
	return p == Validating || p == Normalizing || p == Delivering
}

// Terminal reports whether p ends an attempt.
func (p Phase) Terminal() bool {
	switch p {
	case ValidationFailed, Success, DuplicateConflict, NetworkError, UnexpectedError:
		return true
	}
	return false
}

// Failed reports whether p is a delivery failure the respondent can retry.
func (p Phase) Failed() bool {
	return p == DuplicateConflict || p == NetworkError || p == UnexpectedError
}

// State is what the UI renders.
type State struct {
	Phase     Phase
	Errors    []form.ErrorField // ValidationFailed only, declared order
	Field     survey.FieldKind  // DuplicateConflict only
	Message   string            // kind-specific notification text
	ReceiptID string            // Success via the backend
	Link      string            // Success via messaging
	Busy      bool
}

// Messages returns the validation messages in order.
func (s State) Messages() []string {
	out := make([]string, len(s.Errors))
	for i, e := range s.Errors {
		out[i] = e.Message
	}
	return out
}

// FieldError returns the validation message for k, or "".
func (s State) FieldError(k survey.Key) string {
	for _, e := range s.Errors {
		if e.Name == k {
			return e.Message
		}
	}
	return ""
}
