// internal/form/validate.go
//
// Pesquisa – Forms subsystem: record validation.
//
// Context
//   Before a record is normalised and delivered it must pass the same rules
//   the respondent sees in the browser.  Validate walks the required inputs
//   in declared order and collects every violation, not just the first, so
//   the form can list all of them at once.
//
// Workflow
//   •  Each required input is checked for presence.  The usage group is a
//      set check, every other input a trimmed-string check.
//   •  A present phone number is reduced to its digits and matched against
//      the Brazilian area-code + subscriber shape.  The regex never sees the
//      masked text.
//   •  A blank phone yields the presence message only.
//   •  No I/O.  Bad input is a value, never an error.
//
// Style
//   Full sentences, two spaces after periods, Oxford comma.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"regexp"
	"strings"

	"github.com/yanizio/pesquisa/internal/survey"
)

// phonePattern matches canonical digits: 2-digit area code (no zeros) and an
// 8-digit landline or 9-digit mobile number.
var phonePattern = regexp.MustCompile(`^[1-9]{2}(?:[2-8]|9[1-9])[0-9]{3}[0-9]{4}$`)

// -----------------------------------------------------------------------------
// Error types
// -----------------------------------------------------------------------------

// ErrorField describes a single validation failure so the template can render
// a field-level message.
type ErrorField struct {
	Name    survey.Key // input name
	Message string     // user-facing message
}

// ValidationError wraps []ErrorField and satisfies the error interface.
//
// It lets callers (web handlers, the CLI) tell user input errors from system
// failures via errors.As / IsValidationError.
type ValidationError struct{ Fields []ErrorField }

func (ve ValidationError) Error() string { return "form validation failed" }

// IsValidationError reports whether err came from a failed Validate.
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// -----------------------------------------------------------------------------
// Public API
// -----------------------------------------------------------------------------

// Result is the outcome of Validate.  Errors is empty iff Valid.
type Result struct {
	Valid  bool
	Errors []ErrorField
}

// Messages returns the user-facing messages in declared order.
func (r Result) Messages() []string {
	out := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.Message
	}
	return out
}

// Err returns nil for a valid result and a ValidationError otherwise.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return ValidationError{Fields: r.Errors}
}

// Validate checks rec against the required-input and phone-format rules.
func Validate(rec survey.Record) Result {
	var errs []ErrorField

	for _, k := range survey.RequiredKeys {
		if !rec.Filled(k) {
			errs = append(errs, ErrorField{k, requiredMsg[k]})
			continue
		}
		if k == survey.KeyPhone && !ValidPhone(rec.Phone) {
			errs = append(errs, ErrorField{k, "WhatsApp deve ter um formato válido"})
		}
	}

	return Result{Valid: len(errs) == 0, Errors: errs}
}

// ValidPhone strips s to digits and checks the phone shape.
func ValidPhone(s string) bool {
	return phonePattern.MatchString(survey.Digits(strings.TrimSpace(s)))
}

// -----------------------------------------------------------------------------
// Messages
// -----------------------------------------------------------------------------

var requiredMsg = map[survey.Key]string{
	survey.KeyFullName:     "Nome é obrigatório",
	survey.KeyPhone:        "WhatsApp é obrigatório",
	survey.KeyProvider:     "Provedor atual é obrigatório",
	survey.KeySatisfaction: "Satisfação é obrigatória",
	survey.KeyNeighborhood: "Bairro é obrigatório",
	survey.KeyMonthlyFee:   "Valor mensal é obrigatório",
	survey.KeyUsage:        "Selecione pelo menos um uso da internet",
	survey.KeyInterest:     "Interesse em proposta é obrigatório",
	survey.KeyResponsible:  "Responsável é obrigatório",
}
