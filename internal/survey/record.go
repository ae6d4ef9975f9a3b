// internal/survey/record.go
//
// Survey – the submission record.
//
// Context
//   One Record holds everything a respondent types into the intake form.
//   It is created empty when the form is shown, mutated field-by-field via
//   Set and ToggleUsage, and discarded once delivery succeeds.  Phone and
//   CPF are kept in their masked display form; PhoneDigits and
//   NationalIDDigits give the canonical values used for validation and on
//   the wire.
//
//   A record may be opened from a referral link.  The referral fills the
//   responsible party and locks it for the rest of the session: Set ignores
//   writes to a locked field, and Reset keeps it.
//
// Notes
//   •  Records are plain values.  Snapshot returns a deep copy for the
//      duration of one submit attempt.
//   •  Oxford commas, two spaces after periods.
//
//------------------------------------------------------------------------------

package survey

import "strings"

// Key identifies one input of the form.  Values match the HTML input names.
type Key string

const (
	KeyFullName     Key = "nome"
	KeyPhone        Key = "whatsapp"
	KeyNationalID   Key = "cpf"
	KeyProvider     Key = "provedorAtual"
	KeySatisfaction Key = "satisfacao"
	KeyNeighborhood Key = "bairro"
	KeyPlanSpeed    Key = "velocidade"
	KeyMonthlyFee   Key = "valorMensal"
	KeyUsage        Key = "usoInternet"
	KeyInterest     Key = "interesseProposta"
	KeyResponsible  Key = "responsavel"
)

// RequiredKeys lists the mandatory inputs in declared order.  Validation
// errors and progress both follow this order.
var RequiredKeys = []Key{
	KeyFullName,
	KeyPhone,
	KeyProvider,
	KeySatisfaction,
	KeyNeighborhood,
	KeyMonthlyFee,
	KeyUsage,
	KeyInterest,
	KeyResponsible,
}

// Record is one respondent's answers.
type Record struct {
	FullName        string
	Phone           string // masked, e.g. "(11) 98765-4321"
	NationalID      string // masked, optional
	CurrentProvider string
	Satisfaction    Satisfaction
	Neighborhood    string
	PlanSpeed       string // optional free text
	MonthlyFee      string // free text, never parsed
	Usage           []Usage
	Interest        Interest
	Responsible     string

	// ResponsibleLocked is set when Responsible came from a referral link.
	ResponsibleLocked bool
}

// NewRecord returns an empty record.  A non-blank referral pre-fills and
// locks the responsible party.
func NewRecord(referral string) Record {
	var r Record
	if ref := strings.TrimSpace(referral); ref != "" {
		r.Responsible = ref
		r.ResponsibleLocked = true
	}
	return r
}

// Set writes one text input.  Phone and CPF are re-masked on every write.
// Enumerated inputs accept labels or aliases; unknown values clear them.
// Writes to a locked responsible party are ignored.  Use SetUsage for the
// checkbox group.
func (r *Record) Set(k Key, value string) {
	switch k {
	case KeyFullName:
		r.FullName = value
	case KeyPhone:
		r.Phone = Mask(FieldPhone, value)
	case KeyNationalID:
		r.NationalID = Mask(FieldNationalID, value)
	case KeyProvider:
		r.CurrentProvider = value
	case KeySatisfaction:
		r.Satisfaction, _ = ParseSatisfaction(value)
	case KeyNeighborhood:
		r.Neighborhood = value
	case KeyPlanSpeed:
		r.PlanSpeed = value
	case KeyMonthlyFee:
		r.MonthlyFee = value
	case KeyInterest:
		r.Interest, _ = ParseInterest(value)
	case KeyResponsible:
		if !r.ResponsibleLocked {
			r.Responsible = value
		}
	}
}

// SetUsage replaces the usage tags.  Unknown and repeated tags are dropped;
// the first occurrence keeps its position.
func (r *Record) SetUsage(tags []string) {
	r.Usage = nil
	for _, t := range tags {
		u, ok := ParseUsage(t)
		if !ok || r.HasUsage(u) {
			continue
		}
		r.Usage = append(r.Usage, u)
	}
}

// ToggleUsage adds u when absent and removes it when present.
func (r *Record) ToggleUsage(u Usage) {
	for i, have := range r.Usage {
		if have == u {
			r.Usage = append(r.Usage[:i:i], r.Usage[i+1:]...)
			return
		}
	}
	r.Usage = append(r.Usage, u)
}

// HasUsage reports whether u is selected.
func (r Record) HasUsage(u Usage) bool {
	for _, have := range r.Usage {
		if have == u {
			return true
		}
	}
	return false
}

// Value returns the text of input k as the form displays it.  The usage
// group renders as its labels joined by ", ".
func (r Record) Value(k Key) string {
	switch k {
	case KeyFullName:
		return r.FullName
	case KeyPhone:
		return r.Phone
	case KeyNationalID:
		return r.NationalID
	case KeyProvider:
		return r.CurrentProvider
	case KeySatisfaction:
		return string(r.Satisfaction)
	case KeyNeighborhood:
		return r.Neighborhood
	case KeyPlanSpeed:
		return r.PlanSpeed
	case KeyMonthlyFee:
		return r.MonthlyFee
	case KeyUsage:
		return r.UsageLabels()
	case KeyInterest:
		return string(r.Interest)
	case KeyResponsible:
		return r.Responsible
	default:
		return ""
	}
}

// UsageLabels joins the selected tags with ", ".
func (r Record) UsageLabels() string {
	parts := make([]string, len(r.Usage))
	for i, u := range r.Usage {
		parts[i] = string(u)
	}
	return strings.Join(parts, ", ")
}

// PhoneDigits returns the canonical phone number.
func (r Record) PhoneDigits() string { return Digits(r.Phone) }

// NationalIDDigits returns the canonical CPF, empty when not informed.
func (r Record) NationalIDDigits() string { return Digits(r.NationalID) }

// Filled reports whether required input k holds a non-blank value.
func (r Record) Filled(k Key) bool {
	if k == KeyUsage {
		return len(r.Usage) > 0
	}
	return strings.TrimSpace(r.Value(k)) != ""
}

// Complete reports whether every required input is filled.
func (r Record) Complete() bool {
	for _, k := range RequiredKeys {
		if !r.Filled(k) {
			return false
		}
	}
	return true
}

// Progress returns the share of required inputs filled, from 0 to 100.
func (r Record) Progress() float64 {
	n := 0
	for _, k := range RequiredKeys {
		if r.Filled(k) {
			n++
		}
	}
	return float64(n) / float64(len(RequiredKeys)) * 100
}

// Snapshot returns a deep copy safe to read while the original is edited.
func (r Record) Snapshot() Record {
	cp := r
	if r.Usage != nil {
		cp.Usage = append([]Usage(nil), r.Usage...)
	}
	return cp
}

// Reset empties the record.  A locked responsible party survives.
func (r *Record) Reset() {
	ref := ""
	if r.ResponsibleLocked {
		ref = r.Responsible
	}
	*r = NewRecord(ref)
}
