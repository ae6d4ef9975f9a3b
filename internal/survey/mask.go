// internal/survey/mask.go
//
// Progressive display masks for the two formatted inputs.
//
// Context
//   Respondents type phone numbers and CPFs in any shape: digits only,
//   pasted with punctuation, or half-finished.  Every keystroke is re-masked
//   from the canonical digits, so the mask never depends on what the input
//   looked like before.  That makes Mask idempotent by construction.
//
// Notes
//   •  Phone: (AA) NNNNN-NNNN, at most 11 digits.
//   •  CPF:   NNN.NNN.NNN-NN, at most 11 digits.
//   •  Two spaces after periods.
//
//------------------------------------------------------------------------------

package survey

import "strings"

// FieldKind selects the mask applied by Mask.
type FieldKind int

const (
	FieldPhone FieldKind = iota + 1
	FieldNationalID
)

// maxMaskedDigits caps both masked inputs.
const maxMaskedDigits = 11

// Digits returns the canonical form of s: every non-digit byte removed.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Mask strips raw down to its digits and renders the display mask for kind.
// Unknown kinds return the canonical digits untouched.
func Mask(kind FieldKind, raw string) string {
	d := Digits(raw)
	if len(d) > maxMaskedDigits {
		d = d[:maxMaskedDigits]
	}

	switch kind {
	case FieldPhone:
		return maskPhone(d)
	case FieldNationalID:
		return maskCPF(d)
	default:
		return d
	}
}

func maskPhone(d string) string {
	switch n := len(d); {
	case n <= 2:
		return d
	case n <= 7:
		return "(" + d[:2] + ") " + d[2:]
	default:
		return "(" + d[:2] + ") " + d[2:7] + "-" + d[7:]
	}
}

func maskCPF(d string) string {
	switch n := len(d); {
	case n <= 3:
		return d
	case n <= 6:
		return d[:3] + "." + d[3:]
	case n <= 9:
		return d[:3] + "." + d[3:6] + "." + d[6:]
	default:
		return d[:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:]
	}
}

// ParseFieldKind maps the names used by the mask endpoint and the CLI.
func ParseFieldKind(s string) (FieldKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "phone", "whatsapp", "telefone":
		return FieldPhone, true
	case "cpf", "nationalid", "national_id":
		return FieldNationalID, true
	default:
		return 0, false
	}
}
