// internal/form/decode.go
//
// Pesquisa – Forms subsystem: posted values → survey.Record.
//
// Context
//   The intake page posts a classic urlencoded form.  Decode maps the inputs
//   onto a fresh record so masking, enum parsing, and the referral lock all
//   go through survey.Record.Set exactly as keystroke edits do.
//
//------------------------------------------------------------------------------

package form

import (
	"net/url"
	"strings"

	"github.com/yanizio/pesquisa/internal/survey"
)

// textKeys are the single-value inputs, in form order.
var textKeys = []survey.Key{
	survey.KeyFullName,
	survey.KeyPhone,
	survey.KeyNationalID,
	survey.KeyProvider,
	survey.KeySatisfaction,
	survey.KeyNeighborhood,
	survey.KeyPlanSpeed,
	survey.KeyMonthlyFee,
	survey.KeyInterest,
	survey.KeyResponsible,
}

// Decode builds a record from posted values.  A non-blank referral locks the
// responsible party, so a tampered "responsavel" input is ignored.
func Decode(posted url.Values, referral string) survey.Record {
	rec := survey.NewRecord(referral)

	for _, k := range textKeys {
		if v, ok := posted[string(k)]; ok && len(v) > 0 {
			rec.Set(k, strings.TrimSpace(v[0]))
		}
	}
	rec.SetUsage(posted[string(survey.KeyUsage)])

	return rec
}
