// internal/survey/enums.go
//
// Closed vocabularies offered by the intake form.  Each value carries the
// label shown to respondents, which is also the value sent over the wire.

package survey

import "strings"

/*──────────────────────────── satisfaction ─────────────────────────────────*/

// Satisfaction is the respondent's opinion of the current provider.
type Satisfaction string

const (
	VerySatisfied    Satisfaction = "Muito satisfeito"
	Satisfied        Satisfaction = "Satisfeito"
	Dissatisfied     Satisfaction = "Insatisfeito"
	VeryDissatisfied Satisfaction = "Muito insatisfeito"
)

// Satisfactions lists the options in display order.
var Satisfactions = []Satisfaction{VerySatisfied, Satisfied, Dissatisfied, VeryDissatisfied}

var satisfactionAliases = map[string]Satisfaction{
	"verysatisfied":    VerySatisfied,
	"satisfied":        Satisfied,
	"dissatisfied":     Dissatisfied,
	"verydissatisfied": VeryDissatisfied,
}

// ParseSatisfaction accepts a display label or a Go-style alias.
func ParseSatisfaction(s string) (Satisfaction, bool) {
	for _, v := range Satisfactions {
		if string(v) == s {
			return v, true
		}
	}
	if v, ok := satisfactionAliases[alias(s)]; ok {
		return v, true
	}
	return "", false
}

/*──────────────────────────── internet usage ───────────────────────────────*/

// Usage is one tag of the internet-usage checkbox group.
type Usage string

const (
	UsageWork      Usage = "trabalho"
	UsageGaming    Usage = "jogos online"
	UsageStudy     Usage = "estudos"
	UsageStreaming Usage = "filmes e series"
	UsageMobile    Usage = "celular"
	UsageTV        Usage = "televisão"
)

// Usages lists the tags in display order.
var Usages = []Usage{UsageWork, UsageGaming, UsageStudy, UsageStreaming, UsageMobile, UsageTV}

var usageAliases = map[string]Usage{
	"work":         UsageWork,
	"onlinegaming": UsageGaming,
	"study":        UsageStudy,
	"streaming":    UsageStreaming,
	"mobile":       UsageMobile,
	"tv":           UsageTV,
}

// ParseUsage accepts a display label or a Go-style alias.
func ParseUsage(s string) (Usage, bool) {
	for _, v := range Usages {
		if string(v) == s {
			return v, true
		}
	}
	if v, ok := usageAliases[alias(s)]; ok {
		return v, true
	}
	return "", false
}

/*──────────────────────────── proposal interest ────────────────────────────*/

// Interest records whether the respondent wants a commercial proposal.
type Interest string

const (
	Interested    Interest = "Sim, tenho interesse"
	NotInterested Interest = "Não tenho interesse"
)

// Interests lists the options in display order.
var Interests = []Interest{Interested, NotInterested}

// ParseInterest accepts a display label or a Go-style alias.
func ParseInterest(s string) (Interest, bool) {
	switch {
	case s == string(Interested) || alias(s) == "interested":
		return Interested, true
	case s == string(NotInterested) || alias(s) == "notinterested":
		return NotInterested, true
	default:
		return "", false
	}
}

// alias folds "Very_Satisfied", "online-gaming", and "TV" alike.
func alias(s string) string {
	r := strings.NewReplacer("_", "", "-", "", " ", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(s)))
}
