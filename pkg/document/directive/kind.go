package directive

import "strings"

type Kind int

const (
	KindUnknown Kind = iota
	KindCode
	KindNote
	KindTip
	KindWarning
	KindImportant
	KindCaution
	KindAttention
	KindChallenge
	KindCTA
	KindMath
	KindFigure
	KindDropdown
	KindGrid
	KindCard
)

var kindNames = map[Kind]string{
	KindUnknown:   "unknown",
	KindCode:      "code",
	KindNote:      "admonition-note",
	KindTip:       "admonition-tip",
	KindWarning:   "admonition-warning",
	KindImportant: "admonition-important",
	KindCaution:   "admonition-caution",
	KindAttention: "admonition-attention",
	KindChallenge: "admonition-challenge",
	KindCTA:       "admonition-cta",
	KindMath:      "math-block",
	KindFigure:    "figure",
	KindDropdown:  "dropdown",
	KindGrid:      "grid",
	KindCard:      "card",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// IsAdmonition reports whether k renders as a callout block.
// The unknown kind does, using the note style.
func (k Kind) IsAdmonition() bool {
	switch k {
	case KindNote, KindTip, KindWarning, KindImportant, KindCaution,
		KindAttention, KindChallenge, KindCTA, KindDropdown, KindUnknown:
		return true
	default:
		return false
	}
}

// Style is the admonition style suffix, for example "warning".
func (k Kind) Style() string {
	if k == KindUnknown || k == KindDropdown || !k.IsAdmonition() {
		return "note"
	}
	return strings.TrimPrefix(k.String(), "admonition-")
}

var defaultTitles = map[Kind]string{
	KindNote:      "Note",
	KindTip:       "Tip",
	KindWarning:   "Warning",
	KindImportant: "Important",
	KindCaution:   "Caution",
	KindAttention: "Attention",
	KindChallenge: "Challenge",
	KindCTA:       "Try it yourself",
	KindDropdown:  "Details",
}

// DefaultTitle returns the display title used when a directive has
// no argument.
func (k Kind) DefaultTitle() string {
	return defaultTitles[k]
}

var exactNames = map[string]Kind{
	"note":       KindNote,
	"tip":        KindTip,
	"warning":    KindWarning,
	"important":  KindImportant,
	"caution":    KindCaution,
	"attention":  KindAttention,
	"code":       KindCode,
	"code-block": KindCode,
	"code-cell":  KindCode,
	"sourcecode": KindCode,
	"math":       KindMath,
	"figure":     KindFigure,
	"cta":        KindCTA,
	"dropdown":   KindDropdown,
	"grid":       KindGrid,
	"card":       KindCard,
}

// prefixNames is checked in order after an exact match failed.
var prefixNames = []struct {
	prefix string
	kind   Kind
}{
	{"warn", KindWarning},
	{"tip", KindTip},
	{"not", KindNote},
	{"imp", KindImportant},
	{"caut", KindCaution},
	{"att", KindAttention},
}

const challengeArgument = "desafio"

// Classify maps a raw directive name to a Kind. The argument only
// matters for the generic "admonition" directive.
func Classify(name, argument string) Kind {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return KindUnknown
	}

	if name == "admonition" {
		if strings.EqualFold(strings.TrimSpace(argument), challengeArgument) {
			return KindChallenge
		}
		return KindNote
	}

	if kind, ok := exactNames[name]; ok {
		return kind
	}

	for _, p := range prefixNames {
		if strings.HasPrefix(name, p.prefix) {
			return p.kind
		}
	}

	return KindUnknown
}
