package columns

import (
	"regexp"
	"strings"

	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/artifact"
	"github.com/FACorreiaa/statement-extractor/pkg/keywords"
)

// Vocabulary maps each role to the header phrases that announce it.
type Vocabulary map[artifact.Role][]string

// Header phrases per role (English, Portuguese, Spanish and the usual
// Indian and UK bank variants).
var defaultVocabulary = Vocabulary{
	artifact.RoleDate: {
		"date", "txn date", "tran date", "trans date", "transaction date", "posting date", "post date",
		"data", "data mov", "data movimento", "fecha", "dt",
	},
	artifact.RoleDescription: {
		"description", "narration", "particulars", "details", "transaction details", "remarks",
		"transaction remarks", "merchant", "payee", "descrição", "descricao", "descripción", "descripcion",
		"concepto", "movimento",
	},
	artifact.RoleDebit: {
		"debit", "debits", "withdrawal", "withdrawals", "withdrawal amt", "withdrawal amount", "debit amount",
		"dr amount", "paid out", "money out", "payments", "débito", "debito", "cargo", "dr",
	},
	artifact.RoleCredit: {
		"credit", "credits", "deposit", "deposits", "deposit amt", "deposit amount", "credit amount",
		"cr amount", "paid in", "money in", "receipts", "crédito", "credito", "abono", "cr",
	},
	artifact.RoleBalance: {
		"balance", "closing balance", "running balance", "balance amt", "available balance", "saldo",
		"saldo disponível", "saldo contabilístico",
	},
	artifact.RoleAmount: {
		"amount", "transaction amount", "txn amount", "amt", "valor", "importe", "montante",
	},
}

// Phrases that name a column with no role. Checked before role phrases so
// "Value Date" and "Dr/Cr" never claim DATE or DEBIT.
var otherPhrases = []string{
	"value date", "value dt", "chq no", "chq./ref.no", "chq/ref no", "cheque no", "cheque number",
	"ref no", "ref no./cheque no", "reference", "sr no", "s no", "sl no", "serial no", "dr/cr", "cr/dr",
	"branch code", "instrument id", "mode",
}

// Role precedence when a cell contains phrases from several roles.
var rolePrecedence = []artifact.Role{
	artifact.RoleDebit, artifact.RoleCredit, artifact.RoleBalance,
	artifact.RoleDate, artifact.RoleAmount, artifact.RoleDescription,
}

var punct = regexp.MustCompile(`[^\p{L}\p{N}/ ]+`)

// normalize lower-cases s, drops punctuation except '/', and collapses spaces.
func normalize(s string) string {
	s = strings.ToLower(s)
	s = punct.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// withOverrides returns a copy of v where each overridden role's phrase list
// is replaced by the profile's list.
func (v Vocabulary) withOverrides(overrides map[artifact.Role][]string) Vocabulary {
	out := make(Vocabulary, len(v))
	for role, phrases := range v {
		out[role] = phrases
	}
	for role, phrases := range overrides {
		if role == artifact.RoleOther || len(phrases) == 0 {
			continue
		}
		out[role] = phrases
	}
	return out
}

// lexicon is a Vocabulary compiled for lookups: a table of whole-cell
// phrases and a keyword matcher for phrases embedded in a longer cell.
type lexicon struct {
	exactRoles map[string]artifact.Role
	phrases    *keywords.Matcher
}

func (v Vocabulary) compile() *lexicon {
	l := &lexicon{exactRoles: make(map[string]artifact.Role)}
	for _, p := range otherPhrases {
		l.exactRoles[normalize(p)] = artifact.RoleOther
	}

	var entries []keywords.Entry
	for rank, role := range rolePrecedence {
		for _, p := range v[role] {
			np := normalize(p)
			if np == "" {
				continue
			}
			if _, ok := l.exactRoles[np]; !ok {
				l.exactRoles[np] = role
			}
			// Two-letter abbreviations only count as whole cells.
			if len(np) <= 2 {
				continue
			}
			entries = append(entries, keywords.Entry{
				Keyword: np,
				Value:   string(role),
				Weight:  len(rolePrecedence) - rank,
			})
		}
	}
	l.phrases = keywords.NewMatcher(entries)
	return l
}

// exact reports the role whose phrase list contains cell verbatim.
func (l *lexicon) exact(cell string) (artifact.Role, bool) {
	n := normalize(cell)
	if n == "" {
		return "", false
	}
	role, ok := l.exactRoles[n]
	return role, ok
}

// classify resolves a cell by exact phrase first, then by whole-word
// containment of a role phrase. Role precedence breaks ties.
func (l *lexicon) classify(cell string) artifact.Role {
	if role, ok := l.exact(cell); ok {
		return role
	}
	padded := " " + strings.ToUpper(normalize(cell)) + " "
	for _, hit := range l.phrases.Match(padded) {
		if strings.Contains(padded, " "+hit.Keyword+" ") {
			return artifact.Role(hit.Value)
		}
	}
	return artifact.RoleOther
}
