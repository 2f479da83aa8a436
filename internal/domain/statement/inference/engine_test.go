package inference

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/artifact"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func nd(s string) decimal.NullDecimal { return decimal.NewNullDecimal(d(s)) }

func TestInfer_SalaryThenGrocery(t *testing.T) {
	cands := []artifact.Candidate{
		{DateRaw: "01/04/2024", Description: "Salary Credit", Credit: nd("50000.00"), Balance: nd("50000.00")},
		{DateRaw: "02/04/2024", Description: "Grocery Store Purchase", Debit: nd("1200.00"), Balance: nd("48800.00")},
	}

	res := NewEngine().Infer(cands, OpeningBalance{}, Stamp{BankCode: "HDFC", AccountNumber: "123"})
	require.Len(t, res.Transactions, 2)

	first := res.Transactions[0]
	assert.True(t, first.Credit.Equal(d("50000")))
	assert.True(t, first.Debit.IsZero())
	assert.Equal(t, ExplicitConfidence, first.Confidence)
	assert.Equal(t, []string{ReasonExplicitCredit, ReasonKeywordCredit}, first.Reasons)
	assert.Equal(t, "2024-04-01", first.DateISO)
	assert.Equal(t, "HDFC", first.BankCode)
	assert.Equal(t, "123", first.AccountNumber)

	second := res.Transactions[1]
	assert.True(t, second.Debit.Equal(d("1200")))
	assert.True(t, second.Credit.IsZero())
	assert.Equal(t, DeltaConfidence, second.Confidence)
	assert.Equal(t, []string{ReasonDeltaNegative}, second.Reasons)
	assert.True(t, second.Amount().Equal(d("-1200")))
}

func TestInfer_Precedence(t *testing.T) {
	tests := []struct {
		name       string
		opening    OpeningBalance
		cand       artifact.Candidate
		wantDebit  string
		wantCredit string
		wantConf   float64
		wantReason []string
		wantNone   bool
	}{
		{
			name:       "delta beats a contradicting explicit column",
			opening:    OpeningBalance{Value: nd("1000")},
			cand:       artifact.Candidate{DateRaw: "01/04/2024", Description: "REFUND", Debit: nd("100"), Balance: nd("1100")},
			wantDebit:  "0",
			wantCredit: "100",
			wantConf:   DeltaConfidence,
			wantReason: []string{ReasonDeltaPositive},
		},
		{
			name:       "keywords never override the delta",
			opening:    OpeningBalance{Value: nd("1000")},
			cand:       artifact.Candidate{DateRaw: "01/04/2024", Description: "NEFT CR ACME", Balance: nd("900")},
			wantDebit:  "100",
			wantCredit: "0",
			wantConf:   DeltaConfidence,
			wantReason: []string{ReasonDeltaNegative, ReasonKeywordCredit},
		},
		{
			name:     "zero delta without explicit amount is discarded",
			opening:  OpeningBalance{Value: nd("1000")},
			cand:     artifact.Candidate{DateRaw: "01/04/2024", Description: "INFO", Balance: nd("1000.005")},
			wantNone: true,
		},
		{
			name:       "zero delta with explicit amounts falls back to the columns",
			opening:    OpeningBalance{Value: nd("1000")},
			cand:       artifact.Candidate{DateRaw: "01/04/2024", Description: "REVERSAL", Debit: nd("50"), Credit: nd("50"), Balance: nd("1000")},
			wantDebit:  "50",
			wantCredit: "50",
			wantConf:   ExplicitConfidence,
			wantReason: []string{ReasonDeltaZero, ReasonExplicitDebit, ReasonExplicitCredit},
		},
		{
			name:       "missing balance uses the explicit debit",
			opening:    OpeningBalance{Value: nd("1000")},
			cand:       artifact.Candidate{DateRaw: "01/04/2024", Description: "ATM DR", Debit: nd("20.00")},
			wantDebit:  "20",
			wantCredit: "0",
			wantConf:   ExplicitConfidence,
			wantReason: []string{ReasonExplicitDebit, ReasonKeywordDebit},
		},
		{
			name:       "signed amount column",
			cand:       artifact.Candidate{DateRaw: "01/04/2024", Description: "CARD", Amount: nd("-75.5")},
			wantDebit:  "75.5",
			wantCredit: "0",
			wantConf:   ExplicitConfidence,
			wantReason: []string{ReasonExplicitAmount},
		},
		{
			name:       "date and balance alone is a no-movement row",
			cand:       artifact.Candidate{DateRaw: "01/04/2024", Description: "INTEREST CAPITALISED", Balance: nd("10")},
			wantDebit:  "0",
			wantCredit: "0",
			wantConf:   NoMovementConfidence,
			wantReason: []string{ReasonNoMovement},
		},
		{
			name:     "nothing usable is dropped",
			cand:     artifact.Candidate{DateRaw: "01/04/2024", Description: "MEMO"},
			wantNone: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewEngine().Infer([]artifact.Candidate{tt.cand}, tt.opening, Stamp{})
			if tt.wantNone {
				assert.Empty(t, res.Transactions)
				return
			}
			require.Len(t, res.Transactions, 1)
			tx := res.Transactions[0]
			assert.True(t, tx.Debit.Equal(d(tt.wantDebit)), "debit %s", tx.Debit)
			assert.True(t, tx.Credit.Equal(d(tt.wantCredit)), "credit %s", tx.Credit)
			assert.Equal(t, tt.wantConf, tx.Confidence)
			assert.Equal(t, tt.wantReason, tx.Reasons)
		})
	}
}

func TestInfer_RunningBalanceUpdatesOnDiscard(t *testing.T) {
	cands := []artifact.Candidate{
		{DateRaw: "01/04/2024", Description: "A", Balance: nd("500")},
		{DateRaw: "02/04/2024", Description: "B", Balance: nd("500")},
		{DateRaw: "03/04/2024", Description: "C", Balance: nd("450")},
	}
	res := NewEngine().Infer(cands, OpeningBalance{}, Stamp{})

	require.Len(t, res.Transactions, 2)
	assert.Equal(t, []string{ReasonNoMovement}, res.Transactions[0].Reasons)
	assert.Equal(t, 1, res.Discarded)
	assert.True(t, res.Transactions[1].Debit.Equal(d("50")))
}

func TestInfer_Idempotent(t *testing.T) {
	cands := []artifact.Candidate{
		{DateRaw: "01/04/2024", Description: "X", Credit: nd("10"), Balance: nd("110")},
		{DateRaw: "02/04/2024", Description: "Y DR", Balance: nd("100")},
	}
	e := NewEngine()
	a := e.Infer(cands, OpeningBalance{Value: nd("100")}, Stamp{})
	b := e.Infer(cands, OpeningBalance{Value: nd("100")}, Stamp{})
	assert.Equal(t, a, b)
}

func pageWithLines(lines ...string) *artifact.PageArtifact {
	p := artifact.NewPage(1)
	var rows []artifact.Row
	for i, line := range lines {
		var words []artifact.WordArtifact
		x := 0.0
		for _, tok := range strings.Fields(line) {
			w := artifact.NewWord(tok, artifact.NewBBox(x, float64(i)*20, x+30, float64(i)*20+10), 1)
			p.AddWord(w)
			words = append(words, w)
			x += 40
		}
		rows = append(rows, artifact.Row{Words: words})
	}
	_ = p.SetRows(rows)
	return p
}

func TestDetectOpeningBalance(t *testing.T) {
	t.Run("summary table", func(t *testing.T) {
		page := pageWithLines(
			"STATEMENT SUMMARY",
			"Opening Balance Dr Count Cr Count Debits Credits Closing Bal",
			"10,000.00 5 3 2,000.00 3,000.00 11,000.00",
		)
		ob := DetectOpeningBalance([]*artifact.PageArtifact{page})
		require.True(t, ob.Value.Valid)
		assert.Equal(t, SourceSummary, ob.Source)
		require.NotNil(t, ob.Summary)
		assert.True(t, ob.Summary.Opening.Equal(d("10000")))
		assert.True(t, ob.Summary.Debits.Equal(d("2000")))
		assert.True(t, ob.Summary.Credits.Equal(d("3000")))
		assert.True(t, ob.Summary.Closing.Equal(d("11000")))
	})

	t.Run("label", func(t *testing.T) {
		page := pageWithLines("Account No 1234", "Opening Balance as on 01/04/2024 : ₹ 1,23,456.78")
		ob := DetectOpeningBalance([]*artifact.PageArtifact{page})
		assert.Equal(t, SourceLabel, ob.Source)
		assert.True(t, ob.Value.Decimal.Equal(d("123456.78")))
	})

	t.Run("brought forward overdrawn", func(t *testing.T) {
		page := pageWithLines("Balance brought forward 250.00 DR")
		ob := DetectOpeningBalance([]*artifact.PageArtifact{page})
		assert.True(t, ob.Value.Decimal.Equal(d("-250")))
	})

	t.Run("hint fallback", func(t *testing.T) {
		ob := DetectOpeningBalance([]*artifact.PageArtifact{pageWithLines("nothing here")})
		assert.False(t, ob.Value.Valid)
		ob = ob.WithHint(nd("42"))
		assert.Equal(t, SourceHint, ob.Source)
		assert.True(t, ob.Value.Decimal.Equal(d("42")))
	})
}

func TestKeywordReasons(t *testing.T) {
	tests := []struct {
		description string
		want        []string
	}{
		{"NEFT CR ACME", []string{ReasonKeywordCredit}},
		{"UPI/CR/412345678901/ANITA", []string{ReasonKeywordCredit}},
		{"card credit reversal", []string{ReasonKeywordCredit}},
		{"ATM DR 4411", []string{ReasonKeywordDebit}},
		{"DEBIT-CARD/CREDIT NOTE", []string{ReasonKeywordCredit, ReasonKeywordDebit}},
		{"ACCRUED INTEREST", nil},
		{"DREAM HOMES ADDRESS FIX", nil},
		{"CREDITOR PAYMENT", nil},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			assert.Equal(t, tt.want, keywordReasons(tt.description))
		})
	}
}
