package normalizer

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/artifact"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/enrich"
)

func TestDefaultScorer(t *testing.T) {
	scorer := NewDefaultScorer()

	tests := []struct {
		name     string
		input    string
		wantKind string
		wantName string
		wantConf float64
	}{
		{
			name:     "upi merchant",
			input:    "UPI/SWIGGY/swiggy@okaxis/412345678901",
			wantKind: KindStore,
			wantName: "Swiggy",
			wantConf: 0.7,
		},
		{
			name:     "neft person",
			input:    "NEFT-HDFC0001234-RAVI KUMAR SHARMA-N123456789",
			wantKind: KindPerson,
			wantName: "Ravi Kumar Sharma",
			wantConf: 25.0 / 30.0,
		},
		{
			name:     "masked card number is dropped from the fragment",
			input:    "POS 416021XXXXXX1234 AMAZON RETAIL",
			wantKind: KindStore,
			wantName: "Amazon",
			wantConf: 1,
		},
		{
			name:     "generic store word keeps the fragment name",
			input:    "IMPS-SHREE GANESH TRADERS-412345678901",
			wantKind: KindStore,
			wantName: "Shree Ganesh Traders",
			wantConf: 1,
		},
		{
			name:  "only anchors",
			input: "NEFT TRANSFER 1234567890",
		},
		{
			name:  "empty",
			input: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := scorer.Extract(tt.input)
			assert.Equal(t, tt.wantKind, e.Kind)
			assert.Equal(t, tt.wantName, e.Name)
			assert.InDelta(t, tt.wantConf, e.Confidence, 1e-9)
		})
	}
}

func TestSurvivors(t *testing.T) {
	tests := []struct {
		fragment string
		want     string
	}{
		{"PAYMENT TO RAVI KUMAR", "RAVI KUMAR"},
		{"UPI BRANCH REMARKS", ""},
		{"HDFC0001234", ""},
		{"ravi.k@okhdfcbank", ""},
		{"416021XXXXXX1234 AMAZON RETAIL", "AMAZON RETAIL"},
		{"SBIN ANITA RAO 412345678901", "ANITA RAO"},
	}
	for _, tt := range tests {
		t.Run(tt.fragment, func(t *testing.T) {
			assert.Equal(t, tt.want, survivors(tt.fragment))
		})
	}
}

func TestStoreKeywordOutranksEqualLengthFragment(t *testing.T) {
	scorer := NewDefaultScorer()

	for _, input := range []string{"JOHN SMITH / ACME STORE", "ACME STORE / JOHN SMITH"} {
		e := scorer.Extract(input)
		assert.Equal(t, KindStore, e.Kind, input)
		assert.Equal(t, "Acme Store", e.Name, input)
		assert.Empty(t, e.Person())
		assert.Equal(t, "Acme Store", e.Store())
	}
}

func TestFragments(t *testing.T) {
	assert.Equal(t,
		[]string{"UPI", "RAVI KUMAR", "ravi@oksbi", "Rent"},
		Fragments("UPI/RAVI KUMAR - ravi@oksbi:  Rent"))
	assert.Equal(t, []string{"A", "B"}, Fragments("A    B"))
	assert.Empty(t, Fragments("   "))
}

func TestBankOverrides(t *testing.T) {
	registry := NewRegistry(NewDefaultScorer())

	tests := []struct {
		name     string
		bank     string
		input    string
		wantKind string
		wantName string
		wantConf float64
	}{
		{
			name:     "hdfc upi person",
			bank:     "HDFC",
			input:    "UPI-RAVI KUMAR-ravi.k@okhdfcbank-HDFC0001234-412345678901-NOTE",
			wantKind: KindPerson,
			wantName: "Ravi Kumar",
			wantConf: overrideConfidence,
		},
		{
			name:     "hdfc upi store",
			bank:     "hdfc",
			input:    "UPI-ZOMATO LTD-zomato@hdfcbank-HDFC0000001-412345678901-ORDER",
			wantKind: KindStore,
			wantName: "Zomato",
			wantConf: overrideConfidence,
		},
		{
			name:     "hdfc falls back to default scorer",
			bank:     "HDFC",
			input:    "POS 416021XXXXXX1234 AMAZON RETAIL",
			wantKind: KindStore,
			wantName: "Amazon",
			wantConf: 1,
		},
		{
			name:     "icici imps",
			bank:     "ICICI",
			input:    "MMT/IMPS/412345678901/ANITA RAO/HDFC",
			wantKind: KindPerson,
			wantName: "Anita Rao",
			wantConf: overrideConfidence,
		},
		{
			name:     "sbi upi",
			bank:     "SBI",
			input:    "TO TRANSFER-UPI/DR/412345678901/RAVI KUMAR/SBIN/ravi@oksbi/UPI",
			wantKind: KindPerson,
			wantName: "Ravi Kumar",
			wantConf: overrideConfidence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := registry.ExtractorFor(tt.bank).Extract(tt.input)
			assert.Equal(t, tt.wantKind, e.Kind)
			assert.Equal(t, tt.wantName, e.Name)
			assert.InDelta(t, tt.wantConf, e.Confidence, 1e-9)
		})
	}

	t.Run("unmapped codes use the default scorer", func(t *testing.T) {
		_, ok := registry.ExtractorFor(artifact.UnknownBank).(*DefaultScorer)
		assert.True(t, ok)
		_, ok = registry.ExtractorFor("HSBC").(*DefaultScorer)
		assert.True(t, ok)
		_, ok = registry.ExtractorFor("icici").(*BankOverride)
		assert.True(t, ok)
	})
}

func TestCommodityClassifier(t *testing.T) {
	c := NewCommodityClassifier()

	tests := []struct {
		input string
		want  string
	}{
		{"UPI/SWIGGY/swiggy@okaxis/412345678901", CommodityFood},
		{"UBER EATS ORDER 1234", CommodityFood},
		{"UBER TRIP HELP.UBER.COM", CommodityTransport},
		{"SALARY FOR MARCH", CommodityIncome},
		{"ATM WDL MG ROAD", CommodityCash},
		{"NEFT-RAVI KUMAR", CommodityTransfer},
		{"UPI/BIGBASKET/payments", CommodityGroceries},
		{"SALVADOR", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Classify(tt.input), tt.input)
	}
}

func TestCleanDescription(t *testing.T) {
	assert.Equal(t, "UPI/SWIGGY /xyz", CleanDescription("  UPI/SWIGGY   /xyz  - "))
	assert.Equal(t, "Salary Credit", CleanDescription("Salary\n Credit"))
	assert.Equal(t, "", CleanDescription(" - "))
}

func TestTitleCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"RAVI KUMAR", "Ravi Kumar"},
		{"  anita   rao ", "Anita Rao"},
		{"ÉCOLE SÃO PAULO", "École São Paulo"},
		{"ŁÓDŹ ÜBER", "Łódź Über"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, titleCase(tt.in))
		})
	}
}

type stubEnricher struct {
	fields *enrich.ParsedFields
	calls  []string
}

func (s *stubEnricher) TryEnrich(_ context.Context, text string) (*enrich.ParsedFields, bool) {
	s.calls = append(s.calls, text)
	return s.fields, s.fields != nil
}

func TestEngineNormalize(t *testing.T) {
	txs := []artifact.FinalTransaction{
		{
			Description: "UPI-RAVI KUMAR-ravi.k@okhdfcbank-HDFC0001234-412345678901-RENT  ",
			Debit:       decimal.RequireFromString("15000"),
			BankCode:    "HDFC",
		},
		{
			Description: "CHQ 000123",
			Debit:       decimal.RequireFromString("250"),
			BankCode:    "HDFC",
		},
	}

	stub := &stubEnricher{fields: &enrich.ParsedFields{Store: "Acme Clinic", Commodity: "health"}}
	engine := NewEngine(nil).WithEnricher(stub, 0)

	stats := engine.Normalize(context.Background(), txs)

	assert.Equal(t, "UPI-RAVI KUMAR-ravi.k@okhdfcbank-HDFC0001234-412345678901-RENT", txs[0].Description)
	assert.Equal(t, "Ravi Kumar", txs[0].Person)
	assert.Empty(t, txs[0].Store)
	assert.Equal(t, overrideConfidence, txs[0].EntityConfidence)
	assert.Equal(t, CommodityRent, txs[0].Commodity)

	assert.Equal(t, "Acme Clinic", txs[1].Store)
	assert.Empty(t, txs[1].Person)
	assert.Equal(t, "health", txs[1].Commodity)

	require.Len(t, stub.calls, 1)
	assert.Equal(t, "CHQ 000123", stub.calls[0])
	assert.Equal(t, Stats{Entities: 1, Commodities: 1, Enriched: 1}, stats)
}

func TestEngineOverridesTakePrecedence(t *testing.T) {
	tests := []struct {
		name          string
		description   string
		override      *enrich.ParsedFields
		wantStore     string
		wantPerson    string
		wantCommodity string
		wantOverrides int
	}{
		{
			name:          "replaces a confident person",
			description:   "UPI/RAMESH KUMAR SHARMA/PAYMENT",
			override:      &enrich.ParsedFields{Store: "Amazon Retail"},
			wantStore:     "Amazon Retail",
			wantCommodity: CommodityTransfer,
			wantOverrides: 1,
		},
		{
			name:          "commodity only keeps the extracted entity",
			description:   "UPI-RAVI KUMAR-ravi.k@okhdfcbank-HDFC0001234-412345678901-RENT",
			override:      &enrich.ParsedFields{Commodity: "housing"},
			wantPerson:    "Ravi Kumar",
			wantCommodity: "housing",
			wantOverrides: 1,
		},
		{
			name:          "no correction stored",
			description:   "UPI-RAVI KUMAR-ravi.k@okhdfcbank-HDFC0001234-412345678901-RENT",
			wantPerson:    "Ravi Kumar",
			wantCommodity: CommodityRent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			overrides := &stubEnricher{fields: tt.override}
			gemini := &stubEnricher{fields: &enrich.ParsedFields{Store: "Model Guess"}}
			engine := NewEngine(nil).WithOverrides(overrides).WithEnricher(gemini, 0)

			txs := []artifact.FinalTransaction{{Description: tt.description, BankCode: "HDFC"}}
			stats := engine.Normalize(context.Background(), txs)

			assert.Equal(t, tt.wantStore, txs[0].Store)
			assert.Equal(t, tt.wantPerson, txs[0].Person)
			assert.Equal(t, tt.wantCommodity, txs[0].Commodity)
			assert.Equal(t, tt.wantOverrides, stats.Overridden)
			assert.Equal(t, []string{tt.description}, overrides.calls)
			assert.Empty(t, gemini.calls, "confident or corrected rows never reach the model")
		})
	}
}

func TestEngineWithoutEnricher(t *testing.T) {
	txs := []artifact.FinalTransaction{{Description: "CHQ 000123"}}
	stats := NewEngine(nil).Normalize(context.Background(), txs)

	assert.Empty(t, txs[0].Store)
	assert.Empty(t, txs[0].Person)
	assert.Zero(t, stats.Enriched)
}

func TestNormalizeIsIdempotentOnEntities(t *testing.T) {
	engine := NewEngine(nil)
	in := []artifact.FinalTransaction{{Description: "UPI/SWIGGY/swiggy@okaxis/412345678901"}}
	again := []artifact.FinalTransaction{{Description: "UPI/SWIGGY/swiggy@okaxis/412345678901"}}

	engine.Normalize(context.Background(), in)
	engine.Normalize(context.Background(), again)
	assert.Equal(t, in, again)
}
