package normalizer

import (
	"sort"

	"github.com/FACorreiaa/statement-extractor/pkg/keywords"
)

// Commodity tags.
const (
	CommodityFood          = "food"
	CommodityGroceries     = "groceries"
	CommodityShopping      = "shopping"
	CommodityTransport     = "transport"
	CommodityFuel          = "fuel"
	CommodityUtilities     = "utilities"
	CommodityEntertainment = "entertainment"
	CommodityHealth        = "health"
	CommodityFinance       = "finance"
	CommodityIncome        = "income"
	CommodityCash          = "cash"
	CommodityRent          = "rent"
	CommodityTransfer      = "transfer"
)

var commodityKeywords = map[string][]string{
	CommodityFood:          {"SWIGGY", "ZOMATO", "RESTAURANT", "CAFE", "STARBUCKS", "MCDONALD", "MCDONALDS", "DOMINOS", "KFC", "PIZZA", "BAKERY", "FOODS", "UBER EATS", "DELIVEROO"},
	CommodityGroceries:     {"BIGBASKET", "BLINKIT", "DMART", "GROCERY", "GROCERIES", "SUPERMARKET", "TESCO", "SAINSBURYS", "LIDL", "ALDI", "KIRANA"},
	CommodityShopping:      {"AMAZON", "AMZN", "FLIPKART", "MYNTRA", "IKEA", "SHOPPING", "STORE", "STORES", "MART"},
	CommodityTransport:     {"UBER", "OLA", "RAPIDO", "IRCTC", "METRO", "RAILWAY", "AIRLINES", "TFL", "TRAINLINE", "TAXI"},
	CommodityFuel:          {"PETROL", "PETROLEUM", "FUEL", "FUELS", "HPCL", "BPCL", "IOCL", "SHELL", "FILLING STATION"},
	CommodityUtilities:     {"ELECTRICITY", "WATER", "GAS", "AIRTEL", "JIO", "VODAFONE", "BROADBAND", "RECHARGE", "BESCOM", "DTH"},
	CommodityEntertainment: {"NETFLIX", "SPOTIFY", "HOTSTAR", "PRIME VIDEO", "BOOKMYSHOW", "CINEMA", "STEAM"},
	CommodityHealth:        {"PHARMACY", "MEDICAL", "HOSPITAL", "CLINIC", "APOLLO", "DIAGNOSTICS", "CHEMIST"},
	CommodityFinance:       {"EMI", "LOAN", "INSURANCE", "PREMIUM", "MUTUAL FUND", "SIP", "INTEREST", "CHARGES", "GST", "FEE"},
	CommodityIncome:        {"SALARY", "SAL", "PAYROLL", "DIVIDEND", "REFUND", "CASHBACK"},
	CommodityCash:          {"ATM", "ATW", "NWD", "CASH WITHDRAWAL", "CASH DEPOSIT", "CASH"},
	CommodityRent:          {"RENT", "LEASE", "MAINTENANCE"},
	CommodityTransfer:      {"NEFT", "IMPS", "RTGS", "UPI", "TRANSFER", "TRF"},
}

// CommodityClassifier maps description keywords to a coarse tag. Longer
// keywords win, so "UBER EATS" beats "UBER".
type CommodityClassifier struct {
	matcher *keywords.Matcher
}

// NewCommodityClassifier builds the default classifier.
func NewCommodityClassifier() *CommodityClassifier {
	tags := make([]string, 0, len(commodityKeywords))
	for tag := range commodityKeywords {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	var entries []keywords.Entry
	for _, tag := range tags {
		for _, w := range commodityKeywords[tag] {
			entries = append(entries, keywords.Entry{Keyword: w, Value: tag, Weight: weightFor(w, tag)})
		}
	}
	return &CommodityClassifier{matcher: keywords.NewMatcher(entries)}
}

// weightFor ranks by keyword length. Payment rails only decide the tag when
// nothing more specific matched.
func weightFor(keyword, tag string) int {
	w := len(keyword) * 10
	if tag == CommodityTransfer {
		w = len(keyword)
	}
	return w
}

// Classify returns the commodity tag for text, or "".
func (c *CommodityClassifier) Classify(text string) string {
	hits := c.matcher.MatchWords(text)
	if len(hits) == 0 {
		return ""
	}
	return hits[0].Value
}
