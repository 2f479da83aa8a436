// Package normalizer cleans transaction descriptions and extracts the store
// or person behind each transaction, plus a coarse commodity tag.
package normalizer

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/bankdetect"
	"github.com/FACorreiaa/statement-extractor/pkg/keywords"
)

// Entity kinds.
const (
	KindStore  = "store"
	KindPerson = "person"
)

// Entity is the counterparty extracted from a description.
type Entity struct {
	Kind       string
	Name       string
	Confidence float64
	// Fragment is the description piece the name came from.
	Fragment string
}

// Store returns the name when the entity is a store.
func (e Entity) Store() string {
	if e.Kind == KindStore {
		return e.Name
	}
	return ""
}

// Person returns the name when the entity is a person.
func (e Entity) Person() string {
	if e.Kind == KindPerson {
		return e.Name
	}
	return ""
}

// EntityExtractor extracts the counterparty from a raw description.
type EntityExtractor interface {
	Extract(description string) Entity
}

const (
	multiWordBonus = 10
	storeBonus     = 15
	scoreScale     = 30.0
	minLetters     = 3
)

var (
	fragmentSplit = regexp.MustCompile(`\s*[/:\-]\s*|\s{2,}`)

	ifscCode      = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
	upiHandle     = regexp.MustCompile(`^[A-Z0-9._\-]+@[A-Z0-9.]+$`)
	longNumber    = regexp.MustCompile(`\d{10,}`)
	maskedAccount = regexp.MustCompile(`(?:[X*]{2,}\d{2,})|(?:\d{2,}[X*]{2,})`)
	serialNumber  = regexp.MustCompile(`^[A-Z]{0,4}\d[\d\s.]*$`)
)

var junkWords = map[string]bool{
	"UPI": true, "NEFT": true, "IMPS": true, "RTGS": true, "ACH": true, "NACH": true,
	"ECS": true, "MMT": true, "POS": true, "ATM": true, "ATW": true, "NWD": true,
	"BRANCH": true, "REMARKS": true, "REMARK": true, "TRANSFER": true, "TRF": true,
	"TO": true, "BY": true, "FROM": true, "CR": true, "DR": true, "REF": true,
	"REFNO": true, "TXN": true, "PAYMENT": true, "PAY": true, "PAID": true,
	"VIA": true, "ONLINE": true, "INB": true, "IB": true, "MOB": true, "BIL": true,
	"BILLPAY": true, "DEBIT": true, "CREDIT": true, "CARD": true, "VISA": true,
	"MASTERCARD": true, "RUPAY": true, "CHQ": true, "CHEQUE": true, "CLG": true,
	"INR": true, "GBP": true, "USD": true, "NA": true, "NULL": true, "NO": true,
	"COLLECT": true, "REQUEST": true, "SENT": true, "RECEIVED": true, "FT": true,
	"BANK": true,
}

// bankWords holds detection codes and IFSC prefixes.
var bankWords = func() map[string]bool {
	m := map[string]bool{
		"HDFC": true, "ICIC": true, "SBIN": true, "UTIB": true, "KKBK": true,
		"YESB": true, "PUNB": true, "BARB": true, "CNRB": true, "IDIB": true,
		"INDB": true, "IDFB": true, "HSBC": true, "BARC": true, "PAYTM": true,
	}
	for _, code := range bankdetect.BankCodes() {
		m[code] = true
	}
	return m
}()

// DefaultScorer scores description fragments and picks the best candidate
// name. It is the fallback for every bank.
type DefaultScorer struct {
	stores *keywords.Matcher
}

// NewDefaultScorer builds a scorer over the default store keywords.
func NewDefaultScorer() *DefaultScorer {
	return &DefaultScorer{stores: keywords.NewMatcher(storeKeywords())}
}

// WithStores adds store keywords.
func (s *DefaultScorer) WithStores(entries ...keywords.Entry) *DefaultScorer {
	s.stores = keywords.NewMatcher(append(storeKeywords(), entries...))
	return s
}

type scored struct {
	fragment string
	score    int
	store    *keywords.Hit
}

func (s *DefaultScorer) Extract(description string) Entity {
	var best *scored
	for _, frag := range Fragments(description) {
		kept := survivors(frag)
		if kept == "" {
			continue
		}
		sc := s.score(kept)
		if sc == nil {
			continue
		}
		if best == nil || sc.score > best.score {
			best = sc
		}
	}
	if best == nil {
		return Entity{}
	}
	return s.entityFrom(best)
}

func (s *DefaultScorer) score(frag string) *scored {
	letters := 0
	for _, r := range frag {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if letters < minLetters {
		return nil
	}
	sc := &scored{fragment: frag, score: letters}
	if len(strings.Fields(frag)) > 1 {
		sc.score += multiWordBonus
	}
	if hits := s.stores.MatchWords(frag); len(hits) > 0 {
		sc.score += storeBonus
		sc.store = &hits[0]
	}
	return sc
}

func (s *DefaultScorer) entityFrom(sc *scored) Entity {
	conf := float64(sc.score) / scoreScale
	if conf > 1 {
		conf = 1
	}
	e := Entity{Kind: KindPerson, Name: titleCase(cleanFragment(sc.fragment)), Confidence: conf, Fragment: sc.fragment}
	if sc.store != nil {
		e.Kind = KindStore
		if sc.store.Value != "" {
			e.Name = sc.store.Value
		}
	}
	return e
}

// classifyName turns an already isolated name into an entity.
func (s *DefaultScorer) classifyName(name string, confidence float64) Entity {
	name = cleanFragment(name)
	e := Entity{Kind: KindPerson, Name: titleCase(name), Confidence: confidence, Fragment: name}
	if hits := s.stores.MatchWords(name); len(hits) > 0 {
		e.Kind = KindStore
		if hits[0].Value != "" {
			e.Name = hits[0].Value
		}
	}
	return e
}

// Fragments splits a description on slash, hyphen, colon and runs of two
// or more spaces.
func Fragments(description string) []string {
	parts := fragmentSplit.Split(strings.TrimSpace(description), -1)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// survivors drops negative-anchor tokens from a fragment. An empty result
// means the fragment carries no name.
func survivors(frag string) string {
	words := strings.Fields(frag)
	kept := words[:0]
	for _, w := range words {
		u := strings.Trim(strings.ToUpper(w), ".,*#()")
		if u == "" || junkWords[u] || bankWords[u] || isAnchorToken(u) {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

func isAnchorToken(u string) bool {
	return ifscCode.MatchString(u) ||
		upiHandle.MatchString(u) ||
		strings.Contains(u, "@") ||
		longNumber.MatchString(u) ||
		maskedAccount.MatchString(u) ||
		serialNumber.MatchString(u)
}

// storeKeywords returns the default store vocabulary. Brand keywords carry
// the canonical name; generic trade words leave Value empty.
func storeKeywords() []keywords.Entry {
	brands := []keywords.Entry{
		{Keyword: "AMAZON", Value: "Amazon"},
		{Keyword: "AMZN", Value: "Amazon"},
		{Keyword: "FLIPKART", Value: "Flipkart"},
		{Keyword: "MYNTRA", Value: "Myntra"},
		{Keyword: "SWIGGY", Value: "Swiggy"},
		{Keyword: "ZOMATO", Value: "Zomato"},
		{Keyword: "BIGBASKET", Value: "BigBasket"},
		{Keyword: "BLINKIT", Value: "Blinkit"},
		{Keyword: "DMART", Value: "DMart"},
		{Keyword: "UBER EATS", Value: "Uber Eats"},
		{Keyword: "UBER", Value: "Uber"},
		{Keyword: "OLA", Value: "Ola"},
		{Keyword: "RAPIDO", Value: "Rapido"},
		{Keyword: "IRCTC", Value: "IRCTC"},
		{Keyword: "NETFLIX", Value: "Netflix"},
		{Keyword: "SPOTIFY", Value: "Spotify"},
		{Keyword: "STARBUCKS", Value: "Starbucks"},
		{Keyword: "MCDONALDS", Value: "McDonald's"},
		{Keyword: "MCDONALD", Value: "McDonald's"},
		{Keyword: "DOMINOS", Value: "Domino's"},
		{Keyword: "KFC", Value: "KFC"},
		{Keyword: "TESCO", Value: "Tesco"},
		{Keyword: "SAINSBURYS", Value: "Sainsbury's"},
		{Keyword: "LIDL", Value: "Lidl"},
		{Keyword: "ALDI", Value: "Aldi"},
		{Keyword: "IKEA", Value: "IKEA"},
		{Keyword: "AIRTEL", Value: "Airtel"},
		{Keyword: "JIO", Value: "Jio"},
		{Keyword: "VODAFONE", Value: "Vodafone"},
		{Keyword: "PAYPAL", Value: "PayPal"},
		{Keyword: "APOLLO PHARMACY", Value: "Apollo Pharmacy"},
	}
	generic := []string{
		"STORE", "STORES", "MART", "SUPERMARKET", "MARKET", "RESTAURANT", "CAFE",
		"HOTEL", "PHARMACY", "MEDICAL", "ENTERPRISES", "ENTERPRISE", "TRADERS",
		"TRADING", "PVT", "PRIVATE", "LTD", "LIMITED", "LLP", "SERVICES",
		"SOLUTIONS", "SHOP", "FUELS", "PETROLEUM", "FILLING STATION", "AGENCIES",
		"INDUSTRIES", "FOODS", "BAKERY", "HOSPITAL", "CLINIC", "TECHNOLOGIES",
	}
	entries := make([]keywords.Entry, 0, len(brands)+len(generic))
	for _, b := range brands {
		b.Weight = 2
		entries = append(entries, b)
	}
	for _, g := range generic {
		entries = append(entries, keywords.Entry{Keyword: g, Weight: 1})
	}
	return entries
}
