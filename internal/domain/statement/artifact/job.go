package artifact

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// DocumentFlavor describes how a document's text can be obtained.
type DocumentFlavor string

const (
	FlavorTextNative DocumentFlavor = "text_native"
	FlavorScanned    DocumentFlavor = "scanned"
	FlavorMixed      DocumentFlavor = "mixed"
	FlavorTabular    DocumentFlavor = "tabular"
	FlavorPlainText  DocumentFlavor = "plain_text"
)

// Tolerant reports whether extraction should take the slower, lenient path.
func (f DocumentFlavor) Tolerant() bool {
	return f == FlavorMixed || f == FlavorScanned
}

// UnknownBank is the bank code used when detection is inconclusive.
const UnknownBank = "unknown"

// JobContext is the per-invocation state threaded through every stage.
type JobContext struct {
	StatementID   string
	SourcePath    string
	Password      string
	Pages         []*PageArtifact
	Flavor        DocumentFlavor
	BankCode      string
	AccountHolder string
	AccountNumber string
	Metadata      map[string]any
	Stats         map[string]float64
}

// NewJobContext starts a job for a single document.
func NewJobContext(path, password string) *JobContext {
	return &JobContext{
		StatementID: uuid.NewString(),
		SourcePath:  path,
		Password:    password,
		BankCode:    UnknownBank,
		Metadata:    make(map[string]any),
		Stats:       make(map[string]float64),
	}
}

// AddDiagnostic appends a non-fatal note to metadata["diagnostics"].
func (j *JobContext) AddDiagnostic(note string) {
	notes, _ := j.Metadata["diagnostics"].([]string)
	j.Metadata["diagnostics"] = append(notes, note)
}

// Diagnostics returns the notes recorded so far.
func (j *JobContext) Diagnostics() []string {
	notes, _ := j.Metadata["diagnostics"].([]string)
	return notes
}

// BankProfile is externally supplied keyword configuration for one bank.
type BankProfile struct {
	Code           string            `json:"code"`
	Keywords       []string          `json:"keywords"`
	HeaderKeywords []string          `json:"header_keywords,omitempty"`
	ColumnKeywords map[Role][]string `json:"column_keywords,omitempty"`
}

// LoadProfiles decodes a JSON array of bank profiles. Codes are upper-cased
// and profiles without a code or keywords are rejected.
func LoadProfiles(r io.Reader) ([]BankProfile, error) {
	var profiles []BankProfile
	if err := json.NewDecoder(r).Decode(&profiles); err != nil {
		return nil, fmt.Errorf("decode bank profiles: %w", err)
	}
	for i := range profiles {
		p := &profiles[i]
		p.Code = strings.ToUpper(strings.TrimSpace(p.Code))
		if p.Code == "" {
			return nil, fmt.Errorf("bank profile %d: missing code", i)
		}
		if len(p.Keywords) == 0 {
			return nil, fmt.Errorf("bank profile %s: no keywords", p.Code)
		}
		for role := range p.ColumnKeywords {
			if !role.Valid() {
				return nil, fmt.Errorf("bank profile %s: unknown column role %q", p.Code, role)
			}
		}
	}
	return profiles, nil
}

// FindProfile returns the profile with the given code.
func FindProfile(profiles []BankProfile, code string) (BankProfile, bool) {
	for _, p := range profiles {
		if strings.EqualFold(p.Code, code) {
			return p, true
		}
	}
	return BankProfile{}, false
}
