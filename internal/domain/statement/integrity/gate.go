// Package integrity validates that an input document can be read, and
// decrypted when needed, before any extraction work starts.
package integrity

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/richardlehane/mscfb"
	"github.com/xuri/excelize/v2"
)

// Format is the container type sniffed from the file.
type Format string

const (
	FormatPDF   Format = "pdf"
	FormatExcel Format = "excel"
	FormatText  Format = "text"
)

var (
	pdfMagic = []byte("%PDF-")
	zipMagic = []byte("PK\x03\x04")
	cfbMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

const sniffSize = 8 << 10

// Report describes a document that passed the gate.
type Report struct {
	// Path is the file downstream stages should read. For a decrypted PDF
	// it points at a temporary copy.
	Path      string
	Format    Format
	PageCount int
	Encrypted bool
	// Password is kept for formats whose readers decrypt on open.
	Password string
	cleanup  func()
}

// Close removes temporary files created by the gate.
func (r *Report) Close() {
	if r != nil && r.cleanup != nil {
		r.cleanup()
		r.cleanup = nil
	}
}

// Gate runs the integrity checks.
type Gate struct {
	tempDir string
	logger  *slog.Logger
}

// NewGate creates a gate writing decrypted copies under tempDir ("" means
// the OS default).
func NewGate(tempDir string, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{tempDir: tempDir, logger: logger}
}

// Check verifies existence, size, structure and decryptability, in that
// order.
func (g *Gate) Check(path, password string) (*Report, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &IntegrityError{Reason: ReasonMissing, Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &IntegrityError{Reason: ReasonMissing, Path: path, Err: errors.New("path is a directory")}
	}
	if info.Size() == 0 {
		return nil, &IntegrityError{Reason: ReasonEmpty, Path: path}
	}

	head, err := readHead(path)
	if err != nil {
		return nil, &IntegrityError{Reason: ReasonCorrupt, Path: path, Err: err}
	}

	switch {
	case bytes.HasPrefix(head, pdfMagic):
		return g.checkPDF(path, password)
	case bytes.HasPrefix(head, zipMagic):
		return g.checkExcel(path, password, false)
	case bytes.HasPrefix(head, cfbMagic):
		encrypted, err := encryptedWorkbook(path)
		if err != nil {
			return nil, &IntegrityError{Reason: ReasonCorrupt, Path: path, Err: err}
		}
		if !encrypted {
			return nil, &IntegrityError{Reason: ReasonUnsupported, Path: path, Err: errors.New("legacy binary workbook")}
		}
		return g.checkExcel(path, password, true)
	default:
		return g.checkText(path, head)
	}
}

func readHead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, sniffSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	return buf[:n], nil
}

func pdfConfig(password string) *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	conf.UserPW = password
	conf.OwnerPW = password
	return conf
}

func isPasswordError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "password") || strings.Contains(msg, "encrypt")
}

func (g *Gate) checkPDF(path, password string) (*Report, error) {
	conf := pdfConfig(password)
	if err := api.ValidateFile(path, conf); err != nil {
		if isPasswordError(err) {
			if password == "" {
				return nil, &PasswordRequiredError{Path: path}
			}
			return nil, &IntegrityError{Reason: ReasonDecrypt, Path: path, Err: err}
		}
		return nil, &IntegrityError{Reason: ReasonCorrupt, Path: path, Err: err}
	}

	report := &Report{Path: path, Format: FormatPDF}
	if password != "" {
		decrypted, cleanup, err := g.decryptPDF(path, conf)
		switch {
		case err == nil:
			report.Path = decrypted
			report.Encrypted = true
			report.cleanup = cleanup
		case strings.Contains(strings.ToLower(err.Error()), "not encrypted"):
			// A password for a plain document is ignored.
		default:
			return nil, &IntegrityError{Reason: ReasonDecrypt, Path: path, Err: err}
		}
	}

	count, err := api.PageCountFile(report.Path)
	if err != nil {
		report.Close()
		return nil, &IntegrityError{Reason: ReasonCorrupt, Path: path, Err: err}
	}
	report.PageCount = count

	g.logger.Debug("pdf passed integrity gate",
		slog.String("path", path),
		slog.Int("pages", count),
		slog.Bool("decrypted", report.Encrypted))
	return report, nil
}

func (g *Gate) decryptPDF(path string, conf *model.Configuration) (string, func(), error) {
	dir, err := os.MkdirTemp(g.tempDir, "statement-decrypt-*")
	if err != nil {
		return "", nil, fmt.Errorf("create temp dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	out := filepath.Join(dir, "decrypted.pdf")
	if err := api.DecryptFile(path, out, conf); err != nil {
		cleanup()
		return "", nil, err
	}
	return out, cleanup, nil
}

// encryptedWorkbook reports whether a compound file wraps an encrypted
// OOXML package rather than a legacy .xls stream.
func encryptedWorkbook(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	doc, err := mscfb.New(f)
	if err != nil {
		return false, err
	}
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if entry.Name == "EncryptionInfo" {
			return true, nil
		}
	}
	return false, nil
}

func (g *Gate) checkExcel(path, password string, encrypted bool) (*Report, error) {
	if encrypted && password == "" {
		return nil, &PasswordRequiredError{Path: path}
	}
	f, err := excelize.OpenFile(path, excelize.Options{Password: password})
	if err != nil {
		if errors.Is(err, excelize.ErrWorkbookPassword) || encrypted {
			if password == "" {
				return nil, &PasswordRequiredError{Path: path}
			}
			return nil, &IntegrityError{Reason: ReasonDecrypt, Path: path, Err: err}
		}
		return nil, &IntegrityError{Reason: ReasonUnsupported, Path: path, Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &IntegrityError{Reason: ReasonEmpty, Path: path, Err: errors.New("workbook has no sheets")}
	}
	return &Report{
		Path:      path,
		Format:    FormatExcel,
		PageCount: len(sheets),
		Encrypted: encrypted,
		Password:  password,
	}, nil
}

func (g *Gate) checkText(path string, head []byte) (*Report, error) {
	if bytes.IndexByte(head, 0) >= 0 {
		return nil, &IntegrityError{Reason: ReasonUnsupported, Path: path, Err: errors.New("binary content")}
	}
	if len(bytes.TrimSpace(head)) == 0 {
		return nil, &IntegrityError{Reason: ReasonEmpty, Path: path, Err: errors.New("only whitespace")}
	}
	return &Report{Path: path, Format: FormatText, PageCount: 1}, nil
}
