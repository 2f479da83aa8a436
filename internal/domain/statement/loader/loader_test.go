package loader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/artifact"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/integrity"
	"github.com/FACorreiaa/statement-extractor/internal/domain/statement/testutil"
)

func words(p *artifact.PageArtifact) []string {
	out := make([]string, 0, len(p.Words))
	for _, w := range p.Words {
		out = append(out, w.Text)
	}
	return out
}

func TestPDFAdapter(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WritePDF(t, dir, "stmt.pdf", [][]testutil.Text{
		testutil.Row(100,
			testutil.Cell{X: 40, S: "01/04/2024"},
			testutil.Cell{X: 120, S: "Salary Credit"},
			testutil.Cell{X: 400, S: "50000.00"},
		),
		testutil.Row(100, testutil.Cell{X: 40, S: "Page 2"}),
		testutil.Row(100, testutil.Cell{X: 40, S: "Page 3"}),
	})

	res, err := New(nil).Load(&integrity.Report{Path: path, Format: integrity.FormatPDF}, artifact.FlavorTextNative, 0)
	require.NoError(t, err)
	require.Len(t, res.Pages, 3)
	assert.Equal(t, 3, res.TotalPages)
	assert.False(t, res.Truncated)

	first := res.Pages[0]
	assert.Equal(t, []string{"01/04/2024", "Salary", "Credit", "50000.00"}, words(first))
	for _, w := range first.Words {
		assert.Equal(t, 1, w.Page)
		assert.Equal(t, 1.0, w.Confidence)
		assert.InDelta(t, 91, w.Box.Y0, 0.01)
		assert.InDelta(t, 100, w.Box.Y1, 0.01)
	}

	date := first.Words[0].Box
	assert.InDelta(t, 40, date.X0, 0.01)
	assert.InDelta(t, 40+10*testutil.FontSize*testutil.GlyphWidth/1000, date.X1, 0.01)

	assert.InDelta(t, 120, first.Words[1].Box.X0, 0.01)
	assert.Less(t, first.Words[1].Box.X1, first.Words[2].Box.X0)
	assert.Equal(t, 2, res.Pages[1].Words[0].Page)
}

func TestPDFAdapterPageCap(t *testing.T) {
	dir := t.TempDir()
	var pages [][]testutil.Text
	for i := 0; i < 5; i++ {
		pages = append(pages, testutil.Row(100, testutil.Cell{X: 40, S: "row"}))
	}
	path := testutil.WritePDF(t, dir, "long.pdf", pages)

	res, err := New(nil).WithMaxPages(2).Load(&integrity.Report{Path: path, Format: integrity.FormatPDF}, artifact.FlavorTextNative, 0)
	require.NoError(t, err)
	assert.Len(t, res.Pages, 2)
	assert.Equal(t, 5, res.TotalPages)
	assert.True(t, res.Truncated)
	assert.Equal(t, 1, res.Pages[0].PageNo)
	assert.Equal(t, 2, res.Pages[1].PageNo)

	res, err = New(nil).WithMaxPages(2).Load(&integrity.Report{Path: path, Format: integrity.FormatPDF}, artifact.FlavorTextNative, 3)
	require.NoError(t, err)
	assert.Len(t, res.Pages, 3)
}

func TestPDFAdapterTolerant(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WritePDF(t, dir, "mixed.pdf", [][]testutil.Text{
		testutil.Row(100, testutil.Cell{X: 40, S: "HDFC BANK"}),
		nil,
	})

	res, err := New(nil).Load(&integrity.Report{Path: path, Format: integrity.FormatPDF}, artifact.FlavorMixed, 0)
	require.NoError(t, err)
	require.Len(t, res.Pages, 1)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 2, res.Skipped[0].Page)
	assert.ErrorIs(t, res.Skipped[0], errNoTextLayer)
	assert.Equal(t, tolerantConfidence, res.Pages[0].Words[0].Confidence)
}

func TestExcelAdapter(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteXLSX(t, dir, "stmt.xlsx", []string{"April", "May"}, [][][]any{
		{
			{"Date", "Description", "Debit", "Credit", "Balance"},
			{"01/04/2024", "Salary Credit", "", "50000.00", "50000.00"},
		},
		{
			{"Date", "Description", "Debit", "Credit", "Balance"},
		},
	})

	res, err := New(nil).Load(&integrity.Report{Path: path, Format: integrity.FormatExcel}, artifact.FlavorTabular, 0)
	require.NoError(t, err)
	require.Len(t, res.Pages, 2)

	page := res.Pages[0]
	assert.Equal(t, []string{"Date", "Description", "Debit", "Credit", "Balance", "01/04/2024", "Salary Credit", "50000.00", "50000.00"}, words(page))

	salary := page.Words[6]
	assert.Equal(t, 1*CellWidth, salary.Box.X0)
	assert.Equal(t, 1*CellHeight, salary.Box.Y0)
	credit := page.Words[7]
	assert.Equal(t, 3*CellWidth, credit.Box.X0)

	require.Len(t, page.Tables, 1)
	assert.Equal(t, "Salary Credit", page.Tables[0][1][1])
	assert.Equal(t, 2, res.Pages[1].PageNo)
}

func TestTextAdapterDelimited(t *testing.T) {
	dir := t.TempDir()
	body := "Date;Description;Debit;Credit;Balance\n" +
		"01/04/2024;Salary Credit;;50000.00;50000.00\n" +
		"02/04/2024;\"Grocery; Store\";1200.00;;48800.00\n"
	path := testutil.WriteText(t, dir, "stmt.csv", body)

	res, err := New(nil).Load(&integrity.Report{Path: path, Format: integrity.FormatText}, artifact.FlavorPlainText, 0)
	require.NoError(t, err)
	require.Len(t, res.Pages, 1)

	page := res.Pages[0]
	require.Len(t, page.Tables, 1)
	assert.Len(t, page.Tables[0], 3)
	assert.Equal(t, "Grocery; Store", page.Tables[0][2][1])
	assert.Equal(t, "48800.00", page.Tables[0][2][4])
}

func TestTextAdapterFixedWidth(t *testing.T) {
	dir := t.TempDir()
	body := "Date        Narration            Withdrawal   Deposit   Balance\n" +
		"01/04/2024  Salary Credit                     50000.00  50000.00\n" +
		"02/04/2024  Grocery Store        1200.00                48800.00\n"
	path := testutil.WriteText(t, dir, "stmt.txt", body)

	res, err := New(nil).Load(&integrity.Report{Path: path, Format: integrity.FormatText}, artifact.FlavorPlainText, 0)
	require.NoError(t, err)

	rows := res.Pages[0].Tables[0]
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Date", "Narration", "Withdrawal", "Deposit", "Balance"}, rows[0])
	assert.Equal(t, []string{"01/04/2024", "Salary Credit", "", "50000.00", "50000.00"}, rows[1])
	assert.Equal(t, []string{"02/04/2024", "Grocery Store", "1200.00", "", "48800.00"}, rows[2])

	x0 := func(text string, nth int) float64 {
		for _, w := range res.Pages[0].Words {
			if w.Text == text {
				if nth == 0 {
					return w.Box.X0
				}
				nth--
			}
		}
		t.Fatalf("word %q not found", text)
		return 0
	}
	assert.Equal(t, x0("Deposit", 0), x0("50000.00", 0), "deposit sits under its header")
	assert.Equal(t, x0("Balance", 0), x0("50000.00", 1))
	assert.Equal(t, 46*CharWidth, x0("Deposit", 0))
}

func TestReadFixedWidth_LongLine(t *testing.T) {
	_, err := readFixedWidth(strings.Repeat("x", maxLineBytes+1))
	require.Error(t, err)

	rows, err := readFixedWidth("a  b\n\n   c\n")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []field{{text: "a", offset: 0}, {text: "b", offset: 3}}, rows[0])
	assert.Empty(t, rows[1])
	assert.Equal(t, []field{{text: "c", offset: 3}}, rows[2])
}

func TestDecodeTextLatin1(t *testing.T) {
	got, err := decodeText([]byte("Caf\xe9 Lisboa"))
	require.NoError(t, err)
	assert.Equal(t, "Café Lisboa", got)

	got, err = decodeText([]byte("\xef\xbb\xbfDate"))
	require.NoError(t, err)
	assert.Equal(t, "Date", got)
}

func TestSniffDelimiter(t *testing.T) {
	d, ok := sniffDelimiter("a,b,c\n1,2,3\n")
	require.True(t, ok)
	assert.Equal(t, ',', d)

	d, ok = sniffDelimiter("a\tb\n1\t2\n")
	require.True(t, ok)
	assert.Equal(t, '\t', d)

	_, ok = sniffDelimiter("just some words\nand more words\n")
	assert.False(t, ok)
}
