package stamp

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firmadocs/signing-portal/signing-portal-backend/pkg/qr"
)

func onePagePDF(t *testing.T) []byte {
	t.Helper()
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(40, 10, "original document")
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.Bytes()
}

func testInput() Input {
	return Input{
		SignerName:      "Jane Doe",
		Timestamp:       "January 2, 2026 15:04 UTC",
		CanonicalRecord: "Test University | Jane Doe | Professor | January 2, 2026 15:04 UTC",
		SignatureB64:    strings.Repeat("QmFzZTY0U2ln", 30),
		ReferenceURL:    "https://example.org/view-signed?id=8d7f0e9a-1111-2222-3333-444455556666",
	}
}

func TestStampRejectsNonPDF(t *testing.T) {
	s := NewStamper(qr.NewEncoder(256))

	out, err := s.Stamp([]byte("this is not a pdf"), testInput())
	assert.ErrorIs(t, err, ErrNotAPDF)
	assert.Nil(t, out)

	// Header check is on the exact 5-byte magic.
	out, err = s.Stamp([]byte("%PDF"), testInput())
	assert.ErrorIs(t, err, ErrNotAPDF)
	assert.Nil(t, out)
}

func TestStampAppendsEvidencePage(t *testing.T) {
	s := NewStamper(qr.NewEncoder(256))
	original := onePagePDF(t)

	stamped, err := s.Stamp(original, testInput())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(stamped, []byte("%PDF-")))

	count, err := api.PageCount(bytes.NewReader(stamped), model.NewDefaultConfiguration())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestEvidencePageContent(t *testing.T) {
	s := NewStamper(qr.NewEncoder(256))
	in := testInput()

	// A4 in points.
	page, err := s.renderEvidencePage(595.28, 841.89, in)
	require.NoError(t, err)

	// The page is written uncompressed, so the text shows in the raw stream.
	assert.True(t, bytes.Contains(page, []byte("Signed by: Jane Doe")))
	assert.True(t, bytes.Contains(page, []byte("Date: "+in.Timestamp)))
	assert.True(t, bytes.Contains(page, []byte("Canonical Record:")))
	assert.True(t, bytes.Contains(page, []byte("Digital Signature:")))
	assert.True(t, bytes.Contains(page, []byte(in.SignatureB64[:40])))
}

func TestSplitIntoLines(t *testing.T) {
	assert.Nil(t, SplitIntoLines("", 10))
	assert.Nil(t, SplitIntoLines("abc", 0))
	assert.Equal(t, []string{"abc"}, SplitIntoLines("abc", 10))
	assert.Equal(t, []string{"abcd", "efgh", "i"}, SplitIntoLines("abcdefghi", 4))
	assert.Equal(t, []string{"abcd", "efgh"}, SplitIntoLines("abcdefgh", 4))

	joined := strings.Join(SplitIntoLines(strings.Repeat("x", 345), 64), "")
	assert.Equal(t, strings.Repeat("x", 345), joined)
}

func TestClampToWidth(t *testing.T) {
	// One unit per byte.
	measure := func(s string) float64 { return float64(len(s)) }

	assert.Equal(t, "abcde", clampToWidth("abcde", 10, measure))
	assert.Equal(t, "abcde", clampToWidth("abcdefgh", 5, measure))
	assert.Equal(t, "", clampToWidth("abc", 0, measure))
}

func TestClampToWidthMultibyte(t *testing.T) {
	measure := func(s string) float64 { return float64(len(s)) }

	// "José" is 5 bytes; a byte-wise cut at 4 would split the é.
	got := clampToWidth("José Pérez", 5, measure)
	assert.Equal(t, "José", got)
	assert.True(t, utf8.ValidString(got))

	got = clampToWidth("José Pérez", 4, measure)
	assert.Equal(t, "Jos", got)
	assert.True(t, utf8.ValidString(got))
}
