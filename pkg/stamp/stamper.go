// Package stamp appends a visible evidence page to a PDF document: a QR
// code for the public verification reference, the signer identity and
// timestamp, the canonical record, and the Base64 signature text.
package stamp

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"firmadocs/signing-portal/signing-portal-backend/pkg/qr"
)

// pdfMagic is the 5-byte header every PDF starts with.
var pdfMagic = []byte("%PDF-")

// ErrNotAPDF is returned when the input bytes are not a PDF document. The
// check happens before any rendering work.
var ErrNotAPDF = errors.New("not a PDF document")

// Input carries everything the evidence page displays.
type Input struct {
	SignerName      string
	Timestamp       string
	CanonicalRecord string
	SignatureB64    string
	ReferenceURL    string
}

// Stamper renders and appends evidence pages.
type Stamper struct {
	encoder qr.Encoder
}

func NewStamper(encoder qr.Encoder) *Stamper {
	return &Stamper{encoder: encoder}
}

// Stamp returns the original document with one evidence page appended, sized
// to the document's first-page dimensions. The stamped bytes become the new
// document of record; nothing is persisted here.
func (s *Stamper) Stamp(original []byte, in Input) ([]byte, error) {
	if !bytes.HasPrefix(original, pdfMagic) {
		return nil, ErrNotAPDF
	}

	conf := model.NewDefaultConfiguration()
	dims, err := api.PageDims(bytes.NewReader(original), conf)
	if err != nil {
		return nil, fmt.Errorf("reading page dimensions: %w", err)
	}
	if len(dims) == 0 {
		return nil, fmt.Errorf("document has no pages")
	}

	page, err := s.renderEvidencePage(dims[0].Width, dims[0].Height, in)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	readers := []io.ReadSeeker{bytes.NewReader(original), bytes.NewReader(page)}
	if err := api.MergeRaw(readers, &out, false, conf); err != nil {
		return nil, fmt.Errorf("appending evidence page: %w", err)
	}
	return out.Bytes(), nil
}

// renderEvidencePage builds the single evidence page as its own one-page PDF.
func (s *Stamper) renderEvidencePage(width, height float64, in Input) ([]byte, error) {
	const margin = 40.0

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: width, Ht: height},
	})
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, margin)
	// Uncompressed content keeps the small evidence page inspectable.
	pdf.SetCompression(false)
	pdf.AddPage()

	avail := width - 2*margin
	y := margin

	// QR code encoding the verification URL.
	png, err := s.encoder.Encode(in.ReferenceURL)
	if err != nil {
		return nil, fmt.Errorf("encoding QR: %w", err)
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("reference-qr", opts, bytes.NewReader(png))
	const qrSize = 120.0
	pdf.ImageOptions("reference-qr", margin, y, qrSize, qrSize, false, opts, 0, "")
	y += qrSize + 24

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(margin, y)
	pdf.CellFormat(avail, 16, "Signed by: "+in.SignerName, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.SetX(margin)
	pdf.CellFormat(avail, 14, "Date: "+in.Timestamp, "", 1, "L", false, 0, "")

	// Display-only nonce; plays no part in verification.
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetX(margin)
	pdf.CellFormat(avail, 12, "Ref: "+uuid.New().String(), "", 1, "L", false, 0, "")

	pdf.Ln(8)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetX(margin)
	pdf.CellFormat(avail, 13, "Canonical Record:", "", 1, "L", false, 0, "")

	// The record stays on one line, clamped to the page width.
	pdf.SetFont("Helvetica", "", 10)
	record := clampToWidth(in.CanonicalRecord, avail, pdf.GetStringWidth)
	pdf.SetX(margin)
	pdf.CellFormat(avail, 13, record, "", 1, "L", false, 0, "")

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetX(margin)
	pdf.CellFormat(avail, 13, "Digital Signature:", "", 1, "L", false, 0, "")

	pdf.SetFont("Courier", "", 9)
	charWidth := pdf.GetStringWidth("A")
	perLine := int(avail / charWidth)
	for _, line := range SplitIntoLines(in.SignatureB64, perLine) {
		pdf.SetX(margin)
		pdf.CellFormat(avail, 11, line, "", 1, "L", false, 0, "")
	}

	if pdf.Err() {
		return nil, fmt.Errorf("rendering evidence page: %v", pdf.Error())
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering evidence page: %w", err)
	}
	return buf.Bytes(), nil
}
