package documents

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFInfo is what we learn about a PDF before sending it anywhere.
type PDFInfo struct {
	Pages int
	Bytes int
}

// Inspect validates the PDF structure and counts its pages.
func Inspect(data []byte) (PDFInfo, error) {
	if len(data) == 0 {
		return PDFInfo{}, ErrEmptyDocument
	}
	if DetectDocumentType(data) != "pdf" {
		return PDFInfo{}, ErrNotPDF
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	pageCount, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return PDFInfo{}, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	return PDFInfo{Pages: pageCount, Bytes: len(data)}, nil
}

// Text is the plain text of a PDF, one entry per page that produced text.
type Text struct {
	Pages     []string
	PageCount int
}

// String joins pages with page markers so the model can cite where things came from.
func (t Text) String() string {
	var sb strings.Builder
	for i, p := range t.Pages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(p)
	}
	return sb.String()
}

// Truncate caps the joined text at maxChars, keeping whole pages where possible.
// When even the first page is too long it is cut mid-page.
func (t Text) Truncate(maxChars int) string {
	s := t.String()
	if maxChars <= 0 || len(s) <= maxChars {
		return s
	}
	n := 0
	for i, p := range t.Pages {
		end := n + len(p)
		if i > 0 {
			end += len("\n\n")
		}
		if end > maxChars {
			break
		}
		n = end
	}
	if n == 0 {
		n = maxChars
	}
	return strings.ToValidUTF8(s[:n], "") + "\n…(truncated)"
}

// ExtractText pulls plain text out of every page. Pages that fail to decode are skipped.
func ExtractText(data []byte) (text Text, err error) {
	if len(data) == 0 {
		return Text{}, ErrEmptyDocument
	}
	if DetectDocumentType(data) != "pdf" {
		return Text{}, ErrNotPDF
	}

	// ledongthuc/pdf panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			text = Text{}
			err = fmt.Errorf("%w: reader panic: %v", ErrNotPDF, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Text{}, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}

	n := r.NumPage()
	text.PageCount = n
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		content = strings.TrimSpace(content)
		if content == "" {
			continue
		}
		text.Pages = append(text.Pages, fmt.Sprintf("--- Page %d ---\n%s", i, content))
	}

	if len(text.Pages) == 0 {
		return text, ErrNoText
	}
	return text, nil
}
