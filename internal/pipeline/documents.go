package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/varunidealabs/cash-flow-analyzer/internal/llm"
	"github.com/varunidealabs/cash-flow-analyzer/internal/logger"
)

// Supported document content types.
const (
	ContentTypePDF  = "application/pdf"
	ContentTypeText = "text/plain"
)

// ErrUnsupportedDocument is returned for uploads that are neither PDF nor
// UTF-8 text.
var ErrUnsupportedDocument = errors.New("unsupported document type")

// DetectContentType sniffs document bytes. PDFs are recognised by their
// %PDF- signature; anything else must be valid UTF-8 without NUL bytes.
func DetectContentType(data []byte) (string, error) {
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return ContentTypePDF, nil
	}

	sniffed := strings.ToLower(strings.Split(http.DetectContentType(data), ";")[0])
	if sniffed == ContentTypeText && utf8.Valid(data) && bytes.IndexByte(data, 0) == -1 {
		return ContentTypeText, nil
	}

	return "", fmt.Errorf("%w: detected %q", ErrUnsupportedDocument, sniffed)
}

// PDFTextExtractor reads the text layer of a PDF.
type PDFTextExtractor struct{}

// ExtractText returns the plain text of every page. Scanned PDFs without a
// text layer yield an empty string.
func (PDFTextExtractor) ExtractText(ctx context.Context, data []byte) (text string, err error) {
	// The pdf reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDFTextExtractor: malformed PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("PDFTextExtractor: open: %w", err)
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("PDFTextExtractor: read text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("PDFTextExtractor: copy text: %w", err)
	}
	return buf.String(), nil
}

// PlainTextExtractor passes UTF-8 text documents through unchanged.
type PlainTextExtractor struct{}

func (PlainTextExtractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errors.New("PlainTextExtractor: document is not valid UTF-8")
	}
	return string(data), nil
}

// DocumentTranscriber asks a multimodal model for a document's text.
type DocumentTranscriber interface {
	TranscribeDocument(ctx context.Context, data []byte, mimeType string) (string, error)
}

// GeminiTextExtractor transcribes PDFs through Gemini. It is used for
// scanned statements that have no text layer.
type GeminiTextExtractor struct {
	transcriber DocumentTranscriber
}

// NewGeminiTextExtractor creates a new GeminiTextExtractor.
func NewGeminiTextExtractor(t DocumentTranscriber) *GeminiTextExtractor {
	return &GeminiTextExtractor{transcriber: t}
}

func (e *GeminiTextExtractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	text, err := e.transcriber.TranscribeDocument(ctx, data, ContentTypePDF)
	if err != nil {
		return "", fmt.Errorf("GeminiTextExtractor: %w", err)
	}
	return text, nil
}

// AutoTextExtractor dispatches on the sniffed content type. PDFs whose text
// layer is empty fall back to Fallback when one is configured.
type AutoTextExtractor struct {
	PDF      DocumentTextExtractor
	Text     DocumentTextExtractor
	Fallback DocumentTextExtractor
}

// NewAutoTextExtractor wires the library-backed extractors. fallback may be nil.
func NewAutoTextExtractor(fallback DocumentTextExtractor) *AutoTextExtractor {
	return &AutoTextExtractor{
		PDF:      PDFTextExtractor{},
		Text:     PlainTextExtractor{},
		Fallback: fallback,
	}
}

// NewDocumentExtractor returns an AutoTextExtractor that transcribes scanned
// PDFs through client when it supports document input.
func NewDocumentExtractor(client llm.Client) *AutoTextExtractor {
	var fallback DocumentTextExtractor
	if t, ok := client.(DocumentTranscriber); ok {
		fallback = NewGeminiTextExtractor(t)
	}
	return NewAutoTextExtractor(fallback)
}

func (e *AutoTextExtractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	contentType, err := DetectContentType(data)
	if err != nil {
		return "", err
	}

	if contentType == ContentTypeText {
		return e.Text.ExtractText(ctx, data)
	}

	text, err := e.PDF.ExtractText(ctx, data)
	if err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}
	if e.Fallback == nil {
		if err != nil {
			return "", err
		}
		return "", errors.New("AutoTextExtractor: PDF has no text layer")
	}

	log := logger.FromContext(ctx)
	log.Warn().Err(err).Msg("PDF text layer unusable, transcribing with model")
	return e.Fallback.ExtractText(ctx, data)
}
