package parser

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docinsight/internal/doctree"
)

// DefaultMaxPages is the page ceiling applied when Options leaves it unset.
const DefaultMaxPages = 50

var (
	ErrNotPDF        = errors.New("not a pdf")
	ErrTooManyPages  = errors.New("page count exceeds limit")
	ErrEmptyDocument = errors.New("document has no pages or text")
	ErrCorrupt       = errors.New("corrupt document")
	ErrUnsupported   = errors.New("unsupported file extension")
)

// Input error kinds, reported in skipped-document records.
const (
	KindNotPDF       = "not_pdf"
	KindTooManyPages = "too_many_pages"
	KindEmpty        = "empty"
	KindCorrupt      = "corrupt"
	KindUnsupported  = "unsupported"
	KindRead         = "read"
)

// InputError marks a document that cannot be processed. The batch skips it and continues.
type InputError struct {
	Document string
	Kind     string
	Err      error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Document, e.Kind, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// NewInputError wraps err, deriving the kind from the sentinel it carries.
func NewInputError(document string, err error) *InputError {
	var ie *InputError
	if errors.As(err, &ie) {
		return ie
	}
	kind := KindRead
	switch {
	case errors.Is(err, ErrNotPDF):
		kind = KindNotPDF
	case errors.Is(err, ErrTooManyPages):
		kind = KindTooManyPages
	case errors.Is(err, ErrEmptyDocument):
		kind = KindEmpty
	case errors.Is(err, ErrCorrupt):
		kind = KindCorrupt
	case errors.Is(err, ErrUnsupported):
		kind = KindUnsupported
	}
	return &InputError{Document: document, Kind: kind, Err: err}
}

// Parser converts raw document bytes into positioned text blocks.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.Document, error)
}

// Options tunes the parsers.
type Options struct {
	MaxPages          int
	FallbackPdftotext bool
}

func (o Options) maxPages() int {
	if o.MaxPages <= 0 {
		return DefaultMaxPages
	}
	return o.MaxPages
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".pdf":      true,
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return &PDFParser{MaxPages: opts.maxPages(), FallbackPdftotext: opts.FallbackPdftotext}, nil
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// Decode picks a parser for filename and parses r. Every failure comes back as *InputError.
func Decode(r io.Reader, filename string, opts Options) (*doctree.Document, error) {
	name := filepath.Base(filename)
	p, err := ForFile(name, opts)
	if err != nil {
		return nil, NewInputError(name, err)
	}
	doc, err := p.Parse(r, name)
	if err != nil {
		return nil, NewInputError(name, err)
	}
	doc.ID = name
	if len(doc.Blocks) == 0 {
		return nil, NewInputError(name, fmt.Errorf("%w: no extractable text", ErrEmptyDocument))
	}
	return doc, nil
}
