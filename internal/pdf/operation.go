// Package pdf describes the document operations the toolbox offers and applies
// them through an external PDF engine. Callers only see byte slices.
package pdf

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotSupported is returned for operations the engine cannot perform.
	ErrNotSupported = errors.New("operation not implemented")
	// ErrInvalidOperation is returned for unknown kinds or bad parameters.
	ErrInvalidOperation = errors.New("invalid operation")
)

// MaxInputs caps the number of documents a single operation accepts.
const MaxInputs = 20

// Kind names an operation on the wire.
type Kind string

const (
	KindMerge           Kind = "merge"
	KindRotate          Kind = "rotate"
	KindCompress        Kind = "compress"
	KindExtractPages    Kind = "extract_pages"
	KindRemovePages     Kind = "remove_pages"
	KindProtect         Kind = "protect"
	KindGrayscale       Kind = "grayscale"
	KindExtractText     Kind = "extract_text"
	KindConvertDocument Kind = "convert_document"
	KindToImages        Kind = "pdf_to_images"
)

// Operation is one of the concrete operation types in this package.
type Operation interface {
	Kind() Kind
	// Inputs reports the accepted number of input documents, never more
	// than MaxInputs.
	Inputs() (min, max int)
	validate() error
}

// Merge concatenates all inputs in order.
type Merge struct{}

// Rotate turns every page clockwise by Degrees, a multiple of 90.
type Rotate struct {
	Degrees int `json:"degrees"`
}

// Compress rewrites the document with optimised object streams.
type Compress struct{}

// ExtractPages keeps only the listed 1-based pages.
type ExtractPages struct {
	Pages []int `json:"pages"`
}

// RemovePages drops the listed 1-based pages.
type RemovePages struct {
	Pages []int `json:"pages"`
}

// Protect encrypts the document with AES-256.
type Protect struct {
	UserPassword  string `json:"userPassword"`
	OwnerPassword string `json:"ownerPassword"`
}

// Grayscale converts page content to grayscale.
type Grayscale struct{}

// ExtractText returns the document text.
type ExtractText struct{}

// ConvertDocument converts an office document to PDF.
type ConvertDocument struct {
	From string `json:"from"`
}

// ToImages renders every page as an image.
type ToImages struct {
	Format string `json:"format"`
}

func (Merge) Kind() Kind           { return KindMerge }
func (Rotate) Kind() Kind          { return KindRotate }
func (Compress) Kind() Kind        { return KindCompress }
func (ExtractPages) Kind() Kind    { return KindExtractPages }
func (RemovePages) Kind() Kind     { return KindRemovePages }
func (Protect) Kind() Kind         { return KindProtect }
func (Grayscale) Kind() Kind       { return KindGrayscale }
func (ExtractText) Kind() Kind     { return KindExtractText }
func (ConvertDocument) Kind() Kind { return KindConvertDocument }
func (ToImages) Kind() Kind        { return KindToImages }

func (Merge) Inputs() (int, int)           { return 2, MaxInputs }
func (Rotate) Inputs() (int, int)          { return 1, 1 }
func (Compress) Inputs() (int, int)        { return 1, 1 }
func (ExtractPages) Inputs() (int, int)    { return 1, 1 }
func (RemovePages) Inputs() (int, int)     { return 1, 1 }
func (Protect) Inputs() (int, int)         { return 1, 1 }
func (Grayscale) Inputs() (int, int)       { return 1, 1 }
func (ExtractText) Inputs() (int, int)     { return 1, 1 }
func (ConvertDocument) Inputs() (int, int) { return 1, 1 }
func (ToImages) Inputs() (int, int)        { return 1, 1 }

func (Merge) validate() error    { return nil }
func (Compress) validate() error { return nil }

func (o Rotate) validate() error {
	if o.Degrees%90 != 0 || normalizeDegrees(o.Degrees) == 0 {
		return fmt.Errorf("%w: degrees must be 90, 180 or 270", ErrInvalidOperation)
	}
	return nil
}

func (o ExtractPages) validate() error { return validatePages(o.Pages) }
func (o RemovePages) validate() error  { return validatePages(o.Pages) }

func (o Protect) validate() error {
	if o.UserPassword == "" && o.OwnerPassword == "" {
		return fmt.Errorf("%w: a password is required", ErrInvalidOperation)
	}
	return nil
}

func (Grayscale) validate() error       { return nil }
func (ExtractText) validate() error     { return nil }
func (ConvertDocument) validate() error { return nil }
func (ToImages) validate() error        { return nil }

func validatePages(pages []int) error {
	if len(pages) == 0 {
		return fmt.Errorf("%w: at least one page is required", ErrInvalidOperation)
	}
	for _, p := range pages {
		if p < 1 {
			return fmt.Errorf("%w: page numbers start at 1, got %d", ErrInvalidOperation, p)
		}
	}
	return nil
}

// Validate checks the operation parameters and the number of inputs.
func Validate(op Operation, inputs int) error {
	if op == nil {
		return fmt.Errorf("%w: missing operation", ErrInvalidOperation)
	}
	if err := op.validate(); err != nil {
		return err
	}
	lo, hi := op.Inputs()
	if inputs < lo || inputs > hi {
		if hi == lo {
			return fmt.Errorf("%w: %s takes exactly %d file(s), got %d", ErrInvalidOperation, op.Kind(), lo, inputs)
		}
		return fmt.Errorf("%w: %s takes between %d and %d files, got %d", ErrInvalidOperation, op.Kind(), lo, hi, inputs)
	}
	return nil
}

// Decode parses a JSON object of the form {"kind": "...", ...params}.
func Decode(data []byte) (Operation, error) {
	var head struct {
		Kind Kind `json:"kind"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOperation, err)
	}

	var op Operation
	switch head.Kind {
	case KindMerge:
		op = &Merge{}
	case KindRotate:
		op = &Rotate{}
	case KindCompress:
		op = &Compress{}
	case KindExtractPages:
		op = &ExtractPages{}
	case KindRemovePages:
		op = &RemovePages{}
	case KindProtect:
		op = &Protect{}
	case KindGrayscale:
		op = &Grayscale{}
	case KindExtractText:
		op = &ExtractText{}
	case KindConvertDocument:
		op = &ConvertDocument{}
	case KindToImages:
		op = &ToImages{}
	case "":
		return nil, fmt.Errorf("%w: missing kind", ErrInvalidOperation)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidOperation, head.Kind)
	}

	if err := json.Unmarshal(data, op); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOperation, err)
	}
	return deref(op), nil
}

// deref returns the value form so callers can switch on concrete types.
func deref(op Operation) Operation {
	switch o := op.(type) {
	case *Merge:
		return *o
	case *Rotate:
		return *o
	case *Compress:
		return *o
	case *ExtractPages:
		return *o
	case *RemovePages:
		return *o
	case *Protect:
		return *o
	case *Grayscale:
		return *o
	case *ExtractText:
		return *o
	case *ConvertDocument:
		return *o
	case *ToImages:
		return *o
	}
	return op
}
