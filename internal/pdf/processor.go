package pdf

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Processor applies an operation to one or more PDF documents.
type Processor interface {
	Apply(op Operation, inputs [][]byte) ([]byte, error)
}

// Engine is a Processor backed by pdfcpu.
type Engine struct{}

// NewEngine creates a pdfcpu backed processor. pdfcpu is kept from creating a
// config directory under the user's home.
func NewEngine() *Engine {
	api.DisableConfigDir()
	return &Engine{}
}

// Apply validates op and runs it. Operations pdfcpu cannot perform return
// ErrNotSupported; the input is never returned unchanged as a result.
func (e *Engine) Apply(op Operation, inputs [][]byte) ([]byte, error) {
	op = deref(op)
	if err := Validate(op, len(inputs)); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	var err error

	switch o := op.(type) {
	case Merge:
		readers := make([]io.ReadSeeker, len(inputs))
		for i, in := range inputs {
			readers[i] = bytes.NewReader(in)
		}
		err = api.MergeRaw(readers, &out, false, conf())
	case Rotate:
		err = api.Rotate(bytes.NewReader(inputs[0]), &out, normalizeDegrees(o.Degrees), nil, conf())
	case Compress:
		err = api.Optimize(bytes.NewReader(inputs[0]), &out, conf())
	case ExtractPages:
		if err := checkPages(inputs[0], o.Pages, false); err != nil {
			return nil, err
		}
		err = api.Trim(bytes.NewReader(inputs[0]), &out, pageSelection(o.Pages), conf())
	case RemovePages:
		if err := checkPages(inputs[0], o.Pages, true); err != nil {
			return nil, err
		}
		err = api.RemovePages(bytes.NewReader(inputs[0]), &out, pageSelection(o.Pages), conf())
	case Protect:
		owner := o.OwnerPassword
		if owner == "" {
			owner = o.UserPassword
		}
		err = api.Encrypt(bytes.NewReader(inputs[0]), &out, model.NewAESConfiguration(o.UserPassword, owner, 256))
	case Grayscale, ExtractText, ConvertDocument, ToImages:
		return nil, fmt.Errorf("%w: %s", ErrNotSupported, op.Kind())
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidOperation, op.Kind())
	}

	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", op.Kind(), err)
	}
	return out.Bytes(), nil
}

// checkPages rejects page numbers past the end of the document. pdfcpu
// silently ignores them. When removing is set, the selection must leave at
// least one page.
func checkPages(doc []byte, pages []int, removing bool) error {
	count, err := api.PageCount(bytes.NewReader(doc), conf())
	if err != nil {
		return fmt.Errorf("failed to read page count: %w", err)
	}

	selected := make(map[int]struct{}, len(pages))
	for _, p := range pages {
		if p > count {
			return fmt.Errorf("%w: page %d is out of range, the document has %d page(s)", ErrInvalidOperation, p, count)
		}
		selected[p] = struct{}{}
	}
	if removing && len(selected) >= count {
		return fmt.Errorf("%w: cannot remove every page", ErrInvalidOperation)
	}
	return nil
}

func conf() *model.Configuration {
	return model.NewDefaultConfiguration()
}

// normalizeDegrees maps any multiple of 90 onto 90, 180 or 270.
func normalizeDegrees(d int) int {
	d %= 360
	if d < 0 {
		d += 360
	}
	return d
}

func pageSelection(pages []int) []string {
	sel := make([]string, len(pages))
	for i, p := range pages {
		sel[i] = strconv.Itoa(p)
	}
	return sel
}
