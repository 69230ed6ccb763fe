package pdf

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var disableConfigDir sync.Once

// Inspection is what a structural check of a produced document reports.
type Inspection struct {
	Pages int
	Size  int
}

// Inspect validates a PDF with pdfcpu and counts its pages.
func Inspect(data []byte) (Inspection, error) {
	disableConfigDir.Do(api.DisableConfigDir)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	if err := api.Validate(bytes.NewReader(data), conf); err != nil {
		return Inspection{}, fmt.Errorf("invalid PDF: %w", err)
	}
	pages, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return Inspection{}, fmt.Errorf("failed to count pages: %w", err)
	}
	return Inspection{Pages: pages, Size: len(data)}, nil
}
