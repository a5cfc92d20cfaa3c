// Package pipeline turns a captured travel document into persisted,
// validated traveler fields.
package pipeline

import (
	"fmt"

	"github.com/joseph-ayodele/traveler-intake/constants"
	"github.com/joseph-ayodele/traveler-intake/internal/common"
	"github.com/joseph-ayodele/traveler-intake/internal/fields"
)

// Extraction is the standardized view of one document's OCR text.
type Extraction struct {
	DocType constants.DocumentType
	// Record is the typed field struct; it marshals with keys in output order.
	Record any
	Fields map[string]any
	Flags  []common.ValidationError
}

func (e Extraction) NeedsReview() bool { return common.NeedsReview(e.Flags) }

// Standardize extracts the fields for docType from raw OCR text and lists the
// ones a traveler should confirm.
func Standardize(docType constants.DocumentType, text string) (Extraction, error) {
	switch docType {
	case constants.Passport:
		p := fields.ExtractPassport(text)
		return Extraction{DocType: docType, Record: p, Fields: p.Map(), Flags: common.ReviewPassport(p)}, nil
	case constants.BoardingPass:
		b := fields.ExtractBoardingPass(text)
		return Extraction{DocType: docType, Record: b, Fields: b.Map(), Flags: common.ReviewBoardingPass(b)}, nil
	default:
		return Extraction{}, fmt.Errorf("document type %q: %w", docType, common.ErrUnsupported)
	}
}
