package entity

import (
	"encoding/json"
	"time"

	"github.com/joseph-ayodele/traveler-intake/constants"
)

// Document is one processed capture, passed between the repository,
// pipeline and server layers.
type Document struct {
	ID           string                 `json:"id"`
	DocType      constants.DocumentType `json:"doc_type"`
	Subtype      constants.Subtype      `json:"subtype"`
	SourcePath   string                 `json:"source_path"`
	ContentHash  string                 `json:"content_hash"`
	StorageKey   string                 `json:"storage_key"`
	OCRText      *string                `json:"ocr_text,omitempty"`
	OCRMethod    *string                `json:"ocr_method,omitempty"`
	Confidence   *float32               `json:"confidence,omitempty"`
	FieldsJSON   json.RawMessage        `json:"fields,omitempty"`
	NeedsReview  bool                   `json:"needs_review"`
	Status       constants.JobStatus    `json:"status"`
	ErrorMessage *string                `json:"error_message,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	FinishedAt   *time.Time             `json:"finished_at,omitempty"`
}

// Fields decodes FieldsJSON into a key/value mapping; nil when not extracted.
func (d *Document) Fields() (map[string]any, error) {
	if len(d.FieldsJSON) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(d.FieldsJSON, &m); err != nil {
		return nil, err
	}
	return m, nil
}
