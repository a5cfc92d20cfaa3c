package server

import (
	"context"
	"time"

	"github.com/joseph-ayodele/traveler-intake/internal/common"
	"github.com/joseph-ayodele/traveler-intake/internal/entity"
	"github.com/joseph-ayodele/traveler-intake/internal/pipeline"
	"github.com/joseph-ayodele/traveler-intake/internal/prefill"
)

const (
	docID = "3f2b8c1e-5d4a-4e8b-9c1f-2a7d6e5b4c3a"

	passportText = `PASSPORT
UNITED STATES OF AMERICA
Surname
DOE
Given Names
JOHN MICHAEL
P<USADOE<<JOHN<MICHAEL<<<<<<<<<<<<<<<<<<<<<<
A1234567USA9007151M3001012`
)

type fakeProcessor struct {
	got pipeline.Capture
	res *pipeline.Result
	err error
}

func (f *fakeProcessor) Process(_ context.Context, c pipeline.Capture) (*pipeline.Result, error) {
	f.got = c
	return f.res, f.err
}

type fakeDocuments struct {
	docs map[string]*entity.Document
}

func (f *fakeDocuments) GetByID(_ context.Context, id string) (*entity.Document, error) {
	if d, ok := f.docs[id]; ok {
		return d, nil
	}
	return nil, common.ErrNotFound
}

type fakeExporter struct {
	from, to *time.Time
	data     []byte
}

func (f *fakeExporter) TravelersXLSX(_ context.Context, from, to *time.Time) ([]byte, error) {
	f.from, f.to = from, to
	return f.data, nil
}

type fakeSubmitter struct {
	got prefill.Declaration
}

func (f *fakeSubmitter) Submit(_ context.Context, d prefill.Declaration) (prefill.Submission, error) {
	if err := d.Validate(); err != nil {
		return prefill.Submission{}, err
	}
	f.got = d
	return prefill.Submission{ConfirmationNumber: "LAX-25-12345", Key: "Images/declaration.json", URI: "file:///declaration.json"}, nil
}
