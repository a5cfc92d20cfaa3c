package ocr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/traveler-intake/internal/resilience"
)

type fakeDetector struct {
	calls int
	errs  []error
	ann   *visionpb.TextAnnotation
}

func (f *fakeDetector) DetectDocumentText(_ context.Context, content []byte) (*visionpb.TextAnnotation, error) {
	f.calls++
	if len(content) == 0 {
		return nil, errors.New("empty image")
	}
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return f.ann, nil
}

func noBreaker() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
	}, nil)
}

func TestVisionEngineRecognize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bp.png")
	if err := os.WriteFile(path, []byte("img"), 0o644); err != nil {
		t.Fatal(err)
	}
	det := &fakeDetector{
		errs: []error{errors.New("unavailable")},
		ann: &visionpb.TextAnnotation{
			Text:  "BOARDING PASS\nLAX/JFK",
			Pages: []*visionpb.Page{{Confidence: 0.8}, {Confidence: 0.6}},
		},
	}
	eng := NewVisionEngine(det, noBreaker(), nil)

	txt, conf, err := eng.Recognize(context.Background(), path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if txt != "BOARDING PASS\nLAX/JFK" {
		t.Fatalf("unexpected text %q", txt)
	}
	if conf < 0.69 || conf > 0.71 {
		t.Fatalf("expected mean confidence 0.7, got %f", conf)
	}
	if det.calls != 2 {
		t.Fatalf("expected one retry, got %d calls", det.calls)
	}
}

func TestVisionEngineAsExtractorEngine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "passport.png")
	writePNG(t, path)
	det := &fakeDetector{ann: &visionpb.TextAnnotation{Text: "PASSPORT\n\n\n\nSurname\nDOE"}}
	e := NewExtractor(Config{}, nil, WithEngine(NewVisionEngine(det, noBreaker(), nil)), WithRunner(&fakeRunner{}))

	res, err := e.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Engine != "vision" {
		t.Fatalf("expected vision engine, got %s", res.Engine)
	}
	if res.Text != "PASSPORT\n\nSurname\nDOE" {
		t.Fatalf("unexpected text %q", res.Text)
	}
}

func TestVisionEngineGivesUp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bp.png")
	if err := os.WriteFile(path, []byte("img"), 0o644); err != nil {
		t.Fatal(err)
	}
	errDown := errors.New("unavailable")
	det := &fakeDetector{errs: []error{errDown, errDown, errDown}}
	eng := NewVisionEngine(det, noBreaker(), nil)

	if _, _, err := eng.Recognize(context.Background(), path); !errors.Is(err, errDown) {
		t.Fatalf("expected wrapped unavailable error, got %v", err)
	}
	if det.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", det.calls)
	}
}

func visionClientReturning(resp *visionpb.BatchAnnotateImagesResponse, err error, got **visionpb.BatchAnnotateImagesRequest) *VisionClient {
	return &VisionClient{annotate: func(_ context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
		*got = req
		return resp, err
	}}
}

func TestVisionClientRequestsDocumentText(t *testing.T) {
	var req *visionpb.BatchAnnotateImagesRequest
	c := visionClientReturning(&visionpb.BatchAnnotateImagesResponse{
		Responses: []*visionpb.AnnotateImageResponse{{
			FullTextAnnotation: &visionpb.TextAnnotation{Text: "PASSPORT"},
		}},
	}, nil, &req)

	ann, err := c.DetectDocumentText(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ann.GetText() != "PASSPORT" {
		t.Fatalf("expected PASSPORT, got %q", ann.GetText())
	}
	if len(req.GetRequests()) != 1 {
		t.Fatalf("expected one image request, got %d", len(req.GetRequests()))
	}
	r := req.GetRequests()[0]
	if string(r.GetImage().GetContent()) != "img" {
		t.Fatalf("expected image content to be sent, got %q", r.GetImage().GetContent())
	}
	if len(r.GetFeatures()) != 1 || r.GetFeatures()[0].GetType() != visionpb.Feature_DOCUMENT_TEXT_DETECTION {
		t.Fatalf("expected DOCUMENT_TEXT_DETECTION, got %v", r.GetFeatures())
	}
}

func TestVisionClientErrors(t *testing.T) {
	var req *visionpb.BatchAnnotateImagesRequest
	errCall := errors.New("transport down")
	tests := []struct {
		name string
		resp *visionpb.BatchAnnotateImagesResponse
		err  error
		want string
	}{
		{name: "call fails", err: errCall, want: "transport down"},
		{name: "no responses", resp: &visionpb.BatchAnnotateImagesResponse{}, want: "no responses"},
		{name: "image error", resp: &visionpb.BatchAnnotateImagesResponse{
			Responses: []*visionpb.AnnotateImageResponse{{
				Error: status.New(codes.InvalidArgument, "bad image data").Proto(),
			}},
		}, want: "bad image data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := visionClientReturning(tt.resp, tt.err, &req)
			_, err := c.DetectDocumentText(context.Background(), []byte("img"))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestVisionClientCloseWithoutConnection(t *testing.T) {
	if err := (&VisionClient{}).Close(); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
