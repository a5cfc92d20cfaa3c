package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/traveler-intake/internal/resilience"
)

const visionOperation = "vision.detect_document_text"

// DocumentTextDetector is the slice of the Vision client the engine needs.
type DocumentTextDetector interface {
	DetectDocumentText(ctx context.Context, content []byte) (*visionpb.TextAnnotation, error)
}

// VisionEngine sends captures to Google Cloud Vision document text detection.
// Calls are paced, retried and guarded by a circuit breaker.
type VisionEngine struct {
	detector DocumentTextDetector
	exec     *resilience.Executor
	logger   *slog.Logger
}

func NewVisionEngine(detector DocumentTextDetector, exec *resilience.Executor, logger *slog.Logger) *VisionEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if exec == nil {
		exec = resilience.NewExecutor(resilience.DefaultConfig(), logger)
	}
	return &VisionEngine{detector: detector, exec: exec, logger: logger}
}

func (v *VisionEngine) Name() string { return "vision" }

func (v *VisionEngine) Recognize(ctx context.Context, path string) (string, float32, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", 0, fmt.Errorf("read image: %w", err)
	}

	var ann *visionpb.TextAnnotation
	err = v.exec.Execute(ctx, visionOperation, func(ctx context.Context) error {
		var derr error
		ann, derr = v.detector.DetectDocumentText(ctx, content)
		return derr
	}, resilience.RetryTransient)
	if err != nil {
		if resilience.IsCircuitOpen(err) {
			v.logger.Warn("vision circuit open, skipping", "path", path)
		}
		return "", 0, fmt.Errorf("vision: %w", err)
	}
	if ann == nil {
		return "", 0, nil
	}

	var sum float32
	for _, p := range ann.GetPages() {
		sum += p.GetConfidence()
	}
	var conf float32
	if n := len(ann.GetPages()); n > 0 {
		conf = sum / float32(n)
	}
	return ann.GetText(), conf, nil
}

// VisionClient adapts the generated ImageAnnotatorClient.
type VisionClient struct {
	annotate func(context.Context, *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error)
	close    func() error
}

// NewVisionClient dials Cloud Vision. An empty credFile uses application
// default credentials.
func NewVisionClient(ctx context.Context, credFile string) (*VisionClient, error) {
	var opts []option.ClientOption
	if credFile != "" {
		opts = append(opts, option.WithCredentialsFile(credFile))
	}
	c, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("init vision client: %w", err)
	}
	return &VisionClient{
		annotate: func(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
			return c.BatchAnnotateImages(ctx, req)
		},
		close: c.Close,
	}, nil
}

// DetectDocumentText runs DOCUMENT_TEXT_DETECTION on a single image.
func (c *VisionClient) DetectDocumentText(ctx context.Context, content []byte) (*visionpb.TextAnnotation, error) {
	resp, err := c.annotate(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: content},
			Features: []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
		}},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.GetResponses()) == 0 {
		return nil, errors.New("vision returned no responses")
	}
	res := resp.GetResponses()[0]
	if e := res.GetError(); e != nil && e.GetCode() != 0 {
		return nil, fmt.Errorf("vision annotate: code %d: %s", e.GetCode(), e.GetMessage())
	}
	return res.GetFullTextAnnotation(), nil
}

func (c *VisionClient) Close() error {
	if c.close == nil {
		return nil
	}
	return c.close()
}
