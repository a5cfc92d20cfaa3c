package main

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/traveler-intake/internal/async"
	"github.com/joseph-ayodele/traveler-intake/internal/common"
	"github.com/joseph-ayodele/traveler-intake/internal/ingest"
	"github.com/joseph-ayodele/traveler-intake/internal/pipeline"
)

// batchSummary counts outcomes across one batch run.
type batchSummary struct {
	mu          sync.Mutex
	Processed   int `json:"processed"`
	NeedsReview int `json:"needs_review"`
	Duplicates  int `json:"duplicates"`
	Failed      int `json:"failed"`
	Rejected    int `json:"rejected"`
}

func (s *batchSummary) record(res *pipeline.Result, err error, duplicate bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case duplicate:
		s.Duplicates++
	case err != nil:
		s.Failed++
	default:
		s.Processed++
		if res.NeedsReview {
			s.NeedsReview++
		}
	}
}

func newBatchCmd(g *globals) *cobra.Command {
	var (
		dir     string
		workers int
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Process every capture under a <doc_type>/<subtype>/ folder tree",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, logger, err := g.app(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			if dir == "" {
				dir = app.Config.Storage.CaptureDir
			}

			targets, rejected, stats, err := ingest.ScanDirectory(dir, true)
			if err != nil {
				return err
			}
			for _, r := range rejected {
				logger.Warn("capture skipped", "path", r.Path, "error", r.Err)
			}
			logger.Info("scanned capture tree", "dir", dir, "matched", stats.Matched, "resolved", stats.Resolved)

			summary := &batchSummary{Rejected: len(rejected)}
			if workers <= 0 {
				workers = app.Config.Worker.Workers
			}
			queue := async.NewProcessorQueue(app.Processor, logger,
				async.WithWorkers(workers),
				async.WithQueueSize(len(targets)+1),
				async.WithProcessTimeout(app.Config.Worker.Timeout),
				async.WithMetrics(app.Metrics),
				async.WithOnDone(func(_ async.Job, res *pipeline.Result, err error) {
					summary.record(res, err, errors.Is(err, common.ErrDuplicate))
				}),
			)

			start := time.Now()
			for _, t := range targets {
				job := async.Job{Capture: pipeline.Capture{Path: t.Path, DocType: t.DocType, Subtype: t.Subtype}}
				if err := queue.Enqueue(cmd.Context(), job); err != nil {
					queue.Shutdown(cmd.Context())
					return fmt.Errorf("queue %s: %w", t.Path, err)
				}
			}
			queue.Shutdown(cmd.Context())
			logger.Info("batch finished", "files", len(targets), "duration_ms", time.Since(start).Milliseconds())

			summary.mu.Lock()
			defer summary.mu.Unlock()
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "capture root (default CAPTURE_DIR)")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel workers (default WORKERS)")
	return cmd
}
