// Package scheduler fires the automatic report set at fixed wall-clock
// hours. Idempotence rests on a durable per-window record in the
// store; the historical marker file is still written for operators who
// watch the working directory.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

// ReportRunner generates and delivers the automatic report set.
type ReportRunner interface {
	RunScheduled(ctx context.Context, at time.Time) error
}

// RunRecorder claims an hour window, returning false when it was
// already claimed.
type RunRecorder interface {
	TryMarkReportRun(ctx context.Context, window string) (bool, error)
}

type Scheduler struct {
	cron      *cron.Cron
	runner    ReportRunner
	recorder  RunRecorder
	markerDir string
}

// New builds a scheduler firing on the given cron spec, e.g.
// "0 0,6 * * *" for midnight and six in the morning.
func New(spec string, runner ReportRunner, recorder RunRecorder, markerDir string) (*Scheduler, error) {
	s := &Scheduler{
		cron:      cron.New(),
		runner:    runner,
		recorder:  recorder,
		markerDir: markerDir,
	}
	if _, err := s.cron.AddFunc(spec, s.fire); err != nil {
		return nil, fmt.Errorf("schedule automatic reports %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	slog.Info("Starting automatic report scheduler")
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	slog.Info("Stopping automatic report scheduler")
	s.cron.Stop()
}

func (s *Scheduler) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if err := s.runAt(ctx, time.Now()); err != nil {
		slog.ErrorContext(ctx, "Automatic report run failed", "error", err)
	}
}

// WindowKey identifies one eligible hour window.
func WindowKey(t time.Time) string {
	return t.Format("2006-01-02_15")
}

// MarkerFile is the sentinel path for one window, kept for
// compatibility with the historical layout.
func MarkerFile(dir string, t time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("report_sent_%s.lock", WindowKey(t)))
}

// runAt performs one window run: claim the window, generate and send,
// then touch the marker. A window that was already claimed, or whose
// marker already exists, is skipped. A failed send consumes the
// window; there is no retry or catch-up.
func (s *Scheduler) runAt(ctx context.Context, now time.Time) error {
	window := WindowKey(now)
	marker := MarkerFile(s.markerDir, now)

	if _, err := os.Stat(marker); err == nil {
		slog.InfoContext(ctx, "Report already sent for window, marker present", "window", window)
		return nil
	}

	won, err := s.recorder.TryMarkReportRun(ctx, window)
	if err != nil {
		return fmt.Errorf("claim report window: %w", err)
	}
	if !won {
		slog.InfoContext(ctx, "Report already sent for window", "window", window)
		return nil
	}

	slog.InfoContext(ctx, "Generating automatic reports", "window", window)
	if err := s.runner.RunScheduled(ctx, now); err != nil {
		return fmt.Errorf("run scheduled reports: %w", err)
	}

	if f, err := os.Create(marker); err != nil {
		slog.WarnContext(ctx, "Could not create marker file", "path", marker, "error", err)
	} else {
		f.Close()
	}
	return nil
}
