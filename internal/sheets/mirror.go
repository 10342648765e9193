package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"noctambul/internal/core"
)

// MirrorStore is the slice of the store the mirror needs: the queue of
// journal rows not yet pushed to the spreadsheet.
type MirrorStore interface {
	GetUnmirroredJournal(ctx context.Context, limit int) ([]core.JournalEntry, error)
	MarkJournalMirrored(ctx context.Context, upTo int64) error
}

// Mirror pushes journal rows to the spreadsheet in batches. The
// mirrored flag on each row makes the push resumable: a failed batch
// is simply picked up again on the next tick.
type Mirror struct {
	store     MirrorStore
	writer    JournalWriter
	batchSize int
}

func NewMirror(store MirrorStore, writer JournalWriter, batchSize int) *Mirror {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Mirror{
		store:     store,
		writer:    writer,
		batchSize: batchSize,
	}
}

// ProcessPending pushes one batch of unmirrored journal rows. Rows are
// marked mirrored only after the spreadsheet accepted them.
func (m *Mirror) ProcessPending(ctx context.Context) error {
	entries, err := m.store.GetUnmirroredJournal(ctx, m.batchSize)
	if err != nil {
		return fmt.Errorf("get unmirrored journal: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Mirroring journal rows", "count", len(entries))

	if err := m.writer.Append(ctx, entries); err != nil {
		return fmt.Errorf("append journal to sheet: %w", err)
	}

	lastID := entries[len(entries)-1].ID
	if err := m.store.MarkJournalMirrored(ctx, lastID); err != nil {
		// The rows made it to the sheet; the next batch will re-push
		// them and the sheet will carry duplicates until cleaned up.
		return fmt.Errorf("mark journal mirrored: %w", err)
	}
	return nil
}

// Run mirrors pending rows on a fixed interval until the context is
// canceled. Failures are logged and retried on the next tick, never
// fatal to the worker.
func (m *Mirror) Run(ctx context.Context, interval time.Duration) {
	if err := m.ProcessPending(ctx); err != nil {
		slog.ErrorContext(ctx, "Journal mirror pass failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Journal mirror stopping")
			return
		case <-ticker.C:
			if err := m.ProcessPending(ctx); err != nil {
				slog.ErrorContext(ctx, "Journal mirror pass failed", "error", err)
			}
		}
	}
}
