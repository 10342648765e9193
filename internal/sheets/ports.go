// Package sheets mirrors the journal to an external spreadsheet so the
// owner can browse activity without touching the database.
package sheets

import (
	"context"

	"noctambul/internal/core"
)

// JournalWriter appends journal rows to the mirror.
type JournalWriter interface {
	Append(ctx context.Context, entries []core.JournalEntry) error
}
