package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"noctambul/internal/core"
	"noctambul/internal/report"
	"noctambul/internal/storage"
)

func newTestOps(t *testing.T) (*Operations, *storage.SQLiteRepository) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "stock.db"), "patron@lenoctambul.bj")
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return NewOperations(repo), repo
}

func quantity(t *testing.T, ops *Operations, name string) int64 {
	t.Helper()
	items, err := ops.GetStock(context.Background())
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	for _, it := range items {
		if it.Name == name {
			return it.Quantity
		}
	}
	return -1
}

func TestAddSellScenario(t *testing.T) {
	ops, _ := newTestOps(t)
	ctx := context.Background()

	// Add 10 units of Beer: quantity 10, one journal row.
	if err := ops.AddProduct(ctx, "Beer", 10); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := quantity(t, ops, "Beer"); got != 10 {
		t.Fatalf("expected 10, got %d", got)
	}
	entries, _ := ops.GetJournal(ctx)
	if len(entries) != 1 {
		t.Fatalf("expected 1 journal row, got %d", len(entries))
	}

	// Sell 3: quantity 7, second journal row.
	if err := ops.SellProduct(ctx, "Beer", 3); err != nil {
		t.Fatalf("sell: %v", err)
	}
	if got := quantity(t, ops, "Beer"); got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
	entries, _ = ops.GetJournal(ctx)
	if len(entries) != 2 {
		t.Fatalf("expected 2 journal rows, got %d", len(entries))
	}

	// Sell 20 fails, quantity still 7, no third journal row.
	err := ops.SellProduct(ctx, "Beer", 20)
	var insufficient *core.ErrInsufficientStock
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if got := quantity(t, ops, "Beer"); got != 7 {
		t.Fatalf("expected 7 after rejection, got %d", got)
	}
	entries, _ = ops.GetJournal(ctx)
	if len(entries) != 2 {
		t.Fatalf("expected still 2 journal rows, got %d", len(entries))
	}
}

func TestValidationAbortsBeforeWrite(t *testing.T) {
	ops, _ := newTestOps(t)
	ctx := context.Background()

	cases := []error{
		ops.AddProduct(ctx, "", 1),
		ops.AddProduct(ctx, "Beer", 0),
		ops.SellProduct(ctx, "  ", 1),
		ops.RecordSale(ctx, core.Sale{}),
		ops.RecordExpense(ctx, core.Expense{}),
		ops.RecordDailyPoint(ctx, core.DailyKioskPoint{}),
	}
	for i, err := range cases {
		if err == nil {
			t.Fatalf("case %d expected validation error", i)
		}
	}

	entries, _ := ops.GetJournal(ctx)
	if len(entries) != 0 {
		t.Fatalf("validation failures must not journal, got %d rows", len(entries))
	}
}

func TestSaleAggregatesForDate(t *testing.T) {
	ops, repo := newTestOps(t)
	ctx := context.Background()

	d := core.NewDate(2026, 8, 30)
	err := ops.RecordSale(ctx, core.Sale{
		Date:      d,
		Product:   "Poulet braisé",
		Category:  "Plat",
		Quantity:  5,
		UnitPrice: core.Money{Francs: 500},
	})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}

	agg := report.NewAggregator(repo)
	ds, err := agg.Snapshot(ctx, report.TableVentes, report.Filter{From: d, To: d, Categories: []string{"Plat"}})
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if ds.Total != 2500 {
		t.Fatalf("expected total 2500, got %d", ds.Total)
	}
	if len(ds.Rows) != 1 || ds.Rows[0][ds.TotalColumn].Text != "2500" {
		t.Fatalf("expected one row with montant 2500, got %+v", ds.Rows)
	}
}

func TestRecipientOperations(t *testing.T) {
	ops, _ := newTestOps(t)
	ctx := context.Background()

	if err := ops.AddRecipients(ctx, []string{"b@x.com", "c@x.com"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := ops.AddRecipients(ctx, []string{"broken"}); err == nil {
		t.Fatalf("expected validation error for malformed email")
	}
	if err := ops.RemoveRecipient(ctx, "b@x.com"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	final, err := ops.ListRecipients(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"patron@lenoctambul.bj", "c@x.com"}
	if len(final) != len(want) {
		t.Fatalf("expected %v, got %v", want, final)
	}
	for i := range want {
		if final[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, final)
		}
	}
}

func TestRecordPurchaseRestocksProduct(t *testing.T) {
	ops, _ := newTestOps(t)
	ctx := context.Background()

	err := ops.RecordPurchase(ctx, core.Purchase{
		Product:  "Coca",
		Quantity: 24,
		Amount:   core.Money{Francs: 9600},
		Date:     core.NewDate(2026, 8, 29),
	})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if got := quantity(t, ops, "Coca"); got != 24 {
		t.Fatalf("expected 24, got %d", got)
	}
}
