package services

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"noctambul/internal/core"
	"noctambul/internal/pdf"
	"noctambul/internal/report"
	"noctambul/internal/storage"
)

func newTestReportService(t *testing.T) (*ReportService, *Operations) {
	t.Helper()
	dir := t.TempDir()
	repo, err := storage.NewSQLiteRepository(filepath.Join(dir, "stock.db"), "patron@lenoctambul.bj")
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	renderer := pdf.NewRenderer(filepath.Join(dir, "rapports"))
	// No dispatcher and no queue: generation runs inline, delivery is
	// skipped with a warning.
	svc := NewReportService(repo, renderer, nil, nil)
	return svc, NewOperations(repo)
}

func TestGenerateStandardSet(t *testing.T) {
	svc, ops := newTestReportService(t)
	ctx := context.Background()

	if err := ops.AddProduct(ctx, "Beer", 10); err != nil {
		t.Fatalf("add: %v", err)
	}

	paths, err := svc.GenerateStandardSet(ctx, "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(paths))
	}
	if !strings.Contains(filepath.Base(paths[0]), "rapport_de_stock_") {
		t.Fatalf("unexpected stock report name %q", paths[0])
	}
	if !strings.Contains(filepath.Base(paths[1]), "journal_des_activites_") {
		t.Fatalf("unexpected journal report name %q", paths[1])
	}
}

func TestGenerateStandardSetEmptyStore(t *testing.T) {
	svc, _ := newTestReportService(t)

	// Empty tables still produce documents, with the explicit
	// empty-state line instead of a zero-total table.
	paths, err := svc.GenerateStandardSet(context.Background(), "")
	if err != nil {
		t.Fatalf("generate on empty store: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(paths))
	}
}

func TestBundleStandardSet(t *testing.T) {
	svc, ops := newTestReportService(t)
	ctx := context.Background()

	if err := ops.AddProduct(ctx, "Beer", 3); err != nil {
		t.Fatalf("add: %v", err)
	}

	zipPath, err := svc.BundleStandardSet(ctx)
	if err != nil {
		t.Fatalf("bundle: %v", err)
	}
	if !strings.Contains(filepath.Base(zipPath), "Rapports_Le_Noctambul_") {
		t.Fatalf("unexpected archive name %q", zipPath)
	}
}

func TestGenerateKioskReport(t *testing.T) {
	svc, ops := newTestReportService(t)
	ctx := context.Background()

	err := ops.RecordDailyPoint(ctx, core.DailyKioskPoint{
		Date:       core.NewDate(2026, 8, 30),
		Kiosk:      1,
		Operator:   "Awa",
		Cash:       core.Money{Francs: 150000},
		Float:      core.Money{Francs: 80000},
		Commission: core.Money{Francs: 2300},
	})
	if err != nil {
		t.Fatalf("point: %v", err)
	}

	path, err := svc.GenerateKioskReport(ctx, report.Filter{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(filepath.Base(path), "rapport_des_kiosques_") {
		t.Fatalf("unexpected kiosk report name %q", path)
	}
}

func TestAutoSubject(t *testing.T) {
	at := time.Date(2026, 8, 30, 6, 0, 0, 0, time.Local)
	got := AutoSubject(at)
	want := "Rapports Automatiques du 30/08/2026 06:00 - Le Noctambul"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
