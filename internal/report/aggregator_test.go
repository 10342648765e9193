package report

import (
	"context"
	"errors"
	"testing"

	"noctambul/internal/core"
)

// memSource is a canned Source for aggregator tests. Date and category
// filtering mirrors the store contract: inclusive bounds, empty means
// unbounded.
type memSource struct {
	stock    []core.StockItem
	journal  []core.JournalEntry
	sales    []core.Sale
	expenses []core.Expense
	points   []core.DailyKioskPoint
}

func (m *memSource) GetStock(ctx context.Context) ([]core.StockItem, error) {
	return m.stock, nil
}

func (m *memSource) GetJournal(ctx context.Context) ([]core.JournalEntry, error) {
	return m.journal, nil
}

func (m *memSource) GetPurchases(ctx context.Context, from, to core.Date) ([]core.Purchase, error) {
	return nil, nil
}

func inRange(d, from, to core.Date) bool {
	if !from.IsZero() && d.Before(from.Time) {
		return false
	}
	if !to.IsZero() && d.After(to.Time) {
		return false
	}
	return true
}

func (m *memSource) GetSales(ctx context.Context, from, to core.Date, categories []string) ([]core.Sale, error) {
	var out []core.Sale
	for _, s := range m.sales {
		if !inRange(s.Date, from, to) {
			continue
		}
		if len(categories) > 0 {
			found := false
			for _, c := range categories {
				if s.Category == c {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *memSource) GetExpenses(ctx context.Context, from, to core.Date) ([]core.Expense, error) {
	var out []core.Expense
	for _, e := range m.expenses {
		if inRange(e.Date, from, to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memSource) GetDailyPoints(ctx context.Context, from, to core.Date) ([]core.DailyKioskPoint, error) {
	var out []core.DailyKioskPoint
	for _, p := range m.points {
		if inRange(p.Date, from, to) {
			out = append(out, p)
		}
	}
	return out, nil
}

func TestEmptySourceYieldsNoData(t *testing.T) {
	agg := NewAggregator(&memSource{})
	for _, table := range []Table{TableStock, TableJournal, TableVentes, TableDepenses, TablePoints} {
		_, err := agg.Snapshot(context.Background(), table, Filter{})
		if !errors.Is(err, ErrNoData) {
			t.Fatalf("table %s: expected ErrNoData, got %v", table, err)
		}
	}
}

func TestSalesTotal(t *testing.T) {
	d := core.NewDate(2026, 8, 30)
	agg := NewAggregator(&memSource{
		sales: []core.Sale{
			{Date: d, Product: "Poulet", Category: "Plat", Quantity: 5, UnitPrice: core.Money{Francs: 500}},
		},
	})

	ds, err := agg.Snapshot(context.Background(), TableVentes, Filter{From: d, To: d})
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if ds.Total != 2500 {
		t.Fatalf("expected total 2500, got %d", ds.Total)
	}
	if len(ds.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(ds.Rows))
	}
	montant := ds.Rows[0][ds.TotalColumn]
	if montant.Text != "2500" || !montant.Numeric {
		t.Fatalf("expected numeric montant cell '2500', got %+v", montant)
	}
}

func TestSalesDateRangeIsInclusive(t *testing.T) {
	mk := func(day int) core.Sale {
		return core.Sale{
			Date:      core.NewDate(2026, 8, day),
			Product:   "x",
			Category:  "Plat",
			Quantity:  1,
			UnitPrice: core.Money{Francs: 100},
		}
	}
	agg := NewAggregator(&memSource{sales: []core.Sale{mk(10), mk(11), mk(12), mk(13)}})

	ds, err := agg.Snapshot(context.Background(), TableVentes, Filter{
		From: core.NewDate(2026, 8, 11),
		To:   core.NewDate(2026, 8, 12),
	})
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(ds.Rows) != 2 {
		t.Fatalf("expected 2 rows for inclusive bounds, got %d", len(ds.Rows))
	}
	if ds.Total != 200 {
		t.Fatalf("expected total 200, got %d", ds.Total)
	}
}

func TestFilteredToEmptyYieldsNoData(t *testing.T) {
	agg := NewAggregator(&memSource{
		sales: []core.Sale{
			{Date: core.NewDate(2026, 8, 1), Product: "x", Category: "Plat", Quantity: 1, UnitPrice: core.Money{Francs: 100}},
		},
	})

	_, err := agg.Snapshot(context.Background(), TableVentes, Filter{
		From: core.NewDate(2026, 9, 1),
	})
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData for empty filtered set, got %v", err)
	}
}

func TestKioskGroupingFirstSeenOrder(t *testing.T) {
	d := core.NewDate(2026, 8, 30)
	point := func(kiosk int64, cash, flotte, credit, commission int64) core.DailyKioskPoint {
		return core.DailyKioskPoint{
			Date:       d,
			Kiosk:      kiosk,
			Operator:   "Awa",
			Cash:       core.Money{Francs: cash},
			Float:      core.Money{Francs: flotte},
			Credit:     core.Money{Francs: credit},
			Commission: core.Money{Francs: commission},
		}
	}
	// Group keys {2, 2, 1}: first-seen order is {2, 1}, not sorted.
	agg := NewAggregator(&memSource{points: []core.DailyKioskPoint{
		point(2, 100, 10, 1, 5),
		point(2, 200, 20, 2, 5),
		point(1, 50, 5, 0, 1),
	}})

	ds, err := agg.Snapshot(context.Background(), TablePoints, Filter{})
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(ds.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(ds.Groups))
	}
	if ds.Groups[0].Key != "Kiosque 2" || ds.Groups[1].Key != "Kiosque 1" {
		t.Fatalf("expected first-seen order {Kiosque 2, Kiosque 1}, got {%s, %s}", ds.Groups[0].Key, ds.Groups[1].Key)
	}
	if len(ds.Groups[0].Rows) != 2 || len(ds.Groups[1].Rows) != 1 {
		t.Fatalf("unexpected row counts: %d, %d", len(ds.Groups[0].Rows), len(ds.Groups[1].Rows))
	}

	// Per-column sums, independently per group.
	totals := ds.Groups[0].Totals
	if totals[0].Text != "TOTAL" {
		t.Fatalf("expected TOTAL label, got %q", totals[0].Text)
	}
	wants := []string{"300", "30", "3", "10"}
	for i, want := range wants {
		if got := totals[2+i].Text; got != want {
			t.Fatalf("group 0 total col %d: expected %s, got %s", 2+i, want, got)
		}
	}
	totals = ds.Groups[1].Totals
	wants = []string{"50", "5", "0", "1"}
	for i, want := range wants {
		if got := totals[2+i].Text; got != want {
			t.Fatalf("group 1 total col %d: expected %s, got %s", 2+i, want, got)
		}
	}
}

func TestKioskFilterPreservesOrder(t *testing.T) {
	d := core.NewDate(2026, 8, 30)
	agg := NewAggregator(&memSource{points: []core.DailyKioskPoint{
		{Date: d, Kiosk: 3, Operator: "a", Cash: core.Money{Francs: 1}},
		{Date: d, Kiosk: 1, Operator: "b", Cash: core.Money{Francs: 2}},
		{Date: d, Kiosk: 3, Operator: "a", Cash: core.Money{Francs: 3}},
	}})

	ds, err := agg.Snapshot(context.Background(), TablePoints, Filter{Kiosks: []int64{3}})
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(ds.Groups) != 1 || ds.Groups[0].Key != "Kiosque 3" {
		t.Fatalf("expected single group Kiosque 3, got %+v", ds.Groups)
	}
	if len(ds.Groups[0].Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(ds.Groups[0].Rows))
	}
}
