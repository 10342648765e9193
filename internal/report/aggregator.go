// Package report computes the filtered, totalled row sets behind every
// generated document. Table selection is an enumerated identifier
// dispatched to fixed queries; table names never come from free text.
package report

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"noctambul/internal/core"
)

// Table identifies one reportable table.
type Table int

const (
	TableStock Table = iota
	TableJournal
	TableAchats
	TableVentes
	TableDepenses
	TablePoints
)

func (t Table) String() string {
	switch t {
	case TableStock:
		return "stock"
	case TableJournal:
		return "journal"
	case TableAchats:
		return "achats"
	case TableVentes:
		return "ventes"
	case TableDepenses:
		return "depenses"
	case TablePoints:
		return "points_journaliers"
	default:
		return "unknown"
	}
}

// ErrNoData marks an empty filtered source. Callers render an explicit
// placeholder instead of a zero-total table.
var ErrNoData = errors.New("aucune donnée disponible")

// Filter restricts the aggregated rows. Date bounds are inclusive;
// zero bounds are unbounded. Categories applies to ventes, Kiosks to
// points_journaliers.
type Filter struct {
	From       core.Date
	To         core.Date
	Categories []string
	Kiosks     []int64
}

// Cell is one rendered value. Numeric cells are right-aligned by the
// document renderer and always carry zero decimal places.
type Cell struct {
	Text    string
	Numeric bool
}

type Row []Cell

// Group is one grouped subsection with its per-column subtotals.
type Group struct {
	Key    string
	Rows   []Row
	Totals Row
}

// Dataset is an aggregated table ready for rendering: headers, ordered
// rows, the grand total of the designated numeric column, and group
// subsections when a group key applies.
type Dataset struct {
	Title   string
	Columns []string
	Rows    []Row
	Groups  []Group
	Total   int64
	// TotalColumn is the designated column index for Total, -1 when
	// the table has no designated total.
	TotalColumn int
}

// Source is the read side of the ledger store.
type Source interface {
	GetStock(ctx context.Context) ([]core.StockItem, error)
	GetJournal(ctx context.Context) ([]core.JournalEntry, error)
	GetPurchases(ctx context.Context, from, to core.Date) ([]core.Purchase, error)
	GetSales(ctx context.Context, from, to core.Date, categories []string) ([]core.Sale, error)
	GetExpenses(ctx context.Context, from, to core.Date) ([]core.Expense, error)
	GetDailyPoints(ctx context.Context, from, to core.Date) ([]core.DailyKioskPoint, error)
}

type Aggregator struct {
	source Source
}

func NewAggregator(source Source) *Aggregator {
	return &Aggregator{source: source}
}

func num(v int64) Cell { return Cell{Text: strconv.FormatInt(v, 10), Numeric: true} }

func text(s string) Cell { return Cell{Text: s} }

// Snapshot produces the dataset for one table under the given filter.
// Points requests come back grouped by kiosk.
func (a *Aggregator) Snapshot(ctx context.Context, table Table, f Filter) (*Dataset, error) {
	switch table {
	case TableStock:
		return a.stock(ctx)
	case TableJournal:
		return a.journal(ctx)
	case TableAchats:
		return a.purchases(ctx, f)
	case TableVentes:
		return a.sales(ctx, f)
	case TableDepenses:
		return a.expenses(ctx, f)
	case TablePoints:
		return a.kioskPoints(ctx, f)
	default:
		return nil, fmt.Errorf("unknown table %d", table)
	}
}

func (a *Aggregator) stock(ctx context.Context) (*Dataset, error) {
	items, err := a.source.GetStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("read stock: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrNoData
	}

	ds := &Dataset{
		Title:       "Rapport de Stock",
		Columns:     []string{"Produit", "Quantité"},
		TotalColumn: 1,
	}
	for _, it := range items {
		ds.Rows = append(ds.Rows, Row{text(it.Name), num(it.Quantity)})
		ds.Total += it.Quantity
	}
	return ds, nil
}

func (a *Aggregator) journal(ctx context.Context) (*Dataset, error) {
	entries, err := a.source.GetJournal(ctx)
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrNoData
	}

	ds := &Dataset{
		Title:       "Journal des Activites",
		Columns:     []string{"Action", "Produit", "Quantité", "Montant", "Date"},
		TotalColumn: 3,
	}
	for _, e := range entries {
		ds.Rows = append(ds.Rows, Row{
			text(string(e.Action)),
			text(e.Product),
			num(e.Quantity),
			num(e.Amount.Francs),
			text(e.At.Format("2006-01-02 15:04")),
		})
		ds.Total += e.Amount.Francs
	}
	return ds, nil
}

func (a *Aggregator) purchases(ctx context.Context, f Filter) (*Dataset, error) {
	purchases, err := a.source.GetPurchases(ctx, f.From, f.To)
	if err != nil {
		return nil, fmt.Errorf("read purchases: %w", err)
	}
	if len(purchases) == 0 {
		return nil, ErrNoData
	}

	ds := &Dataset{
		Title:       "Rapport des Achats",
		Columns:     []string{"Produit", "Quantité", "Montant", "Date"},
		TotalColumn: 2,
	}
	for _, p := range purchases {
		ds.Rows = append(ds.Rows, Row{
			text(p.Product),
			num(p.Quantity),
			num(p.Amount.Francs),
			text(p.Date.String()),
		})
		ds.Total += p.Amount.Francs
	}
	return ds, nil
}

func (a *Aggregator) sales(ctx context.Context, f Filter) (*Dataset, error) {
	sales, err := a.source.GetSales(ctx, f.From, f.To, f.Categories)
	if err != nil {
		return nil, fmt.Errorf("read sales: %w", err)
	}
	if len(sales) == 0 {
		return nil, ErrNoData
	}

	ds := &Dataset{
		Title:       "Rapport des Ventes",
		Columns:     []string{"Date", "Produit", "Catégorie", "Quantité", "Prix Unitaire", "Montant"},
		TotalColumn: 5,
	}
	for _, s := range sales {
		total := s.Total()
		ds.Rows = append(ds.Rows, Row{
			text(s.Date.String()),
			text(s.Product),
			text(s.Category),
			num(s.Quantity),
			num(s.UnitPrice.Francs),
			num(total.Francs),
		})
		ds.Total += total.Francs
	}
	return ds, nil
}

func (a *Aggregator) expenses(ctx context.Context, f Filter) (*Dataset, error) {
	expenses, err := a.source.GetExpenses(ctx, f.From, f.To)
	if err != nil {
		return nil, fmt.Errorf("read expenses: %w", err)
	}
	if len(expenses) == 0 {
		return nil, ErrNoData
	}

	ds := &Dataset{
		Title:       "Rapport des Dépenses",
		Columns:     []string{"Date", "Description", "Catégorie", "Montant"},
		TotalColumn: 3,
	}
	for _, e := range expenses {
		ds.Rows = append(ds.Rows, Row{
			text(e.Date.String()),
			text(e.Description),
			text(e.Category),
			num(e.Amount.Francs),
		})
		ds.Total += e.Amount.Francs
	}
	return ds, nil
}

// kioskPoints aggregates points_journaliers grouped by kiosk number.
// Groups keep the first-seen order of the filtered rows so the document
// layout is stable; each group sums espèces, flotte, crédit and
// commission independently.
func (a *Aggregator) kioskPoints(ctx context.Context, f Filter) (*Dataset, error) {
	points, err := a.source.GetDailyPoints(ctx, f.From, f.To)
	if err != nil {
		return nil, fmt.Errorf("read daily points: %w", err)
	}
	if len(f.Kiosks) > 0 {
		wanted := make(map[int64]bool, len(f.Kiosks))
		for _, k := range f.Kiosks {
			wanted[k] = true
		}
		filtered := points[:0]
		for _, p := range points {
			if wanted[p.Kiosk] {
				filtered = append(filtered, p)
			}
		}
		points = filtered
	}
	if len(points) == 0 {
		return nil, ErrNoData
	}

	ds := &Dataset{
		Title:       "Rapport des Kiosques",
		Columns:     []string{"Date", "Gérant", "Espèces", "Flotte", "Crédit", "Commission"},
		TotalColumn: -1,
	}

	type sums struct{ cash, float, credit, commission int64 }
	index := make(map[int64]int)
	bySums := make(map[int64]*sums)

	for _, p := range points {
		i, seen := index[p.Kiosk]
		if !seen {
			i = len(ds.Groups)
			index[p.Kiosk] = i
			ds.Groups = append(ds.Groups, Group{Key: fmt.Sprintf("Kiosque %d", p.Kiosk)})
			bySums[p.Kiosk] = &sums{}
		}
		ds.Groups[i].Rows = append(ds.Groups[i].Rows, Row{
			text(p.Date.String()),
			text(p.Operator),
			num(p.Cash.Francs),
			num(p.Float.Francs),
			num(p.Credit.Francs),
			num(p.Commission.Francs),
		})
		s := bySums[p.Kiosk]
		s.cash += p.Cash.Francs
		s.float += p.Float.Francs
		s.credit += p.Credit.Francs
		s.commission += p.Commission.Francs
	}

	for kiosk, i := range index {
		s := bySums[kiosk]
		ds.Groups[i].Totals = Row{
			text("TOTAL"),
			text(""),
			num(s.cash),
			num(s.float),
			num(s.credit),
			num(s.commission),
		}
	}

	return ds, nil
}
