package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"noctambul/internal/core"

	_ "modernc.org/sqlite"
)

// journalTimeLayout is the persisted timestamp format of the activity
// journal, minute precision.
const journalTimeLayout = "2006-01-02 15:04"

// SQLiteRepository is the ledger store. All writes go through a single
// mutex so concurrent handler dispatches never interleave inside one
// unit of work; every mutating operation appends exactly one journal
// row within the same transaction.
type SQLiteRepository struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRepository opens (creating if absent) the store at dbPath,
// runs migrations and seeds the owner recipient.
func NewSQLiteRepository(dbPath, ownerEmail string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{db: db}

	if ownerEmail != "" {
		if _, err := db.Exec(`INSERT OR IGNORE INTO destinataires (email) VALUES (?)`, ownerEmail); err != nil {
			db.Close()
			return nil, fmt.Errorf("seed owner recipient: %w", err)
		}
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func appendJournal(tx *sql.Tx, action core.ActionKind, product string, quantity int64, amount int64) error {
	_, err := tx.Exec(
		`INSERT INTO journal (action, produit, quantite, montant, date_action) VALUES (?, ?, ?, ?, ?)`,
		string(action), product, quantity, amount, time.Now().Format(journalTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("append journal: %w", err)
	}
	return nil
}

// withWriteTx serializes writers and wraps fn in one transaction.
func (r *SQLiteRepository) withWriteTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// AddProduct creates the stock row on first use and adds qty to it.
func (r *SQLiteRepository) AddProduct(ctx context.Context, name string, qty int64) error {
	err := r.withWriteTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO stock (produit, quantite) VALUES (?, 0)`, name); err != nil {
			return fmt.Errorf("insert stock row: %w", err)
		}
		if _, err := tx.Exec(`UPDATE stock SET quantite = quantite + ? WHERE produit = ?`, qty, name); err != nil {
			return fmt.Errorf("increment stock: %w", err)
		}
		return appendJournal(tx, core.ActionAjout, name, qty, 0)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Product added to stock", "product", name, "quantity", qty)
	return nil
}

// SellProduct decrements stock, rejecting the sale when the quantity on
// hand is insufficient. Nothing changes on rejection.
func (r *SQLiteRepository) SellProduct(ctx context.Context, name string, qty int64) error {
	err := r.withWriteTx(ctx, func(tx *sql.Tx) error {
		var current int64
		err := tx.QueryRow(`SELECT quantite FROM stock WHERE produit = ?`, name).Scan(&current)
		if err == sql.ErrNoRows {
			return &core.ErrInsufficientStock{Product: name, Requested: qty, Available: 0}
		}
		if err != nil {
			return fmt.Errorf("read stock: %w", err)
		}
		if current < qty {
			return &core.ErrInsufficientStock{Product: name, Requested: qty, Available: current}
		}
		if _, err := tx.Exec(`UPDATE stock SET quantite = quantite - ? WHERE produit = ?`, qty, name); err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}
		return appendJournal(tx, core.ActionVente, name, qty, 0)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Product sold", "product", name, "quantity", qty)
	return nil
}

// RemoveProduct deletes the stock row. Purchase, sale and journal
// history referencing the product by name is left in place.
func (r *SQLiteRepository) RemoveProduct(ctx context.Context, name string) error {
	err := r.withWriteTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM stock WHERE produit = ?`, name); err != nil {
			return fmt.Errorf("delete stock row: %w", err)
		}
		return appendJournal(tx, core.ActionSuppression, name, 0, 0)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Product removed from stock", "product", name)
	return nil
}

// RecordPurchase logs a restock purchase and adds the bought quantity
// to stock in the same unit of work.
func (r *SQLiteRepository) RecordPurchase(ctx context.Context, p core.Purchase) error {
	err := r.withWriteTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO achats (produit, quantite, montant, date_achat) VALUES (?, ?, ?, ?)`,
			p.Product, p.Quantity, p.Amount.Francs, p.Date.String(),
		)
		if err != nil {
			return fmt.Errorf("insert purchase: %w", err)
		}
		if _, err := tx.Exec(`INSERT OR IGNORE INTO stock (produit, quantite) VALUES (?, 0)`, p.Product); err != nil {
			return fmt.Errorf("insert stock row: %w", err)
		}
		if _, err := tx.Exec(`UPDATE stock SET quantite = quantite + ? WHERE produit = ?`, p.Quantity, p.Product); err != nil {
			return fmt.Errorf("increment stock: %w", err)
		}
		return appendJournal(tx, core.ActionAchatLocal, p.Product, p.Quantity, p.Amount.Francs)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Purchase recorded", "product", p.Product, "quantity", p.Quantity, "amount", p.Amount.Francs)
	return nil
}

// RecordSale logs a bar/restaurant sale fact. The total is quantity
// times unit price; current stock is not touched.
func (r *SQLiteRepository) RecordSale(ctx context.Context, s core.Sale) error {
	total := s.Total()
	err := r.withWriteTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO ventes (date_vente, produit, categorie, quantite, prix_unitaire, montant) VALUES (?, ?, ?, ?, ?, ?)`,
			s.Date.String(), s.Product, s.Category, s.Quantity, s.UnitPrice.Francs, total.Francs,
		)
		if err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}
		return appendJournal(tx, core.ActionVenteBar, s.Product, s.Quantity, total.Francs)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Sale recorded", "product", s.Product, "quantity", s.Quantity, "amount", total.Francs)
	return nil
}

// RecordExpense logs an expense fact.
func (r *SQLiteRepository) RecordExpense(ctx context.Context, e core.Expense) error {
	err := r.withWriteTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO depenses (date_depense, description, categorie, montant) VALUES (?, ?, ?, ?)`,
			e.Date.String(), e.Description, e.Category, e.Amount.Francs,
		)
		if err != nil {
			return fmt.Errorf("insert expense: %w", err)
		}
		return appendJournal(tx, core.ActionDepense, e.Description, 0, e.Amount.Francs)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Expense recorded", "description", e.Description, "amount", e.Amount.Francs)
	return nil
}

// RegisterKiosk inserts a kiosk row. There is no update in place; a
// kiosk state change is a fresh registration under a new number.
func (r *SQLiteRepository) RegisterKiosk(ctx context.Context, k core.Kiosk) error {
	closedAt := ""
	if !k.ClosedAt.IsZero() {
		closedAt = k.ClosedAt.String()
	}
	err := r.withWriteTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO kiosques (numero, statut, date_ouverture, date_fermeture, gerant, solde, commission_cumulee) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			k.Number, k.Status, k.OpenedAt.String(), closedAt, k.Operator, k.Balance.Francs, k.Commission.Francs,
		)
		if err != nil {
			return fmt.Errorf("insert kiosk: %w", err)
		}
		return appendJournal(tx, core.ActionKiosque, fmt.Sprintf("Kiosque %d", k.Number), 0, k.Balance.Francs)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Kiosk registered", "number", k.Number, "operator", k.Operator)
	return nil
}

// RecordDailyPoint appends the per-day snapshot of one kiosk.
func (r *SQLiteRepository) RecordDailyPoint(ctx context.Context, p core.DailyKioskPoint) error {
	err := r.withWriteTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO points_journaliers (date_point, numero_kiosque, gerant, especes, flotte, credit, commission) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.Date.String(), p.Kiosk, p.Operator, p.Cash.Francs, p.Float.Francs, p.Credit.Francs, p.Commission.Francs,
		)
		if err != nil {
			return fmt.Errorf("insert daily point: %w", err)
		}
		return appendJournal(tx, core.ActionPointJour, fmt.Sprintf("Kiosque %d", p.Kiosk), 0, p.Cash.Francs)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Daily kiosk point recorded", "kiosk", p.Kiosk, "date", p.Date.String())
	return nil
}

// GetStock returns the current stock ordered by product name.
func (r *SQLiteRepository) GetStock(ctx context.Context) ([]core.StockItem, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT produit, quantite FROM stock ORDER BY produit ASC`)
	if err != nil {
		return nil, fmt.Errorf("query stock: %w", err)
	}
	defer rows.Close()

	var items []core.StockItem
	for rows.Next() {
		var it core.StockItem
		if err := rows.Scan(&it.Name, &it.Quantity); err != nil {
			return nil, fmt.Errorf("scan stock row: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// GetJournal returns the activity journal, most recent first.
func (r *SQLiteRepository) GetJournal(ctx context.Context) ([]core.JournalEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, action, produit, quantite, montant, date_action FROM journal ORDER BY date_action DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	return scanJournal(rows)
}

func scanJournal(rows *sql.Rows) ([]core.JournalEntry, error) {
	var entries []core.JournalEntry
	for rows.Next() {
		var (
			e      core.JournalEntry
			action string
			at     string
		)
		if err := rows.Scan(&e.ID, &action, &e.Product, &e.Quantity, &e.Amount.Francs, &at); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		e.Action = core.ActionKind(action)
		if t, err := time.ParseInLocation(journalTimeLayout, at, time.Local); err == nil {
			e.At = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// dateRangeClause builds the inclusive bounds filter shared by the
// report reads. Empty bounds are unbounded.
func dateRangeClause(column string, from, to core.Date) (string, []any) {
	clause := ""
	var args []any
	if !from.IsZero() {
		clause += " AND " + column + " >= ?"
		args = append(args, from.String())
	}
	if !to.IsZero() {
		clause += " AND " + column + " <= ?"
		args = append(args, to.String())
	}
	return clause, args
}

// GetPurchases returns purchases within the inclusive date range.
func (r *SQLiteRepository) GetPurchases(ctx context.Context, from, to core.Date) ([]core.Purchase, error) {
	clause, args := dateRangeClause("date_achat", from, to)
	rows, err := r.db.QueryContext(ctx,
		`SELECT produit, quantite, montant, date_achat FROM achats WHERE 1=1`+clause+` ORDER BY id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("query purchases: %w", err)
	}
	defer rows.Close()

	var out []core.Purchase
	for rows.Next() {
		var (
			p core.Purchase
			d string
		)
		if err := rows.Scan(&p.Product, &p.Quantity, &p.Amount.Francs, &d); err != nil {
			return nil, fmt.Errorf("scan purchase row: %w", err)
		}
		if parsed, err := core.ParseDate(d); err == nil {
			p.Date = parsed
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetSales returns sales within the inclusive date range, optionally
// restricted to a category set.
func (r *SQLiteRepository) GetSales(ctx context.Context, from, to core.Date, categories []string) ([]core.Sale, error) {
	clause, args := dateRangeClause("date_vente", from, to)
	if len(categories) > 0 {
		clause += " AND categorie IN (?" + repeatPlaceholder(len(categories)-1) + ")"
		for _, c := range categories {
			args = append(args, c)
		}
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT date_vente, produit, categorie, quantite, prix_unitaire FROM ventes WHERE 1=1`+clause+` ORDER BY id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("query sales: %w", err)
	}
	defer rows.Close()

	var out []core.Sale
	for rows.Next() {
		var (
			s core.Sale
			d string
		)
		if err := rows.Scan(&d, &s.Product, &s.Category, &s.Quantity, &s.UnitPrice.Francs); err != nil {
			return nil, fmt.Errorf("scan sale row: %w", err)
		}
		if parsed, err := core.ParseDate(d); err == nil {
			s.Date = parsed
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetExpenses returns expenses within the inclusive date range.
func (r *SQLiteRepository) GetExpenses(ctx context.Context, from, to core.Date) ([]core.Expense, error) {
	clause, args := dateRangeClause("date_depense", from, to)
	rows, err := r.db.QueryContext(ctx,
		`SELECT date_depense, description, categorie, montant FROM depenses WHERE 1=1`+clause+` ORDER BY id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			e core.Expense
			d string
		)
		if err := rows.Scan(&d, &e.Description, &e.Category, &e.Amount.Francs); err != nil {
			return nil, fmt.Errorf("scan expense row: %w", err)
		}
		if parsed, err := core.ParseDate(d); err == nil {
			e.Date = parsed
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetDailyPoints returns kiosk daily points within the inclusive date
// range, in insertion order so grouped reports keep first-seen kiosk
// order.
func (r *SQLiteRepository) GetDailyPoints(ctx context.Context, from, to core.Date) ([]core.DailyKioskPoint, error) {
	clause, args := dateRangeClause("date_point", from, to)
	rows, err := r.db.QueryContext(ctx,
		`SELECT date_point, numero_kiosque, gerant, especes, flotte, credit, commission FROM points_journaliers WHERE 1=1`+clause+` ORDER BY id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("query daily points: %w", err)
	}
	defer rows.Close()

	var out []core.DailyKioskPoint
	for rows.Next() {
		var (
			p core.DailyKioskPoint
			d string
		)
		if err := rows.Scan(&d, &p.Kiosk, &p.Operator, &p.Cash.Francs, &p.Float.Francs, &p.Credit.Francs, &p.Commission.Francs); err != nil {
			return nil, fmt.Errorf("scan daily point row: %w", err)
		}
		if parsed, err := core.ParseDate(d); err == nil {
			p.Date = parsed
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListRecipients returns the recipient email set.
func (r *SQLiteRepository) ListRecipients(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT email FROM destinataires ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query recipients: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan recipient row: %w", err)
		}
		out = append(out, email)
	}
	return out, rows.Err()
}

// AddRecipients adds emails to the recipient set, ignoring duplicates.
func (r *SQLiteRepository) AddRecipients(ctx context.Context, emails []string) error {
	return r.withWriteTx(ctx, func(tx *sql.Tx) error {
		for _, email := range emails {
			if _, err := tx.Exec(`INSERT OR IGNORE INTO destinataires (email) VALUES (?)`, email); err != nil {
				return fmt.Errorf("insert recipient %s: %w", email, err)
			}
		}
		return nil
	})
}

// RemoveRecipient removes one email from the recipient set. Removing
// the seeded owner is allowed here; the HTTP surface refuses it.
func (r *SQLiteRepository) RemoveRecipient(ctx context.Context, email string) error {
	return r.withWriteTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM destinataires WHERE email = ?`, email); err != nil {
			return fmt.Errorf("delete recipient: %w", err)
		}
		return nil
	})
}

// TryMarkReportRun records the automatic-report window and reports
// whether this call won it. A second call for the same window returns
// false, which is the dedupe for the scheduled trigger.
func (r *SQLiteRepository) TryMarkReportRun(ctx context.Context, window string) (bool, error) {
	var won bool
	err := r.withWriteTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.Exec(
			`INSERT OR IGNORE INTO report_runs (window, sent_at) VALUES (?, ?)`,
			window, time.Now().Format(journalTimeLayout),
		)
		if err != nil {
			return fmt.Errorf("insert report run: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		won = n > 0
		return nil
	})
	return won, err
}

// GetUnmirroredJournal returns journal rows not yet pushed to the
// spreadsheet mirror, oldest first.
func (r *SQLiteRepository) GetUnmirroredJournal(ctx context.Context, limit int) ([]core.JournalEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, action, produit, quantite, montant, date_action FROM journal WHERE mirrored = 0 ORDER BY id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query unmirrored journal: %w", err)
	}
	defer rows.Close()

	return scanJournal(rows)
}

// MarkJournalMirrored flags journal rows up to and including id as
// mirrored.
func (r *SQLiteRepository) MarkJournalMirrored(ctx context.Context, upTo int64) error {
	return r.withWriteTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`UPDATE journal SET mirrored = 1 WHERE id <= ? AND mirrored = 0`, upTo); err != nil {
			return fmt.Errorf("mark journal mirrored: %w", err)
		}
		return nil
	})
}

func repeatPlaceholder(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		s += ", ?"
	}
	return s
}
