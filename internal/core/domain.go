package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Journal action kinds. The French labels are part of the persisted
// journal format and must not be translated.
const (
	ActionAjout       ActionKind = "Ajout"
	ActionVente       ActionKind = "Vente"
	ActionSuppression ActionKind = "Suppression Produit"
	ActionAchatLocal  ActionKind = "Achat local"
	ActionVenteBar    ActionKind = "Vente enregistrée"
	ActionDepense     ActionKind = "Dépense"
	ActionKiosque     ActionKind = "Ouverture Kiosque"
	ActionPointJour   ActionKind = "Point Journalier"
)

type (
	ActionKind string

	Date struct {
		time.Time
	}

	// StockItem is the current quantity on hand for one product.
	StockItem struct {
		Name     string
		Quantity int64
	}

	// JournalEntry is one append-only audit row. Every mutating
	// operation writes exactly one of these in the same transaction.
	JournalEntry struct {
		ID       int64
		Action   ActionKind
		Product  string
		Quantity int64
		Amount   Money
		At       time.Time
	}

	Purchase struct {
		Product  string
		Quantity int64
		Amount   Money
		Date     Date
	}

	Sale struct {
		Date      Date
		Product   string
		Category  string
		Quantity  int64
		UnitPrice Money
	}

	Expense struct {
		Date        Date
		Description string
		Category    string
		Amount      Money
	}

	Kiosk struct {
		Number     int64
		Status     string
		OpenedAt   Date
		ClosedAt   Date
		Operator   string
		Balance    Money
		Commission Money
	}

	// DailyKioskPoint is the per-day cash position of one kiosk.
	DailyKioskPoint struct {
		Date       Date
		Kiosk      int64
		Operator   string
		Cash       Money
		Float      Money
		Credit     Money
		Commission Money
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyProduct     = errors.New("empty product name")
	ErrInvalidQuantity  = errors.New("invalid quantity")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrLongDescription  = errors.New("description too long (max 200 characters)")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyOperator    = errors.New("empty operator")
	ErrInvalidKiosk     = errors.New("invalid kiosk number")
	ErrInvalidEmail     = errors.New("invalid email address")
)

// ErrInsufficientStock is returned when a sale exceeds the quantity on
// hand. Available carries the current quantity so callers can report it.
type ErrInsufficientStock struct {
	Product   string
	Requested int64
	Available int64
}

func (e *ErrInsufficientStock) Error() string {
	return fmt.Sprintf("stock insuffisant pour %s: demandé %d, actuel %d", e.Product, e.Requested, e.Available)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current local date.
func Today() Date {
	now := time.Now()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// ParseDate parses the YYYY-MM-DD form used throughout the store.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// String renders the store form, YYYY-MM-DD.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (s StockItem) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyProduct
	}
	if s.Quantity < 0 {
		return ErrInvalidQuantity
	}
	return nil
}

func (p Purchase) Validate() error {
	if strings.TrimSpace(p.Product) == "" {
		return ErrEmptyProduct
	}
	if p.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	return p.Amount.Validate()
}

func (s Sale) Validate() error {
	if err := s.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(s.Product) == "" {
		return ErrEmptyProduct
	}
	if strings.TrimSpace(s.Category) == "" {
		return ErrEmptyCategory
	}
	if s.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	return s.UnitPrice.Validate()
}

// Total is quantity times unit price.
func (s Sale) Total() Money {
	return Money{Francs: s.Quantity * s.UnitPrice.Francs}
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return ErrLongDescription
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	return e.Amount.Validate()
}

func (k Kiosk) Validate() error {
	if k.Number <= 0 {
		return ErrInvalidKiosk
	}
	if strings.TrimSpace(k.Operator) == "" {
		return ErrEmptyOperator
	}
	return k.OpenedAt.Validate()
}

func (p DailyKioskPoint) Validate() error {
	if err := p.Date.Validate(); err != nil {
		return err
	}
	if p.Kiosk <= 0 {
		return ErrInvalidKiosk
	}
	if strings.TrimSpace(p.Operator) == "" {
		return ErrEmptyOperator
	}
	// Zero amounts are legitimate for a quiet day; negatives are not.
	for _, m := range []Money{p.Cash, p.Float, p.Credit, p.Commission} {
		if m.Francs < 0 {
			return ErrInvalidAmount
		}
	}
	return nil
}

// ValidateEmail performs the minimal shape check the recipient list needs.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 || !strings.Contains(email[at+1:], ".") {
		return ErrInvalidEmail
	}
	return nil
}
