package services

import (
	"context"
	"fmt"
	"strings"

	"noctambul/internal/core"
	"noctambul/internal/storage"
)

// Operations exposes the mutating business operations. Input is
// validated before any write; the store guarantees one journal entry
// per successful mutation.
type Operations struct {
	storage *storage.SQLiteRepository
}

func NewOperations(storage *storage.SQLiteRepository) *Operations {
	return &Operations{storage: storage}
}

func (o *Operations) AddProduct(ctx context.Context, name string, qty int64) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyProduct
	}
	if qty <= 0 {
		return core.ErrInvalidQuantity
	}
	if err := o.storage.AddProduct(ctx, name, qty); err != nil {
		return fmt.Errorf("add product: %w", err)
	}
	return nil
}

func (o *Operations) SellProduct(ctx context.Context, name string, qty int64) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyProduct
	}
	if qty <= 0 {
		return core.ErrInvalidQuantity
	}
	// Insufficient stock comes back unwrapped so callers can report
	// the current quantity.
	return o.storage.SellProduct(ctx, name, qty)
}

func (o *Operations) RemoveProduct(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyProduct
	}
	if err := o.storage.RemoveProduct(ctx, name); err != nil {
		return fmt.Errorf("remove product: %w", err)
	}
	return nil
}

func (o *Operations) RecordPurchase(ctx context.Context, p core.Purchase) error {
	p.Product = strings.TrimSpace(p.Product)
	if p.Date.IsZero() {
		p.Date = core.Today()
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if err := o.storage.RecordPurchase(ctx, p); err != nil {
		return fmt.Errorf("record purchase: %w", err)
	}
	return nil
}

func (o *Operations) RecordSale(ctx context.Context, s core.Sale) error {
	s.Product = strings.TrimSpace(s.Product)
	s.Category = strings.TrimSpace(s.Category)
	if err := s.Validate(); err != nil {
		return err
	}
	if err := o.storage.RecordSale(ctx, s); err != nil {
		return fmt.Errorf("record sale: %w", err)
	}
	return nil
}

func (o *Operations) RecordExpense(ctx context.Context, e core.Expense) error {
	e.Description = strings.TrimSpace(e.Description)
	e.Category = strings.TrimSpace(e.Category)
	if err := e.Validate(); err != nil {
		return err
	}
	if err := o.storage.RecordExpense(ctx, e); err != nil {
		return fmt.Errorf("record expense: %w", err)
	}
	return nil
}

func (o *Operations) RegisterKiosk(ctx context.Context, k core.Kiosk) error {
	k.Operator = strings.TrimSpace(k.Operator)
	if k.Status == "" {
		k.Status = "ouvert"
	}
	if err := k.Validate(); err != nil {
		return err
	}
	if err := o.storage.RegisterKiosk(ctx, k); err != nil {
		return fmt.Errorf("register kiosk: %w", err)
	}
	return nil
}

func (o *Operations) RecordDailyPoint(ctx context.Context, p core.DailyKioskPoint) error {
	p.Operator = strings.TrimSpace(p.Operator)
	if err := p.Validate(); err != nil {
		return err
	}
	if err := o.storage.RecordDailyPoint(ctx, p); err != nil {
		return fmt.Errorf("record daily point: %w", err)
	}
	return nil
}

// AddRecipients validates and adds emails to the recipient set,
// skipping duplicates.
func (o *Operations) AddRecipients(ctx context.Context, emails []string) error {
	var cleaned []string
	for _, email := range emails {
		email = strings.TrimSpace(email)
		if email == "" {
			continue
		}
		if err := core.ValidateEmail(email); err != nil {
			return fmt.Errorf("recipient %q: %w", email, err)
		}
		cleaned = append(cleaned, email)
	}
	if len(cleaned) == 0 {
		return core.ErrInvalidEmail
	}
	if err := o.storage.AddRecipients(ctx, cleaned); err != nil {
		return fmt.Errorf("add recipients: %w", err)
	}
	return nil
}

func (o *Operations) RemoveRecipient(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if err := core.ValidateEmail(email); err != nil {
		return err
	}
	if err := o.storage.RemoveRecipient(ctx, email); err != nil {
		return fmt.Errorf("remove recipient: %w", err)
	}
	return nil
}

func (o *Operations) ListRecipients(ctx context.Context) ([]string, error) {
	return o.storage.ListRecipients(ctx)
}

func (o *Operations) GetStock(ctx context.Context) ([]core.StockItem, error) {
	return o.storage.GetStock(ctx)
}

func (o *Operations) GetJournal(ctx context.Context) ([]core.JournalEntry, error) {
	return o.storage.GetJournal(ctx)
}
