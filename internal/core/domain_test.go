package core

import (
	"strings"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2026, 1, 1), true},
		{NewDate(2026, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-08-30")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.String() != "2026-08-30" {
		t.Fatalf("round trip mismatch: %s", d)
	}
	if _, err := ParseDate("30/08/2026"); err == nil {
		t.Fatalf("expected error for wrong layout")
	}
}

func TestSaleValidateAndTotal(t *testing.T) {
	good := Sale{
		Date:      NewDate(2026, 8, 30),
		Product:   "Poulet braisé",
		Category:  "Plat",
		Quantity:  5,
		UnitPrice: Money{Francs: 500},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if got := good.Total().Francs; got != 2500 {
		t.Fatalf("expected total 2500, got %d", got)
	}

	bads := []Sale{
		{Product: "a", Category: "c", Quantity: 1, UnitPrice: Money{Francs: 1}}, // zero date
		{Date: NewDate(2026, 1, 1), Product: "", Category: "c", Quantity: 1, UnitPrice: Money{Francs: 1}},
		{Date: NewDate(2026, 1, 1), Product: "a", Category: "", Quantity: 1, UnitPrice: Money{Francs: 1}},
		{Date: NewDate(2026, 1, 1), Product: "a", Category: "c", Quantity: 0, UnitPrice: Money{Francs: 1}},
		{Date: NewDate(2026, 1, 1), Product: "a", Category: "c", Quantity: 1, UnitPrice: Money{Francs: 0}},
	}
	for i, s := range bads {
		if err := s.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		Date:        NewDate(2026, 8, 30),
		Description: "Gaz",
		Category:    "Cuisine",
		Amount:      Money{Francs: 12000},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Expense{
		{Description: "a", Category: "c", Amount: Money{Francs: 1}}, // zero date
		{Date: NewDate(2026, 1, 1), Description: "", Category: "c", Amount: Money{Francs: 1}},
		{Date: NewDate(2026, 1, 1), Description: "a", Category: "", Amount: Money{Francs: 1}},
		{Date: NewDate(2026, 1, 1), Description: "a", Category: "c", Amount: Money{Francs: 0}},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDailyKioskPointValidate(t *testing.T) {
	good := DailyKioskPoint{
		Date:       NewDate(2026, 8, 30),
		Kiosk:      2,
		Operator:   "Awa",
		Cash:       Money{Francs: 150000},
		Float:      Money{Francs: 80000},
		Credit:     Money{Francs: 0},
		Commission: Money{Francs: 2300},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bad := good
	bad.Kiosk = 0
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for kiosk 0")
	}
	bad = good
	bad.Credit = Money{Francs: -1}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for negative credit")
	}
}

func TestInsufficientStockError(t *testing.T) {
	err := &ErrInsufficientStock{Product: "Beer", Requested: 20, Available: 7}
	msg := err.Error()
	if msg == "" {
		t.Fatalf("expected message")
	}
	for _, want := range []string{"Beer", "20", "7"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message %q missing %q", msg, want)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"patron@gmail.com", true},
		{" gerant@noctambul.bj ", true},
		{"", false},
		{"no-at-sign", false},
		{"@gmail.com", false},
		{"x@", false},
		{"x@nodot", false},
	}
	for _, tc := range cases {
		err := ValidateEmail(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("%q expected ok, got %v", tc.in, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}
