package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

const (
	Income  Kind = "Ingreso"
	Expense Kind = "Gasto"
)

// TransferCategory is the category written on both legs of a transfer.
const TransferCategory = "Transferencia"

type (
	Kind string

	Date struct {
		time.Time
	}

	Transaction struct {
		Date        Date
		Time        string // HH:MM:SS
		User        string
		Account     string
		Kind        Kind
		Category    string
		Amount      decimal.Decimal
		Description string
		// Position is the store row number the transaction was read from.
		// It is only meaningful against the snapshot that produced it.
		Position int
		// TransferID links the two legs of a transfer. Empty for ordinary rows.
		TransferID string
	}

	Account struct {
		Name string
	}

	Budget struct {
		Category   string
		MonthlyCap decimal.Decimal
	}

	PendingPayment struct {
		Description string
		Amount      decimal.Decimal
		DueDate     Date
		Position    int
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidKind      = errors.New("invalid kind")
	ErrEmptyAccount     = errors.New("empty account")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
)

var fold = cases.Fold()

// ParseKind accepts the stored Spanish names and their English equivalents,
// ignoring case.
func ParseKind(s string) (Kind, error) {
	switch fold.String(strings.TrimSpace(s)) {
	case "ingreso", "income":
		return Income, nil
	case "gasto", "expense":
		return Expense, nil
	}
	return "", ErrInvalidKind
}

func (k Kind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	}
	return ErrInvalidKind
}

// Opposite returns the kind of the other leg of a transfer.
func (k Kind) Opposite() Kind {
	if k == Income {
		return Expense
	}
	return Income
}

// Signed returns the amount with the sign implied by the kind.
func (t Transaction) Signed() decimal.Decimal {
	if t.Kind == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// IsTransferLeg reports whether the transaction is one leg of a transfer.
func (t Transaction) IsTransferLeg() bool {
	return t.TransferID != ""
}

// SameContent reports whether two transactions carry the same stored fields,
// ignoring Position.
func (t Transaction) SameContent(o Transaction) bool {
	return t.Date.Equal(o.Date.Time) &&
		t.Time == o.Time &&
		t.User == o.User &&
		t.Account == o.Account &&
		t.Kind == o.Kind &&
		t.Category == o.Category &&
		t.Amount.Equal(o.Amount) &&
		t.Description == o.Description
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if err := t.Kind.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Account) == "" {
		return ErrEmptyAccount
	}
	return ValidateAmount(t.Amount)
}

// ValidateAmount rejects zero and negative amounts; direction is carried by Kind.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if b.MonthlyCap.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (p PendingPayment) Validate() error {
	if strings.TrimSpace(p.Description) == "" {
		return ErrEmptyDescription
	}
	if err := ValidateAmount(p.Amount); err != nil {
		return err
	}
	return p.DueDate.Validate()
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// String returns the canonical YYYY-MM-DD form.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)
