// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// Bodies are decoded strictly and converted into service requests here, so
// handlers only deal with typed values.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"capigastos/internal/core"
	"capigastos/internal/services"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 16

// AmountField accepts an amount sent either as a JSON string ("15,70") or a
// JSON number (15.7). Both go through core.ParseAmount.
type AmountField string

func (a *AmountField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = AmountField(s)
		return nil
	}
	if string(b) == "null" {
		*a = ""
		return nil
	}
	*a = AmountField(b)
	return nil
}

// Amount parses the field as a positive amount.
func (a AmountField) Amount(field string) (decimal.Decimal, error) {
	d, err := core.ParseAmount(string(a))
	if err != nil {
		return decimal.Zero, core.Invalid(field, err)
	}
	return d, nil
}

// Cap parses the field as a budget cap, where zero is allowed.
func (a AmountField) Cap(field string) (decimal.Decimal, error) {
	d, err := core.ParseCap(string(a))
	if err != nil {
		return decimal.Zero, core.Invalid(field, err)
	}
	return d, nil
}

// decodeJSON decodes the request body into dst, rejecting unknown fields
// and trailing data.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	if dec.More() {
		return errors.New("invalid request body: unexpected trailing data")
	}
	return nil
}

// PostTransactionRequest is the body of POST /api/transactions.
type PostTransactionRequest struct {
	Kind        string      `json:"kind"`
	Account     string      `json:"account"`
	Category    string      `json:"category"`
	Amount      AmountField `json:"amount"`
	Description string      `json:"description"`
	User        string      `json:"user"`
	// Date is optional, YYYY-MM-DD; today when empty.
	Date string `json:"date"`
}

// ToService validates the wire fields and builds a services.PostRequest.
func (p PostTransactionRequest) ToService() (services.PostRequest, error) {
	kind, err := core.ParseKind(p.Kind)
	if err != nil {
		return services.PostRequest{}, core.Invalid("kind", err)
	}
	amount, err := p.Amount.Amount("amount")
	if err != nil {
		return services.PostRequest{}, err
	}
	req := services.PostRequest{
		Kind:        kind,
		Account:     sanitizeInput(p.Account),
		Category:    sanitizeInput(p.Category),
		Amount:      amount,
		Description: sanitizeInput(p.Description),
		User:        sanitizeInput(p.User),
	}
	if strings.TrimSpace(p.Date) != "" {
		d, err := parseDate(p.Date)
		if err != nil {
			return services.PostRequest{}, core.Invalid("date", err)
		}
		req.Date = d
	}
	return req, nil
}

// TransferRequest is the body of POST /api/transfers.
type TransferRequest struct {
	From        string      `json:"from"`
	To          string      `json:"to"`
	Amount      AmountField `json:"amount"`
	Description string      `json:"description"`
	User        string      `json:"user"`
}

func (t TransferRequest) ToService() (services.TransferRequest, error) {
	amount, err := t.Amount.Amount("amount")
	if err != nil {
		return services.TransferRequest{}, err
	}
	return services.TransferRequest{
		From:        sanitizeInput(t.From),
		To:          sanitizeInput(t.To),
		Amount:      amount,
		Description: sanitizeInput(t.Description),
		User:        sanitizeInput(t.User),
	}, nil
}

// DeleteTransactionRequest is the optional body of DELETE
// /api/transactions/{position}. When present, the row is matched by content
// so a position shifted by another session's delete still hits the right row.
type DeleteTransactionRequest struct {
	Date        string      `json:"date"`
	Time        string      `json:"time"`
	User        string      `json:"user"`
	Account     string      `json:"account"`
	Kind        string      `json:"kind"`
	Category    string      `json:"category"`
	Amount      AmountField `json:"amount"`
	Description string      `json:"description"`
}

// ToTransaction rebuilds the transaction as it was read at position.
func (d DeleteTransactionRequest) ToTransaction(position int) (core.Transaction, error) {
	date, err := parseDate(d.Date)
	if err != nil {
		return core.Transaction{}, core.Invalid("date", err)
	}
	kind, err := core.ParseKind(d.Kind)
	if err != nil {
		return core.Transaction{}, core.Invalid("kind", err)
	}
	amount, err := d.Amount.Amount("amount")
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		Date:        date,
		Time:        core.NormalizeTime(d.Time),
		User:        strings.TrimSpace(d.User),
		Account:     strings.TrimSpace(d.Account),
		Kind:        kind,
		Category:    strings.TrimSpace(d.Category),
		Amount:      amount,
		Description: strings.TrimSpace(d.Description),
		Position:    position,
	}, nil
}

// AccountRequest is the body of POST /api/accounts.
type AccountRequest struct {
	Name string `json:"name"`
}

// BudgetRequest is the body of POST /api/budgets.
type BudgetRequest struct {
	Category   string      `json:"category"`
	MonthlyCap AmountField `json:"monthly_cap"`
}

// PendingRequest is the body of POST /api/pending.
type PendingRequest struct {
	Description string      `json:"description"`
	Amount      AmountField `json:"amount"`
	DueDate     string      `json:"due_date"`
}

func (p PendingRequest) ToPayment() (core.PendingPayment, error) {
	amount, err := p.Amount.Amount("amount")
	if err != nil {
		return core.PendingPayment{}, err
	}
	due, err := parseDate(p.DueDate)
	if err != nil {
		return core.PendingPayment{}, core.Invalid("due_date", err)
	}
	return core.PendingPayment{Description: sanitizeInput(p.Description), Amount: amount, DueDate: due}, nil
}

// ParsePeriodParams extracts year and month from query parameters. Missing
// values default to the current month in loc; present values must be valid.
func ParsePeriodParams(query url.Values, now time.Time) (core.Period, error) {
	year, month := now.Year(), int(now.Month())
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return core.Period{}, core.Invalidf("year", "invalid year %q", v)
		}
		year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return core.Period{}, core.Invalidf("month", "invalid month %q", v)
		}
		month = m
	}
	p, err := core.NewPeriod(year, month)
	if err != nil {
		return core.Period{}, core.Invalid("period", err)
	}
	return p, nil
}

// parsePosition reads a store row number from a path parameter.
func parsePosition(raw string) (int, error) {
	pos, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || pos < 2 {
		// Row 1 is the header.
		return 0, core.Invalidf("position", "invalid position %q", raw)
	}
	return pos, nil
}
