package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"capigastos/internal/core"
	"capigastos/internal/ledger"
	"capigastos/internal/log"
	"capigastos/internal/sheets"
)

// PostRequest is one income or expense entered by a household member.
// A zero Date means today in the configured location.
type PostRequest struct {
	Kind        core.Kind
	Account     string
	Category    string
	Amount      decimal.Decimal
	Description string
	User        string
	Date        core.Date
}

// TransferRequest moves Amount from one account to another.
type TransferRequest struct {
	From        string
	To          string
	Amount      decimal.Decimal
	Description string
	User        string
}

// TransferResult carries the two legs written for a transfer.
type TransferResult struct {
	ID  string
	Out core.Transaction
	In  core.Transaction
}

// StageIncomeLeg is the only stage that can leave a transfer half written.
const StageIncomeLeg = "income_leg"

// TransferError reports a transfer whose income leg could not be written.
// When Compensated is true the expense leg was removed again and the ledger
// is unchanged; otherwise the expense leg is an orphan that RepairTransfer
// can complete.
type TransferError struct {
	Stage           string
	TransferID      string
	Compensated     bool
	Err             error
	CompensationErr error
}

func (e *TransferError) Error() string {
	msg := fmt.Sprintf("transfer %s failed at %s: %v", e.TransferID, e.Stage, e.Err)
	if e.Compensated {
		return msg + " (expense leg removed)"
	}
	if e.CompensationErr != nil {
		return fmt.Sprintf("%s (expense leg left in place: %v)", msg, e.CompensationErr)
	}
	return msg
}

func (e *TransferError) Unwrap() error { return e.Err }

// Post validates req and appends one transaction.
func (s *LedgerService) Post(ctx context.Context, req PostRequest) (core.Transaction, error) {
	if err := req.Kind.Validate(); err != nil {
		return core.Transaction{}, core.Invalid("kind", err)
	}
	amount := req.Amount.Round(core.AmountScale)
	if err := core.ValidateAmount(amount); err != nil {
		return core.Transaction{}, core.Invalid("amount", err)
	}
	user, err := s.checkUser(req.User)
	if err != nil {
		return core.Transaction{}, err
	}
	account, err := s.checkAccount(ctx, "account", req.Account)
	if err != nil {
		return core.Transaction{}, err
	}
	category := strings.TrimSpace(req.Category)
	if category == core.TransferCategory {
		return core.Transaction{}, core.Invalidf("category", "%q is reserved for transfers", category)
	}

	at := s.now().In(s.loc)
	tx := core.Transaction{
		Date:        core.DateOf(at),
		Time:        at.Format(core.TimeLayout),
		User:        user,
		Account:     account,
		Kind:        req.Kind,
		Category:    category,
		Amount:      amount,
		Description: strings.TrimSpace(req.Description),
	}
	if !req.Date.IsZero() {
		tx.Date = req.Date
	}
	if _, ok := ledger.ParseTransferTag(tx.Description); ok {
		return core.Transaction{}, core.Invalidf("description", "transfer tags are added by transfers only")
	}

	if err := s.store.AppendRow(ctx, sheets.Transactions, ledger.EncodeTransaction(tx)); err != nil {
		return core.Transaction{}, fmt.Errorf("post transaction: %w", err)
	}
	s.afterWrite(ctx, sheets.Transactions, log.OpPost)

	s.logger.InfoContext(ctx, "Transaction posted",
		log.NewFields().
			WithOperation(log.OpPost).
			WithTransaction(tx.Account, string(tx.Kind), tx.Category, core.FormatAmount(tx.Amount), tx.User).
			ToSlice()...)
	return tx, nil
}

// PostTransfer writes the expense leg on From and then the income leg on To.
// If the income leg fails the expense leg is deleted again; a *TransferError
// reports whether that worked.
func (s *LedgerService) PostTransfer(ctx context.Context, req TransferRequest) (TransferResult, error) {
	from, to := strings.TrimSpace(req.From), strings.TrimSpace(req.To)
	if from == "" || to == "" {
		return TransferResult{}, core.Invalid("account", core.ErrEmptyAccount)
	}
	if from == to {
		return TransferResult{}, core.Invalidf("to", "cannot transfer from %q to itself", from)
	}
	// Validated at the stored precision so sub-cent amounts never reach the store.
	amount := req.Amount.Round(core.AmountScale)
	if err := core.ValidateAmount(amount); err != nil {
		return TransferResult{}, core.Invalid("amount", err)
	}
	user, err := s.checkUser(req.User)
	if err != nil {
		return TransferResult{}, err
	}
	if from, err = s.checkAccount(ctx, "from", from); err != nil {
		return TransferResult{}, err
	}
	if to, err = s.checkAccount(ctx, "to", to); err != nil {
		return TransferResult{}, err
	}

	id := s.newID()
	out, in := ledger.TransferLegs(id, from, to, amount,
		ledger.StripTransferTag(req.Description), user, s.now().In(s.loc))
	logger := s.logger.WithComponent(log.ComponentPosting).With(log.FieldTransferID, id)

	if err := s.store.AppendRow(ctx, sheets.Transactions, ledger.EncodeTransaction(out)); err != nil {
		s.Invalidate(sheets.Transactions)
		return TransferResult{}, fmt.Errorf("post transfer %s: %w", id, err)
	}
	if err := s.store.AppendRow(ctx, sheets.Transactions, ledger.EncodeTransaction(in)); err != nil {
		terr := &TransferError{Stage: StageIncomeLeg, TransferID: id, Err: err}
		if cerr := s.removeLeg(ctx, id, core.Expense); cerr != nil {
			terr.CompensationErr = cerr
			logger.LogError(ctx, "Transfer left with an orphan expense leg", cerr, log.OpTransfer, nil)
		} else {
			terr.Compensated = true
			logger.WarnContext(ctx, "Transfer rolled back after income leg failed",
				log.FieldOperation, log.OpTransfer,
				log.FieldError, err.Error())
		}
		s.afterWrite(ctx, sheets.Transactions, log.OpTransfer)
		return TransferResult{}, terr
	}
	s.afterWrite(ctx, sheets.Transactions, log.OpTransfer)

	logger.InfoContext(ctx, "Transfer posted",
		log.FieldOperation, log.OpTransfer,
		log.FieldAccount, from,
		"to_account", to,
		log.FieldAmount, core.FormatAmount(out.Amount),
		log.FieldUser, user)
	return TransferResult{ID: id, Out: out, In: in}, nil
}

// removeLeg deletes the leg of kind belonging to transfer id, located on a
// fresh read.
func (s *LedgerService) removeLeg(ctx context.Context, id string, kind core.Kind) error {
	book, err := s.transactions.Refresh(ctx)
	if err != nil {
		return err
	}
	t, ok := ledger.FindTransfer(book.Transactions, id)
	leg := t.Out
	if kind == core.Income {
		leg = t.In
	}
	if !ok || leg == nil {
		// Nothing to remove.
		return nil
	}
	return s.store.DeleteRow(ctx, sheets.Transactions, leg.Position)
}

// RepairTransfer appends the missing leg of an orphan transfer. It reports
// false when the transfer already has both legs.
func (s *LedgerService) RepairTransfer(ctx context.Context, id string) (bool, error) {
	book, err := s.transactions.Refresh(ctx)
	if err != nil {
		return false, err
	}
	t, ok := ledger.FindTransfer(book.Transactions, strings.TrimSpace(id))
	if !ok {
		return false, &core.NotFoundError{What: "transfer", Key: id}
	}
	leg, ok := t.MissingLeg()
	if !ok {
		return false, nil
	}
	if err := s.store.AppendRow(ctx, sheets.Transactions, ledger.EncodeTransaction(leg)); err != nil {
		return false, fmt.Errorf("repair transfer %s: %w", id, err)
	}
	s.afterWrite(ctx, sheets.Transactions, log.OpRepair)
	s.logger.InfoContext(ctx, "Transfer repaired",
		log.FieldOperation, log.OpRepair,
		log.FieldTransferID, t.ID,
		log.FieldAccount, leg.Account,
		log.FieldKind, string(leg.Kind))
	return true, nil
}

// Delete removes the transaction at position, checked against a fresh read.
// Positions of later rows shift once it succeeds.
func (s *LedgerService) Delete(ctx context.Context, position int) error {
	book, err := s.transactions.Refresh(ctx)
	if err != nil {
		return err
	}
	if !hasPosition(book, position) {
		return &core.NotFoundError{What: "transaction", Key: strconv.Itoa(position)}
	}
	return s.deleteAt(ctx, position)
}

// DeleteTransaction removes the row holding tx. tx.Position is tried first;
// when another session shifted the rows, the first row with the same
// content is removed instead.
func (s *LedgerService) DeleteTransaction(ctx context.Context, tx core.Transaction) error {
	book, err := s.transactions.Refresh(ctx)
	if err != nil {
		return err
	}
	position := 0
	for _, cur := range book.Transactions {
		if !cur.SameContent(tx) {
			continue
		}
		if cur.Position == tx.Position {
			position = cur.Position
			break
		}
		if position == 0 {
			position = cur.Position
		}
	}
	if position == 0 {
		return &core.NotFoundError{What: "transaction", Key: strconv.Itoa(tx.Position)}
	}
	if position != tx.Position {
		s.logger.InfoContext(ctx, "Transaction moved since it was read",
			log.FieldOperation, log.OpDelete,
			log.FieldPosition, position,
			"read_position", tx.Position)
	}
	return s.deleteAt(ctx, position)
}

func (s *LedgerService) deleteAt(ctx context.Context, position int) error {
	if err := s.store.DeleteRow(ctx, sheets.Transactions, position); err != nil {
		s.Invalidate(sheets.Transactions)
		if errors.Is(err, sheets.ErrRowNotFound) {
			return &core.NotFoundError{What: "transaction", Key: strconv.Itoa(position)}
		}
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.afterWrite(ctx, sheets.Transactions, log.OpDelete)
	s.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldPosition, position)
	return nil
}

// hasPosition accepts parsed rows and dropped rows, so malformed entries can
// be cleaned up too. The header is never a target.
func hasPosition(book ledger.Book, position int) bool {
	for _, tx := range book.Transactions {
		if tx.Position == position {
			return true
		}
	}
	for _, issue := range book.Issues {
		if issue.Position == position {
			return true
		}
	}
	return false
}

func (s *LedgerService) checkUser(user string) (string, error) {
	user = strings.TrimSpace(user)
	for _, u := range s.users {
		if strings.EqualFold(u, user) {
			return u, nil
		}
	}
	return "", core.Invalidf("user", "unknown household member %q", user)
}

// checkAccount requires name in the Accounts snapshot. A miss is confirmed
// against a fresh read since another session may have just added it.
func (s *LedgerService) checkAccount(ctx context.Context, field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", core.Invalid(field, core.ErrEmptyAccount)
	}
	accounts, err := s.accounts.Get(ctx)
	if err != nil {
		return "", err
	}
	if hasAccount(accounts, name) {
		return name, nil
	}
	if accounts, err = s.accounts.Refresh(ctx); err != nil {
		return "", err
	}
	if hasAccount(accounts, name) {
		return name, nil
	}
	return "", core.Invalidf(field, "unknown account %q", name)
}

func hasAccount(accounts []core.Account, name string) bool {
	for _, a := range accounts {
		if a.Name == name {
			return true
		}
	}
	return false
}
