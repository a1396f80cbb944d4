package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"capigastos/internal/amqp"
	"capigastos/internal/ledger"
	"capigastos/internal/services"
	"capigastos/internal/sheets"
	"capigastos/internal/sheets/memory"
)

var fixedNow = time.Date(2025, time.October, 14, 9, 30, 0, 0, time.UTC)

func newLedger(t *testing.T) (*services.LedgerService, *memory.Store) {
	t.Helper()
	mem := memory.New()
	mem.Seed(sheets.Accounts, sheets.Row{"Cash"}, sheets.Row{"Bank"})
	return services.NewLedgerService(mem, services.Options{Now: func() time.Time { return fixedNow }}), mem
}

type fakeConsumer struct {
	msgs []*amqp.ChangeMessage
	errs []error
}

func (f *fakeConsumer) ConsumeChanges(_ context.Context, handler func(*amqp.ChangeMessage) error) error {
	for _, m := range f.msgs {
		f.errs = append(f.errs, handler(m))
	}
	return nil
}

func TestHandleChangeMessageInvalidatesTable(t *testing.T) {
	svc, mem := newLedger(t)
	w := NewChangeWorker(svc, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := svc.Accounts(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if n := mem.Calls(memory.OpList, sheets.Accounts); n != 1 {
		t.Fatalf("expected cached accounts, got %d reads", n)
	}

	consumer := &fakeConsumer{msgs: []*amqp.ChangeMessage{
		amqp.NewChangeMessage(sheets.Accounts, "append", "other-instance"),
		{Table: "nope"},
	}}
	if err := w.Run(ctx, consumer); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if consumer.errs[0] != nil {
		t.Fatalf("valid message rejected: %v", consumer.errs[0])
	}
	if !errors.Is(consumer.errs[1], sheets.ErrUnknownTable) {
		t.Fatalf("expected ErrUnknownTable, got %v", consumer.errs[1])
	}
	if w.Applied() != 1 {
		t.Fatalf("Applied = %d, want 1", w.Applied())
	}

	if _, err := svc.Accounts(ctx); err != nil {
		t.Fatal(err)
	}
	if n := mem.Calls(memory.OpList, sheets.Accounts); n != 2 {
		t.Fatalf("expected a reload after the notification, got %d reads", n)
	}
}

func TestStartupCheckReportsOrphans(t *testing.T) {
	svc, mem := newLedger(t)
	w := NewChangeWorker(svc, nil)
	ctx := context.Background()

	orphans, err := w.StartupCheck(ctx)
	if err != nil || len(orphans) != 0 {
		t.Fatalf("clean ledger: orphans=%v err=%v", orphans, err)
	}

	out, _ := ledger.TransferLegs("t-1", "Cash", "Bank", decimal.RequireFromString("20"), "", "Krys", fixedNow)
	mem.Seed(sheets.Transactions, ledger.EncodeTransaction(out))
	svc.Invalidate(sheets.Transactions)

	orphans, err = w.StartupCheck(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(orphans) != 1 || orphans[0].ID != "t-1" || orphans[0].In != nil {
		t.Fatalf("unexpected orphans %+v", orphans)
	}
}

func TestStartupCheckPropagatesStoreErrors(t *testing.T) {
	svc, mem := newLedger(t)
	mem.SetFault(func(op string, table sheets.Table) error {
		if table == sheets.Accounts {
			return sheets.ErrRateLimited
		}
		return nil
	})
	if _, err := NewChangeWorker(svc, nil).StartupCheck(context.Background()); !errors.Is(err, sheets.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}
