package ledger

import (
	"testing"
	"time"

	"capigastos/internal/core"
)

func TestTransferTag(t *testing.T) {
	tag := TransferTag{ID: "6f1c-22", Direction: To, Counterparty: "Banco BCP"}
	desc := TagDescription("ahorro", tag)
	if desc != "ahorro [transfer:6f1c-22 to:Banco BCP]" {
		t.Fatalf("unexpected description %q", desc)
	}
	got, ok := ParseTransferTag(desc)
	if !ok || got != tag {
		t.Fatalf("ParseTransferTag(%q) = %+v %v", desc, got, ok)
	}
	if StripTransferTag(desc) != "ahorro" {
		t.Fatalf("unexpected stripped description %q", StripTransferTag(desc))
	}
	if _, ok := ParseTransferTag("almuerzo"); ok {
		t.Fatalf("plain description parsed as transfer")
	}
	if TagDescription("  ", tag) != tag.String() {
		t.Fatalf("blank description should yield the bare tag")
	}
}

func TestTransferLegs(t *testing.T) {
	at := time.Date(2025, time.October, 14, 9, 5, 7, 0, time.UTC)
	out, in := TransferLegs("id-1", "Cash", "Bank", dec("20"), "", "Krys", at)

	if out.Kind != core.Expense || out.Account != "Cash" || in.Kind != core.Income || in.Account != "Bank" {
		t.Fatalf("unexpected legs %+v %+v", out, in)
	}
	if !out.Date.Equal(in.Date.Time) || out.Time != "09:05:07" || out.Time != in.Time || !out.Amount.Equal(in.Amount) {
		t.Fatalf("legs must share date, time and amount")
	}
	if out.Category != core.TransferCategory || in.Category != core.TransferCategory {
		t.Fatalf("unexpected categories")
	}
	if out.Description != "[transfer:id-1 to:Bank]" || in.Description != "[transfer:id-1 from:Cash]" {
		t.Fatalf("unexpected tags %q %q", out.Description, in.Description)
	}
}

func TestOrphanTransfersAndMissingLeg(t *testing.T) {
	at := time.Date(2025, time.October, 14, 9, 0, 0, 0, time.UTC)
	out1, in1 := TransferLegs("a", "Cash", "Bank", dec("20"), "", "Krys", at)
	out2, _ := TransferLegs("b", "Bank", "Cash", dec("5"), "vuelto", "Rodrigo", at)
	out2.Position = 9
	txs := []core.Transaction{out1, tx(core.Expense, "Cash", "Food", "1", 2), in1, out2}

	if len(Transfers(txs)) != 2 {
		t.Fatalf("expected 2 transfers")
	}
	orphans := OrphanTransfers(txs)
	if len(orphans) != 1 || orphans[0].ID != "b" || orphans[0].In != nil {
		t.Fatalf("unexpected orphans %+v", orphans)
	}

	leg, ok := orphans[0].MissingLeg()
	if !ok {
		t.Fatalf("expected a rebuilt leg")
	}
	if leg.Kind != core.Income || leg.Account != "Cash" || leg.Position != 0 || !leg.Amount.Equal(dec("5")) {
		t.Fatalf("unexpected rebuilt leg %+v", leg)
	}
	if leg.Description != "vuelto [transfer:b from:Bank]" {
		t.Fatalf("unexpected rebuilt description %q", leg.Description)
	}

	if full, ok := FindTransfer(txs, "a"); !ok || !full.Complete() {
		t.Fatalf("expected complete transfer a")
	}
	if _, ok := FindTransfer(txs, "zzz"); ok {
		t.Fatalf("unexpected transfer found")
	}
}
