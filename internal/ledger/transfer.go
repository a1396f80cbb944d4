package ledger

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"capigastos/internal/core"
)

// Direction says which side of a transfer a leg's tag points to.
type Direction string

const (
	To   Direction = "to"
	From Direction = "from"
)

// TransferTag is the marker carried in the description of each leg:
// "[transfer:<id> to:<account>]" on the expense leg and
// "[transfer:<id> from:<account>]" on the income leg.
type TransferTag struct {
	ID           string
	Direction    Direction
	Counterparty string
}

var tagPattern = regexp.MustCompile(`\s*\[transfer:([A-Za-z0-9-]+) (to|from):([^\]]*)\]`)

func (t TransferTag) String() string {
	return "[transfer:" + t.ID + " " + string(t.Direction) + ":" + t.Counterparty + "]"
}

// ParseTransferTag extracts the tag from a description.
func ParseTransferTag(description string) (TransferTag, bool) {
	m := tagPattern.FindStringSubmatch(description)
	if m == nil {
		return TransferTag{}, false
	}
	return TransferTag{ID: m[1], Direction: Direction(m[2]), Counterparty: strings.TrimSpace(m[3])}, true
}

// StripTransferTag returns the user-written part of a description.
func StripTransferTag(description string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(description, ""))
}

// TagDescription appends tag to description.
func TagDescription(description string, tag TransferTag) string {
	description = strings.TrimSpace(description)
	if description == "" {
		return tag.String()
	}
	return description + " " + tag.String()
}

// TransferLegs builds the expense leg (on from) and the income leg (on to)
// of a transfer. Both legs share date, time, amount and id.
func TransferLegs(id, from, to string, amount decimal.Decimal, description, user string, at time.Time) (out, in core.Transaction) {
	base := core.Transaction{
		Date:       core.DateOf(at),
		Time:       at.Format(core.TimeLayout),
		User:       user,
		Category:   core.TransferCategory,
		Amount:     amount,
		TransferID: id,
	}
	out, in = base, base
	out.Kind, out.Account = core.Expense, from
	out.Description = TagDescription(description, TransferTag{ID: id, Direction: To, Counterparty: to})
	in.Kind, in.Account = core.Income, to
	in.Description = TagDescription(description, TransferTag{ID: id, Direction: From, Counterparty: from})
	return out, in
}

// Transfer groups the legs found in the ledger for one transfer id.
type Transfer struct {
	ID  string
	Out *core.Transaction
	In  *core.Transaction
}

// Complete reports whether both legs are present.
func (t Transfer) Complete() bool { return t.Out != nil && t.In != nil }

// MissingLeg rebuilds the absent leg from the present one.
func (t Transfer) MissingLeg() (core.Transaction, bool) {
	var have *core.Transaction
	switch {
	case t.Complete():
		return core.Transaction{}, false
	case t.Out != nil:
		have = t.Out
	case t.In != nil:
		have = t.In
	default:
		return core.Transaction{}, false
	}
	tag, ok := ParseTransferTag(have.Description)
	if !ok || tag.Counterparty == "" {
		return core.Transaction{}, false
	}

	leg := *have
	leg.Position = 0
	leg.Kind = have.Kind.Opposite()
	leg.Account = tag.Counterparty
	mirror := TransferTag{ID: tag.ID, Direction: From, Counterparty: have.Account}
	if tag.Direction == From {
		mirror.Direction = To
	}
	leg.Description = TagDescription(StripTransferTag(have.Description), mirror)
	return leg, true
}

// Transfers groups every tagged leg by transfer id, in ledger order.
func Transfers(txs []core.Transaction) []Transfer {
	index := make(map[string]int)
	var out []Transfer
	for i := range txs {
		tx := &txs[i]
		if !tx.IsTransferLeg() {
			continue
		}
		j, ok := index[tx.TransferID]
		if !ok {
			j = len(out)
			index[tx.TransferID] = j
			out = append(out, Transfer{ID: tx.TransferID})
		}
		if tx.Kind == core.Expense {
			out[j].Out = tx
		} else {
			out[j].In = tx
		}
	}
	return out
}

// FindTransfer returns the legs of transfer id.
func FindTransfer(txs []core.Transaction, id string) (Transfer, bool) {
	for _, t := range Transfers(txs) {
		if t.ID == id {
			return t, true
		}
	}
	return Transfer{}, false
}

// OrphanTransfers returns the transfers that have only one leg.
func OrphanTransfers(txs []core.Transaction) []Transfer {
	var out []Transfer
	for _, t := range Transfers(txs) {
		if !t.Complete() {
			out = append(out, t)
		}
	}
	return out
}
