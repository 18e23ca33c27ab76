package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransactionIncome  = "income"
	TransactionExpense = "expense"

	TransactionPaid    = "paid"
	TransactionPending = "pending"
)

// Transaction is a ledger line: money in or out, optionally tied to a property
// or crop. Date is always held in the canonical DD-MM-YYYY form.
type Transaction struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	PropertyID  string          `json:"propertyId,omitempty"`
	CropID      string          `json:"cropId,omitempty"`
	Status      string          `json:"status,omitempty"`
}

func (t Transaction) RecordID() string { return t.ID }

func (t Transaction) WithID(id string) Transaction {
	t.ID = id
	return t
}

// Normalize canonicalizes the date, substituting today when it is missing or
// unparseable.
func (t Transaction) Normalize(now time.Time) Transaction {
	t.Date = CanonicalDate(t.Date, now)
	if t.Type == "" {
		t.Type = TransactionExpense
	}
	return t
}

// IsIncome reports whether the transaction adds money.
func (t Transaction) IsIncome() bool {
	return t.Type == TransactionIncome
}

// MigrateTransactionDates rewrites ISO dates to the canonical form and reports
// how many records changed. Applying it twice is the same as applying it once.
func MigrateTransactionDates(txs []Transaction) ([]Transaction, int) {
	out := make([]Transaction, len(txs))
	changed := 0
	for i, tx := range txs {
		if migrated, ok := MigrateISODate(tx.Date); ok {
			tx.Date = migrated
			changed++
		}
		out[i] = tx
	}
	return out, changed
}
