package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPatch(t *testing.T) {
	tx := Transaction{ID: "tx-1", Type: TransactionExpense, Category: "Insumos", Amount: decimal.NewFromInt(10), Date: "01-02-2024"}

	got, err := ApplyPatch(tx, Patch{"id": "other", "category": "Sementes", "amount": 12.5})
	require.NoError(t, err)
	assert.Equal(t, "tx-1", got.ID)
	assert.Equal(t, "Sementes", got.Category)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, "01-02-2024", got.Date)
	assert.Equal(t, "Insumos", tx.Category)
}

func TestApplyPatch_RejectsUnknownFields(t *testing.T) {
	_, err := ApplyPatch(Crop{ID: "c"}, Patch{"colour": "green"})
	require.Error(t, err)
	assert.True(t, IsDomainError(err, ErrCodeInvalid))
}

func TestNormalizeTransactionPatch(t *testing.T) {
	p := NormalizeTransactionPatch(Patch{"date": "2024-01-15", "id": "x"}, fixedNow)
	assert.Equal(t, Patch{"date": "15-01-2024"}, p)

	p = NormalizeTransactionPatch(Patch{"category": "x"}, fixedNow)
	assert.NotContains(t, p, "date")
}

func TestPatchWithID(t *testing.T) {
	p := Patch{"status": "paid"}
	withID := p.WithID("tx-9")
	assert.Equal(t, Patch{"id": "tx-9", "status": "paid"}, withID)
	assert.NotContains(t, p, "id")
}
