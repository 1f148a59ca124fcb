package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceStatus(t *testing.T) {
	assert.Equal(t, BalanceCreditor, BalanceStatus(10))
	assert.Equal(t, BalanceDebtor, BalanceStatus(-0.5))
	assert.Equal(t, BalanceSettled, BalanceStatus(0))
	assert.False(t, IsCreditor(0))
	assert.False(t, IsDebtor(0))
}

func TestCustomer_AdjustAndSetBalance(t *testing.T) {
	c := Customer{ID: 3, FirstName: "Ali", LastName: "Rezaei"}

	c.AdjustBalance(-1500, "invoice INV-1404-001")
	c.AdjustBalance(500, "")
	c.AdjustBalance(0.1, "cash payment")
	assert.InDelta(t, -999.9, c.CurrentBalance, 1e-9)
	require.NotNil(t, c.BalanceNotes)
	assert.Equal(t, "invoice INV-1404-001\ncash payment", *c.BalanceNotes)

	c.SetBalance(200, "reconciled")
	assert.Equal(t, 200.0, c.CurrentBalance)
	assert.Equal(t, "invoice INV-1404-001\ncash payment\nreconciled", *c.BalanceNotes)

	info := c.BalanceInfo()
	assert.True(t, info.IsCreditor)
	assert.Equal(t, BalanceCreditor, info.BalanceStatus)
	assert.Equal(t, "Ali Rezaei", info.CustomerName)
}
