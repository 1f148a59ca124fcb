package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	BalanceCreditor = "creditor"
	BalanceDebtor   = "debtor"
	BalanceSettled  = "settled"
)

// Positive balances mean the business owes the customer.
func IsCreditor(balance float64) bool { return balance > 0 }

func IsDebtor(balance float64) bool { return balance < 0 }

func BalanceStatus(balance float64) string {
	switch {
	case IsCreditor(balance):
		return BalanceCreditor
	case IsDebtor(balance):
		return BalanceDebtor
	}
	return BalanceSettled
}

func (c Customer) BalanceInfo() BalanceInfo {
	return BalanceInfo{
		CustomerID:     c.ID,
		CustomerName:   c.FullName(),
		CurrentBalance: c.CurrentBalance,
		IsCreditor:     IsCreditor(c.CurrentBalance),
		IsDebtor:       IsDebtor(c.CurrentBalance),
		BalanceStatus:  BalanceStatus(c.CurrentBalance),
		BalanceNotes:   c.BalanceNotes,
	}
}

// AdjustBalance adds delta to the current balance and appends notes.
func (c *Customer) AdjustBalance(delta float64, notes string) {
	c.CurrentBalance = decimal.NewFromFloat(c.CurrentBalance).Add(decimal.NewFromFloat(delta)).InexactFloat64()
	c.appendNote(notes)
}

// SetBalance overwrites the current balance and appends notes.
func (c *Customer) SetBalance(balance float64, notes string) {
	c.CurrentBalance = balance
	c.appendNote(notes)
}

func (c *Customer) appendNote(notes string) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return
	}
	if c.BalanceNotes == nil || strings.TrimSpace(*c.BalanceNotes) == "" {
		c.BalanceNotes = &notes
		return
	}
	joined := *c.BalanceNotes + "\n" + notes
	c.BalanceNotes = &joined
}
