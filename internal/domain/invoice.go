package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	StatusDraft             InvoiceStatus = "draft"
	StatusWarehousePending  InvoiceStatus = "warehouse_pending"
	StatusAccountantPending InvoiceStatus = "accountant_pending"
	StatusApproved          InvoiceStatus = "approved"
	StatusShipped           InvoiceStatus = "shipped"
	StatusDelivered         InvoiceStatus = "delivered"
	StatusCancelled         InvoiceStatus = "cancelled"
)

var AllInvoiceStatuses = []InvoiceStatus{
	StatusDraft,
	StatusWarehousePending,
	StatusAccountantPending,
	StatusApproved,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

func (s InvoiceStatus) Valid() bool {
	for _, status := range AllInvoiceStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type PaymentType string

const (
	PaymentCash  PaymentType = "cash"
	PaymentCheck PaymentType = "check"
	PaymentMixed PaymentType = "mixed"
)

func (p PaymentType) Valid() bool {
	switch p {
	case PaymentCash, PaymentCheck, PaymentMixed:
		return true
	}
	return false
}

// RequiresCheck reports whether an invoice with this payment type must be
// backed by a check at creation.
func (p PaymentType) RequiresCheck() bool {
	return p == PaymentCheck || p == PaymentMixed
}

// PaymentBreakdown holds per-method amounts for mixed payments, e.g.
// {"cash": 500000, "check": 1250000}.
type PaymentBreakdown map[string]float64

type Transition string

const (
	TransitionReserve Transition = "reserve"
	TransitionApprove Transition = "approve"
	TransitionShip    Transition = "ship"
	TransitionDeliver Transition = "deliver"
	TransitionCancel  Transition = "cancel"
)

type transitionRule struct {
	from  []InvoiceStatus
	to    InvoiceStatus
	roles []Role
}

var transitionRules = map[Transition]transitionRule{
	TransitionReserve: {
		from:  []InvoiceStatus{StatusWarehousePending, StatusAccountantPending},
		to:    StatusAccountantPending,
		roles: []Role{RoleWarehouse, RoleAdmin},
	},
	TransitionApprove: {
		from:  []InvoiceStatus{StatusAccountantPending},
		to:    StatusApproved,
		roles: []Role{RoleAccountant, RoleAdmin},
	},
	TransitionShip: {
		from:  []InvoiceStatus{StatusApproved},
		to:    StatusShipped,
		roles: []Role{RoleWarehouse, RoleAdmin},
	},
	TransitionDeliver: {
		from:  []InvoiceStatus{StatusShipped},
		to:    StatusDelivered,
		roles: []Role{RoleWarehouse, RoleAdmin},
	},
	TransitionCancel: {
		from: []InvoiceStatus{
			StatusDraft,
			StatusWarehousePending,
			StatusAccountantPending,
			StatusApproved,
			StatusShipped,
			StatusDelivered,
		},
		to:    StatusCancelled,
		roles: []Role{RoleAccountant, RoleAdmin},
	},
}

// CreateRoles may open new invoices.
var CreateRoles = []Role{RoleAccountant, RoleAdmin}

func (t Transition) Roles() []Role {
	return append([]Role(nil), transitionRules[t].roles...)
}

// Next returns the status reached by applying t to s. The returned error is
// a ValidationError naming the current status when the move is illegal.
func (s InvoiceStatus) Next(t Transition) (InvoiceStatus, error) {
	rule, ok := transitionRules[t]
	if !ok {
		return s, Invalid("unknown invoice transition %q", t)
	}
	for _, from := range rule.from {
		if s == from {
			return rule.to, nil
		}
	}
	return s, &ValidationError{
		Field:   "status",
		Message: fmt.Sprintf("cannot %s invoice in status %s", t, s),
		Details: map[string]any{"status": s, "transition": t},
	}
}

func (s InvoiceStatus) Can(t Transition) bool {
	_, err := s.Next(t)
	return err == nil
}

// VisibleStatuses lists the invoice statuses a staff role may read. A nil
// result means no restriction.
func VisibleStatuses(role Role) []InvoiceStatus {
	switch role {
	case RoleWarehouse:
		return []InvoiceStatus{StatusWarehousePending, StatusApproved, StatusShipped}
	case RoleAccountant:
		out := make([]InvoiceStatus, 0, len(AllInvoiceStatuses)-1)
		for _, status := range AllInvoiceStatuses {
			if status != StatusDraft {
				out = append(out, status)
			}
		}
		return out
	}
	return nil
}

func CanView(role Role, status InvoiceStatus) bool {
	visible := VisibleStatuses(role)
	if visible == nil {
		return true
	}
	for _, s := range visible {
		if s == status {
			return true
		}
	}
	return false
}

type TrackingInfo struct {
	CarrierName      string `json:"carrier_name" validate:"required"`
	TrackingCode     string `json:"tracking_code" validate:"required"`
	ShippingDate     string `json:"shipping_date" validate:"required"`
	NumberOfPackages int    `json:"number_of_packages" validate:"gte=1"`
}

// Roll is one bolt of fabric; each piece is a measured length.
type Roll struct {
	Pieces []float64 `json:"pieces"`
}

type Invoice struct {
	ID               int64            `json:"id"`
	InvoiceNumber    string           `json:"invoice_number"`
	CustomerID       int64            `json:"customer_id"`
	Customer         *Customer        `json:"customer,omitempty"`
	CreatedBy        int64            `json:"created_by"`
	Subtotal         float64          `json:"subtotal"`
	Total            float64          `json:"total"`
	PaymentType      PaymentType      `json:"payment_type"`
	PaymentBreakdown PaymentBreakdown `json:"payment_breakdown,omitempty"`
	Status           InvoiceStatus    `json:"status"`
	TrackingInfo     *TrackingInfo    `json:"tracking_info,omitempty"`
	Attachments      []string         `json:"attachments"`
	ReservedAt       *time.Time       `json:"reserved_at,omitempty"`
	Items            []InvoiceItem    `json:"items"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Recompute sets subtotal and total from the current items.
func (inv *Invoice) Recompute() {
	inv.Subtotal = Subtotal(inv.Items)
	inv.Total = inv.Subtotal
}

type InvoiceItem struct {
	ID            int64    `json:"id"`
	InvoiceID     int64    `json:"invoice_id"`
	ProductID     int64    `json:"product_id"`
	Quantity      float64  `json:"quantity"`
	Unit          string   `json:"unit"`
	Price         float64  `json:"price"`
	RollsCount    *int     `json:"rolls_count,omitempty"`
	PiecesPerRoll *int     `json:"pieces_per_roll,omitempty"`
	DetailedRolls []Roll   `json:"detailed_rolls,omitempty"`
	Selection
	// ReservedQuantity is what the ledger currently holds for this line.
	ReservedQuantity float64  `json:"reserved_quantity"`
	Product          *Product `json:"product,omitempty"`
}

func (i InvoiceItem) TotalPrice() float64 { return LineTotal(i.Quantity, i.Price) }

func (i InvoiceItem) MarshalJSON() ([]byte, error) {
	type alias InvoiceItem
	return json.Marshal(struct {
		alias
		TotalPrice float64 `json:"total_price"`
	}{alias: alias(i), TotalPrice: i.TotalPrice()})
}

type QuantityInput struct {
	Quantity      *float64
	RollsCount    *int
	PiecesPerRoll *int
	DetailedRolls []Roll
}

// ResolveQuantity picks the effective quantity of an item: detailed rolls
// first, then rolls_count × pieces_per_roll, then the raw quantity.
func ResolveQuantity(in QuantityInput) (float64, error) {
	if err := checkRollCount("rolls_count", in.RollsCount); err != nil {
		return 0, err
	}
	if err := checkRollCount("pieces_per_roll", in.PiecesPerRoll); err != nil {
		return 0, err
	}
	var qty float64
	switch {
	case len(in.DetailedRolls) > 0:
		sum := decimal.Zero
		for r, roll := range in.DetailedRolls {
			if len(roll.Pieces) == 0 {
				return 0, InvalidField("detailed_rolls", "roll %d has no pieces", r+1)
			}
			for p, piece := range roll.Pieces {
				if piece <= 0 {
					return 0, InvalidField("detailed_rolls", "roll %d piece %d must be greater than zero", r+1, p+1)
				}
				sum = sum.Add(decimal.NewFromFloat(piece))
			}
		}
		qty = sum.InexactFloat64()
	case in.RollsCount != nil:
		if in.PiecesPerRoll == nil {
			return 0, InvalidField("pieces_per_roll", "is required when rolls_count is set")
		}
		qty = float64(*in.RollsCount) * float64(*in.PiecesPerRoll)
	case in.Quantity != nil:
		qty = *in.Quantity
	}
	if qty <= 0 {
		return 0, InvalidField("quantity", "must be greater than zero")
	}
	return qty, nil
}

// checkRollCount bounds roll counters to the INTEGER columns that store them.
func checkRollCount(field string, v *int) error {
	if v == nil {
		return nil
	}
	if *v <= 0 || *v > math.MaxInt32 {
		return InvalidField(field, "must be between 1 and %d", math.MaxInt32)
	}
	return nil
}

// RoundMoney rounds an amount to the two decimals money columns store.
func RoundMoney(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// lineAmount prices one line from the stored (rounded) unit price.
func lineAmount(quantity, price float64) decimal.Decimal {
	return decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(price).Round(2)).Round(2)
}

func LineTotal(quantity, price float64) float64 {
	return lineAmount(quantity, price).InexactFloat64()
}

// Subtotal is the sum of the rounded line totals, so it always equals the sum
// of total_price over the items.
func Subtotal(items []InvoiceItem) float64 {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(lineAmount(item.Quantity, item.Price))
	}
	return sum.InexactFloat64()
}

func CartTotal(items []CartItem) float64 {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(lineAmount(item.Quantity, item.Price))
	}
	return sum.InexactFloat64()
}

func PersianYear(t time.Time) int {
	return t.Year() - 621
}

func InvoiceNumberPrefix(year int) string {
	return fmt.Sprintf("INV-%d-", year)
}

func FormatInvoiceNumber(year int, seq int64) string {
	return fmt.Sprintf("INV-%d-%03d", year, seq)
}

// ParseInvoiceSequence extracts the trailing sequence from a number issued in
// year. ok is false for numbers from other years or with a malformed suffix.
func ParseInvoiceSequence(number string, year int) (int64, bool) {
	rest, found := strings.CutPrefix(number, InvoiceNumberPrefix(year))
	if !found || rest == "" {
		return 0, false
	}
	seq, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || seq < 0 {
		return 0, false
	}
	return seq, true
}
