package domain

import (
	"encoding/json"
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleAccountant Role = "accountant"
	RoleWarehouse  Role = "warehouse"
	// RoleCustomer is never stored on a user row; it marks customer-panel principals.
	RoleCustomer Role = "customer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAccountant, RoleWarehouse:
		return true
	}
	return false
}

type Principal struct {
	ID   int64 `json:"id"`
	Role Role  `json:"role"`
}

func (p Principal) IsCustomer() bool { return p.Role == RoleCustomer }

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Product struct {
	ID            int64          `json:"id"`
	Code          string         `json:"code"`
	Name          string         `json:"name"`
	Description   *string        `json:"description,omitempty"`
	Category      string         `json:"category"`
	Unit          string         `json:"unit"`
	PiecesPerRoll *int           `json:"pieces_per_roll,omitempty"`
	PurchasePrice float64        `json:"purchase_price"`
	SalePrice     float64        `json:"sale_price"`
	IsAvailable   bool           `json:"is_available"`
	Visible       bool           `json:"visible"`
	Images        []string       `json:"images"`
	Variant       ProductVariant `json:"-"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (p Product) IsSeries() bool {
	_, ok := p.Variant.(SeriesVariant)
	return ok
}

// MarshalJSON flattens the variant into the wire fields clients expect.
func (p Product) MarshalJSON() ([]byte, error) {
	type alias Product
	out := struct {
		alias
		VariantFields
	}{alias: alias(p), VariantFields: FlattenVariant(p.Variant)}
	return json.Marshal(out)
}

type Customer struct {
	ID             int64         `json:"id"`
	FirstName      string        `json:"first_name"`
	LastName       string        `json:"last_name"`
	Phone          string        `json:"phone"`
	Mobile         *string       `json:"mobile,omitempty"`
	Address        *string       `json:"address,omitempty"`
	City           *string       `json:"city,omitempty"`
	Province       *string       `json:"province,omitempty"`
	CurrentBalance float64       `json:"current_balance"`
	BalanceNotes   *string       `json:"balance_notes,omitempty"`
	PasswordHash   string        `json:"-"`
	BankAccounts   []BankAccount `json:"bank_accounts"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

func (c Customer) ContactPhone() string {
	if c.Mobile != nil && strings.TrimSpace(*c.Mobile) != "" {
		return strings.TrimSpace(*c.Mobile)
	}
	return c.Phone
}

type BankAccount struct {
	ID            int64   `json:"id"`
	CustomerID    int64   `json:"customer_id"`
	BankName      string  `json:"bank_name"`
	AccountNumber string  `json:"account_number"`
	IBAN          *string `json:"iban,omitempty"`
}

type CustomerDetail struct {
	Customer
	FullName              string  `json:"full_name"`
	TotalPurchases        float64 `json:"total_purchases"`
	TotalPaid             float64 `json:"total_paid"`
	ComputedBalance       float64 `json:"computed_balance"`
	InvoicesCount         int     `json:"invoices_count"`
	ChecksInProgressCount int     `json:"checks_in_progress_count"`
}

type BalanceInfo struct {
	CustomerID     int64   `json:"customer_id"`
	CustomerName   string  `json:"customer_name"`
	CurrentBalance float64 `json:"current_balance"`
	IsCreditor     bool    `json:"is_creditor"`
	IsDebtor       bool    `json:"is_debtor"`
	BalanceStatus  string  `json:"balance_status"`
	BalanceNotes   *string `json:"balance_notes,omitempty"`
}

type CheckStatus string

const (
	CheckInProgress CheckStatus = "in_progress"
	CheckSpent      CheckStatus = "spent"
	CheckReturned   CheckStatus = "returned"
	CheckCleared    CheckStatus = "cleared"
)

func (s CheckStatus) Valid() bool {
	switch s {
	case CheckInProgress, CheckSpent, CheckReturned, CheckCleared:
		return true
	}
	return false
}

type Check struct {
	ID               int64       `json:"id"`
	CheckNumber      string      `json:"check_number"`
	CustomerID       int64       `json:"customer_id"`
	Amount           float64     `json:"amount"`
	IssueDate        string      `json:"issue_date"`
	DueDate          string      `json:"due_date"`
	Status           CheckStatus `json:"status"`
	RelatedInvoiceID *int64      `json:"related_invoice_id,omitempty"`
	Attachments      []string    `json:"attachments"`
	CreatedBy        int64       `json:"created_by"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

type TransactionReason string

const (
	ReasonSaleReservation TransactionReason = "sale_reservation"
	ReasonShipping        TransactionReason = "shipping"
	ReasonRestock         TransactionReason = "restock"
	ReasonAdjustment      TransactionReason = "adjustment"
	ReasonReturn          TransactionReason = "return"
)

func (r TransactionReason) Valid() bool {
	switch r {
	case ReasonSaleReservation, ReasonShipping, ReasonRestock, ReasonAdjustment, ReasonReturn:
		return true
	}
	return false
}

// InventoryTransaction is an append-only ledger row. Rows are never updated or
// deleted; corrections are recorded as offsetting rows.
type InventoryTransaction struct {
	ID             int64             `json:"id"`
	ProductID      int64             `json:"product_id"`
	ChangeQuantity float64           `json:"change_quantity"`
	Reason         TransactionReason `json:"reason"`
	ReferenceID    *int64            `json:"reference_id,omitempty"`
	Notes          *string           `json:"notes,omitempty"`
	CreatedBy      int64             `json:"created_by"`
	CreatedAt      time.Time         `json:"created_at"`
}

type ProductQuantity struct {
	ProductID           int64   `json:"product_id"`
	ProductName         string  `json:"product_name"`
	IsSeries            bool    `json:"is_series"`
	AvailableQuantity   float64 `json:"available_quantity"`
	ReservedQuantity    float64 `json:"reserved_quantity"`
	ReturnedQuantity    float64 `json:"returned_quantity"`
	OutstandingQuantity float64 `json:"outstanding_quantity"`
}

type CartStatus string

const (
	CartPending  CartStatus = "pending"
	CartReviewed CartStatus = "reviewed"
	CartApproved CartStatus = "approved"
	CartRejected CartStatus = "rejected"
)

func (s CartStatus) Valid() bool {
	switch s {
	case CartPending, CartReviewed, CartApproved, CartRejected:
		return true
	}
	return false
}

type Cart struct {
	ID              int64      `json:"id"`
	CustomerID      *int64     `json:"customer_id,omitempty"`
	CustomerName    string     `json:"customer_name"`
	CustomerPhone   string     `json:"customer_phone"`
	CustomerEmail   *string    `json:"customer_email,omitempty"`
	CustomerAddress *string    `json:"customer_address,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	TotalAmount     float64    `json:"total_amount"`
	Status          CartStatus `json:"status"`
	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`
	Items           []CartItem `json:"items"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type CartItem struct {
	ID        int64    `json:"id"`
	CartID    int64    `json:"cart_id"`
	ProductID int64    `json:"product_id"`
	Quantity  float64  `json:"quantity"`
	Unit      string   `json:"unit"`
	Price     float64  `json:"price"`
	Selection          // selected_series | selected_color
	Product   *Product `json:"product,omitempty"`
}

func (i CartItem) TotalPrice() float64 { return LineTotal(i.Quantity, i.Price) }

func (i CartItem) MarshalJSON() ([]byte, error) {
	type alias CartItem
	return json.Marshal(struct {
		alias
		TotalPrice float64 `json:"total_price"`
	}{alias: alias(i), TotalPrice: i.TotalPrice()})
}

type CartStats struct {
	TotalOrders     int                `json:"total_orders"`
	TotalAmount     float64            `json:"total_amount"`
	StatusBreakdown map[CartStatus]int `json:"status_breakdown"`
}
