package repository

import (
	"context"

	"fabricstore/internal/domain"
)

// Store runs units of work. Every write the callback performs commits
// together or not at all.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of persistence operations available inside one transaction.
// ForUpdate variants take a row lock held until the transaction ends.
type Tx interface {
	UserStore
	ProductStore
	CustomerStore
	CheckStore
	InvoiceStore
	LedgerStore
	CartStore
}

type UserStore interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	CreateUser(ctx context.Context, user domain.User) (domain.User, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]domain.User, error)
	UpdateUser(ctx context.Context, user domain.User) error
	DeleteUser(ctx context.Context, id int64) error
	CountUsersByRole(ctx context.Context, role domain.Role) (int, error)
}

type ProductStore interface {
	ListProducts(ctx context.Context, filter ProductFilter) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	GetProductForUpdate(ctx context.Context, id int64) (*domain.Product, error)
	GetProductByCode(ctx context.Context, code string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) error
	UpdateProductVariant(ctx context.Context, id int64, variant domain.ProductVariant) error
	DeleteProduct(ctx context.Context, id int64) error
}

type CustomerStore interface {
	ListCustomers(ctx context.Context, filter CustomerFilter) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, id int64) (*domain.Customer, error)
	GetCustomerForUpdate(ctx context.Context, id int64) (*domain.Customer, error)
	GetCustomerByPhone(ctx context.Context, phone string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (domain.Customer, error)
	UpdateCustomer(ctx context.Context, customer domain.Customer) error
	DeleteCustomer(ctx context.Context, id int64) error
	GetCustomerStats(ctx context.Context, id int64) (CustomerStats, error)

	ListBankAccounts(ctx context.Context, customerID int64) ([]domain.BankAccount, error)
	CreateBankAccount(ctx context.Context, account domain.BankAccount) (domain.BankAccount, error)
	DeleteBankAccount(ctx context.Context, customerID, id int64) error
}

type CheckStore interface {
	ListChecks(ctx context.Context, filter CheckFilter) ([]domain.Check, error)
	GetCheck(ctx context.Context, id int64) (*domain.Check, error)
	GetCheckForUpdate(ctx context.Context, id int64) (*domain.Check, error)
	CreateCheck(ctx context.Context, check domain.Check) (domain.Check, error)
	UpdateCheck(ctx context.Context, check domain.Check) error
	DeleteCheck(ctx context.Context, id int64) error
}

type InvoiceStore interface {
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]domain.Invoice, error)
	// GetInvoice loads the invoice with its items and their products.
	GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error)
	GetInvoiceForUpdate(ctx context.Context, id int64) (*domain.Invoice, error)
	// CreateInvoice inserts the header and every item, filling in ids.
	CreateInvoice(ctx context.Context, invoice *domain.Invoice) error
	UpdateInvoice(ctx context.Context, invoice domain.Invoice) error
	UpdateInvoiceItem(ctx context.Context, item domain.InvoiceItem) error
	// HeldSelections lists the selections of invoice lines that still hold
	// stock of productID.
	HeldSelections(ctx context.Context, productID int64) ([]domain.Selection, error)
	// NextInvoiceSequence atomically allocates the next number for year.
	NextInvoiceSequence(ctx context.Context, year int) (int64, error)
}

type LedgerStore interface {
	InsertTransaction(ctx context.Context, txn domain.InventoryTransaction) (domain.InventoryTransaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]domain.InventoryTransaction, error)
	SumTransactions(ctx context.Context, productID int64, reason domain.TransactionReason) (float64, error)
	CountTransactions(ctx context.Context, productID int64) (int, error)
}

type CartStore interface {
	ListCarts(ctx context.Context, filter CartFilter) ([]domain.Cart, error)
	// GetCart loads the cart with its items and their products.
	GetCart(ctx context.Context, id int64) (*domain.Cart, error)
	GetOpenCustomerCart(ctx context.Context, customerID int64) (*domain.Cart, error)
	// CreateCart inserts the header and every item, filling in ids.
	CreateCart(ctx context.Context, cart *domain.Cart) error
	UpdateCart(ctx context.Context, cart domain.Cart) error
	DeleteCart(ctx context.Context, id int64) error
	GetCartStats(ctx context.Context) (domain.CartStats, error)

	CreateCartItem(ctx context.Context, item domain.CartItem) (domain.CartItem, error)
	UpdateCartItem(ctx context.Context, item domain.CartItem) error
	DeleteCartItem(ctx context.Context, cartID, itemID int64) error
	DeleteCartItems(ctx context.Context, cartID int64) error
}

type UserFilter struct {
	Role   *domain.Role
	Limit  int
	Offset int
}

type ProductFilter struct {
	Search      string
	Category    string
	IsAvailable *bool
	Visible     *bool
	Limit       int
	Offset      int
}

type CustomerFilter struct {
	Search string
	Limit  int
	Offset int
}

type CheckFilter struct {
	CustomerID *int64
	InvoiceID  *int64
	Status     *domain.CheckStatus
	DueFrom    string
	DueTo      string
	Limit      int
	Offset     int
}

type InvoiceFilter struct {
	CustomerID *int64
	Status     *domain.InvoiceStatus
	// Statuses restricts results to this set when non-nil.
	Statuses []domain.InvoiceStatus
	Limit    int
	Offset   int
}

type TransactionFilter struct {
	ProductID   *int64
	Reason      *domain.TransactionReason
	ReferenceID *int64
	Limit       int
	Offset      int
}

type CartFilter struct {
	Status     *domain.CartStatus
	CustomerID *int64
	Limit      int
	Offset     int
}

// CustomerStats feeds the customer detail view. Paid counts shipped and
// delivered invoices.
type CustomerStats struct {
	TotalPurchases        float64
	TotalPaid             float64
	InvoicesCount         int
	ChecksInProgressCount int
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 200
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
