package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"fabricstore/internal/domain"
	"fabricstore/internal/repository"
)

// fakeStore is an in-memory repository.Store. Each InTx works on a copy of
// the state that is swapped in only when the callback succeeds, so failed
// units of work leave nothing behind.
type fakeStore struct {
	mu    sync.Mutex
	state *fakeState
}

type fakeState struct {
	nextID       int64
	users        map[int64]domain.User
	products     map[int64]domain.Product
	customers    map[int64]domain.Customer
	accounts     map[int64]domain.BankAccount
	checks       map[int64]domain.Check
	invoices     map[int64]domain.Invoice
	invoiceItems map[int64]domain.InvoiceItem
	sequences    map[int]int64
	txns         []domain.InventoryTransaction
	carts        map[int64]domain.Cart
	cartItems    map[int64]domain.CartItem
}

func newFakeStore() *fakeStore {
	return &fakeStore{state: &fakeState{
		users:        map[int64]domain.User{},
		products:     map[int64]domain.Product{},
		customers:    map[int64]domain.Customer{},
		accounts:     map[int64]domain.BankAccount{},
		checks:       map[int64]domain.Check{},
		invoices:     map[int64]domain.Invoice{},
		invoiceItems: map[int64]domain.InvoiceItem{},
		sequences:    map[int]int64{},
		carts:        map[int64]domain.Cart{},
		cartItems:    map[int64]domain.CartItem{},
	}}
}

func (f *fakeStore) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	work := f.state.clone()
	if err := fn(&fakeTx{s: work}); err != nil {
		return err
	}
	f.state = work
	return nil
}

// snapshot returns a copy of the committed state for assertions.
func (f *fakeStore) snapshot() *fakeState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.clone()
}

func (s *fakeState) clone() *fakeState {
	out := &fakeState{
		nextID:       s.nextID,
		users:        copyMap(s.users),
		products:     copyMap(s.products),
		customers:    copyMap(s.customers),
		accounts:     copyMap(s.accounts),
		checks:       copyMap(s.checks),
		invoices:     copyMap(s.invoices),
		invoiceItems: copyMap(s.invoiceItems),
		sequences:    copyMap(s.sequences),
		txns:         append([]domain.InventoryTransaction(nil), s.txns...),
		carts:        copyMap(s.carts),
		cartItems:    copyMap(s.cartItems),
	}
	return out
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sortedIDs[V any](in map[int64]V) []int64 {
	ids := make([]int64, 0, len(in))
	for id := range in {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func page[T any](items []T, limit, offset int) []T {
	if limit <= 0 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

type fakeTx struct {
	s *fakeState
}

var _ repository.Tx = (*fakeTx)(nil)

func (t *fakeTx) id() int64 {
	t.s.nextID++
	return t.s.nextID
}

// users

func (t *fakeTx) GetUser(_ context.Context, id int64) (*domain.User, error) {
	u, ok := t.s.users[id]
	if !ok {
		return nil, domain.NotFound("user", id)
	}
	return &u, nil
}

func (t *fakeTx) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, id := range sortedIDs(t.s.users) {
		if u := t.s.users[id]; u.Email == email {
			return &u, nil
		}
	}
	return nil, domain.NotFound("user", email)
}

func (t *fakeTx) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	if _, err := t.GetUserByEmail(ctx, u.Email); err == nil {
		return domain.User{}, domain.Conflict("user already exists")
	}
	u.ID = t.id()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt = time.Now()
	t.s.users[u.ID] = u
	return u, nil
}

func (t *fakeTx) ListUsers(_ context.Context, f repository.UserFilter) ([]domain.User, error) {
	out := []domain.User{}
	for _, id := range sortedIDs(t.s.users) {
		u := t.s.users[id]
		if f.Role != nil && u.Role != *f.Role {
			continue
		}
		out = append(out, u)
	}
	return page(out, f.Limit, f.Offset), nil
}

func (t *fakeTx) UpdateUser(ctx context.Context, u domain.User) error {
	if _, ok := t.s.users[u.ID]; !ok {
		return domain.NotFound("user", u.ID)
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if other, err := t.GetUserByEmail(ctx, u.Email); err == nil && other.ID != u.ID {
		return domain.Conflict("user email already exists")
	}
	t.s.users[u.ID] = u
	return nil
}

func (t *fakeTx) DeleteUser(_ context.Context, id int64) error {
	if _, ok := t.s.users[id]; !ok {
		return domain.NotFound("user", id)
	}
	for _, inv := range t.s.invoices {
		if inv.CreatedBy == id {
			return domain.Invalid("user references a missing or still referenced record")
		}
	}
	for _, txn := range t.s.txns {
		if txn.CreatedBy == id {
			return domain.Invalid("user references a missing or still referenced record")
		}
	}
	delete(t.s.users, id)
	return nil
}

func (t *fakeTx) CountUsersByRole(_ context.Context, role domain.Role) (int, error) {
	n := 0
	for _, u := range t.s.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

// products

func (t *fakeTx) ListProducts(_ context.Context, f repository.ProductFilter) ([]domain.Product, error) {
	out := []domain.Product{}
	search := strings.ToLower(strings.TrimSpace(f.Search))
	for _, id := range sortedIDs(t.s.products) {
		p := t.s.products[id]
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) && !strings.Contains(strings.ToLower(p.Code), search) {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.IsAvailable != nil && p.IsAvailable != *f.IsAvailable {
			continue
		}
		if f.Visible != nil && p.Visible != *f.Visible {
			continue
		}
		out = append(out, productCopy(p))
	}
	return page(out, f.Limit, f.Offset), nil
}

func productCopy(p domain.Product) domain.Product {
	p.Images = append([]string{}, p.Images...)
	return p
}

func (t *fakeTx) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	p, ok := t.s.products[id]
	if !ok {
		return nil, domain.NotFound("product", id)
	}
	p = productCopy(p)
	return &p, nil
}

func (t *fakeTx) GetProductForUpdate(ctx context.Context, id int64) (*domain.Product, error) {
	return t.GetProduct(ctx, id)
}

func (t *fakeTx) GetProductByCode(_ context.Context, code string) (*domain.Product, error) {
	for _, id := range sortedIDs(t.s.products) {
		if p := t.s.products[id]; p.Code == code {
			p = productCopy(p)
			return &p, nil
		}
	}
	return nil, domain.NotFound("product", code)
}

func (t *fakeTx) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	if _, err := t.GetProductByCode(ctx, p.Code); err == nil {
		return domain.Product{}, domain.Conflict("product already exists")
	}
	p.ID = t.id()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	p = productCopy(p)
	t.s.products[p.ID] = p
	return p, nil
}

func (t *fakeTx) UpdateProduct(_ context.Context, p domain.Product) error {
	if _, ok := t.s.products[p.ID]; !ok {
		return domain.NotFound("product", p.ID)
	}
	t.s.products[p.ID] = productCopy(p)
	return nil
}

func (t *fakeTx) UpdateProductVariant(_ context.Context, id int64, v domain.ProductVariant) error {
	p, ok := t.s.products[id]
	if !ok {
		return domain.NotFound("product", id)
	}
	p.Variant = v
	t.s.products[id] = p
	return nil
}

func (t *fakeTx) DeleteProduct(_ context.Context, id int64) error {
	if _, ok := t.s.products[id]; !ok {
		return domain.NotFound("product", id)
	}
	delete(t.s.products, id)
	return nil
}

// customers

func (t *fakeTx) ListCustomers(_ context.Context, f repository.CustomerFilter) ([]domain.Customer, error) {
	out := []domain.Customer{}
	search := strings.ToLower(strings.TrimSpace(f.Search))
	for _, id := range sortedIDs(t.s.customers) {
		c := t.s.customers[id]
		if search != "" && !strings.Contains(strings.ToLower(c.FullName()+" "+c.Phone), search) {
			continue
		}
		out = append(out, c)
	}
	return page(out, f.Limit, f.Offset), nil
}

func (t *fakeTx) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	c, ok := t.s.customers[id]
	if !ok {
		return nil, domain.NotFound("customer", id)
	}
	c.BankAccounts, _ = t.ListBankAccounts(ctx, id)
	return &c, nil
}

func (t *fakeTx) GetCustomerForUpdate(ctx context.Context, id int64) (*domain.Customer, error) {
	return t.GetCustomer(ctx, id)
}

func (t *fakeTx) GetCustomerByPhone(_ context.Context, phone string) (*domain.Customer, error) {
	for _, id := range sortedIDs(t.s.customers) {
		if c := t.s.customers[id]; c.Phone == phone {
			return &c, nil
		}
	}
	return nil, domain.NotFound("customer", phone)
}

func (t *fakeTx) CreateCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	if _, err := t.GetCustomerByPhone(ctx, c.Phone); err == nil {
		return domain.Customer{}, domain.Conflict("customer already exists")
	}
	c.ID = t.id()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	c.BankAccounts = []domain.BankAccount{}
	t.s.customers[c.ID] = c
	return c, nil
}

func (t *fakeTx) UpdateCustomer(_ context.Context, c domain.Customer) error {
	if _, ok := t.s.customers[c.ID]; !ok {
		return domain.NotFound("customer", c.ID)
	}
	c.BankAccounts = nil
	t.s.customers[c.ID] = c
	return nil
}

func (t *fakeTx) DeleteCustomer(_ context.Context, id int64) error {
	if _, ok := t.s.customers[id]; !ok {
		return domain.NotFound("customer", id)
	}
	delete(t.s.customers, id)
	return nil
}

func (t *fakeTx) GetCustomerStats(_ context.Context, id int64) (repository.CustomerStats, error) {
	var stats repository.CustomerStats
	for _, inv := range t.s.invoices {
		if inv.CustomerID != id {
			continue
		}
		stats.InvoicesCount++
		if inv.Status != domain.StatusCancelled {
			stats.TotalPurchases += inv.Total
		}
		if inv.Status == domain.StatusShipped || inv.Status == domain.StatusDelivered {
			stats.TotalPaid += inv.Total
		}
	}
	for _, c := range t.s.checks {
		if c.CustomerID == id && c.Status == domain.CheckInProgress {
			stats.ChecksInProgressCount++
		}
	}
	return stats, nil
}

func (t *fakeTx) ListBankAccounts(_ context.Context, customerID int64) ([]domain.BankAccount, error) {
	out := []domain.BankAccount{}
	for _, id := range sortedIDs(t.s.accounts) {
		if a := t.s.accounts[id]; a.CustomerID == customerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (t *fakeTx) CreateBankAccount(_ context.Context, a domain.BankAccount) (domain.BankAccount, error) {
	a.ID = t.id()
	t.s.accounts[a.ID] = a
	return a, nil
}

func (t *fakeTx) DeleteBankAccount(_ context.Context, customerID, id int64) error {
	if a, ok := t.s.accounts[id]; !ok || a.CustomerID != customerID {
		return domain.NotFound("bank account", id)
	}
	delete(t.s.accounts, id)
	return nil
}

// checks

func (t *fakeTx) ListChecks(_ context.Context, f repository.CheckFilter) ([]domain.Check, error) {
	out := []domain.Check{}
	for _, id := range sortedIDs(t.s.checks) {
		c := t.s.checks[id]
		if f.CustomerID != nil && c.CustomerID != *f.CustomerID {
			continue
		}
		if f.InvoiceID != nil && (c.RelatedInvoiceID == nil || *c.RelatedInvoiceID != *f.InvoiceID) {
			continue
		}
		if f.Status != nil && c.Status != *f.Status {
			continue
		}
		if f.DueFrom != "" && c.DueDate < f.DueFrom {
			continue
		}
		if f.DueTo != "" && c.DueDate > f.DueTo {
			continue
		}
		out = append(out, checkCopy(c))
	}
	return page(out, f.Limit, f.Offset), nil
}

func checkCopy(c domain.Check) domain.Check {
	c.Attachments = append([]string{}, c.Attachments...)
	return c
}

func (t *fakeTx) GetCheck(_ context.Context, id int64) (*domain.Check, error) {
	c, ok := t.s.checks[id]
	if !ok {
		return nil, domain.NotFound("check", id)
	}
	c = checkCopy(c)
	return &c, nil
}

func (t *fakeTx) GetCheckForUpdate(ctx context.Context, id int64) (*domain.Check, error) {
	return t.GetCheck(ctx, id)
}

func (t *fakeTx) CreateCheck(_ context.Context, c domain.Check) (domain.Check, error) {
	c.ID = t.id()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	c = checkCopy(c)
	t.s.checks[c.ID] = c
	return c, nil
}

func (t *fakeTx) UpdateCheck(_ context.Context, c domain.Check) error {
	if _, ok := t.s.checks[c.ID]; !ok {
		return domain.NotFound("check", c.ID)
	}
	t.s.checks[c.ID] = checkCopy(c)
	return nil
}

func (t *fakeTx) DeleteCheck(_ context.Context, id int64) error {
	if _, ok := t.s.checks[id]; !ok {
		return domain.NotFound("check", id)
	}
	delete(t.s.checks, id)
	return nil
}

// invoices

func (t *fakeTx) ListInvoices(_ context.Context, f repository.InvoiceFilter) ([]domain.Invoice, error) {
	out := []domain.Invoice{}
	ids := sortedIDs(t.s.invoices)
	for i := len(ids) - 1; i >= 0; i-- {
		inv := t.s.invoices[ids[i]]
		if f.CustomerID != nil && inv.CustomerID != *f.CustomerID {
			continue
		}
		if f.Status != nil && inv.Status != *f.Status {
			continue
		}
		if f.Statuses != nil && !containsStatus(f.Statuses, inv.Status) {
			continue
		}
		out = append(out, inv)
	}
	return page(out, f.Limit, f.Offset), nil
}

func containsStatus(list []domain.InvoiceStatus, s domain.InvoiceStatus) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}

func (t *fakeTx) GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error) {
	inv, ok := t.s.invoices[id]
	if !ok {
		return nil, domain.NotFound("invoice", id)
	}
	inv.Attachments = append([]string{}, inv.Attachments...)
	inv.Items = []domain.InvoiceItem{}
	for _, itemID := range sortedIDs(t.s.invoiceItems) {
		item := t.s.invoiceItems[itemID]
		if item.InvoiceID != id {
			continue
		}
		if p, err := t.GetProduct(ctx, item.ProductID); err == nil {
			item.Product = p
		}
		inv.Items = append(inv.Items, item)
	}
	return &inv, nil
}

func (t *fakeTx) GetInvoiceForUpdate(ctx context.Context, id int64) (*domain.Invoice, error) {
	return t.GetInvoice(ctx, id)
}

func (t *fakeTx) CreateInvoice(_ context.Context, inv *domain.Invoice) error {
	for _, existing := range t.s.invoices {
		if existing.InvoiceNumber == inv.InvoiceNumber {
			return domain.Conflict("invoice already exists")
		}
	}
	inv.ID = t.id()
	inv.CreatedAt = time.Now()
	inv.UpdatedAt = inv.CreatedAt
	for i := range inv.Items {
		inv.Items[i].ID = t.id()
		inv.Items[i].InvoiceID = inv.ID
		item := inv.Items[i]
		item.Product = nil
		t.s.invoiceItems[item.ID] = item
	}
	header := *inv
	header.Items = nil
	header.Attachments = append([]string{}, inv.Attachments...)
	t.s.invoices[inv.ID] = header
	return nil
}

func (t *fakeTx) UpdateInvoice(_ context.Context, inv domain.Invoice) error {
	if _, ok := t.s.invoices[inv.ID]; !ok {
		return domain.NotFound("invoice", inv.ID)
	}
	inv.Items = nil
	inv.Customer = nil
	inv.Attachments = append([]string{}, inv.Attachments...)
	t.s.invoices[inv.ID] = inv
	return nil
}

func (t *fakeTx) UpdateInvoiceItem(_ context.Context, item domain.InvoiceItem) error {
	if _, ok := t.s.invoiceItems[item.ID]; !ok {
		return domain.NotFound("invoice item", item.ID)
	}
	item.Product = nil
	t.s.invoiceItems[item.ID] = item
	return nil
}

func (t *fakeTx) HeldSelections(_ context.Context, productID int64) ([]domain.Selection, error) {
	out := []domain.Selection{}
	for _, id := range sortedIDs(t.s.invoiceItems) {
		item := t.s.invoiceItems[id]
		if item.ProductID == productID && item.ReservedQuantity > 0 && !item.Selection.IsEmpty() {
			out = append(out, item.Selection)
		}
	}
	return out, nil
}

func (t *fakeTx) NextInvoiceSequence(_ context.Context, year int) (int64, error) {
	if _, ok := t.s.sequences[year]; !ok {
		var highest int64
		for _, inv := range t.s.invoices {
			if seq, ok := domain.ParseInvoiceSequence(inv.InvoiceNumber, year); ok && seq > highest {
				highest = seq
			}
		}
		t.s.sequences[year] = highest
	}
	t.s.sequences[year]++
	return t.s.sequences[year], nil
}

// ledger

func (t *fakeTx) InsertTransaction(_ context.Context, txn domain.InventoryTransaction) (domain.InventoryTransaction, error) {
	txn.ID = t.id()
	txn.CreatedAt = time.Now()
	t.s.txns = append(t.s.txns, txn)
	return txn, nil
}

func (t *fakeTx) ListTransactions(_ context.Context, f repository.TransactionFilter) ([]domain.InventoryTransaction, error) {
	out := []domain.InventoryTransaction{}
	for i := len(t.s.txns) - 1; i >= 0; i-- {
		txn := t.s.txns[i]
		if f.ProductID != nil && txn.ProductID != *f.ProductID {
			continue
		}
		if f.Reason != nil && txn.Reason != *f.Reason {
			continue
		}
		if f.ReferenceID != nil && (txn.ReferenceID == nil || *txn.ReferenceID != *f.ReferenceID) {
			continue
		}
		out = append(out, txn)
	}
	return page(out, f.Limit, f.Offset), nil
}

func (t *fakeTx) SumTransactions(_ context.Context, productID int64, reason domain.TransactionReason) (float64, error) {
	var sum float64
	for _, txn := range t.s.txns {
		if txn.ProductID == productID && txn.Reason == reason {
			sum += txn.ChangeQuantity
		}
	}
	return sum, nil
}

func (t *fakeTx) CountTransactions(_ context.Context, productID int64) (int, error) {
	n := 0
	for _, txn := range t.s.txns {
		if txn.ProductID == productID {
			n++
		}
	}
	return n, nil
}

// carts

func (t *fakeTx) ListCarts(_ context.Context, f repository.CartFilter) ([]domain.Cart, error) {
	out := []domain.Cart{}
	ids := sortedIDs(t.s.carts)
	for i := len(ids) - 1; i >= 0; i-- {
		c := t.s.carts[ids[i]]
		if c.SubmittedAt == nil {
			continue
		}
		if f.Status != nil && c.Status != *f.Status {
			continue
		}
		if f.CustomerID != nil && (c.CustomerID == nil || *c.CustomerID != *f.CustomerID) {
			continue
		}
		out = append(out, c)
	}
	return page(out, f.Limit, f.Offset), nil
}

func (t *fakeTx) GetCart(ctx context.Context, id int64) (*domain.Cart, error) {
	c, ok := t.s.carts[id]
	if !ok {
		return nil, domain.NotFound("cart", id)
	}
	c.Items = []domain.CartItem{}
	for _, itemID := range sortedIDs(t.s.cartItems) {
		item := t.s.cartItems[itemID]
		if item.CartID != id {
			continue
		}
		if p, err := t.GetProduct(ctx, item.ProductID); err == nil {
			item.Product = p
		}
		c.Items = append(c.Items, item)
	}
	return &c, nil
}

func (t *fakeTx) GetOpenCustomerCart(ctx context.Context, customerID int64) (*domain.Cart, error) {
	for _, id := range sortedIDs(t.s.carts) {
		c := t.s.carts[id]
		if c.CustomerID != nil && *c.CustomerID == customerID && c.SubmittedAt == nil {
			return t.GetCart(ctx, id)
		}
	}
	return nil, domain.NotFound("cart", nil)
}

func (t *fakeTx) CreateCart(ctx context.Context, c *domain.Cart) error {
	if c.CustomerID != nil && c.SubmittedAt == nil {
		if _, err := t.GetOpenCustomerCart(ctx, *c.CustomerID); err == nil {
			return domain.Conflict("open cart for customer already exists")
		}
	}
	c.ID = t.id()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	for i := range c.Items {
		c.Items[i].CartID = c.ID
		created, err := t.CreateCartItem(ctx, c.Items[i])
		if err != nil {
			return err
		}
		c.Items[i].ID = created.ID
	}
	header := *c
	header.Items = nil
	t.s.carts[c.ID] = header
	return nil
}

func (t *fakeTx) UpdateCart(_ context.Context, c domain.Cart) error {
	if _, ok := t.s.carts[c.ID]; !ok {
		return domain.NotFound("cart", c.ID)
	}
	c.Items = nil
	t.s.carts[c.ID] = c
	return nil
}

func (t *fakeTx) DeleteCart(_ context.Context, id int64) error {
	if _, ok := t.s.carts[id]; !ok {
		return domain.NotFound("cart", id)
	}
	delete(t.s.carts, id)
	for itemID, item := range t.s.cartItems {
		if item.CartID == id {
			delete(t.s.cartItems, itemID)
		}
	}
	return nil
}

func (t *fakeTx) GetCartStats(_ context.Context) (domain.CartStats, error) {
	stats := domain.CartStats{StatusBreakdown: map[domain.CartStatus]int{}}
	for _, c := range t.s.carts {
		if c.SubmittedAt == nil {
			continue
		}
		stats.TotalOrders++
		stats.TotalAmount += c.TotalAmount
		stats.StatusBreakdown[c.Status]++
	}
	return stats, nil
}

func (t *fakeTx) CreateCartItem(_ context.Context, item domain.CartItem) (domain.CartItem, error) {
	item.ID = t.id()
	stored := item
	stored.Product = nil
	t.s.cartItems[item.ID] = stored
	return item, nil
}

func (t *fakeTx) UpdateCartItem(_ context.Context, item domain.CartItem) error {
	if existing, ok := t.s.cartItems[item.ID]; !ok || existing.CartID != item.CartID {
		return domain.NotFound("cart item", item.ID)
	}
	item.Product = nil
	t.s.cartItems[item.ID] = item
	return nil
}

func (t *fakeTx) DeleteCartItem(_ context.Context, cartID, itemID int64) error {
	if existing, ok := t.s.cartItems[itemID]; !ok || existing.CartID != cartID {
		return domain.NotFound("cart item", itemID)
	}
	delete(t.s.cartItems, itemID)
	return nil
}

func (t *fakeTx) DeleteCartItems(_ context.Context, cartID int64) error {
	for id, item := range t.s.cartItems {
		if item.CartID == cartID {
			delete(t.s.cartItems, id)
		}
	}
	return nil
}
