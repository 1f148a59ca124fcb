package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"fabricstore/internal/domain"
	"fabricstore/internal/repository"
)

type CartItemInput struct {
	ProductID int64
	Quantity  float64
	Unit      string
	Price     float64
	domain.Selection
}

type PublicCartInput struct {
	CustomerName    string
	CustomerPhone   string
	CustomerEmail   *string
	CustomerAddress *string
	Notes           *string
	Items           []CartItemInput
}

// SubmittedCart is the intake response: the stored cart plus the per-line
// series and color breakdown.
type SubmittedCart struct {
	Cart         *domain.Cart         `json:"cart"`
	OrderDetails []domain.OrderDetail `json:"order_details"`
}

// CartReceipt is what the buyer gets back on submission; the message carries
// the cart id as a tracking code.
type CartReceipt struct {
	ID           int64                `json:"id"`
	Message      string               `json:"message"`
	TotalAmount  float64              `json:"total_amount"`
	OrderDetails []domain.OrderDetail `json:"order_details"`
}

func receiptMessage(cartID int64) string {
	return fmt.Sprintf("سفارش شما با موفقیت ثبت شد. کد پیگیری: #%d", cartID)
}

// SubmitPublicCart validates every line against current stock before anything
// is written, then stores the cart as pending.
func (s *Service) SubmitPublicCart(ctx context.Context, in PublicCartInput) (*CartReceipt, error) {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerPhone = strings.TrimSpace(in.CustomerPhone)
	if in.CustomerName == "" {
		return nil, domain.InvalidField("customer_name", "is required")
	}
	if in.CustomerPhone == "" {
		return nil, domain.InvalidField("customer_phone", "is required")
	}
	if len(in.Items) == 0 {
		return nil, domain.InvalidField("items", "at least one item is required")
	}

	var cartID int64
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		items := make([]domain.CartItem, 0, len(in.Items))
		for i, raw := range in.Items {
			item, err := buildCartItem(ctx, tx, raw)
			if err != nil {
				return itemError(i, err)
			}
			items = append(items, item)
		}
		now := s.now()
		cart := domain.Cart{
			CustomerName:    in.CustomerName,
			CustomerPhone:   in.CustomerPhone,
			CustomerEmail:   normalizeNullable(in.CustomerEmail),
			CustomerAddress: normalizeNullable(in.CustomerAddress),
			Notes:           normalizeNullable(in.Notes),
			TotalAmount:     domain.CartTotal(items),
			Status:          domain.CartPending,
			SubmittedAt:     &now,
			Items:           items,
		}
		if err := tx.CreateCart(ctx, &cart); err != nil {
			return err
		}
		cartID = cart.ID
		return nil
	})
	if err != nil {
		s.logInternal("SubmitPublicCart", map[string]any{"phone": in.CustomerPhone}, err)
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"cart_id": cartID, "items": len(in.Items)}).Info("public cart submitted")
	return s.cartReceipt(ctx, cartID)
}

// GetCustomerCart returns the customer's open cart, creating an empty one on
// first use.
func (s *Service) GetCustomerCart(ctx context.Context, actor domain.Principal) (*domain.Cart, error) {
	if !actor.IsCustomer() {
		return nil, domain.Forbidden("only customers have a personal cart")
	}
	var cart *domain.Cart
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		cart, err = openCart(ctx, tx, actor.ID)
		return err
	})
	if err != nil {
		s.logInternal("GetCustomerCart", map[string]any{"customer_id": actor.ID}, err)
		return nil, err
	}
	return cart, nil
}

func (s *Service) AddCartItem(ctx context.Context, actor domain.Principal, in CartItemInput) (*domain.Cart, error) {
	return s.mutateCustomerCart(ctx, actor, "AddCartItem", func(tx repository.Tx, cart *domain.Cart) error {
		item, err := buildCartItem(ctx, tx, in)
		if err != nil {
			return err
		}
		item.CartID = cart.ID
		created, err := tx.CreateCartItem(ctx, item)
		if err != nil {
			return err
		}
		cart.Items = append(cart.Items, created)
		return nil
	})
}

func (s *Service) UpdateCartItem(ctx context.Context, actor domain.Principal, itemID int64, in CartItemInput) (*domain.Cart, error) {
	return s.mutateCustomerCart(ctx, actor, "UpdateCartItem", func(tx repository.Tx, cart *domain.Cart) error {
		idx := cartItemIndex(cart, itemID)
		if idx < 0 {
			return domain.NotFound("cart item", itemID)
		}
		if in.ProductID == 0 {
			in.ProductID = cart.Items[idx].ProductID
		}
		if in.ProductID != cart.Items[idx].ProductID {
			return domain.InvalidField("product_id", "cannot change the product of a cart item")
		}
		item, err := buildCartItem(ctx, tx, in)
		if err != nil {
			return err
		}
		item.ID = itemID
		item.CartID = cart.ID
		if err := tx.UpdateCartItem(ctx, item); err != nil {
			return err
		}
		cart.Items[idx] = item
		return nil
	})
}

func (s *Service) RemoveCartItem(ctx context.Context, actor domain.Principal, itemID int64) (*domain.Cart, error) {
	return s.mutateCustomerCart(ctx, actor, "RemoveCartItem", func(tx repository.Tx, cart *domain.Cart) error {
		idx := cartItemIndex(cart, itemID)
		if idx < 0 {
			return domain.NotFound("cart item", itemID)
		}
		if err := tx.DeleteCartItem(ctx, cart.ID, itemID); err != nil {
			return err
		}
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
		return nil
	})
}

func (s *Service) ClearCart(ctx context.Context, actor domain.Principal) (*domain.Cart, error) {
	return s.mutateCustomerCart(ctx, actor, "ClearCart", func(tx repository.Tx, cart *domain.Cart) error {
		if err := tx.DeleteCartItems(ctx, cart.ID); err != nil {
			return err
		}
		cart.Items = []domain.CartItem{}
		return nil
	})
}

// CheckoutCustomerCart revalidates every line and submits the open cart for
// review. The next GetCustomerCart starts a fresh one.
func (s *Service) CheckoutCustomerCart(ctx context.Context, actor domain.Principal, notes *string) (*CartReceipt, error) {
	if !actor.IsCustomer() {
		return nil, domain.Forbidden("only customers have a personal cart")
	}
	var cartID int64
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		cart, err := tx.GetOpenCustomerCart(ctx, actor.ID)
		if err != nil {
			if domain.IsNotFound(err) {
				return domain.InvalidField("items", "cart is empty")
			}
			return err
		}
		if len(cart.Items) == 0 {
			return domain.InvalidField("items", "cart is empty")
		}
		for i, item := range cart.Items {
			if _, err := buildCartItem(ctx, tx, CartItemInput{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Unit:      item.Unit,
				Price:     item.Price,
				Selection: item.Selection,
			}); err != nil {
				return itemError(i, err)
			}
		}
		now := s.now()
		cart.SubmittedAt = &now
		cart.Status = domain.CartPending
		cart.TotalAmount = domain.CartTotal(cart.Items)
		if notes != nil {
			cart.Notes = normalizeNullable(notes)
		}
		cartID = cart.ID
		return tx.UpdateCart(ctx, *cart)
	})
	if err != nil {
		s.logInternal("CheckoutCustomerCart", map[string]any{"customer_id": actor.ID}, err)
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"cart_id": cartID, "customer_id": actor.ID}).Info("customer cart submitted")
	return s.cartReceipt(ctx, cartID)
}

func (s *Service) ListCarts(ctx context.Context, actor domain.Principal, filter repository.CartFilter) ([]domain.Cart, error) {
	if err := authorize(actor, financeRoles...); err != nil {
		return nil, err
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, domain.InvalidField("status", "unknown cart status %q", *filter.Status)
	}
	var carts []domain.Cart
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		carts, err = tx.ListCarts(ctx, filter)
		return err
	})
	if err != nil {
		s.logInternal("ListCarts", nil, err)
		return nil, err
	}
	return carts, nil
}

func (s *Service) GetCart(ctx context.Context, actor domain.Principal, id int64) (*SubmittedCart, error) {
	if err := authorize(actor, financeRoles...); err != nil {
		return nil, err
	}
	return s.submittedCart(ctx, id)
}

// UpdateCartStatus sets any status at any time; carts have no enforced order.
func (s *Service) UpdateCartStatus(ctx context.Context, actor domain.Principal, id int64, status domain.CartStatus) (*domain.Cart, error) {
	if err := authorize(actor, financeRoles...); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, domain.InvalidField("status", "unknown cart status %q", status)
	}
	var cart *domain.Cart
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		if cart, err = tx.GetCart(ctx, id); err != nil {
			return err
		}
		cart.Status = status
		return tx.UpdateCart(ctx, *cart)
	})
	if err != nil {
		s.logInternal("UpdateCartStatus", map[string]any{"cart_id": id}, err)
		return nil, err
	}
	return cart, nil
}

func (s *Service) DeleteCart(ctx context.Context, actor domain.Principal, id int64) error {
	if err := authorize(actor, financeRoles...); err != nil {
		return err
	}
	return s.store.InTx(ctx, func(tx repository.Tx) error {
		return tx.DeleteCart(ctx, id)
	})
}

func (s *Service) CartStats(ctx context.Context, actor domain.Principal) (domain.CartStats, error) {
	if err := authorize(actor, financeRoles...); err != nil {
		return domain.CartStats{}, err
	}
	var stats domain.CartStats
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		stats, err = tx.GetCartStats(ctx)
		return err
	})
	return stats, err
}

func (s *Service) mutateCustomerCart(
	ctx context.Context,
	actor domain.Principal,
	funcName string,
	mutate func(tx repository.Tx, cart *domain.Cart) error,
) (*domain.Cart, error) {
	if !actor.IsCustomer() {
		return nil, domain.Forbidden("only customers have a personal cart")
	}
	var cartID int64
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		cart, err := openCart(ctx, tx, actor.ID)
		if err != nil {
			return err
		}
		if err := mutate(tx, cart); err != nil {
			return err
		}
		cart.TotalAmount = domain.CartTotal(cart.Items)
		cartID = cart.ID
		return tx.UpdateCart(ctx, *cart)
	})
	if err != nil {
		s.logInternal(funcName, map[string]any{"customer_id": actor.ID}, err)
		return nil, err
	}
	var cart *domain.Cart
	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		cart, err = tx.GetCart(ctx, cartID)
		return err
	})
	return cart, err
}

func (s *Service) submittedCart(ctx context.Context, id int64) (*SubmittedCart, error) {
	var cart *domain.Cart
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		cart, err = tx.GetCart(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &SubmittedCart{Cart: cart, OrderDetails: domain.BuildOrderDetails(cart.Items)}, nil
}

func (s *Service) cartReceipt(ctx context.Context, id int64) (*CartReceipt, error) {
	submitted, err := s.submittedCart(ctx, id)
	if err != nil {
		return nil, err
	}
	return &CartReceipt{
		ID:           submitted.Cart.ID,
		Message:      receiptMessage(submitted.Cart.ID),
		TotalAmount:  submitted.Cart.TotalAmount,
		OrderDetails: submitted.OrderDetails,
	}, nil
}

func openCart(ctx context.Context, tx repository.Tx, customerID int64) (*domain.Cart, error) {
	cart, err := tx.GetOpenCustomerCart(ctx, customerID)
	if err == nil {
		return cart, nil
	}
	if !domain.IsNotFound(err) {
		return nil, err
	}
	customer, err := tx.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	cart = &domain.Cart{
		CustomerID:      int64Ptr(customer.ID),
		CustomerName:    customer.FullName(),
		CustomerPhone:   customer.ContactPhone(),
		CustomerAddress: customer.Address,
		Status:          domain.CartPending,
		Items:           []domain.CartItem{},
	}
	if err := tx.CreateCart(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// buildCartItem checks the product and selection against current stock. It
// never writes; cart lines hold no inventory.
func buildCartItem(ctx context.Context, tx repository.Tx, in CartItemInput) (domain.CartItem, error) {
	if in.Quantity <= 0 {
		return domain.CartItem{}, domain.InvalidField("quantity", "must be greater than zero")
	}
	in.Price = domain.RoundMoney(in.Price)
	if in.Price <= 0 {
		return domain.CartItem{}, domain.InvalidField("price", "must be greater than zero")
	}
	product, err := tx.GetProduct(ctx, in.ProductID)
	if err != nil {
		return domain.CartItem{}, err
	}
	if !product.IsAvailable {
		return domain.CartItem{}, domain.InvalidField("product_id", "product %s is not available", product.Code)
	}
	sel := cleanSelection(in.Selection)
	if err := domain.ValidateSelection(*product, sel, in.Quantity); err != nil {
		return domain.CartItem{}, err
	}
	unit := strings.TrimSpace(in.Unit)
	if unit == "" {
		unit = product.Unit
	}
	return domain.CartItem{
		ProductID: product.ID,
		Quantity:  in.Quantity,
		Unit:      unit,
		Price:     in.Price,
		Selection: sel,
		Product:   product,
	}, nil
}

func cartItemIndex(cart *domain.Cart, itemID int64) int {
	for i, item := range cart.Items {
		if item.ID == itemID {
			return i
		}
	}
	return -1
}
