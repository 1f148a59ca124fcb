package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"fabricstore/internal/auth"
	"fabricstore/internal/domain"
	"fabricstore/internal/repository"
)

type CustomerInput struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Mobile    *string
	Address   *string
	City      *string
	Province  *string
	// Password enables customer panel login when set.
	Password *string
}

type BankAccountInput struct {
	BankName      string
	AccountNumber string
	IBAN          *string
}

func (s *Service) CreateCustomer(ctx context.Context, actor domain.Principal, in CustomerInput) (*domain.Customer, error) {
	if err := authorize(actor, financeRoles...); err != nil {
		return nil, err
	}
	customer := domain.Customer{}
	if err := applyCustomerInput(&customer, in); err != nil {
		return nil, err
	}
	if customer.FirstName == "" {
		return nil, domain.InvalidField("first_name", "is required")
	}
	if customer.Phone == "" {
		return nil, domain.InvalidField("phone", "is required")
	}

	var created domain.Customer
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		created, err = tx.CreateCustomer(ctx, customer)
		return err
	})
	if err != nil {
		s.logInternal("CreateCustomer", nil, err)
		return nil, err
	}
	return &created, nil
}

// GetCustomer returns the customer with purchase figures computed from
// invoices. They are informational and never written back to the balance.
func (s *Service) GetCustomer(ctx context.Context, actor domain.Principal, id int64) (*domain.CustomerDetail, error) {
	if actor.IsCustomer() {
		if actor.ID != id {
			return nil, domain.NotFound("customer", id)
		}
	} else if err := authorize(actor, staffRoles...); err != nil {
		return nil, err
	}

	var detail domain.CustomerDetail
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		customer, err := tx.GetCustomer(ctx, id)
		if err != nil {
			return err
		}
		stats, err := tx.GetCustomerStats(ctx, id)
		if err != nil {
			return err
		}
		detail = domain.CustomerDetail{
			Customer:              *customer,
			FullName:              customer.FullName(),
			TotalPurchases:        stats.TotalPurchases,
			TotalPaid:             stats.TotalPaid,
			ComputedBalance:       decimal.NewFromFloat(stats.TotalPaid).Sub(decimal.NewFromFloat(stats.TotalPurchases)).InexactFloat64(),
			InvoicesCount:         stats.InvoicesCount,
			ChecksInProgressCount: stats.ChecksInProgressCount,
		}
		return nil
	})
	if err != nil {
		s.logInternal("GetCustomer", map[string]any{"customer_id": id}, err)
		return nil, err
	}
	return &detail, nil
}

func (s *Service) ListCustomers(ctx context.Context, actor domain.Principal, filter repository.CustomerFilter) ([]domain.Customer, error) {
	if err := authorize(actor, staffRoles...); err != nil {
		return nil, err
	}
	var customers []domain.Customer
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		customers, err = tx.ListCustomers(ctx, filter)
		return err
	})
	if err != nil {
		s.logInternal("ListCustomers", nil, err)
		return nil, err
	}
	return customers, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, actor domain.Principal, id int64, in CustomerInput) (*domain.Customer, error) {
	if err := authorize(actor, financeRoles...); err != nil {
		return nil, err
	}
	var updated *domain.Customer
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		customer, err := tx.GetCustomerForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := applyCustomerInput(customer, in); err != nil {
			return err
		}
		if customer.FirstName == "" || customer.Phone == "" {
			return domain.Invalid("first_name and phone cannot be empty")
		}
		if err := tx.UpdateCustomer(ctx, *customer); err != nil {
			return err
		}
		updated = customer
		return nil
	})
	if err != nil {
		s.logInternal("UpdateCustomer", map[string]any{"customer_id": id}, err)
		return nil, err
	}
	return updated, nil
}

// DeleteCustomer refuses customers that still have invoices.
func (s *Service) DeleteCustomer(ctx context.Context, actor domain.Principal, id int64) error {
	if err := authorize(actor, domain.RoleAdmin); err != nil {
		return err
	}
	return s.store.InTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetCustomerForUpdate(ctx, id); err != nil {
			return err
		}
		stats, err := tx.GetCustomerStats(ctx, id)
		if err != nil {
			return err
		}
		if stats.InvoicesCount > 0 {
			return domain.Invalid("customer %d has %d invoices and cannot be deleted", id, stats.InvoicesCount)
		}
		return tx.DeleteCustomer(ctx, id)
	})
}

func (s *Service) AddBankAccount(ctx context.Context, actor domain.Principal, customerID int64, in BankAccountInput) (*domain.BankAccount, error) {
	if err := authorize(actor, financeRoles...); err != nil {
		return nil, err
	}
	in.BankName = strings.TrimSpace(in.BankName)
	in.AccountNumber = strings.TrimSpace(in.AccountNumber)
	if in.BankName == "" || in.AccountNumber == "" {
		return nil, domain.InvalidField("account_number", "bank_name and account_number are required")
	}
	var created domain.BankAccount
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetCustomer(ctx, customerID); err != nil {
			return err
		}
		var err error
		created, err = tx.CreateBankAccount(ctx, domain.BankAccount{
			CustomerID:    customerID,
			BankName:      in.BankName,
			AccountNumber: in.AccountNumber,
			IBAN:          normalizeNullable(in.IBAN),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *Service) DeleteBankAccount(ctx context.Context, actor domain.Principal, customerID, accountID int64) error {
	if err := authorize(actor, financeRoles...); err != nil {
		return err
	}
	return s.store.InTx(ctx, func(tx repository.Tx) error {
		return tx.DeleteBankAccount(ctx, customerID, accountID)
	})
}

func (s *Service) GetBalance(ctx context.Context, actor domain.Principal, customerID int64) (domain.BalanceInfo, error) {
	if actor.IsCustomer() {
		if actor.ID != customerID {
			return domain.BalanceInfo{}, domain.NotFound("customer", customerID)
		}
	} else if err := authorize(actor, financeRoles...); err != nil {
		return domain.BalanceInfo{}, err
	}
	var info domain.BalanceInfo
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		customer, err := tx.GetCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		info = customer.BalanceInfo()
		return nil
	})
	return info, err
}

// AdjustBalance adds delta to the customer's balance. Positive means the
// business owes the customer more.
func (s *Service) AdjustBalance(ctx context.Context, actor domain.Principal, customerID int64, delta float64, notes string) (domain.BalanceInfo, error) {
	return s.mutateBalance(ctx, actor, customerID, "adjust", func(c *domain.Customer) {
		c.AdjustBalance(delta, notes)
	})
}

func (s *Service) SetBalance(ctx context.Context, actor domain.Principal, customerID int64, balance float64, notes string) (domain.BalanceInfo, error) {
	return s.mutateBalance(ctx, actor, customerID, "set", func(c *domain.Customer) {
		c.SetBalance(balance, notes)
	})
}

func (s *Service) mutateBalance(
	ctx context.Context,
	actor domain.Principal,
	customerID int64,
	op string,
	mutate func(c *domain.Customer),
) (domain.BalanceInfo, error) {
	if err := authorize(actor, financeRoles...); err != nil {
		return domain.BalanceInfo{}, err
	}
	var (
		info   domain.BalanceInfo
		before float64
	)
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		customer, err := tx.GetCustomerForUpdate(ctx, customerID)
		if err != nil {
			return err
		}
		before = customer.CurrentBalance
		mutate(customer)
		if err := tx.UpdateCustomer(ctx, *customer); err != nil {
			return err
		}
		info = customer.BalanceInfo()
		return nil
	})
	if err != nil {
		s.logInternal("mutateBalance", map[string]any{"customer_id": customerID, "op": op}, err)
		return domain.BalanceInfo{}, err
	}
	s.log.WithFields(logrus.Fields{
		"customer_id": customerID,
		"op":          op,
		"from":        before,
		"to":          info.CurrentBalance,
		"actor":       actor.ID,
	}).Info("customer balance changed")
	return info, nil
}

func applyCustomerInput(c *domain.Customer, in CustomerInput) error {
	if in.FirstName != nil {
		c.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		c.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Phone != nil {
		c.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Mobile != nil {
		c.Mobile = normalizeNullable(in.Mobile)
	}
	if in.Address != nil {
		c.Address = normalizeNullable(in.Address)
	}
	if in.City != nil {
		c.City = normalizeNullable(in.City)
	}
	if in.Province != nil {
		c.Province = normalizeNullable(in.Province)
	}
	if in.Password != nil && *in.Password != "" {
		if len(*in.Password) < 6 {
			return domain.InvalidField("password", "must be at least 6 characters")
		}
		hashed, err := auth.HashPassword(*in.Password)
		if err != nil {
			return err
		}
		c.PasswordHash = hashed
	}
	return nil
}
