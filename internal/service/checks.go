package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"fabricstore/internal/domain"
	"fabricstore/internal/repository"
)

type CreateCheckInput struct {
	CheckNumber      string
	CustomerID       int64
	Amount           float64
	IssueDate        string
	DueDate          string
	Status           domain.CheckStatus
	RelatedInvoiceID *int64
}

type UpdateCheckInput struct {
	CheckNumber      *string
	CustomerID       *int64
	Amount           *float64
	IssueDate        *string
	DueDate          *string
	Status           *domain.CheckStatus
	RelatedInvoiceID *int64
}

func (s *Service) CreateCheck(ctx context.Context, actor domain.Principal, in CreateCheckInput) (*domain.Check, error) {
	if err := authorize(actor, financeRoles...); err != nil {
		return nil, err
	}
	in.CheckNumber = strings.TrimSpace(in.CheckNumber)
	if in.CheckNumber == "" {
		return nil, domain.InvalidField("check_number", "is required")
	}
	if in.Amount <= 0 {
		return nil, domain.InvalidField("amount", "must be greater than zero")
	}
	if strings.TrimSpace(in.IssueDate) == "" || strings.TrimSpace(in.DueDate) == "" {
		return nil, domain.InvalidField("due_date", "issue_date and due_date are required")
	}
	if in.Status == "" {
		in.Status = domain.CheckInProgress
	}
	if !in.Status.Valid() {
		return nil, domain.InvalidField("status", "unknown check status %q", in.Status)
	}

	var created domain.Check
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetCustomer(ctx, in.CustomerID); err != nil {
			return err
		}
		if in.RelatedInvoiceID != nil {
			if err := invoiceBelongsTo(ctx, tx, *in.RelatedInvoiceID, in.CustomerID); err != nil {
				return err
			}
		}
		var err error
		created, err = tx.CreateCheck(ctx, domain.Check{
			CheckNumber:      in.CheckNumber,
			CustomerID:       in.CustomerID,
			Amount:           in.Amount,
			IssueDate:        strings.TrimSpace(in.IssueDate),
			DueDate:          strings.TrimSpace(in.DueDate),
			Status:           in.Status,
			RelatedInvoiceID: in.RelatedInvoiceID,
			Attachments:      []string{},
			CreatedBy:        actor.ID,
		})
		return err
	})
	if err != nil {
		s.logInternal("CreateCheck", map[string]any{"customer_id": in.CustomerID}, err)
		return nil, err
	}
	return &created, nil
}

func (s *Service) GetCheck(ctx context.Context, actor domain.Principal, id int64) (*domain.Check, error) {
	if !actor.IsCustomer() {
		if err := authorize(actor, financeRoles...); err != nil {
			return nil, err
		}
	}
	var check *domain.Check
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		check, err = tx.GetCheck(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if actor.IsCustomer() && check.CustomerID != actor.ID {
		return nil, domain.NotFound("check", id)
	}
	return check, nil
}

func (s *Service) ListChecks(ctx context.Context, actor domain.Principal, filter repository.CheckFilter) ([]domain.Check, error) {
	if actor.IsCustomer() {
		filter.CustomerID = int64Ptr(actor.ID)
	} else if err := authorize(actor, financeRoles...); err != nil {
		return nil, err
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, domain.InvalidField("status", "unknown check status %q", *filter.Status)
	}
	var checks []domain.Check
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		checks, err = tx.ListChecks(ctx, filter)
		return err
	})
	if err != nil {
		s.logInternal("ListChecks", nil, err)
		return nil, err
	}
	return checks, nil
}

// UpdateCheck edits a check. Once linked to an invoice a check cannot move to
// another invoice or another customer.
func (s *Service) UpdateCheck(ctx context.Context, actor domain.Principal, id int64, in UpdateCheckInput) (*domain.Check, error) {
	if err := authorize(actor, financeRoles...); err != nil {
		return nil, err
	}
	var updated *domain.Check
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		check, err := tx.GetCheckForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if in.CheckNumber != nil {
			if check.CheckNumber = strings.TrimSpace(*in.CheckNumber); check.CheckNumber == "" {
				return domain.InvalidField("check_number", "cannot be empty")
			}
		}
		if in.Amount != nil {
			if *in.Amount <= 0 {
				return domain.InvalidField("amount", "must be greater than zero")
			}
			check.Amount = *in.Amount
		}
		if in.IssueDate != nil {
			check.IssueDate = strings.TrimSpace(*in.IssueDate)
		}
		if in.DueDate != nil {
			check.DueDate = strings.TrimSpace(*in.DueDate)
		}
		if in.Status != nil {
			if !in.Status.Valid() {
				return domain.InvalidField("status", "unknown check status %q", *in.Status)
			}
			check.Status = *in.Status
		}
		if in.CustomerID != nil && *in.CustomerID != check.CustomerID {
			if check.RelatedInvoiceID != nil {
				return domain.InvalidField("customer_id", "check linked to invoice %d cannot change customer", *check.RelatedInvoiceID)
			}
			if _, err := tx.GetCustomer(ctx, *in.CustomerID); err != nil {
				return err
			}
			check.CustomerID = *in.CustomerID
		}
		if in.RelatedInvoiceID != nil {
			if err := checkLinkable(*check, check.CustomerID, *in.RelatedInvoiceID); err != nil {
				return err
			}
			if err := invoiceBelongsTo(ctx, tx, *in.RelatedInvoiceID, check.CustomerID); err != nil {
				return err
			}
			check.RelatedInvoiceID = in.RelatedInvoiceID
		}
		if err := tx.UpdateCheck(ctx, *check); err != nil {
			return err
		}
		updated = check
		return nil
	})
	if err != nil {
		s.logInternal("UpdateCheck", map[string]any{"check_id": id}, err)
		return nil, err
	}
	return updated, nil
}

func (s *Service) SetCheckStatus(ctx context.Context, actor domain.Principal, id int64, status domain.CheckStatus) (*domain.Check, error) {
	return s.UpdateCheck(ctx, actor, id, UpdateCheckInput{Status: &status})
}

func (s *Service) DeleteCheck(ctx context.Context, actor domain.Principal, id int64) error {
	if err := authorize(actor, financeRoles...); err != nil {
		return err
	}
	var attachments []string
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		check, err := tx.GetCheckForUpdate(ctx, id)
		if err != nil {
			return err
		}
		attachments = check.Attachments
		return tx.DeleteCheck(ctx, id)
	})
	if err != nil {
		return err
	}
	s.dropBlobs(ctx, attachments...)
	return nil
}

func (s *Service) AddCheckAttachment(ctx context.Context, actor domain.Principal, id int64, filename string, r io.Reader) (*domain.Check, error) {
	if err := authorize(actor, financeRoles...); err != nil {
		return nil, err
	}
	if _, err := s.GetCheck(ctx, actor, id); err != nil {
		return nil, err
	}
	path, err := s.saveBlob(ctx, fmt.Sprintf("checks/%d", id), filename, r)
	if err != nil {
		return nil, err
	}
	var updated *domain.Check
	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		check, err := tx.GetCheckForUpdate(ctx, id)
		if err != nil {
			return err
		}
		check.Attachments = append(check.Attachments, path)
		if err := tx.UpdateCheck(ctx, *check); err != nil {
			return err
		}
		updated = check
		return nil
	})
	if err != nil {
		s.dropBlobs(ctx, path)
		return nil, err
	}
	return updated, nil
}

func invoiceBelongsTo(ctx context.Context, tx repository.Tx, invoiceID, customerID int64) error {
	invoice, err := tx.GetInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	if invoice.CustomerID != customerID {
		return domain.InvalidField("related_invoice_id", "invoice %s belongs to another customer", invoice.InvoiceNumber)
	}
	return nil
}
