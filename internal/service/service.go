package service

import (
	"context"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"fabricstore/internal/auth"
	"fabricstore/internal/blob"
	"fabricstore/internal/domain"
	"fabricstore/internal/logging"
	"fabricstore/internal/repository"
)

type Options struct {
	// AllowCancelDelivered lets accountants and admins cancel delivered
	// invoices.
	AllowCancelDelivered bool
	DefaultAdminEmail    string
	DefaultAdminPassword string
}

type Service struct {
	store  repository.Store
	blobs  blob.Store
	tokens *auth.TokenIssuer
	log    logrus.FieldLogger
	opts   Options
	now    func() time.Time
}

func New(
	store repository.Store,
	blobs blob.Store,
	tokens *auth.TokenIssuer,
	log logrus.FieldLogger,
	opts Options,
) *Service {
	if log == nil {
		log = logging.Discard()
	}
	return &Service{
		store:  store,
		blobs:  blobs,
		tokens: tokens,
		log:    log,
		opts:   opts,
		now:    time.Now,
	}
}

// authorize is the single role gate every guarded operation goes through.
func authorize(actor domain.Principal, allowed ...domain.Role) error {
	for _, role := range allowed {
		if actor.Role == role {
			return nil
		}
	}
	return domain.Forbidden("role %q may not perform this operation", actor.Role)
}

var staffRoles = []domain.Role{domain.RoleAdmin, domain.RoleAccountant, domain.RoleWarehouse}

var financeRoles = []domain.Role{domain.RoleAdmin, domain.RoleAccountant}

// saveBlob stores an upload outside any transaction.
func (s *Service) saveBlob(ctx context.Context, folder, filename string, r io.Reader) (string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", domain.InvalidField("file", "filename is required")
	}
	return s.blobs.Save(ctx, folder, filename, r)
}

// dropBlobs deletes stored files best effort; failures are only logged.
func (s *Service) dropBlobs(ctx context.Context, paths ...string) {
	for _, p := range paths {
		if err := s.blobs.Delete(ctx, p); err != nil {
			s.log.WithError(err).WithField("path", p).Warn("blob delete failed")
		}
	}
}

func (s *Service) logInternal(funcName string, data any, err error) {
	if err == nil || domain.IsNotFound(err) || domain.IsValidation(err) || domain.IsConflict(err) || domain.IsForbidden(err) {
		return
	}
	logging.LogError(s.log, "service", funcName, data, err)
}

// lockProducts takes row locks on every product in ascending id order so
// concurrent reservations over overlapping products cannot deadlock.
func lockProducts(ctx context.Context, tx repository.Tx, ids []int64) (map[int64]*domain.Product, error) {
	unique := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i] < unique[j] })

	locked := make(map[int64]*domain.Product, len(unique))
	for _, id := range unique {
		p, err := tx.GetProductForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		locked[id] = p
	}
	return locked, nil
}

func normalizeNullable(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}

func int64Ptr(v int64) *int64 { return &v }

func stringPtr(v string) *string { return &v }
