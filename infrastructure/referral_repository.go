package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"referral-intake/domain"
)

// ReferralRepository stores referrals through gorm.
type ReferralRepository struct {
	db *gorm.DB
}

var _ domain.ReferralRepository = (*ReferralRepository)(nil)

func NewReferralRepository(db *gorm.DB) *ReferralRepository {
	return &ReferralRepository{db: db}
}

func (r *ReferralRepository) Insert(ctx context.Context, ref *domain.Referral) error {
	if missing := ref.MissingFields(); len(missing) > 0 {
		return &domain.StorageError{
			Op:  "insert",
			Err: fmt.Errorf("missing required fields: %s", strings.Join(missing, ", ")),
		}
	}
	if ref.Status == "" {
		ref.Status = domain.StatusPending
	}

	if err := r.db.WithContext(ctx).Create(ref).Error; err != nil {
		return &domain.StorageError{Op: "insert", Err: err}
	}
	return nil
}

func (r *ReferralRepository) ListAll(ctx context.Context) ([]domain.Referral, error) {
	var refs []domain.Referral
	err := r.db.WithContext(ctx).
		Order("fit_score DESC").
		Order("id ASC").
		Find(&refs).Error
	if err != nil {
		return nil, &domain.StorageError{Op: "list", Err: err}
	}
	return refs, nil
}

func (r *ReferralRepository) Get(ctx context.Context, id uint) (*domain.Referral, error) {
	var ref domain.Referral
	err := r.db.WithContext(ctx).First(&ref, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "get", Err: err}
	}
	return &ref, nil
}

func (r *ReferralRepository) UpdateStatus(ctx context.Context, id uint, from, to domain.Status) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Referral{}).
		Where("id = ? AND status = ?", id, string(from)).
		Update("status", string(to))
	if res.Error != nil {
		return &domain.StorageError{Op: "update status", Err: res.Error}
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// Nothing matched: either the row is gone or someone else moved it.
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Referral{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return &domain.StorageError{Op: "update status", Err: err}
	}
	if count == 0 {
		return domain.ErrNotFound
	}
	return domain.ErrStatusConflict
}
