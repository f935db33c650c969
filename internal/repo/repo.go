package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/user_auth/internal/domain"
	"github.com/Skotchmaster/user_auth/internal/models"
)

// GormRepo is the credential store. Every state change is a single UPDATE
// so fingerprint, epoch and timestamps never tear.
type GormRepo struct {
	DB *gorm.DB
}

func NewGormRepo(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}

func (r *GormRepo) Create(ctx context.Context, a *models.Account) error {
	tx := r.DB.WithContext(ctx).Where("username = ?", a.Username).FirstOrCreate(a)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrDuplicatedKey) {
			return domain.ErrConflict
		}
		return fmt.Errorf("create account: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormRepo) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	var a models.Account
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&a).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *GormRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var a models.Account
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// RecordLogin stores the new session fingerprint together with the login time.
func (r *GormRepo) RecordLogin(ctx context.Context, id uuid.UUID, fingerprint string, at time.Time) error {
	res := r.accounts(ctx).
		Where("id = ?", id).
		Updates(map[string]any{
			"refresh_fingerprint": fingerprint,
			"last_login_at":       at,
		})
	return affected(res, "record login")
}

// RotateFingerprint swaps the stored fingerprint only if it still equals old
// under the same epoch. It reports false when another writer got there first.
func (r *GormRepo) RotateFingerprint(ctx context.Context, id uuid.UUID, epoch int64, old, next string) (bool, error) {
	res := r.accounts(ctx).
		Where("id = ? AND refresh_epoch = ? AND refresh_fingerprint = ?", id, epoch, old).
		Update("refresh_fingerprint", next)
	if res.Error != nil {
		return false, fmt.Errorf("rotate fingerprint: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRepo) ClearFingerprint(ctx context.Context, id uuid.UUID) error {
	res := r.accounts(ctx).
		Where("id = ?", id).
		Update("refresh_fingerprint", gorm.Expr("NULL"))
	if res.Error != nil {
		return fmt.Errorf("clear fingerprint: %w", res.Error)
	}
	return nil
}

// BumpEpoch ends every outstanding session of the account and returns the new epoch.
func (r *GormRepo) BumpEpoch(ctx context.Context, id uuid.UUID) (int64, error) {
	var epoch int64
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Account{}).
			Where("id = ?", id).
			Updates(invalidateSessions(nil))
		if err := affected(res, "bump epoch"); err != nil {
			return err
		}
		return tx.Model(&models.Account{}).
			Where("id = ?", id).
			Select("refresh_epoch").
			Scan(&epoch).Error
	})
	if err != nil {
		return 0, err
	}
	return epoch, nil
}

func (r *GormRepo) ReplacePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	res := r.accounts(ctx).
		Where("id = ?", id).
		Updates(invalidateSessions(map[string]any{"password_hash": passwordHash}))
	return affected(res, "replace password")
}

func (r *GormRepo) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	res := r.accounts(ctx).
		Where("id = ?", id).
		Updates(invalidateSessions(map[string]any{"status": status}))
	return affected(res, "set status")
}

func (r *GormRepo) UpdateDisplayName(ctx context.Context, id uuid.UUID, name string) error {
	res := r.accounts(ctx).
		Where("id = ?", id).
		Update("display_name", name)
	return affected(res, "update display name")
}

func (r *GormRepo) accounts(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).Model(&models.Account{})
}

func invalidateSessions(m map[string]any) map[string]any {
	if m == nil {
		m = make(map[string]any, 2)
	}
	m["refresh_epoch"] = gorm.Expr("refresh_epoch + 1")
	m["refresh_fingerprint"] = gorm.Expr("NULL")
	return m
}

func affected(res *gorm.DB, op string) error {
	if res.Error != nil {
		return fmt.Errorf("%s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}
