package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"installment_app_echo/internal/models"
)

const roleCacheTTL = 10 * time.Minute

// RoleService resolves account roles. An account without a role row is an employee.
type RoleService struct {
	db    *gorm.DB
	cache *RedisCache
}

func NewRoleService(db *gorm.DB, cache *RedisCache) *RoleService {
	return &RoleService{db: db, cache: cache}
}

func roleCacheKey(uid string) string {
	return "role:" + uid
}

// RoleOf returns the role of uid
func (s *RoleService) RoleOf(ctx context.Context, uid string) (models.Role, error) {
	return GetOrSet(s.cache, ctx, roleCacheKey(uid), roleCacheTTL, func() (models.Role, error) {
		var row models.UserRole
		err := s.db.WithContext(ctx).Where("user_id = ?", uid).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.RoleEmployee, nil
		}
		if err != nil {
			return "", err
		}
		if !row.Role.Valid() {
			return models.RoleEmployee, nil
		}
		return row.Role, nil
	})
}

// RolesOf resolves several accounts at once; missing rows map to employee
func (s *RoleService) RolesOf(ctx context.Context, uids []string) (map[string]models.Role, error) {
	result := make(map[string]models.Role, len(uids))
	for _, uid := range uids {
		result[uid] = models.RoleEmployee
	}
	if len(uids) == 0 {
		return result, nil
	}

	var rows []models.UserRole
	if err := s.db.WithContext(ctx).Where("user_id IN ?", uids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row.Role.Valid() {
			result[row.UserID] = row.Role
		}
	}
	return result, nil
}

// SetRole writes the role row of uid, creating it when absent. It reports whether the
// stored role changed.
func (s *RoleService) SetRole(ctx context.Context, uid string, role models.Role, createdBy string) (bool, error) {
	if !role.Valid() {
		return false, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}

	changed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.UserRole
		err := tx.Where("user_id = ?", uid).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			changed = true
			return tx.Create(&models.UserRole{UserID: uid, Role: role, CreatedBy: createdBy}).Error
		}
		if err != nil {
			return err
		}
		if row.Role == role {
			return nil
		}
		changed = true
		return tx.Model(&row).Update("role", role).Error
	})
	if err != nil {
		return false, err
	}

	s.forget(ctx, uid)
	return changed, nil
}

// DeleteRole removes the role row of uid
func (s *RoleService) DeleteRole(ctx context.Context, tx *gorm.DB, uid string) error {
	if err := tx.WithContext(ctx).Where("user_id = ?", uid).Delete(&models.UserRole{}).Error; err != nil {
		return err
	}
	s.forget(ctx, uid)
	return nil
}

func (s *RoleService) forget(ctx context.Context, uid string) {
	if err := s.cache.Delete(ctx, roleCacheKey(uid)); err != nil {
		log.Warn().Err(err).Str("user_id", uid).Msg("failed to invalidate role cache")
	}
}
