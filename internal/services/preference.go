package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"installment_app_echo/internal/models"
)

type PreferenceService struct {
	db *gorm.DB
}

func NewPreferenceService(db *gorm.DB) *PreferenceService {
	return &PreferenceService{db: db}
}

// Get returns the stored preference of uid, or the e-mail default when none is stored
func (s *PreferenceService) Get(ctx context.Context, uid string) (*models.UserNotifPreference, error) {
	var pref models.UserNotifPreference
	err := s.db.WithContext(ctx).Where("user_id = ?", uid).First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.UserNotifPreference{
			UserID:             uid,
			Channel:            models.NotificationChannelEmail,
			WhatsappTargetType: models.WhatsappTargetTypePersonal,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &pref, nil
}

// Save validates and upserts the preference of uid
func (s *PreferenceService) Save(ctx context.Context, uid string, in models.UserNotifPreference) (*models.UserNotifPreference, error) {
	switch in.Channel {
	case models.NotificationChannelEmail, models.NotificationChannelNone:
	case models.NotificationChannelWhatsapp:
		if in.WhatsappTargetType == "" {
			in.WhatsappTargetType = models.WhatsappTargetTypePersonal
		}
		switch in.WhatsappTargetType {
		case models.WhatsappTargetTypePersonal:
			if in.Phone == "" {
				return nil, fmt.Errorf("%w: phone is required for personal WhatsApp reminders", ErrValidation)
			}
		case models.WhatsappTargetTypeGroup:
			if in.WhatsappGroupID == "" {
				return nil, fmt.Errorf("%w: group id is required for group WhatsApp reminders", ErrValidation)
			}
		default:
			return nil, fmt.Errorf("%w: unknown WhatsApp target %q", ErrValidation, in.WhatsappTargetType)
		}
	default:
		return nil, fmt.Errorf("%w: unknown channel %q", ErrValidation, in.Channel)
	}

	pref, err := s.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	pref.Channel = in.Channel
	pref.Phone = in.Phone
	pref.WhatsappTargetType = in.WhatsappTargetType
	pref.WhatsappGroupID = in.WhatsappGroupID

	if err := s.db.WithContext(ctx).Save(pref).Error; err != nil {
		return nil, err
	}
	return pref, nil
}

// ForUsers returns stored preferences keyed by user id
func (s *PreferenceService) ForUsers(ctx context.Context, uids []string) (map[string]models.UserNotifPreference, error) {
	result := make(map[string]models.UserNotifPreference, len(uids))
	if len(uids) == 0 {
		return result, nil
	}
	var prefs []models.UserNotifPreference
	if err := s.db.WithContext(ctx).Where("user_id IN ?", uids).Find(&prefs).Error; err != nil {
		return nil, err
	}
	for _, p := range prefs {
		result[p.UserID] = p
	}
	return result, nil
}
