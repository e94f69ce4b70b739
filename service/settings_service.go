package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"betbot/events"
	"betbot/models"

	log "github.com/sirupsen/logrus"
)

// settingsService implements the SettingsService interface
type settingsService struct {
	ledger LedgerService
	guard  *AccessGuard
	bus    *events.Bus
}

// NewSettingsService creates a new settings service
func NewSettingsService(ledger LedgerService, guard *AccessGuard, bus *events.Bus) SettingsService {
	return &settingsService{
		ledger: ledger,
		guard:  guard,
		bus:    bus,
	}
}

// update checks the actor, then asks value for the validated setting and
// writes it. Callers without admin rights never reach validation.
func (s *settingsService) update(ctx context.Context, actorID int64, key models.SettingKey, value func() (string, error)) error {
	if err := s.guard.RequireAdmin(ctx, actorID); err != nil {
		return err
	}
	v, err := value()
	if err != nil {
		return err
	}

	s.ledger.SetSetting(ctx, key, v)

	log.WithFields(log.Fields{
		"key":     key,
		"value":   v,
		"actorID": actorID,
	}).Info("Setting updated")

	s.bus.Emit(context.WithoutCancel(ctx), events.SettingChangedEvent{Key: key, Value: v, ActorID: actorID})
	return nil
}

// SetTaxRate updates the wager tax percentage
func (s *settingsService) SetTaxRate(ctx context.Context, actorID, rate int64) error {
	return s.update(ctx, actorID, models.SettingBetTaxRate, func() (string, error) {
		if rate < 0 || rate > 100 {
			return "", fmt.Errorf("%w: tax rate must be between 0 and 100", models.ErrInvalidInput)
		}
		return strconv.FormatInt(rate, 10), nil
	})
}

// SetCreditPrice updates the price of one credit
func (s *settingsService) SetCreditPrice(ctx context.Context, actorID, price int64) error {
	return s.update(ctx, actorID, models.SettingCreditPrice, func() (string, error) {
		if price <= 0 {
			return "", fmt.Errorf("%w: credit price must be positive", models.ErrInvalidInput)
		}
		return strconv.FormatInt(price, 10), nil
	})
}

func (s *settingsService) SetReferralReward(ctx context.Context, actorID, reward int64) error {
	return s.update(ctx, actorID, models.SettingReferralReward, func() (string, error) {
		if reward < 0 {
			return "", fmt.Errorf("%w: referral reward cannot be negative", models.ErrInvalidInput)
		}
		return strconv.FormatInt(reward, 10), nil
	})
}

func (s *settingsService) SetCardNumber(ctx context.Context, actorID int64, number string) error {
	return s.update(ctx, actorID, models.SettingCardNumber, nonEmpty(number, "card number"))
}

func (s *settingsService) SetCardHolder(ctx context.Context, actorID int64, holder string) error {
	return s.update(ctx, actorID, models.SettingCardHolder, nonEmpty(holder, "card holder"))
}

func nonEmpty(value, field string) func() (string, error) {
	return func() (string, error) {
		value = strings.TrimSpace(value)
		if value == "" {
			return "", fmt.Errorf("%w: %s cannot be empty", models.ErrInvalidInput, field)
		}
		return value, nil
	}
}

// SetBetPhoto makes wager messages photos with fileRef as the image
func (s *settingsService) SetBetPhoto(ctx context.Context, actorID int64, fileRef string) error {
	return s.update(ctx, actorID, models.SettingBetPhotoFileID, func() (string, error) {
		if fileRef == "" || fileRef == models.NoPhoto {
			return "", fmt.Errorf("%w: no photo given", models.ErrInvalidInput)
		}
		return fileRef, nil
	})
}

func (s *settingsService) ClearBetPhoto(ctx context.Context, actorID int64) error {
	return s.update(ctx, actorID, models.SettingBetPhotoFileID, func() (string, error) {
		return models.NoPhoto, nil
	})
}

// ToggleChannelLock flips forced_channel_lock and returns the new state
func (s *settingsService) ToggleChannelLock(ctx context.Context, actorID int64) (bool, error) {
	var locked bool
	err := s.update(ctx, actorID, models.SettingForcedChannelLock, func() (string, error) {
		current, _ := s.ledger.Setting(ctx, models.SettingForcedChannelLock)
		locked = current != "true"
		return strconv.FormatBool(locked), nil
	})
	if err != nil {
		return false, err
	}
	return locked, nil
}
