package settings

import (
	"context"
	"fmt"
	"log"

	"github.com/samber/mo"

	"github.com/leoapplecool/discord-x-housing-bridge/services"
)

// KeyVisitTarget is the housing owner/name passed to /visit after joining.
const KeyVisitTarget = "minecraft/visit_target"

// supportedKeys guards against typo'd setting names reaching persistence.
var supportedKeys = map[string]bool{
	KeyVisitTarget: true,
}

type Service struct {
	settingsRepo services.SettingsRepository
}

func NewService(repo services.SettingsRepository) *Service {
	return &Service{settingsRepo: repo}
}

func (s *Service) GetStringSetting(ctx context.Context, key string) (mo.Option[string], error) {
	if err := s.validateKey(key); err != nil {
		return mo.None[string](), err
	}

	value, err := s.settingsRepo.GetSetting(ctx, key)
	if err != nil {
		return mo.None[string](), fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, nil
}

func (s *Service) UpsertStringSetting(ctx context.Context, key, value string) error {
	log.Printf("📋 Starting to upsert setting: %s", key)
	if err := s.validateKey(key); err != nil {
		return err
	}

	if err := s.settingsRepo.UpsertSetting(ctx, key, value); err != nil {
		return fmt.Errorf("failed to upsert setting %s: %w", key, err)
	}

	log.Printf("📋 Completed successfully - upserted setting: %s", key)
	return nil
}

func (s *Service) validateKey(key string) error {
	if !supportedKeys[key] {
		return fmt.Errorf("unsupported setting key: %s", key)
	}
	return nil
}
