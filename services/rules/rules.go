package rules

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/samber/mo"

	"github.com/leoapplecool/discord-x-housing-bridge/models"
	"github.com/leoapplecool/discord-x-housing-bridge/services"
	"github.com/leoapplecool/discord-x-housing-bridge/utils"
)

// Service is the in-memory rule store. Every mutation is written through the
// repository before it becomes visible to readers, so a failed save leaves
// the previous rule set intact.
type Service struct {
	repo  services.RulesRepository
	mu    sync.RWMutex
	rules *models.BridgeRules
}

func NewService(repo services.RulesRepository, initial *models.BridgeRules) *Service {
	if initial == nil {
		initial = models.EmptyBridgeRules()
	}
	return &Service{repo: repo, rules: initial.Clone()}
}

// LoadRules reads the persisted rule document, falling back to defaults when
// nothing exists yet (writing them out) or when the document is unreadable.
// In the unreadable case the error is returned alongside the defaults so the
// operator sees it; the bridge still starts.
func LoadRules(
	ctx context.Context,
	repo services.RulesRepository,
	defaults *models.BridgeRules,
) (*models.BridgeRules, error) {
	if defaults == nil {
		defaults = models.EmptyBridgeRules()
	}

	loaded, err := repo.Load(ctx)
	if err != nil {
		return defaults.Clone(), fmt.Errorf("failed to load persisted rules, using defaults: %w", err)
	}
	if loaded == nil {
		if err := repo.Save(ctx, defaults); err != nil {
			return defaults.Clone(), fmt.Errorf("failed to persist default rules: %w", err)
		}
		log.Printf("📋 No persisted rules found - wrote defaults")
		return defaults.Clone(), nil
	}
	return loaded, nil
}

// MappingFromInput normalizes operator input into a stored CommandMapping.
// A "{player}" placeholder anywhere in the phrase, or an explicit withPlayer
// flag, marks the mapping as argument-expecting; the stored phrase always
// carries the placeholder as a trailing token in that case.
func MappingFromInput(discordCommand, minecraftCommand string, withPlayer bool) models.CommandMapping {
	normalized := utils.CollapseWhitespace(discordCommand)
	expectsPlayer := withPlayer ||
		strings.Contains(strings.ToLower(normalized), models.PlayerPlaceholder)
	base := utils.CollapseWhitespace(strings.ReplaceAll(normalized, models.PlayerPlaceholder, ""))

	stored := base
	if expectsPlayer {
		stored = base + " " + models.PlayerPlaceholder
	}
	return models.CommandMapping{
		DiscordCommand:   stored,
		MinecraftCommand: strings.TrimSpace(minecraftCommand),
		WithPlayer:       expectsPlayer,
	}
}

// BasePhrase returns the placeholder-stripped phrase of a mapping, the key
// under which mappings are unique (case-insensitively).
func BasePhrase(m models.CommandMapping) string {
	return utils.CollapseWhitespace(strings.ReplaceAll(m.DiscordCommand, models.PlayerPlaceholder, ""))
}

// ExpectsPlayer reports whether the mapping requires an argument token.
func ExpectsPlayer(m models.CommandMapping) bool {
	return m.WithPlayer || strings.Contains(strings.ToLower(m.DiscordCommand), models.PlayerPlaceholder)
}

func (s *Service) Snapshot(ctx context.Context) *models.BridgeRules {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules.Clone()
}

func (s *Service) CommandMappings(ctx context.Context) []models.CommandMapping {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.CommandMapping, len(s.rules.DiscordToMinecraft))
	copy(out, s.rules.DiscordToMinecraft)
	return out
}

func (s *Service) HousingTriggers(ctx context.Context) []models.HousingTrigger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.HousingTrigger, len(s.rules.HousingToDiscord))
	copy(out, s.rules.HousingToDiscord)
	return out
}

func (s *Service) LivechatChannelID(ctx context.Context) mo.Option[string] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.rules.LivechatChannelID == nil || *s.rules.LivechatChannelID == "" {
		return mo.None[string]()
	}
	return mo.Some(*s.rules.LivechatChannelID)
}

// UpsertCommandMapping inserts a mapping, replacing any existing entry with
// the same placeholder-stripped phrase. The new entry goes to the end of the
// list, so re-adding a mapping also moves it to the back of matching order.
func (s *Service) UpsertCommandMapping(
	ctx context.Context,
	mapping models.CommandMapping,
) (models.CommandMapping, error) {
	log.Printf("📋 Starting to upsert command mapping: %s", mapping.DiscordCommand)
	s.mu.Lock()
	defer s.mu.Unlock()

	base := BasePhrase(mapping)
	next := s.rules.Clone()
	filtered := next.DiscordToMinecraft[:0]
	for _, existing := range next.DiscordToMinecraft {
		if !strings.EqualFold(BasePhrase(existing), base) {
			filtered = append(filtered, existing)
		}
	}
	next.DiscordToMinecraft = append(filtered, mapping)

	if err := s.repo.Save(ctx, next); err != nil {
		return models.CommandMapping{}, fmt.Errorf("failed to persist command mapping: %w", err)
	}
	s.rules = next

	log.Printf("📋 Completed successfully - upserted command mapping: %s -> %s",
		mapping.DiscordCommand, mapping.MinecraftCommand)
	return mapping, nil
}

// RemoveCommandMapping removes by placeholder-stripped case-insensitive
// match. Returns false when nothing matched.
func (s *Service) RemoveCommandMapping(ctx context.Context, discordCommand string) (bool, error) {
	log.Printf("📋 Starting to remove command mapping: %s", discordCommand)
	s.mu.Lock()
	defer s.mu.Unlock()

	base := utils.CollapseWhitespace(
		strings.ReplaceAll(utils.CollapseWhitespace(discordCommand), models.PlayerPlaceholder, ""),
	)
	next := s.rules.Clone()
	filtered := next.DiscordToMinecraft[:0]
	for _, existing := range next.DiscordToMinecraft {
		if !strings.EqualFold(BasePhrase(existing), base) {
			filtered = append(filtered, existing)
		}
	}
	removed := len(filtered) != len(next.DiscordToMinecraft)
	next.DiscordToMinecraft = filtered

	if !removed {
		return false, nil
	}
	if err := s.repo.Save(ctx, next); err != nil {
		return false, fmt.Errorf("failed to persist command mapping removal: %w", err)
	}
	s.rules = next

	log.Printf("📋 Completed successfully - removed command mapping: %s", discordCommand)
	return true, nil
}

// UpsertHousingTrigger inserts a trigger, replacing any existing entry with
// the same match text (case-insensitive).
func (s *Service) UpsertHousingTrigger(ctx context.Context, trigger models.HousingTrigger) error {
	log.Printf("📋 Starting to upsert housing trigger: %q", trigger.Match)
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.rules.Clone()
	filtered := next.HousingToDiscord[:0]
	for _, existing := range next.HousingToDiscord {
		if !strings.EqualFold(existing.Match, trigger.Match) {
			filtered = append(filtered, existing)
		}
	}
	next.HousingToDiscord = append(filtered, trigger)

	if err := s.repo.Save(ctx, next); err != nil {
		return fmt.Errorf("failed to persist housing trigger: %w", err)
	}
	s.rules = next

	log.Printf("📋 Completed successfully - upserted housing trigger: %q -> #%s", trigger.Match, trigger.ChannelID)
	return nil
}

// RemoveHousingTrigger removes by case-insensitive exact match text.
func (s *Service) RemoveHousingTrigger(ctx context.Context, match string) (bool, error) {
	log.Printf("📋 Starting to remove housing trigger: %q", match)
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.rules.Clone()
	filtered := next.HousingToDiscord[:0]
	for _, existing := range next.HousingToDiscord {
		if !strings.EqualFold(existing.Match, match) {
			filtered = append(filtered, existing)
		}
	}
	removed := len(filtered) != len(next.HousingToDiscord)
	next.HousingToDiscord = filtered

	if !removed {
		return false, nil
	}
	if err := s.repo.Save(ctx, next); err != nil {
		return false, fmt.Errorf("failed to persist housing trigger removal: %w", err)
	}
	s.rules = next

	log.Printf("📋 Completed successfully - removed housing trigger: %q", match)
	return true, nil
}

// SetLivechatChannel sets or clears the relay channel.
func (s *Service) SetLivechatChannel(ctx context.Context, channelID mo.Option[string]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.rules.Clone()
	display := "(disabled)"
	if id, ok := channelID.Get(); ok {
		next.LivechatChannelID = &id
		display = "#" + id
	} else {
		next.LivechatChannelID = nil
	}

	if err := s.repo.Save(ctx, next); err != nil {
		return fmt.Errorf("failed to persist livechat channel: %w", err)
	}
	s.rules = next

	log.Printf("📋 Livechat channel set to %s", display)
	return nil
}
