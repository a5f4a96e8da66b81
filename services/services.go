package services

import (
	"context"

	"github.com/samber/mo"

	"github.com/leoapplecool/discord-x-housing-bridge/models"
)

// RulesService defines the interface for mapping-rule storage. Mutations
// persist immediately and appear atomic to readers.
type RulesService interface {
	Snapshot(ctx context.Context) *models.BridgeRules
	CommandMappings(ctx context.Context) []models.CommandMapping
	HousingTriggers(ctx context.Context) []models.HousingTrigger
	LivechatChannelID(ctx context.Context) mo.Option[string]

	UpsertCommandMapping(ctx context.Context, mapping models.CommandMapping) (models.CommandMapping, error)
	RemoveCommandMapping(ctx context.Context, discordCommand string) (bool, error)
	UpsertHousingTrigger(ctx context.Context, trigger models.HousingTrigger) error
	RemoveHousingTrigger(ctx context.Context, match string) (bool, error)
	SetLivechatChannel(ctx context.Context, channelID mo.Option[string]) error
}

// RulesRepository is the persistence backend for the rule document. Load
// returns (nil, nil) when nothing has been persisted yet.
type RulesRepository interface {
	Load(ctx context.Context) (*models.BridgeRules, error)
	Save(ctx context.Context, rules *models.BridgeRules) error
}

// SettingsService defines the interface for small operator-tunable values
// that survive restarts, keyed like "minecraft/visit_target".
type SettingsService interface {
	GetStringSetting(ctx context.Context, key string) (mo.Option[string], error)
	UpsertStringSetting(ctx context.Context, key, value string) error
}

// SettingsRepository is the key-value persistence backend for settings.
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (mo.Option[string], error)
	UpsertSetting(ctx context.Context, key, value string) error
}

// CommandQueue is the FIFO of outbound Minecraft commands. Enqueue never
// blocks; a single drain worker dispatches at a fixed cooldown.
type CommandQueue interface {
	Enqueue(command string)
	Len() int
	Clear()
	Stop()
}

// PresenceService tracks which players are currently in the housing world.
type PresenceService interface {
	Add(name string)
	Remove(name string)
	Rebuild(names []string)
	Clear()
	Count() int
	Sorted() []string
}

// RelayService forwards housing chat into a Discord channel as batched
// code blocks, after ignore-list and dedup filtering.
type RelayService interface {
	SetChannel(channelID string)
	Channel() string
	ShouldEmit(line string) bool
	Push(line string)
	Stop()
}
