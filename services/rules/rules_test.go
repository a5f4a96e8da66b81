package rules

import (
	"context"
	"errors"
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leoapplecool/discord-x-housing-bridge/models"
)

func setupRulesTest(t *testing.T) (*Service, *MemoryRepository, context.Context) {
	t.Helper()
	repo := NewMemoryRepository()
	service := NewService(repo, models.EmptyBridgeRules())
	return service, repo, context.Background()
}

func TestMappingFromInput(t *testing.T) {
	t.Run("placeholder in phrase implies withPlayer", func(t *testing.T) {
		m := MappingFromInput("!invite {player}", "/invite", false)
		assert.Equal(t, "!invite {player}", m.DiscordCommand)
		assert.Equal(t, "/invite", m.MinecraftCommand)
		assert.True(t, m.WithPlayer)
	})

	t.Run("explicit flag appends trailing placeholder", func(t *testing.T) {
		m := MappingFromInput("!kick", "/kick", true)
		assert.Equal(t, "!kick {player}", m.DiscordCommand)
		assert.True(t, m.WithPlayer)
	})

	t.Run("whitespace is collapsed", func(t *testing.T) {
		m := MappingFromInput("  !say   hello ", "/say hello ", false)
		assert.Equal(t, "!say hello", m.DiscordCommand)
		assert.Equal(t, "/say hello", m.MinecraftCommand)
		assert.False(t, m.WithPlayer)
	})
}

func TestService_UpsertCommandMapping(t *testing.T) {
	service, repo, ctx := setupRulesTest(t)

	t.Run("stores and persists the mapping", func(t *testing.T) {
		_, err := service.UpsertCommandMapping(ctx, MappingFromInput("!invite {player}", "/invite", false))
		require.NoError(t, err)

		mappings := service.CommandMappings(ctx)
		require.Len(t, mappings, 1)
		assert.Equal(t, "/invite", mappings[0].MinecraftCommand)
		assert.Equal(t, 1, repo.Saves)
	})

	t.Run("same base phrase replaces prior entry regardless of case", func(t *testing.T) {
		_, err := service.UpsertCommandMapping(ctx, MappingFromInput("!INVITE {player}", "/party invite", false))
		require.NoError(t, err)

		mappings := service.CommandMappings(ctx)
		require.Len(t, mappings, 1)
		assert.Equal(t, "/party invite", mappings[0].MinecraftCommand)
	})

	t.Run("failed save leaves the rule set unchanged", func(t *testing.T) {
		repo.SaveErr = errors.New("disk full")
		_, err := service.UpsertCommandMapping(ctx, MappingFromInput("!warp", "/warp", false))
		assert.Error(t, err)
		repo.SaveErr = nil

		assert.Len(t, service.CommandMappings(ctx), 1)
	})
}

func TestService_RemoveCommandMapping(t *testing.T) {
	service, _, ctx := setupRulesTest(t)
	_, err := service.UpsertCommandMapping(ctx, MappingFromInput("!invite {player}", "/invite", false))
	require.NoError(t, err)

	t.Run("removes by placeholder-stripped case-insensitive match", func(t *testing.T) {
		removed, err := service.RemoveCommandMapping(ctx, "!Invite")
		require.NoError(t, err)
		assert.True(t, removed)
		assert.Empty(t, service.CommandMappings(ctx))
	})

	t.Run("returns false when nothing matches", func(t *testing.T) {
		removed, err := service.RemoveCommandMapping(ctx, "!missing")
		require.NoError(t, err)
		assert.False(t, removed)
	})
}

func TestService_HousingTriggers(t *testing.T) {
	service, _, ctx := setupRulesTest(t)

	trigger := models.HousingTrigger{
		Match:     "HOUSING STARTED",
		ChannelID: "chan-1",
		Embed:     &models.EmbedTemplate{Title: "Housing Update", Description: "{message}", Color: models.DefaultEmbedColor},
	}

	t.Run("upsert replaces same match text case-insensitively", func(t *testing.T) {
		require.NoError(t, service.UpsertHousingTrigger(ctx, trigger))

		updated := trigger
		updated.Match = "housing started"
		updated.ChannelID = "chan-2"
		require.NoError(t, service.UpsertHousingTrigger(ctx, updated))

		triggers := service.HousingTriggers(ctx)
		require.Len(t, triggers, 1)
		assert.Equal(t, "chan-2", triggers[0].ChannelID)
	})

	t.Run("remove by exact case-insensitive match", func(t *testing.T) {
		removed, err := service.RemoveHousingTrigger(ctx, "HOUSING started")
		require.NoError(t, err)
		assert.True(t, removed)
		assert.Empty(t, service.HousingTriggers(ctx))
	})
}

func TestService_SetLivechatChannel(t *testing.T) {
	service, repo, ctx := setupRulesTest(t)

	t.Run("set and clear round-trip through persistence", func(t *testing.T) {
		require.NoError(t, service.SetLivechatChannel(ctx, mo.Some("chan-9")))
		assert.Equal(t, "chan-9", service.LivechatChannelID(ctx).MustGet())

		persisted, err := repo.Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, persisted.LivechatChannelID)
		assert.Equal(t, "chan-9", *persisted.LivechatChannelID)

		require.NoError(t, service.SetLivechatChannel(ctx, mo.None[string]()))
		assert.False(t, service.LivechatChannelID(ctx).IsPresent())
	})
}

func TestLoadRules(t *testing.T) {
	t.Run("writes defaults when nothing persisted", func(t *testing.T) {
		repo := NewMemoryRepository()
		defaults := models.EmptyBridgeRules()

		loaded, err := LoadRules(context.Background(), repo, defaults)
		require.NoError(t, err)
		assert.Empty(t, loaded.DiscordToMinecraft)
		assert.Equal(t, 1, repo.Saves)
	})

	t.Run("falls back to defaults on load error but surfaces it", func(t *testing.T) {
		repo := NewMemoryRepository()
		repo.LoadErr = errors.New("corrupted document")

		loaded, err := LoadRules(context.Background(), repo, models.EmptyBridgeRules())
		assert.Error(t, err)
		require.NotNil(t, loaded)
		assert.Empty(t, loaded.DiscordToMinecraft)
	})

	t.Run("returns persisted document when present", func(t *testing.T) {
		repo := NewMemoryRepository()
		doc := models.EmptyBridgeRules()
		doc.DiscordToMinecraft = append(doc.DiscordToMinecraft, MappingFromInput("!warp", "/warp", false))
		require.NoError(t, repo.Save(context.Background(), doc))

		loaded, err := LoadRules(context.Background(), repo, models.EmptyBridgeRules())
		require.NoError(t, err)
		assert.Len(t, loaded.DiscordToMinecraft, 1)
	})
}
