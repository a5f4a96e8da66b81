package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leoapplecool/discord-x-housing-bridge/models"
)

func TestFileRulesRepository_Rules(t *testing.T) {
	ctx := context.Background()

	t.Run("load before first save returns nil", func(t *testing.T) {
		repo := NewFileRulesRepository(t.TempDir())
		rules, err := repo.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, rules)
	})

	t.Run("save then load round-trips the document", func(t *testing.T) {
		repo := NewFileRulesRepository(t.TempDir())
		channelID := "chan-1"
		doc := &models.BridgeRules{
			DiscordToMinecraft: []models.CommandMapping{
				{DiscordCommand: "!invite {player}", MinecraftCommand: "/invite", WithPlayer: true},
			},
			HousingToDiscord: []models.HousingTrigger{
				{Match: "HOUSING STARTED", ChannelID: "chan-2", Embed: &models.EmbedTemplate{
					Title: "Housing Update", Description: "{message}", Color: models.DefaultEmbedColor,
				}},
			},
			LivechatChannelID: &channelID,
		}

		require.NoError(t, repo.Save(ctx, doc))

		loaded, err := repo.Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, doc.DiscordToMinecraft, loaded.DiscordToMinecraft)
		assert.Equal(t, doc.HousingToDiscord, loaded.HousingToDiscord)
		require.NotNil(t, loaded.LivechatChannelID)
		assert.Equal(t, "chan-1", *loaded.LivechatChannelID)
	})

	t.Run("malformed document surfaces a decode error", func(t *testing.T) {
		dir := t.TempDir()
		repo := NewFileRulesRepository(dir)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "mappings.json"), []byte("{broken"), 0o644))

		_, err := repo.Load(ctx)
		assert.Error(t, err)
	})
}

func TestFileRulesRepository_Settings(t *testing.T) {
	ctx := context.Background()

	t.Run("missing setting returns None", func(t *testing.T) {
		repo := NewFileRulesRepository(t.TempDir())
		value, err := repo.GetSetting(ctx, "minecraft/visit_target")
		require.NoError(t, err)
		assert.False(t, value.IsPresent())
	})

	t.Run("upsert persists across repository instances", func(t *testing.T) {
		dir := t.TempDir()
		repo := NewFileRulesRepository(dir)
		require.NoError(t, repo.UpsertSetting(ctx, "minecraft/visit_target", "SomeOwner"))

		reopened := NewFileRulesRepository(dir)
		value, err := reopened.GetSetting(ctx, "minecraft/visit_target")
		require.NoError(t, err)
		assert.Equal(t, "SomeOwner", value.MustGet())
	})
}
