package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/leoapplecool/discord-x-housing-bridge/alerts"
	"github.com/leoapplecool/discord-x-housing-bridge/clients/discord"
	"github.com/leoapplecool/discord-x-housing-bridge/config"
	"github.com/leoapplecool/discord-x-housing-bridge/models"
	"github.com/leoapplecool/discord-x-housing-bridge/services/presence"
	"github.com/leoapplecool/discord-x-housing-bridge/services/relay"
	"github.com/leoapplecool/discord-x-housing-bridge/services/rules"
	"github.com/leoapplecool/discord-x-housing-bridge/services/settings"
)

type memorySettingsRepo struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemorySettingsRepo() *memorySettingsRepo {
	return &memorySettingsRepo{values: map[string]string{}}
}

func (r *memorySettingsRepo) GetSetting(_ context.Context, key string) (mo.Option[string], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if value, ok := r.values[key]; ok {
		return mo.Some(value), nil
	}
	return mo.None[string](), nil
}

func (r *memorySettingsRepo) UpsertSetting(_ context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
	return nil
}

type engineFixture struct {
	engine      *Engine
	discord     *discord.MockDiscordClient
	dialer      *fakeDialer
	rulesSvc    *rules.Service
	settingsSvc *settings.Service
	settings    *memorySettingsRepo
	relaySvc    *relay.Service
}

func newEngineFixture(t *testing.T, initial *models.BridgeRules) *engineFixture {
	t.Helper()
	if initial == nil {
		initial = models.EmptyBridgeRules()
	}

	mockDiscord := new(discord.MockDiscordClient)
	mockDiscord.On("UpdateBotStatus", mock.Anything, mock.Anything).Return(nil).Maybe()

	dialer := &fakeDialer{}
	rulesSvc := rules.NewService(rules.NewMemoryRepository(), initial)
	settingsRepo := newMemorySettingsRepo()
	settingsSvc := settings.NewService(settingsRepo)
	relaySvc := relay.NewService(mockDiscord)
	t.Cleanup(relaySvc.Stop)

	cfg := &config.AppConfig{
		Environment:     "test",
		MinecraftConfig: testMinecraftConfig(),
	}

	engine := NewEngine(
		cfg,
		mockDiscord,
		dialer,
		rulesSvc,
		settingsSvc,
		presence.NewTracker(),
		relaySvc,
		alerts.NewAlerter(alerts.SlackAlertConfig{}),
	)
	t.Cleanup(engine.supervisor.Stop)

	return &engineFixture{
		engine:      engine,
		discord:     mockDiscord,
		dialer:      dialer,
		rulesSvc:    rulesSvc,
		settingsSvc: settingsSvc,
		settings:    settingsRepo,
		relaySvc:    relaySvc,
	}
}

// connect walks the supervisor through dial and spawn so enqueued commands
// reach the fake session.
func (f *engineFixture) connect(t *testing.T) *fakeSession {
	t.Helper()
	f.engine.supervisor.Start()
	waitForDial(t, f.dialer, 1)
	session, handlers := f.dialer.current()
	handlers.OnSpawn()
	require.Eventually(t, func() bool {
		return len(session.sentCommands()) >= 1
	}, time.Second, time.Millisecond)
	return session
}

func rulesWithMapping(mappings ...models.CommandMapping) *models.BridgeRules {
	r := models.EmptyBridgeRules()
	r.DiscordToMinecraft = mappings
	return r
}

func TestProcessDiscordMessage(t *testing.T) {
	inviteMapping := rules.MappingFromInput("!invite {player}", "/invite {player}", false)
	lobbyMapping := rules.MappingFromInput("!lobby", "/lobby", false)

	t.Run("placeholder mapping substitutes the player", func(t *testing.T) {
		f := newEngineFixture(t, rulesWithMapping(inviteMapping))
		session := f.connect(t)
		f.discord.On("AddReaction", "chan-1", "msg-1", "✅").Return(nil)

		err := f.engine.ProcessDiscordMessage(context.Background(), models.DiscordMessageEvent{
			ChannelID: "chan-1",
			MessageID: "msg-1",
			Content:   "!invite Bob",
		})
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			sent := session.sentCommands()
			return len(sent) > 0 && sent[len(sent)-1] == "/invite Bob"
		}, time.Second, time.Millisecond)
		f.discord.AssertCalled(t, "AddReaction", "chan-1", "msg-1", "✅")
	})

	t.Run("missing player argument asks for usage", func(t *testing.T) {
		f := newEngineFixture(t, rulesWithMapping(inviteMapping))
		f.discord.On("ReplyToMessage", "chan-1", "msg-1",
			"Please supply a player: `!invite {player}`").Return(nil)

		err := f.engine.ProcessDiscordMessage(context.Background(), models.DiscordMessageEvent{
			ChannelID: "chan-1",
			MessageID: "msg-1",
			Content:   "!invite",
		})
		require.NoError(t, err)

		f.discord.AssertCalled(t, "ReplyToMessage", "chan-1", "msg-1",
			"Please supply a player: `!invite {player}`")
		f.discord.AssertNotCalled(t, "AddReaction", mock.Anything, mock.Anything, mock.Anything)
		assert.Equal(t, 0, f.engine.supervisor.QueueLen())
	})

	t.Run("multi-word phrase takes the token after the whole phrase", func(t *testing.T) {
		mapping := rules.MappingFromInput("guild invite {player}", "/g invite {player}", false)
		f := newEngineFixture(t, rulesWithMapping(mapping))
		session := f.connect(t)
		f.discord.On("AddReaction", "chan-1", "msg-1", "✅").Return(nil)

		err := f.engine.ProcessDiscordMessage(context.Background(), models.DiscordMessageEvent{
			ChannelID: "chan-1",
			MessageID: "msg-1",
			Content:   "guild invite Bob",
		})
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			sent := session.sentCommands()
			return len(sent) > 0 && sent[len(sent)-1] == "/g invite Bob"
		}, time.Second, time.Millisecond)
	})

	t.Run("prefix must sit on a word boundary", func(t *testing.T) {
		f := newEngineFixture(t, rulesWithMapping(inviteMapping))

		err := f.engine.ProcessDiscordMessage(context.Background(), models.DiscordMessageEvent{
			ChannelID: "chan-1",
			MessageID: "msg-1",
			Content:   "!inviteall Bob",
		})
		require.NoError(t, err)

		f.discord.AssertNotCalled(t, "AddReaction", mock.Anything, mock.Anything, mock.Anything)
		f.discord.AssertNotCalled(t, "ReplyToMessage", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("plain mapping requires an exact match", func(t *testing.T) {
		f := newEngineFixture(t, rulesWithMapping(lobbyMapping))
		session := f.connect(t)
		f.discord.On("AddReaction", mock.Anything, mock.Anything, "✅").Return(nil)

		err := f.engine.ProcessDiscordMessage(context.Background(), models.DiscordMessageEvent{
			ChannelID: "chan-1",
			MessageID: "msg-1",
			Content:   "!LOBBY",
		})
		require.NoError(t, err)
		require.Eventually(t, func() bool {
			sent := session.sentCommands()
			return len(sent) > 0 && sent[len(sent)-1] == "/lobby"
		}, time.Second, time.Millisecond)

		err = f.engine.ProcessDiscordMessage(context.Background(), models.DiscordMessageEvent{
			ChannelID: "chan-1",
			MessageID: "msg-2",
			Content:   "!lobby please",
		})
		require.NoError(t, err)
		f.discord.AssertNotCalled(t, "AddReaction", "chan-1", "msg-2", "✅")
	})

	t.Run("unmatched messages are ignored", func(t *testing.T) {
		f := newEngineFixture(t, rulesWithMapping(inviteMapping, lobbyMapping))

		err := f.engine.ProcessDiscordMessage(context.Background(), models.DiscordMessageEvent{
			ChannelID: "chan-1",
			MessageID: "msg-1",
			Content:   "good morning everyone",
		})
		require.NoError(t, err)
		f.discord.AssertNotCalled(t, "AddReaction", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestHandleMinecraftChat(t *testing.T) {
	t.Run("colon-free line matching a trigger sends one embed", func(t *testing.T) {
		initial := models.EmptyBridgeRules()
		initial.HousingToDiscord = []models.HousingTrigger{
			{Match: "won the parkour", ChannelID: "chan-events"},
		}
		f := newEngineFixture(t, initial)
		f.discord.On("SendChannelEmbed",
			"chan-events", "Housing Update", "Steve won the parkour!", models.DefaultEmbedColor,
		).Return(nil).Once()

		f.engine.handleMinecraftChat("Steve won the parkour!")

		f.discord.AssertExpectations(t)
	})

	t.Run("player chat never fires triggers", func(t *testing.T) {
		initial := models.EmptyBridgeRules()
		initial.HousingToDiscord = []models.HousingTrigger{
			{Match: "won the parkour", ChannelID: "chan-events"},
		}
		f := newEngineFixture(t, initial)

		f.engine.handleMinecraftChat("Steve: I won the parkour!")

		f.discord.AssertNotCalled(t, "SendChannelEmbed",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("duplicate lines inside the dedup window are suppressed", func(t *testing.T) {
		initial := models.EmptyBridgeRules()
		initial.HousingToDiscord = []models.HousingTrigger{
			{Match: "won the parkour", ChannelID: "chan-events"},
		}
		f := newEngineFixture(t, initial)
		f.discord.On("SendChannelEmbed",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything,
		).Return(nil).Once()

		f.engine.handleMinecraftChat("Steve won the parkour!")
		f.engine.handleMinecraftChat("Steve won the parkour!")

		f.discord.AssertNumberOfCalls(t, "SendChannelEmbed", 1)
	})

	t.Run("join and leave lines track presence", func(t *testing.T) {
		f := newEngineFixture(t, nil)

		f.engine.handleMinecraftChat("[VIP] Steve entered the world.")
		assert.Equal(t, []string{"Steve"}, f.engine.OnlinePlayers())

		f.engine.handleMinecraftChat("[VIP] Steve left the world.")
		assert.Empty(t, f.engine.OnlinePlayers())
	})
}

func TestEngineOperations(t *testing.T) {
	t.Run("set visit target persists and re-issues visit when connected", func(t *testing.T) {
		f := newEngineFixture(t, nil)
		session := f.connect(t)

		require.NoError(t, f.engine.SetVisitTarget(context.Background(), "LeoApple"))

		stored, err := f.settings.GetSetting(context.Background(), settings.KeyVisitTarget)
		require.NoError(t, err)
		assert.Equal(t, "LeoApple", stored.OrElse(""))
		require.Eventually(t, func() bool {
			sent := session.sentCommands()
			return len(sent) > 0 && sent[len(sent)-1] == "/visit LeoApple"
		}, time.Second, time.Millisecond)
	})

	t.Run("set visit target while disconnected only persists", func(t *testing.T) {
		f := newEngineFixture(t, nil)

		require.NoError(t, f.engine.SetVisitTarget(context.Background(), "LeoApple"))

		assert.Equal(t, "LeoApple", f.engine.supervisor.VisitTarget())
		assert.Equal(t, 0, f.engine.supervisor.QueueLen())
	})

	t.Run("set livechat channel validates and repoints the relay", func(t *testing.T) {
		f := newEngineFixture(t, nil)
		f.discord.On("IsTextChannel", "chan-live").Return(true, nil)

		require.NoError(t, f.engine.SetLivechatChannel(context.Background(), mo.Some("chan-live")))

		assert.Equal(t, "chan-live", f.relaySvc.Channel())
		assert.Equal(t, "chan-live",
			f.rulesSvc.LivechatChannelID(context.Background()).OrElse(""))
	})

	t.Run("set livechat channel rejects non-text channels", func(t *testing.T) {
		f := newEngineFixture(t, nil)
		f.discord.On("IsTextChannel", "chan-voice").Return(false, nil)

		err := f.engine.SetLivechatChannel(context.Background(), mo.Some("chan-voice"))
		require.Error(t, err)
		assert.Empty(t, f.relaySvc.Channel())
	})

	t.Run("add housing trigger validates the channel", func(t *testing.T) {
		f := newEngineFixture(t, nil)
		f.discord.On("IsTextChannel", "chan-events").Return(true, nil)

		err := f.engine.AddHousingTrigger(context.Background(), "won the parkour", "chan-events", nil)
		require.NoError(t, err)
		triggers := f.rulesSvc.HousingTriggers(context.Background())
		require.Len(t, triggers, 1)
		assert.Equal(t, "won the parkour", triggers[0].Match)
	})

	t.Run("list rules renders empty configuration", func(t *testing.T) {
		f := newEngineFixture(t, nil)

		out := f.engine.ListRules(context.Background())
		assert.Contains(t, out, "(none)")
		assert.Contains(t, out, "(disabled)")
	})
}

func TestEngineStart(t *testing.T) {
	t.Run("clears a stale livechat channel", func(t *testing.T) {
		initial := models.EmptyBridgeRules()
		stale := "chan-deleted"
		initial.LivechatChannelID = &stale
		f := newEngineFixture(t, initial)
		f.discord.On("IsTextChannel", "chan-deleted").Return(false, nil)

		require.NoError(t, f.engine.Start(context.Background()))

		assert.True(t, f.rulesSvc.LivechatChannelID(context.Background()).IsAbsent())
		assert.Empty(t, f.relaySvc.Channel())
	})

	t.Run("keeps the persisted livechat channel when the lookup fails", func(t *testing.T) {
		initial := models.EmptyBridgeRules()
		channelID := "chan-live"
		initial.LivechatChannelID = &channelID
		f := newEngineFixture(t, initial)
		f.discord.On("IsTextChannel", "chan-live").Return(false, errors.New("discord unavailable"))

		require.NoError(t, f.engine.Start(context.Background()))

		assert.Equal(t, "chan-live",
			f.rulesSvc.LivechatChannelID(context.Background()).OrElse(""))
		assert.Empty(t, f.relaySvc.Channel())
	})

	t.Run("applies a persisted visit target when env is unset", func(t *testing.T) {
		f := newEngineFixture(t, nil)
		require.NoError(t,
			f.settings.UpsertSetting(context.Background(), settings.KeyVisitTarget, "LeoApple"))

		require.NoError(t, f.engine.Start(context.Background()))

		assert.Equal(t, "LeoApple", f.engine.supervisor.VisitTarget())
	})
}
