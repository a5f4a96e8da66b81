package bridge

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/samber/mo"

	"github.com/leoapplecool/discord-x-housing-bridge/alerts"
	"github.com/leoapplecool/discord-x-housing-bridge/clients"
	"github.com/leoapplecool/discord-x-housing-bridge/config"
	"github.com/leoapplecool/discord-x-housing-bridge/models"
	"github.com/leoapplecool/discord-x-housing-bridge/services"
	"github.com/leoapplecool/discord-x-housing-bridge/services/rules"
	"github.com/leoapplecool/discord-x-housing-bridge/services/settings"
	"github.com/leoapplecool/discord-x-housing-bridge/utils"
)

// Engine wires the two sides of the bridge together: Discord messages become
// queued Minecraft commands, and housing chat becomes relayed lines, trigger
// embeds and presence updates.
type Engine struct {
	cfg         *config.AppConfig
	discord     clients.DiscordClient
	rulesSvc    services.RulesService
	settingsSvc services.SettingsService
	presence    services.PresenceService
	relay       services.RelayService
	alerter     *alerts.Alerter
	supervisor  *Supervisor
}

func NewEngine(
	cfg *config.AppConfig,
	discordClient clients.DiscordClient,
	dialer clients.MinecraftDialer,
	rulesSvc services.RulesService,
	settingsSvc services.SettingsService,
	presenceSvc services.PresenceService,
	relaySvc services.RelayService,
	alerter *alerts.Alerter,
) *Engine {
	e := &Engine{
		cfg:         cfg,
		discord:     discordClient,
		rulesSvc:    rulesSvc,
		settingsSvc: settingsSvc,
		presence:    presenceSvc,
		relay:       relaySvc,
		alerter:     alerter,
	}
	e.supervisor = NewSupervisor(cfg.MinecraftConfig, dialer, SupervisorEvents{
		OnOnline:      e.handleMinecraftOnline,
		OnReady:       e.handleMinecraftReady,
		OnOffline:     e.handleMinecraftOffline,
		OnKicked:      e.handleMinecraftKicked,
		OnError:       e.handleMinecraftError,
		OnChat:        e.handleMinecraftChat,
		OnPlayerJoin:  e.handlePlayerJoin,
		OnPlayerLeave: e.handlePlayerLeave,
	})
	return e
}

// Start validates persisted configuration against the live Discord state and
// opens the Minecraft connection.
func (e *Engine) Start(ctx context.Context) error {
	log.Printf("📋 Starting bridge engine")

	if channelID, ok := e.rulesSvc.LivechatChannelID(ctx).Get(); ok {
		switch valid, err := e.discord.IsTextChannel(channelID); {
		case err != nil:
			// Could be a transient Discord failure: leave the persisted
			// value alone and just run without the relay for now.
			log.Printf("⚠️ Could not verify livechat channel %s - relay disabled for this run: %v", channelID, err)
		case !valid:
			log.Printf("⚠️ Persisted livechat channel %s is not a text channel - disabling relay", channelID)
			if err := e.rulesSvc.SetLivechatChannel(ctx, mo.None[string]()); err != nil {
				log.Printf("⚠️ Failed to clear stale livechat channel: %v", err)
			}
		default:
			e.relay.SetChannel(channelID)
		}
	}

	// An explicit MC_VISIT_TARGET wins over the persisted setting.
	if e.cfg.MinecraftConfig.VisitTarget == "" {
		target, err := e.settingsSvc.GetStringSetting(ctx, settings.KeyVisitTarget)
		if err != nil {
			log.Printf("⚠️ Failed to load persisted visit target: %v", err)
		} else if value, ok := target.Get(); ok {
			e.supervisor.SetVisitTarget(value)
		}
	}

	e.refreshBotStatus()
	if e.cfg.MinecraftConfig.IsConfigured() {
		e.supervisor.Start()
	} else {
		log.Printf("⚠️ Minecraft identity not configured - running Discord-side only")
	}

	log.Printf("✅ Bridge engine started")
	return nil
}

// Stop shuts down the Minecraft side first so no chat arrives while the
// relay worker drains.
func (e *Engine) Stop() {
	log.Printf("📋 Stopping bridge engine")
	e.supervisor.Stop()
	e.relay.Stop()
	log.Printf("✅ Bridge engine stopped")
}

// ProcessDiscordMessage matches a Discord message against the configured
// command mappings and enqueues the first mapping it matches. Messages that
// match no mapping are ignored.
func (e *Engine) ProcessDiscordMessage(ctx context.Context, event models.DiscordMessageEvent) error {
	content := strings.TrimSpace(event.Content)
	if content == "" {
		return nil
	}

	for _, mapping := range e.rulesSvc.CommandMappings(ctx) {
		base := rules.BasePhrase(mapping)
		if base == "" {
			continue
		}

		var outbound string
		if rules.ExpectsPlayer(mapping) {
			if !hasWordPrefixFold(content, base) {
				continue
			}
			args := strings.Fields(content[len(base):])
			if len(args) == 0 {
				reply := fmt.Sprintf("Please supply a player: `%s {player}`", base)
				if err := e.discord.ReplyToMessage(event.ChannelID, event.MessageID, reply); err != nil {
					return fmt.Errorf("failed to send usage reply: %w", err)
				}
				return nil
			}
			outbound = substitutePlayer(mapping.MinecraftCommand, args[0])
		} else {
			if !strings.EqualFold(content, base) {
				continue
			}
			outbound = mapping.MinecraftCommand
		}

		log.Printf("📨 Discord message matched mapping %q -> %s", mapping.DiscordCommand, outbound)
		e.supervisor.Enqueue(outbound)
		if err := e.discord.AddReaction(event.ChannelID, event.MessageID, "✅"); err != nil {
			log.Printf("⚠️ Failed to add acknowledgement reaction: %v", err)
		}
		return nil
	}

	return nil
}

// hasWordPrefixFold reports whether content starts with prefix on a word
// boundary, case-insensitively. "!inviteall" must not match "!invite".
func hasWordPrefixFold(content, prefix string) bool {
	if !utils.HasFoldPrefix(content, prefix) {
		return false
	}
	return len(content) == len(prefix) || content[len(prefix)] == ' '
}

func (e *Engine) handleMinecraftChat(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	if name, joined, ok := parseJoinLeave(line); ok {
		if joined {
			e.presence.Add(name)
		} else {
			e.presence.Remove(name)
		}
		e.refreshBotStatus()
	}

	// A line filtered here (noise or duplicate) produces neither a relay
	// line nor a trigger embed.
	if !e.relay.ShouldEmit(line) {
		return
	}
	e.relay.Push(line)

	// Lines containing a colon are player chat; triggers only watch
	// system announcements.
	if strings.Contains(line, ":") {
		return
	}

	lower := strings.ToLower(line)
	for _, trigger := range e.rulesSvc.HousingTriggers(context.Background()) {
		if trigger.Match == "" || !strings.Contains(lower, strings.ToLower(trigger.Match)) {
			continue
		}
		title, description, color := embedFields(trigger, line)
		if err := e.discord.SendChannelEmbed(trigger.ChannelID, title, description, color); err != nil {
			log.Printf("❌ Failed to send trigger embed to %s: %v", trigger.ChannelID, err)
		}
	}
}

func (e *Engine) handlePlayerJoin(name string) {
	e.presence.Add(name)
	e.refreshBotStatus()
}

func (e *Engine) handlePlayerLeave(name string) {
	e.presence.Remove(name)
	e.refreshBotStatus()
}

func (e *Engine) handleMinecraftOnline() {
	e.presence.Rebuild(e.supervisor.Players())
	e.refreshBotStatus()
}

func (e *Engine) handleMinecraftReady() {
	e.presence.Rebuild(e.supervisor.Players())
	e.refreshBotStatus()
}

func (e *Engine) handleMinecraftOffline(reason string) {
	e.presence.Clear()
	e.refreshBotStatus()
	e.alerter.NotifyDisconnect("minecraft", reason)
}

func (e *Engine) handleMinecraftKicked(reason string) {
	e.alerter.NotifyDisconnect("minecraft kick", reason)
}

func (e *Engine) handleMinecraftError(err error) {
	e.alerter.NotifyError("minecraft session", err)
}

// refreshBotStatus mirrors the housing occupancy onto the bot's Discord
// presence line.
func (e *Engine) refreshBotStatus() {
	connected := e.supervisor.State() == StateConnectedReady ||
		e.supervisor.State() == StateConnectedPreReady
	activity := playerActivity(connected, e.presence.Count())
	if err := e.discord.UpdateBotStatus(connected, activity); err != nil {
		log.Printf("⚠️ Failed to update bot status: %v", err)
	}
}

// RefreshPresence re-reads the live tab list, replacing any drift the
// join/leave announcements accumulated.
func (e *Engine) RefreshPresence() {
	if players := e.supervisor.Players(); players != nil {
		e.presence.Rebuild(players)
		e.refreshBotStatus()
	}
}

// --- operator-facing operations ---

func (e *Engine) ListRules(ctx context.Context) string {
	snapshot := e.rulesSvc.Snapshot(ctx)

	livechat := "(disabled)"
	if snapshot.LivechatChannelID != nil {
		livechat = "<#" + *snapshot.LivechatChannelID + ">"
	}
	visitTarget := e.supervisor.VisitTarget()
	if visitTarget == "" {
		visitTarget = "(none)"
	}

	return fmt.Sprintf(
		"**Command mappings**\n%s\n\n**Housing triggers**\n%s\n\n**Livechat channel:** %s\n**Visit target:** %s",
		formatMappingList(snapshot.DiscordToMinecraft),
		formatTriggerList(snapshot.HousingToDiscord),
		livechat,
		visitTarget,
	)
}

func (e *Engine) AddCommandMapping(
	ctx context.Context,
	discordCommand, minecraftCommand string,
	withPlayer bool,
) (models.CommandMapping, error) {
	mapping := rules.MappingFromInput(discordCommand, minecraftCommand, withPlayer)
	if rules.BasePhrase(mapping) == "" || mapping.MinecraftCommand == "" {
		return models.CommandMapping{}, fmt.Errorf("both the Discord phrase and the Minecraft command are required")
	}
	return e.rulesSvc.UpsertCommandMapping(ctx, mapping)
}

func (e *Engine) RemoveCommandMapping(ctx context.Context, discordCommand string) (bool, error) {
	return e.rulesSvc.RemoveCommandMapping(ctx, discordCommand)
}

func (e *Engine) AddHousingTrigger(
	ctx context.Context,
	match, channelID string,
	embed *models.EmbedTemplate,
) error {
	match = strings.TrimSpace(match)
	if match == "" || channelID == "" {
		return fmt.Errorf("both the match text and the target channel are required")
	}
	valid, err := e.discord.IsTextChannel(channelID)
	if err != nil {
		return fmt.Errorf("failed to inspect channel %s: %w", channelID, err)
	}
	if !valid {
		return fmt.Errorf("channel %s is not a text channel", channelID)
	}
	return e.rulesSvc.UpsertHousingTrigger(ctx, models.HousingTrigger{
		Match:     match,
		ChannelID: channelID,
		Embed:     embed,
	})
}

func (e *Engine) RemoveHousingTrigger(ctx context.Context, match string) (bool, error) {
	return e.rulesSvc.RemoveHousingTrigger(ctx, match)
}

// SetVisitTarget persists the target and, when connected, re-issues /visit
// so the bot moves without waiting for a reconnect.
func (e *Engine) SetVisitTarget(ctx context.Context, target string) error {
	target = strings.TrimSpace(target)
	if target == "" {
		return fmt.Errorf("visit target cannot be empty")
	}
	if err := e.settingsSvc.UpsertStringSetting(ctx, settings.KeyVisitTarget, target); err != nil {
		return fmt.Errorf("failed to persist visit target: %w", err)
	}
	e.supervisor.SetVisitTarget(target)
	if e.supervisor.State() != StateDisconnected {
		e.supervisor.Enqueue("/visit " + target)
	}
	return nil
}

// SetLivechatChannel updates the persisted relay channel and repoints the
// relay, which also resets its open message block.
func (e *Engine) SetLivechatChannel(ctx context.Context, channelID mo.Option[string]) error {
	if id, ok := channelID.Get(); ok {
		valid, err := e.discord.IsTextChannel(id)
		if err != nil {
			return fmt.Errorf("failed to inspect channel %s: %w", id, err)
		}
		if !valid {
			return fmt.Errorf("channel %s is not a text channel", id)
		}
	}
	if err := e.rulesSvc.SetLivechatChannel(ctx, channelID); err != nil {
		return err
	}
	e.relay.SetChannel(channelID.OrElse(""))
	return nil
}

// SendChat enqueues a raw chat line or command on behalf of an operator.
func (e *Engine) SendChat(message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return fmt.Errorf("message cannot be empty")
	}
	e.supervisor.Enqueue(message)
	return nil
}

func (e *Engine) OnlinePlayers() []string {
	return e.presence.Sorted()
}

// BridgeStatus is a point-in-time snapshot for the status endpoint and the
// operator status command.
type BridgeStatus struct {
	ConnectionState ConnState `json:"connectionState"`
	Ready           bool      `json:"ready"`
	SessionLabel    string    `json:"sessionLabel"`
	QueueLength     int       `json:"queueLength"`
	PlayerCount     int       `json:"playerCount"`
	LivechatChannel string    `json:"livechatChannel,omitempty"`
	VisitTarget     string    `json:"visitTarget,omitempty"`
}

func (e *Engine) Status(ctx context.Context) BridgeStatus {
	return BridgeStatus{
		ConnectionState: e.supervisor.State(),
		Ready:           e.supervisor.IsReady(),
		SessionLabel:    e.supervisor.SessionLabel(),
		QueueLength:     e.supervisor.QueueLen(),
		PlayerCount:     e.presence.Count(),
		LivechatChannel: e.rulesSvc.LivechatChannelID(ctx).OrElse(""),
		VisitTarget:     e.supervisor.VisitTarget(),
	}
}
