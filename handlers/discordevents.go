package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/mo"

	"github.com/leoapplecool/discord-x-housing-bridge/config"
	"github.com/leoapplecool/discord-x-housing-bridge/models"
	"github.com/leoapplecool/discord-x-housing-bridge/services"
	"github.com/leoapplecool/discord-x-housing-bridge/usecases/bridge"
)

const maxAutocompleteChoices = 25

type DiscordEventsHandler struct {
	discordSDKClient *discordgo.Session
	cfg              config.DiscordConfig
	engine           *bridge.Engine
	rulesService     services.RulesService
}

func NewDiscordEventsHandler(
	session *discordgo.Session,
	cfg config.DiscordConfig,
	engine *bridge.Engine,
	rulesService services.RulesService,
) *DiscordEventsHandler {
	handler := &DiscordEventsHandler{
		discordSDKClient: session,
		cfg:              cfg,
		engine:           engine,
		rulesService:     rulesService,
	}

	session.AddHandler(handler.handleReadyEvent)
	session.AddHandler(handler.handleMessageCreatedEvent)
	session.AddHandler(handler.handleInteractionCreatedEvent)

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentMessageContent

	return handler
}

// StartBot opens the Discord connection and starts listening for events
func (h *DiscordEventsHandler) StartBot() error {
	if err := h.discordSDKClient.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}

	log.Printf("🤖 Discord bot is now running and listening for events")
	return nil
}

// StopBot gracefully closes the Discord connection
func (h *DiscordEventsHandler) StopBot() {
	h.discordSDKClient.Close()
}

// handleReadyEvent registers the slash commands once the gateway confirms
// the bot identity. With a guild ID configured the commands are registered
// guild-scoped (instant propagation); otherwise globally.
func (h *DiscordEventsHandler) handleReadyEvent(s *discordgo.Session, r *discordgo.Ready) {
	log.Printf("✅ Discord gateway ready as %s", r.User.Username)

	scope := h.cfg.GuildID
	if scope == "" {
		log.Printf("📋 Registering global slash commands (may take up to an hour to propagate)")
	} else {
		log.Printf("📋 Registering slash commands for guild %s", scope)
	}

	_, err := s.ApplicationCommandBulkOverwrite(r.User.ID, scope, h.slashCommands())
	if err != nil {
		log.Printf("❌ Failed to register slash commands: %v", err)
	}
}

func (h *DiscordEventsHandler) slashCommands() []*discordgo.ApplicationCommand {
	adminOnly := int64(discordgo.PermissionAdministrator)

	return []*discordgo.ApplicationCommand{
		{
			Name:                     h.cfg.ConfigureCommandName,
			Description:              "Configure the Discord ↔ housing bridge",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "List the configured command mappings and housing triggers",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add-discord-command",
					Description: "Map a Discord phrase to a Minecraft command",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "discord-phrase",
							Description: "Phrase to watch for, e.g. \"!invite {player}\"",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "minecraft-command",
							Description: "Command to run in-game, e.g. \"/invite {player}\"",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionBoolean,
							Name:        "with-player",
							Description: "Whether the phrase expects a player argument",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove-discord-command",
					Description: "Remove a mapped Discord phrase",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:         discordgo.ApplicationCommandOptionString,
							Name:         "discord-phrase",
							Description:  "Phrase to remove",
							Required:     true,
							Autocomplete: true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add-housing-trigger",
					Description: "Send an embed to a channel when housing chat matches",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "match",
							Description: "Text to match in housing chat (case-insensitive)",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionChannel,
							Name:        "channel",
							Description: "Channel to notify",
							ChannelTypes: []discordgo.ChannelType{
								discordgo.ChannelTypeGuildText,
							},
							Required: true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "title",
							Description: "Embed title ({message} is the matched line)",
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "body",
							Description: "Embed body ({message} is the matched line)",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove-housing-trigger",
					Description: "Remove a housing trigger",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:         discordgo.ApplicationCommandOptionString,
							Name:         "match",
							Description:  "Match text to remove",
							Required:     true,
							Autocomplete: true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "set-visit-target",
					Description: "Set the housing the bot should /visit after connecting",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "target",
							Description: "Housing owner or name",
							Required:    true,
						},
					},
				},
			},
		},
		{
			Name:                     "chat",
			Description:              "Send a raw chat line or command in-game",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "message",
					Description: "Chat line or /command to send",
					Required:    true,
				},
			},
		},
		{
			Name:                     "livechat",
			Description:              "Relay housing chat into a channel (omit to disable)",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "Channel to relay into",
					ChannelTypes: []discordgo.ChannelType{
						discordgo.ChannelTypeGuildText,
					},
				},
			},
		},
		{
			Name:                     "tab",
			Description:              "List the players currently in the housing",
			DefaultMemberPermissions: &adminOnly,
		},
	}
}

// handleMessageCreatedEvent feeds plain guild messages from admin authors
// into the command-mapping engine. Bots and webhooks are ignored.
func (h *DiscordEventsHandler) handleMessageCreatedEvent(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.WebhookID != "" || m.GuildID == "" {
		return
	}
	if !h.isAdminMessage(s, m) {
		return
	}

	err := h.engine.ProcessDiscordMessage(context.Background(), models.DiscordMessageEvent{
		ChannelID: m.ChannelID,
		MessageID: m.ID,
		Content:   m.Content,
		AuthorID:  m.Author.ID,
	})
	if err != nil {
		log.Printf("❌ Failed to process Discord message: %v", err)
	}
}

func (h *DiscordEventsHandler) isAdminMessage(s *discordgo.Session, m *discordgo.MessageCreate) bool {
	if m.Member != nil {
		for _, roleID := range m.Member.Roles {
			for _, adminRole := range h.cfg.AdminRoleIDs {
				if roleID == adminRole {
					return true
				}
			}
		}
	}

	perms, err := s.State.MessagePermissions(m.Message)
	if err != nil {
		perms, err = s.UserChannelPermissions(m.Author.ID, m.ChannelID)
		if err != nil {
			log.Printf("⚠️ Failed to resolve permissions for %s: %v", m.Author.ID, err)
			return false
		}
	}
	return perms&discordgo.PermissionAdministrator != 0
}

func (h *DiscordEventsHandler) isAdminInteraction(i *discordgo.InteractionCreate) bool {
	if i.Member == nil {
		return false
	}
	if i.Member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	for _, roleID := range i.Member.Roles {
		for _, adminRole := range h.cfg.AdminRoleIDs {
			if roleID == adminRole {
				return true
			}
		}
	}
	return false
}

func (h *DiscordEventsHandler) handleInteractionCreatedEvent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		h.handleSlashCommand(s, i)
	case discordgo.InteractionApplicationCommandAutocomplete:
		h.handleAutocomplete(s, i)
	}
}

func (h *DiscordEventsHandler) handleSlashCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	log.Printf("⚡ Slash command /%s from user %s", data.Name, interactionUserID(i))

	if !h.isAdminInteraction(i) {
		h.respondText(s, i, "You need administrator access to use this command.")
		return
	}

	ctx := context.Background()
	switch data.Name {
	case h.cfg.ConfigureCommandName:
		h.handleConfigureCommand(ctx, s, i, data)
	case "chat":
		opts := optionMap(data.Options)
		if err := h.engine.SendChat(stringOption(opts, "message")); err != nil {
			h.respondText(s, i, fmt.Sprintf("Failed: %v", err))
			return
		}
		h.respondText(s, i, "Queued for delivery.")
	case "livechat":
		h.handleLivechatCommand(ctx, s, i, data)
	case "tab":
		players := h.engine.OnlinePlayers()
		if len(players) == 0 {
			h.respondText(s, i, "Nobody is in the housing right now.")
			return
		}
		h.respondText(s, i, fmt.Sprintf("**%d online:** %s", len(players), strings.Join(players, ", ")))
	default:
		log.Printf("⚠️ Unknown slash command: %s", data.Name)
	}
}

func (h *DiscordEventsHandler) handleConfigureCommand(
	ctx context.Context,
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	data discordgo.ApplicationCommandInteractionData,
) {
	if len(data.Options) == 0 {
		h.respondText(s, i, "Missing subcommand.")
		return
	}
	sub := data.Options[0]
	opts := optionMap(sub.Options)

	switch sub.Name {
	case "list":
		h.respondText(s, i, h.engine.ListRules(ctx))

	case "add-discord-command":
		mapping, err := h.engine.AddCommandMapping(ctx,
			stringOption(opts, "discord-phrase"),
			stringOption(opts, "minecraft-command"),
			boolOption(opts, "with-player"))
		if err != nil {
			h.respondText(s, i, fmt.Sprintf("Failed: %v", err))
			return
		}
		h.respondText(s, i, fmt.Sprintf("Mapped `%s` → `%s`.", mapping.DiscordCommand, mapping.MinecraftCommand))

	case "remove-discord-command":
		phrase := stringOption(opts, "discord-phrase")
		removed, err := h.engine.RemoveCommandMapping(ctx, phrase)
		if err != nil {
			h.respondText(s, i, fmt.Sprintf("Failed: %v", err))
			return
		}
		if !removed {
			h.respondText(s, i, fmt.Sprintf("No mapping found for `%s`.", phrase))
			return
		}
		h.respondText(s, i, fmt.Sprintf("Removed `%s`.", phrase))

	case "add-housing-trigger":
		match := stringOption(opts, "match")
		channelID := channelOption(opts, "channel")
		embed := embedOption(opts)
		if err := h.engine.AddHousingTrigger(ctx, match, channelID, embed); err != nil {
			h.respondText(s, i, fmt.Sprintf("Failed: %v", err))
			return
		}
		h.respondText(s, i, fmt.Sprintf("Trigger `%s` → <#%s> added.", match, channelID))

	case "remove-housing-trigger":
		match := stringOption(opts, "match")
		removed, err := h.engine.RemoveHousingTrigger(ctx, match)
		if err != nil {
			h.respondText(s, i, fmt.Sprintf("Failed: %v", err))
			return
		}
		if !removed {
			h.respondText(s, i, fmt.Sprintf("No trigger found for `%s`.", match))
			return
		}
		h.respondText(s, i, fmt.Sprintf("Removed trigger `%s`.", match))

	case "set-visit-target":
		target := stringOption(opts, "target")
		if err := h.engine.SetVisitTarget(ctx, target); err != nil {
			h.respondText(s, i, fmt.Sprintf("Failed: %v", err))
			return
		}
		h.respondText(s, i, fmt.Sprintf("Visit target set to `%s`.", target))

	default:
		h.respondText(s, i, fmt.Sprintf("Unknown subcommand `%s`.", sub.Name))
	}
}

func (h *DiscordEventsHandler) handleLivechatCommand(
	ctx context.Context,
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	data discordgo.ApplicationCommandInteractionData,
) {
	channelID := channelOption(optionMap(data.Options), "channel")
	if channelID == "" {
		if err := h.engine.SetLivechatChannel(ctx, mo.None[string]()); err != nil {
			h.respondText(s, i, fmt.Sprintf("Failed: %v", err))
			return
		}
		h.respondText(s, i, "Livechat relay disabled.")
		return
	}

	if err := h.engine.SetLivechatChannel(ctx, mo.Some(channelID)); err != nil {
		h.respondText(s, i, fmt.Sprintf("Failed: %v", err))
		return
	}
	h.respondText(s, i, fmt.Sprintf("Relaying housing chat into <#%s>.", channelID))
}

// handleAutocomplete serves live suggestions for the two remove subcommands.
func (h *DiscordEventsHandler) handleAutocomplete(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	if data.Name != h.cfg.ConfigureCommandName || len(data.Options) == 0 {
		return
	}
	sub := data.Options[0]

	var candidates []string
	ctx := context.Background()
	switch sub.Name {
	case "remove-discord-command":
		for _, m := range h.rulesService.CommandMappings(ctx) {
			candidates = append(candidates, m.DiscordCommand)
		}
	case "remove-housing-trigger":
		for _, t := range h.rulesService.HousingTriggers(ctx) {
			candidates = append(candidates, t.Match)
		}
	default:
		return
	}

	typed := focusedValue(sub.Options)
	choices := buildChoices(candidates, typed)
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
	if err != nil && !isStaleInteractionError(err) {
		log.Printf("⚠️ Failed to send autocomplete choices: %v", err)
	}
}

func buildChoices(candidates []string, typed string) []*discordgo.ApplicationCommandOptionChoice {
	typed = strings.ToLower(strings.TrimSpace(typed))
	sort.Strings(candidates)

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, maxAutocompleteChoices)
	for _, candidate := range candidates {
		if typed != "" && !strings.Contains(strings.ToLower(candidate), typed) {
			continue
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  candidate,
			Value: candidate,
		})
		if len(choices) == maxAutocompleteChoices {
			break
		}
	}
	return choices
}

// respondText sends an ephemeral reply. Stale-interaction failures (the token
// expired or the interaction was already acknowledged) are swallowed.
func (h *DiscordEventsHandler) respondText(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil && !isStaleInteractionError(err) {
		log.Printf("❌ Failed to respond to interaction: %v", err)
	}
}

func isStaleInteractionError(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) || restErr.Message == nil {
		return false
	}
	return restErr.Message.Code == discordgo.ErrCodeUnknownInteraction ||
		restErr.Message.Code == discordgo.ErrCodeInteractionHasAlreadyBeenAcknowledged
}

func optionMap(
	options []*discordgo.ApplicationCommandInteractionDataOption,
) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		m[opt.Name] = opt
	}
	return m
}

func stringOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if opt, ok := opts[name]; ok {
		return strings.TrimSpace(opt.StringValue())
	}
	return ""
}

func boolOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) bool {
	if opt, ok := opts[name]; ok {
		return opt.BoolValue()
	}
	return false
}

// channelOption reads a channel option as its raw ID without a state lookup.
func channelOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if opt, ok := opts[name]; ok {
		if id, isString := opt.Value.(string); isString {
			return id
		}
	}
	return ""
}

func embedOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption) *models.EmbedTemplate {
	title := stringOption(opts, "title")
	body := stringOption(opts, "body")
	if title == "" && body == "" {
		return nil
	}
	return &models.EmbedTemplate{Title: title, Description: body}
}

func focusedValue(options []*discordgo.ApplicationCommandInteractionDataOption) string {
	for _, opt := range options {
		if opt.Focused {
			if value, ok := opt.Value.(string); ok {
				return value
			}
		}
	}
	return ""
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
