package models

// PlayerPlaceholder is the token inside a Discord phrase that marks an
// argument-expecting mapping, e.g. "!invite {player}".
const PlayerPlaceholder = "{player}"

// DefaultEmbedColor is the accent color used for bridge embeds.
const DefaultEmbedColor = 0x00a8ff

// CommandMapping maps a Discord chat phrase onto a Minecraft command.
// When WithPlayer is set, the second whitespace token of the Discord message
// is appended to MinecraftCommand at dispatch time.
type CommandMapping struct {
	DiscordCommand   string `json:"discordCommand"`
	MinecraftCommand string `json:"minecraftCommand"`
	WithPlayer       bool   `json:"withPlayer"`
}

// EmbedTemplate describes the embed a housing trigger produces. Description
// may contain the "{message}" placeholder which is replaced with the full
// matched chat line.
type EmbedTemplate struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

// HousingTrigger fires a Discord embed when a housing chat line contains
// Match (case-insensitive). Lines containing a literal ':' never trigger.
// A nil Embed falls back to the default title, body and color.
type HousingTrigger struct {
	Match     string         `json:"match"`
	ChannelID string         `json:"channelId"`
	Embed     *EmbedTemplate `json:"embed,omitempty"`
}

// BridgeRules is the persisted rule document. Slice order is insertion
// order, which is also matching order.
type BridgeRules struct {
	DiscordToMinecraft []CommandMapping `json:"discordToMinecraft"`
	HousingToDiscord   []HousingTrigger `json:"housingToDiscord"`
	LivechatChannelID  *string          `json:"livechatChannelId"`
}

// Clone returns a deep copy so callers can hand out snapshots without
// exposing internal slices to mutation.
func (r *BridgeRules) Clone() *BridgeRules {
	out := &BridgeRules{
		DiscordToMinecraft: make([]CommandMapping, len(r.DiscordToMinecraft)),
		HousingToDiscord:   make([]HousingTrigger, len(r.HousingToDiscord)),
	}
	copy(out.DiscordToMinecraft, r.DiscordToMinecraft)
	for i, trigger := range r.HousingToDiscord {
		if trigger.Embed != nil {
			embed := *trigger.Embed
			trigger.Embed = &embed
		}
		out.HousingToDiscord[i] = trigger
	}
	if r.LivechatChannelID != nil {
		id := *r.LivechatChannelID
		out.LivechatChannelID = &id
	}
	return out
}

// EmptyBridgeRules returns a rule document with no mappings, the shape
// written on first startup when nothing has been persisted yet.
func EmptyBridgeRules() *BridgeRules {
	return &BridgeRules{
		DiscordToMinecraft: []CommandMapping{},
		HousingToDiscord:   []HousingTrigger{},
	}
}

// DiscordMessageEvent is the slice of a Discord message the bridge engine
// needs, mapped from the SDK event by the handler layer.
type DiscordMessageEvent struct {
	ChannelID string
	MessageID string
	Content   string
	AuthorID  string
}
