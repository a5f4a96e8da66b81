package clients

// DiscordClient defines the interface for the Discord operations the bridge
// core needs. The concrete implementation wraps discordgo; tests use the mock.
type DiscordClient interface {
	// Message operations
	SendChannelMessage(channelID, content string) (messageID string, err error)
	EditChannelMessage(channelID, messageID, content string) error
	SendChannelEmbed(channelID, title, description string, color int) error
	ReplyToMessage(channelID, messageID, content string) error

	// Reaction operations
	AddReaction(channelID, messageID, emoji string) error

	// Channel operations
	IsTextChannel(channelID string) (bool, error)

	// Bot presence
	UpdateBotStatus(online bool, activity string) error
}

// MinecraftSessionHandlers receives transport callbacks for a single session.
// Callbacks fire from the session's own read loop; the supervisor serializes
// the state changes they cause.
type MinecraftSessionHandlers struct {
	// OnSpawn fires once when the low-level connection has joined the world.
	OnSpawn func()
	// OnChat fires for every chat line, already flattened to plain text.
	OnChat func(line string)
	// OnPlayerJoin / OnPlayerLeave fire when the transport surfaces tab-list
	// changes. Not every transport does; chat-line parsing is the fallback.
	OnPlayerJoin  func(name string)
	OnPlayerLeave func(name string)
	// OnKicked fires when the server actively removes the bot. OnDisconnect
	// always fires afterwards when the connection ends.
	OnKicked func(reason string)
	// OnDisconnect is the authoritative end-of-session signal.
	OnDisconnect func(reason string)
	// OnError reports transport errors that do not end the session.
	OnError func(err error)
}

// MinecraftConnectOptions carries the parameters for opening a session.
type MinecraftConnectOptions struct {
	Host     string
	Port     int
	Username string
}

// MinecraftSession is one live connection to the game server.
type MinecraftSession interface {
	// Run starts the session's event loop and blocks until the connection
	// ends. Handlers fire only while Run is active, so callers can store the
	// session before any event arrives.
	Run()
	// SendChat submits a chat message or slash command to the server.
	SendChat(message string) error
	// Players returns the usernames currently on the tab list, excluding the
	// bot itself.
	Players() []string
	// Username returns the name the bot joined with.
	Username() string
	// Close tears the connection down. OnDisconnect still fires.
	Close() error
}

// MinecraftDialer opens game sessions. The production implementation speaks
// the Minecraft protocol; tests substitute a fake dialer.
type MinecraftDialer interface {
	Dial(opts MinecraftConnectOptions, handlers MinecraftSessionHandlers) (MinecraftSession, error)
}
