package minecraft

import (
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"

	"github.com/Tnze/go-mc/bot"
	"github.com/Tnze/go-mc/bot/basic"
	"github.com/Tnze/go-mc/bot/msg"
	"github.com/Tnze/go-mc/bot/playerlist"
	"github.com/Tnze/go-mc/chat"

	"github.com/leoapplecool/discord-x-housing-bridge/clients"
)

// Dialer implements clients.MinecraftDialer using the go-mc protocol client.
type Dialer struct{}

func NewDialer() clients.MinecraftDialer {
	return &Dialer{}
}

type session struct {
	client     *bot.Client
	chatman    *msg.Manager
	playerList *playerlist.PlayerList
	username   string
	handlers   clients.MinecraftSessionHandlers
	closed     atomic.Bool
}

func (d *Dialer) Dial(
	opts clients.MinecraftConnectOptions,
	handlers clients.MinecraftSessionHandlers,
) (clients.MinecraftSession, error) {
	c := bot.NewClient()
	c.Auth = bot.Auth{Name: opts.Username}

	s := &session{client: c, username: opts.Username}

	player := basic.NewPlayer(c, basic.DefaultSettings, basic.EventsListener{
		GameStart: func() error {
			if handlers.OnSpawn != nil {
				handlers.OnSpawn()
			}
			return nil
		},
		Disconnect: func(reason chat.Message) error {
			// Server-initiated removal. The read loop still ends afterwards,
			// which fires OnDisconnect as the authoritative signal.
			if handlers.OnKicked != nil {
				handlers.OnKicked(flattenReason(reason))
			}
			return nil
		},
	})
	s.playerList = playerlist.New(c)
	s.chatman = msg.New(c, player, s.playerList, msg.EventsHandler{
		SystemChat: func(m chat.Message, _ bool) error {
			s.emitChat(handlers, m)
			return nil
		},
		PlayerChatMessage: func(m chat.Message, _ bool) error {
			s.emitChat(handlers, m)
			return nil
		},
		DisguisedChat: func(m chat.Message) error {
			s.emitChat(handlers, m)
			return nil
		},
	})

	addr := net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
	if err := c.JoinServer(addr); err != nil {
		return nil, fmt.Errorf("failed to join %s as %s: %w", addr, opts.Username, err)
	}

	s.handlers = handlers
	return s, nil
}

// Run owns the protocol read loop. It blocks until the connection ends for
// any reason and then fires the disconnect handler exactly once.
func (s *session) Run() {
	handlers := s.handlers
	err := s.client.HandleGame()

	reason := "connection closed"
	if err != nil {
		reason = err.Error()
		if handlers.OnError != nil && !s.closed.Load() {
			handlers.OnError(err)
		}
	}
	if s.closed.Load() {
		reason = "stopped by controller"
	}
	if handlers.OnDisconnect != nil {
		handlers.OnDisconnect(reason)
	}
}

func (s *session) emitChat(handlers clients.MinecraftSessionHandlers, m chat.Message) {
	if handlers.OnChat == nil {
		return
	}
	if line := m.ClearString(); line != "" {
		handlers.OnChat(line)
	}
}

func (s *session) SendChat(message string) error {
	if err := s.chatman.SendMessage(message); err != nil {
		return fmt.Errorf("failed to send chat message: %w", err)
	}
	return nil
}

func (s *session) Players() []string {
	var names []string
	for _, info := range s.playerList.PlayerInfos {
		if info == nil {
			continue
		}
		if name := info.GameProfile.Name; name != "" && name != s.username {
			names = append(names, name)
		}
	}
	return names
}

func (s *session) Username() string {
	return s.username
}

func (s *session) Close() error {
	s.closed.Store(true)
	return s.client.Close()
}

// flattenReason turns a structured disconnect reason into a human-readable
// string: plain text when available, raw JSON otherwise.
func flattenReason(reason chat.Message) string {
	if text := reason.ClearString(); text != "" {
		return text
	}
	raw, err := json.Marshal(reason)
	if err != nil {
		return "unknown reason"
	}
	return string(raw)
}
