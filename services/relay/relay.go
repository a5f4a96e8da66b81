package relay

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gammazero/workerpool"

	"github.com/leoapplecool/discord-x-housing-bridge/clients"
)

const (
	// DefaultMaxBlockLines is how many chat lines accumulate in one Discord
	// code block before a fresh block is started.
	DefaultMaxBlockLines = 20
	// DefaultDedupWindow suppresses identical lines arriving close together,
	// which Hypixel produces for some system messages.
	DefaultDedupWindow = 2 * time.Second

	// pruneThreshold bounds the dedup index; entries older than twice the
	// window are dropped once the index grows past this.
	pruneThreshold = 200
)

// defaultIgnoredFragments marks server noise that is never relayed.
var defaultIgnoredFragments = []string{
	"to leave, type /lobby or right click the door/ghast tear in your hotbar!",
	"you are currently in",
}

// Service forwards housing chat lines into one Discord channel as sliding
// code blocks. All Discord writes go through a single-worker pool, so block
// state mutates strictly in line-arrival order.
type Service struct {
	discord clients.DiscordClient
	wp      *workerpool.WorkerPool

	mu          sync.Mutex
	channelID   string
	lines       []string
	messageID   string
	recent      map[string]time.Time
	dedupWindow time.Duration
	maxLines    int
	ignore      []string
	now         func() time.Time
}

type Option func(*Service)

func WithDedupWindow(window time.Duration) Option {
	return func(s *Service) { s.dedupWindow = window }
}

func WithMaxBlockLines(max int) Option {
	return func(s *Service) { s.maxLines = max }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(discord clients.DiscordClient, opts ...Option) *Service {
	s := &Service{
		discord:     discord,
		wp:          workerpool.New(1),
		recent:      make(map[string]time.Time),
		dedupWindow: DefaultDedupWindow,
		maxLines:    DefaultMaxBlockLines,
		ignore:      defaultIgnoredFragments,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetChannel points the relay at a new channel and resets batching state.
// An empty ID disables the relay.
func (s *Service) SetChannel(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelID = channelID
	s.lines = nil
	s.messageID = ""
}

func (s *Service) Channel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channelID
}

// ShouldEmit applies the ignore list and the dedup window. Ignored lines are
// dropped without touching the dedup index; accepted lines are recorded so
// an identical line inside the window is suppressed.
func (s *Service) ShouldEmit(line string) bool {
	if line == "" {
		return false
	}
	lower := strings.ToLower(line)
	for _, fragment := range s.ignore {
		if strings.Contains(lower, fragment) {
			return false
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if last, seen := s.recent[line]; seen && now.Sub(last) < s.dedupWindow {
		return false
	}
	s.recent[line] = now

	if len(s.recent) > pruneThreshold {
		for msg, ts := range s.recent {
			if now.Sub(ts) > s.dedupWindow*2 {
				delete(s.recent, msg)
			}
		}
	}
	return true
}

// Push appends a line to the relay output. The write happens on the relay
// worker; the caller never blocks on Discord.
func (s *Service) Push(line string) {
	s.wp.Submit(func() {
		s.appendLine(line)
	})
}

// Stop waits for queued relay writes to finish.
func (s *Service) Stop() {
	s.wp.StopWait()
}

func (s *Service) appendLine(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.channelID == "" {
		return
	}

	if s.messageID == "" || len(s.lines) >= s.maxLines {
		s.startBlock(line)
		return
	}

	s.lines = append(s.lines, line)
	if err := s.discord.EditChannelMessage(s.channelID, s.messageID, codeBlock(s.lines)); err != nil {
		log.Printf("⚠️ Livechat edit failed, starting new block: %v", err)
		s.startBlock(line)
	}
}

// startBlock sends a fresh code block whose first line is exactly the given
// line. Called with the mutex held.
func (s *Service) startBlock(line string) {
	s.lines = []string{line}
	messageID, err := s.discord.SendChannelMessage(s.channelID, codeBlock(s.lines))
	if err != nil {
		log.Printf("❌ Livechat send failed: %v", err)
		s.messageID = ""
		return
	}
	s.messageID = messageID
}

func codeBlock(lines []string) string {
	return "```\n" + strings.Join(lines, "\n") + "\n```"
}
