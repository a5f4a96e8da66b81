package alerts

import (
	"crypto/md5"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/slack-go/slack"
)

type SlackAlertConfig struct {
	WebhookURL  string
	Environment string
	AppName     string
}

// Alerter delivers operator alerts to a Slack incoming webhook. Repeated
// occurrences of the same alert are suppressed for the cooldown period so a
// reconnect loop does not spam the channel.
type Alerter struct {
	config        SlackAlertConfig
	alertedErrors map[string]time.Time // hash -> last alert time
	mutex         sync.Mutex
	alertCooldown time.Duration
}

func NewAlerter(config SlackAlertConfig) *Alerter {
	return &Alerter{
		config:        config,
		alertedErrors: make(map[string]time.Time),
		alertCooldown: 10 * time.Minute,
	}
}

// NotifyError reports a recoverable failure from a background component.
func (a *Alerter) NotifyError(context string, err error) {
	a.notify(fmt.Sprintf("%s: %v", context, err))
}

// NotifyDisconnect reports that the Minecraft session ended, with the
// best-effort reason string the transport produced.
func (a *Alerter) NotifyDisconnect(kind, reason string) {
	a.notify(fmt.Sprintf("Minecraft bot %s: %s", kind, reason))
}

// WrapBackgroundTask converts panics in a background loop into alerts
// instead of process crashes.
func (a *Alerter) WrapBackgroundTask(taskName string, task func()) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				msg := fmt.Sprintf("Background task %s: PANIC - %v", taskName, r)
				log.Printf("❌ %s", msg)
				a.notify(msg)
			}
		}()
		task()
	}
}

func (a *Alerter) notify(message string) {
	hash := fmt.Sprintf("%x", md5.Sum([]byte(message)))

	a.mutex.Lock()
	if lastAlert, exists := a.alertedErrors[hash]; exists {
		if time.Since(lastAlert) < a.alertCooldown {
			a.mutex.Unlock()
			return // Skip alert - too recent
		}
	}
	a.alertedErrors[hash] = time.Now()
	a.mutex.Unlock()

	// Send asynchronously so event loops never block on Slack.
	go a.sendSlackAlert(message)
}

func (a *Alerter) sendSlackAlert(message string) {
	if a.config.WebhookURL == "" {
		return // Slack alerts disabled
	}

	envTag := ""
	if a.config.Environment == "dev" {
		envTag = "[dev] "
	}
	payload := &slack.WebhookMessage{
		Text: fmt.Sprintf("🚨 %s%s: %s", envTag, a.config.AppName, message),
	}

	if err := slack.PostWebhook(a.config.WebhookURL, payload); err != nil {
		log.Printf("❌ Failed to send Slack alert: %v", err)
	}
}
