package bridge

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/leoapplecool/discord-x-housing-bridge/models"
)

// joinLeavePattern matches Hypixel housing world announcements like
// "[VIP] Steve entered the world." with an optional rank prefix.
var joinLeavePattern = regexp.MustCompile(`(?i)^(?:\[[^\]]+\]\s+)?([A-Za-z0-9_]{1,16})\s+(entered|left) the world\.$`)

// parseJoinLeave extracts the player name from a world join/leave line.
// The second return is true on a join, false on a leave.
func parseJoinLeave(line string) (name string, joined bool, ok bool) {
	m := joinLeavePattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", false, false
	}
	return m[1], strings.EqualFold(m[2], "entered"), true
}

// substitutePlayer fills the player argument into an outbound command. A
// command without an explicit {player} placeholder gets the name appended.
func substitutePlayer(command, player string) string {
	if strings.Contains(command, models.PlayerPlaceholder) {
		return strings.ReplaceAll(command, models.PlayerPlaceholder, player)
	}
	return command + " " + player
}

// renderTemplate substitutes {message} with the matched chat line.
func renderTemplate(tpl, line string) string {
	return strings.ReplaceAll(tpl, "{message}", line)
}

// embedFields resolves a trigger's embed template against its defaults.
func embedFields(trigger models.HousingTrigger, line string) (title, description string, color int) {
	title = "Housing Update"
	description = "{message}"
	color = models.DefaultEmbedColor
	if trigger.Embed != nil {
		if trigger.Embed.Title != "" {
			title = trigger.Embed.Title
		}
		if trigger.Embed.Description != "" {
			description = trigger.Embed.Description
		}
		if trigger.Embed.Color != 0 {
			color = trigger.Embed.Color
		}
	}
	return renderTemplate(title, line), renderTemplate(description, line), color
}

// formatMappingList renders the configured command mappings for Discord.
func formatMappingList(mappings []models.CommandMapping) string {
	if len(mappings) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, m := range mappings {
		fmt.Fprintf(&b, "`%s` → `%s`\n", m.DiscordCommand, m.MinecraftCommand)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// formatTriggerList renders the configured housing triggers for Discord.
func formatTriggerList(triggers []models.HousingTrigger) string {
	if len(triggers) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, t := range triggers {
		fmt.Fprintf(&b, "`%s` → <#%s>\n", t.Match, t.ChannelID)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// playerActivity builds the bot's Discord presence line.
func playerActivity(connected bool, count int) string {
	if !connected {
		return "connecting..."
	}
	if count == 1 {
		return "1 player in housing"
	}
	return fmt.Sprintf("%d players in housing", count)
}
