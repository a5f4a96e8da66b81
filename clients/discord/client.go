package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/leoapplecool/discord-x-housing-bridge/clients"
)

// Client implements the clients.DiscordClient interface on top of a live
// discordgo session.
type Client struct {
	session *discordgo.Session
}

func NewClient(session *discordgo.Session) clients.DiscordClient {
	return &Client{session: session}
}

// NewSession builds an unopened gateway session for the given bot token.
func NewSession(botToken string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	return session, nil
}

func (c *Client) SendChannelMessage(channelID, content string) (string, error) {
	msg, err := c.session.ChannelMessageSend(channelID, content)
	if err != nil {
		return "", fmt.Errorf("failed to send message to channel %s: %w", channelID, err)
	}
	return msg.ID, nil
}

func (c *Client) EditChannelMessage(channelID, messageID, content string) error {
	if _, err := c.session.ChannelMessageEdit(channelID, messageID, content); err != nil {
		return fmt.Errorf("failed to edit message %s in channel %s: %w", messageID, channelID, err)
	}
	return nil
}

func (c *Client) SendChannelEmbed(channelID, title, description string, color int) error {
	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
	}
	if _, err := c.session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		return fmt.Errorf("failed to send embed to channel %s: %w", channelID, err)
	}
	return nil
}

func (c *Client) ReplyToMessage(channelID, messageID, content string) error {
	_, err := c.session.ChannelMessageSendReply(channelID, content, &discordgo.MessageReference{
		ChannelID: channelID,
		MessageID: messageID,
	})
	if err != nil {
		return fmt.Errorf("failed to reply to message %s in channel %s: %w", messageID, channelID, err)
	}
	return nil
}

func (c *Client) AddReaction(channelID, messageID, emoji string) error {
	if err := c.session.MessageReactionAdd(channelID, messageID, emoji); err != nil {
		return fmt.Errorf("failed to add reaction to message %s: %w", messageID, err)
	}
	return nil
}

func (c *Client) IsTextChannel(channelID string) (bool, error) {
	channel, err := c.session.Channel(channelID)
	if err != nil {
		return false, fmt.Errorf("failed to fetch channel %s: %w", channelID, err)
	}
	return channel.Type == discordgo.ChannelTypeGuildText, nil
}

func (c *Client) UpdateBotStatus(online bool, activity string) error {
	status := "online"
	if !online {
		status = "idle"
	}
	err := c.session.UpdateStatusComplex(discordgo.UpdateStatusData{
		Status: status,
		Activities: []*discordgo.Activity{
			{
				Name: activity,
				Type: discordgo.ActivityTypeWatching,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update bot status: %w", err)
	}
	return nil
}
