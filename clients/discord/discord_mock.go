package discord

import (
	"github.com/stretchr/testify/mock"
)

type MockDiscordClient struct {
	mock.Mock
}

func (m *MockDiscordClient) SendChannelMessage(channelID, content string) (string, error) {
	args := m.Called(channelID, content)
	return args.String(0), args.Error(1)
}

func (m *MockDiscordClient) EditChannelMessage(channelID, messageID, content string) error {
	args := m.Called(channelID, messageID, content)
	return args.Error(0)
}

func (m *MockDiscordClient) SendChannelEmbed(channelID, title, description string, color int) error {
	args := m.Called(channelID, title, description, color)
	return args.Error(0)
}

func (m *MockDiscordClient) ReplyToMessage(channelID, messageID, content string) error {
	args := m.Called(channelID, messageID, content)
	return args.Error(0)
}

func (m *MockDiscordClient) AddReaction(channelID, messageID, emoji string) error {
	args := m.Called(channelID, messageID, emoji)
	return args.Error(0)
}

func (m *MockDiscordClient) IsTextChannel(channelID string) (bool, error) {
	args := m.Called(channelID)
	return args.Bool(0), args.Error(1)
}

func (m *MockDiscordClient) UpdateBotStatus(online bool, activity string) error {
	args := m.Called(online, activity)
	return args.Error(0)
}
