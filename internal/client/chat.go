package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/AnshRaj112/skillswap-backend/internal/models"
)

type channelsEnvelope struct {
	Success  bool              `json:"success"`
	Channels []*models.Channel `json:"channels"`
}

type messagesEnvelope struct {
	Success   bool                  `json:"success"`
	ChannelID string                `json:"channel_id"`
	Messages  []*models.ChatMessage `json:"messages"`
}

type sendEnvelope struct {
	Success     bool                `json:"success"`
	ChatMessage *models.ChatMessage `json:"chat_message"`
}

// Channels lists the caller's conversations, most recent first.
func (c *Client) Channels(ctx context.Context, token string) ([]*models.Channel, error) {
	var out channelsEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/chats", nil, token, nil, &out); err != nil {
		return nil, err
	}
	return out.Channels, nil
}

// Messages opens the channel with peer and returns its full ordered list.
func (c *Client) Messages(ctx context.Context, token, channelID, peer string) ([]*models.ChatMessage, error) {
	var out messagesEnvelope
	q := url.Values{"with": {peer}}
	if err := c.do(ctx, http.MethodGet, "/api/chats/"+pathID(channelID)+"/messages", q, token, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// SendMessage appends text to the channel.
func (c *Client) SendMessage(ctx context.Context, token, channelID, recipientID, text string) (*models.ChatMessage, error) {
	var out sendEnvelope
	body := models.SendMessageRequest{RecipientID: recipientID, Text: text}
	if err := c.do(ctx, http.MethodPost, "/api/chats/"+pathID(channelID)+"/messages", nil, token, body, &out); err != nil {
		return nil, err
	}
	return out.ChatMessage, nil
}
