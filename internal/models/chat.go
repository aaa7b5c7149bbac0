package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Channel is the metadata record of a two-party conversation. Its id is the
// derived channel id.
type Channel struct {
	ID           string    `bson:"_id" json:"id"`
	Participants []string  `bson:"participants" json:"participants"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	LastUpdated  time.Time `bson:"last_updated" json:"last_updated"`
	// Seq is the sequence number of the latest message.
	Seq int64 `bson:"seq" json:"seq"`
}

// ChatMessage is stored in MongoDB, one document per message.
type ChatMessage struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChannelID   string             `bson:"channel_id" json:"channel_id"`
	Seq         int64              `bson:"seq" json:"seq"`
	Text        string             `bson:"text" json:"text"`
	SenderID    string             `bson:"sender_id" json:"sender_id"`
	SenderName  string             `bson:"sender_name" json:"sender_name"`
	RecipientID string             `bson:"recipient_id" json:"recipient_id"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// SendMessageRequest is the body of POST /api/chats/{channelID}/messages.
type SendMessageRequest struct {
	RecipientID string `json:"recipient_id"`
	Text        string `json:"text"`
}

// ChatEventType distinguishes websocket frames.
type ChatEventType string

const (
	ChatEventSnapshot ChatEventType = "snapshot"
	ChatEventError    ChatEventType = "error"
)

// ChatEvent is a frame sent to websocket subscribers. Every snapshot holds
// the full ordered message list of the channel.
type ChatEvent struct {
	Type      ChatEventType  `json:"type"`
	ChannelID string         `json:"channel_id"`
	Messages  []*ChatMessage `json:"messages,omitempty"`
	Error     string         `json:"error,omitempty"`
}
