package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AnshRaj112/skillswap-backend/internal/models"
)

const (
	channelsCollection = "chat_channels"
	messagesCollection = "chat_messages"
)

// ChatStore keeps channel metadata and messages in MongoDB. Each channel
// document carries a sequence counter so messages have a total order even
// when two are written within the same millisecond.
type ChatStore struct {
	channels *mongo.Collection
	messages *mongo.Collection
	now      func() time.Time
}

func NewChatStore(db *mongo.Database) *ChatStore {
	return &ChatStore{
		channels: db.Collection(channelsCollection),
		messages: db.Collection(messagesCollection),
		now:      time.Now,
	}
}

// EnsureIndexes configures the chat collections. Called on startup after
// Mongo has connected.
func (s *ChatStore) EnsureIndexes(ctx context.Context) error {
	if _, err := s.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "channel_id", Value: 1}, {Key: "seq", Value: 1}},
		Options: options.Index().SetName("idx_channel_seq").SetUnique(true),
	}); err != nil {
		return err
	}
	_, err := s.channels.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "participants", Value: 1}, {Key: "last_updated", Value: -1}},
		Options: options.Index().SetName("idx_participants_updated"),
	})
	return err
}

// EnsureChannel creates the channel if it does not exist and refreshes
// last_updated. Participants are only written on creation.
func (s *ChatStore) EnsureChannel(ctx context.Context, channelID string, participants []string) (*models.Channel, error) {
	now := s.now().UTC()
	update := bson.M{
		"$set":         bson.M{"last_updated": now},
		"$setOnInsert": bson.M{"participants": participants, "created_at": now, "seq": int64(0)},
	}
	return s.upsertChannel(ctx, channelID, update)
}

// AppendMessage assigns the next sequence number of the channel to msg and
// stores it.
func (s *ChatStore) AppendMessage(ctx context.Context, msg *models.ChatMessage, participants []string) error {
	now := s.now().UTC()
	ch, err := s.upsertChannel(ctx, msg.ChannelID, bson.M{
		"$inc":         bson.M{"seq": int64(1)},
		"$set":         bson.M{"last_updated": now},
		"$setOnInsert": bson.M{"participants": participants, "created_at": now},
	})
	if err != nil {
		return err
	}

	msg.Seq = ch.Seq
	msg.CreatedAt = now
	res, err := s.messages.InsertOne(ctx, msg)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		msg.ID = oid
	}
	return nil
}

func (s *ChatStore) upsertChannel(ctx context.Context, channelID string, update bson.M) (*models.Channel, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var ch models.Channel
	if err := s.channels.FindOneAndUpdate(ctx, bson.M{"_id": channelID}, update, opts).Decode(&ch); err != nil {
		return nil, fmt.Errorf("upsert channel %s: %w", channelID, err)
	}
	return &ch, nil
}

// ListMessages returns every message of the channel in sequence order.
func (s *ChatStore) ListMessages(ctx context.Context, channelID string) ([]*models.ChatMessage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	cur, err := s.messages.Find(ctx, bson.M{"channel_id": channelID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	msgs := []*models.ChatMessage{}
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// ListChannels returns the channels chatID takes part in, most recent first.
func (s *ChatStore) ListChannels(ctx context.Context, chatID string) ([]*models.Channel, error) {
	opts := options.Find().SetSort(bson.D{{Key: "last_updated", Value: -1}}).SetLimit(200)
	cur, err := s.channels.Find(ctx, bson.M{"participants": chatID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	channels := []*models.Channel{}
	if err := cur.All(ctx, &channels); err != nil {
		return nil, err
	}
	return channels, nil
}
