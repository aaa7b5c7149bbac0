package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/AnshRaj112/skillswap-backend/internal/channel"
	"github.com/AnshRaj112/skillswap-backend/internal/metrics"
	"github.com/AnshRaj112/skillswap-backend/internal/models"
)

// MaxMessageLength is the longest accepted message, in runes.
const MaxMessageLength = 2000

// ChatRepository is the message store. ChatStore implements it.
type ChatRepository interface {
	EnsureChannel(ctx context.Context, channelID string, participants []string) (*models.Channel, error)
	AppendMessage(ctx context.Context, msg *models.ChatMessage, participants []string) error
	ListMessages(ctx context.Context, channelID string) ([]*models.ChatMessage, error)
	ListChannels(ctx context.Context, chatID string) ([]*models.Channel, error)
}

// ChatNotifier publishes channel changes. ChatHub implements it.
type ChatNotifier interface {
	Publish(ctx context.Context, channelID string) error
}

// ChatService implements two-party conversations on top of the store.
type ChatService struct {
	repo      ChatRepository
	notifier  ChatNotifier
	sanitizer *Sanitizer
	metrics   metrics.Recorder
	logger    *zap.Logger
}

func NewChatService(repo ChatRepository, notifier ChatNotifier, sanitizer *Sanitizer, rec metrics.Recorder, logger *zap.Logger) *ChatService {
	return &ChatService{repo: repo, notifier: notifier, sanitizer: sanitizer, metrics: rec, logger: logger}
}

// Authorize checks that channelID is the channel between me and peer and
// returns its participants.
func (s *ChatService) Authorize(me *models.User, channelID, peer string) ([]string, error) {
	want, err := channel.Derive(me.ChatID(), peer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if want != channelID {
		return nil, fmt.Errorf("%w: not a participant of %s", ErrForbidden, channelID)
	}
	a, b, err := channel.Participants(channelID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return []string{a, b}, nil
}

// Open creates the channel when needed and returns its full ordered history.
func (s *ChatService) Open(ctx context.Context, me *models.User, channelID, peer string) ([]*models.ChatMessage, error) {
	participants, err := s.Authorize(me, channelID, peer)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.EnsureChannel(ctx, channelID, participants); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, channelID)
}

// Snapshot returns the full ordered history without touching the channel.
func (s *ChatService) Snapshot(ctx context.Context, channelID string) ([]*models.ChatMessage, error) {
	return s.repo.ListMessages(ctx, channelID)
}

// Send appends a message from me to the recipient named in req.
func (s *ChatService) Send(ctx context.Context, me *models.User, channelID string, req models.SendMessageRequest) (*models.ChatMessage, error) {
	participants, err := s.Authorize(me, channelID, req.RecipientID)
	if err != nil {
		return nil, err
	}

	text := s.sanitizer.Text(req.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: message text is required", ErrInvalidInput)
	}
	if len([]rune(text)) > MaxMessageLength {
		return nil, fmt.Errorf("%w: message is longer than %d characters", ErrInvalidInput, MaxMessageLength)
	}

	msg := &models.ChatMessage{
		ChannelID:   channelID,
		Text:        text,
		SenderID:    me.ChatID(),
		SenderName:  me.Name,
		RecipientID: req.RecipientID,
	}
	if err := s.repo.AppendMessage(ctx, msg, participants); err != nil {
		return nil, err
	}
	s.metrics.RecordMessageSent()

	// stored already; a lost broadcast only delays live delivery
	if err := s.notifier.Publish(ctx, channelID); err != nil {
		s.logger.Warn("chat publish failed", zap.String("channel_id", channelID), zap.Error(err))
	}
	return msg, nil
}

// Channels lists the conversations of me by last activity.
func (s *ChatService) Channels(ctx context.Context, me *models.User) ([]*models.Channel, error) {
	return s.repo.ListChannels(ctx, me.ChatID())
}
