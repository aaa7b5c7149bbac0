package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/AnshRaj112/skillswap-backend/internal/metrics"
	"github.com/AnshRaj112/skillswap-backend/internal/models"
)

type memChats struct {
	mu       sync.Mutex
	channels map[string]*models.Channel
	messages map[string][]*models.ChatMessage
	failNext error
}

func newMemChats() *memChats {
	return &memChats{channels: map[string]*models.Channel{}, messages: map[string][]*models.ChatMessage{}}
}

func (m *memChats) EnsureChannel(_ context.Context, id string, participants []string) (*models.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[id]
	if !ok {
		ch = &models.Channel{ID: id, Participants: participants}
		m.channels[id] = ch
	}
	return ch, nil
}

func (m *memChats) AppendMessage(ctx context.Context, msg *models.ChatMessage, participants []string) error {
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	ch, _ := m.EnsureChannel(ctx, msg.ChannelID, participants)
	m.mu.Lock()
	defer m.mu.Unlock()
	ch.Seq++
	msg.Seq = ch.Seq
	msg.ID = primitive.NewObjectID()
	m.messages[msg.ChannelID] = append(m.messages[msg.ChannelID], msg)
	return nil
}

func (m *memChats) ListMessages(_ context.Context, id string) ([]*models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.ChatMessage{}, m.messages[id]...), nil
}

func (m *memChats) ListChannels(_ context.Context, chatID string) ([]*models.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Channel{}
	for _, ch := range m.channels {
		for _, p := range ch.Participants {
			if p == chatID {
				out = append(out, ch)
			}
		}
	}
	return out, nil
}

type recordingNotifier struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (n *recordingNotifier) Publish(_ context.Context, channelID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.published = append(n.published, channelID)
	return n.err
}

func newChatService() (*ChatService, *memChats, *recordingNotifier) {
	repo := newMemChats()
	n := &recordingNotifier{}
	return NewChatService(repo, n, NewSanitizer(), metrics.Nop{}, zap.NewNop()), repo, n
}

var (
	ana = &models.User{ID: primitive.NewObjectID(), Name: "Ana", ProviderID: "uidA"}
	bo  = &models.User{ID: primitive.NewObjectID(), Name: "Bo", ProviderID: "uidB"}
)

func TestChatOpenCreatesChannelLazily(t *testing.T) {
	svc, repo, _ := newChatService()

	msgs, err := svc.Open(context.Background(), bo, "uidA_uidB", "uidA")
	require.NoError(t, err)
	assert.Empty(t, msgs)
	require.Contains(t, repo.channels, "uidA_uidB")
	assert.Equal(t, []string{"uidA", "uidB"}, repo.channels["uidA_uidB"].Participants)
}

func TestChatSendOrdersMessages(t *testing.T) {
	svc, _, notifier := newChatService()
	ctx := context.Background()

	first, err := svc.Send(ctx, ana, "uidA_uidB", models.SendMessageRequest{RecipientID: "uidB", Text: "hi"})
	require.NoError(t, err)
	_, err = svc.Send(ctx, bo, "uidA_uidB", models.SendMessageRequest{RecipientID: "uidA", Text: "<b>hello</b> back"})
	require.NoError(t, err)

	assert.Equal(t, "uidA", first.SenderID)
	assert.Equal(t, "Ana", first.SenderName)

	msgs, err := svc.Snapshot(ctx, "uidA_uidB")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, int64(1), msgs[0].Seq)
	assert.Equal(t, "hello back", msgs[1].Text)
	assert.Equal(t, []string{"uidA_uidB", "uidA_uidB"}, notifier.published)
}

func TestChatSendRejects(t *testing.T) {
	svc, _, _ := newChatService()
	ctx := context.Background()

	_, err := svc.Send(ctx, ana, "uidB_uidC", models.SendMessageRequest{RecipientID: "uidC", Text: "hi"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Send(ctx, ana, "uidA_uidB", models.SendMessageRequest{RecipientID: "", Text: "hi"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Send(ctx, ana, "uidA_uidB", models.SendMessageRequest{RecipientID: "uidB", Text: "  <i></i> "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Send(ctx, ana, "uidA_uidB", models.SendMessageRequest{RecipientID: "uidB", Text: strings.Repeat("x", MaxMessageLength+1)})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestChatSendStoreFailure(t *testing.T) {
	svc, repo, notifier := newChatService()
	repo.failNext = errors.New("network down")

	_, err := svc.Send(context.Background(), ana, "uidA_uidB", models.SendMessageRequest{RecipientID: "uidB", Text: "hi"})
	require.Error(t, err)

	msgs, _ := svc.Snapshot(context.Background(), "uidA_uidB")
	assert.Empty(t, msgs)
	assert.Empty(t, notifier.published)
}

func TestChatSendPublishFailureStillStores(t *testing.T) {
	svc, _, notifier := newChatService()
	notifier.err = errors.New("redis down")

	_, err := svc.Send(context.Background(), ana, "uidA_uidB", models.SendMessageRequest{RecipientID: "uidB", Text: "hi"})
	require.NoError(t, err)
	msgs, _ := svc.Snapshot(context.Background(), "uidA_uidB")
	assert.Len(t, msgs, 1)
}

func TestChatIDFallsBackToDurableID(t *testing.T) {
	svc, _, _ := newChatService()
	local := &models.User{ID: primitive.NewObjectID(), Name: "Local"}
	channelID := local.ID.Hex() + "_uidB"
	if "uidB" < local.ID.Hex() {
		channelID = "uidB_" + local.ID.Hex()
	}

	msg, err := svc.Send(context.Background(), local, channelID, models.SendMessageRequest{RecipientID: "uidB", Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, local.ID.Hex(), msg.SenderID)

	chans, err := svc.Channels(context.Background(), local)
	require.NoError(t, err)
	require.Len(t, chans, 1)
	assert.Equal(t, channelID, chans[0].ID)
}
