package chat

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Sabit205/chat-app-serve/internal/mocks"
	"github.com/Sabit205/chat-app-serve/internal/models"
	"github.com/Sabit205/chat-app-serve/internal/repositories"
)

type emitted struct {
	UserID int
	Event  string
	Data   any
}

type fanoutRecorder struct {
	mu     sync.Mutex
	events []emitted
}

func (f *fanoutRecorder) EmitToUser(userID int, event string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, emitted{UserID: userID, Event: event, Data: data})
}

func (f *fanoutRecorder) byEvent(event string) []emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []emitted
	for _, e := range f.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

type staticPresence map[int]bool

func (p staticPresence) IsOnline(userID int) bool { return p[userID] }

func sidebarRow(convID, low, high int, updatedAt time.Time) models.SidebarRow {
	return models.SidebarRow{ID: convID, UserLowID: low, UserHighID: high, UpdatedAt: updatedAt}
}

// expectSidebar wires the two repo calls one Sidebar invocation makes.
func expectSidebar(convs *mocks.ConversationRepositoryMock, users *mocks.UserRepositoryMock, viewerID int, rows []models.SidebarRow, counterparts []int, profiles []models.User) {
	convs.On("ListSidebar", mock.Anything, viewerID).Return(rows, nil).Once()
	users.On("BulkUsers", mock.Anything, counterparts).Return(profiles, nil).Once()
}

func TestSendFansOutToBothParticipants(t *testing.T) {
	convs := new(mocks.ConversationRepositoryMock)
	msgs := new(mocks.MessageRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	fanout := &fanoutRecorder{}
	svc := NewService(convs, msgs, users, staticPresence{1: true}, fanout)

	conv := models.Conversation{ID: 9, UserLowID: 1, UserHighID: 2}
	content := models.MessageContent{Text: "hi"}
	stored := models.Message{ID: 41, ConversationID: 9, SenderID: 1, Text: "hi"}
	history := []models.Message{stored}

	convs.On("FindOrCreate", mock.Anything, 1, 2).Return(conv, nil).Once()
	msgs.On("Append", mock.Anything, 9, 1, content).Return(stored, nil).Once()
	msgs.On("ListByConversation", mock.Anything, 9).Return(history, nil).Once()

	row := sidebarRow(9, 1, 2, time.Now())
	expectSidebar(convs, users, 1, []models.SidebarRow{row}, []int{2}, []models.User{{ID: 2, Name: "bob"}})
	expectSidebar(convs, users, 2, []models.SidebarRow{row}, []int{1}, []models.User{{ID: 1, Name: "alice"}})

	err := svc.Send(context.Background(), models.NewMessagePayload{Sender: 1, Receiver: 2, Text: "hi"})
	require.NoError(t, err)

	messageEmits := fanout.byEvent(models.EventMessage)
	require.Len(t, messageEmits, 2)
	assert.ElementsMatch(t, []int{1, 2}, []int{messageEmits[0].UserID, messageEmits[1].UserID})
	assert.Equal(t, messageEmits[0].Data, messageEmits[1].Data, "both sides must see the identical ordered list")
	assert.Equal(t, history, messageEmits[0].Data)

	summaryEmits := fanout.byEvent(models.EventConversation)
	require.Len(t, summaryEmits, 2)
	assert.ElementsMatch(t, []int{1, 2}, []int{summaryEmits[0].UserID, summaryEmits[1].UserID})

	convs.AssertExpectations(t)
	msgs.AssertExpectations(t)
	users.AssertExpectations(t)
}

func TestSendAllowsMessageWithoutTextOrMedia(t *testing.T) {
	convs := new(mocks.ConversationRepositoryMock)
	msgs := new(mocks.MessageRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	fanout := &fanoutRecorder{}
	svc := NewService(convs, msgs, users, staticPresence{}, fanout)

	conv := models.Conversation{ID: 3, UserLowID: 1, UserHighID: 2}
	empty := models.MessageContent{}

	convs.On("FindOrCreate", mock.Anything, 1, 2).Return(conv, nil).Once()
	msgs.On("Append", mock.Anything, 3, 1, empty).Return(models.Message{ID: 1, ConversationID: 3, SenderID: 1}, nil).Once()
	msgs.On("ListByConversation", mock.Anything, 3).Return([]models.Message{{ID: 1, ConversationID: 3, SenderID: 1}}, nil).Once()

	row := sidebarRow(3, 1, 2, time.Now())
	expectSidebar(convs, users, 1, []models.SidebarRow{row}, []int{2}, []models.User{{ID: 2}})
	expectSidebar(convs, users, 2, []models.SidebarRow{row}, []int{1}, []models.User{{ID: 1}})

	err := svc.Send(context.Background(), models.NewMessagePayload{Sender: 1, Receiver: 2})
	require.NoError(t, err)
	msgs.AssertExpectations(t)
}

func TestSendAppendFailureAbortsFanout(t *testing.T) {
	convs := new(mocks.ConversationRepositoryMock)
	msgs := new(mocks.MessageRepositoryMock)
	fanout := &fanoutRecorder{}
	svc := NewService(convs, msgs, new(mocks.UserRepositoryMock), staticPresence{}, fanout)

	conv := models.Conversation{ID: 9, UserLowID: 1, UserHighID: 2}
	convs.On("FindOrCreate", mock.Anything, 1, 2).Return(conv, nil).Once()
	msgs.On("Append", mock.Anything, 9, 1, models.MessageContent{Text: "hi"}).
		Return(models.Message{}, assert.AnError).Once()

	err := svc.Send(context.Background(), models.NewMessagePayload{Sender: 1, Receiver: 2, Text: "hi"})
	require.Error(t, err)
	assert.Empty(t, fanout.events)
	msgs.AssertNotCalled(t, "ListByConversation", mock.Anything, 9)
}

func TestSendToSelfRejected(t *testing.T) {
	convs := new(mocks.ConversationRepositoryMock)
	fanout := &fanoutRecorder{}
	svc := NewService(convs, new(mocks.MessageRepositoryMock), new(mocks.UserRepositoryMock), staticPresence{}, fanout)

	convs.On("FindOrCreate", mock.Anything, 4, 4).
		Return(models.Conversation{}, repositories.ErrSelfConversation).Once()

	err := svc.Send(context.Background(), models.NewMessagePayload{Sender: 4, Receiver: 4, Text: "hi"})
	assert.ErrorIs(t, err, repositories.ErrSelfConversation)
	assert.Empty(t, fanout.events)
}

func TestMarkSeenWithoutConversationIsNoop(t *testing.T) {
	convs := new(mocks.ConversationRepositoryMock)
	msgs := new(mocks.MessageRepositoryMock)
	fanout := &fanoutRecorder{}
	svc := NewService(convs, msgs, new(mocks.UserRepositoryMock), staticPresence{}, fanout)

	convs.On("FindByPair", mock.Anything, 1, 2).
		Return(models.Conversation{}, repositories.ErrConversationNotFound).Once()

	err := svc.MarkSeen(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Empty(t, fanout.events)
	msgs.AssertNotCalled(t, "MarkSeen", mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkSeenIsIdempotent(t *testing.T) {
	convs := new(mocks.ConversationRepositoryMock)
	msgs := new(mocks.MessageRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	fanout := &fanoutRecorder{}
	svc := NewService(convs, msgs, users, staticPresence{}, fanout)

	conv := models.Conversation{ID: 5, UserLowID: 1, UserHighID: 2}
	convs.On("FindByPair", mock.Anything, 1, 2).Return(conv, nil).Twice()
	// First call flips rows, the repeat finds nothing left to flip.
	msgs.On("MarkSeen", mock.Anything, 5, 2).Return(int64(2), nil).Once()
	msgs.On("MarkSeen", mock.Anything, 5, 2).Return(int64(0), nil).Once()

	row := sidebarRow(5, 1, 2, time.Now())
	for i := 0; i < 2; i++ {
		expectSidebar(convs, users, 1, []models.SidebarRow{row}, []int{2}, []models.User{{ID: 2}})
		expectSidebar(convs, users, 2, []models.SidebarRow{row}, []int{1}, []models.User{{ID: 1}})
	}

	require.NoError(t, svc.MarkSeen(context.Background(), 1, 2))
	require.NoError(t, svc.MarkSeen(context.Background(), 1, 2))

	assert.Len(t, fanout.byEvent(models.EventConversation), 4)
	msgs.AssertExpectations(t)
}

func TestMessagePageWithoutConversationReturnsEmptyHistory(t *testing.T) {
	convs := new(mocks.ConversationRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	svc := NewService(convs, new(mocks.MessageRepositoryMock), users, staticPresence{2: true}, &fanoutRecorder{})

	users.On("GetUser", mock.Anything, 2).Return(models.User{ID: 2, Name: "bob"}, nil).Once()
	convs.On("FindByPair", mock.Anything, 1, 2).
		Return(models.Conversation{}, repositories.ErrConversationNotFound).Once()

	profile, history, err := svc.MessagePage(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, profile.Online)
	assert.Equal(t, "bob", profile.Name)
	require.NotNil(t, history)
	assert.Empty(t, history)
}

func TestMessagePageReturnsOrderedHistory(t *testing.T) {
	convs := new(mocks.ConversationRepositoryMock)
	msgs := new(mocks.MessageRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	svc := NewService(convs, msgs, users, staticPresence{}, &fanoutRecorder{})

	history := []models.Message{
		{ID: 1, ConversationID: 7, SenderID: 2, Text: "hey"},
		{ID: 2, ConversationID: 7, SenderID: 1, Text: "hello"},
	}
	users.On("GetUser", mock.Anything, 2).Return(models.User{ID: 2}, nil).Once()
	convs.On("FindByPair", mock.Anything, 1, 2).
		Return(models.Conversation{ID: 7, UserLowID: 1, UserHighID: 2}, nil).Once()
	msgs.On("ListByConversation", mock.Anything, 7).Return(history, nil).Once()

	profile, got, err := svc.MessagePage(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.False(t, profile.Online)
	assert.Equal(t, history, got)
}

func TestSidebarAssemblesSummaries(t *testing.T) {
	convs := new(mocks.ConversationRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	svc := NewService(convs, new(mocks.MessageRepositoryMock), users, staticPresence{2: true}, &fanoutRecorder{})

	now := time.Now()
	rows := []models.SidebarRow{
		{
			ID: 10, UserLowID: 1, UserHighID: 2, UpdatedAt: now, UnseenCount: 3,
			LastMessageID: sql.NullInt64{Int64: 99, Valid: true},
			LastSenderID:  sql.NullInt64{Int64: 2, Valid: true},
			LastText:      sql.NullString{String: "latest", Valid: true},
			LastSeen:      sql.NullBool{Bool: false, Valid: true},
			LastCreatedAt: sql.NullTime{Time: now, Valid: true},
		},
		sidebarRow(11, 1, 3, now.Add(-time.Hour)),
	}
	convs.On("ListSidebar", mock.Anything, 1).Return(rows, nil).Once()
	users.On("BulkUsers", mock.Anything, []int{2, 3}).
		Return([]models.User{{ID: 2, Name: "bob"}, {ID: 3, Name: "carol"}}, nil).Once()

	summaries, err := svc.Sidebar(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, 10, summaries[0].ConversationID)
	assert.Equal(t, "bob", summaries[0].User.Name)
	assert.True(t, summaries[0].User.Online)
	assert.Equal(t, 3, summaries[0].UnseenCount)
	require.NotNil(t, summaries[0].LastMessage)
	assert.Equal(t, "latest", summaries[0].LastMessage.Text)
	assert.Equal(t, 2, summaries[0].LastMessage.SenderID)

	assert.Equal(t, 11, summaries[1].ConversationID)
	assert.Equal(t, "carol", summaries[1].User.Name)
	assert.False(t, summaries[1].User.Online)
	assert.Nil(t, summaries[1].LastMessage, "conversation without messages has no last message")
}
