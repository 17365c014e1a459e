package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Sabit205/chat-app-serve/internal/models"
)

type sidebarServiceMock struct {
	mock.Mock
}

func (m *sidebarServiceMock) Sidebar(ctx context.Context, userID int) ([]models.ConversationSummary, error) {
	args := m.Called(ctx, userID)
	var summaries []models.ConversationSummary
	if val := args.Get(0); val != nil {
		summaries = val.([]models.ConversationSummary)
	}
	return summaries, args.Error(1)
}

func setupConversationRouter(chat SidebarService, userID int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	})
	handler := NewConversationHandler(chat)
	router.GET("/conversations", handler.ListConversations)
	return router
}

func TestListConversationsSuccess(t *testing.T) {
	chat := new(sidebarServiceMock)
	chat.On("Sidebar", mock.Anything, 7).Return([]models.ConversationSummary{
		{
			ConversationID: 3,
			User:           models.UserPresence{ID: 2, Name: "bob", Online: true},
			UnseenCount:    4,
			UpdatedAt:      time.Now(),
		},
	}, nil).Once()

	router := setupConversationRouter(chat, 7)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Conversations []models.ConversationSummary `json:"conversations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Conversations, 1)
	assert.Equal(t, 3, body.Conversations[0].ConversationID)
	assert.Equal(t, "bob", body.Conversations[0].User.Name)
	assert.Equal(t, 4, body.Conversations[0].UnseenCount)
	chat.AssertExpectations(t)
}

func TestListConversationsEmpty(t *testing.T) {
	chat := new(sidebarServiceMock)
	chat.On("Sidebar", mock.Anything, 7).Return([]models.ConversationSummary{}, nil).Once()

	router := setupConversationRouter(chat, 7)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/conversations", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"conversations":[]}`, rec.Body.String())
}

func TestListConversationsStoreError(t *testing.T) {
	chat := new(sidebarServiceMock)
	chat.On("Sidebar", mock.Anything, 7).Return(nil, assert.AnError).Once()

	router := setupConversationRouter(chat, 7)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/conversations", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed to load conversations")
}
