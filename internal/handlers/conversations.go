package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Sabit205/chat-app-serve/internal/models"
)

// SidebarService is the read surface the REST handler needs.
type SidebarService interface {
	Sidebar(ctx context.Context, userID int) ([]models.ConversationSummary, error)
}

// ConversationHandler serves the REST mirror of the sidebar query, used
// by clients bootstrapping before their websocket is up.
type ConversationHandler struct {
	chat SidebarService
}

// NewConversationHandler builds a ConversationHandler.
func NewConversationHandler(chat SidebarService) *ConversationHandler {
	return &ConversationHandler{chat: chat}
}

// ListConversations returns the caller's conversation summaries, most
// recently updated first.
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	userID := c.GetInt("userID")

	summaries, err := h.chat.Sidebar(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": summaries})
}
