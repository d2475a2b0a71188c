package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/settlelinecompany-commits/ai-leasing-agent/internal/model"
	"github.com/settlelinecompany-commits/ai-leasing-agent/internal/service"
)

// ChatRequest is one turn from the caller. State is the conversation state
// returned by the previous turn, or null for a first message.
type ChatRequest struct {
	Message string                   `json:"message" binding:"required"`
	State   *model.ConversationState `json:"state"`
}

// ChatResponse carries the agent's reply and the advanced state the caller
// must send back on the next turn.
type ChatResponse struct {
	Response string                   `json:"response"`
	State    *model.ConversationState `json:"state"`
}

// ChatHandler handles conversational HTTP requests
type ChatHandler struct {
	conversation *service.ConversationService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(conversation *service.ConversationService) *ChatHandler {
	return &ChatHandler{conversation: conversation}
}

// Chat handles POST /api/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	reply, state := h.conversation.HandleTurn(c.Request.Context(), req.State, req.Message)
	c.JSON(http.StatusOK, ChatResponse{Response: reply, State: state})
}
