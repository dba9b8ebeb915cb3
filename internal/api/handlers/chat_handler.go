package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smartshopai/smartshop/internal/models"
	"github.com/smartshopai/smartshop/internal/services"
	"github.com/smartshopai/smartshop/internal/utils"
)

type ChatHandler struct {
	svc services.ChatService
}

func NewChatHandler(svc services.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type TranscriptResponse struct {
	Turns []models.ConversationTurn `json:"turns"`
}

func (h *ChatHandler) History(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	turns, err := h.svc.Transcript(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, TranscriptResponse{Turns: turns})
}

type SendMessageRequest struct {
	Text string `json:"text"`
	// ImageData is base64, with or without a data-URL prefix.
	ImageData string `json:"image_data"`
}

func (h *ChatHandler) Send(c *gin.Context) {
	const op = "ChatHandler.Send"

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}

	turn, err := h.svc.Submit(c.Request.Context(), userID, req.Text, req.ImageData)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, turn)
}
