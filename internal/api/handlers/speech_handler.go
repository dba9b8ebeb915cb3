package handlers

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smartshopai/smartshop/internal/providers/stt"
	"github.com/smartshopai/smartshop/internal/utils"
)

// SpeechHandler transcribes voice-search recordings for clients whose
// browser has no speech recognition of its own.
type SpeechHandler struct {
	stt stt.Provider
}

func NewSpeechHandler(p stt.Provider) *SpeechHandler {
	return &SpeechHandler{stt: p}
}

type TranscribeRequest struct {
	AudioBase64 string `json:"audio_base64" binding:"required"`
	Language    string `json:"language"` // ex: "en-US"
}

type TranscribeResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

func (h *SpeechHandler) Transcribe(c *gin.Context) {
	const op = "SpeechHandler.Transcribe"

	if _, ok := requireUserID(c); !ok {
		return
	}

	if h.stt == nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "speech transcription is not configured", nil))
		return
	}

	var req TranscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}

	audio, err := base64.StdEncoding.DecodeString(req.AudioBase64)
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid audio_base64", err))
		return
	}

	text, conf, err := h.stt.Transcribe(c.Request.Context(), audio, req.Language)
	if err != nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "transcription failed", err))
		return
	}

	c.JSON(http.StatusOK, TranscribeResponse{Text: text, Confidence: conf})
}
