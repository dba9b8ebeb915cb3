package handlers

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/smartshopai/smartshop/internal/storage"
	"github.com/smartshopai/smartshop/internal/utils"
)

const maxUploadBytes = 8 << 20

// MediaHandler stores try-on photos so the storefront can show them in
// the AR preview.
type MediaHandler struct {
	uploader storage.Uploader
}

func NewMediaHandler(u storage.Uploader) *MediaHandler {
	return &MediaHandler{uploader: u}
}

type UploadResponse struct {
	URL string `json:"url"`
}

func (h *MediaHandler) UploadTryOn(c *gin.Context) {
	const op = "MediaHandler.UploadTryOn"

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	if h.uploader == nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "media storage is not configured", nil))
		return
	}

	file, header, err := c.Request.FormFile("photo")
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "photo file required", err))
		return
	}
	defer file.Close()

	if header.Size > maxUploadBytes {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "photo too large", nil))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	objectName := "tryon/" + userID + "/" + uuid.NewString() + path.Ext(header.Filename)
	url, err := h.uploader.Upload(c.Request.Context(), objectName, contentType, file)
	if err != nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "upload failed", err))
		return
	}

	c.JSON(http.StatusOK, UploadResponse{URL: url})
}
