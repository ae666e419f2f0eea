package http

import (
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/salon-chat/salon-server/internal/config"
	"github.com/salon-chat/salon-server/internal/core"
	"github.com/salon-chat/salon-server/internal/store"
)

// allowedImageTypes is the attachment allow-list, checked against sniffed
// content rather than the client-declared type.
var allowedImageTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/gif":  {},
	"image/webp": {},
}

// UploadHandlers serves the out-of-band attachment endpoint. An accepted
// upload becomes a USER_MESSAGE with attachment metadata and is forwarded
// through the hub to the uploader's current room.
type UploadHandlers struct {
	store store.Store
	hub   *core.Hub
	cfg   config.Config
	log   *zerolog.Logger
}

// NewUploadHandlers creates a new upload handlers instance.
func NewUploadHandlers(st store.Store, hub *core.Hub, cfg config.Config, logger *zerolog.Logger) *UploadHandlers {
	return &UploadHandlers{store: st, hub: hub, cfg: cfg, log: logger}
}

// UploadResponse acknowledges a stored attachment.
type UploadResponse struct {
	MessageID int64  `json:"messageId"`
	URL       string `json:"url"`
	FileType  string `json:"fileType"`
	FileSize  int64  `json:"fileSize"`
}

// Upload handles image attachment uploads.
// POST /api/upload
func (h *UploadHandlers) Upload(c *gin.Context) {
	userID, exists := c.Get(ContextKeyUserID)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	uid, ok := userID.(int64)
	if !ok {
		h.log.Error().Msg("invalid user_id type in context")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	entry, online := h.hub.CurrentPresence(uid)
	if !online || entry.Room == "" {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "no active room for this user"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "file is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.cfg.MaxUploadBytes+1))
	if err != nil {
		h.log.Error().Err(err).Msg("read upload")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if int64(len(data)) > h.cfg.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "file too large"})
		return
	}

	mt := mimetype.Detect(data)
	if _, allowed := allowedImageTypes[mt.String()]; !allowed {
		c.JSON(http.StatusUnsupportedMediaType, ErrorResponse{Error: "unsupported file type " + mt.String()})
		return
	}

	if err := os.MkdirAll(h.cfg.UploadDir, 0o755); err != nil {
		h.log.Error().Err(err).Msg("create upload dir")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	storedName := uuid.NewString() + mt.Extension()
	storedPath := filepath.Join(h.cfg.UploadDir, storedName)
	if err := os.WriteFile(storedPath, data, 0o644); err != nil {
		h.log.Error().Err(err).Str("path", storedPath).Msg("write upload")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	msg := &store.Message{
		UserID:   uid,
		Username: entry.Username,
		RoomID:   entry.RoomID,
		Content:  c.PostForm("text"),
		Type:     store.TypeUserMessage,
		Attachment: &store.Attachment{
			FilePath:     storedPath,
			FileType:     mt.String(),
			FileSize:     int64(len(data)),
			OriginalName: header.Filename,
		},
	}
	if err := h.store.SaveMessage(c.Request.Context(), msg); err != nil {
		h.log.Error().Err(err).Msg("save attachment message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.hub.PostAttachment(uid, msg)

	h.log.Info().Str("username", entry.Username).Str("room", entry.Room).Str("file", header.Filename).Int("size", len(data)).Msg("attachment uploaded")
	c.JSON(http.StatusCreated, UploadResponse{
		MessageID: msg.ID,
		URL:       "/uploads/" + storedName,
		FileType:  mt.String(),
		FileSize:  int64(len(data)),
	})
}
