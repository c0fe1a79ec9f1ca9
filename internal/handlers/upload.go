package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thereayou/chatline/internal/attachments"
	"github.com/thereayou/chatline/internal/chat"
	"github.com/thereayou/chatline/internal/database"
	"github.com/thereayou/chatline/internal/middleware"
)

// Максимальный размер вложения
const maxUploadBytes = 10 << 20 // 10MB

// UploadHandler принимает файл, сохраняет его во внешнем хранилище и
// отправляет в комнату сообщение со ссылкой. Сохранение строго до
// конвейера: файл без сообщения допустим, сообщение с битой ссылкой — нет.
type UploadHandler struct {
	db         *database.Database
	store      *attachments.Store
	pipeline   *chat.Pipeline
	dispatcher *chat.Dispatcher
}

func NewUploadHandler(db *database.Database, store *attachments.Store, pipeline *chat.Pipeline, dispatcher *chat.Dispatcher) *UploadHandler {
	return &UploadHandler{db: db, store: store, pipeline: pipeline, dispatcher: dispatcher}
}

// Upload обрабатывает multipart-загрузку в комнату
func (h *UploadHandler) Upload(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file is too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read file"})
		return
	}

	kind, ref, err := h.store.Link(data)
	if err != nil {
		switch {
		case errors.Is(err, attachments.ErrUnsupportedType):
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "unsupported file type"})
		case errors.Is(err, attachments.ErrEmptyFile):
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is empty"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store file"})
		}
		return
	}

	user, err := h.db.GetUser(userID.String())
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		return
	}

	message, deliveries, err := h.pipeline.Submit(c.Request.Context(), chat.Inbound{
		RoomID:       roomID,
		Sender:       userID,
		SenderName:   user.Username,
		Content:      ref,
		Kind:         kind,
		SenderAvatar: user.AvatarURL,
	})
	if err != nil {
		writePipelineError(c, err)
		return
	}

	h.dispatcher.Dispatch(deliveries)

	c.JSON(http.StatusCreated, formatMessageResponse(message))
}
