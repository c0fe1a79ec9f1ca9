package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thereayou/chatline/internal/chat"
	"github.com/thereayou/chatline/internal/database"
	"github.com/thereayou/chatline/internal/handlers/dto"
	"github.com/thereayou/chatline/internal/middleware"
	"github.com/thereayou/chatline/internal/models"
	"github.com/thereayou/chatline/internal/rooms"
)

type HTTPMessageHandler struct {
	db         *database.Database
	pipeline   *chat.Pipeline
	dispatcher *chat.Dispatcher
}

func NewHTTPMessageHandler(db *database.Database, pipeline *chat.Pipeline, dispatcher *chat.Dispatcher) *HTTPMessageHandler {
	return &HTTPMessageHandler{db: db, pipeline: pipeline, dispatcher: dispatcher}
}

// GetRoomMessages получает историю сообщений комнаты. Порядок задает
// sequence, а не время прихода.
func (h *HTTPMessageHandler) GetRoomMessages(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)
	roomID := c.Param("id")

	// Проверяем доступ к комнате
	room, err := h.db.GetRoom(roomID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}

	if !isRoomMember(room, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "you are not a member of this room"})
		return
	}

	// Параметры пагинации
	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	var beforeSeq int64
	if before := c.Query("before"); before != "" {
		if parsed, err := strconv.ParseInt(before, 10, 64); err == nil && parsed > 0 {
			beforeSeq = parsed
		}
	}

	messages, err := h.db.GetRoomMessages(roomID, limit, beforeSeq)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get messages"})
		return
	}

	result := make([]dto.MessageResponse, len(messages))
	for i, msg := range messages {
		result[i] = formatMessageResponse(&msg)
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": result,
		"has_more": len(messages) == limit,
	})
}

// SendMessage отправляет сообщение через HTTP (альтернатива WebSocket).
// Проходит тот же конвейер и ту же рассылку, что и WebSocket-путь.
func (h *HTTPMessageHandler) SendMessage(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	var req dto.MessagePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	kind := req.Kind
	if kind == "" {
		kind = models.KindText
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
		Content:      req.Content,
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

// writePipelineError переводит ошибки конвейера в HTTP-статусы
func writePipelineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, rooms.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
	case errors.Is(err, chat.ErrNotAMember):
		c.JSON(http.StatusForbidden, gin.H{"error": "you are not a member of this room"})
	case errors.Is(err, chat.ErrPersistence):
		// Запись не удалась, ничего не разослано; клиент может повторить
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to save message, try again"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

// formatMessageResponse форматирует ответ для сообщения
func formatMessageResponse(msg *models.Message) dto.MessageResponse {
	resp := dto.MessageResponse{
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		UserID:    msg.UserID,
		Content:   msg.Content,
		Kind:      msg.Kind,
		Sequence:  msg.Sequence,
		CreatedAt: msg.CreatedAt,
	}

	// Если загружена информация о пользователе
	if msg.User.ID != uuid.Nil {
		resp.User = dto.UserInfo{
			ID:        msg.User.ID,
			Username:  msg.User.Username,
			AvatarURL: msg.User.AvatarURL,
		}
	} else {
		resp.User = dto.UserInfo{ID: msg.UserID, Username: msg.SenderName}
	}

	return resp
}
