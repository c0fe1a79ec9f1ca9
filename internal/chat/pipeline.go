package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/thereayou/chatline/internal/models"
)

// Длина превью содержимого в уведомлении
const previewRunes = 80

// MessageStore долговременное хранилище сообщений. Append назначает
// сообщению sequence атомарно в пределах комнаты.
type MessageStore interface {
	AppendMessage(ctx context.Context, message *models.Message) error
}

// MembershipResolver отдает актуальный состав комнаты
type MembershipResolver interface {
	MembersOf(ctx context.Context, roomID uuid.UUID) ([]uuid.UUID, error)
}

// Inbound входящее событие чата. Отправитель передается явно параметром,
// из уже проверенной аутентификации.
type Inbound struct {
	RoomID       uuid.UUID          `validate:"required"`
	Sender       uuid.UUID          `validate:"required"`
	SenderName   string             `validate:"required"`
	Content      string
	Kind         models.MessageKind `validate:"required"`
	SenderAvatar string
}

// Pipeline принимает входящее событие, проверяет его, сохраняет и строит
// набор исходящих доставок. Сам никуда не рассылает: доставка делегируется
// диспетчеру.
type Pipeline struct {
	store    MessageStore
	resolver MembershipResolver
	validate *validator.Validate
}

func NewPipeline(store MessageStore, resolver MembershipResolver) *Pipeline {
	return &Pipeline{
		store:    store,
		resolver: resolver,
		validate: validator.New(),
	}
}

// Submit проводит событие через валидацию, проверку членства и запись.
// При любой ошибке до записи побочных эффектов нет. Ошибка записи
// оборачивается в ErrPersistence; повтор остается на вызывающем.
func (p *Pipeline) Submit(ctx context.Context, in Inbound) (*models.Message, *DeliverySet, error) {
	if err := p.validate.Struct(in); err != nil {
		return nil, nil, err
	}

	switch in.Kind {
	case models.KindText:
		if strings.TrimSpace(in.Content) == "" {
			return nil, nil, ErrEmptyMessage
		}
	case models.KindImage, models.KindFile:
		if in.Content == "" {
			return nil, nil, ErrMissingAttachment
		}
	default:
		return nil, nil, ErrInvalidKind
	}

	members, err := p.resolver.MembersOf(ctx, in.RoomID)
	if err != nil {
		return nil, nil, err
	}

	if !lo.Contains(members, in.Sender) {
		return nil, nil, ErrNotAMember
	}

	message := &models.Message{
		RoomID:     in.RoomID,
		UserID:     in.Sender,
		SenderName: in.SenderName,
		Content:    in.Content,
		Kind:       in.Kind,
	}

	if err := p.store.AppendMessage(ctx, message); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return message, p.buildDeliverySet(message, in, members), nil
}

func (p *Pipeline) buildDeliverySet(message *models.Message, in Inbound, members []uuid.UUID) *DeliverySet {
	recipients := lo.Filter(members, func(id uuid.UUID, _ int) bool {
		return id != in.Sender
	})

	preview := contentPreview(in)

	alarms := lo.Map(recipients, func(id uuid.UUID, _ int) Alarm {
		return Alarm{
			Receiver:           id,
			SenderName:         in.SenderName,
			RoomID:             in.RoomID,
			Content:            preview,
			SenderProfileImage: in.SenderAvatar,
		}
	})

	return &DeliverySet{
		Message: message,
		Broadcast: BroadcastPayload{
			ID:        message.ID,
			RoomID:    message.RoomID,
			UserID:    message.UserID,
			Username:  message.SenderName,
			Content:   message.Content,
			Kind:      message.Kind,
			Sequence:  message.Sequence,
			CreatedAt: message.CreatedAt,
		},
		Alarms: alarms,
	}
}

// contentPreview строит короткое содержимое уведомления: текст обрезается,
// вложения заменяются пометкой вместо сырой ссылки
func contentPreview(in Inbound) string {
	switch in.Kind {
	case models.KindImage:
		return in.SenderName + " sent an image"
	case models.KindFile:
		return in.SenderName + " sent a file"
	}

	runes := []rune(in.Content)
	if len(runes) <= previewRunes {
		return in.Content
	}
	return string(runes[:previewRunes]) + "…"
}
