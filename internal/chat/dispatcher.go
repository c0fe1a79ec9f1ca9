package chat

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	ws "github.com/thereayou/chatline/internal/websocket"
)

// Registry реестр живых соединений. Возвращаемое значение: сколько
// соединений приняло сообщение в очередь.
type Registry interface {
	SendToRoom(roomID uuid.UUID, payload []byte) int
	SendToUser(userID uuid.UUID, payload []byte) int
}

// DispatchReport итог одной рассылки. Чисто информационный: недоставка
// никогда не считается ошибкой.
type DispatchReport struct {
	BroadcastTargets int
	AlarmsDelivered  int
	AlarmsDropped    int
}

// Dispatcher разносит набор доставок по живым соединениям. Всё best-effort:
// мертвое или переполненное соединение пропускается молча, получатель без
// единого соединения просто не получает уведомление.
type Dispatcher struct {
	registry Registry
}

func NewDispatcher(registry Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Dispatch сначала рассылает сообщение подписчикам комнаты, затем
// уведомления получателям. Никогда не возвращает ошибку вызывающему:
// исход для отправителя определяется только записью, не доставкой.
func (d *Dispatcher) Dispatch(ds *DeliverySet) DispatchReport {
	var report DispatchReport

	roomID := ds.Message.RoomID

	broadcast, err := marshalEnvelope(ws.TypeMessage, &roomID, ds.Message.UserID, ds.Broadcast)
	if err != nil {
		log.Printf("Failed to marshal broadcast for room %s: %v", roomID, err)
	} else {
		report.BroadcastTargets = d.registry.SendToRoom(roomID, broadcast)
	}

	for _, alarm := range ds.Alarms {
		payload, err := marshalEnvelope(ws.TypeAlarm, &alarm.RoomID, ds.Message.UserID, alarm)
		if err != nil {
			log.Printf("Failed to marshal alarm for %s: %v", alarm.Receiver, err)
			report.AlarmsDropped++
			continue
		}

		if n := d.registry.SendToUser(alarm.Receiver, payload); n > 0 {
			report.AlarmsDelivered++
		} else {
			// Получатель офлайн: уведомление отбрасывается без очереди
			report.AlarmsDropped++
		}
	}

	return report
}

// RelayTyping транслирует эфемерное событие набора текста подписчикам
// комнаты. Не сохраняется, не упорядочивается, теряется под нагрузкой.
func (d *Dispatcher) RelayTyping(roomID, sender uuid.UUID, data json.RawMessage) {
	payload, err := marshalEnvelope(ws.TypeTyping, &roomID, sender, data)
	if err != nil {
		log.Printf("Failed to marshal typing event for room %s: %v", roomID, err)
		return
	}

	d.registry.SendToRoom(roomID, payload)
}

func marshalEnvelope(msgType ws.MessageType, roomID *uuid.UUID, userID uuid.UUID, data interface{}) ([]byte, error) {
	msg := ws.Message{
		Type:      msgType,
		RoomID:    roomID,
		UserID:    userID,
		Timestamp: time.Now(),
	}

	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		msg.Data = jsonData
	}

	return json.Marshal(msg)
}
