package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/ems-portal/internal/lib/sl"
	"github.com/magabrotheeeer/ems-portal/internal/models"
)

const channelPrefix = "auth:session:"

// Event — тип изменения сессии.
type Event string

const (
	EventSignedIn       Event = "signed_in"
	EventSignedOut      Event = "signed_out"
	EventTokenRefreshed Event = "token_refreshed"
)

// Notification — сообщение, публикуемое в канал сессии.
// Principal == nil означает, что сессии больше нет.
type Notification struct {
	Event     Event             `json:"event"`
	Principal *models.Principal `json:"principal"`
}

// Hub рассылает уведомления об изменении сессий локальным подписчикам.
// Один PSUBSCRIBE на процесс, сообщения доставляются подписчикам
// последовательно в порядке получения из redis.
type Hub struct {
	client *redis.Client
	log    *slog.Logger

	mu     sync.Mutex
	nextID uint64
	subs   map[string]map[uint64]func(*models.Principal)

	pubsub *redis.PubSub
	done   chan struct{}
}

// NewHub создаёт хаб поверх клиента redis.
func NewHub(client *redis.Client, log *slog.Logger) *Hub {
	return &Hub{
		client: client,
		log:    log,
		subs:   make(map[string]map[uint64]func(*models.Principal)),
	}
}

// Start подписывается на каналы сессий и запускает цикл доставки.
// Возвращается после подтверждения подписки сервером.
func (h *Hub) Start(ctx context.Context) error {
	const op = "cache.Hub.Start"
	pubsub := h.client.PSubscribe(ctx, channelPrefix+"*")
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("%s: %w", op, err)
	}
	h.pubsub = pubsub
	h.done = make(chan struct{})
	go h.loop(pubsub.Channel())
	return nil
}

func (h *Hub) loop(ch <-chan *redis.Message) {
	defer close(h.done)
	for msg := range ch {
		sid := strings.TrimPrefix(msg.Channel, channelPrefix)
		var n Notification
		if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
			h.log.Warn("malformed session notification", sl.Session(sid), sl.Err(err))
			continue
		}
		for _, fn := range h.listeners(sid) {
			fn(n.Principal)
		}
	}
}

func (h *Hub) listeners(sid string) []func(*models.Principal) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fns := make([]func(*models.Principal), 0, len(h.subs[sid]))
	for _, fn := range h.subs[sid] {
		fns = append(fns, fn)
	}
	return fns
}

// Subscribe регистрирует fn для уведомлений сессии sid.
// Возвращённая функция снимает подписку и безопасна для повторного вызова.
func (h *Hub) Subscribe(sid string, fn func(*models.Principal)) func() {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.subs[sid] == nil {
		h.subs[sid] = make(map[uint64]func(*models.Principal))
	}
	h.subs[sid][id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[sid], id)
			if len(h.subs[sid]) == 0 {
				delete(h.subs, sid)
			}
		})
	}
}

// Publish отправляет уведомление в канал сессии sid.
func (h *Hub) Publish(ctx context.Context, sid string, event Event, p *models.Principal) error {
	const op = "cache.Hub.Publish"
	payload, err := json.Marshal(Notification{Event: event, Principal: p})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := h.client.Publish(ctx, channelPrefix+sid, payload).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Deliver передаёт p подписчикам сессии sid этого процесса, минуя redis.
func (h *Hub) Deliver(sid string, p *models.Principal) {
	for _, fn := range h.listeners(sid) {
		fn(p)
	}
}

// Close останавливает цикл доставки.
func (h *Hub) Close() error {
	if h.pubsub == nil {
		return nil
	}
	err := h.pubsub.Close()
	<-h.done
	return err
}
