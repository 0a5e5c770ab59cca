package notification

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"

	"tienda_perfumes/internal/models"
)

// Subscriber alimente les connexions WebSocket d'un utilisateur.
// La fonction renvoyée libère l'abonnement.
type Subscriber interface {
	Subscribe(ctx context.Context, userID string) (<-chan []byte, func())
}

func channelFor(userID string) string { return "notifications:" + userID }

// Hub diffuse en mémoire, pour une instance unique du serveur.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan []byte]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan []byte]struct{})}
}

func (h *Hub) Push(_ context.Context, n models.Notification) error {
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[n.UserID] {
		select {
		case ch <- b:
		default:
			// client trop lent, message perdu
		}
	}
	return nil
}

func (h *Hub) Subscribe(_ context.Context, userID string) (<-chan []byte, func()) {
	ch := make(chan []byte, 16)
	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[chan []byte]struct{})
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[userID], ch)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// RedisPusher passe par le pub/sub Redis pour joindre l'utilisateur quelle que
// soit l'instance qui porte sa connexion WebSocket.
type RedisPusher struct {
	client *redis.Client
}

func NewRedisPusher(client *redis.Client) *RedisPusher {
	return &RedisPusher{client: client}
}

func (r *RedisPusher) Push(ctx context.Context, n models.Notification) error {
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, channelFor(n.UserID), b).Err()
}

func (r *RedisPusher) Subscribe(ctx context.Context, userID string) (<-chan []byte, func()) {
	ps := r.client.Subscribe(ctx, channelFor(userID))
	out := make(chan []byte, 16)
	stop := make(chan struct{})

	go func() {
		defer close(out)
		ch := ps.Channel()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				default:
				}
			}
		}
	}()

	var once sync.Once
	return out, func() {
		once.Do(func() {
			close(stop)
			_ = ps.Close()
		})
	}
}
