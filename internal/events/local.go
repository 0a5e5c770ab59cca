package events

import (
	"context"
	"errors"
	"log"
	"sync"
)

var (
	ErrBusClosed = errors.New("bus d'événements fermé")
	ErrBusFull   = errors.New("bus d'événements saturé")
)

// LocalBus est un bus en processus : un canal tamponné et un consommateur.
// Publish ne bloque jamais la requête HTTP qui l'appelle.
type LocalBus struct {
	mu     sync.RWMutex
	closed bool
	ch     chan Envelope
}

func NewLocalBus(buffer int) *LocalBus {
	if buffer <= 0 {
		buffer = 256
	}
	return &LocalBus{ch: make(chan Envelope, buffer)}
}

func (b *LocalBus) Publish(_ context.Context, e Envelope) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}
	select {
	case b.ch <- e:
		return nil
	default:
		return ErrBusFull
	}
}

// Run consomme jusqu'à l'annulation du contexte ou la fermeture du bus.
// Après Close, les événements déjà en file sont encore livrés.
func (b *LocalBus) Run(ctx context.Context, h Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-b.ch:
			if !ok {
				return
			}
			if err := h(ctx, e); err != nil {
				log.Printf("⚠️ Événement %s (%s) abandonné: %v", e.Type, e.EventID, err)
			}
		}
	}
}

func (b *LocalBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.ch)
	}
}
