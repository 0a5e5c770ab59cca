package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

const headerEventType = "event-type"

// KafkaPublisher écrit les enveloppes sur un topic, clé = id de commande pour
// garder l'ordre des événements d'une même commande dans une partition.
type KafkaPublisher struct {
	w     *kafka.Writer
	inbox chan kafka.Message
	done  chan struct{}
}

func NewKafkaPublisher(brokers []string, topic string, buffer int) *KafkaPublisher {
	if buffer <= 0 {
		buffer = 1024
	}
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        true,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					log.Printf("❌ Kafka: %d message(s) non écrits: %v", len(messages), err)
				}
			},
		},
		inbox: make(chan kafka.Message, buffer),
		done:  make(chan struct{}),
	}
}

// Start lance la goroutine d'écriture. À l'annulation du contexte, la file est vidée
// puis le writer fermé.
func (p *KafkaPublisher) Start(ctx context.Context) {
	go func() {
		defer close(p.done)
		defer p.w.Close()
		for {
			select {
			case <-ctx.Done():
				for {
					select {
					case m := <-p.inbox:
						p.write(m)
					default:
						return
					}
				}
			case m := <-p.inbox:
				p.write(m)
			}
		}
	}()
}

func (p *KafkaPublisher) write(m kafka.Message) {
	if err := p.w.WriteMessages(context.Background(), m); err != nil {
		log.Printf("❌ Kafka write: %v", err)
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Envelope) error {
	m, err := toMessage(e)
	if err != nil {
		return err
	}
	select {
	case p.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrBusFull
	}
}

// Wait attend la fin de la goroutine d'écriture.
func (p *KafkaPublisher) Wait() { <-p.done }

func toMessage(e Envelope) (kafka.Message, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encodage enveloppe: %w", err)
	}
	return kafka.Message{
		Key:     []byte(e.OrderID),
		Value:   b,
		Time:    e.OccurredAt,
		Headers: []kafka.Header{{Key: headerEventType, Value: []byte(e.Type)}},
	}, nil
}

func fromMessage(m kafka.Message) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(m.Value, &e); err != nil {
		return e, fmt.Errorf("décodage enveloppe: %w", err)
	}
	return e, nil
}

// KafkaConsumer lit le topic au sein d'un consumer group et répartit les
// messages sur un pool de workers. L'offset est commité après traitement,
// même quand le handler a échoué : le message est alors abandonné.
type KafkaConsumer struct {
	r       *kafka.Reader
	workers int
}

func NewKafkaConsumer(brokers []string, group, topic string, workers int) *KafkaConsumer {
	if workers <= 0 {
		workers = 1
	}
	return &KafkaConsumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        brokers,
			GroupID:        group,
			Topic:          topic,
			MinBytes:       1,
			MaxBytes:       10e6,
			CommitInterval: 0,
		}),
		workers: workers,
	}
}

func (c *KafkaConsumer) Run(ctx context.Context, h Handler) error {
	defer c.r.Close()

	pool := newKeyedPool(c.workers, func(m kafka.Message) { c.handle(ctx, m, h) })
	// Les workers finissent leurs messages (et leurs commits) avant la fermeture du reader.
	defer pool.wait()

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("❌ Kafka fetch: %v", err)
			time.Sleep(200 * time.Millisecond)
			continue
		}
		if !pool.submit(ctx, m) {
			return nil
		}
	}
}

// keyedPool envoie tous les messages d'une même clé au même worker : les
// événements d'une commande sont traités dans l'ordre du topic.
type keyedPool struct {
	queues   []chan kafka.Message
	workers  []int
	balancer *kafka.Hash
	wg       sync.WaitGroup
}

func newKeyedPool(n int, fn func(kafka.Message)) *keyedPool {
	if n <= 0 {
		n = 1
	}
	p := &keyedPool{
		queues:   make([]chan kafka.Message, n),
		workers:  make([]int, n),
		balancer: &kafka.Hash{},
	}
	for i := range p.queues {
		p.workers[i] = i
		p.queues[i] = make(chan kafka.Message, 64)
		p.wg.Add(1)
		go func(q <-chan kafka.Message) {
			defer p.wg.Done()
			for m := range q {
				fn(m)
			}
		}(p.queues[i])
	}
	return p
}

func (p *keyedPool) worker(m kafka.Message) int {
	return p.balancer.Balance(m, p.workers...)
}

// submit renvoie false si le contexte est annulé avant que le message soit pris.
func (p *keyedPool) submit(ctx context.Context, m kafka.Message) bool {
	select {
	case p.queues[p.worker(m)] <- m:
		return true
	case <-ctx.Done():
		return false
	}
}

// wait ferme les files puis attend que chaque worker ait vidé la sienne.
func (p *keyedPool) wait() {
	for _, q := range p.queues {
		close(q)
	}
	p.wg.Wait()
}

func (c *KafkaConsumer) handle(ctx context.Context, m kafka.Message, h Handler) {
	e, err := fromMessage(m)
	if err != nil {
		log.Printf("⚠️ Message Kafka illisible (offset %d): %v", m.Offset, err)
	} else if err := h(ctx, e); err != nil {
		log.Printf("⚠️ Événement %s (%s) abandonné: %v", e.Type, e.EventID, err)
	}
	// L'arrêt du consommateur ne doit pas perdre le commit d'un message déjà traité.
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := c.r.CommitMessages(commitCtx, m); err != nil {
		log.Printf("❌ Kafka commit offset %d: %v", m.Offset, err)
	}
}
