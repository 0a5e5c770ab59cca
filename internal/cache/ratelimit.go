package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter compte les requêtes par clé sur une fenêtre fixe.
type Counter struct {
	rdb redis.Cmdable
}

func NewCounter(rdb redis.Cmdable) *Counter {
	return &Counter{rdb: rdb}
}

// Incr incrémente la clé et renvoie la valeur atteinte. L'expiration n'est posée
// qu'au premier passage pour que la fenêtre ne glisse pas.
func (c *Counter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
