// Package cache met le catalogue en cache dans Redis et fournit les compteurs
// à fenêtre fixe utilisés par la limitation de débit.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"tienda_perfumes/internal/models"
	"tienda_perfumes/internal/repository"
)

const PerfumeCacheTTL = 10 * time.Minute

// kv est le sous-ensemble de redis.Cmdable dont le cache a besoin.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Catalog est un cache lecture seule devant le catalogue : seul GetPerfume est
// servi depuis Redis. GetPerfumes lit toujours la base car le checkout a besoin
// du stock réel. Toute écriture invalide la fiche concernée.
type Catalog struct {
	repository.CatalogRepository
	rdb kv
	ttl time.Duration
}

func NewCatalog(inner repository.CatalogRepository, rdb kv) *Catalog {
	return &Catalog{CatalogRepository: inner, rdb: rdb, ttl: PerfumeCacheTTL}
}

func perfumeKey(id string) string { return "perfume:" + id }

func (c *Catalog) GetPerfume(ctx context.Context, id string) (*models.Perfume, error) {
	data, err := c.rdb.Get(ctx, perfumeKey(id)).Result()
	if err == nil {
		var p models.Perfume
		if json.Unmarshal([]byte(data), &p) == nil {
			return &p, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		log.Printf("⚠️ Cache Redis indisponible: %v", err)
	}

	p, err := c.CatalogRepository.GetPerfume(ctx, id)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(p); err == nil {
		if err := c.rdb.Set(ctx, perfumeKey(id), raw, c.ttl).Err(); err != nil {
			log.Printf("⚠️ Mise en cache de %s échouée: %v", id, err)
		}
	}
	return p, nil
}

func (c *Catalog) invalidate(ctx context.Context, id string) {
	if err := c.rdb.Del(context.WithoutCancel(ctx), perfumeKey(id)).Err(); err != nil {
		log.Printf("⚠️ Invalidation cache %s échouée: %v", id, err)
	}
}

func (c *Catalog) CreatePerfume(ctx context.Context, p *models.Perfume) error {
	if err := c.CatalogRepository.CreatePerfume(ctx, p); err != nil {
		return err
	}
	c.invalidate(ctx, p.ID)
	return nil
}

func (c *Catalog) AddImageURL(ctx context.Context, id, url string) error {
	if err := c.CatalogRepository.AddImageURL(ctx, id, url); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

func (c *Catalog) DecrementStock(ctx context.Context, id string, qty int) (int, error) {
	left, err := c.CatalogRepository.DecrementStock(ctx, id, qty)
	if err == nil {
		c.invalidate(ctx, id)
	}
	return left, err
}

func (c *Catalog) IncrementStock(ctx context.Context, id string, qty int) (int, error) {
	left, err := c.CatalogRepository.IncrementStock(ctx, id, qty)
	if err == nil {
		c.invalidate(ctx, id)
	}
	return left, err
}
