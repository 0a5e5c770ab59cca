package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"tienda_perfumes/internal/models"
)

// maxCASAttempts borne la boucle compare-and-set sur le stock.
const maxCASAttempts = 8

const perfumeColumns = `perfume_id, seller_id, name, description, brand, category, price, stock,
	low_stock_threshold, image_urls, is_active, created_at, updated_at`

type ScyllaCatalog struct {
	session *gocql.Session
}

func NewScyllaCatalog(session *gocql.Session) *ScyllaCatalog {
	return &ScyllaCatalog{session: session}
}

func (r *ScyllaCatalog) CreatePerfume(ctx context.Context, p *models.Perfume) error {
	applied, err := r.session.Query(`INSERT INTO perfumes (`+perfumeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) IF NOT EXISTS`,
		p.ID, p.SellerID, p.Name, p.Description, p.Brand, p.Category, p.Price.String(), p.Stock,
		p.LowStockThreshold, p.ImageURLs, p.IsActive, p.CreatedAt, p.UpdatedAt,
	).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return err
	}
	if !applied {
		return ErrDuplicate
	}
	return nil
}

// perfumeRow regroupe les destinations de scan d'une ligne perfumes.
type perfumeRow struct {
	p     models.Perfume
	price string
}

func (row *perfumeRow) dest() []interface{} {
	p := &row.p
	return []interface{}{&p.ID, &p.SellerID, &p.Name, &p.Description, &p.Brand, &p.Category, &row.price, &p.Stock,
		&p.LowStockThreshold, &p.ImageURLs, &p.IsActive, &p.CreatedAt, &p.UpdatedAt}
}

func (row *perfumeRow) perfume() (models.Perfume, error) {
	var a amounts
	p := row.p
	p.Price = a.parse("price", row.price)
	if a.err != nil {
		return models.Perfume{}, fmt.Errorf("parfum %s: %w", p.ID, a.err)
	}
	return p, nil
}

func (r *ScyllaCatalog) GetPerfume(ctx context.Context, id string) (*models.Perfume, error) {
	var row perfumeRow
	err := r.session.Query(`SELECT `+perfumeColumns+` FROM perfumes WHERE perfume_id = ?`, id).
		WithContext(ctx).Scan(row.dest()...)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p, err := row.perfume()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ScyllaCatalog) GetPerfumes(ctx context.Context, ids []string) (map[string]models.Perfume, error) {
	out := make(map[string]models.Perfume, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	iter := r.session.Query(`SELECT `+perfumeColumns+` FROM perfumes WHERE perfume_id IN ?`, ids).
		WithContext(ctx).Iter()
	var row perfumeRow
	for iter.Scan(row.dest()...) {
		p, err := row.perfume()
		if err != nil {
			_ = iter.Close()
			return nil, err
		}
		out[p.ID] = p
		row = perfumeRow{}
	}
	return out, iter.Close()
}

func (r *ScyllaCatalog) ListPerfumes(ctx context.Context, limit int) ([]models.Perfume, error) {
	if limit <= 0 {
		limit = 100
	}
	iter := r.session.Query(`SELECT `+perfumeColumns+` FROM perfumes LIMIT ?`, limit).WithContext(ctx).Iter()
	var out []models.Perfume
	var row perfumeRow
	for iter.Scan(row.dest()...) {
		p, err := row.perfume()
		if err != nil {
			_ = iter.Close()
			return nil, err
		}
		out = append(out, p)
		row = perfumeRow{}
	}
	return out, iter.Close()
}

func (r *ScyllaCatalog) AddImageURL(ctx context.Context, id, url string) error {
	if _, err := r.GetPerfume(ctx, id); err != nil {
		return err
	}
	return r.session.Query(`UPDATE perfumes SET image_urls = image_urls + ?, updated_at = ? WHERE perfume_id = ?`,
		[]string{url}, time.Now(), id).WithContext(ctx).Exec()
}

// DecrementStock utilise une transaction légère (LWT) : la mise à jour n'est
// appliquée que si le stock n'a pas bougé depuis la lecture.
func (r *ScyllaCatalog) DecrementStock(ctx context.Context, id string, qty int) (int, error) {
	return r.casStock(ctx, id, func(stock int) (int, error) {
		if stock < qty {
			return 0, &StockError{PerfumeID: id, Available: stock, Requested: qty}
		}
		return stock - qty, nil
	})
}

func (r *ScyllaCatalog) IncrementStock(ctx context.Context, id string, qty int) (int, error) {
	return r.casStock(ctx, id, func(stock int) (int, error) {
		return stock + qty, nil
	})
}

func (r *ScyllaCatalog) casStock(ctx context.Context, id string, next func(stock int) (int, error)) (int, error) {
	var stock int
	err := r.session.Query(`SELECT stock FROM perfumes WHERE perfume_id = ?`, id).WithContext(ctx).Scan(&stock)
	if errors.Is(err, gocql.ErrNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}

	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		newStock, err := next(stock)
		if err != nil {
			return stock, err
		}

		var current int
		applied, err := r.session.Query(`UPDATE perfumes SET stock = ?, updated_at = ? WHERE perfume_id = ? IF stock = ?`,
			newStock, time.Now(), id, stock).WithContext(ctx).ScanCAS(&current)
		if err != nil {
			return 0, err
		}
		if applied {
			return newStock, nil
		}
		// Un autre checkout est passé entre-temps : on repart de la valeur renvoyée par la LWT.
		stock = current
	}
	return 0, ErrConflict
}
