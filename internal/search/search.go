// Package search indexe les parfums dans Elasticsearch et y exécute la recherche
// plein texte du catalogue.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"tienda_perfumes/internal/models"
)

var ErrUnavailable = errors.New("client Elasticsearch non initialisé")

// Engine est ce dont les handlers ont besoin pour le catalogue.
type Engine interface {
	IndexPerfume(ctx context.Context, p models.Perfume) error
	SearchPerfumes(ctx context.Context, query string, limit int) ([]string, error)
}

// document est la projection indexée d'un parfum.
type document struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Brand       string `json:"brand"`
	Category    string `json:"category"`
	Price       string `json:"price"`
	InStock     bool   `json:"inStock"`
}

type Elastic struct {
	client *elasticsearch.Client
	index  string
}

func NewElastic(client *elasticsearch.Client, index string) *Elastic {
	return &Elastic{client: client, index: index}
}

func (e *Elastic) IndexPerfume(ctx context.Context, p models.Perfume) error {
	if e.client == nil {
		return ErrUnavailable
	}

	data, err := json.Marshal(document{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Brand:       p.Brand,
		Category:    p.Category,
		Price:       p.Price.StringFixed(2),
		InStock:     p.Stock > 0,
	})
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      e.index,
		DocumentID: p.ID,
		Body:       bytes.NewReader(data),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("erreur envoi Elastic: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elastic a renvoyé une erreur pour %s: %s", p.Name, res.String())
	}
	log.Printf("✅ Parfum indexé dans Elasticsearch: %s", p.Name)
	return nil
}

// SearchPerfumes renvoie les identifiants des parfums correspondants, par pertinence.
func (e *Elastic) SearchPerfumes(ctx context.Context, query string, limit int) ([]string, error) {
	if e.client == nil {
		return nil, ErrUnavailable
	}
	if limit <= 0 {
		limit = 20
	}

	body, err := buildQuery(query, limit)
	if err != nil {
		return nil, err
	}
	req := esapi.SearchRequest{
		Index: []string{e.index},
		Body:  body,
	}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return nil, fmt.Errorf("erreur requête Elastic: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elastic: %s", res.String())
	}
	return parseHits(res.Body)
}

func buildQuery(query string, limit int) (io.Reader, error) {
	var buf bytes.Buffer
	q := map[string]any{
		"size": limit,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"name^3", "brand^2", "category", "description"},
				"fuzziness": "AUTO",
			},
		},
		"_source": []string{"id"},
	}
	if err := json.NewEncoder(&buf).Encode(q); err != nil {
		return nil, fmt.Errorf("erreur encodage requête: %w", err)
	}
	return &buf, nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

func parseHits(r io.Reader) ([]string, error) {
	var resp searchResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("erreur décodage JSON: %w", err)
	}
	ids := make([]string, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}
