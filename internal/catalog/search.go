package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/models"
)

// Index mirrors products into Elasticsearch for the admin text filter.
type Index struct {
	ES    *elasticsearch.Client
	Index string
}

func NewESClient(url, user, password string) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Username:  user,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		slog.Error("elasticsearch_info_error", "status", res.StatusCode, "body", string(body))
		return nil, fmt.Errorf("elasticsearch error: %s", res.Status())
	}
	return client, nil
}

type productDoc struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Slug         string  `json:"slug"`
	CategorySlug string  `json:"category_slug,omitempty"`
	Status       string  `json:"status"`
	Price        float64 `json:"price"`
}

func (i *Index) IndexProduct(ctx context.Context, p *models.Product) error {
	doc := productDoc{
		ID:     p.ID.String(),
		Name:   p.Name,
		Slug:   p.Slug,
		Status: p.Status,
		Price:  p.Price,
	}
	if p.CategorySlug != nil {
		doc.CategorySlug = *p.CategorySlug
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(doc); err != nil {
		return err
	}

	res, err := i.ES.Index(
		i.Index,
		&buf,
		i.ES.Index.WithContext(ctx),
		i.ES.Index.WithDocumentID(doc.ID),
	)
	if err != nil {
		return fmt.Errorf("index product: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index product: %s", res.Status())
	}
	return nil
}

func (i *Index) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	res, err := i.ES.Delete(i.Index, id.String(), i.ES.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete product: %s", res.Status())
	}
	return nil
}

// SearchIDs returns the ids of products whose name or slug match query.
// Matches are not ranked beyond what the caller orders by.
func (i *Index) SearchIDs(ctx context.Context, query string, limit int) ([]uuid.UUID, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     strings.TrimSpace(query),
				"fields":    []string{"name", "slug"},
				"fuzziness": "AUTO",
			},
		},
		"_source": []string{"id"},
		"size":    limit,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	res, err := i.ES.Search(
		i.ES.Search.WithContext(ctx),
		i.ES.Search.WithIndex(i.Index),
		i.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search products: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source productDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		if id, err := uuid.Parse(h.Source.ID); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
