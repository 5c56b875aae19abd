// Package admin is the back office: product, category and user management
// and the store health counters.
package admin

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/catalog"
	"github.com/Skotchmaster/storefront/internal/domain"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	searchWindow = 1000
)

type Service struct {
	Repo *repo.GormRepo
	// Search is nil when Elasticsearch is not configured.
	Search *catalog.Index
	Events events.Publisher
}

// Page normalizes page and limit the way the list endpoints accept them:
// page starts at 1, limit is clamped to [1, MaxPageSize].
func Page(page, limit int) (int, int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	limit = min(limit, MaxPageSize)
	page = max(page, 1)
	return page, limit, (page - 1) * limit
}

type List[T any] struct {
	Items []T   `json:"items"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

func parseID(id string) (uuid.UUID, bool) {
	u, err := uuid.Parse(strings.TrimSpace(id))
	return u, err == nil
}

func (s *Service) publishProduct(ctx context.Context, eventType string, id uuid.UUID) {
	if s.Events == nil {
		return
	}
	ev := events.New(eventType, map[string]any{"productId": id.String()})
	if err := s.Events.Publish(ctx, events.TopicProduct, id.String(), ev); err != nil {
		logging.FromContext(ctx).Warn("publish_product_event_error", "type", eventType, "error", err)
	}
}

func (s *Service) ListProducts(ctx context.Context, q, status string, page, limit int) (*List[models.Product], error) {
	l := logging.FromContext(ctx).With("svc", "admin.list_products")
	page, limit, offset := Page(page, limit)

	f := repo.ProductFilter{Query: q, Status: strings.TrimSpace(status), Offset: offset, Limit: limit}
	if s.Search != nil && strings.TrimSpace(q) != "" {
		ids, err := s.Search.SearchIDs(ctx, q, searchWindow)
		if err != nil {
			l.Warn("search_fallback", "reason", "elasticsearch unavailable", "error", err)
		} else {
			f.Query = ""
			f.IDs = ids
		}
	}

	total, items, err := s.Repo.ListProducts(ctx, f)
	if err != nil {
		l.Error("list_products_error", "status", 500, "error", err)
		return nil, err
	}
	return &List[models.Product]{Items: items, Page: page, Limit: limit, Total: total}, nil
}

type ProductInput struct {
	Name         string   `json:"name"`
	Slug         string   `json:"slug"`
	Price        float64  `json:"price"`
	CompareAt    *float64 `json:"compareAt"`
	Image        string   `json:"image"`
	CategorySlug string   `json:"categorySlug"`
	Status       string   `json:"status"`
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	name, slug := strings.TrimSpace(in.Name), strings.TrimSpace(in.Slug)
	if name == "" || slug == "" {
		return nil, apperr.Validation("name and slug are required")
	}
	if in.Price < 0 {
		return nil, apperr.Validation("price must not be negative")
	}

	p := &models.Product{
		Name:      name,
		Slug:      slug,
		Price:     in.Price,
		CompareAt: in.CompareAt,
		Image:     strings.TrimSpace(in.Image),
		Status:    strings.TrimSpace(in.Status),
	}
	if cs := strings.TrimSpace(in.CategorySlug); cs != "" {
		p.CategorySlug = &cs
	}
	if err := s.Repo.CreateProduct(ctx, p); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, apperr.Conflict("slug already exists")
		}
		return nil, err
	}

	s.reindex(ctx, p)
	s.publishProduct(ctx, "product.created", p.ID)
	return p, nil
}

type ProductPatchInput struct {
	Name         *string  `json:"name"`
	Slug         *string  `json:"slug"`
	Price        *float64 `json:"price"`
	CompareAt    *float64 `json:"compareAt"`
	Image        *string  `json:"image"`
	CategorySlug *string  `json:"categorySlug"`
	Status       *string  `json:"status"`
}

// PatchProduct reports false when no product has the id.
func (s *Service) PatchProduct(ctx context.Context, id string, in ProductPatchInput) (bool, error) {
	pid, ok := parseID(id)
	if !ok {
		return false, nil
	}
	if in.Price != nil && *in.Price < 0 {
		return false, apperr.Validation("price must not be negative")
	}

	p, err := s.Repo.PatchProduct(ctx, pid, repo.ProductPatch(in))
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return false, nil
	case errors.Is(err, repo.ErrDuplicate):
		return false, apperr.Conflict("slug already exists")
	case err != nil:
		return false, err
	}

	s.reindex(ctx, p)
	s.publishProduct(ctx, "product.updated", p.ID)
	return true, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) (bool, error) {
	pid, ok := parseID(id)
	if !ok {
		return false, nil
	}
	if err := s.Repo.DeleteProduct(ctx, pid); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if s.Search != nil {
		if err := s.Search.DeleteProduct(ctx, pid); err != nil {
			logging.FromContext(ctx).Warn("search_delete_error", "product_id", pid.String(), "error", err)
		}
	}
	s.publishProduct(ctx, "product.deleted", pid)
	return true, nil
}

func (s *Service) reindex(ctx context.Context, p *models.Product) {
	if s.Search == nil {
		return
	}
	if err := s.Search.IndexProduct(ctx, p); err != nil {
		logging.FromContext(ctx).Warn("search_index_error", "product_id", p.ID.String(), "error", err)
	}
}

func (s *Service) ListCategories(ctx context.Context, q string) ([]models.Category, error) {
	return s.Repo.ListCategories(ctx, q)
}

type CategoryInput struct {
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	SortOrder int    `json:"sort_order"`
}

func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	name, slug := strings.TrimSpace(in.Name), strings.TrimSpace(in.Slug)
	if name == "" || slug == "" {
		return nil, apperr.Validation("name and slug are required")
	}
	c := &models.Category{Name: name, Slug: slug, SortOrder: in.SortOrder}
	if err := s.Repo.CreateCategory(ctx, c); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, apperr.Conflict("slug already exists")
		}
		return nil, err
	}
	return c, nil
}

type CategoryPatchInput struct {
	Name      *string `json:"name"`
	Slug      *string `json:"slug"`
	SortOrder *int    `json:"sort_order"`
}

func (s *Service) PatchCategory(ctx context.Context, id string, in CategoryPatchInput) (bool, error) {
	cid, ok := parseID(id)
	if !ok {
		return false, nil
	}
	if in.Slug != nil && strings.TrimSpace(*in.Slug) == "" {
		return false, apperr.Validation("slug must not be empty")
	}

	_, err := s.Repo.PatchCategory(ctx, cid, repo.CategoryPatch(in))
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return false, nil
	case errors.Is(err, repo.ErrDuplicate):
		return false, apperr.Conflict("slug already exists")
	case err != nil:
		return false, err
	}
	return true, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id string) (bool, error) {
	cid, ok := parseID(id)
	if !ok {
		return false, nil
	}
	if err := s.Repo.DeleteCategory(ctx, cid); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Service) ListUsers(ctx context.Context, q string, page, limit int) (*List[models.Account], error) {
	page, limit, offset := Page(page, limit)
	total, items, err := s.Repo.ListAccounts(ctx, q, offset, limit)
	if err != nil {
		return nil, err
	}
	return &List[models.Account]{Items: items, Page: page, Limit: limit, Total: total}, nil
}

type UserPatchInput struct {
	Name  *string  `json:"name"`
	Roles []string `json:"roles"`
}

func (s *Service) PatchUser(ctx context.Context, id string, in UserPatchInput) (bool, error) {
	uid, ok := parseID(id)
	if !ok {
		return false, nil
	}

	patch := repo.AccountPatch{Name: in.Name}
	if in.Roles != nil {
		roles := domain.NormalizeIDs(in.Roles)
		if len(roles) == 0 {
			return false, apperr.Validation("roles must not be empty")
		}
		patch.Roles = roles
	}

	if _, err := s.Repo.PatchAccount(ctx, uid, patch); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Service) DeleteUser(ctx context.Context, id string) (bool, error) {
	uid, ok := parseID(id)
	if !ok {
		return false, nil
	}
	if err := s.Repo.DeleteAccount(ctx, uid); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Counts is what the health endpoints report.
type Counts struct {
	Users      int64
	Products   int64
	Categories int64
}

// Counts runs the count queries concurrently.
func (s *Service) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		c.Users, err = s.Repo.CountAccounts(gctx)
		return err
	})
	g.Go(func() (err error) {
		c.Products, err = s.Repo.CountProducts(gctx)
		return err
	})
	g.Go(func() (err error) {
		c.Categories, err = s.Repo.CountCategories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Counts{}, err
	}
	return c, nil
}
