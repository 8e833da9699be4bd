package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/community_shop/internal/cache"
	"github.com/Skotchmaster/community_shop/internal/events"
	"github.com/Skotchmaster/community_shop/internal/filestore"
	"github.com/Skotchmaster/community_shop/internal/models"
	"github.com/Skotchmaster/community_shop/internal/repo"
	"github.com/Skotchmaster/community_shop/pkg/logging"
)

// Indexer is the full-text search backend. A nil Indexer means search falls back to the database.
type Indexer interface {
	IndexProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id uint) error
	Search(ctx context.Context, query string, from, size int) (int64, []models.Product, error)
}

type CatalogService struct {
	Repo   *repo.GormRepo
	Files  *filestore.FileStore
	Cache  *cache.Products
	Index  Indexer
	Events events.Publisher
}

// ProductInput is a create or edit request. On Update a nil Stock leaves stock alone; a new
// Stock must come with ExpectedStock, the value the editor last saw.
type ProductInput struct {
	Name          string          `json:"name"           form:"name"`
	Description   string          `json:"description"    form:"description"`
	Price         decimal.Decimal `json:"price"          form:"price"`
	Stock         *int            `json:"stock"          form:"stock"`
	ExpectedStock *int            `json:"expected_stock" form:"expected_stock"`
}

type Upload struct {
	Filename string
	Reader   io.Reader
}

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

func (in *ProductInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	switch {
	case in.Name == "":
		return validationf("name is required")
	case in.Price.IsNegative():
		return validationf("price cannot be negative")
	case in.Stock != nil && *in.Stock < 0:
		return validationf("stock cannot be negative")
	}
	in.Price = in.Price.Round(2)
	return nil
}

func (s *CatalogService) ListAvailable(ctx context.Context) ([]models.Product, error) {
	var gen uint64
	if s.Cache != nil {
		if items, ok := s.Cache.Get(cache.KeyAvailable); ok {
			return items, nil
		}
		gen = s.Cache.Generation()
	}
	items, err := s.Repo.ListAvailableProducts(ctx)
	if err != nil {
		return nil, err
	}
	if s.Cache != nil {
		s.Cache.Set(cache.KeyAvailable, items, gen)
	}
	return items, nil
}

func (s *CatalogService) ListAll(ctx context.Context, offset, limit int) (int64, []models.Product, error) {
	return s.Repo.ListProducts(ctx, offset, limit)
}

func (s *CatalogService) Get(ctx context.Context, id uint) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound(err, "product")
	}
	return p, nil
}

func (s *CatalogService) saveImage(up *Upload) (string, error) {
	if up == nil {
		return "", nil
	}
	if up.Filename == "" {
		return "", ErrEmptyUpload
	}
	clean, err := filestore.SanitizeFilename(up.Filename)
	if err != nil || !imageExts[strings.ToLower(filepath.Ext(clean))] {
		return "", fmt.Errorf("%w: product images must be jpg, png, gif or webp", ErrInvalidFilename)
	}
	return s.Files.Save(up.Reader, "products", clean, "catalog")
}

func (s *CatalogService) dropImage(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := s.Files.Delete(path); err != nil {
		logging.FromContext(ctx).Warn("product_image_delete_failed", "path", path, "error", err)
	}
}

func (s *CatalogService) Create(ctx context.Context, in ProductInput, image *Upload) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	imagePath, err := s.saveImage(image)
	if err != nil {
		return nil, err
	}

	p := &models.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		ImagePath:   imagePath,
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if err := s.Repo.CreateProduct(ctx, p); err != nil {
		s.dropImage(ctx, imagePath)
		return nil, err
	}

	s.changed(ctx, "product_created", p)
	return p, nil
}

// Update keeps the stored image when no new image is supplied. Stock only moves when it differs
// from ExpectedStock, and only if nobody else changed it in the meantime.
func (s *CatalogService) Update(ctx context.Context, id uint, in ProductInput, image *Upload) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var sc *repo.StockChange
	if in.Stock != nil {
		if in.ExpectedStock == nil {
			return nil, validationf("expected_stock is required when changing stock")
		}
		sc = &repo.StockChange{From: *in.ExpectedStock, To: *in.Stock}
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	newImage, err := s.saveImage(image)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{
		"name":        in.Name,
		"description": in.Description,
		"price":       in.Price,
	}
	if newImage != "" {
		fields["image_path"] = newImage
	}

	p, err := s.Repo.UpdateProduct(ctx, id, fields, sc)
	if err != nil {
		s.dropImage(ctx, newImage)
		if errors.Is(err, repo.ErrStockChanged) {
			return nil, fmt.Errorf("%w: %s was sold or restocked while you were editing, reload and try again", ErrStockConflict, current.Name)
		}
		return nil, notFound(err, "product")
	}
	if newImage != "" {
		s.dropImage(ctx, current.ImagePath)
	}

	s.changed(ctx, "product_updated", p)
	return p, nil
}

// Delete removes the record; the image file is removed best-effort afterwards.
func (s *CatalogService) Delete(ctx context.Context, id uint) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		return notFound(err, "product")
	}
	s.dropImage(ctx, p.ImagePath)

	s.purge()
	if s.Index != nil {
		if err := s.Index.DeleteProduct(ctx, id); err != nil {
			logging.FromContext(ctx).Warn("search_delete_failed", "product_id", id, "error", err)
		}
	}
	publish(ctx, s.Events, events.TopicProducts, strconv.FormatUint(uint64(id), 10), "product_deleted", map[string]any{"product_id": id})
	return nil
}

func (s *CatalogService) Search(ctx context.Context, q string, offset, limit int) (int64, []models.Product, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return 0, nil, validationf("search query is required")
	}
	if s.Index != nil {
		total, items, err := s.Index.Search(ctx, q, offset, limit)
		if err == nil {
			return total, items, nil
		}
		logging.FromContext(ctx).Warn("search_index_failed", "error", err)
	}
	return s.Repo.SearchProducts(ctx, q, offset, limit)
}

// StockChanged refreshes derived views after stock moved outside the catalog (checkout).
func (s *CatalogService) StockChanged(ctx context.Context, ids []uint) {
	s.purge()
	if s.Index == nil {
		return
	}
	for _, id := range ids {
		p, err := s.Repo.GetProduct(ctx, id)
		if err != nil {
			continue
		}
		if err := s.Index.IndexProduct(ctx, p); err != nil {
			logging.FromContext(ctx).Warn("search_index_failed", "product_id", id, "error", err)
		}
	}
}

func (s *CatalogService) purge() {
	if s.Cache != nil {
		s.Cache.Purge()
	}
}

func (s *CatalogService) changed(ctx context.Context, eventType string, p *models.Product) {
	s.purge()
	if s.Index != nil {
		if err := s.Index.IndexProduct(ctx, p); err != nil {
			logging.FromContext(ctx).Warn("search_index_failed", "product_id", p.ID, "error", err)
		}
	}
	publish(ctx, s.Events, events.TopicProducts, strconv.FormatUint(uint64(p.ID), 10), eventType, map[string]any{
		"product_id": p.ID,
		"name":       p.Name,
		"price":      p.Price,
		"stock":      p.Stock,
	})
}

