// Package catalog implements tyre search over the product store, with
// a read-through result cache keyed by the normalized query.
package catalog

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"go.uber.org/zap"

	"github.com/garageconnect/conversational-commerce/internal/cache"
	"github.com/garageconnect/conversational-commerce/internal/model"
	"github.com/garageconnect/conversational-commerce/internal/store"
	"github.com/garageconnect/conversational-commerce/pkg/logger"
)

// PageSize is the number of products shown per results page.
const PageSize = 6

// dimensionsRe accepts the common ways customers type a tyre size:
// 205/55R16, 205 55 16, 205-55-16, 205/55/16.
var dimensionsRe = regexp.MustCompile(`(\d{3})\s*[/\s-]\s*(\d{2})\s*[/\s-]?\s*[rR]?\s*(\d{2})`)

// ParseDimensions extracts a tyre size from free text.
func ParseDimensions(text string) (width, height, diameter int, ok bool) {
	m := dimensionsRe.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, 0, false
	}
	width, _ = strconv.Atoi(m[1])
	height, _ = strconv.Atoi(m[2])
	diameter, _ = strconv.Atoi(m[3])
	return width, height, diameter, true
}

// LooksLikeDimensions reports whether the text contains a tyre size.
func LooksLikeDimensions(text string) bool {
	return dimensionsRe.MatchString(text)
}

// Result is one page of a search, with enough to render and paginate.
type Result struct {
	Products []model.Product `json:"products"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	Pages    int             `json:"pages"`
}

// ProductIDs lists the IDs on the page in the order FormatResults
// numbers them, so position N in the rendered text is ids[N-1].
func (r *Result) ProductIDs() []string {
	ids := make([]string, 0, len(r.Products))
	for _, i := range displayOrder(r.Products) {
		ids = append(ids, r.Products[i].ID)
	}
	return ids
}

// Service performs catalog searches.
type Service struct {
	products store.ProductStore
	cache    *cache.Cache[*Result]
	log      *logger.Logger
}

// NewService builds a search service around the product store.
func NewService(products store.ProductStore, c *cache.Cache[*Result], log *logger.Logger) *Service {
	return &Service{products: products, cache: c, log: log}
}

// Query is a customer-facing search request. Page is 1-based.
type Query struct {
	Width    int
	Height   int
	Diameter int
	Brand    string
	Category model.ProductCategory
	MinPrice float64
	MaxPrice float64
	Page     int
}

func (q Query) cacheKey() string {
	return fmt.Sprintf("%d/%d/%d|%s|%s|%.2f-%.2f|p%d",
		q.Width, q.Height, q.Diameter, q.Brand, q.Category, q.MinPrice, q.MaxPrice, q.Page)
}

// Search runs the query, serving repeats from cache. Only in-stock
// products are returned.
func (s *Service) Search(ctx context.Context, q Query) (*Result, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	return s.cache.GetOrLoad(q.cacheKey(), func() (*Result, error) {
		products, total, err := s.products.SearchProducts(ctx, store.ProductQuery{
			Width:    q.Width,
			Height:   q.Height,
			Diameter: q.Diameter,
			Brand:    q.Brand,
			Category: q.Category,
			MinPrice: q.MinPrice,
			MaxPrice: q.MaxPrice,
			InStock:  true,
			Offset:   (q.Page - 1) * PageSize,
			Limit:    PageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("searching products: %w", err)
		}
		pages := (total + PageSize - 1) / PageSize
		s.log.Debug("catalog search",
			zap.String("dimensions", fmt.Sprintf("%d/%d/%d", q.Width, q.Height, q.Diameter)),
			zap.Int("total", total),
			zap.Int("page", q.Page))
		return &Result{Products: products, Total: total, Page: q.Page, Pages: pages}, nil
	})
}

// Product returns one product by ID.
func (s *Service) Product(ctx context.Context, id string) (*model.Product, error) {
	return s.products.GetProduct(ctx, id)
}

// Products returns the products for the given IDs, skipping unknowns.
func (s *Service) Products(ctx context.Context, ids []string) ([]model.Product, error) {
	return s.products.GetProducts(ctx, ids)
}

// Brands lists available brands, optionally narrowed to a dimension.
func (s *Service) Brands(ctx context.Context, width, height, diameter int) ([]string, error) {
	return s.products.Brands(ctx, width, height, diameter)
}
