package services

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/joshua-takyi/nestly/internal/apperror"
	"github.com/joshua-takyi/nestly/internal/models"
)

const DefaultPropertyPageSize = 12

// PropertyCache holds raw listing pages. IsRented is never part of a
// cached entry.
type PropertyCache interface {
	GetPage(ctx context.Context, query string) ([]*models.Property, int64, bool)
	SetPage(ctx context.Context, query string, items []*models.Property, total int64)
	Invalidate(ctx context.Context)
}

type PropertyQuery struct {
	Search       string
	PropertyType models.PropertyType
	BHK          string
	PageRequest
}

// cacheKey is the URL-encoded query, so user input cannot forge another
// query's key.
func (q PropertyQuery) cacheKey() string {
	return url.Values{
		"search": {q.Search},
		"type":   {string(q.PropertyType)},
		"bhk":    {q.BHK},
		"page":   {strconv.Itoa(q.Page)},
		"size":   {strconv.Itoa(q.Size)},
	}.Encode()
}

type PropertyService struct {
	propertyRepo models.PropertyRepo
	availability *AvailabilityService
	cache        PropertyCache
	logger       *slog.Logger
}

// NewPropertyService accepts a nil cache.
func NewPropertyService(propertyRepo models.PropertyRepo, availability *AvailabilityService, cache PropertyCache, logger *slog.Logger) *PropertyService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PropertyService{
		propertyRepo: propertyRepo,
		availability: availability,
		cache:        cache,
		logger:       logger,
	}
}

func (ps *PropertyService) ListProperties(ctx context.Context, q PropertyQuery) ([]*models.Property, models.Pagination, error) {
	q.PageRequest = q.PageRequest.normalize(DefaultPropertyPageSize)

	items, total, hit := ps.cachedPage(ctx, q)
	if !hit {
		var err error
		items, total, err = ps.propertyRepo.ListProperties(ctx, models.PropertyFilter{
			Search:       q.Search,
			PropertyType: q.PropertyType,
			BHK:          q.BHK,
		}, q.Page, q.Size)
		if err != nil {
			return nil, models.Pagination{}, apperror.Internal("Internal Server Error", err)
		}
		if ps.cache != nil {
			ps.cache.SetPage(ctx, q.cacheKey(), items, total)
		}
	}

	if err := ps.availability.Annotate(ctx, items); err != nil {
		return nil, models.Pagination{}, err
	}
	return items, models.NewPagination(q.Page, q.Size, total), nil
}

func (ps *PropertyService) cachedPage(ctx context.Context, q PropertyQuery) ([]*models.Property, int64, bool) {
	if ps.cache == nil {
		return nil, 0, false
	}
	items, total, ok := ps.cache.GetPage(ctx, q.cacheKey())
	if ok {
		ps.logger.Debug("property page served from cache", "page", q.Page, "size", q.Size)
	}
	return items, total, ok
}

func (ps *PropertyService) GetProperty(ctx context.Context, id primitive.ObjectID) (*models.Property, error) {
	property, err := ps.propertyRepo.GetPropertyByID(ctx, id)
	if err != nil {
		return nil, apperror.Internal("Internal Server Error", err)
	}
	if property == nil {
		return nil, apperror.NotFound(MsgPropertyNotFound)
	}

	rented, err := ps.availability.IsRented(ctx, id)
	if err != nil {
		return nil, err
	}
	property.SetRented(rented)
	return property, nil
}
