package services

import (
	"context"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/joshua-takyi/nestly/internal/apperror"
	"github.com/joshua-takyi/nestly/internal/models"
)

type ImageUploader interface {
	UploadImages(ctx context.Context, files []interface{}) ([]string, error)
}

type AdminPropertyService struct {
	propertyRepo models.PropertyRepo
	availability *AvailabilityService
	cache        PropertyCache
	uploader     ImageUploader
	logger       *slog.Logger
}

// NewAdminPropertyService accepts a nil cache and a nil uploader.
func NewAdminPropertyService(propertyRepo models.PropertyRepo, availability *AvailabilityService, cache PropertyCache, uploader ImageUploader, logger *slog.Logger) *AdminPropertyService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminPropertyService{
		propertyRepo: propertyRepo,
		availability: availability,
		cache:        cache,
		uploader:     uploader,
		logger:       logger,
	}
}

func (aps *AdminPropertyService) upload(ctx context.Context, files []interface{}) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if aps.uploader == nil {
		return nil, apperror.Validation("Image uploads are not configured")
	}
	urls, err := aps.uploader.UploadImages(ctx, files)
	if err != nil {
		return nil, apperror.Internal("Failed to upload images", err)
	}
	return urls, nil
}

func (aps *AdminPropertyService) invalidate(ctx context.Context) {
	if aps.cache != nil {
		aps.cache.Invalidate(ctx)
	}
}

func (aps *AdminPropertyService) CreateProperty(ctx context.Context, caller CallerContext, property *models.Property, files []interface{}) (*models.Property, error) {
	if !caller.IsAdmin() {
		return nil, apperror.Forbidden("Forbidden, Admins only")
	}

	if property.PropertyImages == nil {
		property.PropertyImages = []string{}
	}
	// Reject invalid input before anything is uploaded.
	if err := models.Validate.Struct(property); err != nil {
		return nil, validationError(err)
	}

	urls, err := aps.upload(ctx, files)
	if err != nil {
		return nil, err
	}
	property.PropertyImages = append(property.PropertyImages, urls...)

	created, err := aps.propertyRepo.CreateProperty(ctx, property)
	if err != nil {
		return nil, apperror.Internal("Internal Server Error", err)
	}
	aps.invalidate(ctx)

	aps.logger.Info("property created", "property_id", created.ID.Hex(), "admin_id", caller.ID.Hex())
	created.SetRented(false)
	return created, nil
}

func (aps *AdminPropertyService) ListProperties(ctx context.Context, caller CallerContext, search string, pr PageRequest) ([]*models.Property, models.Pagination, error) {
	if !caller.IsAdmin() {
		return nil, models.Pagination{}, apperror.Forbidden("Forbidden, Admins only")
	}
	pr = pr.normalize(DefaultAdminPageSize)

	items, total, err := aps.propertyRepo.ListProperties(ctx, models.PropertyFilter{Search: search}, pr.Page, pr.Size)
	if err != nil {
		return nil, models.Pagination{}, apperror.Internal("Internal Server Error", err)
	}
	if err := aps.availability.Annotate(ctx, items); err != nil {
		return nil, models.Pagination{}, err
	}
	return items, models.NewPagination(pr.Page, pr.Size, total), nil
}

func (aps *AdminPropertyService) GetProperty(ctx context.Context, caller CallerContext, id primitive.ObjectID) (*models.Property, error) {
	if !caller.IsAdmin() {
		return nil, apperror.Forbidden("Forbidden, Admins only")
	}
	property, err := aps.propertyRepo.GetPropertyByID(ctx, id)
	if err != nil {
		return nil, apperror.Internal("Internal Server Error", err)
	}
	if property == nil {
		return nil, apperror.NotFound(MsgPropertyNotFound)
	}
	rented, err := aps.availability.IsRented(ctx, id)
	if err != nil {
		return nil, err
	}
	property.SetRented(rented)
	return property, nil
}

// UpdateProperty appends uploaded images to whatever image list results
// from the update.
func (aps *AdminPropertyService) UpdateProperty(ctx context.Context, caller CallerContext, id primitive.ObjectID, update models.PropertyUpdate, files []interface{}) (*models.Property, error) {
	if !caller.IsAdmin() {
		return nil, apperror.Forbidden("Forbidden, Admins only")
	}
	if err := models.Validate.Struct(update); err != nil {
		return nil, validationError(err)
	}

	existing, err := aps.propertyRepo.GetPropertyByID(ctx, id)
	if err != nil {
		return nil, apperror.Internal("Internal Server Error", err)
	}
	if existing == nil {
		return nil, apperror.NotFound(MsgPropertyNotFound)
	}

	urls, err := aps.upload(ctx, files)
	if err != nil {
		return nil, err
	}
	if len(urls) > 0 {
		images := existing.PropertyImages
		if update.PropertyImages != nil {
			images = update.PropertyImages
		}
		update.PropertyImages = append(append([]string{}, images...), urls...)
	}

	updated, err := aps.propertyRepo.UpdateProperty(ctx, id, update)
	if err != nil {
		return nil, apperror.Internal("Internal Server Error", err)
	}
	if updated == nil {
		return nil, apperror.NotFound(MsgPropertyNotFound)
	}
	aps.invalidate(ctx)

	rented, err := aps.availability.IsRented(ctx, id)
	if err != nil {
		return nil, err
	}
	updated.SetRented(rented)
	return updated, nil
}

func (aps *AdminPropertyService) DeleteProperty(ctx context.Context, caller CallerContext, id primitive.ObjectID) error {
	if !caller.IsAdmin() {
		return apperror.Forbidden("Forbidden, Admins only")
	}
	deleted, err := aps.propertyRepo.DeleteProperty(ctx, id)
	if err != nil {
		return apperror.Internal("Internal Server Error", err)
	}
	if !deleted {
		return apperror.NotFound(MsgPropertyNotFound)
	}
	aps.invalidate(ctx)
	aps.logger.Info("property deleted", "property_id", id.Hex(), "admin_id", caller.ID.Hex())
	return nil
}
