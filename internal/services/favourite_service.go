package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/joshua-takyi/nestly/internal/apperror"
	"github.com/joshua-takyi/nestly/internal/models"
)

type FavouriteService struct {
	favouritesRepo models.FavouriteRepo
	propertyRepo   models.PropertyRepo
}

func NewFavouriteService(favouritesRepo models.FavouriteRepo, propertyRepo models.PropertyRepo) *FavouriteService {
	return &FavouriteService{
		favouritesRepo: favouritesRepo,
		propertyRepo:   propertyRepo,
	}
}

// ToggleFavourite adds the property when absent and removes it otherwise.
// It reports whether the property is favourited afterwards.
func (fs *FavouriteService) ToggleFavourite(ctx context.Context, caller CallerContext, propertyID primitive.ObjectID) (bool, error) {
	if caller.IsAnonymous() {
		return false, apperror.Unauthorized("Unauthorized")
	}

	property, err := fs.propertyRepo.GetPropertyByID(ctx, propertyID)
	if err != nil {
		return false, apperror.Internal("Internal Server Error", err)
	}
	if property == nil {
		return false, apperror.NotFound(MsgPropertyNotFound)
	}

	removed, err := fs.favouritesRepo.RemoveFromFavourites(ctx, caller.ID, propertyID)
	if err != nil {
		return false, apperror.Internal("Internal Server Error", err)
	}
	if removed {
		return false, nil
	}

	if _, err := fs.favouritesRepo.AddToFavourites(ctx, caller.ID, propertyID); err != nil {
		return false, apperror.Internal("Internal Server Error", err)
	}
	return true, nil
}

func (fs *FavouriteService) IsFavourited(ctx context.Context, caller CallerContext, propertyID primitive.ObjectID) (bool, error) {
	if caller.IsAnonymous() {
		return false, apperror.Unauthorized("Unauthorized")
	}
	ok, err := fs.favouritesRepo.IsFavourited(ctx, caller.ID, propertyID)
	if err != nil {
		return false, apperror.Internal("Internal Server Error", err)
	}
	return ok, nil
}

func (fs *FavouriteService) ListFavourites(ctx context.Context, caller CallerContext, pr PageRequest) ([]*models.Favourite, models.Pagination, error) {
	if caller.IsAnonymous() {
		return nil, models.Pagination{}, apperror.Unauthorized("Unauthorized")
	}
	pr = pr.normalize(DefaultPropertyPageSize)

	favourites, total, err := fs.favouritesRepo.GetFavouritesByUserID(ctx, caller.ID, pr.Page, pr.Size)
	if err != nil {
		return nil, models.Pagination{}, apperror.Internal("Internal Server Error", err)
	}
	return favourites, models.NewPagination(pr.Page, pr.Size, total), nil
}
