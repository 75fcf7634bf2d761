package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/joshua-takyi/nestly/internal/models"
	"github.com/joshua-takyi/nestly/internal/services"
)

func ToggleFavourite(f *services.FavouriteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFrom(c)
		if !ok {
			return
		}

		var reqBody struct {
			PropertyID string `json:"propertyId"`
		}
		if err := c.ShouldBindJSON(&reqBody); err != nil {
			badRequest(c, "Invalid request body")
			return
		}
		propertyID, err := primitive.ObjectIDFromHex(strings.TrimSpace(reqBody.PropertyID))
		if err != nil {
			badRequest(c, "Invalid Property ID or User ID")
			return
		}

		favourited, err := f.ToggleFavourite(c.Request.Context(), caller, propertyID)
		if err != nil {
			respondError(c, err)
			return
		}
		message := "Removed from wishlist"
		if favourited {
			message = "Added to wishlist"
		}
		c.JSON(200, gin.H{"success": true, "favorited": favourited, "message": message})
	}
}

func GetMyWishlist(f *services.FavouriteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFrom(c)
		if !ok {
			return
		}
		pr, ok := pageRequest(c)
		if !ok {
			return
		}

		favourites, pagination, err := f.ListFavourites(c.Request.Context(), caller, pr)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, models.PaginatedResponse(favourites, pagination, "Wishlist fetched successfully"))
	}
}

func GetFavouriteStatus(f *services.FavouriteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFrom(c)
		if !ok {
			return
		}
		propertyID, ok := objectIDParam(c, "propertyId", "Invalid Property ID")
		if !ok {
			return
		}

		favourited, err := f.IsFavourited(c.Request.Context(), caller, propertyID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, gin.H{"success": true, "isFavorited": favourited})
	}
}
