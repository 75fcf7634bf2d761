package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/joshua-takyi/nestly/internal/models"
	"github.com/joshua-takyi/nestly/internal/services"
)

func ListProperties(ps *services.PropertyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		pr, ok := pageRequest(c)
		if !ok {
			return
		}

		properties, pagination, err := ps.ListProperties(c.Request.Context(), services.PropertyQuery{
			Search:       strings.TrimSpace(c.Query("search")),
			PropertyType: models.PropertyType(c.Query("propertyType")),
			BHK:          c.Query("bhk"),
			PageRequest:  pr,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, models.PaginatedResponse(properties, pagination, "Property Fetched"))
	}
}

func GetProperty(ps *services.PropertyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "id", "Invalid Property ID")
		if !ok {
			return
		}
		property, err := ps.GetProperty(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, models.SuccessResponse(property, "Property details fetched"))
	}
}
