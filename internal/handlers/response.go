package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/joshua-takyi/nestly/internal/apperror"
	"github.com/joshua-takyi/nestly/internal/middleware"
	"github.com/joshua-takyi/nestly/internal/models"
	"github.com/joshua-takyi/nestly/internal/services"
)

const MsgInvalidPagination = "page and size must be positive integers"

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		models.UseJSONFieldNames(v)
	}
}

// respondError writes typed errors directly. Anything else is handed to the
// ErrorHandler middleware, which logs it and answers with a generic 500.
func respondError(c *gin.Context, err error) {
	if appErr, ok := apperror.As(err); ok && appErr.Kind != apperror.KindInternal {
		c.JSON(appErr.Status, models.ErrorResponse(appErr.Message))
		return
	}
	_ = c.Error(err)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(400, models.ErrorResponse(message))
}

// callerFrom builds the caller identity from the claims set by AuthMiddleware.
func callerFrom(c *gin.Context) (services.CallerContext, bool) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(401, models.ErrorResponse("User context not found"))
		return services.CallerContext{}, false
	}
	id, err := claims.ObjectID()
	if err != nil {
		c.JSON(401, models.ErrorResponse("User context not found"))
		return services.CallerContext{}, false
	}
	return services.CallerContext{ID: id, Role: claims.Role}, true
}

func objectIDParam(c *gin.Context, name, message string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		badRequest(c, message)
		return primitive.NilObjectID, false
	}
	return id, true
}

// pageRequest reads page and size from the query string. Missing values are
// left at zero so the service applies its own defaults.
func pageRequest(c *gin.Context) (services.PageRequest, bool) {
	var pr services.PageRequest
	for key, dst := range map[string]*int{"page": &pr.Page, "size": &pr.Size} {
		raw, present := c.GetQuery(key)
		if !present || raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			badRequest(c, MsgInvalidPagination)
			return services.PageRequest{}, false
		}
		*dst = n
	}
	return pr, true
}

// statusQuery parses the optional status filter. An empty value means no
// filter.
func statusQuery(c *gin.Context) (models.BookingStatus, bool) {
	raw := c.Query("status")
	if raw == "" {
		return "", true
	}
	status, err := models.ParseBookingStatus(raw)
	if err != nil {
		badRequest(c, "Invalid status filter")
		return "", false
	}
	return status, true
}
