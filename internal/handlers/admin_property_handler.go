package handlers

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/joshua-takyi/nestly/internal/models"
	"github.com/joshua-takyi/nestly/internal/services"
)

const imagesFormField = "propertyImages"

type propertyForm struct {
	Title          string              `json:"title" form:"title"`
	Description    string              `json:"description" form:"description"`
	PropertyType   models.PropertyType `json:"propertyType" form:"propertyType"`
	BHK            string              `json:"bhk" form:"bhk"`
	Price          float64             `json:"price" form:"price"`
	Address        string              `json:"address" form:"address"`
	City           string              `json:"city" form:"city"`
	PropertyImages []string            `json:"propertyImages" form:"-"`
}

func (f propertyForm) toProperty() *models.Property {
	return &models.Property{
		Title:          strings.TrimSpace(f.Title),
		Description:    strings.TrimSpace(f.Description),
		PropertyType:   f.PropertyType,
		BHK:            f.BHK,
		Price:          f.Price,
		Address:        strings.TrimSpace(f.Address),
		City:           strings.TrimSpace(f.City),
		PropertyImages: f.PropertyImages,
	}
}

// openImages opens every file sent under the propertyImages field of a
// multipart request. The returned func closes them.
func openImages(c *gin.Context) ([]interface{}, func(), error) {
	noop := func() {}
	if c.ContentType() != binding.MIMEMultipartPOSTForm {
		return nil, noop, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, noop, err
	}

	var files []interface{}
	closeAll := func() {
		for _, f := range files {
			if closer, ok := f.(interface{ Close() error }); ok {
				_ = closer.Close()
			}
		}
	}
	for _, fh := range form.File[imagesFormField] {
		file, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, noop, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
		}
		files = append(files, file)
	}
	return files, closeAll, nil
}

func AdminCreateProperty(aps *services.AdminPropertyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFrom(c)
		if !ok {
			return
		}

		var form propertyForm
		if err := c.ShouldBind(&form); err != nil {
			badRequest(c, "Invalid request body")
			return
		}
		files, closeFiles, err := openImages(c)
		if err != nil {
			badRequest(c, "Invalid image upload")
			return
		}
		defer closeFiles()

		property, err := aps.CreateProperty(c.Request.Context(), caller, form.toProperty(), files)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(201, models.SuccessResponse(property, "Property Created"))
	}
}

func AdminListProperties(aps *services.AdminPropertyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFrom(c)
		if !ok {
			return
		}
		pr, ok := pageRequest(c)
		if !ok {
			return
		}

		properties, pagination, err := aps.ListProperties(c.Request.Context(), caller, strings.TrimSpace(c.Query("search")), pr)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, models.PaginatedResponse(properties, pagination, "Property Fetched"))
	}
}

func AdminGetProperty(aps *services.AdminPropertyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFrom(c)
		if !ok {
			return
		}
		id, ok := objectIDParam(c, "id", "Invalid Property ID")
		if !ok {
			return
		}

		property, err := aps.GetProperty(c.Request.Context(), caller, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, models.SuccessResponse(property, "Property Fetched"))
	}
}

func AdminUpdateProperty(aps *services.AdminPropertyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFrom(c)
		if !ok {
			return
		}
		id, ok := objectIDParam(c, "id", "Invalid Property ID")
		if !ok {
			return
		}

		var update models.PropertyUpdate
		if err := c.ShouldBind(&update); err != nil {
			badRequest(c, "Invalid request body")
			return
		}
		files, closeFiles, err := openImages(c)
		if err != nil {
			badRequest(c, "Invalid image upload")
			return
		}
		defer closeFiles()

		property, err := aps.UpdateProperty(c.Request.Context(), caller, id, update, files)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, models.SuccessResponse(property, "Property Updated"))
	}
}

func AdminDeleteProperty(aps *services.AdminPropertyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFrom(c)
		if !ok {
			return
		}
		id, ok := objectIDParam(c, "id", "Invalid Property ID")
		if !ok {
			return
		}

		if err := aps.DeleteProperty(c.Request.Context(), caller, id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, models.SuccessResponse(nil, "Property Deleted"))
	}
}
