package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/joshua-takyi/nestly/internal/models"
	"github.com/joshua-takyi/nestly/internal/services"
)

func AdminCreateUser(aus *services.AdminUserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFrom(c)
		if !ok {
			return
		}
		var input services.AdminCreateUserInput
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, "Invalid request body")
			return
		}

		user, err := aus.CreateUser(c.Request.Context(), caller, input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(201, models.SuccessResponse(user, "User created"))
	}
}

func AdminListUsers(aus *services.AdminUserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFrom(c)
		if !ok {
			return
		}
		pr, ok := pageRequest(c)
		if !ok {
			return
		}

		users, pagination, err := aus.ListUsers(c.Request.Context(), caller, strings.TrimSpace(c.Query("search")), pr)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, models.PaginatedResponse(users, pagination, "User Fetched"))
	}
}

func AdminGetUser(aus *services.AdminUserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFrom(c)
		if !ok {
			return
		}
		id, ok := objectIDParam(c, "id", "Invalid User ID")
		if !ok {
			return
		}

		user, err := aus.GetUser(c.Request.Context(), caller, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, models.SuccessResponse(user, "User Fetched"))
	}
}

func AdminUpdateUser(aus *services.AdminUserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFrom(c)
		if !ok {
			return
		}
		id, ok := objectIDParam(c, "id", "Invalid User ID")
		if !ok {
			return
		}
		var input services.UpdateUserInput
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, "Invalid request body")
			return
		}

		user, err := aus.UpdateUser(c.Request.Context(), caller, id, input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, models.SuccessResponse(user, "User Updated"))
	}
}

func AdminDeleteUser(aus *services.AdminUserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFrom(c)
		if !ok {
			return
		}
		id, ok := objectIDParam(c, "id", "Invalid User ID")
		if !ok {
			return
		}

		if err := aus.DeleteUser(c.Request.Context(), caller, id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, models.SuccessResponse(nil, "User Deleted"))
	}
}
