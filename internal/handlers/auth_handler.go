package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joshua-takyi/nestly/internal/middleware"
	"github.com/joshua-takyi/nestly/internal/models"
	"github.com/joshua-takyi/nestly/internal/services"
)

// CookieOptions controls the access_token cookie set on login.
type CookieOptions struct {
	Secure bool
	MaxAge time.Duration
}

func Register(us *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input services.RegisterInput
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, "Invalid request body")
			return
		}

		user, err := us.Register(c.Request.Context(), input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(201, models.SuccessResponse(user, "User registered successfully"))
	}
}

func Login(us *services.UserService, cookie CookieOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input services.LoginInput
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, "Invalid request body")
			return
		}

		token, user, err := us.Login(c.Request.Context(), input)
		if err != nil {
			respondError(c, err)
			return
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(middleware.AccessTokenCookie, token, int(cookie.MaxAge.Seconds()), "/", "", cookie.Secure, true)
		c.JSON(200, models.ApiResponse{
			Success: true,
			Message: "Login successful",
			Data:    user,
			Token:   token,
		})
	}
}

func WhoAmI(us *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFrom(c)
		if !ok {
			return
		}
		user, err := us.WhoAmI(c.Request.Context(), caller)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, models.SuccessResponse(user, "User Fetched"))
	}
}

func Logout(cookie CookieOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", "", cookie.Secure, true)
		c.JSON(200, models.SuccessResponse(nil, "Logged out successfully"))
	}
}

func HealthCheck() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK", "service": "nestly-api"})
	}
}
