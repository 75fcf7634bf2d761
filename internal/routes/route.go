package routes

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/joshua-takyi/nestly/internal/container"
	"github.com/joshua-takyi/nestly/internal/handlers"
	"github.com/joshua-takyi/nestly/internal/middleware"
)

// SetupRoutes configures all routes with the dependency container
func SetupRoutes(container *container.Container) *gin.Engine {
	cfg := container.Config
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
	}))

	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(container.Logger))
	r.Use(middleware.ErrorHandler(container.Logger))
	r.Use(gin.Recovery())

	cookie := handlers.CookieOptions{Secure: cfg.IsProduction(), MaxAge: cfg.JWTExpiry}
	requireAuth := middleware.AuthMiddleware(container.Tokens, container.Repos.Users, container.Logger)

	api := r.Group("/api")
	api.GET("/health", handlers.HealthCheck())

	auth := api.Group("/auth")
	{
		auth.POST("/register", handlers.Register(container.UserService))
		auth.POST("/login", handlers.Login(container.UserService, cookie))
		auth.POST("/logout", handlers.Logout(cookie))
		auth.GET("/whoami", requireAuth, handlers.WhoAmI(container.UserService))
	}

	properties := api.Group("/properties")
	{
		properties.GET("", handlers.ListProperties(container.PropertyService))
		properties.GET("/:id", handlers.GetProperty(container.PropertyService))
	}

	bookings := api.Group("/bookings", requireAuth)
	{
		bookings.POST("", handlers.CreateBooking(container.BookingService))
		bookings.GET("/my-bookings", handlers.GetMyBookings(container.BookingService))
		bookings.PATCH("/:id/cancel", handlers.CancelBooking(container.BookingService))
	}

	favourites := api.Group("/favourites", requireAuth)
	{
		favourites.POST("/toggle", handlers.ToggleFavourite(container.FavouriteService))
		favourites.GET("/my-wishlist", handlers.GetMyWishlist(container.FavouriteService))
		favourites.GET("/status/:propertyId", handlers.GetFavouriteStatus(container.FavouriteService))
	}

	admin := api.Group("/admin", requireAuth, middleware.AdminOnly())
	{
		adminBookings := admin.Group("/bookings")
		adminBookings.GET("", handlers.AdminListBookings(container.AdminBookingService))
		adminBookings.PATCH("/:id/status", handlers.AdminUpdateBookingStatus(container.AdminBookingService))

		adminProperties := admin.Group("/properties")
		adminProperties.POST("", handlers.AdminCreateProperty(container.AdminPropertyService))
		adminProperties.GET("", handlers.AdminListProperties(container.AdminPropertyService))
		adminProperties.GET("/:id", handlers.AdminGetProperty(container.AdminPropertyService))
		adminProperties.PUT("/:id", handlers.AdminUpdateProperty(container.AdminPropertyService))
		adminProperties.DELETE("/:id", handlers.AdminDeleteProperty(container.AdminPropertyService))

		adminUsers := admin.Group("/users")
		adminUsers.POST("", handlers.AdminCreateUser(container.AdminUserService))
		adminUsers.GET("", handlers.AdminListUsers(container.AdminUserService))
		adminUsers.GET("/:id", handlers.AdminGetUser(container.AdminUserService))
		adminUsers.PUT("/:id", handlers.AdminUpdateUser(container.AdminUserService))
		adminUsers.DELETE("/:id", handlers.AdminDeleteUser(container.AdminUserService))
	}

	return r
}
