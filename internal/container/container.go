package container

import (
	"log/slog"

	"github.com/joshua-takyi/nestly/internal/config"
	"github.com/joshua-takyi/nestly/internal/events"
	"github.com/joshua-takyi/nestly/internal/helpers"
	"github.com/joshua-takyi/nestly/internal/models"
	"github.com/joshua-takyi/nestly/internal/services"
)

// Repositories groups the storage interfaces the services depend on.
type Repositories struct {
	Bookings   models.BookingRepo
	Properties models.PropertyRepo
	Users      models.UserRepo
	Favourites models.FavouriteRepo
}

// MongoRepositories backs every repository with the same MongoDB repo.
func MongoRepositories(repo *models.MongodbRepo) Repositories {
	return Repositories{
		Bookings:   repo,
		Properties: repo,
		Users:      repo,
		Favourites: repo,
	}
}

// Infra carries the optional integrations. Nil fields disable the feature:
// no cache, no image uploads, events dropped.
type Infra struct {
	Publisher events.Publisher
	Cache     services.PropertyCache
	Uploader  services.ImageUploader
}

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *slog.Logger
	Tokens *helpers.TokenManager
	Repos  Repositories

	UserService          *services.UserService
	PropertyService      *services.PropertyService
	BookingService       *services.BookingService
	FavouriteService     *services.FavouriteService
	AdminBookingService  *services.AdminBookingService
	AdminPropertyService *services.AdminPropertyService
	AdminUserService     *services.AdminUserService
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config, logger *slog.Logger, tokens *helpers.TokenManager, repos Repositories, infra Infra) *Container {
	if logger == nil {
		logger = slog.Default()
	}
	if infra.Publisher == nil {
		infra.Publisher = events.NopPublisher{}
	}

	availability := services.NewAvailabilityService(repos.Bookings)

	return &Container{
		Config: cfg,
		Logger: logger,
		Tokens: tokens,
		Repos:  repos,

		UserService:          services.NewUserService(repos.Users, tokens, logger),
		PropertyService:      services.NewPropertyService(repos.Properties, availability, infra.Cache, logger),
		BookingService:       services.NewBookingService(repos.Bookings, repos.Properties, infra.Publisher, logger),
		FavouriteService:     services.NewFavouriteService(repos.Favourites, repos.Properties),
		AdminBookingService:  services.NewAdminBookingService(repos.Bookings, infra.Publisher, logger),
		AdminPropertyService: services.NewAdminPropertyService(repos.Properties, availability, infra.Cache, infra.Uploader, logger),
		AdminUserService:     services.NewAdminUserService(repos.Users, logger),
	}
}
