package services

import (
	"context"
	"errors"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/joshua-takyi/nestly/internal/apperror"
	"github.com/joshua-takyi/nestly/internal/helpers"
	"github.com/joshua-takyi/nestly/internal/models"
)

const MsgUserExists = "User already exists"

type TokenIssuer interface {
	GenerateToken(userID, role string) (string, error)
}

type RegisterInput struct {
	FirstName       string `json:"firstName" validate:"required"`
	LastName        string `json:"lastName" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Username        string `json:"username" validate:"required,min=3"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	PhoneNumber     string `json:"phoneNumber,omitempty"`
	ProfilePicture  string `json:"profilePicture,omitempty"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type UserService struct {
	userRepo models.UserRepo
	tokens   TokenIssuer
	logger   *slog.Logger
}

func NewUserService(userRepo models.UserRepo, tokens TokenIssuer, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{
		userRepo: userRepo,
		tokens:   tokens,
		logger:   logger,
	}
}

// createUser is shared by registration and admin creation.
func createUser(ctx context.Context, repo models.UserRepo, in RegisterInput, role string) (*models.User, error) {
	if err := models.Validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	existing, err := repo.GetUserByEmail(ctx, in.Email)
	if err != nil {
		return nil, apperror.Internal("Internal Server Error", err)
	}
	if existing != nil {
		return nil, apperror.Validation(MsgUserExists)
	}

	hashed, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, apperror.Internal("Internal Server Error", err)
	}

	user, err := repo.CreateUser(ctx, &models.User{
		Username:       in.Username,
		Email:          in.Email,
		Password:       hashed,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		PhoneNumber:    in.PhoneNumber,
		ProfilePicture: in.ProfilePicture,
		Role:           role,
	})
	if err != nil {
		if errors.Is(err, models.ErrDuplicateUser) {
			return nil, apperror.Validation(MsgUserExists)
		}
		return nil, apperror.Internal("Internal Server Error", err)
	}
	return user, nil
}

func (us *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	user, err := createUser(ctx, us.userRepo, in, models.RoleUser)
	if err != nil {
		return nil, err
	}
	us.logger.Info("user registered", "user_id", user.ID.Hex())
	return user, nil
}

// Login returns a signed token for valid credentials.
func (us *UserService) Login(ctx context.Context, in LoginInput) (string, *models.User, error) {
	if err := models.Validate.Struct(in); err != nil {
		return "", nil, validationError(err)
	}

	user, err := us.userRepo.GetUserByEmail(ctx, in.Email)
	if err != nil {
		return "", nil, apperror.Internal("Internal Server Error", err)
	}
	if user == nil || !helpers.CheckPassword(user.Password, in.Password) {
		return "", nil, apperror.Unauthorized("Invalid credentials")
	}

	token, err := us.tokens.GenerateToken(user.ID.Hex(), user.Role)
	if err != nil {
		return "", nil, apperror.Internal("Internal Server Error", err)
	}
	return token, user, nil
}

func (us *UserService) WhoAmI(ctx context.Context, caller CallerContext) (*models.User, error) {
	if caller.IsAnonymous() {
		return nil, apperror.Unauthorized("Unauthorized")
	}
	return getUser(ctx, us.userRepo, caller.ID)
}

func getUser(ctx context.Context, repo models.UserRepo, id primitive.ObjectID) (*models.User, error) {
	user, err := repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, apperror.Internal("Internal Server Error", err)
	}
	if user == nil {
		return nil, apperror.NotFound("User not found")
	}
	return user, nil
}
