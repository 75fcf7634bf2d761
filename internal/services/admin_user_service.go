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

type AdminCreateUserInput struct {
	RegisterInput
	Role string `json:"role,omitempty" validate:"omitempty,oneof=user admin"`
}

type UpdateUserInput struct {
	Username       *string `json:"username,omitempty" validate:"omitempty,min=3"`
	Email          *string `json:"email,omitempty" validate:"omitempty,email"`
	Password       *string `json:"password,omitempty" validate:"omitempty,min=6"`
	FirstName      *string `json:"firstName,omitempty" validate:"omitempty,min=1"`
	LastName       *string `json:"lastName,omitempty" validate:"omitempty,min=1"`
	PhoneNumber    *string `json:"phoneNumber,omitempty"`
	ProfilePicture *string `json:"profilePicture,omitempty"`
	Role           *string `json:"role,omitempty" validate:"omitempty,oneof=user admin"`
}

type AdminUserService struct {
	userRepo models.UserRepo
	logger   *slog.Logger
}

func NewAdminUserService(userRepo models.UserRepo, logger *slog.Logger) *AdminUserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminUserService{userRepo: userRepo, logger: logger}
}

func (aus *AdminUserService) CreateUser(ctx context.Context, caller CallerContext, in AdminCreateUserInput) (*models.User, error) {
	if !caller.IsAdmin() {
		return nil, apperror.Forbidden("Forbidden, Admins only")
	}
	if err := models.Validate.Var(in.Role, "omitempty,oneof=user admin"); err != nil {
		return nil, apperror.Validation("role must be one of: user admin")
	}
	role := in.Role
	if role == "" {
		role = models.RoleUser
	}

	user, err := createUser(ctx, aus.userRepo, in.RegisterInput, role)
	if err != nil {
		return nil, err
	}
	aus.logger.Info("user created by admin", "user_id", user.ID.Hex(), "admin_id", caller.ID.Hex())
	return user, nil
}

func (aus *AdminUserService) ListUsers(ctx context.Context, caller CallerContext, search string, pr PageRequest) ([]*models.User, models.Pagination, error) {
	if !caller.IsAdmin() {
		return nil, models.Pagination{}, apperror.Forbidden("Forbidden, Admins only")
	}
	pr = pr.normalize(DefaultAdminPageSize)

	users, total, err := aus.userRepo.ListUsers(ctx, models.UserFilter{Search: search}, pr.Page, pr.Size)
	if err != nil {
		return nil, models.Pagination{}, apperror.Internal("Internal Server Error", err)
	}
	return users, models.NewPagination(pr.Page, pr.Size, total), nil
}

func (aus *AdminUserService) GetUser(ctx context.Context, caller CallerContext, id primitive.ObjectID) (*models.User, error) {
	if !caller.IsAdmin() {
		return nil, apperror.Forbidden("Forbidden, Admins only")
	}
	return getUser(ctx, aus.userRepo, id)
}

func (aus *AdminUserService) UpdateUser(ctx context.Context, caller CallerContext, id primitive.ObjectID, in UpdateUserInput) (*models.User, error) {
	if !caller.IsAdmin() {
		return nil, apperror.Forbidden("Forbidden, Admins only")
	}
	if err := models.Validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	update := models.UserUpdate{
		Username:       in.Username,
		Email:          in.Email,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		PhoneNumber:    in.PhoneNumber,
		ProfilePicture: in.ProfilePicture,
		Role:           in.Role,
	}
	if in.Password != nil {
		hashed, err := helpers.HashPassword(*in.Password)
		if err != nil {
			return nil, apperror.Internal("Internal Server Error", err)
		}
		update.Password = &hashed
	}

	user, err := aus.userRepo.UpdateUser(ctx, id, update)
	if err != nil {
		if errors.Is(err, models.ErrDuplicateUser) {
			return nil, apperror.Validation(MsgUserExists)
		}
		return nil, apperror.Internal("Internal Server Error", err)
	}
	if user == nil {
		return nil, apperror.NotFound("User not found")
	}
	return user, nil
}

func (aus *AdminUserService) DeleteUser(ctx context.Context, caller CallerContext, id primitive.ObjectID) error {
	if !caller.IsAdmin() {
		return apperror.Forbidden("Forbidden, Admins only")
	}
	deleted, err := aus.userRepo.DeleteUser(ctx, id)
	if err != nil {
		return apperror.Internal("Internal Server Error", err)
	}
	if !deleted {
		return apperror.NotFound("User not found")
	}
	aus.logger.Info("user deleted", "user_id", id.Hex(), "admin_id", caller.ID.Hex())
	return nil
}
