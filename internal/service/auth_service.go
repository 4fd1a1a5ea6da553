package service

import (
	"context"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"footwear-wholesale/internal/apperr"
	"footwear-wholesale/internal/auth"
	"footwear-wholesale/internal/models"
)

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindAll(ctx context.Context, page, limit int) ([]models.User, int64, error)
	SetApproved(ctx context.Context, id string, approved bool) error
	SetRole(ctx context.Context, id string, role models.Role) error
	UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) error
	SetPasswordHash(ctx context.Context, id, hash string) error
}

// RegisterRequest is the B2B registration body.
type RegisterRequest struct {
	CompanyName string         `json:"company_name" binding:"required"`
	ContactName string         `json:"contact_name"`
	Email       string         `json:"email" binding:"required,email"`
	Password    string         `json:"password" binding:"required"`
	Phone       string         `json:"phone"`
	Address     models.Address `json:"address"`
}

// LoginRequest is the credential body.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ChangePasswordRequest rotates the caller's credential.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// LoginResult carries the issued token and the account it identifies.
type LoginResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// AuthService handles registration, login and account administration.
// New buyers start unapproved: they can authenticate and browse but
// the order processor refuses them until an admin approves the account.
type AuthService struct {
	users  UserStore
	tokens *auth.TokenManager
	logger *slog.Logger
}

// NewAuthService wires an auth service.
func NewAuthService(users UserStore, tokens *auth.TokenManager, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{users: users, tokens: tokens, logger: logger}
}

// Register creates a new buyer account pending approval and returns a
// bearer token for it.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*LoginResult, error) {
	details := map[string]string{}
	if req.Email == "" {
		details["email"] = "email is required"
	}
	if len(req.Password) < 8 {
		details["password"] = "password must be at least 8 characters"
	}
	if req.CompanyName == "" {
		details["company_name"] = "company name is required"
	}
	if len(details) > 0 {
		return nil, apperr.Validation("invalid registration", details)
	}

	if existing, err := s.users.FindByEmail(ctx, req.Email); err == nil && existing != nil {
		return nil, apperr.Conflict("an account with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	user := &models.User{
		CompanyName:  req.CompanyName,
		ContactName:  req.ContactName,
		Email:        req.Email,
		PasswordHash: string(hash),
		Phone:        req.Phone,
		Address:      req.Address,
		Role:         models.RoleBuyer,
		Approved:     false,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, apperr.Internal(err)
	}

	s.logger.Info("user registered, pending approval",
		slog.String("user", user.ID.Hex()),
		slog.String("email", user.Email),
	)
	return &LoginResult{Token: token, User: user}, nil
}

// Login verifies credentials and issues a bearer token.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		s.logger.Info("login attempt for unknown email", slog.String("email", req.Email))
		return nil, apperr.Unauthenticated("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Info("login failed, wrong password", slog.String("email", req.Email))
		return nil, apperr.Unauthenticated("invalid credentials")
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, apperr.Internal(err)
	}
	return &LoginResult{Token: token, User: user}, nil
}

// Me returns the calling account.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.users.FindByID(ctx, userID)
}

// UpdateProfile applies a self-service patch to the caller's contact
// fields and returns the updated account.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*models.User, error) {
	if err := s.users.UpdateProfile(ctx, userID, update); err != nil {
		return nil, err
	}
	return s.users.FindByID(ctx, userID)
}

// ChangePassword verifies the current password and stores a new hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error {
	if len(req.NewPassword) < 8 {
		return apperr.Validation("invalid password", map[string]string{
			"new_password": "password must be at least 8 characters",
		})
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return apperr.Unauthenticated("current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := s.users.SetPasswordHash(ctx, userID, string(hash)); err != nil {
		return err
	}
	s.logger.Info("password changed", slog.String("user", userID))
	return nil
}

// ListUsers returns accounts for the admin back office.
func (s *AuthService) ListUsers(ctx context.Context, page, limit int) ([]models.User, int64, error) {
	return s.users.FindAll(ctx, page, limit)
}

// Approve flags an account as allowed to place orders.
func (s *AuthService) Approve(ctx context.Context, userID string) (*models.User, error) {
	if err := s.users.SetApproved(ctx, userID, true); err != nil {
		return nil, err
	}
	s.logger.Info("user approved", slog.String("user", userID))
	return s.users.FindByID(ctx, userID)
}

// SetRole changes an account's role.
func (s *AuthService) SetRole(ctx context.Context, userID string, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, apperr.Validation("invalid role", map[string]string{
			"role": "role must be buyer or admin",
		})
	}
	if err := s.users.SetRole(ctx, userID, role); err != nil {
		return nil, err
	}
	return s.users.FindByID(ctx, userID)
}
