package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"footwear-wholesale/internal/apperr"
	"footwear-wholesale/internal/auth"
	"footwear-wholesale/internal/models"
)

type memUsers struct {
	mu   sync.Mutex
	byID map[string]*models.User
}

func newMemUsers(users ...*models.User) *memUsers {
	m := &memUsers{byID: map[string]*models.User{}}
	for _, u := range users {
		m.byID[u.ID.Hex()] = u
	}
	return m
}

func (m *memUsers) Create(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == user.Email {
			return apperr.Conflict("an account with this email already exists")
		}
	}
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.byID[user.ID.Hex()] = user
	return nil
}

func (m *memUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, apperr.NotFound("user not found")
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperr.NotFound("user not found")
}

func (m *memUsers) FindAll(_ context.Context, page, limit int) ([]models.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.User{}
	for _, u := range m.byID {
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (m *memUsers) SetApproved(_ context.Context, id string, approved bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return apperr.NotFound("user not found")
	}
	u.Approved = approved
	return nil
}

func (m *memUsers) SetRole(_ context.Context, id string, role models.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return apperr.NotFound("user not found")
	}
	u.Role = role
	return nil
}

func (m *memUsers) UpdateProfile(_ context.Context, id string, update models.ProfileUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return apperr.NotFound("user not found")
	}
	if update.CompanyName != nil {
		u.CompanyName = *update.CompanyName
	}
	if update.ContactName != nil {
		u.ContactName = *update.ContactName
	}
	if update.Phone != nil {
		u.Phone = *update.Phone
	}
	if update.Address != nil {
		u.Address = *update.Address
	}
	return nil
}

func (m *memUsers) SetPasswordHash(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return apperr.NotFound("user not found")
	}
	u.PasswordHash = hash
	return nil
}

func newAuthService(users UserStore) *AuthService {
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	return NewAuthService(users, tokens, nil)
}

func TestRegisterAndLogin(t *testing.T) {
	users := newMemUsers()
	svc := newAuthService(users)

	result, err := svc.Register(context.Background(), RegisterRequest{
		CompanyName: "Acme Shoes",
		Email:       "alice@acme.test",
		Password:    "Password123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, models.RoleBuyer, result.User.Role)
	assert.False(t, result.User.Approved, "new accounts start unapproved")

	// duplicate email
	_, err = svc.Register(context.Background(), RegisterRequest{
		CompanyName: "Other Co",
		Email:       "alice@acme.test",
		Password:    "Password123",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))

	login, err := svc.Login(context.Background(), LoginRequest{Email: "alice@acme.test", Password: "Password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, login.Token)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "alice@acme.test", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnauthenticated, apperr.CodeOf(err))

	_, err = svc.Login(context.Background(), LoginRequest{Email: "nobody@acme.test", Password: "Password123"})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnauthenticated, apperr.CodeOf(err))
}

func TestRegisterValidation(t *testing.T) {
	svc := newAuthService(newMemUsers())

	_, err := svc.Register(context.Background(), RegisterRequest{
		CompanyName: "Acme Shoes",
		Email:       "alice@acme.test",
		Password:    "short",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Details, "password")
}

func TestApproveUnlocksOrdering(t *testing.T) {
	users := newMemUsers()
	svc := newAuthService(users)

	result, err := svc.Register(context.Background(), RegisterRequest{
		CompanyName: "Acme Shoes",
		Email:       "alice@acme.test",
		Password:    "Password123",
	})
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), result.User.ID.Hex())
	require.NoError(t, err)
	assert.True(t, approved.Approved)
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	user := &models.User{ID: primitive.NewObjectID(), Email: "a@b.test", Role: models.RoleAdmin}

	signed, err := tokens.Generate(user)
	require.NoError(t, err)

	claims, err := tokens.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	_, err = tokens.Verify(signed + "tampered")
	require.Error(t, err)

	other := auth.NewTokenManager("other-secret", time.Hour)
	_, err = other.Verify(signed)
	require.Error(t, err, "token signed with a different secret must fail")
}

func TestUpdateProfile(t *testing.T) {
	users := newMemUsers()
	svc := newAuthService(users)

	result, err := svc.Register(context.Background(), RegisterRequest{
		CompanyName: "Acme Shoes",
		Email:       "alice@acme.test",
		Password:    "Password123",
	})
	require.NoError(t, err)

	company := "Acme Footwear Group"
	phone := "555-0100"
	updated, err := svc.UpdateProfile(context.Background(), result.User.ID.Hex(), models.ProfileUpdate{
		CompanyName: &company,
		Phone:       &phone,
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Footwear Group", updated.CompanyName)
	assert.Equal(t, "555-0100", updated.Phone)
	assert.Equal(t, "alice@acme.test", updated.Email, "email is not self-service editable")
}

func TestChangePassword(t *testing.T) {
	users := newMemUsers()
	svc := newAuthService(users)

	result, err := svc.Register(context.Background(), RegisterRequest{
		CompanyName: "Acme Shoes",
		Email:       "alice@acme.test",
		Password:    "Password123",
	})
	require.NoError(t, err)
	id := result.User.ID.Hex()

	// wrong current password
	err = svc.ChangePassword(context.Background(), id, ChangePasswordRequest{
		CurrentPassword: "nope",
		NewPassword:     "NewPassword456",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnauthenticated, apperr.CodeOf(err))

	// new password too short
	err = svc.ChangePassword(context.Background(), id, ChangePasswordRequest{
		CurrentPassword: "Password123",
		NewPassword:     "short",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	err = svc.ChangePassword(context.Background(), id, ChangePasswordRequest{
		CurrentPassword: "Password123",
		NewPassword:     "NewPassword456",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "alice@acme.test", Password: "Password123"})
	require.Error(t, err, "old password stops working")

	login, err := svc.Login(context.Background(), LoginRequest{Email: "alice@acme.test", Password: "NewPassword456"})
	require.NoError(t, err)
	assert.NotEmpty(t, login.Token)
}

func TestSetRole(t *testing.T) {
	users := newMemUsers()
	svc := newAuthService(users)

	result, err := svc.Register(context.Background(), RegisterRequest{
		CompanyName: "Acme Shoes",
		Email:       "alice@acme.test",
		Password:    "Password123",
	})
	require.NoError(t, err)

	updated, err := svc.SetRole(context.Background(), result.User.ID.Hex(), models.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, updated.Role.IsAdmin())

	_, err = svc.SetRole(context.Background(), result.User.ID.Hex(), models.Role("superuser"))
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}
