package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estatehub-http-service/internal/domain/models"
)

func newUserService(e *env) InterfaceUserService {
	return NewUserService(e.db, e.cfg, NewJWTService(e.cfg, e.db))
}

func TestRegisterAndLogin(t *testing.T) {
	e := newEnv(t)
	svc := newUserService(e)

	res, err := svc.Register(&RegisterRequest{Name: " Alice ", Email: "Alice@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "alice@example.com", res.User.Email)
	assert.Equal(t, "Alice", res.User.Name)

	_, err = svc.Register(&RegisterRequest{Name: "A2", Email: "alice@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrUserAlreadyExist)

	login, err := svc.Login("ALICE@example.com", "secret1")
	require.NoError(t, err)
	claims, err := NewJWTService(e.cfg, e.db).ExtractClaims(login.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.Equal(t, RoleUser, claims.Role)

	_, err = svc.Login("alice@example.com", "wrong-pass")
	assert.ErrorIs(t, err, ErrPasswordIncorrect)
	_, err = svc.Login("nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrPasswordIncorrect)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc := newUserService(newEnv(t))
	_, err := svc.Register(&RegisterRequest{Name: "Bob", Email: "bob@example.com", Password: "123"})
	assert.ErrorIs(t, err, ErrInvalidParam)
}

func TestDisabledUserCannotLogin(t *testing.T) {
	e := newEnv(t)
	svc := newUserService(e)
	res, err := svc.Register(&RegisterRequest{Name: "Carol", Email: "carol@example.com", Password: "secret1"})
	require.NoError(t, err)

	status := models.UserStatusDisabled
	_, err = svc.UpdateUser(res.User.ID, &UpdateUserRequest{Status: &status})
	require.NoError(t, err)

	_, err = svc.Login("carol@example.com", "secret1")
	assert.ErrorIs(t, err, ErrUserDisabled)

	bad := "suspended"
	_, err = svc.UpdateUser(res.User.ID, &UpdateUserRequest{Status: &bad})
	assert.ErrorIs(t, err, ErrInvalidParam)
}

func TestEnsureAdminExistsIsIdempotent(t *testing.T) {
	e := newEnv(t)
	svc := newUserService(e)

	require.NoError(t, svc.EnsureAdminExists("Admin@EstateHub.local", "admin123"))
	require.NoError(t, svc.EnsureAdminExists("other@estatehub.local", "admin123"))

	var admins []models.User
	require.NoError(t, e.db.Where("is_admin = ?", true).Find(&admins).Error)
	require.Len(t, admins, 1)
	assert.Equal(t, "admin@estatehub.local", admins[0].Email)

	login, err := svc.Login("admin@estatehub.local", "admin123")
	require.NoError(t, err)
	assert.True(t, login.User.IsAdmin)
}

func TestGetProfileListsMemberships(t *testing.T) {
	e := newEnv(t)
	u := e.user("dave")
	c := e.community("c1")
	e.communityMember(c.ID, u.ID, models.CommunityRoleMember)
	h := e.household(nil, "h1")
	e.householdMember(h.ID, u.ID, models.HouseholdRoleOwner)

	profile, err := newUserService(e).GetProfile(u.ID)
	require.NoError(t, err)
	assert.Len(t, profile.Communities, 1)
	assert.Len(t, profile.Households, 1)
	assert.Empty(t, profile.Buildings)

	_, err = newUserService(e).GetProfile(9999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestListUsersSearch(t *testing.T) {
	e := newEnv(t)
	e.user("erin")
	e.user("frank")

	users, res, err := newUserService(e).ListUsers("eri", models.PaginationQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Total)
	assert.Equal(t, "erin", users[0].Name)
	assert.Equal(t, 10, res.PageSize)
}
