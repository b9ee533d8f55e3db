package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"papervault/internal/domain"
)

func TestAuth_RegisterLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	res, err := e.auth.Register(ctx, RegisterInput{Name: " Ann ", Email: " Ann@Example.COM ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "Ann", res.User.Name)
	assert.Equal(t, "ann@example.com", res.User.Email)
	assert.Equal(t, domain.RoleUser, res.User.Role)
	assert.NotEqual(t, "secret1", res.User.PasswordHash)
	assert.NotEmpty(t, res.Token)

	id, err := e.auth.VerifySession(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, id.UserID)
	assert.Equal(t, domain.RoleUser, id.Role)

	login, err := e.auth.Login(ctx, "ANN@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)
	id, err = e.auth.VerifySession(login.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, id.UserID)
}

func TestAuth_RegisterErrors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.register(t, "Ann", "ann@example.com")

	cases := []struct {
		name string
		in   RegisterInput
		kind error
	}{
		{"duplicate email", RegisterInput{Name: "X", Email: "ANN@example.com", Password: "secret1"}, domain.ErrDuplicateEmail},
		{"missing name", RegisterInput{Name: "  ", Email: "b@example.com", Password: "secret1"}, domain.ErrValidation},
		{"bad email", RegisterInput{Name: "B", Email: "nope", Password: "secret1"}, domain.ErrValidation},
		{"short password", RegisterInput{Name: "B", Email: "b@example.com", Password: "123"}, domain.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.auth.Register(ctx, tc.in)
			assert.ErrorIs(t, err, tc.kind)
		})
	}
}

func TestAuth_LoginFailuresLookAlike(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.register(t, "Ann", "ann@example.com")

	_, errPw := e.auth.Login(ctx, "ann@example.com", "wrong-pw")
	_, errUser := e.auth.Login(ctx, "ghost@example.com", "secret1")
	assert.ErrorIs(t, errPw, domain.ErrInvalidCredentials)
	assert.ErrorIs(t, errUser, domain.ErrInvalidCredentials)
	assert.Equal(t, errPw.Error(), errUser.Error())
}

func TestAuth_VerifySessionRejectsGarbage(t *testing.T) {
	e := newEnv(t)
	_, err := e.auth.VerifySession("garbage")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestAuth_UpdateProfile(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ann := e.register(t, "Ann", "ann@example.com")
	e.register(t, "Bob", "bob@example.com")

	u, err := e.auth.UpdateProfile(ctx, ann.ID, ProfileInput{Bio: str("hello")})
	require.NoError(t, err)
	assert.Equal(t, "hello", u.Bio)
	assert.Equal(t, "Ann", u.Name)
	assert.Equal(t, "ann@example.com", u.Email)

	me, err := e.auth.Me(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", me.Bio)
	assert.Equal(t, "Ann", me.Name)
	assert.Equal(t, ann.PasswordHash, me.PasswordHash)

	_, err = e.auth.UpdateProfile(ctx, ann.ID, ProfileInput{Email: str("BOB@example.com")})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)

	_, err = e.auth.UpdateProfile(ctx, ann.ID, ProfileInput{Name: str("  ")})
	assert.ErrorIs(t, err, domain.ErrValidation)

	u, err = e.auth.UpdateProfile(ctx, ann.ID, ProfileInput{Email: str("ann2@example.com"), Avatar: str("https://img/a.png")})
	require.NoError(t, err)
	assert.Equal(t, "ann2@example.com", u.Email)
	assert.Equal(t, "https://img/a.png", u.Avatar)
	assert.Equal(t, "hello", u.Bio)

	_, err = e.auth.UpdateProfile(ctx, "missing", ProfileInput{Bio: str("x")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAuth_UpdatePassword(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ann := e.register(t, "Ann", "ann@example.com")

	err := e.auth.UpdatePassword(ctx, ann.ID, "wrong", "newsecret")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	err = e.auth.UpdatePassword(ctx, ann.ID, "secret1", "123")
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, e.auth.UpdatePassword(ctx, ann.ID, "secret1", "newsecret"))
	_, err = e.auth.Login(ctx, "ann@example.com", "secret1")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = e.auth.Login(ctx, "ann@example.com", "newsecret")
	assert.NoError(t, err)
}

// interleavingUsers 在第一次 FindByID 之后执行 after
type interleavingUsers struct {
	UserStore
	once  sync.Once
	after func()
}

func (u *interleavingUsers) FindByID(ctx context.Context, id string) (*domain.User, error) {
	usr, err := u.UserStore.FindByID(ctx, id)
	u.once.Do(u.after)
	return usr, err
}

func TestAuth_UpdateProfileKeepsConcurrentPasswordChange(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ann := e.register(t, "Ann", "ann@example.com")

	users := &interleavingUsers{UserStore: e.users, after: func() {
		require.NoError(t, e.auth.UpdatePassword(ctx, ann.ID, "secret1", "newsecret"))
	}}
	profiles := NewAuthService(users, e.auth.jwt, zap.NewNop())

	u, err := profiles.UpdateProfile(ctx, ann.ID, ProfileInput{Bio: str("hi")})
	require.NoError(t, err)
	assert.Equal(t, "hi", u.Bio)

	_, err = e.auth.Login(ctx, "ann@example.com", "secret1")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = e.auth.Login(ctx, "ann@example.com", "newsecret")
	assert.NoError(t, err)
}
