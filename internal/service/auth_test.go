package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"social-service/internal/config"
	"social-service/internal/models"
	"social-service/internal/storage"
	"social-service/mocks"
)

func testCfg() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:       "unit-secret",
			AccessTokenTTL:  30 * time.Second,
			RefreshTokenTTL: 24 * time.Hour,
			Issuer:          "social-service",
			Audience:        []string{"social-clients"},
		},
		Limits: config.LimitsConfig{
			Default: 20,
			Max:     100,
		},
	}
}

func newSvc(t *testing.T) (*Service, *mocks.MockStorage, *gomock.Controller) {
	t.Helper()
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStorage(ctrl)
	svc := New(st, testCfg())
	return svc, st, ctrl
}

func mustHashPW(t *testing.T, pw string) string {
	t.Helper()
	h, err := hashPassword(pw)
	require.NoError(t, err)
	return h
}

func TestRegister_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	ctx := context.Background()

	// Email нормализуется к нижнему регистру до вставки.
	st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, u *models.User) (string, error) {
			require.Equal(t, "user@example.com", u.Email)
			require.Equal(t, "alice", u.Username)
			require.Equal(t, models.RoleUser, u.Role)
			require.NotEmpty(t, u.PasswordHash)
			require.NotEqual(t, "Abcdef1!", u.PasswordHash)
			return "68b1f00000000000000000aa", nil
		})

	id, err := svc.Register(ctx, "alice", "User@Example.com", "Abcdef1!")
	require.NoError(t, err)
	require.Equal(t, "68b1f00000000000000000aa", id)
}

func TestRegister_InvalidInput(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	_, err := svc.Register(context.Background(), "", "u@e.com", "Abcdef1!")
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.Register(context.Background(), "alice", "not-an-email", "Abcdef1!")
	require.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.Register(context.Background(), "alice", "u@e.com", "")
	require.ErrorIs(t, err, ErrEmptyPassword)

	_, err = svc.Register(context.Background(), "alice", "u@e.com", "short")
	require.ErrorIs(t, err, ErrWeakPassword)

	// Нет цифры.
	_, err = svc.Register(context.Background(), "alice", "u@e.com", "Abcdefgh")
	require.ErrorIs(t, err, ErrWeakPassword)
}

func TestRegister_EmailTaken_FromUniqueIndex(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	// Дубликат определяется на вставке уникальным индексом,
	// предварительного чтения нет.
	st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).
		Return("", storage.ErrAlreadyExists)

	_, err := svc.Register(context.Background(), "alice", "user@example.com", "Abcdef1!")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegister_SaveError_Propagated(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).
		Return("", errors.New("insert failed"))

	_, err := svc.Register(context.Background(), "alice", "user@example.com", "Abcdef1!")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrEmailTaken)
}

func TestLogin_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	ctx := context.Background()
	email := "user@example.com"
	pw := "Abcdef1!"
	user := &models.User{
		ID:           "68b1f00000000000000000aa",
		Username:     "alice",
		Email:        email,
		PasswordHash: mustHashPW(t, pw),
		Role:         models.RoleUser,
	}

	var savedHash string
	st.EXPECT().UserByEmail(gomock.Any(), email).Return(user, nil)
	st.EXPECT().SetRefreshToken(gomock.Any(), user.ID, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, hash string, expiresAt time.Time) error {
			savedHash = hash
			require.WithinDuration(t, time.Now().Add(svc.cfg.Auth.RefreshTokenTTL), expiresAt, 2*time.Second)
			return nil
		})

	claims, tp, err := svc.Login(ctx, email, pw)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, "alice", claims.Username)
	require.NotEmpty(t, tp.AccessToken)
	require.NotEmpty(t, tp.RefreshToken)

	// В хранилище ушёл хэш, а не plain-значение.
	require.NotEqual(t, tp.RefreshToken, savedHash)
	require.Equal(t, hashRefreshToken(tp.RefreshToken), savedHash)

	require.WithinDuration(t, time.Now().Add(svc.cfg.Auth.AccessTokenTTL), tp.AccessExpiresAt, 2*time.Second)
}

func TestLogin_InvalidEmail_OrEmptyPassword(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	_, _, err := svc.Login(context.Background(), "bad", "Abcdef1!")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(context.Background(), "user@example.com", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnknownEmail_OrWrongPassword_SameError(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	// Неизвестный email и неверный пароль неразличимы для клиента.
	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").
		Return(nil, storage.ErrNotFound)

	_, _, err := svc.Login(context.Background(), "user@example.com", "Abcdef1!")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	user := &models.User{
		ID:           "68b1f00000000000000000aa",
		Email:        "user@example.com",
		PasswordHash: mustHashPW(t, "Abcdef1!"),
	}
	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(user, nil)

	_, _, err = svc.Login(context.Background(), "user@example.com", "WRONG1!aa")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_StorageErrors_Propagated(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").
		Return(nil, errors.New("db problem"))

	_, _, err := svc.Login(context.Background(), "user@example.com", "Abcdef1!")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrInvalidCredentials)

	user := &models.User{
		ID:           "68b1f00000000000000000aa",
		Email:        "user@example.com",
		PasswordHash: mustHashPW(t, "Abcdef1!"),
	}
	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(user, nil)
	st.EXPECT().SetRefreshToken(gomock.Any(), user.ID, gomock.Any(), gomock.Any()).
		Return(errors.New("db write fail"))

	_, _, err = svc.Login(context.Background(), "user@example.com", "Abcdef1!")
	require.Error(t, err)
}

func TestVerifyAccess_RoundTrip(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	ctx := context.Background()
	claims := models.Claims{
		UserID:   "68b1f00000000000000000aa",
		Email:    "user@example.com",
		Username: "alice",
		Role:     models.RoleUser,
	}

	at, err := svc.issueAccessToken(ctx, claims, time.Now().UTC())
	require.NoError(t, err)

	got, err := svc.VerifyAccess(ctx, at)
	require.NoError(t, err)
	require.Equal(t, claims, got)
}

func TestVerifyAccess_InvalidAndExpired(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	_, err := svc.VerifyAccess(context.Background(), "not-a-jwt")
	require.ErrorIs(t, err, ErrInvalidToken)

	// Просроченный: leeway 5s, поэтому сдвигаем выпуск далеко в прошлое.
	claims := models.Claims{UserID: "68b1f00000000000000000aa", Email: "e@e.com"}
	at, err := svc.issueAccessToken(context.Background(), claims, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)

	_, err = svc.VerifyAccess(context.Background(), at)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyAccess_WrongSecret(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	other := New(mocks.NewMockStorage(ctrl), func() config.Config {
		cfg := testCfg()
		cfg.Auth.JWTSecret = "other-secret"
		return cfg
	}())

	at, err := other.issueAccessToken(context.Background(),
		models.Claims{UserID: "68b1f00000000000000000aa"}, time.Now().UTC())
	require.NoError(t, err)

	_, err = svc.VerifyAccess(context.Background(), at)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyIdentity_NotConfigured(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	_, err := svc.VerifyIdentity(context.Background(), "some-token")
	require.Error(t, err)
}
