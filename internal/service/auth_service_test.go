package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"parley/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/crypto/bcrypt"
)

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn       func(context.Context, bson.ObjectID) (*models.User, error)
	getByEmailFn    func(context.Context, string) (*models.User, error)
	getByGoogleIDFn func(context.Context, string) (*models.User, error)
	createFn        func(context.Context, *models.User) error
	linkGoogleFn    func(context.Context, bson.ObjectID, string, string) error
	setRefreshFn    func(context.Context, bson.ObjectID, string) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return s.getByGoogleIDFn(ctx, googleID)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) LinkGoogleAccount(ctx context.Context, id bson.ObjectID, googleID, avatar string) error {
	return s.linkGoogleFn(ctx, id, googleID, avatar)
}
func (s *userRepoStub) SetRefreshToken(ctx context.Context, id bson.ObjectID, token string) error {
	return s.setRefreshFn(ctx, id, token)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, _ bson.ObjectID) (*models.User, error) {
			return nil, models.NewNotFoundError("User")
		},
		getByEmailFn:    func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		getByGoogleIDFn: func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		createFn: func(_ context.Context, u *models.User) error {
			if u.ID.IsZero() {
				u.ID = bson.NewObjectID()
			}
			return nil
		},
		linkGoogleFn: func(_ context.Context, _ bson.ObjectID, _, _ string) error { return nil },
		setRefreshFn: func(_ context.Context, _ bson.ObjectID, _ string) error { return nil },
	}
}

// googleVerifierStub is a stub for GoogleVerifier.
type googleVerifierStub struct {
	verifyFn func(context.Context, string) (*GoogleIdentity, error)
}

func (s *googleVerifierStub) Verify(ctx context.Context, credential string) (*GoogleIdentity, error) {
	return s.verifyFn(ctx, credential)
}

func testTokenConfig() TokenConfig {
	return TokenConfig{
		AccessSecret:  "test-access-secret-test-access-secret",
		RefreshSecret: "test-refresh-secret-test-refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    168 * time.Hour,
	}
}

func newTestAuthService(repo *userRepoStub, google GoogleVerifier) *AuthService {
	return NewAuthService(repo, NewAvatarService(&avatarStoreStub{
		putFn: func(_ context.Context, _ []byte) (string, error) {
			return "https://i.imgur.com/test.webp", nil
		},
	}), google, testTokenConfig())
}

func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertAppError(t, err, models.CodeValidation)
}

func TestAuthService_Register_Validation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("missing name", func(t *testing.T) {
		t.Parallel()
		svc := newTestAuthService(noopUserRepo(), nil)
		_, _, err := svc.Register(ctx, RegisterInput{
			Email:    "a@b.com",
			Password: "secret",
			Avatar:   AvatarInput{URL: "https://example.com/a.png"},
		})
		assertValidationError(t, err)
	})

	t.Run("missing credentials", func(t *testing.T) {
		t.Parallel()
		svc := newTestAuthService(noopUserRepo(), nil)
		_, _, err := svc.Register(ctx, RegisterInput{
			Name:   "Ada",
			Avatar: AvatarInput{URL: "https://example.com/a.png"},
		})
		assertValidationError(t, err)
	})

	t.Run("missing avatar aborts before any write", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		created := false
		repo.createFn = func(_ context.Context, _ *models.User) error {
			created = true
			return nil
		}
		svc := newTestAuthService(repo, nil)
		_, _, err := svc.Register(ctx, RegisterInput{
			Name:     "Ada",
			Email:    "ada@example.com",
			Password: "secret",
		})
		assertValidationError(t, err)
		assert.False(t, created)
	})
}

func TestAuthService_Register_Success(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo := noopUserRepo()
	var storedRefresh string
	repo.setRefreshFn = func(_ context.Context, _ bson.ObjectID, token string) error {
		storedRefresh = token
		return nil
	}
	svc := newTestAuthService(repo, nil)

	user, pair, err := svc.Register(ctx, RegisterInput{
		Name:     "Ada",
		Email:    "ADA@Example.com",
		Password: "secret",
		Avatar:   AvatarInput{URL: "https://example.com/a.png"},
	})
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, "https://example.com/a.png", user.Avatar)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("secret")))

	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, pair.RefreshToken, storedRefresh)

	// The issued access token resolves back to the created user.
	parsed, err := parseSubject(pair.AccessToken, testTokenConfig().AccessSecret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, parsed)
}

func TestAuthService_Register_Conflict(t *testing.T) {
	t.Parallel()

	repo := noopUserRepo()
	repo.getByEmailFn = func(_ context.Context, _ string) (*models.User, error) {
		return &models.User{ID: bson.NewObjectID()}, nil
	}
	svc := newTestAuthService(repo, nil)

	_, _, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Ada",
		Email:    "ada@example.com",
		Password: "secret",
		Avatar:   AvatarInput{URL: "https://example.com/a.png"},
	})
	assertAppError(t, err, models.CodeConflict)
}

func TestAuthService_Login(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	hashed, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.DefaultCost)
	require.NoError(t, err)
	existing := &models.User{
		ID:       bson.NewObjectID(),
		Email:    "ada@example.com",
		Password: string(hashed),
		Name:     "Ada",
	}

	repoWithUser := func() *userRepoStub {
		repo := noopUserRepo()
		repo.getByEmailFn = func(_ context.Context, email string) (*models.User, error) {
			if email == existing.Email {
				u := *existing
				return &u, nil
			}
			return nil, nil
		}
		return repo
	}

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		svc := newTestAuthService(repoWithUser(), nil)
		user, pair, err := svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "secret"})
		require.NoError(t, err)
		assert.Equal(t, existing.ID, user.ID)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)
	})

	t.Run("wrong password", func(t *testing.T) {
		t.Parallel()
		svc := newTestAuthService(repoWithUser(), nil)
		_, _, err := svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "nope"})
		assertAppError(t, err, models.CodeUnauthorized)
	})

	t.Run("unknown user", func(t *testing.T) {
		t.Parallel()
		svc := newTestAuthService(repoWithUser(), nil)
		_, _, err := svc.Login(ctx, LoginInput{Email: "ghost@example.com", Password: "secret"})
		assertAppError(t, err, models.CodeNotFound)
	})

	t.Run("missing fields", func(t *testing.T) {
		t.Parallel()
		svc := newTestAuthService(repoWithUser(), nil)
		_, _, err := svc.Login(ctx, LoginInput{Email: "ada@example.com"})
		assertValidationError(t, err)
	})

	t.Run("google login skips password check", func(t *testing.T) {
		t.Parallel()
		repo := repoWithUser()
		repo.getByGoogleIDFn = func(_ context.Context, googleID string) (*models.User, error) {
			if googleID == "goog-123" {
				u := *existing
				u.GoogleID = googleID
				return &u, nil
			}
			return nil, nil
		}
		svc := newTestAuthService(repo, nil)
		user, _, err := svc.Login(ctx, LoginInput{GoogleID: "goog-123"})
		require.NoError(t, err)
		assert.Equal(t, existing.ID, user.ID)
	})
}

func TestAuthService_Refresh(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg := testTokenConfig()

	user := &models.User{ID: bson.NewObjectID(), Email: "ada@example.com", Name: "Ada"}
	current, err := signRefreshToken(cfg, user.ID, time.Now())
	require.NoError(t, err)
	user.RefreshToken = current

	repo := noopUserRepo()
	repo.getByIDFn = func(_ context.Context, id bson.ObjectID) (*models.User, error) {
		if id == user.ID {
			u := *user
			return &u, nil
		}
		return nil, models.NewNotFoundError("User")
	}
	svc := newTestAuthService(repo, nil)

	t.Run("rotates the pair", func(t *testing.T) {
		_, pair, err := svc.Refresh(ctx, current)
		require.NoError(t, err)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)
	})

	t.Run("empty token", func(t *testing.T) {
		_, _, err := svc.Refresh(ctx, "")
		assertAppError(t, err, models.CodeUnauthorized)
	})

	t.Run("superseded token is rejected", func(t *testing.T) {
		// Valid signature, but no longer the stored token.
		old, err := signRefreshToken(cfg, user.ID, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		_, _, err = svc.Refresh(ctx, old)
		assertAppError(t, err, models.CodeUnauthorized)
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		access, err := signAccessToken(cfg, user.ID, user.Email, user.Name, time.Now())
		require.NoError(t, err)
		_, _, err = svc.Refresh(ctx, access)
		assertAppError(t, err, models.CodeUnauthorized)
	})
}

func TestAuthService_GoogleLogin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	identity := &GoogleIdentity{
		Subject: "goog-123",
		Email:   "ada@example.com",
		Name:    "Ada Lovelace",
	}
	verifier := &googleVerifierStub{
		verifyFn: func(_ context.Context, credential string) (*GoogleIdentity, error) {
			if credential != "good-credential" {
				return nil, errors.New("invalid token")
			}
			return identity, nil
		},
	}

	t.Run("creates account with placeholder avatar", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		var created *models.User
		repo.createFn = func(_ context.Context, u *models.User) error {
			u.ID = bson.NewObjectID()
			created = u
			return nil
		}
		svc := newTestAuthService(repo, verifier)

		user, pair, err := svc.GoogleLogin(ctx, "good-credential")
		require.NoError(t, err)
		require.NotNil(t, created)
		assert.Equal(t, "goog-123", created.GoogleID)
		assert.Contains(t, created.Avatar, "ui-avatars.com")
		assert.NotEmpty(t, created.Password)
		assert.Equal(t, created.ID, user.ID)
		assert.NotEmpty(t, pair.AccessToken)
	})

	t.Run("links existing email account", func(t *testing.T) {
		t.Parallel()
		existing := &models.User{ID: bson.NewObjectID(), Email: "ada@example.com", Name: "Ada"}
		repo := noopUserRepo()
		repo.getByEmailFn = func(_ context.Context, email string) (*models.User, error) {
			u := *existing
			return &u, nil
		}
		var linkedID bson.ObjectID
		var linkedGoogleID string
		repo.linkGoogleFn = func(_ context.Context, id bson.ObjectID, googleID, _ string) error {
			linkedID = id
			linkedGoogleID = googleID
			return nil
		}
		svc := newTestAuthService(repo, verifier)

		user, _, err := svc.GoogleLogin(ctx, "good-credential")
		require.NoError(t, err)
		assert.Equal(t, existing.ID, linkedID)
		assert.Equal(t, "goog-123", linkedGoogleID)
		assert.Equal(t, "goog-123", user.GoogleID)
	})

	t.Run("invalid credential", func(t *testing.T) {
		t.Parallel()
		svc := newTestAuthService(noopUserRepo(), verifier)
		_, _, err := svc.GoogleLogin(ctx, "bad-credential")
		assertAppError(t, err, models.CodeUnauthorized)
	})

	t.Run("empty credential", func(t *testing.T) {
		t.Parallel()
		svc := newTestAuthService(noopUserRepo(), verifier)
		_, _, err := svc.GoogleLogin(ctx, "")
		assertValidationError(t, err)
	})
}

func TestAuthService_Logout_ClearsStoredRefreshToken(t *testing.T) {
	t.Parallel()

	repo := noopUserRepo()
	cleared := false
	userID := bson.NewObjectID()
	repo.setRefreshFn = func(_ context.Context, id bson.ObjectID, token string) error {
		if id == userID && token == "" {
			cleared = true
		}
		return nil
	}
	svc := newTestAuthService(repo, nil)

	require.NoError(t, svc.Logout(context.Background(), userID))
	assert.True(t, cleared)
}

func TestAuthService_VerifyAccess(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg := testTokenConfig()

	user := &models.User{ID: bson.NewObjectID(), Email: "ada@example.com", Name: "Ada"}
	repo := noopUserRepo()
	repo.getByIDFn = func(_ context.Context, id bson.ObjectID) (*models.User, error) {
		if id == user.ID {
			u := *user
			return &u, nil
		}
		return nil, models.NewNotFoundError("User")
	}
	svc := newTestAuthService(repo, nil)

	t.Run("valid token", func(t *testing.T) {
		token, err := signAccessToken(cfg, user.ID, user.Email, user.Name, time.Now())
		require.NoError(t, err)
		got, err := svc.VerifyAccess(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := signAccessToken(cfg, user.ID, user.Email, user.Name, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		_, err = svc.VerifyAccess(ctx, token)
		assertAppError(t, err, models.CodeUnauthorized)
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		token, err := signRefreshToken(cfg, user.ID, time.Now())
		require.NoError(t, err)
		_, err = svc.VerifyAccess(ctx, token)
		assertAppError(t, err, models.CodeUnauthorized)
	})
}
