package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
	"time"

	"parley/internal/models"
	"parley/internal/observability"
	"parley/internal/repository"

	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/crypto/bcrypt"
)

// AuthService implements registration, login, token rotation, and Google
// sign-in on top of the user repository.
type AuthService struct {
	userRepo repository.UserRepository
	avatars  *AvatarService
	google   GoogleVerifier
	tokens   TokenConfig
}

// NewAuthService creates a new auth service.
func NewAuthService(userRepo repository.UserRepository, avatars *AvatarService, google GoogleVerifier, tokens TokenConfig) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		avatars:  avatars,
		google:   google,
		tokens:   tokens,
	}
}

// AvatarInput carries the avatar supplied at registration: either raw file
// bytes (routed through the avatar store) or a pre-formed URL.
type AvatarInput struct {
	URL  string
	File []byte
}

// RegisterInput is the input for Register.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	GoogleID string
	Avatar   AvatarInput
}

// Register creates a new account and issues its first token pair. The avatar
// is mandatory; nothing is persisted when validation or the avatar upload
// fails.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, TokenPair, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, TokenPair{}, models.NewValidationError("Name is required")
	}
	email := normalizeEmail(in.Email)
	if (email == "" || in.Password == "") && in.GoogleID == "" {
		return nil, TokenPair{}, models.NewValidationError("Name, email, and password are required")
	}

	avatar, err := s.resolveAvatar(ctx, in.Avatar)
	if err != nil {
		return nil, TokenPair{}, err
	}

	existing, err := s.lookup(ctx, email, in.GoogleID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if existing != nil {
		return nil, TokenPair{}, models.NewConflictError("User already exists")
	}

	user := &models.User{
		Email:    email,
		GoogleID: in.GoogleID,
		Avatar:   avatar,
		Name:     strings.TrimSpace(in.Name),
	}
	if in.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, TokenPair{}, models.NewInternalError(err)
		}
		user.Password = string(hashed)
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, TokenPair{}, err
	}

	pair, err := s.issueTokenPair(ctx, user, "register")
	if err != nil {
		return nil, TokenPair{}, err
	}
	return user, pair, nil
}

// LoginInput is the input for Login. GoogleID takes precedence over Email as
// the lookup key; Google logins skip the password check.
type LoginInput struct {
	Email    string
	GoogleID string
	Password string
}

// Login authenticates an existing account and issues a fresh token pair.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*models.User, TokenPair, error) {
	email := normalizeEmail(in.Email)
	if (email == "" || in.Password == "") && in.GoogleID == "" {
		return nil, TokenPair{}, models.NewValidationError("All fields are required")
	}

	user, err := s.lookup(ctx, email, in.GoogleID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if user == nil {
		return nil, TokenPair{}, models.NewNotFoundError("User")
	}

	if in.GoogleID == "" {
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
			return nil, TokenPair{}, models.NewUnauthorizedError("Invalid credentials")
		}
	}

	pair, err := s.issueTokenPair(ctx, user, "login")
	if err != nil {
		return nil, TokenPair{}, err
	}
	return user, pair, nil
}

// Refresh validates a presented refresh token against both its signature and
// the user's stored token, then rotates the pair. A token superseded by a
// later rotation fails even if its signature is still valid.
func (s *AuthService) Refresh(ctx context.Context, presented string) (*models.User, TokenPair, error) {
	if presented == "" {
		return nil, TokenPair{}, models.NewUnauthorizedError("Unauthorized request")
	}

	userID, err := parseSubject(presented, s.tokens.RefreshSecret)
	if err != nil {
		return nil, TokenPair{}, models.NewUnauthorizedError("Invalid or expired refresh token")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, TokenPair{}, models.NewUnauthorizedError("Invalid or expired refresh token")
	}
	if user.RefreshToken != presented {
		return nil, TokenPair{}, models.NewUnauthorizedError("Invalid or expired refresh token")
	}

	pair, err := s.issueTokenPair(ctx, user, "refresh")
	if err != nil {
		return nil, TokenPair{}, err
	}
	return user, pair, nil
}

// GoogleLogin verifies a Google ID-token assertion and signs the caller in,
// creating or linking the account as needed.
func (s *AuthService) GoogleLogin(ctx context.Context, credential string) (*models.User, TokenPair, error) {
	if credential == "" {
		return nil, TokenPair{}, models.NewValidationError("Google credential is required")
	}

	identity, err := s.google.Verify(ctx, credential)
	if err != nil {
		return nil, TokenPair{}, models.NewUnauthorizedError("Invalid Google credentials")
	}

	email := normalizeEmail(identity.Email)
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, TokenPair{}, err
	}

	switch {
	case user == nil:
		avatar := identity.Picture
		if avatar == "" {
			avatar = placeholderAvatarURL(identity.Name)
		}
		// Google accounts never use the password, but the document keeps a
		// random hashed placeholder so the field is populated.
		hashed, err := bcrypt.GenerateFromPassword([]byte(randomPassword()), bcrypt.DefaultCost)
		if err != nil {
			return nil, TokenPair{}, models.NewInternalError(err)
		}
		user = &models.User{
			Email:    email,
			Password: string(hashed),
			GoogleID: identity.Subject,
			Avatar:   avatar,
			Name:     identity.Name,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, TokenPair{}, err
		}
	case user.GoogleID == "":
		backfill := ""
		if identity.Picture != "" && user.Avatar == "" {
			backfill = identity.Picture
		}
		if err := s.userRepo.LinkGoogleAccount(ctx, user.ID, identity.Subject, backfill); err != nil {
			return nil, TokenPair{}, err
		}
		user.GoogleID = identity.Subject
		if backfill != "" {
			user.Avatar = backfill
		}
	}

	pair, err := s.issueTokenPair(ctx, user, "google")
	if err != nil {
		return nil, TokenPair{}, err
	}
	return user, pair, nil
}

// Logout clears the stored refresh token, revoking any copy still held by
// other clients. Cookie clearing is the transport layer's job.
func (s *AuthService) Logout(ctx context.Context, userID bson.ObjectID) error {
	return s.userRepo.SetRefreshToken(ctx, userID, "")
}

// VerifyAccess resolves an access token to its user. Used by the auth
// middleware.
func (s *AuthService) VerifyAccess(ctx context.Context, token string) (*models.User, error) {
	userID, err := parseSubject(token, s.tokens.AccessSecret)
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid access token")
	}
	return user, nil
}

func (s *AuthService) issueTokenPair(ctx context.Context, user *models.User, flow string) (TokenPair, error) {
	now := time.Now()
	access, err := signAccessToken(s.tokens, user.ID, user.Email, user.Name, now)
	if err != nil {
		return TokenPair{}, models.NewInternalError(err)
	}
	refresh, err := signRefreshToken(s.tokens, user.ID, now)
	if err != nil {
		return TokenPair{}, models.NewInternalError(err)
	}

	// Persisting the new refresh token implicitly revokes the previous one.
	if err := s.userRepo.SetRefreshToken(ctx, user.ID, refresh); err != nil {
		return TokenPair{}, err
	}
	user.RefreshToken = refresh

	observability.TokenPairsIssued.WithLabelValues(flow).Inc()
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// resolveAvatar turns the registration avatar input into a hosted URL.
func (s *AuthService) resolveAvatar(ctx context.Context, in AvatarInput) (string, error) {
	switch {
	case len(in.File) > 0:
		return s.avatars.Upload(ctx, in.File)
	case hasURLScheme(in.URL):
		return in.URL, nil
	default:
		return "", models.NewValidationError("Avatar is required. Please upload a profile picture.")
	}
}

func (s *AuthService) lookup(ctx context.Context, email, googleID string) (*models.User, error) {
	if googleID != "" {
		return s.userRepo.GetByGoogleID(ctx, googleID)
	}
	return s.userRepo.GetByEmail(ctx, email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hasURLScheme(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func placeholderAvatarURL(name string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=random"
}

func randomPassword() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return hex.EncodeToString(buf)
}

// isNotFound reports whether err is the taxonomy's NOT_FOUND.
func isNotFound(err error) bool {
	var appErr *models.AppError
	return errors.As(err, &appErr) && appErr.Code == models.CodeNotFound
}
