package server

import (
	"io"
	"time"

	"parley/internal/models"
	"parley/internal/service"

	"github.com/gofiber/fiber/v2"
)

const authCookieTTL = 7 * 24 * time.Hour

// Register handles new account creation. The request is a multipart form so
// the avatar can be sent either as a file part or as an avatar URL field.
func (s *Server) Register(c *fiber.Ctx) error {
	in := service.RegisterInput{
		Name:     c.FormValue("name"),
		Email:    c.FormValue("email"),
		Password: c.FormValue("password"),
		GoogleID: c.FormValue("googleId"),
		Avatar:   service.AvatarInput{URL: c.FormValue("avatar")},
	}

	if fileHeader, err := c.FormFile("avatar"); err == nil && fileHeader != nil {
		file, err := fileHeader.Open()
		if err != nil {
			return models.RespondWithError(c, models.NewValidationError("Unable to read avatar file"))
		}
		content, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return models.RespondWithError(c, models.NewValidationError("Unable to read avatar file"))
		}
		in.Avatar.File = content
	}

	user, pair, err := s.authService.Register(c.Context(), in)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	s.setTokenCookies(c, pair)
	return models.RespondWithData(c, fiber.StatusCreated, "User registered successfully", fiber.Map{
		"user":         user.Public(),
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	GoogleID string `json:"googleId"`
}

// Login handles password and linked-Google sign-in.
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	user, pair, err := s.authService.Login(c.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		GoogleID: req.GoogleID,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}

	s.setTokenCookies(c, pair)
	return models.RespondWithData(c, fiber.StatusOK, "Login successful", fiber.Map{
		"user":         user.Public(),
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

// RefreshToken rotates the token pair using the refreshToken cookie.
func (s *Server) RefreshToken(c *fiber.Ctx) error {
	_, pair, err := s.authService.Refresh(c.Context(), c.Cookies("refreshToken"))
	if err != nil {
		return models.RespondWithError(c, err)
	}

	s.setTokenCookies(c, pair)
	return models.RespondWithData(c, fiber.StatusOK, "Token refreshed", fiber.Map{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

type googleLoginRequest struct {
	Credential string `json:"credential"`
}

// GoogleLogin signs the caller in with a Google ID-token assertion, creating
// or linking the account as needed.
func (s *Server) GoogleLogin(c *fiber.Ctx) error {
	var req googleLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	user, pair, err := s.authService.GoogleLogin(c.Context(), req.Credential)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	s.setTokenCookies(c, pair)
	return models.RespondWithData(c, fiber.StatusOK, "Login successful", fiber.Map{
		"user":         user.Public(),
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

// Logout revokes the stored refresh token and clears the auth cookies.
func (s *Server) Logout(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return models.RespondWithError(c, models.NewUnauthorizedError("Authorization required"))
	}

	if err := s.authService.Logout(c.Context(), user.ID); err != nil {
		return models.RespondWithError(c, err)
	}

	s.clearTokenCookies(c)
	return models.RespondWithData(c, fiber.StatusOK, "Logged out successfully", nil)
}

// CurrentUser returns the authenticated user's public profile.
func (s *Server) CurrentUser(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return models.RespondWithError(c, models.NewUnauthorizedError("Authorization required"))
	}
	return models.RespondWithData(c, fiber.StatusOK, "Current user", fiber.Map{
		"user": user.Public(),
	})
}

// setTokenCookies mirrors the token pair into httpOnly cookies. SameSite None
// because the browser client is served from a different origin.
func (s *Server) setTokenCookies(c *fiber.Ctx, pair service.TokenPair) {
	expires := time.Now().Add(authCookieTTL)
	c.Cookie(&fiber.Cookie{
		Name:     "accessToken",
		Value:    pair.AccessToken,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteNoneMode,
	})
	c.Cookie(&fiber.Cookie{
		Name:     "refreshToken",
		Value:    pair.RefreshToken,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteNoneMode,
	})
}

func (s *Server) clearTokenCookies(c *fiber.Ctx) {
	expired := time.Now().Add(-time.Hour)
	for _, name := range []string{"accessToken", "refreshToken"} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			Expires:  expired,
			HTTPOnly: true,
			Secure:   true,
			SameSite: fiber.CookieSameSiteNoneMode,
		})
	}
}
