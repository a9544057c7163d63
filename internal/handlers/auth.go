package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/concordance/backend/internal/middleware"
	"github.com/anonto42/concordance/backend/internal/models"
	"github.com/anonto42/concordance/backend/internal/repositories"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// TokenVerifier checks Firebase ID tokens; *auth.Client satisfies it
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// TokenSettings controls the lifetime of issued JWTs
type TokenSettings struct {
	Secret string
	// Lifetime of a single token
	Lifetime time.Duration
	// RefreshWindow bounds how long after the first issue a token may still be refreshed
	RefreshWindow time.Duration
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	userRepository repositories.UserRepository
	firebaseAuth   TokenVerifier
	tokens         TokenSettings
}

// NewAuthHandler creates a new AuthHandler. firebaseAuth may be nil, which disables Firebase sign-in.
func NewAuthHandler(userRepo repositories.UserRepository, firebaseAuth TokenVerifier, tokens TokenSettings) *AuthHandler {
	return &AuthHandler{
		userRepository: userRepo,
		firebaseAuth:   firebaseAuth,
		tokens:         tokens,
	}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/signup/", h.Signup)
	g.POST("/token/", h.ObtainToken)
	g.POST("/token/refresh/", h.RefreshToken)
	if h.firebaseAuth != nil {
		g.POST("/firebase/", h.FirebaseLogin)
	}
}

// HashPassword hashes a plain password for storage
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Signup handles local user registration with username and password
func (h *AuthHandler) Signup(c echo.Context) error {
	var req models.SignupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	if _, err := h.userRepository.GetUserByUsername(ctx, req.Username); err == nil {
		return fieldError("username", "A user with that username already exists.")
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return storeError(err, "User")
	}

	hashedPassword, err := HashPassword(req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to hash password")
	}

	user := &models.User{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  hashedPassword,
	}
	if err := h.userRepository.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConstraintViolation) {
			return fieldError("username", "A user with that username already exists.")
		}
		return storeError(err, "User")
	}

	token, err := h.generateJWT(user, time.Now().Add(h.tokens.RefreshWindow))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token after signup")
	}

	logrus.WithField("username", user.Username).Info("User signed up")
	return c.JSON(http.StatusCreated, echo.Map{"user": user, "token": token})
}

// ObtainToken exchanges username and password for a JWT
func (h *AuthHandler) ObtainToken(c echo.Context) error {
	var req models.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := Authenticate(c.Request().Context(), h.userRepository, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, "No active account found with the given credentials")
		}
		return storeError(err, "User")
	}

	token, err := h.generateJWT(user, time.Now().Add(h.tokens.RefreshWindow))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}
	return c.JSON(http.StatusOK, echo.Map{"token": token})
}

// ErrInvalidCredentials covers both an unknown username and a wrong password
var ErrInvalidCredentials = errors.New("invalid credentials")

// Authenticate checks a username and password against the stored bcrypt hash
func Authenticate(ctx context.Context, users repositories.UserRepository, username, password string) (*models.User, error) {
	user, err := users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.Password == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// RefreshTokenRequest carries the token to be refreshed
type RefreshTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// RefreshToken issues a fresh token for a possibly expired one while its refresh window is open
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	var req RefreshTokenRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	claims, err := middleware.ParseToken(req.Token, h.tokens.Secret, jwt.WithoutClaimsValidation())
	if err != nil || claims.RefreshExpiresAt == nil || !time.Now().Before(claims.RefreshExpiresAt.Time) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Token is invalid or expired")
	}

	user, err := h.userRepository.GetUserByID(c.Request().Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "Token is invalid or expired")
		}
		return storeError(err, "User")
	}

	token, err := h.generateJWT(user, claims.RefreshExpiresAt.Time)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}
	return c.JSON(http.StatusOK, echo.Map{"token": token})
}

// FirebaseLoginRequest defines the request body for Firebase login
type FirebaseLoginRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

// FirebaseLogin verifies a Firebase ID token and issues a local JWT, creating or linking the account
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	var req FirebaseLoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	token, err := h.firebaseAuth.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Firebase ID token")
	}

	user, err := h.firebaseUser(ctx, token)
	if err != nil {
		return storeError(err, "User")
	}

	localJWT, err := h.generateJWT(user, time.Now().Add(h.tokens.RefreshWindow))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate local JWT")
	}
	return c.JSON(http.StatusOK, echo.Map{"token": localJWT})
}

// firebaseUser finds the account for a verified token: by Firebase UID, then by
// unlinked email when the provider has verified it, else a new account.
// Unverified emails are never linked or stored.
func (h *AuthHandler) firebaseUser(ctx context.Context, token *auth.Token) (*models.User, error) {
	uid := token.UID
	user, err := h.userRepository.GetUserByFirebaseUID(ctx, uid)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	email, _ := token.Claims["email"].(string)
	if verified, _ := token.Claims["email_verified"].(bool); !verified {
		email = ""
	}
	if email != "" {
		user, err = h.userRepository.GetUserByEmail(ctx, email)
		switch {
		case err == nil && user.FirebaseUID == nil:
			user.FirebaseUID = &uid
			if err := h.userRepository.UpdateUser(ctx, user); err != nil {
				return nil, err
			}
			logrus.WithField("username", user.Username).Info("Linked Firebase account")
			return user, nil
		case err != nil && !errors.Is(err, repositories.ErrNotFound):
			return nil, err
		}
	}

	user = &models.User{
		Username:    h.firebaseUsername(ctx, email, uid),
		Email:       email,
		FirebaseUID: &uid,
	}
	if name, ok := token.Claims["name"].(string); ok {
		user.FirstName = name
	}
	if err := h.userRepository.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	logrus.WithField("username", user.Username).Info("Created account from Firebase sign-in")
	return user, nil
}

func (h *AuthHandler) firebaseUsername(ctx context.Context, email, uid string) string {
	if local, _, ok := strings.Cut(email, "@"); ok && local != "" && len(local) <= 150 {
		if _, err := h.userRepository.GetUserByUsername(ctx, local); errors.Is(err, repositories.ErrNotFound) {
			return local
		}
	}
	return "firebase-" + uid
}

// generateJWT generates a JWT for user that may be refreshed until refreshUntil
func (h *AuthHandler) generateJWT(user *models.User, refreshUntil time.Time) (string, error) {
	now := time.Now()
	claims := &models.JwtCustomClaims{
		UserID:           user.ID,
		Username:         user.Username,
		RefreshExpiresAt: jwt.NewNumericDate(refreshUntil),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(h.tokens.Lifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.tokens.Secret))
}
