package identity

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"taskboard-backend/internal/api"
	"taskboard-backend/internal/config"
	"taskboard-backend/internal/store"
)

// TokenPair is the response returned after successful login or refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Handler handles authentication endpoints.
type Handler struct {
	store    *store.Store
	provider *Provider
	cfg      config.IdentityConfig
}

func NewHandler(s *store.Store, p *Provider, cfg config.IdentityConfig) *Handler {
	return &Handler{store: s, provider: p, cfg: cfg}
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(c *fiber.Ctx) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return api.NewAppError("INVALID_PAYLOAD", 400, "Invalid request body")
	}
	if body.Email == "" || body.Password == "" {
		return api.UnauthorizedError("Email and password are required")
	}

	ctx := c.Context()

	user, err := h.findUserByEmail(ctx, body.Email)
	if err != nil {
		return api.UnauthorizedError("Invalid email or password")
	}

	if !boolValue(user["active"]) {
		return api.UnauthorizedError("Account is disabled")
	}

	passwordHash, _ := user["password_hash"].(string)
	if !CheckPassword(body.Password, passwordHash) {
		return api.UnauthorizedError("Invalid email or password")
	}

	userID, _ := user["id"].(string)
	email, _ := user["email"].(string)
	groups := parseGroups(user["member_of"])

	pair, err := h.generateTokenPair(ctx, userID, email, groups)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"data": pair})
}

// Refresh handles POST /api/auth/refresh.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&body); err != nil {
		return api.NewAppError("INVALID_PAYLOAD", 400, "Invalid request body")
	}
	if body.RefreshToken == "" {
		return api.UnauthorizedError("Refresh token is required")
	}

	ctx := c.Context()

	row, err := store.QueryRow(ctx, h.store.DB,
		`SELECT rt.id, rt.user_id, rt.expires_at, u.email, u.member_of, u.active
		 FROM refresh_tokens rt
		 JOIN users u ON u.id = rt.user_id
		 WHERE rt.token = $1`, body.RefreshToken)
	if err != nil {
		return api.UnauthorizedError("Invalid refresh token")
	}

	expiresAt, _ := row["expires_at"].(time.Time)
	if time.Now().After(expiresAt) {
		_, _ = store.Exec(ctx, h.store.DB,
			"DELETE FROM refresh_tokens WHERE token = $1", body.RefreshToken)
		return api.UnauthorizedError("Refresh token expired")
	}

	if !boolValue(row["active"]) {
		return api.UnauthorizedError("Account is disabled")
	}

	// Rotation: the used refresh token is single-use.
	tokenID, _ := row["id"].(string)
	_, _ = store.Exec(ctx, h.store.DB,
		"DELETE FROM refresh_tokens WHERE id = $1", tokenID)

	userID, _ := row["user_id"].(string)
	email, _ := row["email"].(string)
	groups := parseGroups(row["member_of"])

	pair, err := h.generateTokenPair(ctx, userID, email, groups)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"data": pair})
}

// Logout handles POST /api/auth/logout.
func (h *Handler) Logout(c *fiber.Ctx) error {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&body); err != nil {
		return api.NewAppError("INVALID_PAYLOAD", 400, "Invalid request body")
	}
	if body.RefreshToken == "" {
		return api.UnauthorizedError("Refresh token is required")
	}

	_, _ = store.Exec(c.Context(), h.store.DB,
		"DELETE FROM refresh_tokens WHERE token = $1", body.RefreshToken)

	return c.JSON(fiber.Map{"message": "Logged out"})
}

// JWKSHandler serves the provider's public key set.
func (h *Handler) JWKSHandler(c *fiber.Ctx) error {
	return c.JSON(h.provider.JWKS())
}

// RegisterRoutes registers identity routes on the given Fiber app. None of
// them sit behind the authorization gateway.
func RegisterRoutes(app *fiber.App, h *Handler) {
	app.Get("/.well-known/jwks.json", h.JWKSHandler)
	auth := app.Group("/api/auth")
	auth.Post("/login", h.Login)
	auth.Post("/refresh", h.Refresh)
	auth.Post("/logout", h.Logout)
}

// --- helpers ---

func (h *Handler) findUserByEmail(ctx context.Context, email string) (map[string]any, error) {
	return store.QueryRow(ctx, h.store.DB,
		"SELECT id, email, password_hash, member_of, active FROM users WHERE email = $1", email)
}

func (h *Handler) generateTokenPair(ctx context.Context, userID, email string, groups []string) (*TokenPair, error) {
	accessToken, err := h.provider.SignAccessToken(userID, email, groups)
	if err != nil {
		return nil, api.NewAppError("INTERNAL_ERROR", 500, "Failed to generate access token")
	}

	refreshToken := GenerateRefreshToken()
	expiresAt := time.Now().Add(h.cfg.RefreshTokenTTL)

	pb := h.store.Dialect.NewParamBuilder()
	query := "INSERT INTO refresh_tokens (id, token, user_id, expires_at) VALUES (" +
		pb.Add(uuid.New().String()) + ", " + pb.Add(refreshToken) + ", " + pb.Add(userID) + ", " + pb.Add(expiresAt) + ")"
	if _, err := store.Exec(ctx, h.store.DB, query, pb.Params()...); err != nil {
		return nil, api.NewAppError("INTERNAL_ERROR", 500, "Failed to store refresh token")
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
