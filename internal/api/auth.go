package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/safety-engine/internal/models"
)

// Headers read in "none" auth mode, and by platform owners targeting a tenant.
const (
	HeaderTenantID = "X-Tenant-ID"
	HeaderRole     = "X-Role"
	HeaderSubject  = "X-Subject"
)

const (
	localTenant  = "tenant_id"
	localRole    = "role"
	localSubject = "subject"
)

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	Mode   string // "jwt" or "none"
	Secret []byte // HS256 signing secret
}

// Claims are the JWT claims the engine consumes. Tokens are issued elsewhere.
type Claims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
}

// parseToken verifies an HS256 token and returns its claims.
func parseToken(secret []byte, tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func isProbePath(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics"
}

// NewAuthMiddleware resolves the caller's tenant and role. In jwt mode they
// come from a verified bearer token; in none mode from request headers.
func NewAuthMiddleware(cfg AuthConfig, logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if isProbePath(path) {
			return c.Next()
		}

		if cfg.Mode == "none" {
			tenant := c.Get(HeaderTenantID, c.Query("tenant"))
			role := c.Get(HeaderRole, c.Query("role"))
			if tenant == "" || role == "" {
				return problemResponse(c, fiber.StatusUnauthorized,
					"missing_identity", "Unauthorized",
					"X-Tenant-ID and X-Role headers are required")
			}
			setPrincipal(c, tenant, models.Role(role), c.Get(HeaderSubject, "anonymous"))
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return problemResponse(c, fiber.StatusUnauthorized,
				"missing_auth", "Unauthorized",
				"Authorization header is required")
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return problemResponse(c, fiber.StatusUnauthorized,
				"invalid_auth_scheme", "Unauthorized",
				"Authorization header must use Bearer scheme")
		}

		claims, err := parseToken(cfg.Secret, strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			logger.Warn().
				Err(err).
				Str("path", path).
				Str("method", c.Method()).
				Msg("unauthorized request: invalid token")
			return problemResponse(c, fiber.StatusUnauthorized,
				"invalid_token", "Unauthorized",
				"Invalid or expired token")
		}
		if claims.Role == "" {
			return problemResponse(c, fiber.StatusUnauthorized,
				"invalid_token", "Unauthorized",
				"Token role is required")
		}

		role := models.Role(claims.Role)
		tenant := claims.TenantID
		// Platform owners are not bound to one tenant.
		if role == models.RolePlatformOwner {
			if t := c.Get(HeaderTenantID); t != "" {
				tenant = t
			}
		}
		if tenant == "" {
			return problemResponse(c, fiber.StatusUnauthorized,
				"invalid_token", "Unauthorized",
				"Token tenant binding is required")
		}

		setPrincipal(c, tenant, role, claims.Subject)
		return c.Next()
	}
}

func setPrincipal(c *fiber.Ctx, tenant string, role models.Role, subject string) {
	c.Locals(localTenant, tenant)
	c.Locals(localRole, role)
	c.Locals(localSubject, subject)
}

func tenantOf(c *fiber.Ctx) string {
	t, _ := c.Locals(localTenant).(string)
	return t
}

func roleOf(c *fiber.Ctx) models.Role {
	r, _ := c.Locals(localRole).(models.Role)
	return r
}

func subjectOf(c *fiber.Ctx) string {
	s, _ := c.Locals(localSubject).(string)
	return s
}

// requireRole admits only callers holding one of roles.
func requireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !models.ContainsRole(roles, roleOf(c)) {
			return problemResponse(c, fiber.StatusForbidden,
				"insufficient_role", "Forbidden",
				"Insufficient permissions for this operation")
		}
		return c.Next()
	}
}
