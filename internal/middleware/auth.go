package middleware

import (
	"net/http"
	"strings"

	"hotel-service/internal/subscription"
	"hotel-service/pkg/jwtutil"
	"hotel-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// JWTAuth validates bearer tokens and stores the claims in the context.
// Failures are generic on purpose; callers never learn which check failed.
func JWTAuth(jwtUtil *jwtutil.JWTUtil) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				log.Warn("Missing authorization header")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				log.Warn("Invalid authorization header format")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
			}

			claims, err := jwtUtil.ValidateToken(parts[1])
			if err != nil {
				log.Warn("Invalid or expired token", zap.Error(err))
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
			}

			c.Set("user", claims)
			return next(c)
		}
	}
}

// RequireRole rejects callers whose token does not carry the role.
// Applied after JWTAuth.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := c.Get("user").(*jwtutil.UserClaims)
			if !ok || claims.Role != role {
				logger.FromContext(c).Warn("Role check failed",
					zap.String("required_role", role))
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
			}
			return next(c)
		}
	}
}

// RequireTenant ensures the token selects a hotel and stores its id.
// Applied after JWTAuth on owner routes.
func RequireTenant(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, ok := c.Get("user").(*jwtutil.UserClaims)
		if !ok || claims.TenantID == nil {
			logger.FromContext(c).Warn("Tenant context missing from token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
		}
		c.Set("tenant_id", *claims.TenantID)
		return next(c)
	}
}

// SubscriptionRequired gates feature routes on a live trial or
// subscription. Recomputed against the clock on every request; a cached
// answer could outlive the subscription it was computed from.
func SubscriptionRequired(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, ok := c.Get("tenant_id").(uint)
		if !ok {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
		}
		if !subscription.IsSubscriptionActive(tenantID) {
			logger.FromContext(c).Info("Request blocked, subscription not active",
				zap.Uint("tenant_id", tenantID))
			return c.JSON(http.StatusPaymentRequired, echo.Map{
				"error":   "subscription required",
				"message": "Your trial or subscription has ended. Choose a plan to continue.",
			})
		}
		return next(c)
	}
}
