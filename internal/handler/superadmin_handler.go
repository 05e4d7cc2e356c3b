package handler

import (
	"errors"
	"net/http"
	"strconv"

	"hotel-service/internal/model"
	"hotel-service/internal/recovery"
	"hotel-service/internal/subscription"
	"hotel-service/pkg/database"
	"hotel-service/pkg/jwtutil"
	"hotel-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// SuperadminLogin authenticates an operator and issues a superadmin token.
func SuperadminLogin(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	admin, err := recovery.AuthenticateSuperadmin(req.Username, req.Password)
	if err != nil {
		log.Warn("Superadmin login failed", zap.String("username", req.Username))
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	token, err := jwtUtil.GenerateSuperadminToken(admin.Username)
	if err != nil {
		log.Error("Failed to generate superadmin token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}

	log.Info("Superadmin logged in", zap.String("username", admin.Username))
	return c.JSON(http.StatusOK, echo.Map{"token": token})
}

// ListTenants returns every tenant with its subscription state. Optional
// ?status= filters by subscription status.
func ListTenants(c echo.Context) error {
	log := logger.FromContext(c)

	q := database.GetDB().Model(&model.Tenant{}).Order("created_at desc")
	if status := c.QueryParam("status"); status != "" {
		q = q.Where("subscription_status = ?", status)
	}

	var tenants []model.Tenant
	if err := q.Find(&tenants).Error; err != nil {
		log.Error("Failed to list tenants", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list tenants"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"count":   len(tenants),
		"tenants": tenants,
	})
}

// AdminResetPassword sets a new owner password for a tenant, chosen by the
// operator.
func AdminResetPassword(c echo.Context) error {
	log := logger.FromContext(c)
	operator := operatorName(c)

	tenantID, err := tenantIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant id"})
	}

	var req struct {
		NewPassword string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	err = recovery.SuperadminResetPassword(tenantID, req.NewPassword, conf.Subscription.MinPasswordLength, operator)
	if err != nil {
		switch {
		case errors.Is(err, recovery.ErrPasswordTooShort):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "password too short"})
		case errors.Is(err, recovery.ErrAccountNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
		}
		log.Error("Superadmin password reset failed", zap.Error(err), zap.Uint("tenant_id", tenantID))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "password reset failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

// IssueTempPassword generates a one-time password for a locked-out owner.
// The plaintext appears in this response and nowhere else.
func IssueTempPassword(c echo.Context) error {
	log := logger.FromContext(c)
	operator := operatorName(c)

	tenantID, err := tenantIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant id"})
	}

	temp, err := recovery.IssueTempPassword(tenantID, operator)
	if err != nil {
		if errors.Is(err, recovery.ErrAccountNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
		}
		log.Error("Temp password issue failed", zap.Error(err), zap.Uint("tenant_id", tenantID))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue password"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"temp_password": temp,
		"message":       "share this with the owner; it will not be shown again",
	})
}

// DeactivateTenant flips a tenant to inactive without deleting anything.
func DeactivateTenant(c echo.Context) error {
	log := logger.FromContext(c)
	operator := operatorName(c)

	tenantID, err := tenantIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant id"})
	}

	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.Bind(&req)
	if req.Reason == "" {
		req.Reason = "deactivated by " + operator
	}

	if err := subscription.Deactivate(tenantID, req.Reason); err != nil {
		if errors.Is(err, subscription.ErrTenantNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
		}
		log.Error("Tenant deactivation failed", zap.Error(err), zap.Uint("tenant_id", tenantID))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "deactivation failed"})
	}

	log.Info("Tenant deactivated",
		zap.Uint("tenant_id", tenantID),
		zap.String("operator", operator),
		zap.String("reason", req.Reason))
	return c.JSON(http.StatusOK, echo.Map{"message": "tenant deactivated"})
}

func operatorName(c echo.Context) string {
	if claims, ok := c.Get("user").(*jwtutil.UserClaims); ok {
		return claims.Email
	}
	return "unknown"
}

func tenantIDParam(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
