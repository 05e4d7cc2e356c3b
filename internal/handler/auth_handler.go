package handler

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"hotel-service/internal/model"
	"hotel-service/internal/recovery"
	"hotel-service/pkg/config"
	"hotel-service/pkg/database"
	"hotel-service/pkg/jwtutil"
	"hotel-service/pkg/logger"
	"hotel-service/pkg/mailer"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	conf      *config.Config
	jwtUtil   *jwtutil.JWTUtil
	otpSender mailer.Sender

	slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{2,49}$`)
)

// InitHandlers wires shared dependencies for all handlers in this package.
func InitHandlers(c *config.Config, j *jwtutil.JWTUtil, s mailer.Sender) {
	conf = c
	jwtUtil = j
	otpSender = s
}

// Signup creates a hotel account on a free trial and issues a
// verification OTP. One email may own any number of hotels; the slug is
// the unique, immutable identity.
func Signup(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		HotelName string `json:"hotel_name"`
		HotelSlug string `json:"hotel_slug"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	req.Email = strings.TrimSpace(req.Email)
	req.HotelSlug = strings.ToLower(strings.TrimSpace(req.HotelSlug))
	if req.Email == "" || req.Password == "" || req.HotelName == "" || req.HotelSlug == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "all fields are required"})
	}
	if len(req.Password) < conf.Subscription.MinPasswordLength {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password too short"})
	}
	if !slugPattern.MatchString(req.HotelSlug) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid hotel id"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "signup failed"})
	}

	tenant := model.Tenant{
		Name:               req.HotelName,
		Slug:               req.HotelSlug,
		OwnerEmail:         req.Email,
		PasswordHash:       string(hash),
		IsActive:           true,
		SubscriptionStatus: model.StatusTrial,
		// Set exactly once here; a tenant must never exist with an
		// ambiguous expiration state.
		TrialEndsAt: time.Now().AddDate(0, 0, conf.Subscription.TrialDays),
	}

	err = database.WithRetry(func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			var count int64
			if err := tx.Model(&model.Tenant{}).Where("slug = ?", tenant.Slug).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return errSlugTaken
			}
			return tx.Create(&tenant).Error
		})
	})
	if err != nil {
		if errors.Is(err, errSlugTaken) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "this hotel id is already taken"})
		}
		if errors.Is(err, database.ErrContention) {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "temporarily busy, try again"})
		}
		log.Error("Signup failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "signup failed"})
	}

	log.Info("Tenant created",
		zap.Uint("tenant_id", tenant.ID),
		zap.String("slug", tenant.Slug),
		zap.Time("trial_ends_at", tenant.TrialEndsAt))

	// Verification code; delivery failure must not undo the signup.
	if code, err := recovery.RequestOTP(req.Email, conf.Subscription.OTPExpiry); err == nil {
		if err := otpSender.SendOTP(req.Email, code); err != nil {
			log.Warn("Failed to send verification OTP", zap.Error(err))
		}
	} else {
		log.Warn("Failed to issue verification OTP", zap.Error(err))
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message":       "account created, verification code sent",
		"tenant_id":     tenant.ID,
		"hotel_slug":    tenant.Slug,
		"trial_ends_at": tenant.TrialEndsAt,
	})
}

var errSlugTaken = errors.New("handler: hotel slug already taken")

// Login authenticates a hotel owner. The hotel_slug selects which of the
// owner's hotels the token acts on; with one hotel it may be omitted.
func Login(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		HotelSlug string `json:"hotel_slug,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	var tenants []model.Tenant
	if err := database.GetDB().Where("owner_email = ?", req.Email).Find(&tenants).Error; err != nil || len(tenants) == 0 {
		log.Warn("Login failed, unknown email")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	// All of an owner's hotels share credentials.
	if err := bcrypt.CompareHashAndPassword([]byte(tenants[0].PasswordHash), []byte(req.Password)); err != nil {
		log.Warn("Login failed, wrong password", zap.String("email", req.Email))
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	var selected *model.Tenant
	if req.HotelSlug != "" {
		for i := range tenants {
			if tenants[i].Slug == req.HotelSlug {
				selected = &tenants[i]
				break
			}
		}
		if selected == nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
	} else if len(tenants) == 1 {
		selected = &tenants[0]
	} else {
		// Multi-hotel owner must pick one.
		hotels := make([]echo.Map, 0, len(tenants))
		for _, t := range tenants {
			hotels = append(hotels, echo.Map{"slug": t.Slug, "name": t.Name})
		}
		return c.JSON(http.StatusOK, echo.Map{"select_hotel": true, "hotels": hotels})
	}

	token, err := jwtUtil.GenerateToken(req.Email, selected.ID)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}

	log.Info("Owner logged in",
		zap.Uint("tenant_id", selected.ID),
		zap.String("slug", selected.Slug))
	return c.JSON(http.StatusOK, echo.Map{
		"token":      token,
		"tenant_id":  selected.ID,
		"hotel_slug": selected.Slug,
	})
}

// ForgotPassword issues a recovery OTP. The response never reveals
// whether the email exists.
func ForgotPassword(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	neutral := echo.Map{"message": "if the email exists, a code has been sent"}

	var count int64
	if err := database.GetDB().Model(&model.Tenant{}).Where("owner_email = ?", req.Email).Count(&count).Error; err != nil || count == 0 {
		return c.JSON(http.StatusOK, neutral)
	}

	code, err := recovery.RequestOTP(req.Email, conf.Subscription.OTPExpiry)
	if err != nil {
		log.Error("Failed to issue OTP", zap.Error(err))
		return c.JSON(http.StatusOK, neutral)
	}
	if err := otpSender.SendOTP(req.Email, code); err != nil {
		log.Warn("Failed to send OTP", zap.Error(err))
	}
	return c.JSON(http.StatusOK, neutral)
}

// VerifyOTP consumes a recovery code and returns a short-lived reset
// token for the password-reset step.
func VerifyOTP(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if err := recovery.VerifyOTP(req.Email, req.Code); err != nil {
		if errors.Is(err, recovery.ErrInvalidOrExpiredOTP) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or expired code"})
		}
		if errors.Is(err, database.ErrContention) {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "temporarily busy, try again"})
		}
		log.Error("OTP verification failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "verification failed"})
	}

	resetToken, err := jwtUtil.GeneratePasswordResetToken(req.Email)
	if err != nil {
		log.Error("Failed to generate reset token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "verification failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":     "code verified",
		"reset_token": resetToken,
	})
}

// ResetPassword sets a new owner password. Requires the reset token from
// a successful OTP verification.
func ResetPassword(c echo.Context) error {
	log := logger.FromContext(c)

	claims, ok := c.Get("user").(*jwtutil.UserClaims)
	if !ok || claims.Role != jwtutil.RolePasswordReset {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	err := recovery.ResetOwnerPassword(claims.Email, req.Password, conf.Subscription.MinPasswordLength)
	if err != nil {
		switch {
		case errors.Is(err, recovery.ErrPasswordTooShort):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "password too short"})
		case errors.Is(err, recovery.ErrAccountNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
		case errors.Is(err, database.ErrContention):
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "temporarily busy, try again"})
		}
		log.Error("Password reset failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset failed"})
	}

	log.Info("Password reset via OTP", zap.String("email", claims.Email))
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}
