package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Roles carried in tokens issued by this service.
const (
	RoleOwner         = "owner"
	RoleSuperadmin    = "superadmin"
	RolePasswordReset = "password_reset"
)

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SigningKey     string
	ExpirationTime time.Duration
}

// UserClaims represents the JWT claims for authenticated callers. For hotel
// owners TenantID selects the hotel acted on; one email may own several.
type UserClaims struct {
	Email    string `json:"email"`
	TenantID *uint  `json:"tenant_id,omitempty"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTUtil is a utility for JWT token operations
type JWTUtil struct {
	config *JWTConfig
}

// NewJWTUtil creates a new JWT utility with the given configuration
func NewJWTUtil(config *JWTConfig) *JWTUtil {
	return &JWTUtil{
		config: config,
	}
}

// GenerateToken creates a token for a hotel owner acting on one tenant.
func (j *JWTUtil) GenerateToken(email string, tenantID uint) (string, error) {
	return j.generate(email, &tenantID, RoleOwner, j.config.ExpirationTime)
}

// GenerateSuperadminToken creates a token carrying the superadmin role.
func (j *JWTUtil) GenerateSuperadminToken(username string) (string, error) {
	return j.generate(username, nil, RoleSuperadmin, j.config.ExpirationTime)
}

// GeneratePasswordResetToken creates a short-lived token proving a
// successful OTP verification for the email.
func (j *JWTUtil) GeneratePasswordResetToken(email string) (string, error) {
	return j.generate(email, nil, RolePasswordReset, 15*time.Minute)
}

func (j *JWTUtil) generate(email string, tenantID *uint, role string, ttl time.Duration) (string, error) {
	if j.config == nil {
		return "", errors.New("JWT configuration not provided")
	}

	claims := UserClaims{
		Email:    email,
		TenantID: tenantID,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.config.SigningKey))
}

// ValidateToken validates and parses the JWT token
func (j *JWTUtil) ValidateToken(tokenString string) (*UserClaims, error) {
	if j.config == nil {
		return nil, errors.New("JWT configuration not provided")
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&UserClaims{},
		func(token *jwt.Token) (interface{}, error) {
			// Validate the signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(j.config.SigningKey), nil
		},
	)

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
