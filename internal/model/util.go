package model

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

// GenerateOTPCode creates a 6-digit numeric code using crypto/rand.
func GenerateOTPCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		panic(err)
	}
	return fmt.Sprintf("%06d", n.Int64())
}

// GenerateTempPassword creates a random one-time password for the
// superadmin force-reset flow.
func GenerateTempPassword() string {
	b := make([]byte, 9)
	_, err := rand.Read(b)
	if err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
