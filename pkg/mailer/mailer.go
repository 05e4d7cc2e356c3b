package mailer

import (
	"hotel-service/pkg/config"

	"go.uber.org/zap"
)

// Sender delivers recovery codes to owners. Actual SMTP delivery is an
// external collaborator; the core only needs somewhere to hand the code.
type Sender interface {
	SendOTP(recipient, code string) error
}

// DevSender logs codes instead of sending them. Used whenever mail
// credentials are not configured, so local setups can still complete the
// OTP flow from the server log.
type DevSender struct{}

func (DevSender) SendOTP(recipient, code string) error {
	zap.L().Warn("Email not configured, OTP not sent",
		zap.String("recipient", recipient),
		zap.String("otp_for_testing", code))
	return nil
}

// New returns the sender for this deployment. The SMTP transport is an
// external collaborator injected by the hosting environment; the built-in
// default only logs, and never fails the recovery flow.
func New(cfg *config.MailConfig) Sender {
	if cfg.Configured() {
		zap.L().Info("Email sender configured", zap.String("sender", cfg.SenderEmail))
	} else {
		zap.L().Warn("SENDER_EMAIL / SENDER_PASSWORD not set, OTP codes will only be logged")
	}
	return DevSender{}
}
