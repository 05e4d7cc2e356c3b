package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"hotel-service/internal/model"
	"hotel-service/internal/subscription"
	"hotel-service/pkg/database"
	"hotel-service/prometheus"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrSignatureMismatch is returned when the gateway signature does not
// match the locally computed digest. The attempt is still recorded as a
// failed PaymentRecord for audit.
var ErrSignatureMismatch = errors.New("payment: signature mismatch")

// Verifier validates gateway payment confirmations and applies them to
// tenant state exactly once per gateway order id.
type Verifier struct {
	secret string
}

// NewVerifier creates a Verifier using the gateway's shared secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

// VerifyRequest is one claimed payment confirmation.
type VerifyRequest struct {
	TenantID  uint
	OrderID   string
	PaymentID string
	Signature string
	Plan      string
}

// VerifyResult reports the applied (or previously applied) subscription.
type VerifyResult struct {
	Plan           string
	ActiveUntil    time.Time
	AlreadyApplied bool
}

// checkSignature recomputes the HMAC-SHA256 digest over
// "order_id|payment_id" and compares in constant time.
func (v *Verifier) checkSignature(orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Verify authenticates and applies a payment confirmation. The idempotency
// check, duplicate-subscription gate, payment record, and state transition
// all run inside one transaction, so two concurrent callbacks for the same
// tenant cannot both pass the gate, and a crash can never leave a verified
// payment without its subscription.
func (v *Verifier) Verify(req *VerifyRequest) (*VerifyResult, error) {
	log := zap.L().With(
		zap.Uint("tenant_id", req.TenantID),
		zap.String("order_id", req.OrderID),
	)

	if !v.checkSignature(req.OrderID, req.PaymentID, req.Signature) {
		log.Warn("Payment signature mismatch")
		prometheus.PaymentVerificationCounter.WithLabelValues("signature_mismatch").Inc()
		// Record the attempt even though it failed; forensics needs it.
		recordErr := database.WithRetry(func(db *gorm.DB) error {
			return db.Create(&model.PaymentRecord{
				TenantID:         req.TenantID,
				GatewayOrderID:   req.OrderID,
				GatewayPaymentID: req.PaymentID,
				Status:           model.PaymentFailed,
			}).Error
		})
		if recordErr != nil {
			log.Error("Failed to record rejected payment attempt", zap.Error(recordErr))
		}
		return nil, ErrSignatureMismatch
	}

	if !subscription.ValidPlan(req.Plan) {
		prometheus.PaymentVerificationCounter.WithLabelValues("invalid_plan").Inc()
		return nil, subscription.ErrInvalidPlan
	}

	var result VerifyResult
	err := database.WithRetry(func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			// Duplicate webhook delivery: the order was already applied,
			// return the prior outcome without touching state again.
			var prior model.PaymentRecord
			err := tx.Where("gateway_order_id = ? AND status = ?", req.OrderID, model.PaymentVerified).
				First(&prior).Error
			if err == nil {
				result = VerifyResult{
					Plan:           prior.Plan,
					ActiveUntil:    prior.PeriodEnd,
					AlreadyApplied: true,
				}
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			var tenant model.Tenant
			if err := tx.First(&tenant, req.TenantID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return subscription.ErrTenantNotFound
				}
				return err
			}

			// The gate runs inside the same transaction as the write so a
			// concurrent callback that commits first blocks this one.
			dup, err := subscription.HasBlockingSubscription(tx, req.TenantID)
			if err != nil {
				return err
			}
			if dup != nil {
				return dup
			}

			now := time.Now()
			if err := subscription.Activate(tx, &tenant, req.Plan, req.PaymentID, now); err != nil {
				return err
			}

			plan := subscription.Plans[req.Plan]
			record := model.PaymentRecord{
				TenantID:         req.TenantID,
				GatewayOrderID:   req.OrderID,
				GatewayPaymentID: req.PaymentID,
				Amount:           plan.Price * 100,
				Plan:             req.Plan,
				PeriodEnd:        *tenant.SubscriptionEnd,
				Status:           model.PaymentVerified,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}

			result = VerifyResult{
				Plan:        req.Plan,
				ActiveUntil: *tenant.SubscriptionEnd,
			}
			return nil
		})
	})
	if err != nil {
		var dup *subscription.DuplicateSubscriptionError
		if errors.As(err, &dup) {
			prometheus.PaymentVerificationCounter.WithLabelValues("duplicate_subscription").Inc()
		} else {
			prometheus.PaymentVerificationCounter.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	if result.AlreadyApplied {
		log.Info("Payment already applied, returning prior result")
		prometheus.PaymentVerificationCounter.WithLabelValues("replay").Inc()
	} else {
		log.Info("Payment verified and subscription activated",
			zap.String("plan", result.Plan),
			zap.Time("active_until", result.ActiveUntil))
		prometheus.PaymentVerificationCounter.WithLabelValues("verified").Inc()
	}
	return &result, nil
}
