package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"hotel-service/internal/model"
	"hotel-service/internal/payment"
	"hotel-service/internal/subscription"
	"hotel-service/pkg/client"
	"hotel-service/pkg/database"
	"hotel-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var (
	gateway  *client.RazorpayClient
	verifier *payment.Verifier
)

// InitPaymentHandlers wires the gateway client and verifier. gateway may
// be nil when no credentials are configured; order creation then fails
// closed while the rest of the service keeps working.
func InitPaymentHandlers(g *client.RazorpayClient, v *payment.Verifier) {
	gateway = g
	verifier = v
}

// CreateOrder creates a gateway order for a subscription purchase. Fails
// with the existing plan details when an active subscription blocks it.
func CreateOrder(c echo.Context) error {
	log := logger.FromContext(c)
	tenantID := c.Get("tenant_id").(uint)

	var req struct {
		Plan string `json:"plan"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	plan, ok := subscription.Plans[req.Plan]
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid plan"})
	}

	dup, err := subscription.HasBlockingSubscription(database.GetDB(), tenantID)
	if err != nil {
		log.Error("Subscription check failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create order"})
	}
	if dup != nil {
		log.Warn("Order blocked by existing subscription",
			zap.Uint("tenant_id", tenantID),
			zap.String("existing_plan", dup.ExistingPlan))
		return c.JSON(http.StatusConflict, echo.Map{
			"error":         "duplicate subscription",
			"message":       fmt.Sprintf("An active %s subscription already exists (expires %s).", dup.ExistingPlan, dup.ActiveUntil.Format("2006-01-02")),
			"existing_plan": dup.ExistingPlan,
			"active_until":  dup.ActiveUntil,
		})
	}

	if gateway == nil {
		log.Error("Payment gateway not configured")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "payments are not available"})
	}

	order, err := gateway.CreateOrder(&client.OrderRequest{
		Amount:   plan.Price * 100, // paise
		Currency: "INR",
		Receipt:  fmt.Sprintf("hotel_%d_%d", tenantID, time.Now().Unix()),
		Notes: map[string]string{
			"tenant_id": fmt.Sprintf("%d", tenantID),
			"plan":      req.Plan,
		},
	})
	if err != nil {
		log.Error("Gateway order creation failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to create order"})
	}

	log.Info("Gateway order created",
		zap.Uint("tenant_id", tenantID),
		zap.String("order_id", order.ID),
		zap.String("plan", req.Plan))
	return c.JSON(http.StatusOK, echo.Map{
		"order_id": order.ID,
		"amount":   order.Amount,
		"currency": order.Currency,
		"key_id":   gateway.KeyID,
	})
}

// VerifyPayment validates a gateway confirmation and activates the
// subscription. Safe to call repeatedly with the same order id.
func VerifyPayment(c echo.Context) error {
	log := logger.FromContext(c)
	tenantID := c.Get("tenant_id").(uint)

	var req struct {
		OrderID   string `json:"order_id"`
		PaymentID string `json:"payment_id"`
		Signature string `json:"signature"`
		Plan      string `json:"plan"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" || req.Plan == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing payment information"})
	}

	result, err := verifier.Verify(&payment.VerifyRequest{
		TenantID:  tenantID,
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
		Plan:      req.Plan,
	})
	if err != nil {
		var dup *subscription.DuplicateSubscriptionError
		switch {
		case errors.Is(err, payment.ErrSignatureMismatch):
			// Generic on purpose; do not tell a forger which check failed.
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment verification failed"})
		case errors.Is(err, subscription.ErrInvalidPlan):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid plan"})
		case errors.As(err, &dup):
			return c.JSON(http.StatusConflict, echo.Map{
				"error":         "duplicate subscription",
				"message":       fmt.Sprintf("An active %s subscription already exists.", dup.ExistingPlan),
				"existing_plan": dup.ExistingPlan,
				"active_until":  dup.ActiveUntil,
			})
		case errors.Is(err, database.ErrContention):
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "temporarily busy, try again"})
		}
		log.Error("Payment verification failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "payment verification failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":      "payment verified, subscription active",
		"plan":         result.Plan,
		"active_until": result.ActiveUntil,
	})
}

// SubscriptionStatus reports the tenant's current subscription state,
// recomputed against the clock.
func SubscriptionStatus(c echo.Context) error {
	log := logger.FromContext(c)
	tenantID := c.Get("tenant_id").(uint)

	st, err := subscription.GetStatus(tenantID)
	if err != nil {
		if errors.Is(err, subscription.ErrTenantNotFound) {
			return c.JSON(http.StatusOK, echo.Map{"has_subscription": false})
		}
		log.Error("Failed to load subscription status", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load status"})
	}
	return c.JSON(http.StatusOK, st)
}

// Overview is a small subscription-gated dashboard summary.
func Overview(c echo.Context) error {
	log := logger.FromContext(c)
	tenantID := c.Get("tenant_id").(uint)

	db := database.GetDB()
	var orders, items, tables int64
	if err := db.Model(&model.Order{}).Where("tenant_id = ?", tenantID).Count(&orders).Error; err != nil {
		log.Error("Failed to count orders", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load overview"})
	}
	db.Model(&model.MenuItem{}).Where("tenant_id = ?", tenantID).Count(&items)
	db.Model(&model.RestaurantTable{}).Where("tenant_id = ?", tenantID).Count(&tables)

	return c.JSON(http.StatusOK, echo.Map{
		"orders":     orders,
		"menu_items": items,
		"tables":     tables,
	})
}
