package routes

import (
	"encoding/json"
	"log"
	"math"
	"os"
	"strings"
	"time"

	"stayease-server/models"
	"stayease-server/services"
	"stayease-server/storage"
	"stayease-server/utils"

	"github.com/kataras/iris/v12"
)

type CreateOrderRequest struct {
	BookingID uint `json:"bookingId" validate:"required"`
}

// CreatePaymentOrder registers a gateway order for a booking's frozen total.
// The booking is only marked order-initiated here, never paid.
func CreatePaymentOrder(ctx iris.Context) {
	userID, _, ok := utils.ContextUser(ctx)
	if !ok {
		ctx.StatusCode(iris.StatusUnauthorized)
		ctx.JSON(iris.Map{"message": "User not authenticated"})
		return
	}

	var request CreateOrderRequest
	if err := ctx.ReadJSON(&request); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var booking models.Booking
	if err := storage.DB.First(&booking, request.BookingID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}
	if booking.UserID != userID {
		utils.CreateForbidden(ctx)
		return
	}

	amountPaise := int64(math.Round(booking.Amount.Total * 100))
	gateway := services.NewPaymentGateway()
	order, err := gateway.CreateOrder(amountPaise, booking.InvoiceNumber, map[string]interface{}{
		"bookingId": booking.ID,
		"userId":    userID,
	})
	if err != nil {
		// Booking stays pending/unpaid; the client may retry.
		log.Printf("payment order create failed for booking %d: %v", booking.ID, err)
		utils.CreateError(iris.StatusBadGateway, "Bad Gateway", "payment gateway unavailable", ctx)
		return
	}

	if err := storage.DB.Model(&booking).Updates(map[string]interface{}{
		"payment_razorpay_order_id": order.ID,
		"payment_method":            "razorpay",
	}).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"success": true,
		"order":   order,
		"key":     services.PaymentKeyID(),
		"isMock":  order.IsMock,
	})
}

type VerifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
	BookingID         uint   `json:"bookingId" validate:"required"`
	IsMock            bool   `json:"isMock"`
}

// VerifyPayment is the client-redirected confirmation path. It is a
// best-effort shortcut; the webhook remains the system of record, and both
// may run for the same booking since confirmation is a plain status set.
func VerifyPayment(ctx iris.Context) {
	var request VerifyPaymentRequest
	if err := ctx.ReadJSON(&request); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var booking models.Booking
	if err := storage.DB.First(&booking, request.BookingID).Error; err != nil {
		utils.CreateNotFound(ctx)
		return
	}

	// The submitted order must be the one registered for this booking.
	if stored := booking.Payment.RazorpayOrderID; stored != "" && request.RazorpayOrderID != stored {
		log.Printf("payment order mismatch for booking %d: got %s, have %s", booking.ID, request.RazorpayOrderID, stored)
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "payment verification failed", ctx)
		return
	}

	// Mock mode is decided server-side; the client's isMock flag cannot opt
	// out of signature checking when live credentials are configured.
	secret := os.Getenv("RAZORPAY_KEY_SECRET")
	bypass := services.PaymentMockMode() || secret == "" || strings.HasPrefix(secret, "your_")
	if !bypass {
		if !services.VerifyPaymentSignature(request.RazorpayOrderID, request.RazorpayPaymentID, request.RazorpaySignature, secret) {
			log.Printf("payment signature mismatch for booking %d order %s", request.BookingID, request.RazorpayOrderID)
			utils.CreateError(iris.StatusBadRequest, "Bad Request", "payment verification failed", ctx)
			return
		}
	}

	now := time.Now()
	if err := storage.DB.Model(&booking).Updates(map[string]interface{}{
		"status":                      models.BookingStatusConfirmed,
		"payment_status":              models.PaymentStatusCompleted,
		"payment_razorpay_payment_id": request.RazorpayPaymentID,
		"payment_razorpay_signature":  request.RazorpaySignature,
		"payment_paid_at":             now,
	}).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	storage.DB.Preload("Property").Preload("Room").First(&booking, booking.ID)
	ctx.JSON(iris.Map{"success": true, "booking": booking})
}

type webhookPayload struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// PaymentWebhook is the gateway-initiated, authoritative confirmation path.
// The signature covers the raw body, so it must be verified before parsing
// and before any state change. Redelivery of the same event is harmless:
// both branches are absolute status sets.
func PaymentWebhook(ctx iris.Context) {
	rawBody, err := ctx.GetBody()
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "unreadable body", ctx)
		return
	}

	signature := ctx.GetHeader("X-Razorpay-Signature")
	secret := os.Getenv("RAZORPAY_WEBHOOK_SECRET")
	if secret == "" {
		secret = os.Getenv("RAZORPAY_KEY_SECRET")
	}
	if signature == "" || secret == "" {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "missing signature or secret", ctx)
		return
	}

	if !services.VerifyWebhookSignature(rawBody, signature, secret) {
		log.Printf("webhook signature mismatch (%d bytes)", len(rawBody))
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "invalid signature", ctx)
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "invalid payload", ctx)
		return
	}

	// A failed persist must not answer 200, or the gateway treats the event
	// as delivered and never retries.
	entity := payload.Payload.Payment.Entity
	switch payload.Event {
	case "payment.captured":
		if entity.OrderID != "" {
			now := time.Now()
			if err := storage.DB.Model(&models.Booking{}).
				Where("payment_razorpay_order_id = ?", entity.OrderID).
				Updates(map[string]interface{}{
					"status":                      models.BookingStatusConfirmed,
					"payment_status":              models.PaymentStatusCompleted,
					"payment_razorpay_payment_id": entity.ID,
					"payment_paid_at":             now,
				}).Error; err != nil {
				log.Printf("webhook persist failed for order %s: %v", entity.OrderID, err)
				utils.CreateInternalServerError(ctx)
				return
			}
		}
	case "payment.failed":
		if entity.OrderID != "" {
			if err := storage.DB.Model(&models.Booking{}).
				Where("payment_razorpay_order_id = ?", entity.OrderID).
				UpdateColumn("payment_status", models.PaymentStatusFailed).Error; err != nil {
				log.Printf("webhook persist failed for order %s: %v", entity.OrderID, err)
				utils.CreateInternalServerError(ctx)
				return
			}
		}
	}

	ctx.JSON(iris.Map{"success": true})
}
