package handler

import (
    "fmt"
    "io"
    "net/http"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/movie-storefront/internal/provider"
    "github.com/iliyamo/movie-storefront/internal/service"
)

// maxWebhookBody bounds the provider payload read into memory.
const maxWebhookBody = 1 << 20

// PaymentHandler exposes checkout creation, the provider landing pages and
// the provider webhook.
type PaymentHandler struct {
    Payments *service.PaymentService
    Log      *zap.Logger
}

func NewPaymentHandler(payments *service.PaymentService, log *zap.Logger) *PaymentHandler {
    if log == nil {
        log = zap.NewNop()
    }
    return &PaymentHandler{Payments: payments, Log: log.Named("payments_http")}
}

type paymentSessionResp struct {
    PaymentID   uint64 `json:"payment_id"`
    OrderID     uint64 `json:"order_id"`
    Amount      string `json:"amount"`
    Currency    string `json:"currency"`
    SessionID   string `json:"session_id"`
    CheckoutURL string `json:"checkout_url"`
}

// Create handles POST /v1/payments/:orderId/create.  The client is expected
// to redirect the buyer to checkout_url.
func (h *PaymentHandler) Create(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    orderID, ok := idParam(c, "orderId")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
    }
    s, err := h.Payments.CreatePaymentSession(c.Request().Context(), userID, orderID)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusCreated, paymentSessionResp{
        PaymentID:   s.PaymentID,
        OrderID:     s.OrderID,
        Amount:      money(s.Amount),
        Currency:    s.Currency,
        SessionID:   s.SessionID,
        CheckoutURL: s.CheckoutURL,
    })
}

// Success handles GET /v1/payments/success/:orderId.  It is informational
// only; settlement happens through the webhook.
func (h *PaymentHandler) Success(c echo.Context) error {
    orderID, ok := idParam(c, "orderId")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "message": fmt.Sprintf("Your payment has been successfully processed!. Id order: %d", orderID),
    })
}

// Cancel handles GET /v1/payments/cancel/:orderId.
func (h *PaymentHandler) Cancel(c echo.Context) error {
    orderID, ok := idParam(c, "orderId")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "message": fmt.Sprintf("Your payment cancelled. Id order: %d", orderID),
    })
}

// Webhook handles POST /v1/webhooks/.  The raw body is verified against
// the Stripe-Signature header before anything is parsed.  Any 2xx tells
// the provider to stop retrying, so only internal failures answer 5xx.
func (h *PaymentHandler) Webhook(c echo.Context) error {
    body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody+1))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
    }
    if len(body) > maxWebhookBody {
        return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "payload too large"})
    }
    res, err := h.Payments.HandleProviderWebhook(c.Request().Context(), body, c.Request().Header.Get(provider.SignatureHeader))
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "received": true,
        "event_id": res.EventID,
        "outcome":  res.Outcome,
    })
}
