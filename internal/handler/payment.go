package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/easycheck/easycheck/internal/ledger"
	"github.com/easycheck/easycheck/internal/model"
	"github.com/easycheck/easycheck/internal/queue"
	queue_publisher "github.com/easycheck/easycheck/internal/service"
	"github.com/easycheck/easycheck/internal/session"
)

// PaymentHandler serves payment creation.  On success a payment.completed
// event is published to the queue in the background; the HTTP response
// never waits on the broker.
type PaymentHandler struct {
	Coord *session.Coordinator
	Store ledger.Store // read-only lookups to enrich the queue event
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(coord *session.Coordinator, store ledger.Store) *PaymentHandler {
	if coord == nil || store == nil {
		panic("nil dependency passed to NewPaymentHandler")
	}
	return &PaymentHandler{Coord: coord, Store: store}
}

// Create handles POST /v1/payments.  The body lists the order ids this
// payment settles together with an optional tip and method.  A 409 means
// at least one order was settled concurrently; the client should re-fetch
// state and re-quote.
func (h *PaymentHandler) Create(c echo.Context) error {
	dinerID, sessionID, err := identity(c)
	if err != nil {
		return err
	}
	var body struct {
		OrderIDs []string `json:"order_ids"`
		TipCents int64    `json:"tip"`
		Method   string   `json:"method"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	payment, err := h.Coord.CreatePayment(c.Request().Context(), sessionID, dinerID, body.OrderIDs, body.TipCents, body.Method)
	if err != nil {
		return ledgerError(c, err)
	}

	go h.publishCompleted(payment, len(body.OrderIDs))

	return c.JSON(http.StatusCreated, payment)
}

// publishCompleted enriches the payment with its table label and hands it
// to the queue publisher.  Failures are logged by the publisher; the
// payment itself already committed.
func (h *PaymentHandler) publishCompleted(p *model.PaymentDetail, orderCount int) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ev := queue.PaymentCompletedEvent{
		PaymentID:   p.ID,
		SessionID:   p.SessionID,
		DinerID:     p.DinerID,
		DinerName:   p.DinerName,
		AmountCents: p.AmountCents,
		TipCents:    p.TipCents,
		Method:      p.Method,
		OrderCount:  orderCount,
		PaidAt:      p.CreatedAt.UTC().Format(time.RFC3339),
	}
	if sess, err := h.Store.GetSession(ctx, p.SessionID); err == nil {
		if table, err := h.Store.GetTable(ctx, sess.TableID); err == nil {
			ev.TableLabel = table.Label
		}
	}
	_ = queue_publisher.PublishPaymentCompleted(ctx, ev)
}
