package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/easycheck/easycheck/internal/session"
	"github.com/easycheck/easycheck/internal/utils"
)

// SessionHandler serves the session lifecycle: joining by table or invite
// code, reading state, pricing splits and closing the check.  Join
// responses include a signed session token the client presents on every
// session-scoped call.
type SessionHandler struct {
	Coord     *session.Coordinator
	JWTSecret string
	TokenTTL  int // minutes
}

// NewSessionHandler constructs a SessionHandler.  The coordinator must be
// non-nil.
func NewSessionHandler(coord *session.Coordinator, jwtSecret string, tokenTTLMin int) *SessionHandler {
	if coord == nil {
		panic("nil coordinator passed to NewSessionHandler")
	}
	return &SessionHandler{Coord: coord, JWTSecret: jwtSecret, TokenTTL: tokenTTLMin}
}

type joinResponse struct {
	Session any    `json:"session"`
	Diner   any    `json:"diner"`
	Diners  any    `json:"diners"`
	Token   string `json:"token"`
}

// JoinByTable handles POST /v1/sessions.  Scanning a table QR lands here:
// it finds or creates the table's open session, adds the diner and returns
// the session token.  The first diner in becomes the host.
func (h *SessionHandler) JoinByTable(c echo.Context) error {
	var body struct {
		TableID   string `json:"table_id"`
		DinerName string `json:"diner_name"`
		Avatar    string `json:"avatar"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	res, err := h.Coord.JoinByTable(c.Request().Context(), body.TableID, body.DinerName, body.Avatar)
	if err != nil {
		return ledgerError(c, err)
	}
	return h.joined(c, res)
}

// JoinByCode handles POST /v1/sessions/join for diners invited with the
// short code instead of the QR.
func (h *SessionHandler) JoinByCode(c echo.Context) error {
	var body struct {
		InviteCode string `json:"invite_code"`
		DinerName  string `json:"diner_name"`
		Avatar     string `json:"avatar"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	res, err := h.Coord.JoinByCode(c.Request().Context(), body.InviteCode, body.DinerName, body.Avatar)
	if err != nil {
		return ledgerError(c, err)
	}
	return h.joined(c, res)
}

func (h *SessionHandler) joined(c echo.Context, res *session.JoinResult) error {
	tok, err := utils.NewSessionToken(h.JWTSecret, res.Diner.ID, res.Session.ID, h.TokenTTL)
	if err != nil {
		c.Logger().Errorf("sign session token: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue token"})
	}
	return c.JSON(http.StatusCreated, joinResponse{
		Session: res.Session,
		Diner:   res.Diner,
		Diners:  res.Diners,
		Token:   tok.Token,
	})
}

// requireSession rejects a token that belongs to a different session than
// the one addressed in the path.
func requireSession(c echo.Context) (string, error) {
	_, sid, err := identity(c)
	if err != nil {
		return "", err
	}
	if id := c.Param("id"); id != sid {
		return "", echo.NewHTTPError(http.StatusForbidden, "token is for another session")
	}
	return sid, nil
}

// GetState handles GET /v1/sessions/:id.  Clients call this after every
// change event; the response is the complete session read model.
func (h *SessionHandler) GetState(c echo.Context) error {
	id, err := requireSession(c)
	if err != nil {
		return err
	}
	st, err := h.Coord.GetState(c.Request().Context(), id)
	if err != nil {
		return ledgerError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// PaidOrders handles GET /v1/sessions/:id/paid-orders and returns the ids
// of orders already covered by a payment.
func (h *SessionHandler) PaidOrders(c echo.Context) error {
	id, err := requireSession(c)
	if err != nil {
		return err
	}
	ids, err := h.Coord.PaidOrders(c.Request().Context(), id)
	if err != nil {
		return ledgerError(c, err)
	}
	return c.JSON(http.StatusOK, ids)
}

// SplitQuote handles GET /v1/sessions/:id/split-quote.  Query parameters:
// mode (items|equal|percent), order_ids (comma separated, items mode),
// percent and tip_pct.  Nothing is written; the client shows the quoted
// amount before the diner confirms payment.
func (h *SessionHandler) SplitQuote(c echo.Context) error {
	id, err := requireSession(c)
	if err != nil {
		return err
	}
	mode := c.QueryParam("mode")
	var orderIDs []string
	if raw := c.QueryParam("order_ids"); raw != "" {
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				orderIDs = append(orderIDs, p)
			}
		}
	}
	percent := queryInt(c, "percent")
	tipPct := queryInt(c, "tip_pct")

	q, err := h.Coord.SplitQuote(c.Request().Context(), id, mode, orderIDs, percent, tipPct)
	if err != nil {
		return ledgerError(c, err)
	}
	return c.JSON(http.StatusOK, q)
}

// Close handles POST /v1/sessions/:id/close.  Closing is idempotent; a
// second close of the same session is a no-op 200.
func (h *SessionHandler) Close(c echo.Context) error {
	id, err := requireSession(c)
	if err != nil {
		return err
	}
	if err := h.Coord.Close(c.Request().Context(), id); err != nil {
		return ledgerError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

func queryInt(c echo.Context, name string) int {
	if v := c.QueryParam(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}
