package middleware // reusable HTTP middleware for the API

import (
	"net/http" // HTTP status codes for responses
	"strings"  // prefix checking and trimming

	"github.com/golang-jwt/jwt/v5" // JWT parsing and validation
	"github.com/labstack/echo/v4"  // Echo framework middleware types
)

// SessionAuth returns an Echo middleware that validates a session token and
// injects the diner and session identity into the request context.  Tokens
// are issued when a diner joins a session; there are no accounts or
// passwords.  Handlers read the identity via c.Get("diner_id") and
// c.Get("session_id").
//
// The token is taken from the Authorization header ("Bearer <jwt>") or,
// for WebSocket upgrades where browsers cannot set headers, from the
// "token" query parameter.
func SessionAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := ""
			if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				raw = strings.TrimPrefix(auth, "Bearer ")
			} else if q := c.QueryParam("token"); q != "" {
				raw = q
			}
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing session token"})
			}

			// Parse with HS256 only; any other signing method is rejected.
			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}
			dinerID, _ := claims["sub"].(string)
			sessionID, _ := claims["sid"].(string)
			if dinerID == "" || sessionID == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			c.Set("diner_id", dinerID)
			c.Set("session_id", sessionID)
			return next(c)
		}
	}
}
