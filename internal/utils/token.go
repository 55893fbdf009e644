package utils // package utils provides helpers for session token creation

import (
	"time" // time utilities for expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// SessionToken is the signed per-device identity a diner receives when
// joining a session.  It is the only credential in the system: there is
// no registration, login or refresh flow.  The Token field contains the
// serialized JWT; Exp stores its UTC expiration.
type SessionToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewSessionToken builds and signs an HS256 JWT binding one diner to
// one session.  Claims: sub is the diner id, sid the session id, plus
// standard exp and iat.  The TTL should comfortably outlast a dining
// occasion; an expired token only means re-joining the session.
func NewSessionToken(secret, dinerID, sessionID string, ttlMin int) (SessionToken, error) {
	exp := time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub": dinerID,
		"sid": sessionID,
		"exp": exp.Unix(),
		"iat": time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}
