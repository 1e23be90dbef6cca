package utils // package utils provides helpers for session tokens and random names

import (
	"crypto/rand"  // secure random data for upload filenames
	"encoding/hex" // hex encoding of random bytes
	"errors"       // sentinel error for invalid tokens
	"time"         // expiration handling

	"github.com/golang-jwt/jwt/v5" // JWT library used to sign session tokens
)

// ErrInvalidSession is returned by ParseSessionToken for tokens that are
// missing, malformed, expired or signed with the wrong key.
var ErrInvalidSession = errors.New("invalid session token")

// SessionToken is a signed HS256 JWT carried in an HttpOnly cookie. The
// Token field contains the serialized JWT, Exp its UTC expiration. The
// TTL is chosen at login time: a short one for plain logins and a long
// one when the caller asked to be remembered.
type SessionToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewSessionToken builds and signs a session JWT for an account. Claims
// are the standard sub (account ID), exp and iat.
func NewSessionToken(secret string, accountID uint64, ttl time.Duration) (SessionToken, error) {
	exp := time.Now().UTC().Add(ttl)
	claims := jwt.MapClaims{
		"sub": accountID,
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

// ParseSessionToken validates a session JWT and returns the account ID
// from its subject claim. Only HMAC-signed tokens are accepted.
func ParseSessionToken(secret, raw string) (uint64, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSession
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return 0, ErrInvalidSession
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidSession
	}
	// JWT numbers decode as float64.
	sub, ok := claims["sub"].(float64)
	if !ok || sub <= 0 {
		return 0, ErrInvalidSession
	}
	return uint64(sub), nil
}

// RandomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data. Upload filenames use it to
// avoid collisions between files stored in the shared picture dir.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
