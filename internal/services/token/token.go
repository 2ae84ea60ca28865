package token

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are the verified contents of a confirmation token.
type Claims struct {
	SubscriberID string
	Email        string
}

type confirmClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Issuer mints and verifies signed, time-limited confirmation tokens. There
// is no revocation mechanism beyond expiry.
type Issuer struct {
	secret  []byte
	ttl     time.Duration
	baseURL string
}

func NewIssuer(secret string, ttl time.Duration, baseURL string) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, baseURL: baseURL}
}

// TTL reports how long issued tokens stay valid.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue signs a token for the given subscriber.
func (i *Issuer) Issue(subscriberID, email string) (string, error) {
	now := time.Now()
	claims := confirmClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subscriberID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// ConfirmationURL embeds a signed token into the emailed confirmation link.
func (i *Issuer) ConfirmationURL(signed string) string {
	return fmt.Sprintf("%s/api/newsletter/confirm?token=%s", i.baseURL, url.QueryEscape(signed))
}

// Verify checks signature and expiry and returns the token's claims.
func (i *Issuer) Verify(signed string) (Claims, error) {
	var claims confirmClaims
	parsed, err := jwt.ParseWithClaims(signed, &claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return i.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
	)
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	return Claims{SubscriberID: claims.Subject, Email: claims.Email}, nil
}
