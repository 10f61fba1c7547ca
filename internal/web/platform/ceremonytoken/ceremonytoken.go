// Package ceremonytoken binds an in-flight passkey ceremony to the
// browser that started it. The ceremony id is carried in a short-lived
// signed cookie so the finish request must come from the same client
// that received the challenge.
package ceremonytoken

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/dethstrobe/applywize2/internal/platform/errors"
	"github.com/dethstrobe/applywize2/internal/web/platform/requestmeta"
)

// CookieName is the ceremony binding cookie name.
const CookieName = "applywize_ceremony"

// Signer issues and verifies ceremony binding tokens.
type Signer struct {
	secret []byte
	clock  func() time.Time
}

// ceremonyClaims is the internal claims type used for JWT parsing.
type ceremonyClaims struct {
	jwt.RegisteredClaims
	Kind string `json:"kind"`
}

// NewSigner builds a Signer around an HMAC secret. An empty secret is
// replaced with a random one, which is fine for a single-process server
// because tokens only outlive a ceremony by seconds.
func NewSigner(secret []byte, clock func() time.Time) (*Signer, error) {
	if clock == nil {
		clock = time.Now
	}
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate ceremony secret: %w", err)
		}
	}
	if len(secret) < 16 {
		return nil, errors.New("ceremony secret must be at least 16 bytes")
	}
	return &Signer{secret: secret, clock: clock}, nil
}

// Issue signs a token carrying the ceremony id and kind.
func (s *Signer) Issue(ceremonyID, kind string, ttl time.Duration) (string, error) {
	if s == nil {
		return "", errors.New("signer is not configured")
	}
	ceremonyID = strings.TrimSpace(ceremonyID)
	if ceremonyID == "" {
		return "", errors.New("ceremony id is required")
	}
	kind = strings.TrimSpace(kind)
	if kind == "" {
		return "", errors.New("ceremony kind is required")
	}
	if ttl <= 0 {
		return "", errors.New("ceremony ttl must be positive")
	}
	now := s.clock().UTC()
	claims := ceremonyClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ceremonyID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Kind: kind,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign ceremony token: %w", err)
	}
	return signed, nil
}

// Verify checks the token signature and expiry and returns the bound
// ceremony id when the token matches the expected kind.
func (s *Signer) Verify(token, kind string) (string, error) {
	if s == nil {
		return "", errors.New("signer is not configured")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", apperrors.New(apperrors.CodeCeremonyNotFound, "ceremony token is required")
	}

	var parsed ceremonyClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return "", mapJWTError(err)
	}

	if parsed.ExpiresAt == nil {
		return "", apperrors.New(apperrors.CodeCeremonyNotFound, "ceremony token exp is required")
	}
	now := s.clock().UTC()
	if !parsed.ExpiresAt.Time.UTC().After(now) {
		return "", apperrors.New(apperrors.CodeCeremonyExpired, "ceremony token is expired")
	}
	if parsed.Kind != kind {
		return "", apperrors.New(apperrors.CodeCeremonyNotFound, "ceremony token kind mismatch")
	}
	ceremonyID := strings.TrimSpace(parsed.Subject)
	if ceremonyID == "" {
		return "", apperrors.New(apperrors.CodeCeremonyNotFound, "ceremony token subject is required")
	}
	return ceremonyID, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		return apperrors.New(apperrors.CodeCeremonyNotFound, "ceremony token signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.New(apperrors.CodeCeremonyNotFound, "ceremony token alg is invalid")
	}
	return apperrors.New(apperrors.CodeCeremonyNotFound, "ceremony token is invalid")
}

// WriteCookie sets the ceremony binding cookie for the current request.
func WriteCookie(w http.ResponseWriter, r *http.Request, token string, ttl time.Duration) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    strings.TrimSpace(token),
		Path:     "/auth",
		HttpOnly: true,
		Secure:   requestmeta.IsHTTPS(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl / time.Second),
	})
}

// ReadCookie returns the trimmed ceremony cookie value when present.
func ReadCookie(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie == nil {
		return "", false
	}
	value := strings.TrimSpace(cookie.Value)
	if value == "" {
		return "", false
	}
	return value, true
}

// ClearCookie expires the ceremony binding cookie.
func ClearCookie(w http.ResponseWriter, r *http.Request) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/auth",
		HttpOnly: true,
		Secure:   requestmeta.IsHTTPS(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
