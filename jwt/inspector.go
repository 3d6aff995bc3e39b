package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the verification algorithm when a verify key is set.
type SigningMethod string

const (
	MethodHS256   SigningMethod = "hs256"
	MethodEd25519 SigningMethod = "ed25519"
)

var (
	// ErrNotJWT is returned for tokens that are not three-segment JWTs.
	// Callers treat such tokens as opaque.
	ErrNotJWT = errors.New("token is not a jwt")
	// ErrExpired is returned when exp is in the past (beyond leeway).
	ErrExpired = errors.New("token expired")
	// ErrSubjectMismatch is returned when sub names a different user.
	ErrSubjectMismatch = errors.New("token subject mismatch")
	// ErrInvalid covers signature, issuer and other claim failures.
	ErrInvalid = errors.New("token invalid")
)

// Config controls inspection.
type Config struct {
	// Leeway tolerates clock skew on exp.
	Leeway time.Duration
	// Issuer, when set, must match iss.
	Issuer string

	// SigningMethod and VerifyKey enable signature verification. With an
	// empty VerifyKey claims are read unverified.
	SigningMethod SigningMethod
	VerifyKey     []byte
}

// Claims are the registered claims of a GoBarber token; Subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
}

// Inspector reads and checks tokens. It is immutable and safe for concurrent use.
type Inspector struct {
	config    Config
	verifyKey interface{}
	now       func() time.Time
}

// NewInspector validates cfg and returns an Inspector.
func NewInspector(cfg Config) (*Inspector, error) {
	if cfg.Leeway < 0 || cfg.Leeway > 24*time.Hour {
		return nil, errors.New("invalid leeway configuration")
	}

	in := &Inspector{config: cfg, now: time.Now}
	if len(cfg.VerifyKey) == 0 {
		return in, nil
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		in.verifyKey = cfg.VerifyKey
	case MethodEd25519:
		key, err := parseEdPublicKey(cfg.VerifyKey)
		if err != nil {
			return nil, err
		}
		in.verifyKey = key
	default:
		return nil, errors.New("unsupported signing method")
	}
	return in, nil
}

// Verifying reports whether signatures are checked.
func (i *Inspector) Verifying() bool {
	return i.verifyKey != nil
}

// Inspect parses token and validates exp and iss. Expired tokens return the
// parsed claims together with ErrExpired.
func (i *Inspector) Inspect(token string) (*Claims, error) {
	if strings.Count(token, ".") != 2 {
		return nil, ErrNotJWT
	}
	if i.verifyKey != nil {
		return i.inspectVerified(token)
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, ErrNotJWT
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if i.config.Issuer != "" && claims.Issuer != i.config.Issuer {
		return claims, fmt.Errorf("%w: unexpected issuer %q", ErrInvalid, claims.Issuer)
	}
	if claims.ExpiresAt != nil && i.now().After(claims.ExpiresAt.Time.Add(i.config.Leeway)) {
		return claims, ErrExpired
	}
	return claims, nil
}

// Check inspects token and, when subject is non-empty and the token carries
// a sub claim, requires them to match.
func (i *Inspector) Check(token, subject string) error {
	claims, err := i.Inspect(token)
	if err != nil {
		return err
	}
	if subject != "" && claims.Subject != "" && claims.Subject != subject {
		return ErrSubjectMismatch
	}
	return nil
}

// ExpiresAt returns the exp claim, or the zero time when absent.
func (i *Inspector) ExpiresAt(token string) (time.Time, error) {
	claims, err := i.Inspect(token)
	if claims == nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, err
	}
	return claims.ExpiresAt.Time, err
}

func (i *Inspector) inspectVerified(token string) (*Claims, error) {
	method := i.method()
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithTimeFunc(i.now),
	}
	if i.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(i.config.Leeway))
	}
	if i.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(i.config.Issuer))
	}

	claims := &Claims{}
	_, err := jwt.NewParser(options...).ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return i.verifyKey, nil
	})
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, ErrNotJWT
	case errors.Is(err, jwt.ErrTokenExpired):
		return claims, ErrExpired
	default:
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
}

func (i *Inspector) method() jwt.SigningMethod {
	if i.config.SigningMethod == MethodHS256 {
		return jwt.SigningMethodHS256
	}
	return jwt.SigningMethodEdDSA
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
