package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/glowlens/glowlens-api/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

const defaultLeeway = 30 * time.Second

// Verifier validates bearer access tokens against the configured identity
// provider. A JWKS URL selects asymmetric verification with background key
// refresh; otherwise the shared HS256 secret is used.
type Verifier struct {
	issuer   string
	audience string
	keyfunc  jwt.Keyfunc
	parser   *jwt.Parser
}

// NewVerifier builds a verifier from identity settings.
func NewVerifier(cfg config.IdentityConfig) (*Verifier, error) {
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		return nil, errors.New("identity issuer must be set")
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		return nil, errors.New("identity audience must be set")
	}
	leeway := cfg.Leeway
	if leeway <= 0 {
		leeway = defaultLeeway
	}

	var (
		keyProvider  jwt.Keyfunc
		validMethods []string
	)
	switch {
	case strings.TrimSpace(cfg.JWKSURL) != "":
		provider, errKeyfunc := keyfunc.NewDefault([]string{strings.TrimSpace(cfg.JWKSURL)})
		if errKeyfunc != nil {
			return nil, fmt.Errorf("init jwks keyfunc: %w", errKeyfunc)
		}
		keyProvider = provider.Keyfunc
		validMethods = []string{
			jwt.SigningMethodRS256.Name,
			jwt.SigningMethodRS384.Name,
			jwt.SigningMethodRS512.Name,
			jwt.SigningMethodES256.Name,
		}
	case strings.TrimSpace(cfg.HSSecret) != "":
		secret := []byte(strings.TrimSpace(cfg.HSSecret))
		keyProvider = func(*jwt.Token) (any, error) { return secret, nil }
		validMethods = []string{jwt.SigningMethodHS256.Name}
	default:
		return nil, errors.New("identity requires a jwks-url or hs-secret")
	}

	parser := jwt.NewParser(
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithLeeway(leeway),
		jwt.WithValidMethods(validMethods),
	)

	return &Verifier{
		issuer:   issuer,
		audience: audience,
		keyfunc:  keyProvider,
		parser:   parser,
	}, nil
}

// Verify parses and validates a token, returning extracted claims.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	token, errParse := v.parser.Parse(tokenString, v.keyfunc)
	if errParse != nil {
		return nil, errParse
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	claims := &Claims{
		Subject:   readString(mapClaims, "sub"),
		Email:     readString(mapClaims, "email"),
		Issuer:    readString(mapClaims, "iss"),
		ExpiresAt: readExpiry(mapClaims["exp"]),
		Raw:       mapClaims,
	}
	if claims.Subject == "" {
		return nil, errors.New("token missing sub")
	}
	return claims, nil
}

func readString(claims jwt.MapClaims, key string) string {
	if s, ok := claims[key].(string); ok {
		return s
	}
	return ""
}

func readExpiry(raw any) time.Time {
	switch v := raw.(type) {
	case float64:
		return time.Unix(int64(v), 0)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return time.Unix(i, 0)
		}
	case int64:
		return time.Unix(v, 0)
	}
	return time.Time{}
}
