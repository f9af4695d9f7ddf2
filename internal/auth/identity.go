package auth

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// IdentityContext is the normalized projection of verified token
// claims. It is constructed once per request, attached to
// request-scoped state, and never persisted.
type IdentityContext struct {
	Subject      string
	Scopes       []string
	Email        string
	Organization string
	RawClaims    map[string]interface{}
}

// HasScope reports whether the identity carries the given capability.
func (ic *IdentityContext) HasScope(scope string) bool {
	for _, s := range ic.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// verifyJWT validates an HS256 token against the configured secret and
// normalizes its claims.
func (a *Authenticator) verifyJWT(tokenString string) (*IdentityContext, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(a.jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, fmt.Errorf("missing subject in token")
	}

	identity := &IdentityContext{
		Subject:   sub,
		Scopes:    claimScopes(claims),
		RawClaims: map[string]interface{}(claims),
	}
	if email, ok := claims["email"].(string); ok {
		identity.Email = email
	}
	if org, ok := claims["org"].(string); ok {
		identity.Organization = org
	}
	return identity, nil
}

// claimScopes reads either an OAuth-style space-separated "scope"
// string or a "scopes" array claim.
func claimScopes(claims jwt.MapClaims) []string {
	if scope, ok := claims["scope"].(string); ok && scope != "" {
		return strings.Fields(scope)
	}
	if raw, ok := claims["scopes"].([]interface{}); ok {
		scopes := make([]string, 0, len(raw))
		for _, s := range raw {
			if str, ok := s.(string); ok {
				scopes = append(scopes, str)
			}
		}
		return scopes
	}
	return nil
}
