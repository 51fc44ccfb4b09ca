package middleware

import (
	"net/http"
	"strings"
	"time"

	domain "github.com/aq2208/gorder-shop/internal/entity"
	"github.com/aq2208/gorder-shop/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Authz is the HTTP side of the access gate. Customer tokens come from the external account
// service and admin tokens from /api/admin/login; both are HS256 with the shared secret.
type Authz struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
}

func NewAuthz(secret, issuer, audience string, ttl time.Duration) *Authz {
	return &Authz{secret: []byte(secret), issuer: issuer, audience: audience, ttl: ttl}
}

func (a *Authz) TTL() time.Duration { return a.ttl }

// Issue signs a token for id.
func (a *Authz) Issue(id security.Identity, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"iss":  a.issuer,
		"aud":  a.audience,
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"exp":  now.Add(a.ttl).Unix(),
		"sub":  id.UserID,
		"role": string(id.Role),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Require checks the bearer token and stores the caller's identity on the request context.
// With roles given, the caller must hold one of them.
func (a *Authz) Require(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			unauth(c, "invalid_request", "No token provided")
			return
		}

		id, err := a.parse(strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			unauth(c, "invalid_token", "Invalid token")
			return
		}

		if len(roles) > 0 && !hasRole(id.Role, roles) {
			forbidden(c, "insufficient_scope", "Admin access required")
			return
		}

		c.Request = c.Request.WithContext(security.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

func (a *Authz) parse(raw string) (security.Identity, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	},
		jwt.WithLeeway(30*time.Second), // small clock skew
		jwt.WithIssuer(a.issuer),
		jwt.WithAudience(a.audience),
	)
	if err != nil || !token.Valid {
		return security.Identity{}, jwt.ErrTokenInvalidClaims
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return security.Identity{}, jwt.ErrTokenInvalidClaims
	}
	sub, _ := claims.GetSubject()
	role, _ := claims["role"].(string)
	if sub == "" {
		return security.Identity{}, jwt.ErrTokenRequiredClaimMissing
	}
	if role != string(domain.RoleAdmin) {
		role = string(domain.RoleCustomer)
	}
	return security.Identity{UserID: sub, Role: domain.Role(role)}, nil
}

func hasRole(have domain.Role, allowed []domain.Role) bool {
	for _, r := range allowed {
		if r == have {
			return true
		}
	}
	return false
}

func unauth(c *gin.Context, code, msg string) {
	c.Header("WWW-Authenticate", `Bearer error="`+code+`"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": msg})
}

func forbidden(c *gin.Context, code, msg string) {
	c.Header("WWW-Authenticate", `Bearer error="`+code+`"`)
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": msg})
}
