package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mutqin/backend/core"
)

const claimsContextKey = "userToken"

// Claims represents the authorization claims transmitted via a JWT. Identity
// lives outside this app; the core trusts whatever the token asserts.
type Claims struct {
	jwt.StandardClaims
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	IsLearner bool   `json:"is_learner,omitempty"` // -> LEARNER PORTAL
	IsTeacher bool   `json:"is_teacher,omitempty"` // -> TEACHER PORTAL
	IsAdmin   bool   `json:"is_admin,omitempty"`   // -> ADMIN PORTAL
}

// UserID is the subject user id the token was minted for.
func (c Claims) UserID() string { return c.Subject }

func jwtConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    conf.SecretKey,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    claimsContextKey,
		Claims:        new(Claims),
	}
}

func jwtMiddleware(conf *core.Config) echo.MiddlewareFunc {
	return middleware.JWTWithConfig(jwtConfig(conf))
}

// NewClaims builds claims for uid with standard fields filled from conf.
func NewClaims(conf *core.Config, uid string) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   uid,
			Audience:  "Madrasah",
			ExpiresAt: now.Add(conf.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(conf.SecretKey)
	if err != nil {
		return "", errTokenSigningFailed
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(claimsContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}
