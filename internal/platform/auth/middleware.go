package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Claims is the token payload issued by the surrounding admin
// application: subject is the user id, role its classification.
type Claims struct {
	jwt.RegisteredClaims
	Name string `json:"name"`
	Role string `json:"role"`
}

// JWTMiddleware verifies HS256 bearer tokens signed with secret and binds
// the resulting actor to the request context.
func JWTMiddleware(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			id, err := uuid.Parse(claims.Subject)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid subject claim")
			}
			role := Role(claims.Role)
			if !role.Valid() {
				return echo.NewHTTPError(http.StatusUnauthorized, "unknown role claim")
			}

			actor := &Actor{ID: id, Name: claims.Name, Role: role}
			c.SetRequest(c.Request().WithContext(WithActor(c.Request().Context(), actor)))
			return next(c)
		}
	}
}

// DevAuthMiddleware trusts X-Actor-ID / X-Actor-Role headers and defaults
// to an admin actor. Development only.
func DevAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor := &Actor{ID: uuid.New(), Name: "dev", Role: RoleAdmin}

			if raw := c.Request().Header.Get("X-Actor-ID"); raw != "" {
				id, err := uuid.Parse(raw)
				if err != nil {
					return echo.NewHTTPError(http.StatusBadRequest, "invalid X-Actor-ID")
				}
				actor.ID = id
			}
			if raw := c.Request().Header.Get("X-Actor-Role"); raw != "" {
				role := Role(raw)
				if !role.Valid() {
					return echo.NewHTTPError(http.StatusBadRequest, "invalid X-Actor-Role")
				}
				actor.Role = role
			}

			c.SetRequest(c.Request().WithContext(WithActor(c.Request().Context(), actor)))
			return next(c)
		}
	}
}

// RequireActor returns the actor bound to the request. Handlers call it
// before service methods that need an identity; a request that reached
// one without authentication is rejected.
func RequireActor(c echo.Context) (Actor, error) {
	actor := ActorFromContext(c.Request().Context())
	if actor == nil {
		return Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "no authenticated actor")
	}
	return *actor, nil
}

// RequireCapability rejects requests whose actor lacks the capability.
func RequireCapability(capability Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor := ActorFromContext(c.Request().Context())
			if actor == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "no authenticated actor")
			}
			if !actor.Can(capability) {
				return echo.NewHTTPError(http.StatusForbidden,
					fmt.Sprintf("role %s lacks capability %s", actor.Role, capability))
			}
			return next(c)
		}
	}
}
