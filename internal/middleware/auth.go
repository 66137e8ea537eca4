package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"tienda/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	ClaimsKey = "claims"
)

// JWTClaims are the custom claims embedded in every access token.
type JWTClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Rol    string `json:"rol"`
	IatMs  int64  `json:"iat_ms"`
	jwt.RegisteredClaims
}

// RevocationChecker tells since when an identity's tokens are revoked
// (zero time when never).
type RevocationChecker interface {
	RevocadoDesde(ctx context.Context, usuarioID uuid.UUID) (time.Time, error)
}

// OptionalJWT resolves the identity when a Bearer token is present. Requests
// without a token pass through as guests; a bad or revoked token is rejected.
func OptionalJWT(secret string, revocaciones RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.WithCode(apierror.CodeNoAutenticado, "Token invalido o expirado"))
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.WithCode(apierror.CodeNoAutenticado, "Token invalido o expirado"))
			return
		}

		uid, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.WithCode(apierror.CodeNoAutenticado, "Token mal formado"))
			return
		}

		if revocaciones != nil {
			desde, err := revocaciones.RevocadoDesde(c.Request.Context(), uid)
			if err != nil {
				log.Error().Err(err).Str("request_id", c.GetString(RequestIDKey)).Msg("auth: no se pudo consultar revocación")
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, apierror.WithCode(apierror.CodeInterno, "Servicio no disponible"))
				return
			}
			if !desde.IsZero() && claims.IatMs <= desde.UnixMilli() {
				c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.WithCode(apierror.CodeNoAutenticado, "Sesión cerrada, inicia sesión de nuevo"))
				return
			}
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RequireAuth rejects requests without a resolved identity.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetClaims(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.WithCode(apierror.CodeNoAutenticado, "Autenticacion requerida"))
			return
		}
		c.Next()
	}
}

// RequireRole rejects requests whose JWT role is not in the allowed list.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil || !allowed[claims.Rol] {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.WithCode(apierror.CodeProhibido, "Permisos insuficientes"))
			return
		}
		c.Next()
	}
}

// GetClaims returns the typed claims, or nil for guest requests.
func GetClaims(c *gin.Context) *JWTClaims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*JWTClaims)
	return claims
}

// UsuarioID returns the signed-in identity, if any.
func UsuarioID(c *gin.Context) (uuid.UUID, bool) {
	claims := GetClaims(c)
	if claims == nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(claims.UserID)
	return id, err == nil
}
