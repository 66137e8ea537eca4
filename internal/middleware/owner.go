package middleware

import (
	"context"

	"tienda/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	OwnerKey           = "cart_owner"
	GuestSessionHeader = "X-Guest-Session"
	PassiveHeader      = "X-Passive"
)

// Owner resolves who owns the cart for this request: the signed-in identity,
// otherwise the guest session from X-Guest-Session. A missing or invalid guest
// session gets a fresh id, echoed back so the client can keep it.
// Must run after OptionalJWT.
func Owner() gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid, ok := UsuarioID(c); ok {
			c.Set(OwnerKey, model.OwnerUsuario(uid))
			c.Next()
			return
		}
		gid, err := uuid.Parse(c.GetHeader(GuestSessionHeader))
		if err != nil || gid == uuid.Nil {
			gid = uuid.New()
		}
		c.Header(GuestSessionHeader, gid.String())
		c.Set(OwnerKey, model.OwnerGuest(gid))
		c.Next()
	}
}

// GetOwner returns the owner resolved by Owner.
func GetOwner(c *gin.Context) model.CartOwner {
	owner, _ := c.MustGet(OwnerKey).(model.CartOwner)
	return owner
}

// GuestID returns the guest session sent by the client, if it is a valid id.
func GuestID(c *gin.Context) *uuid.UUID {
	gid, err := uuid.Parse(c.GetHeader(GuestSessionHeader))
	if err != nil || gid == uuid.Nil {
		return nil
	}
	return &gid
}

// ActivityRecorder stores the last qualifying interaction of an owner.
type ActivityRecorder interface {
	RegistrarActividad(ctx context.Context, owner model.CartOwner) error
}

// Actividad counts the request as activity of its owner, unless the client
// marks it passive (X-Passive: 1, used for background cart polling).
// Must run after Owner.
func Actividad(rec ActivityRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(PassiveHeader) != "1" {
			owner := GetOwner(c)
			if err := rec.RegistrarActividad(c.Request.Context(), owner); err != nil {
				log.Warn().Err(err).Str("owner", owner.Key()).Str("request_id", c.GetString(RequestIDKey)).
					Msg("actividad: no se pudo registrar")
			}
		}
		c.Next()
	}
}
