package handler

import (
	"net/http"

	"tienda/internal/dto"
	"tienda/internal/middleware"
	"tienda/internal/service"

	"github.com/gin-gonic/gin"
)

// CarritoHandler serves the cart of whoever owns the request: the signed-in
// identity, or the guest session otherwise.
type CarritoHandler struct {
	svc    service.CarritoService
	promos service.PromoService
}

func NewCarritoHandler(svc service.CarritoService, promos service.PromoService) *CarritoHandler {
	return &CarritoHandler{svc: svc, promos: promos}
}

// Obtener godoc
// @Summary Carrito actual
// @Tags carrito
// @Produce json
// @Param X-Guest-Session header string false "Sesion de invitado"
// @Param X-Passive header string false "1 si la consulta no cuenta como actividad"
// @Success 200 {object} dto.CarritoResponse
// @Router /v1/carrito [get]
func (h *CarritoHandler) Obtener(c *gin.Context) {
	resp, err := h.svc.Obtener(c.Request.Context(), middleware.GetOwner(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AgregarItem godoc
// @Summary Agregar producto al carrito
// @Description Reserva el stock de inmediato. Si la cantidad supera lo disponible responde 409 con las unidades restantes.
// @Tags carrito
// @Accept json
// @Produce json
// @Param body body dto.AgregarItemRequest true "Item"
// @Success 200 {object} dto.CarritoResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/carrito/items [post]
func (h *CarritoHandler) AgregarItem(c *gin.Context) {
	var req dto.AgregarItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AgregarItem(c.Request.Context(), middleware.GetOwner(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CarritoHandler) ActualizarCantidad(c *gin.Context) {
	var req dto.ActualizarCantidadRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ActualizarCantidad(c.Request.Context(), middleware.GetOwner(c), req.Size, req.Cantidad)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CarritoHandler) EliminarItem(c *gin.Context) {
	var req dto.EliminarItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.EliminarItem(c.Request.Context(), middleware.GetOwner(c), req.Size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CarritoHandler) Vaciar(c *gin.Context) {
	if err := h.svc.Vaciar(c.Request.Context(), middleware.GetOwner(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AplicarPromo godoc
// @Summary Aplicar codigo promocional
// @Tags carrito
// @Accept json
// @Produce json
// @Param body body dto.AplicarPromoRequest true "Codigo"
// @Success 200 {object} dto.AplicarPromoResponse
// @Failure 422 {object} apierror.APIError
// @Router /v1/carrito/promo [post]
func (h *CarritoHandler) AplicarPromo(c *gin.Context) {
	var req dto.AplicarPromoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.promos.Aplicar(c.Request.Context(), middleware.GetOwner(c), req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CarritoHandler) QuitarPromo(c *gin.Context) {
	resp, err := h.promos.Quitar(c.Request.Context(), middleware.GetOwner(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Actividad is a keep-alive for an open tab. The Actividad middleware does
// the recording.
func Actividad(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
