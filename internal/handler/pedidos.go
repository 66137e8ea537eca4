package handler

import (
	"net/http"

	"tienda/internal/dto"
	"tienda/internal/service"

	"github.com/gin-gonic/gin"
)

type PedidosHandler struct {
	svc   service.CheckoutService
	envio service.EnvioService
}

func NewPedidosHandler(svc service.CheckoutService, envio service.EnvioService) *PedidosHandler {
	return &PedidosHandler{svc: svc, envio: envio}
}

// Realizar godoc
// @Summary Confirmar pedido
// @Description Convierte el carrito de la cuenta en un pedido. Todo o nada: si un paso falla, nada cambia.
// @Tags pedidos
// @Accept json
// @Produce json
// @Param body body dto.RealizarPedidoRequest true "Envio y pago"
// @Success 201 {object} dto.OrdenResponse
// @Failure 400 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/pedidos [post]
// @Security BearerAuth
func (h *PedidosHandler) Realizar(c *gin.Context) {
	uid, ok := usuarioActual(c)
	if !ok {
		return
	}
	var req dto.RealizarPedidoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RealizarPedido(c.Request.Context(), uid, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *PedidosHandler) Listar(c *gin.Context) {
	uid, ok := usuarioActual(c)
	if !ok {
		return
	}
	resp, err := h.svc.ListarPedidos(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CotizarEnvio godoc
// @Summary Cotizar envio
// @Tags pedidos
// @Produce json
// @Param metodo query string true "domicilio | metro"
// @Param zip query string false "Codigo postal (domicilio)"
// @Success 200 {object} dto.CotizacionEnvioResponse
// @Router /v1/envio/cotizar [get]
func (h *PedidosHandler) CotizarEnvio(c *gin.Context) {
	var req dto.CotizarEnvioRequest
	if !bindQueryAndValidate(c, &req) {
		return
	}
	resp, err := h.envio.Cotizar(c.Request.Context(), req.Metodo, req.CodigoPostal)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
