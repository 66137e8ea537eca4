package handler

import (
	"net/http"

	"tienda/internal/apierror"
	"tienda/internal/dto"
	"tienda/internal/service"

	"github.com/gin-gonic/gin"
)

type ProductosHandler struct{ svc service.ProductoService }

func NewProductosHandler(svc service.ProductoService) *ProductosHandler {
	return &ProductosHandler{svc: svc}
}

// ObtenerPorID godoc
// @Summary Detalle de producto
// @Tags productos
// @Produce json
// @Param id path string true "ID del producto"
// @Success 200 {object} dto.ProductoResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/productos/{id} [get]
func (h *ProductosHandler) ObtenerPorID(c *gin.Context) {
	resp, err := h.svc.Obtener(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Stock godoc
// @Summary Stock disponible de una talla
// @Tags productos
// @Produce json
// @Param id path string true "ID del producto"
// @Param size query string true "Talla"
// @Param variant query string false "ID de variante"
// @Success 200 {object} dto.StockResponse
// @Router /v1/productos/{id}/stock [get]
func (h *ProductosHandler) Stock(c *gin.Context) {
	talla := c.Query("size")
	if talla == "" {
		c.JSON(http.StatusBadRequest, apierror.WithCode(apierror.CodeValidacion, "size es obligatorio"))
		return
	}
	resp, err := h.svc.Stock(c.Request.Context(), c.Param("id"), c.Query("variant"), talla)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductosHandler) SetDestacado(c *gin.Context) {
	var req dto.DestacadoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.SetDestacado(c.Request.Context(), c.Param("id"), *req.Destacado); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ProductosHandler) ListarMovimientos(c *gin.Context) {
	var filter dto.MovimientoFilter
	if !bindQueryAndValidate(c, &filter) {
		return
	}
	resp, err := h.svc.ListarMovimientos(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
