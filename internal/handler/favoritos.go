package handler

import (
	"net/http"

	"tienda/internal/dto"
	"tienda/internal/service"

	"github.com/gin-gonic/gin"
)

type FavoritosHandler struct{ svc service.FavoritosService }

func NewFavoritosHandler(svc service.FavoritosService) *FavoritosHandler {
	return &FavoritosHandler{svc: svc}
}

func (h *FavoritosHandler) Listar(c *gin.Context) {
	uid, ok := usuarioActual(c)
	if !ok {
		return
	}
	favs, err := h.svc.Listar(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, favs)
}

// Alternar adds the product (and size) to the favorites, or removes it if present.
func (h *FavoritosHandler) Alternar(c *gin.Context) {
	uid, ok := usuarioActual(c)
	if !ok {
		return
	}
	var req dto.FavoritoToggleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	added, favs, err := h.svc.Alternar(c.Request.Context(), uid, req.ProductoID, req.Talla)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FavoritoToggleResponse{Agregado: added, Favoritos: favs})
}
