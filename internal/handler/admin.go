package handler

import (
	"net/http"
	"strconv"

	"tienda/internal/apierror"
	"tienda/internal/worker"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct{ dead *worker.DeadLetters }

func NewAdminHandler(dead *worker.DeadLetters) *AdminHandler { return &AdminHandler{dead: dead} }

// colaDLQ maps the public queue name to its Redis list, or writes a 404.
func colaDLQ(c *gin.Context) (string, bool) {
	switch c.Param("queue") {
	case "confirmacion":
		return worker.QueueConfirmacion, true
	case "email":
		return worker.QueueEmail, true
	}
	c.JSON(http.StatusNotFound, apierror.WithCode(apierror.CodeNotFound, "Cola desconocida"))
	return "", false
}

func limite(c *gin.Context, def string) (int64, bool) {
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", def), 10, 64)
	if err != nil || limit < 1 || limit > 500 {
		c.JSON(http.StatusBadRequest, apierror.WithCode(apierror.CodeValidacion, "limit debe estar entre 1 y 500"))
		return 0, false
	}
	return limit, true
}

// ListarDLQ godoc
// @Summary Jobs fallidos de una cola
// @Tags admin
// @Produce json
// @Param queue path string true "confirmacion | email"
// @Param limit query int false "Maximo de entradas (default 50)"
// @Success 200 {array} worker.DLQEntry
// @Router /v1/admin/dlq/{queue} [get]
// @Security BearerAuth
func (h *AdminHandler) ListarDLQ(c *gin.Context) {
	queue, ok := colaDLQ(c)
	if !ok {
		return
	}
	limit, ok := limite(c, "50")
	if !ok {
		return
	}
	entries, err := h.dead.List(c.Request.Context(), queue, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	total, err := h.dead.Len(c.Request.Context(), queue)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries, "total": total})
}

// ReintentarDLQ godoc
// @Summary Reencolar jobs fallidos
// @Description Devuelve a su cola los jobs mas antiguos, con los intentos en cero.
// @Tags admin
// @Produce json
// @Param queue path string true "confirmacion | email"
// @Param limit query int false "Maximo de jobs (default 100)"
// @Router /v1/admin/dlq/{queue}/reintentar [post]
// @Security BearerAuth
func (h *AdminHandler) ReintentarDLQ(c *gin.Context) {
	queue, ok := colaDLQ(c)
	if !ok {
		return
	}
	limit, ok := limite(c, "100")
	if !ok {
		return
	}
	n, err := h.dead.Replay(c.Request.Context(), queue, int(limit))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reencolados": n})
}
