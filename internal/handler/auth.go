package handler

import (
	"net/http"

	"tienda/internal/dto"
	"tienda/internal/middleware"
	"tienda/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct{ svc service.AuthService }

func NewAuthHandler(svc service.AuthService) *AuthHandler { return &AuthHandler{svc: svc} }

// Registro godoc
// @Summary Alta de cliente
// @Tags auth
// @Accept json
// @Produce json
// @Param body body dto.RegistroRequest true "Datos del cliente"
// @Success 201 {object} dto.StoreUserResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/auth/registro [post]
func (h *AuthHandler) Registro(c *gin.Context) {
	var req dto.RegistroRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Registrar(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Login godoc
// @Summary Login de cliente
// @Description Si llega X-Guest-Session, el carrito invitado se fusiona con el de la cuenta.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body dto.LoginRequest true "Credenciales"
// @Param X-Guest-Session header string false "Sesion de invitado"
// @Success 200 {object} dto.LoginResponse
// @Failure 401 {object} apierror.APIError
// @Router /v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Login(c.Request.Context(), req, middleware.GuestID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	uid, ok := usuarioActual(c)
	if !ok {
		return
	}
	if err := h.svc.Logout(c.Request.Context(), uid); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) Perfil(c *gin.Context) {
	uid, ok := usuarioActual(c)
	if !ok {
		return
	}
	resp, err := h.svc.Perfil(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
