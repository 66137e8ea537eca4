package handler

import (
	"errors"
	"net/http"
	"reflect"

	"tienda/internal/apierror"
	"tienda/internal/middleware"
	"tienda/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails; the
// caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.WithCode(apierror.CodeValidacion, "JSON invalido: "+err.Error()))
		return false
	}
	return runValidation(c, req)
}

// bindQueryAndValidate is bindAndValidate for query strings.
func bindQueryAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.WithCode(apierror.CodeValidacion, "Parametros invalidos: "+err.Error()))
		return false
	}
	return runValidation(c, req)
}

func runValidation(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, apierror.WithCode(apierror.CodeValidacion, err.Error()))
			return false
		}
		fields := make(map[string]string)
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// respondError maps a service error to its HTTP status and envelope.
// Unknown errors become a 500 without internal details.
func respondError(c *gin.Context, err error) {
	var (
		insuf     *service.InsufficientStockError
		malformed *service.MalformedCartItemError
		abortErr  *service.TransactionAbortError
	)
	switch {
	case errors.As(err, &malformed):
		c.JSON(http.StatusUnprocessableEntity, apierror.WithCode(apierror.CodeMalformedItem, malformed.Error()))
	case errors.As(err, &abortErr):
		// the cause decides the status; the message keeps the failing step
		status, code := http.StatusConflict, apierror.CodeTransactionAbort
		if errors.Is(abortErr.Err, service.ErrPromoAgotada) {
			code = apierror.CodePromoAgotada
		}
		if !isDomain(abortErr.Err) {
			logInternal(c, err)
			c.JSON(http.StatusInternalServerError, apierror.WithCode(code, "No se pudo completar el pedido ("+abortErr.Paso+"). Tu carrito no fue modificado."))
			return
		}
		c.JSON(status, apierror.WithCode(code, abortErr.Error()))
	case errors.As(err, &insuf):
		n := insuf.Restantes
		c.JSON(http.StatusConflict, &apierror.APIError{Detail: insuf.Error(), Code: apierror.CodeInsufficientStock, Restantes: &n})
	case errors.Is(err, service.ErrOutOfStock):
		c.JSON(http.StatusConflict, apierror.WithCode(apierror.CodeOutOfStock, err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, apierror.WithCode(apierror.CodeNotFound, "Recurso no encontrado"))
	case errors.Is(err, service.ErrItemNoEnCarrito):
		c.JSON(http.StatusNotFound, apierror.WithCode(apierror.CodeNotFound, err.Error()))
	case errors.Is(err, service.ErrPromoInvalida):
		c.JSON(http.StatusUnprocessableEntity, apierror.WithCode(apierror.CodePromoInvalida, err.Error()))
	case errors.Is(err, service.ErrPromoAgotada):
		c.JSON(http.StatusUnprocessableEntity, apierror.WithCode(apierror.CodePromoAgotada, err.Error()))
	case errors.Is(err, service.ErrCantidadInvalida), errors.Is(err, service.ErrCarritoVacio):
		c.JSON(http.StatusBadRequest, apierror.WithCode(apierror.CodeValidacion, err.Error()))
	case errors.Is(err, service.ErrNoAutenticado), errors.Is(err, service.ErrCredenciales):
		c.JSON(http.StatusUnauthorized, apierror.WithCode(apierror.CodeNoAutenticado, err.Error()))
	case errors.Is(err, service.ErrEmailEnUso):
		c.JSON(http.StatusConflict, apierror.WithCode(apierror.CodeConflicto, err.Error()))
	default:
		logInternal(c, err)
		c.JSON(http.StatusInternalServerError, apierror.WithCode(apierror.CodeInterno, "Error interno del servidor"))
	}
}

// isDomain reports whether err is one of the errors a customer can act on.
func isDomain(err error) bool {
	var insuf *service.InsufficientStockError
	return errors.Is(err, service.ErrPromoAgotada) || errors.As(err, &insuf) ||
		errors.Is(err, service.ErrOutOfStock)
}

func logInternal(c *gin.Context, err error) {
	log.Error().
		Err(err).
		Str("request_id", c.GetString(middleware.RequestIDKey)).
		Str("path", c.FullPath()).
		Msg("request failed")
}

// usuarioActual returns the signed-in identity or writes a 401.
func usuarioActual(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.UsuarioID(c)
	if !ok {
		respondError(c, service.ErrNoAutenticado)
		return id, false
	}
	return id, true
}
