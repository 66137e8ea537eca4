package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("recurso no encontrado")
	ErrOutOfStock       = errors.New("El producto está agotado")
	ErrPromoInvalida    = errors.New("Código de promoción inválido")
	ErrPromoAgotada     = errors.New("Este código de promoción ya alcanzó su límite de usos")
	ErrNoAutenticado    = errors.New("Debes iniciar sesión para continuar")
	ErrCredenciales     = errors.New("credenciales invalidas")
	ErrEmailEnUso       = errors.New("el email ya está registrado")
	ErrCantidadInvalida = errors.New("la cantidad debe ser mayor a cero")
	ErrItemNoEnCarrito  = errors.New("el producto no está en el carrito")
	ErrCarritoVacio     = errors.New("el carrito está vacío")
)

// InsufficientStockError reports that a reservation would exceed what is
// available. Restantes is how many more units the cart may still take.
type InsufficientStockError struct {
	Restantes int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("No hay suficiente stock disponible. Solo quedan %d unidades disponibles.", e.Restantes)
}

// MalformedCartItemError names a cart line whose size key cannot be decomposed.
type MalformedCartItemError struct {
	Item string
}

func (e *MalformedCartItemError) Error() string {
	return fmt.Sprintf("el artículo del carrito %q tiene una talla mal formada", e.Item)
}

// TransactionAbortError wraps whatever made the order transaction roll back.
// Paso describes the failing step.
type TransactionAbortError struct {
	Paso string
	Err  error
}

func (e *TransactionAbortError) Error() string {
	return fmt.Sprintf("no se pudo completar el pedido (%s): %v", e.Paso, e.Err)
}

func (e *TransactionAbortError) Unwrap() error { return e.Err }

func abort(paso string, err error) error {
	return &TransactionAbortError{Paso: paso, Err: err}
}
