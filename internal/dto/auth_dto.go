package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

type RegistroRequest struct {
	Email         string `json:"email"          validate:"required,email"`
	Password      string `json:"password"       validate:"required,min=8"`
	Nombre        string `json:"nombre"         validate:"required,min=2,max=100"`
	Apellido      string `json:"apellido"       validate:"omitempty,max=100"`
	Telefono      string `json:"telefono"       validate:"omitempty,min=8,max=20"`
	EstacionMetro string `json:"estacion_metro" validate:"omitempty,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=4"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type StoreUserResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Nombre        string `json:"nombre"`
	Apellido      string `json:"apellido,omitempty"`
	Telefono      string `json:"telefono,omitempty"`
	EstacionMetro string `json:"estacion_metro,omitempty"`
	Rol           string `json:"rol"`
}

type LoginResponse struct {
	AccessToken string            `json:"access_token"`
	TokenType   string            `json:"token_type"`
	ExpiresIn   int               `json:"expires_in"` // seconds
	User        StoreUserResponse `json:"user"`
	Carrito     CarritoResponse   `json:"carrito"`
}
