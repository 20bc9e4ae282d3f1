package auth

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterDTO carries the credentials of a self-registering user.
type RegisterDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
