package dto

type LoginRequest struct {
	Code string `json:"code" binding:"required"`
}

type LoginResponse struct {
	Message string `json:"message"`
	IDToken string `json:"id_token"`
	Email   string `json:"email"`
	Created bool   `json:"created"`
}

type RegisterFCMTokenRequest struct {
	Token      string `json:"token" binding:"required"`
	DeviceInfo string `json:"device_info"`
}

// IDClaims are the verified claims of a Google ID token.
type IDClaims struct {
	Subject string
	Email   string
	Name    string
}
