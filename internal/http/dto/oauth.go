package dto

// TokenResponse es la respuesta de /oauth/token (RFC 6749 §5.1 + jti como Spring).
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
	JTI          string `json:"jti"`
}

// ConsentResponse describe la aprobación pendiente cuando el cliente no es auto-approve.
type ConsentResponse struct {
	ConsentRequired bool     `json:"consent_required"`
	ClientID        string   `json:"client_id"`
	Scopes          []string `json:"scopes"`
	RedirectURI     string   `json:"redirect_uri"`
	State           string   `json:"state,omitempty"`
	// ApprovalParam es el parámetro a reenviar a /oauth/authorize para aprobar.
	ApprovalParam string `json:"approval_param"`
}
