package auth

// ValidateTokenRequest asks for verification of a session token.
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateTokenResponse carries the verified identity, or the reason the
// token was rejected.
type ValidateTokenResponse struct {
	Valid  bool   `json:"valid"`
	UserID string `json:"user_id,omitempty"`
	Wallet string `json:"wallet,omitempty"`
	Error  string `json:"error,omitempty"`
}
