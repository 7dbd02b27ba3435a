package dto

// GoogleSignInRequest carries the Google ID token ("credential") and
// optionally an already-issued user token to merge the login into.
type GoogleSignInRequest struct {
	Credential string `json:"credential"`
	Token      string `json:"token,omitempty"`
}

// ErrorResponse is the uniform error envelope. The shape is a client
// contract and must not change: {code, name, description}.
type ErrorResponse struct {
	Code        int    `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
}
