package model

// ErrorResponse is the body of every non-2xx API response. Code is a stable
// machine-readable reason, set only where clients branch on it.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// OKResponse acknowledges an operation that returns no resource.
type OKResponse struct {
	OK bool `json:"ok"`
}
