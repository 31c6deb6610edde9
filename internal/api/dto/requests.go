// Package dto defines the JSON request and response shapes of the Xueke
// service API. Field names match the server's wire names exactly.
package dto

// LoginRequest is the body of POST /api/auth/login. Password carries the
// one-way digest, never the plaintext.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	DeviceID string `json:"device_id"`
}

// ValidateLicenseRequest is the body of POST /api/license/validate.
type ValidateLicenseRequest struct {
	LicenseKey string `json:"license_key"`
	DeviceID   string `json:"device_id"`
	UserID     string `json:"user_id"`
}

// SubmitTaskRequest is the body of POST /api/tasks.
type SubmitTaskRequest struct {
	UserID      string   `json:"user_id"`
	URLs        []string `json:"urls"`
	Email       string   `json:"email"`
	SubmittedBy string   `json:"submitted_by"`
}
