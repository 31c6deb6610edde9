package dto

import "github.com/xueke/download-client/internal/model"

// LoginResponse is the body returned by POST /api/auth/login.
//
// Success=false with a 200 status is a business rejection; Error then
// carries the server's reason.
type LoginResponse struct {
	Success  bool           `json:"success"`
	Error    string         `json:"error,omitempty"`
	Message  string         `json:"message,omitempty"`
	UserID   string         `json:"user_id,omitempty"`
	UserInfo map[string]any `json:"user_info,omitempty"`
}

// ValidateLicenseResponse is the body returned by POST /api/license/validate.
type ValidateLicenseResponse struct {
	Valid       bool               `json:"valid"`
	Error       string             `json:"error,omitempty"`
	Message     string             `json:"message,omitempty"`
	LicenseInfo *model.LicenseInfo `json:"license_info,omitempty"`
}

// SubmitTaskResponse is the body returned by POST /api/tasks. Task is the
// server's task object, carrying the server-assigned id.
type SubmitTaskResponse struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
	Task    *model.Task `json:"task,omitempty"`
}

// UserDetails is the body returned by GET /api/users/{userId}.
type UserDetails struct {
	UserID         string             `json:"user_id"`
	Username       string             `json:"username"`
	Email          string             `json:"email"`
	Status         string             `json:"status,omitempty"`
	CreatedAt      string             `json:"created_at,omitempty"`
	LastLogin      string             `json:"last_login,omitempty"`
	LicenseValid   bool               `json:"license_valid"`
	LicenseInfo    *model.LicenseInfo `json:"license_info,omitempty"`
	TotalTasks     int                `json:"total_tasks,omitempty"`
	CompletedTasks int                `json:"completed_tasks,omitempty"`
	PendingTasks   int                `json:"pending_tasks,omitempty"`
}

// DownloadLinksResponse is the body returned by GET /api/tasks/{id}/download.
type DownloadLinksResponse struct {
	TaskID      string   `json:"task_id,omitempty"`
	Status      string   `json:"status,omitempty"`
	DirectLinks []string `json:"direct_links"`
	Error       string   `json:"error,omitempty"`
}
