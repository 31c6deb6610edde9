package model

import "time"

// UserInfo holds the server-reported profile of the logged-in user.
//
// Extra is the untyped remainder of the profile object; the session only
// branches on the typed fields and passes the rest through to observers.
type UserInfo struct {
	UserID       string `json:"user_id,omitempty"`
	Username     string `json:"username,omitempty"`
	Email        string `json:"email,omitempty"`
	LicenseValid bool   `json:"license_valid,omitempty"`

	Extra map[string]any `json:"-"`
}

// UserInfoFromMap types the known keys of a raw profile object. Keys the
// struct does not model are kept in Extra so nothing the server reported is
// lost. A nil map yields nil.
func UserInfoFromMap(m map[string]any) *UserInfo {
	if m == nil {
		return nil
	}
	info := &UserInfo{}
	for key, value := range m {
		switch key {
		case "user_id":
			info.UserID, _ = value.(string)
		case "username":
			info.Username, _ = value.(string)
		case "email":
			info.Email, _ = value.(string)
		case "license_valid":
			info.LicenseValid, _ = value.(bool)
		default:
			if info.Extra == nil {
				info.Extra = make(map[string]any)
			}
			info.Extra[key] = value
		}
	}
	return info
}

// LicenseInfo holds the server-reported state of a validated license.
//
// Field names follow the license validation response of the service.
type LicenseInfo struct {
	LicenseKey  string `json:"license_key"`
	UserID      string `json:"user_id,omitempty"`
	Username    string `json:"username,omitempty"`
	Days        int    `json:"days,omitempty"`
	MaxUses     int    `json:"max_uses,omitempty"`
	UsedCount   int    `json:"used_count,omitempty"`
	DaysLeft    int    `json:"days_left,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	ExpiresAt   string `json:"expires_at,omitempty"`
	ActivatedAt string `json:"activated_at,omitempty"`
	DeviceID    string `json:"device_id,omitempty"`
}

// Expiry parses the license expiry timestamp. The zero time is returned when
// the server did not report one or it does not parse.
func (l *LicenseInfo) Expiry() time.Time {
	if l == nil || l.ExpiresAt == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, l.ExpiresAt)
	if err != nil {
		return time.Time{}
	}
	return t
}
