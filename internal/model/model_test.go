package model

import (
	"strings"
	"testing"
	"time"
)

func TestNewTask_ID(t *testing.T) {
	task := NewTask([]string{"https://example.com/a", "https://example.com/b"}, "user@example.com", "u1", "alice")

	if !strings.HasPrefix(task.TaskID, OfflineTaskPrefix) {
		t.Errorf("TaskID = %q, want prefix %q", task.TaskID, OfflineTaskPrefix)
	}

	parts := strings.Split(task.TaskID, "_")
	if len(parts) != 3 {
		t.Fatalf("TaskID = %q, want three underscore-separated parts", task.TaskID)
	}
	if len(parts[2]) != 8 {
		t.Errorf("TaskID hash part = %q, want 8 hex chars", parts[2])
	}
}

func TestNewTask_IDStableForSameURLs(t *testing.T) {
	urls := []string{"https://example.com/a"}
	now := time.Now()

	a := offlineTaskID(now, urls)
	b := offlineTaskID(now, urls)
	if a != b {
		t.Errorf("ids for identical submissions differ: %q vs %q", a, b)
	}

	c := offlineTaskID(now, []string{"https://example.com/other"})
	if a == c {
		t.Errorf("ids for different URL sets collide: %q", a)
	}
}

func TestNewTask_Fields(t *testing.T) {
	task := NewTask([]string{"https://example.com/a"}, "user@example.com", "u1", "alice")

	if task.Status != StatusPending {
		t.Errorf("Status = %q, want %q", task.Status, StatusPending)
	}
	if task.UserID != "u1" || task.Username != "alice" {
		t.Errorf("identity = (%q, %q), want (u1, alice)", task.UserID, task.Username)
	}
	if task.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestTaskStatus_Active(t *testing.T) {
	tests := []struct {
		status TaskStatus
		want   bool
	}{
		{StatusPending, false},
		{StatusOfflinePending, false},
		{StatusProcessing, true},
		{StatusDownloading, true},
		{StatusCompleted, false},
		{StatusFailed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Active(); got != tt.want {
				t.Errorf("Active() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHistoryEntryFromTask_TruncatesURLs(t *testing.T) {
	task := NewTask([]string{"u1", "u2", "u3", "u4", "u5"}, "user@example.com", "", "")

	entry := HistoryEntryFromTask(task)
	if len(entry.URLs) != HistoryURLLimit {
		t.Fatalf("len(URLs) = %d, want %d", len(entry.URLs), HistoryURLLimit)
	}
	if entry.URLs[0] != "u1" || entry.URLs[2] != "u3" {
		t.Errorf("URLs = %v, want first three in order", entry.URLs)
	}
	if entry.Server != "cloudflare" {
		t.Errorf("Server = %q, want cloudflare", entry.Server)
	}
}

func TestHistoryEntryFromTask_ShortList(t *testing.T) {
	task := NewTask([]string{"u1"}, "user@example.com", "", "")

	entry := HistoryEntryFromTask(task)
	if len(entry.URLs) != 1 {
		t.Errorf("len(URLs) = %d, want 1", len(entry.URLs))
	}
}

func TestUserInfoFromMap(t *testing.T) {
	info := UserInfoFromMap(map[string]any{
		"user_id":       "u1",
		"username":      "alice",
		"email":         "alice@example.com",
		"license_valid": true,
		"last_login":    "2026-08-30T10:00:00Z",
	})

	if info.UserID != "u1" || info.Username != "alice" {
		t.Errorf("identity = (%q, %q), want (u1, alice)", info.UserID, info.Username)
	}
	if info.Email != "alice@example.com" {
		t.Errorf("Email = %q", info.Email)
	}
	if !info.LicenseValid {
		t.Error("LicenseValid = false, want true")
	}
	if info.Extra["last_login"] != "2026-08-30T10:00:00Z" {
		t.Errorf("Extra = %v, want unparsed keys kept", info.Extra)
	}
	if _, typed := info.Extra["email"]; typed {
		t.Error("typed keys must not leak into Extra")
	}

	if UserInfoFromMap(nil) != nil {
		t.Error("nil map should yield nil")
	}
}

func TestLicenseInfo_Expiry(t *testing.T) {
	info := &LicenseInfo{ExpiresAt: "2026-09-30T00:00:00Z"}
	want := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	if got := info.Expiry(); !got.Equal(want) {
		t.Errorf("Expiry() = %v, want %v", got, want)
	}

	var nilInfo *LicenseInfo
	if !nilInfo.Expiry().IsZero() {
		t.Error("nil LicenseInfo should report zero expiry")
	}
	if !(&LicenseInfo{ExpiresAt: "not-a-date"}).Expiry().IsZero() {
		t.Error("unparseable expiry should report zero time")
	}
}
