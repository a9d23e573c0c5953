package validation

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"valid username", "user123", false},
		{"valid with underscore", "user_name", false},
		{"valid with dash", "user-name", false},
		{"too short", "ab", true},
		{"empty", "", true},
		{"too long", strings.Repeat("a", 51), true},
		{"invalid chars", "user name", true},
		{"invalid chars 2", "user@name", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUsername() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "secret1", false},
		{"empty", "", true},
		{"too short", "abc", true},
		{"bcrypt limit", strings.Repeat("a", 73), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePassword() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateWhiteboardID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"uuid", "1b9d6bcd-bbfd-4b2d-9b5d-ab8dfbbd4bed", false},
		{"empty", "", true},
		{"slash", "a/b", true},
		{"too long", strings.Repeat("a", 101), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWhiteboardID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateWhiteboardID() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateTitle(t *testing.T) {
	if err := ValidateTitle("Sprint Plan"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateTitle("   "); err == nil {
		t.Error("expected error for blank title")
	}
	if err := ValidateTitle(strings.Repeat("x", MaxTitleLength+1)); err == nil {
		t.Error("expected error for long title")
	}
}

func TestValidateColor(t *testing.T) {
	tests := []struct {
		color   string
		wantErr bool
	}{
		{"#000", false},
		{"#ff00aa", false},
		{"black", false},
		{"rgba(0, 0, 0, 0.5)", false},
		{"", true},
		{"#zzzzzz", true},
		{"url(javascript:alert(1))", true},
	}

	for _, tt := range tests {
		t.Run(tt.color, func(t *testing.T) {
			err := ValidateColor(tt.color)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateColor(%q) error = %v, wantErr %v", tt.color, err, tt.wantErr)
			}
		})
	}
}

func TestValidateImageDataURL(t *testing.T) {
	small := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("fake-png"))
	if err := ValidateImageDataURL(small); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	gif := "data:image/gif;base64," + base64.StdEncoding.EncodeToString([]byte("gif"))
	if err := ValidateImageDataURL(gif); err == nil {
		t.Error("expected error for gif")
	}

	big := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(make([]byte, MaxImageBytes+1))
	if err := ValidateImageDataURL(big); err == nil {
		t.Error("expected error for oversize image")
	}

	if err := ValidateImageDataURL("data:image/png;base64,%%%"); err == nil {
		t.Error("expected error for bad base64")
	}
}
