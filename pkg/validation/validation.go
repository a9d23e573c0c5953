package validation

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxImageBytes is the decoded size cap for relayed images (2 MiB).
	MaxImageBytes = 2 * 1024 * 1024
	MaxTitleLength = 200
	MaxTextLength  = 1000
)

var (
	// UsernameRegex validates username format
	UsernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// WhiteboardIDRegex validates whiteboard ID format
	WhiteboardIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// ColorRegex accepts hex colors, css color names and rgb()/rgba()
	ColorRegex = regexp.MustCompile(`^(#[0-9a-fA-F]{3,8}|[a-zA-Z]{1,32}|rgba?\([0-9.,\s%]+\))$`)

	imagePrefixes = []string{"data:image/png;base64,", "data:image/jpeg;base64,", "data:image/jpg;base64,"}
)

// ValidateUsername validates username
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if len(username) < 3 {
		return fmt.Errorf("username must be at least 3 characters")
	}
	if len(username) > 50 {
		return fmt.Errorf("username is too long (max 50 characters)")
	}
	if !UsernameRegex.MatchString(username) {
		return fmt.Errorf("username contains invalid characters (only letters, numbers, _, - allowed)")
	}
	return nil
}

// ValidatePassword validates password
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}
	if len(password) < 6 {
		return fmt.Errorf("password must be at least 6 characters")
	}
	// bcrypt ignores everything past 72 bytes
	if len(password) > 72 {
		return fmt.Errorf("password is too long (max 72 bytes)")
	}
	return nil
}

// ValidateWhiteboardID validates whiteboard ID
func ValidateWhiteboardID(id string) error {
	if id == "" {
		return fmt.Errorf("whiteboard ID is required")
	}
	if len(id) > 100 {
		return fmt.Errorf("whiteboard ID is too long (max 100 characters)")
	}
	if !WhiteboardIDRegex.MatchString(id) {
		return fmt.Errorf("invalid whiteboard ID format")
	}
	return nil
}

// ValidateTitle validates whiteboard title
func ValidateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("title is required")
	}
	if !utf8.ValidString(title) {
		return fmt.Errorf("title contains invalid characters")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return fmt.Errorf("title is too long (max %d characters)", MaxTitleLength)
	}
	return nil
}

// ValidateColor validates a stroke or text color
func ValidateColor(color string) error {
	if color == "" {
		return fmt.Errorf("color is required")
	}
	if !ColorRegex.MatchString(color) {
		return fmt.Errorf("invalid color %q", color)
	}
	return nil
}

// ValidateText validates text placed on the canvas
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("text is required")
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return fmt.Errorf("text is too long (max %d characters)", MaxTextLength)
	}
	return nil
}

// ValidateImageDataURL checks a base64 png/jpeg data URL and its decoded size.
func ValidateImageDataURL(dataURL string) error {
	var payload string
	for _, prefix := range imagePrefixes {
		if strings.HasPrefix(dataURL, prefix) {
			payload = strings.TrimPrefix(dataURL, prefix)
			break
		}
	}
	if payload == "" {
		return fmt.Errorf("image must be a png or jpeg data URL")
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageBytes+2 {
		return fmt.Errorf("image is too large (max %d bytes)", MaxImageBytes)
	}
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("image data is not valid base64: %w", err)
	}
	if len(decoded) > MaxImageBytes {
		return fmt.Errorf("image is too large (max %d bytes)", MaxImageBytes)
	}
	return nil
}

// ValidateNonEmptyString validates that string is not empty after trimming
func ValidateNonEmptyString(s, fieldName string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}
