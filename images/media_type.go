package images

import (
	"mime"
	"slices"
	"strings"
)

// AllowedDocumentTypes are the declared media types accepted for document photos
var AllowedDocumentTypes = []string{"image/jpeg", "image/jpg", "image/png"}

// NormalizeMediaType lowercases a declared media type and drops its parameters
func NormalizeMediaType(declared string) string {
	declared = strings.TrimSpace(declared)
	if declared == "" {
		return ""
	}
	if mediaType, _, err := mime.ParseMediaType(declared); err == nil {
		return strings.ToLower(mediaType)
	}
	// ParseMediaType is strict, fall back to a plain cut for odd client headers
	mediaType, _, _ := strings.Cut(declared, ";")
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// IsAllowedMediaType reports whether declared matches the allow list, ignoring case
func IsAllowedMediaType(declared string, allowed []string) bool {
	mediaType := NormalizeMediaType(declared)
	if mediaType == "" {
		return false
	}
	return slices.ContainsFunc(allowed, func(a string) bool {
		return strings.EqualFold(a, mediaType)
	})
}
