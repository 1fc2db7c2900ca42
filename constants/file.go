package constants

import "strings"

// AllowedExtensions holds the accepted document extensions for lab uploads.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// MaxUploadBytes caps accepted document size (25 MiB).
const MaxUploadBytes = 25 << 20

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
