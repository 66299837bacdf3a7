package utils

import "strings"

// mediaExtensions maps the media types a story may carry to the extension used in blob keys.
var mediaExtensions = map[string]string{
	"image/avif":      ".avif",
	"image/bmp":       ".bmp",
	"image/gif":       ".gif",
	"image/heic":      ".heic",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/svg+xml":   ".svg",
	"image/tiff":      ".tif",
	"image/webp":      ".webp",
	"audio/aac":       ".aac",
	"audio/mpeg":      ".mp3",
	"audio/ogg":       ".ogg",
	"audio/wav":       ".wav",
	"video/mp4":       ".mp4",
	"video/mpeg":      ".mpeg",
	"video/ogg":       ".ogv",
	"video/quicktime": ".mov",
	"video/webm":      ".webm",
	"video/x-flv":     ".flv",
	"video/x-msvideo": ".avi",
	"video/x-ms-wmv":  ".wmv",
	"text/plain":      ".txt",
}

// BaseType strips parameters such as charset; "Image/PNG; q=1" becomes "image/png".
func BaseType(mimeType string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
}

// ExtensionFor returns the blob key extension for mimeType, ".bin" when unknown.
func ExtensionFor(mimeType string) string {
	if ext, ok := mediaExtensions[BaseType(mimeType)]; ok {
		return ext
	}

	return ".bin"
}

// IsMedia reports whether mimeType is an image, audio or video type.
func IsMedia(mimeType string) bool {
	base := BaseType(mimeType)

	return strings.HasPrefix(base, "image/") ||
		strings.HasPrefix(base, "video/") ||
		strings.HasPrefix(base, "audio/")
}

// Compatible reports whether a sniffed type agrees with the declared one.
// An empty or generic declaration accepts anything sniffed; otherwise the
// top-level types must match ("video/mp4" vs "video/quicktime" is fine).
func Compatible(declared, detected string) bool {
	d := BaseType(declared)
	if d == "" || d == "application/octet-stream" {
		return true
	}

	s := BaseType(detected)
	if d == s {
		return true
	}

	return strings.Split(d, "/")[0] == strings.Split(s, "/")[0]
}
