package constants

import "strings"

// Source formats recorded on each document.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
)

// AllowedExtensions holds the capture file extensions accepted for ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"heic": {},
	"heif": {},
	"webp": {},
	"tif":  {},
	"tiff": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedExt reports whether a normalized extension may be ingested.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[ext]
	return ok
}

// MapExtToFormat returns PDF, IMAGE or "" for a normalized extension.
func MapExtToFormat(ext string) string {
	switch ext {
	case "pdf":
		return PDF
	case "jpg", "jpeg", "png", "heic", "heif", "webp", "tif", "tiff":
		return IMAGE
	}
	return ""
}

func IsHEICExt(ext string) bool { return ext == "heic" || ext == "heif" }

func IsWebPExt(ext string) bool { return ext == "webp" }
