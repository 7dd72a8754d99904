package files

import (
	"mime"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxSize is the default upload size limit (10 MiB).
const DefaultMaxSize int64 = 10 << 20

// DefaultRetention is how long an upload is kept by default.
const DefaultRetention = time.Hour

// DefaultAllowedTypes lists the mime types accepted by default.
var DefaultAllowedTypes = []string{
	"application/pdf",
	"image/jpeg",
	"image/jpg",
	"image/png",
	"text/plain",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// Policy holds the constraints applied to every upload.
type Policy struct {
	MaxSize   int64
	Retention time.Duration
	allowed   map[string]struct{}
}

// NewPolicy builds a policy. Empty or non-positive values fall back to defaults.
func NewPolicy(maxSize int64, retention time.Duration, allowedTypes []string) Policy {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	if len(allowedTypes) == 0 {
		allowedTypes = DefaultAllowedTypes
	}

	allowed := make(map[string]struct{}, len(allowedTypes))
	for _, t := range allowedTypes {
		if t = normalizeType(t); t != "" {
			allowed[t] = struct{}{}
		}
	}

	return Policy{MaxSize: maxSize, Retention: retention, allowed: allowed}
}

// Allows reports whether the mime type is in the allow-list. Parameters such
// as charset are ignored.
func (p Policy) Allows(mimeType string) bool {
	_, ok := p.allowed[normalizeType(mimeType)]
	return ok
}

// isGeneric reports whether a declared type carries no information, in which
// case the content is sniffed instead.
func isGeneric(mimeType string) bool {
	t := normalizeType(mimeType)
	return t == "" || t == "application/octet-stream"
}

// detectType sniffs the content type from the leading bytes.
func detectType(data []byte) string {
	return normalizeType(mimetype.Detect(data).String())
}

func normalizeType(mimeType string) string {
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return strings.ToLower(mimeType)
	}
	return mediaType
}
