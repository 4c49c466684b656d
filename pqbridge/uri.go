package pqbridge

import (
	"fmt"
	"strings"
)

// ParseURI splits an s3:// URI into bucket and key components.
//
// Accepted formats:
//   - s3://bucket
//   - s3://bucket/key
//   - s3://bucket/path/to/key
//   - s3a://bucket/key
//
// Returns an ErrInvalidInput error if the URI is missing a scheme or bucket.
func ParseURI(uri string) (bucket, key string, err error) {
	raw := uri

	switch {
	case strings.HasPrefix(uri, "s3://"):
		uri = strings.TrimPrefix(uri, "s3://")
	case strings.HasPrefix(uri, "s3a://"):
		uri = strings.TrimPrefix(uri, "s3a://")
	default:
		return "", "", fmt.Errorf("%w: expected s3:// URI, got %q", ErrInvalidInput, raw)
	}

	// Triple-slash variants leave leading slashes behind.
	uri = strings.TrimLeft(uri, "/")

	if uri == "" {
		return "", "", fmt.Errorf("%w: missing bucket in URI %q", ErrInvalidInput, raw)
	}

	parts := strings.SplitN(uri, "/", 2)
	bucket = parts[0]
	if len(parts) > 1 {
		key = parts[1]
	}
	return bucket, key, nil
}

// IsURI reports whether s looks like an s3:// URI rather than a bare key.
func IsURI(s string) bool {
	return strings.HasPrefix(s, "s3://") || strings.HasPrefix(s, "s3a://")
}

// FormatURI is the inverse of ParseURI.
func FormatURI(bucket, key string) string {
	if key == "" {
		return "s3://" + bucket
	}
	return "s3://" + bucket + "/" + key
}
