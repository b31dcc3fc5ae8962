package encode

import (
	"encoding/base64"
	"fmt"
	"strings"
)

func DecodeBase64String(value string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(value)
}

func EncodeBase64String(value []byte) string {
	return base64.StdEncoding.EncodeToString(value)
}

// DataURL renders a base64 data URI for the given payload.
func DataURL(mediaType string, value []byte) string {
	return "data:" + mediaType + ";base64," + EncodeBase64String(value)
}

// StripDataURL returns the base64 payload of a data URI together with its
// declared media type. Bare base64 input is returned unchanged with an
// empty media type.
func StripDataURL(value string) (payload, mediaType string, err error) {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "data:") {
		return value, "", nil
	}
	header, payload, ok := strings.Cut(value, ",")
	if !ok {
		return "", "", fmt.Errorf("malformed data url: missing payload separator")
	}
	header = strings.TrimPrefix(header, "data:")
	if !strings.HasSuffix(header, ";base64") {
		return "", "", fmt.Errorf("malformed data url: only base64 payloads are supported")
	}
	mediaType = strings.TrimSuffix(header, ";base64")
	if idx := strings.Index(mediaType, ";"); idx >= 0 {
		mediaType = mediaType[:idx]
	}
	return payload, mediaType, nil
}

// DecodeDataURL decodes either a data URI or bare base64 text.
func DecodeDataURL(value string) ([]byte, string, error) {
	payload, mediaType, err := StripDataURL(value)
	if err != nil {
		return nil, "", err
	}
	decoded, err := DecodeBase64String(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode base64 payload: %w", err)
	}
	return decoded, mediaType, nil
}
