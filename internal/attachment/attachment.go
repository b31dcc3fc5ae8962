// Package attachment turns a user-selected file into a transport-ready
// base64 payload plus its declared media type.
package attachment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/stocklens/stocklens/internal/ailink/encode"
)

// ErrTooLarge is the cause recorded when a file exceeds the configured limit.
var ErrTooLarge = errors.New("attachment exceeds size limit")

// EncodingError reports that an attachment could not be read or encoded.
type EncodingError struct {
	Name string
	Err  error
}

func (e *EncodingError) Error() string {
	if e == nil {
		return "attachment encoding failed"
	}
	if e.Name == "" {
		return fmt.Sprintf("encode attachment: %v", e.Err)
	}
	return fmt.Sprintf("encode attachment %q: %v", e.Name, e.Err)
}

func (e *EncodingError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// File is a selected attachment. Its contents are read only when encoded.
type File struct {
	Name      string
	MediaType string
	Size      int64

	open func() (io.ReadCloser, error)
}

// Encoded is the transport-ready form of a File.
type Encoded struct {
	// Data is standard base64 with no data-URI prefix.
	Data      string
	MediaType string
}

// DataURL renders the payload as a data URI.
func (e *Encoded) DataURL() string {
	if e == nil {
		return ""
	}
	return "data:" + e.MediaType + ";base64," + e.Data
}

// FromPath describes a file on disk. The media type is taken from the file
// extension; unknown extensions are sniffed when the file is encoded.
func FromPath(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &EncodingError{Name: filepath.Base(path), Err: err}
	}
	if info.IsDir() {
		return nil, &EncodingError{Name: filepath.Base(path), Err: errors.New("is a directory")}
	}
	return &File{
		Name:      filepath.Base(path),
		MediaType: mediaTypeFromName(path),
		Size:      info.Size(),
		open: func() (io.ReadCloser, error) {
			return os.Open(path) // #nosec G304 -- Attachment path is user-provided
		},
	}, nil
}

// FromBytes wraps an in-memory file.
func FromBytes(name, mediaType string, data []byte) *File {
	if strings.TrimSpace(mediaType) == "" {
		mediaType = mediaTypeFromName(name)
	}
	return &File{
		Name:      name,
		MediaType: normalizeMediaType(mediaType),
		Size:      int64(len(data)),
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// FromOpener wraps a file whose contents come from open, such as a
// multipart upload.
func FromOpener(name, mediaType string, size int64, open func() (io.ReadCloser, error)) *File {
	if strings.TrimSpace(mediaType) == "" || mediaType == "application/octet-stream" {
		mediaType = mediaTypeFromName(name)
	}
	return &File{Name: name, MediaType: normalizeMediaType(mediaType), Size: size, open: open}
}

// FromDataURL wraps a data URI, as produced by a browser file reader.
func FromDataURL(name, dataURL string) (*File, error) {
	data, mediaType, err := encode.DecodeDataURL(dataURL)
	if err != nil {
		return nil, &EncodingError{Name: name, Err: err}
	}
	return FromBytes(name, mediaType, data), nil
}

// Option tunes Encode.
type Option func(*options)

type options struct {
	maxBytes int64
}

// WithMaxBytes rejects files larger than n bytes. Zero disables the limit.
func WithMaxBytes(n int64) Option {
	return func(o *options) { o.maxBytes = n }
}

// Encode reads f fully and returns its base64 payload and media type. Any
// read failure is returned as an *EncodingError; partial data is never
// returned.
func Encode(ctx context.Context, f *File, opts ...Option) (*Encoded, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if f == nil || f.open == nil {
		return nil, &EncodingError{Err: errors.New("no file selected")}
	}
	if err := ctx.Err(); err != nil {
		return nil, &EncodingError{Name: f.Name, Err: err}
	}
	if o.maxBytes > 0 && f.Size > o.maxBytes {
		return nil, &EncodingError{Name: f.Name, Err: ErrTooLarge}
	}

	data, err := read(ctx, f, o.maxBytes)
	if err != nil {
		return nil, &EncodingError{Name: f.Name, Err: err}
	}

	mediaType := f.MediaType
	if mediaType == "" {
		mediaType = normalizeMediaType(http.DetectContentType(data))
	}

	return &Encoded{Data: encode.EncodeBase64String(data), MediaType: mediaType}, nil
}

// Bytes reads the raw contents of f, honoring the same limit as Encode.
func Bytes(ctx context.Context, f *File, maxBytes int64) ([]byte, error) {
	if f == nil || f.open == nil {
		return nil, &EncodingError{Err: errors.New("no file selected")}
	}
	data, err := read(ctx, f, maxBytes)
	if err != nil {
		return nil, &EncodingError{Name: f.Name, Err: err}
	}
	return data, nil
}

func read(ctx context.Context, f *File, maxBytes int64) ([]byte, error) {
	rc, err := f.open()
	if err != nil {
		return nil, err
	}
	defer rc.Close() // nolint:errcheck // read-only

	var r io.Reader = rc
	if maxBytes > 0 {
		r = io.LimitReader(rc, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, ErrTooLarge
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return data, nil
}

func mediaTypeFromName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	switch ext {
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	case ".webp":
		return "image/webp"
	}
	return normalizeMediaType(mime.TypeByExtension(ext))
}

func normalizeMediaType(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	parsed, _, err := mime.ParseMediaType(value)
	if err != nil {
		return strings.ToLower(value)
	}
	return parsed
}
