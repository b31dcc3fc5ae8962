package attachment

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stocklens/stocklens/internal/ailink/encode"
)

func TestEncodeTenByteFileRoundTrips(t *testing.T) {
	sample := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	path := filepath.Join(t.TempDir(), "sample.png")
	require.NoError(t, os.WriteFile(path, sample, 0o600))

	file, err := FromPath(path)
	require.NoError(t, err)
	require.Equal(t, "image/png", file.MediaType)
	require.EqualValues(t, 10, file.Size)

	encoded, err := Encode(context.Background(), file)
	require.NoError(t, err)
	require.Equal(t, "image/png", encoded.MediaType)

	decoded, err := encode.DecodeBase64String(encoded.Data)
	require.NoError(t, err)
	require.Equal(t, sample, decoded)
}

func TestEncodeOmitsDataURIPrefix(t *testing.T) {
	file, err := FromDataURL("chart.jpg", "data:image/jpeg;base64,/9j/")
	require.NoError(t, err)

	encoded, err := Encode(context.Background(), file)
	require.NoError(t, err)
	require.Equal(t, "/9j/", encoded.Data)
	require.Equal(t, "image/jpeg", encoded.MediaType)
	require.Equal(t, "data:image/jpeg;base64,/9j/", encoded.DataURL())
}

func TestEncodeSniffsUnknownMediaType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	encoded, err := Encode(context.Background(), FromBytes("upload", "", png))
	require.NoError(t, err)
	require.Equal(t, "image/png", encoded.MediaType)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestEncodeReadFailureIsEncodingError(t *testing.T) {
	file := FromOpener("broken.png", "image/png", 10, func() (io.ReadCloser, error) {
		return io.NopCloser(failingReader{}), nil
	})

	encoded, err := Encode(context.Background(), file)
	require.Nil(t, encoded)

	var encErr *EncodingError
	require.ErrorAs(t, err, &encErr)
	require.Equal(t, "broken.png", encErr.Name)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestEncodeOpenFailureIsEncodingError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.png")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	file, err := FromPath(path)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	_, err = Encode(context.Background(), file)
	var encErr *EncodingError
	require.ErrorAs(t, err, &encErr)
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestEncodeEnforcesMaxBytes(t *testing.T) {
	file := FromBytes("big.png", "image/png", make([]byte, 32))
	_, err := Encode(context.Background(), file, WithMaxBytes(16))
	require.ErrorIs(t, err, ErrTooLarge)

	// A file that lies about its size is still caught while reading.
	file.Size = 1
	_, err = Encode(context.Background(), file, WithMaxBytes(16))
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestEncodeRejectsNilAndCanceled(t *testing.T) {
	_, err := Encode(context.Background(), nil)
	var encErr *EncodingError
	require.ErrorAs(t, err, &encErr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Encode(ctx, FromBytes("a.png", "image/png", []byte{1}))
	require.ErrorIs(t, err, context.Canceled)
}

func TestFromPathMissingFile(t *testing.T) {
	_, err := FromPath(filepath.Join(t.TempDir(), "missing.png"))
	var encErr *EncodingError
	require.ErrorAs(t, err, &encErr)
}

func TestMediaTypeFromName(t *testing.T) {
	require.Equal(t, "image/jpeg", mediaTypeFromName("a.JPG"))
	require.Equal(t, "image/webp", mediaTypeFromName("a.webp"))
	require.Equal(t, "image/heic", mediaTypeFromName("a.heic"))
	require.Empty(t, mediaTypeFromName("noext"))
}
