package attachment

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestPreviewShrinksImage(t *testing.T) {
	file := FromBytes("chart.png", "image/png", pngBytes(t, 1000, 500))

	thumb, err := Preview(context.Background(), file, 200)
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(thumb))
	require.NoError(t, err)
	require.Equal(t, 200, cfg.Width)
	require.Equal(t, 100, cfg.Height)
}

func TestPreviewKeepsSmallImages(t *testing.T) {
	file := FromBytes("icon.png", "image/png", pngBytes(t, 80, 40))

	thumb, err := Preview(context.Background(), file, 256)
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(thumb))
	require.NoError(t, err)
	require.Equal(t, 80, cfg.Width)
	require.Equal(t, 40, cfg.Height)
}

func TestPreviewRejectsNonImages(t *testing.T) {
	_, err := Preview(context.Background(), FromBytes("notes.txt", "text/plain", []byte("hello")), 128)
	require.Error(t, err)
}

func TestPreviewRejectsOversizedDimensions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 7000, 6000))))
	file := FromBytes("blank.png", "image/png", buf.Bytes())

	_, err := Preview(context.Background(), file, 512)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrImageTooLarge))
}
