package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, c color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestRun_StylisesImage(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.png")
	writePNG(t, in, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	var received struct {
		SignatureName string      `json:"signature_name"`
		Instances     [][][]int `json:"instances"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"predictions": [[[[255, 0, 0], [255, 0, 0]], [[255, 0, 0], [255, 0, 0]]]]}`))
	}))
	defer srv.Close()

	// --- Act ---
	err := run(context.Background(), &bytes.Buffer{}, []string{
		"--image_path", in,
		"--server_url", srv.URL,
		"--output", out,
	})

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "predict", received.SignatureName)
	require.Len(t, received.Instances, 2, "instances is the [height][width][channels] image")
	require.Len(t, received.Instances[1], 2)
	assert.Equal(t, []int{10, 20, 30}, received.Instances[1][1])

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	got, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 2, 2), got.Bounds())
	r, g, b, _ := got.At(1, 1).RGBA()
	assert.Equal(t, [3]uint32{0xffff, 0, 0}, [3]uint32{r, g, b})
}

func TestRun_ServerError(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	writePNG(t, in, color.RGBA{A: 255})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := run(context.Background(), &bytes.Buffer{}, []string{
		"--image_path", in,
		"--server_url", srv.URL,
		"--output", filepath.Join(dir, "out.png"),
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.NoFileExists(t, filepath.Join(dir, "out.png"))
}

func TestRun_MissingImage(t *testing.T) {
	err := run(context.Background(), &bytes.Buffer{}, []string{"--image_path", filepath.Join(t.TempDir(), "none.png")})

	require.Error(t, err)
}
