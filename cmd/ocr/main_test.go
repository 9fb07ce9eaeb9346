package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoEngine struct{ calls int }

func (e *echoEngine) Name() string { return "echo" }

func (e *echoEngine) Recognize(context.Context, []byte, string) (string, error) {
	e.calls++
	return "scanned text", nil
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestDocumentPaths(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "b.png"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("%PDF-1.4"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	paths, err := documentPaths(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.pdf"), filepath.Join(dir, "b.png")}, paths)

	_, err = documentPaths(t.TempDir())
	assert.Error(t, err)
}

func TestRecognizeDocumentImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.png")
	writePNG(t, path)
	engine := &echoEngine{}

	texts, err := recognizeDocument(context.Background(), engine, path, "eng", time.Second)
	require.NoError(t, err)
	assert.Equal(t, []string{"scanned text"}, texts)
	assert.Equal(t, 1, engine.calls)
}

func TestRender(t *testing.T) {
	assert.Equal(t, "one\n", render("a.png", []string{"one"}, false))
	assert.Equal(t, "==> a.pdf <==\n--- page 1 ---\none\n--- page 2 ---\ntwo\n",
		render("a.pdf", []string{"one", "two"}, true))
}
