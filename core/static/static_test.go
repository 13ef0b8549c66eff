package static

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchktools/trellis/core/http"
	"github.com/searchktools/trellis/core/router"
)

func writeFile(t *testing.T, root, rel string, data []byte) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, data, 0o644))
}

func TestRegisterServesFileBytes(t *testing.T) {
	root := t.TempDir()
	css := []byte("body { color: #333; }\n")
	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0xff}

	writeFile(t, root, "css/app.css", css)
	writeFile(t, root, "img/logo.png", png)
	writeFile(t, root, "index.html", []byte("<html></html>"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	r := router.New()
	n, err := Register(r, root, "")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, r.Len())

	resp := r.Serve(http.NewRequest(http.GET, "/css/app.css"))
	assert.Equal(t, http.StatusOK, resp.Status())
	assert.Equal(t, css, resp.Body())
	assert.Equal(t, "text/css; charset=utf-8", resp.Header(http.HeaderContentType))

	resp = r.Serve(http.NewRequest(http.GET, "/img/logo.png"))
	assert.Equal(t, png, resp.Body())
	assert.Equal(t, "image/png", resp.Header(http.HeaderContentType))

	assert.Equal(t, http.StatusNotFound, r.Serve(http.NewRequest(http.GET, "/empty")).Status())
	assert.Equal(t, http.StatusNotFound, r.Serve(http.NewRequest(http.POST, "/index.html")).Status())
}

func TestRegisterKeepsBytesFromRegistrationTime(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", []byte("before"))

	r := router.New()
	_, err := Register(r, root, "/assets")
	require.NoError(t, err)

	writeFile(t, root, "a.txt", []byte("after, and longer"))

	resp := r.Serve(http.NewRequest(http.GET, "/assets/a.txt"))
	assert.Equal(t, "before", string(resp.Body()))
	assert.Equal(t, "6", resp.Header(http.HeaderContentLength))
}

func TestLoadPaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "js/app.js", []byte("1"))
	writeFile(t, root, "favicon.ico", []byte("2"))
	writeFile(t, root, "data.unknownext", []byte("3"))

	files, err := Load(root, "assets/")
	require.NoError(t, err)

	got := make(map[string]http.ContentType, len(files))
	for _, f := range files {
		got[f.Path] = f.ContentType
	}

	assert.Equal(t, map[string]http.ContentType{
		"/assets/js/app.js":       http.ContentTypeJavaScript,
		"/assets/favicon.ico":     http.ContentTypeIcon,
		"/assets/data.unknownext": http.ContentTypeUnknown,
	}, got)
}

func TestLoadMissingDir(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"), "")
	assert.Error(t, err)

	_, err = Register(router.New(), filepath.Join(t.TempDir(), "nope"), "")
	assert.Error(t, err)
}
