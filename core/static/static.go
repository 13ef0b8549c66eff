// Package static registers one GET route per file found under a directory.
// File contents are read once at registration and served from memory.
package static

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/searchktools/trellis/core/http"
	"github.com/searchktools/trellis/core/logger"
	"github.com/searchktools/trellis/core/router"
)

// File is a file loaded for serving
type File struct {
	// Web path the file is served at
	Path        string
	ContentType http.ContentType
	Data        []byte
}

// Handler serves the file bytes. The same slice is returned on every request.
func (f *File) Handler() http.HandlerFunc {
	return func(*http.Request) *http.Response {
		return http.File(f.ContentType, f.Data)
	}
}

// Load walks root and reads every regular file. Web paths are prefix
// followed by the slash-separated path relative to root.
func Load(root, prefix string) ([]*File, error) {
	prefix = "/" + strings.Trim(prefix, "/")

	var files []*File
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}

		files = append(files, &File{
			Path:        path.Join(prefix, filepath.ToSlash(rel)),
			ContentType: http.ContentTypeByExtension(filepath.Ext(p)),
			Data:        data,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load static files from %s: %w", root, err)
	}

	return files, nil
}

// Register loads root and adds a GET route for each file to r. It returns
// the number of routes added.
func Register(r *router.Router, root, prefix string) (int, error) {
	files, err := Load(root, prefix)
	if err != nil {
		return 0, err
	}

	var total uint64
	for _, f := range files {
		route, err := router.NewRoute(http.GET, f.Path, f.Handler())
		if err != nil {
			return 0, err
		}
		if err := r.Add(route); err != nil {
			return 0, err
		}
		total += uint64(len(f.Data))
	}

	logger.Info("static_files_registered",
		zap.String("root", root),
		zap.String("prefix", "/"+strings.Trim(prefix, "/")),
		zap.Int("files", len(files)),
		zap.String("size", humanize.Bytes(total)),
	)
	return len(files), nil
}
