// Package zip bundles generated images into a single downloadable archive.
package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
)

type Asset struct {
	Filename string
	MIME     string
	Data     []byte
}

// Archive writes the assets into an in-memory zip. Assets without a
// filename get one derived from their position, names without an extension
// get one derived from the MIME type, and duplicate names are suffixed so
// no entry silently overwrites another.
func Archive(assets []Asset) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	seen := make(map[string]int, len(assets))
	for i, asset := range assets {
		name := strings.TrimSpace(asset.Filename)
		if name == "" {
			name = fmt.Sprintf("image-%03d", i+1)
		}
		if !strings.Contains(name, ".") {
			name += extensionFor(asset.MIME)
		}
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			base, ext := splitExt(name)
			name = fmt.Sprintf("%s-%d%s", base, n+1, ext)
		}
		seen[name]++

		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("zip: create entry %s: %w", name, err)
		}
		if _, err := w.Write(asset.Data); err != nil {
			return nil, fmt.Errorf("zip: write entry %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

func extensionFor(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}

func splitExt(name string) (string, string) {
	if idx := strings.LastIndex(name, "."); idx > 0 {
		return name[:idx], name[idx:]
	}
	return name, ""
}
