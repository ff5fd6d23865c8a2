// Package zip packs rendered images into a single archive.
package zip

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"
)

// Asset is one file in the archive.
type Asset struct {
	Filename string
	MIME     string
	Data     []byte
}

// ArchiveAssets writes assets to w in order. Empty names become
// "asset-<n>" and repeated names get a numeric suffix so no entry is
// shadowed.
func ArchiveAssets(w io.Writer, assets []Asset, modified time.Time) error {
	zw := zip.NewWriter(w)
	seen := make(map[string]int, len(assets))
	for i, asset := range assets {
		name := uniqueName(entryName(asset.Filename, i), seen)
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Store,
			Modified: modified,
			Comment:  asset.MIME,
		})
		if err != nil {
			return fmt.Errorf("zip: add %s: %w", name, err)
		}
		if _, err := fw.Write(asset.Data); err != nil {
			return fmt.Errorf("zip: write %s: %w", name, err)
		}
	}
	return zw.Close()
}

func entryName(raw string, index int) string {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(raw), "\\", "/"))
	if name == "" || name == "." || name == "/" || name == ".." {
		return "asset-" + strconv.Itoa(index+1)
	}
	return name
}

func uniqueName(name string, seen map[string]int) string {
	n := seen[name]
	seen[name] = n + 1
	if n == 0 {
		return name
	}
	ext := path.Ext(name)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), n+1, ext)
}
