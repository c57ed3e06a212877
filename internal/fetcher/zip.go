package fetcher

import (
	"archive/zip"
	"bytes"
	"path"
	"strings"

	"github.com/rotisserie/eris"
)

// ExtractLAS returns the .las members of a ZIP archive held in memory, in
// archive order. Directories and other files are skipped. Each member is
// capped at maxBytes of decompressed data (zero disables the cap).
func ExtractLAS(data []byte, maxBytes int64) ([]Document, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, eris.Wrap(err, "zip: open archive")
	}

	var docs []Document
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !strings.EqualFold(path.Ext(f.Name), ".las") {
			continue
		}
		// macOS resource forks carry a .las suffix but no log data.
		if strings.HasPrefix(f.Name, "__MACOSX/") || strings.HasPrefix(path.Base(f.Name), "._") {
			continue
		}
		content, err := readZIPEntry(f, maxBytes)
		if err != nil {
			return nil, eris.Wrapf(err, "zip: member %s", f.Name)
		}
		docs = append(docs, Document{
			Name:    path.Base(f.Name),
			Source:  f.Name,
			Content: content,
		})
	}

	if len(docs) == 0 {
		return nil, ErrNoLAS
	}
	return docs, nil
}

func readZIPEntry(f *zip.File, maxBytes int64) ([]byte, error) {
	if maxBytes > 0 && f.UncompressedSize64 > uint64(maxBytes) {
		return nil, ErrTooLarge
	}
	rc, err := f.Open()
	if err != nil {
		return nil, eris.Wrap(err, "open entry")
	}
	defer rc.Close() //nolint:errcheck

	return readLimited(rc, maxBytes)
}
