// Package fetcher loads LAS input from local paths, HTTP(S) URLs and FTP URLs,
// unpacking the .las members of ZIP archives.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

var (
	// ErrTooLarge is returned when an input or archive member exceeds the
	// configured size limit.
	ErrTooLarge = eris.New("fetcher: input exceeds size limit")
	// ErrNoLAS is returned for archives without any .las member.
	ErrNoLAS = eris.New("fetcher: archive contains no .las files")
)

// Fetcher downloads a remote resource.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Document is one named LAS input.
type Document struct {
	// Name is the base file name, used as the file's display name.
	Name string
	// Source is the path or URL the document was read from. For archive
	// members it is "<archive>!<member>".
	Source  string
	Content []byte
}

// Options configures a Loader.
type Options struct {
	// MaxBytes caps each downloaded input and each archive member. Zero
	// disables the limit.
	MaxBytes int64
	HTTP     HTTPOptions
	FTP      FTPOptions
}

// Loader resolves input sources to LAS documents.
type Loader struct {
	http     Fetcher
	ftp      Fetcher
	maxBytes int64
}

// NewLoader creates a Loader with HTTP and FTP fetchers built from opts.
func NewLoader(opts Options) *Loader {
	return &Loader{
		http:     NewHTTPFetcher(opts.HTTP),
		ftp:      NewFTPFetcher(opts.FTP),
		maxBytes: opts.MaxBytes,
	}
}

// IsRemote reports whether src is an http, https or ftp URL.
func IsRemote(src string) bool {
	return remoteScheme(src) != ""
}

func remoteScheme(src string) string {
	u, err := url.Parse(src)
	if err != nil {
		return ""
	}
	switch s := strings.ToLower(u.Scheme); s {
	case "http", "https", "ftp":
		return s
	}
	return ""
}

// Load reads src and returns its LAS documents: one for a plain file, one per
// .las member for a ZIP archive.
func (l *Loader) Load(ctx context.Context, src string) ([]Document, error) {
	name, content, err := l.read(ctx, src)
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(path.Ext(name), ".zip") {
		return []Document{{Name: name, Source: src, Content: content}}, nil
	}

	docs, err := ExtractLAS(content, l.maxBytes)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: unpack %s", src)
	}
	for i := range docs {
		docs[i].Source = src + "!" + docs[i].Source
	}
	zap.L().Debug("fetcher: unpacked archive",
		zap.String("source", src),
		zap.Int("members", len(docs)),
	)
	return docs, nil
}

// LoadOne is Load for callers that need exactly one document.
func (l *Loader) LoadOne(ctx context.Context, src string) (Document, error) {
	docs, err := l.Load(ctx, src)
	if err != nil {
		return Document{}, err
	}
	if len(docs) != 1 {
		return Document{}, eris.Errorf("fetcher: %s holds %d LAS files, expected 1", src, len(docs))
	}
	return docs[0], nil
}

func (l *Loader) read(ctx context.Context, src string) (string, []byte, error) {
	var (
		rc   io.ReadCloser
		name string
		err  error
	)
	switch remoteScheme(src) {
	case "http", "https":
		rc, err = l.http.Download(ctx, src)
		name = remoteName(src)
	case "ftp":
		rc, err = l.ftp.Download(ctx, src)
		name = remoteName(src)
	default:
		rc, err = os.Open(src)
		name = filepath.Base(src)
		if err != nil {
			err = eris.Wrap(err, "fetcher: open file")
		}
	}
	if err != nil {
		return "", nil, err
	}
	defer rc.Close() //nolint:errcheck

	content, err := readLimited(rc, l.maxBytes)
	if err != nil {
		return "", nil, eris.Wrapf(err, "fetcher: read %s", src)
	}
	return name, content, nil
}

// remoteName returns the last path segment of a URL, or "download.las" when
// the path is empty.
func remoteName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" || strings.HasSuffix(u.Path, "/") {
		return "download.las"
	}
	return path.Base(u.Path)
}

// readLimited reads r fully, failing with ErrTooLarge past max bytes.
func readLimited(r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, ErrTooLarge
	}
	return data, nil
}
