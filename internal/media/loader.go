package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/sendrec/vidwidget/internal/storage"
)

// ObjectDownloader copies a stored object to a local file.
type ObjectDownloader interface {
	DownloadToFile(ctx context.Context, key string, destPath string) error
}

// CacheLoader materialises video sources into a local cache directory and
// returns the file path as the playable handle. http(s) URLs are fetched
// directly; s3://<key> URLs go through the object store.
type CacheLoader struct {
	dir     string
	http    *http.Client
	objects ObjectDownloader
}

// NewCacheLoader returns a loader writing into dir. objects may be nil, in
// which case s3:// sources fail to materialise.
func NewCacheLoader(dir string, objects ObjectDownloader) *CacheLoader {
	return &CacheLoader{
		dir:     dir,
		http:    &http.Client{Timeout: 5 * time.Minute},
		objects: objects,
	}
}

func (l *CacheLoader) Materialize(ctx context.Context, url string) (string, error) {
	if err := os.MkdirAll(l.dir, 0o750); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}

	dest := l.pathFor(url)
	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		return dest, nil
	}

	// Each call writes its own temp file; concurrent calls for the same URL
	// both download and the last rename wins with identical content.
	tmp, err := os.CreateTemp(l.dir, filepath.Base(dest)+".*.part")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	key, isObject := storage.ObjectKey(url)
	switch {
	case isObject:
		_ = tmp.Close()
		err = l.fromObjectStore(ctx, key, tmpPath)
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		err = l.fromHTTP(ctx, url, tmp)
	default:
		_ = tmp.Close()
		err = fmt.Errorf("unsupported source %q", url)
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		if info, statErr := os.Stat(dest); statErr == nil && info.Size() > 0 {
			return dest, nil
		}
		return "", fmt.Errorf("rename cached source: %w", err)
	}
	slog.Info("media: source cached", "url", url, "path", dest)
	return dest, nil
}

func (l *CacheLoader) pathFor(url string) string {
	sum := sha256.Sum256([]byte(url))
	ext := path.Ext(strings.SplitN(url, "?", 2)[0])
	if len(ext) > 6 {
		ext = ""
	}
	return filepath.Join(l.dir, hex.EncodeToString(sum[:16])+ext)
}

func (l *CacheLoader) fromObjectStore(ctx context.Context, key, dest string) error {
	if l.objects == nil {
		return errors.New("object storage not configured")
	}
	if err := l.objects.DownloadToFile(ctx, key, dest); err != nil {
		return fmt.Errorf("download object %s: %w", key, err)
	}
	return nil
}

// fromHTTP streams url into f and closes it.
func (l *CacheLoader) fromHTTP(ctx context.Context, url string, f *os.File) error {
	defer func() { _ = f.Close() }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create source request: %w", err)
	}
	resp, err := l.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch source: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch source: status %d", resp.StatusCode)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("write file %s: %w", f.Name(), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close file %s: %w", f.Name(), err)
	}
	return nil
}
