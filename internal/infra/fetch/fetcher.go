package fetch

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Fetcher materializes remote URLs and data URIs into temp files so the
// transcoder can seek in them. Some origins reject default Go user agents,
// so requests go out with a browser one.
type Fetcher struct {
	client *http.Client
	logger *zap.Logger
}

func NewFetcher(logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: 5 * time.Minute},
		logger: logger,
	}
}

// IsDataURI reports whether the source reference is an embedded data URI.
func IsDataURI(uri string) bool {
	return strings.HasPrefix(uri, "data:")
}

// IsRemote reports whether the source reference needs an HTTP fetch.
func IsRemote(uri string) bool {
	return strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://")
}

func (f *Fetcher) Fetch(ctx context.Context, uri string, destDir string) (string, error) {
	if IsDataURI(uri) {
		return f.saveDataURI(uri, destDir)
	}
	if IsRemote(uri) {
		return f.download(ctx, uri, destDir)
	}
	return uri, nil
}

func (f *Fetcher) download(ctx context.Context, uri string, destDir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", uri, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: unexpected status %s", uri, resp.Status)
	}

	destPath := filepath.Join(destDir, "source.mp4")
	out, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer out.Close()

	n, err := io.Copy(out, resp.Body)
	if err != nil {
		return "", fmt.Errorf("save %s: %w", uri, err)
	}

	f.logger.Debug("source fetched", zap.String("uri", uri), zap.Int64("bytes", n))
	return destPath, nil
}

// saveDataURI decodes "data:[mediatype][;base64],payload" into a file.
func (f *Fetcher) saveDataURI(uri string, destDir string) (string, error) {
	meta, payload, found := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !found {
		return "", fmt.Errorf("malformed data URI")
	}

	var data []byte
	if strings.HasSuffix(meta, ";base64") {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return "", fmt.Errorf("decode data URI: %w", err)
		}
		data = decoded
	} else {
		data = []byte(payload)
	}

	destPath := filepath.Join(destDir, "source.mp4")
	if err := os.WriteFile(destPath, data, 0644); err != nil {
		return "", fmt.Errorf("write data URI payload: %w", err)
	}
	return destPath, nil
}
