package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/giygas/pharmdb/logging"
	"golang.org/x/text/encoding/charmap"
)

// maxSeedBytes caps how much of a seed document is read
const maxSeedBytes = 64 << 20

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// fetch returns the raw seed bytes from a local file or an http(s) URL
func (l *Loader) fetch(ctx context.Context) ([]byte, error) {
	if isRemote(l.source) {
		return l.download(ctx)
	}
	return readFile(l.source)
}

func (l *Loader) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.source, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", l.source, err)
	}
	req.Header.Set("Accept", "application/json")

	response, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", l.source, err)
	}
	defer func() {
		if err := response.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "error", err)
		}
	}()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download %s: unexpected status %s", l.source, response.Status)
	}

	return readLimited(response.Body, l.source)
}

func readFile(path string) ([]byte, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("Failed to close seed file", "error", err)
		}
	}()

	return readLimited(file, path)
}

func readLimited(r io.Reader, name string) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, maxSeedBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(body) > maxSeedBytes {
		return nil, fmt.Errorf("%s exceeds %d bytes", name, maxSeedBytes)
	}
	return body, nil
}

// toUTF8 returns body unchanged when it is valid UTF-8 and decodes it from
// ISO-8859-1 otherwise
func toUTF8(body []byte) ([]byte, error) {
	body = bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))
	if utf8.Valid(body) {
		return body, nil
	}

	logging.Debug("Seed is not valid UTF-8, decoding as ISO-8859-1")
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ISO-8859-1 seed: %w", err)
	}
	return decoded, nil
}
