// Package fetch adapts asynchronous byte providers (files, in-memory stores)
// to the single-threaded model update loop.
//
// Fetchers may complete on any goroutine. Completions are posted to a Mailbox
// and applied only when the owner drains it from its update call, and only
// while the liveness token captured at request time is still valid.
package fetch

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNotFound is returned when a fetcher has no data for a URI.
var ErrNotFound = errors.New("fetch: not found")

// Result is the outcome of one fetch.
type Result struct {
	URI  string
	Data []byte
	Err  error
}

// Fetcher retrieves raw bytes. deliver is called exactly once, possibly from
// another goroutine and possibly before Fetch returns.
type Fetcher interface {
	Fetch(ctx context.Context, uri string, deliver func(Result))
}

// IsDataURI reports whether uri embeds its payload.
func IsDataURI(uri string) bool {
	return strings.HasPrefix(uri, "data:")
}

// DecodeDataURI decodes a "data:[<mime>][;base64],<payload>" URI.
func DecodeDataURI(uri string) (data []byte, mime string, err error) {
	if !IsDataURI(uri) {
		return nil, "", fmt.Errorf("fetch: not a data uri")
	}
	header, payload, ok := strings.Cut(uri[len("data:"):], ",")
	if !ok {
		return nil, "", fmt.Errorf("fetch: malformed data uri")
	}
	mime, isBase64 := strings.CutSuffix(header, ";base64")
	if isBase64 {
		data, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", fmt.Errorf("fetch: data uri: %w", err)
		}
		return data, mime, nil
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, "", fmt.Errorf("fetch: data uri: %w", err)
	}
	return []byte(text), mime, nil
}

// Resolve joins a relative resource URI onto the asset's base path.
// Data URIs and absolute URLs are returned unchanged.
func Resolve(base, uri string) string {
	if IsDataURI(uri) || strings.Contains(uri, "://") || base == "" {
		return uri
	}
	if unescaped, err := url.PathUnescape(uri); err == nil {
		uri = unescaped
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(uri, "./")
}
