// Package fetch downloads uploaded files from their source references.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"DocumentClassifier/internal/domain"
	"DocumentClassifier/internal/ports"
)

// ErrForbiddenSource is returned for references the fetcher refuses to resolve.
var ErrForbiddenSource = errors.New("source not allowed")

// HTTPFetcher resolves in-memory, http(s) and file:// references. file://
// reads are confined to fileRoot, and http(s) hosts resolving to loopback,
// private or link-local addresses are refused unless trusted.
type HTTPFetcher struct {
	client       *http.Client
	guarded      *http.Client
	maxBytes     int64
	fileRoot     string
	trustedHosts map[string]struct{}
	allowPrivate bool
}

var _ ports.Fetcher = (*HTTPFetcher)(nil)

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithFileRoot allows file:// references under dir. Without it file:// is refused.
func WithFileRoot(dir string) Option {
	return func(f *HTTPFetcher) {
		if dir == "" {
			return
		}
		if abs, err := filepath.Abs(dir); err == nil {
			f.fileRoot = abs
		}
	}
}

// WithTrustedHosts lets the named hosts resolve to private addresses, e.g. the blob endpoint.
func WithTrustedHosts(hosts ...string) Option {
	return func(f *HTTPFetcher) {
		for _, h := range hosts {
			if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
				f.trustedHosts[h] = struct{}{}
			}
		}
	}
}

// WithPrivateNetworks disables the private address check for every host.
func WithPrivateNetworks() Option {
	return func(f *HTTPFetcher) { f.allowPrivate = true }
}

// NewHTTPFetcher wires an HTTP client; timeout defaults to 30s, maxBytes of 0 disables the limit.
func NewHTTPFetcher(timeout time.Duration, maxBytes int64, opts ...Option) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	dialer := &net.Dialer{Timeout: 10 * time.Second, Control: rejectPrivate}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext

	f := &HTTPFetcher{
		client:       &http.Client{Timeout: timeout},
		guarded:      &http.Client{Timeout: timeout, Transport: transport},
		maxBytes:     maxBytes,
		trustedHosts: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the bytes behind ref.
func (f *HTTPFetcher) Fetch(ctx context.Context, ref domain.SourceRef) ([]byte, error) {
	if len(ref.Data) > 0 {
		if f.maxBytes > 0 && int64(len(ref.Data)) > f.maxBytes {
			return nil, fmt.Errorf("source exceeds %d bytes", f.maxBytes)
		}
		return ref.Data, nil
	}
	if ref.URL == "" {
		return nil, fmt.Errorf("empty source reference")
	}

	u, err := url.Parse(ref.URL)
	if err != nil {
		return nil, fmt.Errorf("parse source url: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		return f.download(ctx, f.clientFor(u.Hostname()), u.String())
	case "file":
		return f.readFile(u.Path)
	default:
		return nil, fmt.Errorf("unsupported source scheme %q", u.Scheme)
	}
}

func (f *HTTPFetcher) clientFor(host string) *http.Client {
	if f.allowPrivate {
		return f.client
	}
	if _, ok := f.trustedHosts[strings.ToLower(host)]; ok {
		return f.client
	}
	return f.guarded
}

func (f *HTTPFetcher) download(ctx context.Context, client *http.Client, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "DocumentClassifier/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source returned %s", resp.Status)
	}

	return f.readAll(resp.Body)
}

func (f *HTTPFetcher) readFile(path string) ([]byte, error) {
	if f.fileRoot == "" {
		return nil, fmt.Errorf("file source %s: %w", path, ErrForbiddenSource)
	}
	resolved, err := filepath.EvalSymlinks(filepath.Clean(filepath.FromSlash(path)))
	if err != nil {
		return nil, fmt.Errorf("open source file: %w", err)
	}
	root, err := filepath.EvalSymlinks(f.fileRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve file root: %w", err)
	}
	if rel, err := filepath.Rel(root, resolved); err != nil || rel == ".." ||
		strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return nil, fmt.Errorf("file source %s: %w", path, ErrForbiddenSource)
	}

	file, err := os.Open(resolved)
	if err != nil {
		return nil, fmt.Errorf("open source file: %w", err)
	}
	defer file.Close()

	return f.readAll(file)
}

func (f *HTTPFetcher) readAll(r io.Reader) ([]byte, error) {
	if f.maxBytes <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read source: %w", err)
		}
		return data, nil
	}

	data, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("source exceeds %d bytes", f.maxBytes)
	}
	return data, nil
}

// rejectPrivate runs after DNS resolution, so it also covers redirects and rebinding.
func rejectPrivate(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsInterfaceLocalMulticast() {
		return fmt.Errorf("dial %s %s: %w", network, address, ErrForbiddenSource)
	}
	return nil
}
