// Package metadata fetches link previews (title, description, image, site name) for URLs.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"

	"linkshelf/internal/cache"
	"linkshelf/internal/models"
	"linkshelf/internal/observability"
	"linkshelf/internal/validation"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

// Fetch limits.
const (
	DefaultTimeout  = 10 * time.Second
	DefaultMaxBytes = 2 << 20
	maxFieldLength  = 1000
)

// Preview is the link preview returned to clients.
type Preview struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	SiteName    string `json:"siteName"`
}

// errPrivateAddress is returned by the dialer for targets inside private networks.
var errPrivateAddress = errors.New("address is not publicly routable")

// carrierGradeNAT is 100.64.0.0/10, which netip does not count as private.
var carrierGradeNAT = netip.MustParsePrefix("100.64.0.0/10")

// Fetcher downloads pages and extracts preview fields. It is safe for concurrent use.
type Fetcher struct {
	client       *http.Client
	limiter      *rate.Limiter
	maxBytes     int64
	allowPrivate bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default client, including its private network guard.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithLimiter replaces the process-wide outbound limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(f *Fetcher) { f.limiter = l }
}

// WithMaxBytes caps how much of a response body is parsed.
func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) { f.maxBytes = n }
}

// WithPrivateNetworks lets the default client dial loopback and private addresses.
func WithPrivateNetworks() Option {
	return func(f *Fetcher) { f.allowPrivate = true }
}

// NewFetcher returns a fetcher with a 10s timeout, a 2 MiB body cap and an outbound
// budget of 5 requests per second with bursts of 10. Unless WithPrivateNetworks is
// given, it refuses to connect to loopback, private and link-local addresses, which
// also covers redirects and hostnames that resolve inward.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		limiter:  rate.NewLimiter(rate.Every(200*time.Millisecond), 10),
		maxBytes: DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = newClient(f.allowPrivate)
	}
	return f
}

func newClient(allowPrivate bool) *http.Client {
	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	if !allowPrivate {
		dialer.Control = publicOnly
		// a proxy would make the dialer check the proxy instead of the page
		transport.Proxy = nil
	}
	return &http.Client{Timeout: DefaultTimeout, Transport: transport}
}

// publicOnly runs after name resolution, so it sees the address actually dialed.
func publicOnly(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return err
	}
	if !isPublicAddr(ip) {
		return fmt.Errorf("%w: %s", errPrivateAddress, ip)
	}
	return nil
}

func isPublicAddr(ip netip.Addr) bool {
	ip = ip.Unmap()
	switch {
	case !ip.IsValid(), ip.IsUnspecified(), ip.IsLoopback(), ip.IsPrivate(),
		ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast(), ip.IsInterfaceLocalMulticast(),
		ip.IsMulticast(), carrierGradeNAT.Contains(ip):
		return false
	}
	return true
}

// Normalize validates rawURL as an absolute http(s) URL and returns its canonical form:
// lowercase scheme and host, no fragment.
func Normalize(rawURL string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	if err := validation.ValidateHTTPURL(rawURL, models.MaxURLLength); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, models.NewValidationError("invalid url")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return u, nil
}

// Fetch returns the preview for rawURL, serving it from cache for an hour after a successful fetch.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Preview, error) {
	u, err := Normalize(rawURL)
	if err != nil {
		return nil, err
	}
	key := u.String()
	return cache.Aside(ctx, cache.MetadataKey(key), cache.MetadataTTL, func(ctx context.Context) (*Preview, error) {
		p, err := f.fetch(ctx, u)
		if err != nil {
			observability.MetadataFetches.WithLabelValues("error").Inc()
			slog.WarnContext(ctx, "link preview fetch failed", "url", key, "error", err)
			return nil, err
		}
		observability.MetadataFetches.WithLabelValues("ok").Inc()
		return p, nil
	})
}

func (f *Fetcher) fetch(ctx context.Context, u *url.URL) (*Preview, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, models.NewUpstreamError("link preview budget exhausted", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, models.NewValidationError("invalid url")
	}
	setHeaders(req)

	res, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, errPrivateAddress) {
			return nil, models.NewValidationError("url points to a private network")
		}
		return nil, models.NewUpstreamError("could not reach the page", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
		_ = res.Body.Close()
	}()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, models.NewUpstreamError(fmt.Sprintf("page responded with status %d", res.StatusCode), nil)
	}
	contentType := res.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(strings.ToLower(contentType), "html") {
		return nil, models.NewUpstreamError("page is not HTML", nil)
	}

	body, err := charset.NewReader(io.LimitReader(res.Body, f.maxBytes), contentType)
	if err != nil {
		return nil, models.NewUpstreamError("unsupported page encoding", err)
	}
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, models.NewUpstreamError("could not parse the page", err)
	}

	// redirects may have moved us; relative image URLs resolve against the final page
	base := u
	if res.Request != nil && res.Request.URL != nil {
		base = res.Request.URL
	}
	return Extract(doc, base), nil
}

// Extract reads preview fields from a parsed page. pageURL resolves relative image links and
// supplies the site name fallback.
func Extract(doc *goquery.Document, pageURL *url.URL) *Preview {
	p := &Preview{URL: pageURL.String()}

	p.Title = firstNonEmpty(
		metaContent(doc, "property", "og:title"),
		metaContent(doc, "name", "twitter:title"),
		doc.Find("head title").First().Text(),
		doc.Find("title").First().Text(),
	)
	p.Description = firstNonEmpty(
		metaContent(doc, "name", "description"),
		metaContent(doc, "property", "og:description"),
		metaContent(doc, "name", "twitter:description"),
	)
	if image := firstNonEmpty(
		metaContent(doc, "property", "og:image"),
		metaContent(doc, "property", "og:image:url"),
		metaContent(doc, "name", "twitter:image"),
	); image != "" {
		if ref, err := url.Parse(image); err == nil {
			resolved := pageURL.ResolveReference(ref)
			if resolved.Scheme == "http" || resolved.Scheme == "https" {
				p.Image = resolved.String()
			}
		}
	}
	p.SiteName = firstNonEmpty(metaContent(doc, "property", "og:site_name"), pageURL.Hostname())
	return p
}

// metaContent matches attr case-insensitively, since pages mix "Description" and "description".
func metaContent(doc *goquery.Document, attr, value string) string {
	var content string
	doc.Find("meta[" + attr + "]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.EqualFold(strings.TrimSpace(s.AttrOr(attr, "")), value) {
			content = s.AttrOr("content", "")
			return strings.TrimSpace(content) == ""
		}
		return true
	})
	return content
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		v = strings.Join(strings.Fields(v), " ")
		if v == "" {
			continue
		}
		if r := []rune(v); len(r) > maxFieldLength {
			v = string(r[:maxFieldLength])
		}
		return v
	}
	return ""
}

func setHeaders(r *http.Request) {
	r.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64; rv:124.0) Gecko/20100101 Firefox/124.0 linkshelf-preview")
	r.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	r.Header.Set("Accept-Language", "en-US,en;q=0.5")
	r.Header.Set("Upgrade-Insecure-Requests", "1")
	r.Header.Set("Sec-Fetch-Dest", "document")
	r.Header.Set("Sec-Fetch-Mode", "navigate")
	r.Header.Set("Sec-Fetch-Site", "none")
}
