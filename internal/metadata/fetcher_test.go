package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"linkshelf/internal/cache"
	"linkshelf/internal/models"
	"linkshelf/internal/testutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// local builds a fetcher for httptest servers on 127.0.0.1.
func local(opts ...Option) *Fetcher {
	return NewFetcher(append([]Option{WithLimiter(rate.NewLimiter(rate.Inf, 1)), WithPrivateNetworks()}, opts...)...)
}

func serveHTML(t *testing.T, contentType, body string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla/5.0")
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}

func TestFetch_OpenGraph(t *testing.T) {
	srv, _ := serveHTML(t, "text/html; charset=utf-8", `<!doctype html><html><head>
		<title>Fallback</title>
		<meta property="og:title" content="  The   Real Title ">
		<meta name="Description" content="Plain description">
		<meta property="og:description" content="OG description">
		<meta property="og:image" content="/img/cover.png">
		<meta property="og:site_name" content="Example Site">
	</head><body></body></html>`)

	p, err := local().Fetch(context.Background(), srv.URL+"/article#section")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/article", p.URL)
	assert.Equal(t, "The Real Title", p.Title)
	assert.Equal(t, "Plain description", p.Description)
	assert.Equal(t, srv.URL+"/img/cover.png", p.Image)
	assert.Equal(t, "Example Site", p.SiteName)
}

func TestFetch_Fallbacks(t *testing.T) {
	srv, _ := serveHTML(t, "text/html", `<html><head><title> Just a title </title>
		<meta property="og:description" content="From OG"></head></html>`)

	p, err := local().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Just a title", p.Title)
	assert.Equal(t, "From OG", p.Description)
	assert.Empty(t, p.Image)
	assert.Equal(t, "127.0.0.1", p.SiteName)
}

func TestFetch_DecodesDeclaredCharset(t *testing.T) {
	srv, _ := serveHTML(t, "text/html; charset=windows-1252", "<html><head><title>Caf\xe9 cr\xe8me</title></head></html>")

	p, err := local().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Café crème", p.Title)
}

func TestFetch_BodyCap(t *testing.T) {
	head := `<html><head><title>Early</title>`
	body := head + strings.Repeat("<!-- padding -->", 100) + `<meta name="description" content="too late"></head></html>`
	srv, _ := serveHTML(t, "text/html", body)

	p, err := local(WithMaxBytes(int64(len(head)+50))).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Early", p.Title)
	assert.Empty(t, p.Description)
}

func TestFetch_UpstreamFailures(t *testing.T) {
	notFound := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(notFound.Close)
	pdf, _ := serveHTML(t, "application/pdf", "%PDF-1.4")

	f := local()
	_, err := f.Fetch(context.Background(), notFound.URL)
	requireCode(t, err, models.CodeUpstream)

	_, err = f.Fetch(context.Background(), pdf.URL)
	requireCode(t, err, models.CodeUpstream)

	closed := httptest.NewServer(http.NotFoundHandler())
	addr := closed.URL
	closed.Close()
	_, err = f.Fetch(context.Background(), addr)
	requireCode(t, err, models.CodeUpstream)
}

func TestFetch_RejectsInvalidURL(t *testing.T) {
	f := local()
	for _, raw := range []string{"", "ftp://example.com", "not a url", "javascript:alert(1)"} {
		_, err := f.Fetch(context.Background(), raw)
		requireCode(t, err, models.CodeValidation)
	}
}

func TestFetch_CachesSuccessfulPreviews(t *testing.T) {
	mr, _ := testutil.NewRedis(t)
	srv, hits := serveHTML(t, "text/html", `<html><head><title>Cached</title></head></html>`)
	f := local()

	for i := 0; i < 3; i++ {
		p, err := f.Fetch(context.Background(), srv.URL+"/page")
		require.NoError(t, err)
		assert.Equal(t, "Cached", p.Title)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))

	u, err := Normalize(srv.URL + "/page")
	require.NoError(t, err)
	assert.True(t, mr.Exists(cache.MetadataKey(u.String())))
	assert.Equal(t, cache.MetadataTTL, mr.TTL(cache.MetadataKey(u.String())))
}

func TestFetch_HonorsLimiter(t *testing.T) {
	srv, hits := serveHTML(t, "text/html", `<title>x</title>`)
	f := NewFetcher(WithLimiter(rate.NewLimiter(rate.Limit(0), 0)))

	_, err := f.Fetch(context.Background(), srv.URL)
	requireCode(t, err, models.CodeUpstream)
	assert.Zero(t, atomic.LoadInt32(hits))
}

func TestNormalize(t *testing.T) {
	u, err := Normalize("  HTTPS://Example.COM#top ")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/", u.String())

	u, err = Normalize("http://example.com/a?b=1#c")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/a?b=1", u.String())
}

func TestExtract_IgnoresNonHTTPImages(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<meta property="og:image" content="javascript:alert(1)">`))
	require.NoError(t, err)
	page, _ := url.Parse("https://example.com/post")

	p := Extract(doc, page)
	assert.Empty(t, p.Image)
	assert.Equal(t, "example.com", p.SiteName)
}

func TestFetch_RefusesPrivateNetworks(t *testing.T) {
	srv, hits := serveHTML(t, "text/html", `<title>internal admin</title>`)
	f := NewFetcher(WithLimiter(rate.NewLimiter(rate.Inf, 1)))

	_, err := f.Fetch(context.Background(), srv.URL)
	requireCode(t, err, models.CodeValidation)
	assert.Zero(t, atomic.LoadInt32(hits))

	// hostnames are checked after resolution
	_, err = f.Fetch(context.Background(), strings.Replace(srv.URL, "127.0.0.1", "localhost", 1))
	requireCode(t, err, models.CodeValidation)
	assert.Zero(t, atomic.LoadInt32(hits))
}

func TestIsPublicAddr(t *testing.T) {
	tests := []struct {
		addr   string
		public bool
	}{
		{"93.184.216.34", true},
		{"2606:4700::1111", true},
		{"127.0.0.1", false},
		{"::1", false},
		{"10.1.2.3", false},
		{"172.16.0.9", false},
		{"192.168.1.1", false},
		{"169.254.169.254", false},
		{"100.64.0.1", false},
		{"0.0.0.0", false},
		{"fd00::1", false},
		{"fe80::1", false},
		{"::ffff:127.0.0.1", false},
		{"224.0.0.1", false},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.public, isPublicAddr(netip.MustParseAddr(tt.addr)))
		})
	}
}

func TestPublicOnly(t *testing.T) {
	assert.ErrorIs(t, publicOnly("tcp4", "127.0.0.1:80", nil), errPrivateAddress)
	assert.NoError(t, publicOnly("tcp4", "93.184.216.34:443", nil))
	assert.Error(t, publicOnly("tcp4", "no-port", nil))
}
