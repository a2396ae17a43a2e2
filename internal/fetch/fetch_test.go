package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFetch(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/ok":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<p>皇仁書院</p>"))
		case "/big5":
			w.Header().Set("Content-Type", "text/html; charset=big5")
			// 中文 in Big5
			_, _ = w.Write([]byte{'<', 'p', '>', 0xA4, 0xA4, 0xA4, 0xE5, '<', '/', 'p', '>'})
		case "/broken":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte{'o', 'k', 0xff, 0xfe, '!'})
		case "/busy":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(0)
	ctx := context.Background()

	t.Run("utf-8 page", func(t *testing.T) {
		page, err := c.Fetch(ctx, srv.URL+"/ok", Options{})
		require.NoError(t, err)
		require.Equal(t, "<p>皇仁書院</p>", page.Body)
		require.Equal(t, http.StatusOK, page.Status)
		require.Equal(t, UserAgent, gotUA)
	})

	t.Run("declared legacy charset", func(t *testing.T) {
		page, err := c.Fetch(ctx, srv.URL+"/big5", Options{})
		require.NoError(t, err)
		require.Equal(t, "<p>中文</p>", page.Body)
		require.Equal(t, "big5", page.Charset)
	})

	t.Run("undecodable bytes are replaced", func(t *testing.T) {
		page, err := c.Fetch(ctx, srv.URL+"/broken", Options{})
		require.NoError(t, err)
		require.Equal(t, "ok�!", page.Body)
	})

	t.Run("non-2xx status", func(t *testing.T) {
		_, err := c.Fetch(ctx, srv.URL+"/missing", Options{})
		var fe *Error
		require.True(t, errors.As(err, &fe))
		require.Equal(t, HTTPStatus, fe.Kind)
		require.Equal(t, http.StatusNotFound, fe.StatusCode)
		require.False(t, fe.Temporary())

		_, err = c.Fetch(ctx, srv.URL+"/busy", Options{})
		require.True(t, errors.As(err, &fe))
		require.True(t, fe.Temporary())
	})
}

func TestDecode(t *testing.T) {
	// ASCII beyond the sniffing window hides the multibyte text
	longASCII := "<html><body>" + strings.Repeat("a", 1100) + "聖保羅男女中學</body></html>"

	testCases := []struct {
		name        string
		body        []byte
		contentType string
		want        string
		charset     string
	}{
		{"undeclared utf-8 past the sniffed prefix", []byte(longASCII), "text/html", longASCII, "utf-8"},
		{"no content type", []byte("<p>皇仁書院</p>"), "", "<p>皇仁書院</p>", "utf-8"},
		{"meta declared big5", append([]byte(`<meta charset="big5"><p>`), 0xA4, 0xA4, 0xA4, 0xE5), "text/html", `<meta charset="big5"><p>中文`, "big5"},
		{"undeclared legacy bytes", []byte{'c', 'a', 'f', 0xE9}, "text/html", "café", "windows-1252"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, name := Decode(tc.body, tc.contentType)
			require.Equal(t, tc.want, got)
			require.Equal(t, tc.charset, name)
		})
	}
}

func TestFetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(0).Fetch(context.Background(), url, Options{Timeout: time.Second})
	var fe *Error
	require.True(t, errors.As(err, &fe))
	require.Equal(t, Unreachable, fe.Kind)
	require.True(t, fe.Temporary())
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := New(0).Fetch(context.Background(), srv.URL, Options{Timeout: 50 * time.Millisecond})
	var fe *Error
	require.True(t, errors.As(err, &fe))
	require.Equal(t, Unreachable, fe.Kind)
}

func TestHostLimiterSpacesRequests(t *testing.T) {
	l := NewHostLimiter(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "http://a.example/1"))
	require.NoError(t, l.Wait(ctx, "http://b.example/1"))
	require.Less(t, time.Since(start), 40*time.Millisecond)

	require.NoError(t, l.Wait(ctx, "http://a.example/2"))
	require.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestHostLimiterCancelled(t *testing.T) {
	l := NewHostLimiter(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, l.Wait(ctx, "http://a.example/"))
	cancel()
	require.Error(t, l.Wait(ctx, "http://a.example/"))
}
