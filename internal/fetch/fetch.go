// Package fetch retrieves source pages. It does not retry; callers decide
// whether an error is worth another attempt.
package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"
)

// UserAgent is sent with every request. The sources reject default client
// identifiers.
const UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

const DefaultTimeout = 30 * time.Second

type Kind int

const (
	Unreachable Kind = iota + 1
	HTTPStatus
)

func (k Kind) String() string {
	switch k {
	case Unreachable:
		return "unreachable"
	case HTTPStatus:
		return "http_status"
	default:
		return "unknown"
	}
}

// Error is returned for every failed fetch.
type Error struct {
	Kind       Kind
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Kind == HTTPStatus {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: unreachable: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Temporary reports whether trying again later may succeed.
func (e *Error) Temporary() bool {
	if e.Kind == Unreachable {
		return !errors.Is(e.Err, context.Canceled)
	}
	return e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= 500
}

type Options struct {
	Timeout            time.Duration
	InsecureSkipVerify bool
}

type Page struct {
	URL       string
	Status    int
	Charset   string
	Body      string
	FetchedAt time.Time
}

type Client struct {
	secure   *resty.Client
	insecure *resty.Client
	limiter  *HostLimiter
}

// New returns a client that waits delay between requests to the same host.
func New(delay time.Duration) *Client {
	return &Client{
		secure:   newResty(false),
		insecure: newResty(true),
		limiter:  NewHostLimiter(delay),
	}
}

func newResty(insecure bool) *resty.Client {
	client := resty.New()
	client.SetHeader("user-agent", UserAgent)
	client.SetHeader("accept", "text/html,application/xhtml+xml")
	client.SetTimeout(DefaultTimeout)
	if insecure {
		client.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	return client
}

// Fetch performs one GET. The body is decoded from the declared charset;
// undecodable bytes are replaced instead of failing the fetch.
func (c *Client) Fetch(ctx context.Context, url string, opts Options) (Page, error) {
	if err := c.limiter.Wait(ctx, url); err != nil {
		return Page{}, &Error{Kind: Unreachable, URL: url, Err: err}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := c.secure
	if opts.InsecureSkipVerify {
		client = c.insecure
	}

	res, err := client.R().SetContext(ctx).Get(url)
	if err != nil {
		return Page{}, &Error{Kind: Unreachable, URL: url, Err: err}
	}
	if !res.IsSuccess() {
		return Page{}, &Error{Kind: HTTPStatus, URL: url, StatusCode: res.StatusCode()}
	}

	body, name := Decode(res.Body(), res.Header().Get("Content-Type"))
	return Page{
		URL:       url,
		Status:    res.StatusCode(),
		Charset:   name,
		Body:      body,
		FetchedAt: res.ReceivedAt().UTC(),
	}, nil
}

// Decode converts body to UTF-8 using the charset named by the content type
// or the document itself, falling back to replacement characters. A body
// that is valid UTF-8 stays as it is unless the content type or a byte order
// mark says otherwise; detection only sees the first 1024 bytes.
func Decode(body []byte, contentType string) (string, string) {
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if !certain && utf8.Valid(body) {
		return string(body), "utf-8"
	}
	if name != "utf-8" {
		if decoded, err := enc.NewDecoder().Bytes(body); err == nil {
			body = decoded
		}
	}
	return strings.ToValidUTF8(string(body), "�"), name
}
