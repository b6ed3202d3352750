package whttp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/html"
)

const UserAgent = "lounge/1.0 (+https://e.foundation)"

type Header struct {
	Name  string
	Value string
}

type Req struct {
	URL     string
	Method  string
	Headers []Header
	Body    []byte
}

type Res struct {
	StatusCode  int
	ContentType string
	HTTPTitle   string
	Body        []byte
}

// BodyString returns the raw body.
func (r *Res) BodyString() string { return string(r.Body) }

// IsHTML reports whether the server answered with a page instead of data. Gateways
// and proxies in front of JSON APIs do that for most of their error paths.
func (r *Res) IsHTML() bool {
	if strings.Contains(strings.ToLower(r.ContentType), "text/html") {
		return true
	}
	trimmed := bytes.TrimSpace(r.Body)
	return bytes.HasPrefix(trimmed, []byte("<")) && !bytes.HasPrefix(trimmed, []byte("<?xml"))
}

var (
	defaultMu     sync.Mutex
	defaultClient *retryablehttp.Client
)

// NewClient returns a retrying client with quiet logging.
func NewClient(retries int, timeout time.Duration) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.Logger = log.New(io.Discard, "", 0)
	c.RetryMax = retries
	c.RetryWaitMin = 200 * time.Millisecond
	c.RetryWaitMax = 2 * time.Second
	c.HTTPClient.Timeout = timeout
	// hand the last response back once retries are exhausted
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return c
}

// GetDefaultClient returns the shared client, creating it on first use.
func GetDefaultClient() *retryablehttp.Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultClient = NewClient(3, 30*time.Second)
	}
	return defaultClient
}

// SetupProxy routes the shared client through proxy.
func SetupProxy(proxy string) error {
	proxyURL, err := url.Parse(proxy)
	if err != nil {
		return fmt.Errorf("invalid proxy URL: %w", err)
	}
	c := GetDefaultClient()
	defaultMu.Lock()
	defer defaultMu.Unlock()
	c.HTTPClient.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	return nil
}

// SendHTTPRequest performs wReq and reads the whole body. Non-2xx statuses are not
// errors here; callers map them.
func SendHTTPRequest(ctx context.Context, wReq *Req, client *retryablehttp.Client) (*Res, error) {
	if client == nil {
		client = GetDefaultClient()
	}
	method := wReq.Method
	if method == "" {
		method = http.MethodGet
	}

	var body interface{}
	if wReq.Body != nil {
		body = wReq.Body
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, wReq.URL, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en")
	for _, h := range wReq.Headers {
		req.Header.Set(h.Name, h.Value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	wRes := &Res{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        bodyBytes,
	}
	if wRes.IsHTML() {
		if title, ok := getHTMLTitle(bodyBytes); ok {
			wRes.HTTPTitle = strings.ToValidUTF8(strings.Join(strings.Fields(title), " "), "")
		}
	}
	return wRes, nil
}

func isTitleElement(n *html.Node) bool {
	return n.Type == html.ElementNode && n.Data == "title"
}

func traverse(n *html.Node) (string, bool) {
	if isTitleElement(n) {
		if n.FirstChild != nil {
			return n.FirstChild.Data, true
		}
		return "", true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if result, ok := traverse(c); ok {
			return result, ok
		}
	}
	return "", false
}

func getHTMLTitle(body []byte) (string, bool) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", false
	}
	return traverse(doc)
}
