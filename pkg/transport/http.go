package transport

import (
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
)

// NewHTTPClient returns the HTTP client used when none is supplied.
//
// The client never follows redirects on its own: a 301 from the backend
// carries its target in the body and is handled by the Dispatcher, so a
// Location header must not trigger a second, method-changing hop. A zero
// timeout leaves the client without an overall deadline.
func NewHTTPClient(timeout time.Duration, logger logrus.FieldLogger) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		logger.WithError(err).Warn("HTTP/2 unavailable, falling back to HTTP/1.1")
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
