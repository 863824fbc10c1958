// Package tr064 talks to the TR-064 SOAP interface of a FRITZ!Box.
package tr064

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/icholy/digest"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"fritzbox-exporter/internal/config"
)

// DefaultTimeout bounds dialing and the TLS handshake.
const DefaultTimeout = 5 * time.Second

// Client executes remote calls against one device. It is safe for concurrent use.
type Client struct {
	device      string
	baseURL     string
	insecureTLS bool
	timeout     time.Duration
	transport   http.RoundTripper
	httpClient  *http.Client

	group singleflight.Group

	mu       sync.RWMutex
	services map[string]string
}

// Option applies options to the client
type Option func(*Client)

// WithTimeout sets the timeout for connecting to the device and for the
// shared description fetch
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithTransport replaces the transport below the digest authentication
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.transport = rt
	}
}

// NewClient creates a client for the device.
func NewClient(d *config.Device, opts ...Option) *Client {
	c := &Client{
		device:      d.Name,
		baseURL:     d.BaseURL(),
		insecureTLS: d.Insecure,
		timeout:     DefaultTimeout,
	}

	for _, o := range opts {
		o(c)
	}

	if c.transport == nil {
		c.transport = &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: c.timeout,
			}).DialContext,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: c.insecureTLS,
			},
			MaxIdleConnsPerHost: 2,
			TLSHandshakeTimeout: c.timeout,
		}
	}

	// the challenge is cached per host and renewed on a 401
	c.httpClient = &http.Client{
		Transport: &digest.Transport{
			Username:  d.User,
			Password:  d.Password,
			Transport: c.transport,
		},
	}

	return c
}

// Call executes action of service and returns the fields of the response.
// The whole exchange, including the description lookup and the digest
// handshake, is bounded by ctx.
func (c *Client) Call(ctx context.Context, service, action string) (map[string]string, error) {
	call := service + "#" + action

	urls, err := c.controlURLs(ctx)
	if err != nil {
		return nil, callError(call, err)
	}

	controlURL, ok := urls[serviceType(service)]
	if !ok {
		return nil, &Error{
			Reason: ReasonUnknownService,
			Call:   call,
			Err:    fmt.Errorf("service %s not announced by device", serviceType(service)),
		}
	}

	resp, err := c.post(ctx, controlURL, soapAction(service, action), envelope(service, action))
	if err != nil {
		return nil, callError(call, err)
	}
	defer closeBody(resp)

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &Error{Reason: ReasonAuthenticationFailed, Call: call, Err: errors.New("credentials rejected")}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusInternalServerError {
		return nil, &Error{Reason: ReasonMalformedResponse, Call: call, Err: fmt.Errorf("unexpected status code %d", resp.StatusCode)}
	}

	fields, err := decodeResponse(resp.Body, action)
	if err != nil {
		var f *Fault
		if errors.As(err, &f) {
			return nil, faultError(call, f)
		}
		if ctx.Err() != nil {
			return nil, transportError(call, ctx.Err())
		}
		return nil, &Error{Reason: ReasonMalformedResponse, Call: call, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Reason: ReasonMalformedResponse, Call: call, Err: fmt.Errorf("status code %d without SOAP fault", resp.StatusCode)}
	}

	return fields, nil
}

func callError(call string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return &Error{Reason: e.Reason, Call: call, Err: e.Err}
	}

	return transportError(call, err)
}

// post sends the SOAP request. The digest transport answers a 401 with one
// more attempt under the same context, a 401 returned here is final.
func (c *Client) post(ctx context.Context, controlURL, action string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+controlURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SoapAction", action)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		log.WithFields(log.Fields{
			"device": c.device,
			"url":    req.URL.String(),
		}).Debug("digest credentials rejected")
	}

	return resp, nil
}

// closeBody drains the body so the connection can be reused.
func closeBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
