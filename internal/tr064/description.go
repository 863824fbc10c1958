package tr064

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
)

const descriptionPath = "/tr64desc.xml"

type descDevice struct {
	Services []struct {
		ServiceType string `xml:"serviceType"`
		ControlURL  string `xml:"controlURL"`
	} `xml:"serviceList>service"`
	Devices []descDevice `xml:"deviceList>device"`
}

type descRoot struct {
	Device descDevice `xml:"device"`
}

func (d *descDevice) collect(into map[string]string) {
	for _, s := range d.Services {
		if _, exists := into[s.ServiceType]; !exists {
			into[s.ServiceType] = s.ControlURL
		}
	}
	for i := range d.Devices {
		d.Devices[i].collect(into)
	}
}

func parseDescription(r io.Reader) (map[string]string, error) {
	var root descRoot
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, err
	}

	urls := make(map[string]string)
	root.Device.collect(urls)
	if len(urls) == 0 {
		return nil, fmt.Errorf("no services announced in %s", descriptionPath)
	}

	return urls, nil
}

// controlURLs returns the service type to control URL mapping of the device.
// The description is fetched once; concurrent first callers share one request
// and a failed fetch is retried by the next call. The shared request has its
// own deadline, each caller stops waiting when its ctx is done.
func (c *Client) controlURLs(ctx context.Context) (map[string]string, error) {
	c.mu.RLock()
	urls := c.services
	c.mu.RUnlock()
	if urls != nil {
		return urls, nil
	}

	ch := c.group.DoChan("description", func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		urls, err := c.fetchDescription(fctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.services = urls
		c.mu.Unlock()

		return urls, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(map[string]string), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) fetchDescription(ctx context.Context) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+descriptionPath, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(descriptionPath, err)
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{
			Reason: ReasonMalformedResponse,
			Call:   descriptionPath,
			Err:    fmt.Errorf("unexpected status code %d", resp.StatusCode),
		}
	}

	urls, err := parseDescription(resp.Body)
	if err != nil {
		return nil, &Error{Reason: ReasonMalformedResponse, Call: descriptionPath, Err: err}
	}

	return urls, nil
}
