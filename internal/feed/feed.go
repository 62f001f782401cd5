// Package feed fetches the CTA customer alerts feed and normalizes it
// into the canonical Alert shape. Raw feed structures never leave this
// package; callers see either a parsed alert list or an error.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	logx "ctawatch/pkg/logx"
)

// ErrBadPayload is returned when the response body does not contain the
// expected CTAAlerts envelope. Callers treat it the same as a transport
// failure: the cycle is skipped, existing state is kept.
var ErrBadPayload = errors.New("feed: malformed alerts payload")

// Alert is the canonical post-normalization alert.
// Start and End hold the raw feed timestamps ("" = absent); epoch and
// display conversions are done by EpochSeconds / DisplayTime.
type Alert struct {
	ID          string
	Title       string
	Description string
	Color       string
	URL         string
	Start       string
	End         string
}

type Client struct {
	http          *http.Client
	baseURL       string
	accessibility bool
	log           logx.Logger
}

// NewClient builds a feed client. The HTTP client is timeout-bounded so
// a hung fetch cannot wedge the poll guard indefinitely.
func NewClient(baseURL string, accessibility bool, log logx.Logger) *Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &Client{
		http:          &http.Client{Transport: tr, Timeout: 30 * time.Second},
		baseURL:       baseURL,
		accessibility: accessibility,
		log:           log,
	}
}

// Fetch performs one feed request. Any failure mode (transport error,
// non-200 status, undecodable body, missing envelope) is an error; an
// empty alert list is a valid result and is distinct from failure.
func (c *Client) Fetch(ctx context.Context) ([]Alert, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("feed: parse url: %w", err)
	}
	q := u.Query()
	q.Set("outputType", "JSON")
	if c.accessibility {
		q.Set("accessibility", "true")
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("feed: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("feed: unexpected status %d", resp.StatusCode)
	}

	var payload alertsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if payload.CTAAlerts.Alert == nil {
		return nil, ErrBadPayload
	}

	alerts := make([]Alert, 0, len(payload.CTAAlerts.Alert))
	for _, raw := range payload.CTAAlerts.Alert {
		alerts = append(alerts, raw.normalize())
	}
	c.log.Debug("fetched alerts", logx.Int("count", len(alerts)))
	return alerts, nil
}

// ---- wire shapes ----

type alertsResponse struct {
	CTAAlerts struct {
		Alert alertList `json:"Alert"`
	} `json:"CTAAlerts"`
}

// alertList tolerates the feed returning a single object instead of a
// one-element array when only one alert is active.
type alertList []rawAlert

func (l *alertList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var many []rawAlert
	if err := json.Unmarshal(data, &many); err == nil {
		*l = alertList(many)
		if *l == nil {
			*l = alertList{}
		}
		return nil
	}
	var one rawAlert
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*l = alertList{one}
	return nil
}

type rawAlert struct {
	AlertID          string    `json:"AlertId"`
	Headline         string    `json:"Headline"`
	ShortDescription string    `json:"ShortDescription"`
	SeverityColor    string    `json:"SeverityColor"`
	AlertURL         *cdataStr `json:"AlertURL"`
	EventStart       string    `json:"EventStart"`
	EventEnd         string    `json:"EventEnd"`
}

// cdataStr unwraps the feed's {"#cdata-section": "..."} wrapper.
type cdataStr struct {
	Value string `json:"#cdata-section"`
}

func (r rawAlert) normalize() Alert {
	a := Alert{
		ID:          r.AlertID,
		Title:       r.Headline,
		Description: r.ShortDescription,
		Color:       r.SeverityColor,
		Start:       r.EventStart,
		End:         r.EventEnd,
	}
	if r.AlertURL != nil {
		a.URL = r.AlertURL.Value
	}
	return a
}
