package libcal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

const (
	PortalURL = "https://unswlibrary-bookings.libcal.com/"
	GridURL   = PortalURL + "spaces/availability/grid"
	RoomURL   = PortalURL + "space/"
	UserAgent = "libcal-rooms/1.0 (github.com/pfrederiksen/libcal-rooms)"
	Timeout   = 30 * time.Second

	// HeadingSelector locates the name/location/capacity block on a room page
	HeadingSelector = "h1#s-lc-public-header-title"

	pageSize = "18"
)

var (
	// ErrUnexpectedStatus is returned for any non-200 portal response
	ErrUnexpectedStatus = errors.New("unexpected status code")

	// ErrHeadingNotFound is returned when a room page has no heading block
	ErrHeadingNotFound = errors.New("room heading not found")
)

// Options configures a Client
type Options struct {
	GridURL       string
	RoomURL       string
	Referer       string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
}

// DefaultOptions returns options for the UNSW library portal
func DefaultOptions() Options {
	return Options{
		GridURL:       GridURL,
		RoomURL:       RoomURL,
		Referer:       PortalURL,
		Timeout:       Timeout,
		RatePerSecond: 5,
		Burst:         5,
	}
}

// Client fetches availability grids and room pages from the portal
type Client struct {
	client  *http.Client
	gridURL string
	roomURL string
	referer string
	limiter *rate.Limiter
}

// New creates a Client with the default options
func New() *Client {
	return NewWithOptions(DefaultOptions())
}

// NewWithOptions creates a Client. A non-positive rate disables throttling.
func NewWithOptions(opts Options) *Client {
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = Timeout
	}

	return &Client{
		client: &http.Client{
			Timeout: timeout,
		},
		gridURL: opts.GridURL,
		roomURL: opts.RoomURL,
		referer: opts.Referer,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// gridResponse is the availability grid body
type gridResponse struct {
	Slots []Slot `json:"slots"`
}

// availabilityForm builds the grid request body for all resources and event types
func availabilityForm(lid string, w Window) url.Values {
	form := url.Values{}
	form.Set("lid", lid)
	form.Set("gid", "0")
	form.Set("eid", "-1")
	form.Set("seat", "0")
	form.Set("seatId", "0")
	form.Set("zone", "0")
	form.Set("start", w.Start())
	form.Set("end", w.End())
	form.Set("pageIndex", "0")
	form.Set("pageSize", pageSize)
	return form
}

// FetchSlots fetches the raw availability grid for a building's grid code
func (c *Client) FetchSlots(ctx context.Context, lid string, w Window) ([]Slot, error) {
	body := strings.NewReader(availabilityForm(lid, w).Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gridURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var result gridResponse
	err = c.do(ctx, "availability", req, func(body io.Reader) error {
		if err := json.NewDecoder(body).Decode(&result); err != nil {
			return fmt.Errorf("parsing availability: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result.Slots, nil
}

// FetchHeading fetches a room's detail page and returns its heading text
func (c *Client) FetchHeading(ctx context.Context, itemID int) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.roomURL+strconv.Itoa(itemID), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	var text string
	err = c.do(ctx, "room page", req, func(body io.Reader) error {
		var perr error
		text, perr = parseHeading(body)
		return perr
	})
	if err != nil {
		return "", err
	}

	return text, nil
}

// do waits for the limiter, sends req and hands a 200 body to handle
func (c *Client) do(ctx context.Context, what string, req *http.Request, handle func(io.Reader) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req.Header.Set("Referer", c.referer)
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", what, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	return handle(resp.Body)
}

// FetchRoom fetches and classifies one room. Every failure is reported in the Outcome.
func (c *Client) FetchRoom(ctx context.Context, itemID int, buildingID string) Outcome {
	text, err := c.FetchHeading(ctx, itemID)
	if err != nil {
		return failed(err)
	}
	return ParseHeading(text, buildingID)
}

// parseHeading extracts the heading text from a room page
func parseHeading(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}

	sel := doc.Find(HeadingSelector).First()
	if sel.Length() == 0 {
		return "", ErrHeadingNotFound
	}

	text := strings.TrimSpace(sel.Text())
	if text == "" {
		return "", ErrHeadingNotFound
	}

	return text, nil
}
