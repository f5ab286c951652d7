package tvmaze

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	phttp "github.com/episodarr/episodarr/pkg/http"
	"github.com/episodarr/episodarr/pkg/show"
)

// Source is the tag prefixed to native TVMaze ids to form show identifiers,
// e.g. "tvmaze-12345".
const Source = "tvmaze"

var (
	// ErrNotFound means TVMaze has no such show. Terminal for the caller.
	ErrNotFound = errors.New("show not found")
	// ErrUnavailable means TVMaze could not be reached or answered with a
	// server error. Retryable at the caller's discretion.
	ErrUnavailable = errors.New("episode source unavailable")
	// ErrInvalidID means a show identifier is not of the form tvmaze-<id>.
	ErrInvalidID = errors.New("invalid show id")
)

// ShowID builds the namespaced identifier for a native TVMaze show id.
func ShowID(native int) string {
	return fmt.Sprintf("%s-%d", Source, native)
}

// ParseShowID extracts the native TVMaze id from a namespaced identifier.
func ParseShowID(id string) (int, error) {
	native, ok := strings.CutPrefix(id, Source+"-")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	n, err := strconv.Atoi(native)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	return n, nil
}

// ShowInfo is a show as the catalog describes it, keyed by the namespaced
// identifier.
type ShowInfo struct {
	ID string `json:"id"`
	show.Details
}

// Client is a TVMaze API client. It has no state beyond its configuration
// and is safe for concurrent use.
type Client struct {
	scheme string
	host   string
	http   phttp.HTTPClient
}

// ClientOption configures a Client
type ClientOption func(*Client)

// New creates a TVMaze client. By default it talks to api.tvmaze.com through
// a rate-limited http client.
func New(opts ...ClientOption) *Client {
	c := &Client{
		scheme: "https",
		host:   "api.tvmaze.com",
		http:   phttp.NewRateLimitedHTTPClient(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithScheme sets the url scheme to reach the api with
func WithScheme(scheme string) ClientOption {
	return func(c *Client) {
		c.scheme = scheme
	}
}

// WithHost sets the api host
func WithHost(host string) ClientOption {
	return func(c *Client) {
		c.host = host
	}
}

// WithHTTPClient sets the http client used for requests
func WithHTTPClient(client phttp.HTTPClient) ClientOption {
	return func(c *Client) {
		c.http = client
	}
}

// SearchShows queries the catalog for shows matching the query.
func (c *Client) SearchShows(ctx context.Context, query string) ([]ShowInfo, error) {
	var results []searchResult
	err := c.get(ctx, "/search/shows", url.Values{"q": []string{query}}, &results)
	if err != nil {
		return nil, err
	}

	shows := make([]ShowInfo, 0, len(results))
	for _, r := range results {
		shows = append(shows, r.Show.toInfo())
	}

	return shows, nil
}

// GetShow fetches the descriptive metadata for a native show id.
func (c *Client) GetShow(ctx context.Context, id int) (ShowInfo, error) {
	var s apiShow
	err := c.get(ctx, fmt.Sprintf("/shows/%d", id), nil, &s)
	if err != nil {
		return ShowInfo{}, err
	}

	return s.toInfo(), nil
}

// GetEpisodes fetches the complete current episode list for a native show
// id. A show with zero published episodes yields an empty list and no error.
func (c *Client) GetEpisodes(ctx context.Context, id int) ([]show.Episode, error) {
	var results []apiEpisode
	err := c.get(ctx, fmt.Sprintf("/shows/%d/episodes", id), nil, &results)
	if err != nil {
		return nil, err
	}

	episodes := make([]show.Episode, 0, len(results))
	for _, e := range results {
		episodes = append(episodes, show.Episode{
			ID:      e.ID,
			Season:  e.Season,
			Number:  e.Number,
			Title:   e.Name,
			AirDate: parseAirDate(e.Airdate, e.Airtime),
			Runtime: e.Runtime,
			Summary: stripTags(e.Summary),
		})
	}

	return episodes, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := url.URL{
		Scheme:   c.scheme,
		Host:     c.host,
		Path:     path,
		RawQuery: query.Encode(),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: unexpected status %s", ErrUnavailable, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %s", ErrUnavailable, err)
	}

	return nil
}

// parseAirDate combines TVMaze's airdate and optional airtime into one
// timestamp. A missing airdate yields the zero time, which the domain treats
// as "not yet aired".
func parseAirDate(airdate, airtime string) time.Time {
	if airdate == "" {
		return time.Time{}
	}

	if airtime != "" {
		if ts, err := time.Parse("2006-01-02 15:04", airdate+" "+airtime); err == nil {
			return ts
		}
	}

	ts, err := time.Parse("2006-01-02", airdate)
	if err != nil {
		return time.Time{}
	}

	return ts
}
