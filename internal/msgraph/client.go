package msgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/Tiliavir/booking-ledger/internal/timecalc"
)

const graphBaseURL = "https://graph.microsoft.com/v1.0"

// Client reads a user's calendar from Microsoft Graph.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient returns a Client authorized by tok. Tokens refreshed during the
// session are written back to tokenPath.
func NewClient(ctx context.Context, tok *oauth2.Token, cfg *oauth2.Config, tokenPath string) *Client {
	src := oauth2.ReuseTokenSource(tok, persistingSource{src: cfg.TokenSource(ctx, tok), path: tokenPath})
	return NewClientWithHTTP(oauth2.NewClient(ctx, src), graphBaseURL)
}

// NewClientWithHTTP returns a Client that sends requests through hc to baseURL.
func NewClientWithHTTP(hc *http.Client, baseURL string) *Client {
	return &Client{httpClient: hc, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// persistingSource saves every token it hands out.
type persistingSource struct {
	src  oauth2.TokenSource
	path string
}

func (p persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.src.Token()
	if err != nil {
		return nil, err
	}
	if err := saveToken(p.path, tok); err != nil {
		slog.Warn("could not save refreshed token", "error", err)
	}
	return tok, nil
}

// Meetings returns the calendar events of day as Meetings in loc. tz is the
// IANA zone Graph is asked to report times in.
func (c *Client) Meetings(ctx context.Context, day time.Time, loc *time.Location, tz string) ([]Meeting, error) {
	if loc == nil {
		loc = time.Local
	}
	from := timecalc.StartOfDay(day.In(loc))
	q := url.Values{}
	q.Set("startDateTime", from.UTC().Format(time.RFC3339))
	q.Set("endDateTime", from.AddDate(0, 0, 1).UTC().Format(time.RFC3339))
	q.Set("$top", "100")
	q.Set("$select", "id,subject,isAllDay,isCancelled,sensitivity,showAs,start,end")

	var meetings []Meeting
	next := c.baseURL + "/me/calendarView?" + q.Encode()
	for next != "" {
		var page struct {
			Value    []graphEvent `json:"value"`
			NextLink string       `json:"@odata.nextLink"`
		}
		if err := c.get(ctx, next, tz, &page); err != nil {
			return nil, err
		}
		for _, e := range page.Value {
			meetings = append(meetings, e.meeting(tz, loc))
		}
		next = page.NextLink
	}
	return meetings, nil
}

// get fetches endpoint and decodes the JSON body into v.
func (c *Client) get(ctx context.Context, endpoint, tz string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if tz != "" {
		req.Header.Set("Prefer", fmt.Sprintf("outlook.timezone=%q", tz))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graph request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("graph API error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding graph response: %w", err)
	}
	return nil
}
