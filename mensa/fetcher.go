package mensa

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxDaySkips bounds how many days Fetch advances past "not found"
// responses before giving up.
const maxDaySkips = 20

// ErrNoMenu is returned when no menu page exists within the skip window.
var ErrNoMenu = errors.New("no menu found")

type Client struct {
	HTTPClient *http.Client

	// BaseURL overrides the upstream URL prefix, used in tests.
	BaseURL string
}

func NewClient() *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) url(day time.Time, mensaID int) string {
	if c.BaseURL != "" {
		return fmt.Sprintf("%s/speiseplan_%s_%d_-de.html", c.BaseURL, day.Format("2006-01-02"), mensaID)
	}
	return mealURL(day, mensaID)
}

// Fetch downloads the menu page for a cafeteria, starting at initialDay.
// A 404 advances one day and retries, up to maxDaySkips attempts; the
// first 200 returns the body and the day that produced it. Any other
// status or transport failure is surfaced to the caller.
func (c *Client) Fetch(mensaID int, initialDay time.Time) ([]byte, time.Time, error) {
	day := initialDay

	for i := 0; i < maxDaySkips; i++ {
		resp, err := c.HTTPClient.Get(c.url(day, mensaID))
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("fetching menu for %d: %w", mensaID, err)
		}

		switch resp.StatusCode {
		case http.StatusOK:
			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, time.Time{}, fmt.Errorf("reading menu for %d: %w", mensaID, err)
			}
			return body, day, nil
		case http.StatusNotFound:
			resp.Body.Close()
			day = day.AddDate(0, 0, 1)
		default:
			resp.Body.Close()
			return nil, time.Time{}, fmt.Errorf("fetching menu for %d: unexpected status %d", mensaID, resp.StatusCode)
		}
	}
	return nil, time.Time{}, ErrNoMenu
}
