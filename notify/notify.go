// Package notify posts finished analysis summaries to a webhook so a
// channel can follow what the pipeline produced.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"dishwise"
)

type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	webhookURL string
	httpClient doer
}

func NewClient(webhookURL string, httpClient doer) *Client {
	return &Client{
		webhookURL: webhookURL,
		httpClient: httpClient,
	}
}

// PostResult sends a short human-readable summary of the composed result.
func (c *Client) PostResult(ctx context.Context, result *dishwise.ComposedResult) error {
	payload, err := json.Marshal(map[string]any{
		"text": Summarize(result),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to post result: %s", resp.Status)
	}

	return nil
}

// Summarize renders the one-line channel summary for a result.
func Summarize(result *dishwise.ComposedResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d servings, %s): %d ingredients, %d steps, ~%d min, %d kcal/serving",
		result.Recipe.Dish,
		result.Ingredients.ServingsAssumption,
		result.Ingredients.Variant,
		len(result.Ingredients.Ingredients),
		len(result.Recipe.Steps),
		result.Recipe.TimeMinutes,
		result.Nutrition.PerServing.CaloriesKcal,
	)
	if len(result.Commerce.Results) > 0 {
		fmt.Fprintf(&b, " — %d offers (%s)", len(result.Commerce.Results), result.Commerce.Status)
	}
	return b.String()
}
