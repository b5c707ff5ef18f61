// Package commerce looks up marketplace offers for a resolved dish over
// MCP. The lookup is advisory: every failure path degrades to a status
// plus deterministic mock offers, never an error.
package commerce

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"dishwise"
)

// toolSession is the slice of an MCP client session the lookup uses.
type toolSession interface {
	ListTools(ctx context.Context, params *mcp.ListToolsParams) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, params *mcp.CallToolParams) (*mcp.CallToolResult, error)
	Close() error
}

// connectFunc opens an MCP session. Swapped out in tests.
type connectFunc func(ctx context.Context) (toolSession, error)

// Client implements dishwise.CommerceLookup against a configured MCP
// server, reachable over streamable HTTP or a child process.
type Client struct {
	cfg     dishwise.CommerceConfig
	connect connectFunc
}

func New(cfg dishwise.CommerceConfig) *Client {
	c := &Client{cfg: cfg}
	c.connect = c.dial
	return c
}

// Lookup returns offers for the dish. Status reports what actually
// happened; Results are always present unless the integration is
// disabled or unconfigured.
func (c *Client) Lookup(ctx context.Context, dish string) dishwise.CommerceResult {
	if !c.cfg.Enabled {
		return dishwise.CommerceResult{
			Status:  dishwise.CommerceDisabled,
			Message: "Commerce lookup is disabled. Set COMMERCE_MCP_ENABLED=true to try it.",
		}
	}
	if c.cfg.Endpoint == "" && c.cfg.Command == "" {
		return dishwise.CommerceResult{
			Status:  dishwise.CommerceUnavailable,
			Message: "No MCP server configured.",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.TimeoutSecs)*time.Second)
	defer cancel()

	offers, source, err := c.tryLookup(ctx, dish)
	if err == nil {
		return dishwise.CommerceResult{
			Status:  dishwise.CommerceAvailable,
			Results: offers,
			Source:  source,
		}
	}

	slog.Warn("COMMERCE: lookup failed, falling back to mock offers", "error", err)
	result := mockResult(dish)
	if isUnauthorized(err) {
		result.Status = dishwise.CommerceUnauthorized
		result.Message = "Marketplace rejected the configured credentials. Mock results shown."
	}
	return result
}

func (c *Client) tryLookup(ctx context.Context, dish string) ([]dishwise.CommerceOffer, string, error) {
	session, err := c.connect(ctx)
	if err != nil {
		return nil, "", err
	}
	defer session.Close()

	tool, err := c.pickTool(ctx, session)
	if err != nil {
		return nil, "", err
	}

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      tool,
		Arguments: map[string]any{c.cfg.QueryParam: dish},
	})
	if err != nil {
		return nil, "", fmt.Errorf("call %s: %w", tool, err)
	}
	if res.IsError {
		return nil, "", fmt.Errorf("tool %s reported an error", tool)
	}
	return parseOffers(res), tool, nil
}

// pickTool prefers the configured tool name, then the first tool whose
// name suggests searching or listing.
func (c *Client) pickTool(ctx context.Context, session toolSession) (string, error) {
	tools, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return "", fmt.Errorf("list tools: %w", err)
	}
	if c.cfg.ToolName != "" {
		for _, t := range tools.Tools {
			if t.Name == c.cfg.ToolName {
				return t.Name, nil
			}
		}
	}
	for _, t := range tools.Tools {
		if strings.Contains(t.Name, "search") || strings.Contains(t.Name, "list") {
			return t.Name, nil
		}
	}
	return "", fmt.Errorf("no search tool found among %d tools", len(tools.Tools))
}

func (c *Client) dial(ctx context.Context) (toolSession, error) {
	client := mcp.NewClient(&mcp.Implementation{Name: "dishwise", Version: "0.1.0"}, nil)
	if c.cfg.Endpoint != "" {
		var httpClient *http.Client
		if c.cfg.AuthHeader != "" && c.cfg.AuthToken != "" {
			httpClient = &http.Client{Transport: &headerTransport{
				header: c.cfg.AuthHeader,
				token:  c.cfg.AuthToken,
				base:   http.DefaultTransport,
			}}
		}
		transport := mcp.NewStreamableClientTransport(c.cfg.Endpoint, &mcp.StreamableClientTransportOptions{
			HTTPClient: httpClient,
		})
		session, err := client.Connect(ctx, transport)
		if err != nil {
			return nil, err
		}
		return session, nil
	}
	cmd := exec.CommandContext(ctx, c.cfg.Command, c.cfg.Args()...)
	session, err := client.Connect(ctx, mcp.NewCommandTransport(cmd))
	if err != nil {
		return nil, err
	}
	return session, nil
}

// headerTransport injects the configured auth header on every request.
type headerTransport struct {
	header string
	token  string
	base   http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set(t.header, t.token)
	return t.base.RoundTrip(clone)
}

// parseOffers flattens tool output into offers. Text content may be a
// JSON object, a JSON array, or plain text; plain text becomes an offer
// with unknown price and ETA.
func parseOffers(res *mcp.CallToolResult) []dishwise.CommerceOffer {
	var offers []dishwise.CommerceOffer
	for _, content := range res.Content {
		text, ok := content.(*mcp.TextContent)
		if !ok {
			continue
		}
		raw := strings.TrimSpace(text.Text)
		if raw == "" {
			continue
		}
		switch raw[0] {
		case '[':
			var list []dishwise.CommerceOffer
			if err := json.Unmarshal([]byte(raw), &list); err == nil {
				offers = append(offers, list...)
				continue
			}
		case '{':
			var one dishwise.CommerceOffer
			if err := json.Unmarshal([]byte(raw), &one); err == nil && one.Name != "" {
				offers = append(offers, one)
				continue
			}
		}
		offers = append(offers, dishwise.CommerceOffer{Name: raw, Price: "N/A"})
	}
	return offers
}

func isUnauthorized(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "401") || strings.Contains(strings.ToLower(msg), "unauthorized")
}

// mockResult synthesizes the deterministic fallback offers and quote.
func mockResult(dish string) dishwise.CommerceResult {
	return dishwise.CommerceResult{
		Status: dishwise.CommerceMock,
		Results: []dishwise.CommerceOffer{
			{Name: dish + " Express", Price: "₹220", ETAMinutes: 30},
			{Name: "Classic " + dish, Price: "₹260", ETAMinutes: 35},
			{Name: "Street " + dish, Price: "₹180", ETAMinutes: 25},
		},
		Quote: &dishwise.CommerceQuote{
			Items:          []string{dish},
			EstimatedTotal: "₹260",
		},
		Message: "Mock results shown. Marketplace lookup failed or found no search tool.",
	}
}
