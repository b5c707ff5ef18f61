package dishwise

import "strings"

// ModelConfig selects and tunes the oracle backend.
type ModelConfig struct {
	Provider    string  `env:"ORACLE_PROVIDER,default=openai"`
	ModelID     string  `env:"ORACLE_MODEL,default=gpt-4o-mini"`
	APIKey      string  `env:"ORACLE_API_KEY,default="`
	BaseURL     string  `env:"ORACLE_BASE_URL,default="`
	MaxTokens   int32   `env:"ORACLE_MAX_TOKENS,default=1024"`
	Temperature float32 `env:"ORACLE_TEMPERATURE,default=0"`
	TimeoutSecs int     `env:"ORACLE_TIMEOUT_SECS,default=30"`
}

// AgentConfig tunes the clarification and reconciliation behavior.
type AgentConfig struct {
	MaxQuestions int    `env:"MAX_QUESTIONS,default=2"`
	NonVegTokens string `env:"NONVEG_TOKENS,default="`
	TraceLogDir  string `env:"TRACE_LOG_DIR,default=./logs"`
}

// DefaultNonVegTokens applies when NONVEG_TOKENS is unset. It cannot be
// an envdecode tag default because the tag parser splits on commas.
const DefaultNonVegTokens = "chicken,mutton,fish,egg"

// NonVegTokenList splits the configured token list, lower-cased and
// trimmed. An empty value means the default list; set NONVEG_TOKENS to
// "," to disable the check entirely.
func (c AgentConfig) NonVegTokenList() []string {
	raw := c.NonVegTokens
	if strings.TrimSpace(raw) == "" {
		raw = DefaultNonVegTokens
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.ToLower(strings.TrimSpace(p)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// CommerceConfig wires the MCP marketplace lookup. With Enabled false the
// lookup short-circuits to a disabled status.
type CommerceConfig struct {
	Enabled     bool   `env:"COMMERCE_MCP_ENABLED,default=false"`
	Endpoint    string `env:"COMMERCE_MCP_ENDPOINT,default="`
	Command     string `env:"COMMERCE_MCP_COMMAND,default="`
	CommandArgs string `env:"COMMERCE_MCP_ARGS,default="`
	AuthHeader  string `env:"COMMERCE_MCP_AUTH_HEADER,default="`
	AuthToken   string `env:"COMMERCE_MCP_AUTH_TOKEN,default="`
	ToolName    string `env:"COMMERCE_MCP_TOOL_NAME,default="`
	QueryParam  string `env:"COMMERCE_MCP_QUERY_PARAM,default=query"`
	TimeoutSecs int    `env:"COMMERCE_MCP_TIMEOUT_SECS,default=15"`
}

// Args splits CommandArgs on commas for stdio transports.
func (c CommerceConfig) Args() []string {
	if strings.TrimSpace(c.CommandArgs) == "" {
		return nil
	}
	parts := strings.Split(c.CommandArgs, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
