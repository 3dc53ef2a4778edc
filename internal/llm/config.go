package llm

import "fmt"

// Config holds the connection settings shared by every chat-completion call.
// The model and API key are per-request: the call layer rotates both.
type Config struct {
	APIURL          string  `json:"api_url"`
	MaxOutputTokens int     `json:"max_output_tokens"`
	Temperature     float64 `json:"temperature"`
	TimeoutSeconds  int     `json:"timeout_seconds"`
	SiteURL         string  `json:"site_url"`
	AppName         string  `json:"app_name"`
}

func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api url is required")
	}
	if c.MaxOutputTokens <= 0 {
		return fmt.Errorf("max output tokens must be positive")
	}
	return nil
}
