package openai

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
)

// NewClient builds a chat completion client. An empty baseURL keeps the public API endpoint.
func NewClient(token, baseURL string, timeout time.Duration) (*goopenai.Client, error) {
	if token == "" {
		return nil, fmt.Errorf("token is empty")
	}

	cfg := goopenai.DefaultConfig(token)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	return goopenai.NewClientWithConfig(cfg), nil
}
