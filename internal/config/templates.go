package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Earnings Tracker Configuration

# Replace every network source with synthetic data
[mock]
enabled = false
# 0 seeds from the clock
seed = 0

[api]
# Base URL of the market-data gateway
base_url = "http://localhost:3000/api"
# Per-request timeout
timeout = "30s"
# Retries after the first attempt (transport errors and 5xx only)
retry_attempts = 3
# Delay before retry k is retry_delay * k
retry_delay = "1s"
# Backoff strategy: "linear" or "exponential"
backoff = "linear"
# Upper bound for exponential backoff
max_delay = "0s"

[fetcher]
# Symbols per chunk (upstream accepts at most 30)
chunk_size = 5
# Pause between chunks
chunk_delay = "500ms"
# "per-symbol" issues one /quote per symbol, "batch" one /batch-quotes per chunk
mode = "per-symbol"
# Client-side request pacing, 0 disables
requests_per_second = 0
# Daily bars attached to each stock
history_days = 30
include_history = false

[calendar]
# Calendar payload shape: "finnhub" or "fmp"
provider = "finnhub"
# Drop foreign listings such as SHOP.TO
primary_only = true

[session]
timezone = "America/New_York"
# Full-day closures, YYYY-MM-DD
holidays = []

[cache]
enabled = true
# Leave empty for in-memory caching
redis_url = ""
calendar_ttl = "1h"
quote_ttl = "60s"
history_ttl = "5m"
sp500_ttl = "24h"

[sp500]
# "gateway" reads /sp500, "csv" downloads the constituents file directly
source = "gateway"
csv_url = "https://raw.githubusercontent.com/datasets/s-and-p-500-companies/main/data/constituents.csv"

[analysis]
# Summarization backend: "openai" or "gemini"
provider = "gemini"
openai_model = "gpt-4o-mini"
gemini_model = "gemini-2.0-flash"
search_url = "https://google.serper.dev/search"
# Reports with less extracted text are rejected
min_content_chars = 500
max_input_chars = 30000
timeout = "60s"

[logging]
level = "info"
console = true
file = true
max_size = 50
max_backups = 5
max_age = 14

[ui]
color_enabled = true
time_format = "15:04:05"
`

const credentialsTemplate = `# Earnings Tracker Credentials
# WARNING: Keep this file secure! Do not commit to version control.

[gateway]
api_key = ""

[openai]
api_key = ""

[gemini]
api_key = ""

[serper]
api_key = ""
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	// Use restricted permissions for credentials file
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}

	return nil
}
