package schemaver

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const maxSchemaDocBytes = 4 << 20

// Dereferencer resolves a schema identifier that is itself a fetchable
// schema-document URI (ending in ".json") to the document's canonical $id.
// Dereferencing is best effort: on any fetch or parse failure the raw
// identifier is used as-is. Fetches are bounded by a timeout and rate
// limited so that routing cannot be stalled by a slow schema host.
type Dereferencer struct {
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewDereferencer builds a dereferencer with the given fetch timeout.
func NewDereferencer(timeout time.Duration, logger *slog.Logger) *Dereferencer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dereferencer{
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(10), 20),
		logger:  logger,
	}
}

// Canonical returns the canonical identifier for raw. Identifiers that are
// not schema-document URIs are returned unchanged.
func (d *Dereferencer) Canonical(raw string) string {
	if !strings.HasSuffix(raw, ".json") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	var body []byte
	switch u.Scheme {
	case "file":
		body, err = os.ReadFile(u.Path)
	case "http", "https":
		if !d.limiter.Allow() {
			d.logger.Warn("schema dereference rate limited", "uri", raw)
			return raw
		}
		body, err = d.fetch(raw)
	default:
		return raw
	}
	if err != nil {
		d.logger.Debug("schema dereference failed, using raw identifier",
			"uri", raw, "error", err)
		return raw
	}

	var doc struct {
		ID string `json:"$id"`
	}
	if err := json.Unmarshal(body, &doc); err != nil || doc.ID == "" {
		return raw
	}
	return doc.ID
}

func (d *Dereferencer) fetch(uri string) ([]byte, error) {
	resp, err := d.client.Get(uri)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(io.LimitReader(resp.Body, maxSchemaDocBytes))
}
