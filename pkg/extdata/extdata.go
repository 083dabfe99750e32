// Package extdata fetches associated data for validation rules from the
// coordination service: parent entities, siblings, reference data, and
// other vocabulary terms rules declare via RequiredData.
//
// Fetching is best-effort. An unavailable or failing coordination
// service degrades to an empty data map; rules then see their terms as
// absent and decide for themselves whether that is a failure.
package extdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/judepayne/validlib/pkg/entity"
)

// Provider fetches associated data keyed by vocabulary term.
type Provider interface {
	// AssociatedData returns a map of vocabulary term to fetched data.
	// Terms that could not be fetched are simply absent; implementations
	// never return an error for fetch failures, only empty data.
	AssociatedData(ctx context.Context, entityType string, data entity.Data, terms []string) map[string]any
}

// Disabled is the Provider used when no coordination service is
// configured. Every fetch yields empty data.
type Disabled struct{}

// AssociatedData returns an empty map.
func (Disabled) AssociatedData(context.Context, string, entity.Data, []string) map[string]any {
	return map[string]any{}
}

const maxResponseBytes = 16 << 20

// HTTPProvider fetches associated data over the coordination service's
// fetch-data endpoint.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPProvider builds a provider for the service at baseURL.
// timeout bounds each request; zero means 5 seconds.
func NewHTTPProvider(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type fetchRequest struct {
	EntityType      string      `json:"entity_type"`
	EntityData      entity.Data `json:"entity_data"`
	VocabularyTerms []string    `json:"vocabulary_terms"`
}

// AssociatedData POSTs to {base}/fetch-data and decodes the term map.
// Any failure is logged and degrades to empty data.
func (p *HTTPProvider) AssociatedData(ctx context.Context, entityType string, data entity.Data, terms []string) map[string]any {
	if len(terms) == 0 {
		return map[string]any{}
	}

	fetched, err := p.fetch(ctx, entityType, data, terms)
	if err != nil {
		p.logger.Warn("associated data fetch failed, continuing with empty data",
			"entity_type", entityType, "terms", terms, "error", err)
		return map[string]any{}
	}
	return fetched
}

func (p *HTTPProvider) fetch(ctx context.Context, entityType string, data entity.Data, terms []string) (map[string]any, error) {
	body, err := json.Marshal(fetchRequest{
		EntityType:      entityType,
		EntityData:      data,
		VocabularyTerms: terms,
	})
	if err != nil {
		return nil, fmt.Errorf("extdata: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/fetch-data", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("extdata: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extdata: fetch-data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extdata: fetch-data: unexpected status %d", resp.StatusCode)
	}

	var fetched map[string]any
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&fetched); err != nil {
		return nil, fmt.Errorf("extdata: decode response: %w", err)
	}
	if fetched == nil {
		fetched = map[string]any{}
	}
	return fetched, nil
}
