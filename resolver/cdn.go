package resolver

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

	aura "github.com/osmandkitay/aura-sub000"
)

// cdnTimeout bounds a single edge-cache fetch.
const cdnTimeout = 5 * time.Second

// cdnMaxResponseBytes caps the size of a fetched DID document.
const cdnMaxResponseBytes = 1 << 20

// cdnClient fetches DID documents from an edge/CDN cache at
// GET {base}/did/{urlEncodedDID}. Every failure mode (non-200, timeout,
// malformed body) is treated as a cache miss, never an error.
type cdnClient struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func newCDNClient(baseURL string, client *http.Client, logger *slog.Logger) *cdnClient {
	if client == nil {
		client = &http.Client{Timeout: cdnTimeout}
	}
	return &cdnClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
		logger:  logger,
	}
}

// fetch returns the edge-cached document for a DID, or a miss.
func (c *cdnClient) fetch(ctx context.Context, did string) (*aura.DIDDocument, bool) {
	ctx, cancel := context.WithTimeout(ctx, cdnTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/did/%s", c.baseURL, url.PathEscape(did))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("edge cache fetch failed", "did", did, "error", err)
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("edge cache miss", "did", did, "status", resp.StatusCode)
		return nil, false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, cdnMaxResponseBytes))
	if err != nil {
		return nil, false
	}

	var doc aura.DIDDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		c.logger.Debug("edge cache returned malformed document", "did", did, "error", err)
		return nil, false
	}

	return &doc, true
}
