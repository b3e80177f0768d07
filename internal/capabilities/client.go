// Package capabilities looks up feature type metadata from the service's
// GetCapabilities document.
package capabilities

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mohammed-shakir/wfs-draw-query/internal/core/executor"
	"github.com/mohammed-shakir/wfs-draw-query/internal/core/ogc"
)

var ErrNotFound = errors.New("feature type not found")

// Lookuper resolves one feature type by name.
type Lookuper interface {
	Lookup(ctx context.Context, typeName string) (ogc.FeatureType, error)
}

type Client struct {
	url     string
	fetcher executor.Interface
	logger  *slog.Logger
}

func NewClient(geoServerBase string, fetcher executor.Interface, logger *slog.Logger) *Client {
	return &Client{url: ogc.CapabilitiesURL(geoServerBase), fetcher: fetcher, logger: logger}
}

func (c *Client) List(ctx context.Context) ([]ogc.FeatureType, error) {
	body, err := c.fetcher.Fetch(ctx, c.url)
	if err != nil {
		return nil, fmt.Errorf("get capabilities: %w", err)
	}
	fts, err := ogc.ParseCapabilities(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.logger.DebugContext(ctx, "capabilities fetched", "feature_types", len(fts))
	return fts, nil
}

// Lookup returns the entry named typeName, or ErrNotFound.
func (c *Client) Lookup(ctx context.Context, typeName string) (ogc.FeatureType, error) {
	fts, err := c.List(ctx)
	if err != nil {
		return ogc.FeatureType{}, err
	}
	for _, ft := range fts {
		if ft.Name == typeName {
			return ft, nil
		}
	}
	return ogc.FeatureType{}, fmt.Errorf("%w: %s", ErrNotFound, typeName)
}
