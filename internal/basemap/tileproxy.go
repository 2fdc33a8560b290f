package basemap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// TileProxy fetches raster tiles from a provider's upstream server, caching
// results. It backs the serve command's preview map.
type TileProxy struct {
	provider Provider
	client   *http.Client
	cache    *TileCache
}

// NewTileProxy creates a tile proxy for one provider.
func NewTileProxy(provider Provider, cache *TileCache) *TileProxy {
	return &TileProxy{
		provider: provider,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache: cache,
	}
}

// Fetch retrieves one tile from the cache or upstream.
func (p *TileProxy) Fetch(ctx context.Context, z, x, y int) ([]byte, string, error) {
	if p.cache != nil {
		if cached := p.cache.Get(p.provider.Name, z, x, y); cached != nil {
			return cached, p.contentType(), nil
		}
	}

	url := expandTemplate(p.provider.URLTemplate, z, x, y)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", eris.Wrap(err, "basemap: create tile request")
	}
	req.Header.Set("User-Agent", "mapcli/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "", eris.Wrap(err, "basemap: fetch tile")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", eris.Errorf("basemap: upstream returned %d for %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", eris.Wrap(err, "basemap: read tile body")
	}

	if p.cache != nil {
		p.cache.Put(p.provider.Name, z, x, y, data)
	}

	zap.L().Debug("basemap: fetched tile", zap.String("url", url), zap.Int("bytes", len(data)))
	return data, p.contentType(), nil
}

// expandTemplate substitutes {z}/{x}/{y} placeholders.
func expandTemplate(tmpl string, z, x, y int) string {
	r := strings.NewReplacer(
		"{z}", fmt.Sprintf("%d", z),
		"{x}", fmt.Sprintf("%d", x),
		"{y}", fmt.Sprintf("%d", y),
	)
	return r.Replace(tmpl)
}

// contentType returns the MIME type for the provider's tile format.
func (p *TileProxy) contentType() string {
	switch p.provider.Format {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
