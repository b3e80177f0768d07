package ogc

import (
	"net/url"
	"strconv"

	"github.com/mohammed-shakir/wfs-draw-query/internal/core/model"
)

// TileWMS describes a tiled raster overlay served by GeoServer's /ows endpoint.
type TileWMS struct {
	Endpoint string
	Layer    string
	Tiled    bool
}

func NewTileWMS(geoServerBase, layer string) TileWMS {
	return TileWMS{Endpoint: OWSEndpoint(geoServerBase), Layer: layer, Tiled: true}
}

// TileURL builds a GetMap request for one tile covering extent.
func (t TileWMS) TileURL(extent model.Extent, width, height int) string {
	params := url.Values{}
	params.Set("SERVICE", "WMS")
	params.Set("VERSION", "1.3.0")
	params.Set("REQUEST", "GetMap")
	params.Set("FORMAT", "image/png")
	params.Set("TRANSPARENT", "true")
	params.Set("LAYERS", t.Layer)
	params.Set("TILED", strconv.FormatBool(t.Tiled))
	params.Set("CRS", extent.SRS)
	params.Set("BBOX", extent.Coords())
	params.Set("WIDTH", strconv.Itoa(width))
	params.Set("HEIGHT", strconv.Itoa(height))
	return t.Endpoint + "?" + params.Encode()
}
