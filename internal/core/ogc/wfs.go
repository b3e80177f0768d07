// Package ogc builds WFS/WMS requests and spatial predicates for the remote map service.
package ogc

import (
	"net/url"
	"strings"

	"github.com/mohammed-shakir/wfs-draw-query/internal/core/model"
)

const (
	wfsVersion   = "1.1.0"
	outputFormat = "application/json"
)

func OWSEndpoint(geoServerBase string) string {
	return strings.TrimRight(geoServerBase, "/") + "/ows"
}

func WFSEndpoint(geoServerBase string) string {
	return strings.TrimRight(geoServerBase, "/") + "/wfs"
}

func baseGetFeatureParams(typeName string) url.Values {
	params := url.Values{}
	params.Set("service", "WFS")
	params.Set("version", wfsVersion)
	params.Set("request", "GetFeature")
	params.Set("typename", typeName)
	params.Set("outputFormat", outputFormat)
	return params
}

// BuildBBoxParams constrains GetFeature to the given extent, requested and returned in extent.SRS.
func BuildBBoxParams(typeName string, extent model.Extent) url.Values {
	params := baseGetFeatureParams(typeName)
	params.Set("srsname", extent.SRS)
	params.Set("bbox", extent.String())
	return params
}

// BuildFilterParams constrains GetFeature with a CQL predicate instead of a bbox.
func BuildFilterParams(typeName, cql string) url.Values {
	params := baseGetFeatureParams(typeName)
	params.Set("CQL_FILTER", cql)
	return params
}

// BBoxURLFunc returns the url template used by bbox-mode sources.
func BBoxURLFunc(geoServerBase, typeName string) func(model.Extent) string {
	endpoint := WFSEndpoint(geoServerBase)
	return func(extent model.Extent) string {
		return endpoint + "?" + BuildBBoxParams(typeName, extent).Encode()
	}
}

func FilterURL(geoServerBase, typeName, cql string) string {
	return WFSEndpoint(geoServerBase) + "?" + BuildFilterParams(typeName, cql).Encode()
}
