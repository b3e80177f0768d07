package ogc

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"strings"
)

func CapabilitiesURL(geoServerBase string) string {
	params := url.Values{}
	params.Set("service", "WFS")
	params.Set("version", "1.0.0")
	params.Set("request", "GetCapabilities")
	return OWSEndpoint(geoServerBase) + "?" + params.Encode()
}

type LatLongBoundingBox struct {
	MinX string `xml:"minx,attr" json:"minx" yaml:"minx"`
	MinY string `xml:"miny,attr" json:"miny" yaml:"miny"`
	MaxX string `xml:"maxx,attr" json:"maxx" yaml:"maxx"`
	MaxY string `xml:"maxy,attr" json:"maxy" yaml:"maxy"`
}

// FeatureType is one entry of a WFS 1.0.0 FeatureTypeList.
type FeatureType struct {
	Name               string             `xml:"Name" json:"name" yaml:"name"`
	Title              string             `xml:"Title" json:"title" yaml:"title"`
	Abstract           string             `xml:"Abstract" json:"abstract" yaml:"abstract"`
	Keywords           string             `xml:"Keywords" json:"keywords" yaml:"keywords"`
	SRS                string             `xml:"SRS" json:"srs" yaml:"srs"`
	LatLongBoundingBox LatLongBoundingBox `xml:"LatLongBoundingBox" json:"latLongBoundingBox" yaml:"latLongBoundingBox"`
}

type wfsCapabilities struct {
	XMLName      xml.Name      `xml:"WFS_Capabilities"`
	FeatureTypes []FeatureType `xml:"FeatureTypeList>FeatureType"`
}

// ParseCapabilities decodes the feature types listed in a GetCapabilities document.
func ParseCapabilities(r io.Reader) ([]FeatureType, error) {
	var doc wfsCapabilities
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode capabilities: %w", err)
	}
	for i := range doc.FeatureTypes {
		ft := &doc.FeatureTypes[i]
		ft.Name = strings.TrimSpace(ft.Name)
		ft.Title = strings.TrimSpace(ft.Title)
		ft.Abstract = strings.TrimSpace(ft.Abstract)
		ft.Keywords = strings.TrimSpace(ft.Keywords)
		ft.SRS = strings.TrimSpace(ft.SRS)
	}
	return doc.FeatureTypes, nil
}
