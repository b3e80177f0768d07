package keys

import (
	"regexp"
	"testing"
	"unicode"
)

const base = "https://example.org/geoserver/wfs?service=WFS&version=1.1.0&request=GetFeature&typename=druid:mz047dz0617&outputFormat=application/json"

func mustKey(t *testing.T, raw string) string {
	t.Helper()
	k, err := Key(raw)
	if err != nil {
		t.Fatalf("Key(%q): %v", raw, err)
	}
	return k
}

func TestDeterminism_SameInputsSameKey(t *testing.T) {
	u := base + "&srsname=EPSG:3857&bbox=1,2,3,4,EPSG:3857"
	if mustKey(t, u) != mustKey(t, u) {
		t.Fatal("determinism failed")
	}
}

func TestParamOrderDoesNotMatter(t *testing.T) {
	a := base + "&srsname=EPSG:3857&bbox=1,2,3,4,EPSG:3857"
	b := "https://example.org/geoserver/wfs?bbox=1,2,3,4,EPSG:3857&outputFormat=application/json&typename=druid:mz047dz0617&srsname=EPSG:3857&request=GetFeature&version=1.1.0&service=WFS"
	if mustKey(t, a) != mustKey(t, b) {
		t.Fatal("reordered params must share a key")
	}
}

func TestFilterSpacingVariantsProduceSameKey(t *testing.T) {
	a := base + "&CQL_FILTER=WITHIN(geom,%20POLYGON((20%2010,%2030%2010,%2030%2020,%2020%2010)))"
	b := base + "&CQL_FILTER=WITHIN(geom,POLYGON((20%2010,30%2010,30%2020,20%2010)))"
	ka, kb := mustKey(t, a), mustKey(t, b)
	if ka != kb {
		t.Fatalf("normalized keys differ:\n a=%s\n b=%s", ka, kb)
	}
	if !regexp.MustCompile(`^wfs:druid:mz047dz0617:filter:f=[0-9a-f]{16}$`).MatchString(ka) {
		t.Fatalf("unexpected key shape: %s", ka)
	}
}

func TestDifferentExtentsAreDifferent(t *testing.T) {
	k1 := mustKey(t, base+"&bbox=1,2,3,4,EPSG:3857")
	k2 := mustKey(t, base+"&bbox=1,2,3,5,EPSG:3857")
	if k1 == k2 {
		t.Fatal("different extents must produce different keys")
	}
}

func TestUnicodeSafety_LayerSanitized(t *testing.T) {
	k := mustKey(t, "http://h/wfs?typename=demo:Göteborg%20roads&bbox=1,2,3,4,EPSG:4326")
	for _, r := range k {
		if r > unicode.MaxASCII {
			t.Fatalf("non-ASCII rune leaked into key: %q in %s", r, k)
		}
	}
}

func TestInvalidURL(t *testing.T) {
	if _, err := Key("http://[::1"); err == nil {
		t.Fatal("expected parse error")
	}
}
