package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type CacheCfg struct {
	LRUSize   int
	TTL       time.Duration
	RedisAddr string
	OpTimeout time.Duration
}

type Config struct {
	Addr         string
	CORSOrigins  []string
	LogLevel     string
	LogConsole   bool
	LogSampleN   int
	LogFile      string
	GeoServerURL string
	FeatureType  string
	RasterLayer  string
	WorkingSRS   string
	FilterSRS    string
	GeomColumn   string
	CenterLon    float64
	CenterLat    float64
	Zoom         float64
	ViewWidth    int
	ViewHeight   int
	SettleDelay  time.Duration
	HTTPTimeout  time.Duration
	Cache        CacheCfg
}

func FromEnv() Config {
	zoom := getfloat("ZOOM", 9)
	if zoom < 0 {
		zoom = 0
	}
	if zoom > 28 {
		zoom = 28
	}

	working := strings.ToUpper(getenv("WORKING_SRS", "EPSG:3857"))

	return Config{
		Addr:         getenv("ADDR", ":8090"),
		CORSOrigins:  getlist("CORS_ORIGINS", "*"),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		LogConsole:   getbool("LOG_CONSOLE", false),
		LogSampleN:   getint("LOG_SAMPLE_N", 0),
		LogFile:      getenv("LOG_FILE", ""),
		GeoServerURL: getenv("GEOSERVER_URL", "https://geowebservices.stanford.edu/geoserver"),
		FeatureType:  getenv("FEATURE_TYPE", "druid:mz047dz0617"),
		RasterLayer:  getenv("RASTER_LAYER", "druid:vc995kj1553"),
		WorkingSRS:   working,
		FilterSRS:    strings.ToUpper(getenv("FILTER_SRS", working)),
		GeomColumn:   getenv("GEOM_COLUMN", "geom"),
		CenterLon:    getfloat("CENTER_LON", -70.673676),
		CenterLat:    getfloat("CENTER_LAT", -33.448993),
		Zoom:         zoom,
		ViewWidth:    getint("VIEW_WIDTH", 1024),
		ViewHeight:   getint("VIEW_HEIGHT", 768),
		SettleDelay:  getduration("SETTLE_DELAY", 250*time.Millisecond),
		// 0 keeps requests open until the server answers
		HTTPTimeout:  getduration("HTTP_TIMEOUT", 0),
		Cache: CacheCfg{
			LRUSize:   getint("CACHE_LRU_SIZE", 64),
			TTL:       getduration("CACHE_TTL", 60*time.Second),
			RedisAddr: getenv("REDIS_ADDR", ""),
			OpTimeout: getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
		},
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// getlist splits a comma-separated value, dropping empty items.
func getlist(k, def string) []string {
	var out []string
	for _, v := range strings.Split(getenv(k, def), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
