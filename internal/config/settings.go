// Package config resolves process settings from the environment and
// product/variant descriptors from YAML files.
//
// Two layers exist: Settings (environment, one per process) and Product
// (per product+language pair, loaded from products/{id}/product.yaml and
// products/{id}/{lang}.yaml, merged with fixed search defaults).
package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/grapecity-cn/docsmcp/internal/errors"
)

// Environment defaults.
const (
	DefaultPort           = 8900
	DefaultHost           = "0.0.0.0"
	DefaultQdrantURL      = "http://localhost:6334"
	DefaultEmbedModel     = "voyage-code-3"
	DefaultRerankModel    = "rerank-2.5"
	DefaultRPMLimit       = 2000
	DefaultTPMLimit       = 3000000
	DefaultChunkSize      = 3000
	DefaultBatchSize      = 128
	DefaultLogLevel       = "info"
	DefaultProductsDir    = "products"
	DefaultRawDataDir     = "raw_data"
	DefaultCheckpointsDir = "checkpoints"
)

// idPattern is the alphabet shared by product IDs, language codes, and
// collection names.
var idPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// Settings is the process-level configuration read from the environment.
type Settings struct {
	// Products are the product IDs served by this process (PRODUCT,
	// comma-separated).
	Products []string

	// DocLang selects the language variant loaded for each product.
	DocLang string

	// HTTP bind address.
	Host string
	Port int

	// Vector store connection.
	QdrantHost   string
	QdrantPort   int
	QdrantAPIKey string
	QdrantUseTLS bool

	// Voyage AI connection and ceilings.
	VoyageAPIKey      string
	VoyageEmbedModel  string
	VoyageRerankModel string
	VoyageRPMLimit    int
	VoyageTPMLimit    int

	// Ingestion parameters.
	ChunkSize int
	BatchSize int

	LogLevel string

	// Data directories.
	ProductsDir    string
	RawDataDir     string
	CheckpointsDir string
}

// LoadSettings reads the environment into a Settings. A .env file in the
// working directory is honored when present. Missing required variables
// yield a ConfigError naming the variable.
func LoadSettings() (Settings, error) {
	_ = godotenv.Load()

	var s Settings
	var err error

	product := strings.TrimSpace(os.Getenv("PRODUCT"))
	if product == "" {
		return s, errors.NewConfigError("PRODUCT is not set", nil)
	}
	for _, id := range strings.Split(product, ",") {
		id = strings.TrimSpace(strings.ToLower(id))
		if id == "" {
			continue
		}
		if !idPattern.MatchString(id) {
			return s, errors.NewConfigErrorf("PRODUCT contains invalid id %q (allowed: [a-z0-9_])", id)
		}
		s.Products = append(s.Products, id)
	}
	if len(s.Products) == 0 {
		return s, errors.NewConfigError("PRODUCT is empty after parsing", nil)
	}

	s.DocLang = strings.TrimSpace(strings.ToLower(os.Getenv("DOC_LANG")))
	if s.DocLang == "" {
		return s, errors.NewConfigError("DOC_LANG is not set", nil)
	}
	if !idPattern.MatchString(s.DocLang) {
		return s, errors.NewConfigErrorf("DOC_LANG %q is invalid (allowed: [a-z0-9_])", s.DocLang)
	}

	s.VoyageAPIKey = os.Getenv("VOYAGE_API_KEY")
	if s.VoyageAPIKey == "" {
		return s, errors.NewConfigError("VOYAGE_API_KEY is not set", nil)
	}

	s.Host = envOr("HOST", DefaultHost)
	if s.Port, err = envInt("PORT", DefaultPort); err != nil {
		return s, err
	}

	qdrantURL := envOr("QDRANT_URL", DefaultQdrantURL)
	if s.QdrantHost, s.QdrantPort, s.QdrantUseTLS, err = parseQdrantURL(qdrantURL); err != nil {
		return s, err
	}
	s.QdrantAPIKey = os.Getenv("QDRANT_API_KEY")

	s.VoyageEmbedModel = envOr("VOYAGE_EMBED_MODEL", DefaultEmbedModel)
	s.VoyageRerankModel = envOr("VOYAGE_RERANK_MODEL", DefaultRerankModel)
	if s.VoyageRPMLimit, err = envInt("VOYAGE_RPM_LIMIT", DefaultRPMLimit); err != nil {
		return s, err
	}
	if s.VoyageTPMLimit, err = envInt("VOYAGE_TPM_LIMIT", DefaultTPMLimit); err != nil {
		return s, err
	}

	if s.ChunkSize, err = envInt("CHUNK_SIZE", DefaultChunkSize); err != nil {
		return s, err
	}
	if s.BatchSize, err = envInt("BATCH_SIZE", DefaultBatchSize); err != nil {
		return s, err
	}

	s.LogLevel = envOr("LOG_LEVEL", DefaultLogLevel)

	s.ProductsDir = envOr("PRODUCTS_DIR", DefaultProductsDir)
	s.RawDataDir = envOr("RAW_DATA_DIR", DefaultRawDataDir)
	s.CheckpointsDir = envOr("CHECKPOINTS_DIR", DefaultCheckpointsDir)

	return s, nil
}

// CheckpointPath returns the checkpoint file path for a product.
func (s Settings) CheckpointPath(productID string) string {
	return fmt.Sprintf("%s/checkpoint-%s.json", s.CheckpointsDir, productID)
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.NewConfigErrorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

// parseQdrantURL splits a URL like https://host:6334 into the gRPC client's
// host/port/TLS triple. A bare host is accepted; the port defaults to 6334.
func parseQdrantURL(raw string) (host string, port int, useTLS bool, err error) {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, parseErr := url.Parse(raw)
	if parseErr != nil || u.Hostname() == "" {
		return "", 0, false, errors.NewConfigErrorf("QDRANT_URL %q is not a valid URL", raw)
	}

	port = 6334
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return "", 0, false, errors.NewConfigErrorf("QDRANT_URL port %q is not numeric", p)
		}
	}
	return u.Hostname(), port, u.Scheme == "https", nil
}
