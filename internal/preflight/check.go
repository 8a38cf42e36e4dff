// Package preflight validates the environment before serving or indexing:
// settings parse, product descriptors resolve, data directories exist, and
// the vector store answers on its advertised address.
package preflight

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/grapecity-cn/docsmcp/internal/config"
)

// Status classifies one check outcome.
type Status int

const (
	StatusPass Status = iota
	StatusWarn
	StatusFail
)

// String returns the status label.
func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the status as its label.
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(s.String())), nil
}

// Result is the outcome of a single check.
type Result struct {
	Name     string `json:"name"`
	Status   Status `json:"status"`
	Message  string `json:"message"`
	Details  string `json:"details,omitempty"`
	Required bool   `json:"required"`
}

// IsCritical reports whether a required check failed.
func (r Result) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// Checker runs the preflight checks.
type Checker struct {
	dialTimeout time.Duration
}

// New creates a Checker.
func New() *Checker {
	return &Checker{dialTimeout: 2 * time.Second}
}

// RunAll runs every check in dependency order. When the settings check
// fails the remaining checks are skipped; they would all report the same
// root cause.
func (c *Checker) RunAll(ctx context.Context) []Result {
	settings, err := config.LoadSettings()
	if err != nil {
		return []Result{{
			Name:     "settings",
			Status:   StatusFail,
			Message:  err.Error(),
			Required: true,
		}}
	}

	results := []Result{{
		Name:   "settings",
		Status: StatusPass,
		Message: fmt.Sprintf("%d product(s), doc language %s",
			len(settings.Products), settings.DocLang),
		Required: true,
	}}

	products, productsResult := c.checkProducts(settings)
	results = append(results,
		productsResult,
		c.checkRawData(settings, products),
		c.checkCheckpoints(settings),
		c.checkStore(ctx, settings),
	)
	return results
}

// HasCriticalFailures reports whether any required check failed.
func (c *Checker) HasCriticalFailures(results []Result) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// SummaryStatus reduces the results to ready, ready_with_warnings, or failed.
func (c *Checker) SummaryStatus(results []Result) string {
	summary := "ready"
	for _, r := range results {
		if r.IsCritical() {
			return "failed"
		}
		if r.Status != StatusPass {
			summary = "ready_with_warnings"
		}
	}
	return summary
}

// checkProducts resolves every configured (product, doc language) pair and
// returns the ones that loaded for use by later checks.
func (c *Checker) checkProducts(settings config.Settings) ([]*config.Product, Result) {
	result := Result{Name: "products", Required: true}

	var products []*config.Product
	var problems []string
	for _, id := range settings.Products {
		p, err := config.LoadProduct(settings.ProductsDir, id, settings.DocLang)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		products = append(products, p)
	}

	if len(problems) > 0 {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%d of %d descriptors failed to resolve",
			len(problems), len(settings.Products))
		result.Details = strings.Join(problems, "\n")
		return products, result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d descriptor(s) resolved", len(products))
	return products, result
}

// checkRawData verifies each product's raw data directory exists. Missing
// directories only block indexing, so this is advisory.
func (c *Checker) checkRawData(settings config.Settings, products []*config.Product) Result {
	result := Result{Name: "raw_data"}

	var missing []string
	for _, p := range products {
		dir := filepath.Join(settings.RawDataDir, p.RawData)
		if _, err := os.Stat(dir); err != nil {
			missing = append(missing, dir)
		}
	}

	if len(missing) > 0 {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%d directory(ies) missing (needed for indexing only)", len(missing))
		result.Details = strings.Join(missing, "\n")
		return result
	}

	result.Status = StatusPass
	result.Message = "all raw data directories present"
	return result
}

// checkCheckpoints verifies the checkpoints directory is writable.
func (c *Checker) checkCheckpoints(settings config.Settings) Result {
	result := Result{Name: "checkpoints"}

	if err := os.MkdirAll(settings.CheckpointsDir, 0755); err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("cannot create %s: %v", settings.CheckpointsDir, err)
		return result
	}

	probe := filepath.Join(settings.CheckpointsDir, ".preflight-probe")
	f, err := os.Create(probe)
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("not writable: %v", err)
		return result
	}
	_ = f.Close()
	_ = os.Remove(probe)

	result.Status = StatusPass
	result.Message = settings.CheckpointsDir
	return result
}

// checkStore probes the vector store address with a TCP dial. The store
// may legitimately be down while editing configs, so failure is advisory.
func (c *Checker) checkStore(ctx context.Context, settings config.Settings) Result {
	result := Result{Name: "store"}
	addr := net.JoinHostPort(settings.QdrantHost, strconv.Itoa(settings.QdrantPort))

	dialer := &net.Dialer{Timeout: c.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("cannot reach %s: %v", addr, err)
		return result
	}
	_ = conn.Close()

	result.Status = StatusPass
	result.Message = "reachable at " + addr
	return result
}
