package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/grapecity-cn/docsmcp/internal/errors"
)

// Chunker strategy names accepted in product descriptors.
const (
	ChunkerMarkdown = "markdown"
	ChunkerTypeDoc  = "typedoc"
	ChunkerJavaDoc  = "javadoc"
)

// SearchParams tunes the retrieval pipeline for one product. Absent YAML
// keys keep the fixed defaults.
type SearchParams struct {
	// PrefetchLimit is how many candidates each prefetch leg requests
	// before fusion.
	PrefetchLimit int `yaml:"prefetch_limit" json:"prefetch_limit"`

	// RerankTopK is how many candidates survive the reranker.
	RerankTopK int `yaml:"rerank_top_k" json:"rerank_top_k"`

	// DefaultLimit is the result count when the caller does not ask for one.
	DefaultLimit int `yaml:"default_limit" json:"default_limit"`

	// DenseScoreThreshold filters dense-only results below this cosine score.
	DenseScoreThreshold float32 `yaml:"dense_score_threshold" json:"dense_score_threshold"`

	// SparseScoreThreshold is parsed and carried for forward compatibility.
	// The store's hybrid query does not expose a sparse threshold, so it is
	// never applied.
	SparseScoreThreshold float32 `yaml:"sparse_score_threshold" json:"sparse_score_threshold"`

	// RRFK is the reciprocal-rank fusion constant, carried to the store's
	// hybrid query parameters.
	RRFK int `yaml:"rrf_k" json:"rrf_k"`

	// MinDetectLength is the minimum query length, in characters, before
	// language detection is attempted.
	MinDetectLength int `yaml:"min_detect_length" json:"min_detect_length"`
}

// DefaultSearchParams returns the fixed search defaults.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		PrefetchLimit:       20,
		RerankTopK:          10,
		DefaultLimit:        5,
		DenseScoreThreshold: 0.3,
		RRFK:                60,
		MinDetectLength:     10,
	}
}

// Resource is one guideline document attached to a language variant,
// returned verbatim by the get_code_guidelines tool and exposed as an MCP
// resource.
type Resource struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	MIMEType    string `yaml:"mime_type" json:"mime_type"`
	Content     string `yaml:"content" json:"content"`
}

// Product is the resolved configuration for one (product, language) pair:
// the product descriptor merged with its language variant and the search
// defaults.
type Product struct {
	ID           string       `yaml:"id" json:"id"`
	Name         string       `yaml:"name" json:"name"`
	Company      string       `yaml:"company" json:"company"`
	CompanyShort string       `yaml:"company_short" json:"company_short"`
	Chunker      string       `yaml:"chunker" json:"chunker"`
	DocSubdirs   []string     `yaml:"doc_subdirs" json:"doc_subdirs"`
	Search       SearchParams `yaml:"search" json:"search"`
	Instructions string       `yaml:"instructions" json:"instructions"`

	Lang        string              `yaml:"lang" json:"lang"`
	DocLanguage string              `yaml:"doc_language" json:"doc_language"`
	Collection  string              `yaml:"collection" json:"collection"`
	RawData     string              `yaml:"raw_data" json:"raw_data"`
	Description string              `yaml:"description" json:"description"`
	Resources   map[string]Resource `yaml:"resources" json:"resources"`
}

// productFile mirrors products/{id}/product.yaml.
type productFile struct {
	ID           string       `yaml:"id"`
	Name         string       `yaml:"name"`
	Company      string       `yaml:"company"`
	Chunker      string       `yaml:"chunker"`
	DocSubdirs   []string     `yaml:"doc_subdirs"`
	Search       SearchParams `yaml:"search"`
	Instructions string       `yaml:"instructions"`
}

// variantFile mirrors products/{id}/{lang}.yaml.
type variantFile struct {
	Lang        string              `yaml:"lang"`
	DocLanguage string              `yaml:"doc_language"`
	Collection  string              `yaml:"collection"`
	RawData     string              `yaml:"raw_data"`
	Description string              `yaml:"description"`
	Resources   map[string]Resource `yaml:"resources"`
}

// LoadProduct reads and validates the two descriptors for (id, lang) under
// productsDir and merges them into a resolved Product. Validation fails
// closed with a ConfigError listing every offending field.
func LoadProduct(productsDir, id, lang string) (*Product, error) {
	pf, err := readProductFile(filepath.Join(productsDir, id, "product.yaml"))
	if err != nil {
		return nil, err
	}
	vf, err := readVariantFile(filepath.Join(productsDir, id, lang+".yaml"))
	if err != nil {
		return nil, err
	}

	p := &Product{
		ID:           strings.ToLower(strings.TrimSpace(pf.ID)),
		Name:         strings.TrimSpace(pf.Name),
		Company:      strings.TrimSpace(pf.Company),
		Chunker:      strings.ToLower(strings.TrimSpace(pf.Chunker)),
		DocSubdirs:   pf.DocSubdirs,
		Search:       pf.Search,
		Instructions: pf.Instructions,
		Lang:         strings.ToLower(strings.TrimSpace(vf.Lang)),
		DocLanguage:  strings.ToLower(strings.TrimSpace(vf.DocLanguage)),
		Collection:   strings.ToLower(strings.TrimSpace(vf.Collection)),
		RawData:      strings.TrimSpace(vf.RawData),
		Description:  strings.TrimSpace(vf.Description),
		Resources:    vf.Resources,
	}

	if p.Chunker == "" {
		p.Chunker = ChunkerMarkdown
	}
	if len(p.DocSubdirs) == 0 {
		p.DocSubdirs = []string{"apis", "docs", "demos"}
	}
	if p.Collection == "" {
		p.Collection = fmt.Sprintf("%s_%s", p.ID, p.Lang)
	}
	p.CompanyShort = companyShort(p.Company)
	if p.Resources == nil {
		p.Resources = map[string]Resource{}
	}

	if problems := p.validate(id, lang); len(problems) > 0 {
		return nil, errors.NewConfigErrorf("product %s/%s: invalid fields: %s",
			id, lang, strings.Join(problems, "; "))
	}
	return p, nil
}

func readProductFile(path string) (*productFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigErrorf("product descriptor %s: %v", path, err)
	}
	// Defaults first so absent keys keep them.
	pf := &productFile{Search: DefaultSearchParams()}
	if err := yaml.Unmarshal(data, pf); err != nil {
		return nil, errors.NewConfigErrorf("product descriptor %s: %v", path, err)
	}
	return pf, nil
}

func readVariantFile(path string) (*variantFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigErrorf("variant descriptor %s: %v", path, err)
	}
	vf := &variantFile{}
	if err := yaml.Unmarshal(data, vf); err != nil {
		return nil, errors.NewConfigErrorf("variant descriptor %s: %v", path, err)
	}
	return vf, nil
}

// validate collects every schema violation instead of stopping at the first,
// so one failed startup names all the fields to fix.
func (p *Product) validate(wantID, wantLang string) []string {
	var problems []string

	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if p.ID == "" {
		add("id: required")
	} else if !idPattern.MatchString(p.ID) {
		add("id: %q not in [a-z0-9_]", p.ID)
	} else if p.ID != wantID {
		add("id: %q does not match directory %q", p.ID, wantID)
	}
	if p.Name == "" {
		add("name: required")
	}
	switch p.Chunker {
	case ChunkerMarkdown, ChunkerTypeDoc, ChunkerJavaDoc:
	default:
		add("chunker: %q not one of markdown|typedoc|javadoc", p.Chunker)
	}
	for _, d := range p.DocSubdirs {
		if strings.Contains(d, "..") || strings.ContainsAny(d, `/\`) {
			add("doc_subdirs: %q must be a bare directory name", d)
		}
	}

	if p.Search.PrefetchLimit <= 0 {
		add("search.prefetch_limit: must be positive")
	}
	if p.Search.RerankTopK <= 0 {
		add("search.rerank_top_k: must be positive")
	}
	if p.Search.DefaultLimit <= 0 {
		add("search.default_limit: must be positive")
	}

	if p.Lang == "" {
		add("lang: required")
	} else if !idPattern.MatchString(p.Lang) {
		add("lang: %q not in [a-z0-9_]", p.Lang)
	} else if p.Lang != wantLang {
		add("lang: %q does not match descriptor file %q", p.Lang, wantLang)
	}
	if p.DocLanguage == "" {
		add("doc_language: required")
	}
	if !idPattern.MatchString(p.Collection) {
		add("collection: %q not in [a-z0-9_]", p.Collection)
	}
	if p.RawData == "" {
		add("raw_data: required")
	} else if strings.Contains(p.RawData, "..") {
		add("raw_data: %q must not traverse upward", p.RawData)
	}

	for key, res := range p.Resources {
		if !idPattern.MatchString(strings.ReplaceAll(key, "-", "_")) {
			add("resources.%s: key not in [a-z0-9_-]", key)
		}
		if res.Name == "" {
			add("resources.%s.name: required", key)
		}
		if res.Content == "" {
			add("resources.%s.content: required", key)
		}
	}

	return problems
}

// companyShort derives the two-letter uppercased company tag.
func companyShort(company string) string {
	runes := []rune(company)
	if len(runes) > 2 {
		runes = runes[:2]
	}
	return strings.ToUpper(string(runes))
}
