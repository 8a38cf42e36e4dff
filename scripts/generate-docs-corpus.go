//go:build ignore

// Package main generates a synthetic documentation corpus in the raw data
// layout (apis/, docs/, demos/) for local indexing runs against a dev store.
// Usage: go run scripts/generate-docs-corpus.go -docs 200 -output raw_data/spreadjs/en
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

var (
	numDocs   = flag.Int("docs", 200, "Number of documents to generate")
	outputDir = flag.String("output", "raw_data/spreadjs/en", "Output directory")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
)

var apiTemplate = `# %s

The %s class handles %s.

## Constructor

` + "```js" + `
var instance = new GC.Spread.Sheets.%s(options);
` + "```" + `

Creates a %s bound to the active worksheet.

## get%s

Returns the current %s value.

**Returns:** the %s state object.

## set%s

` + "```js" + `
instance.set%s(value, { refresh: true });
` + "```" + `

Updates the %s and optionally repaints the viewport.

**Parameters:**
- ` + "`value`" + ` - the new %s value
- ` + "`options.refresh`" + ` - repaint after the update

## dispose

Releases the %s and detaches its event listeners. Call this before
removing the host element from the document.
`

var docTemplate = `# %s

%s is part of the %s feature set.

## Overview

Use %s when a sheet needs %s. The behavior applies per worksheet and
persists through serialization.

## Basic Usage

` + "```js" + `
var sheet = spread.getActiveSheet();
sheet.%s(0, 0, {
    enabled: true
});
` + "```" + `

## Options

| Option | Type | Default | Description |
|--------|------|---------|-------------|
| enabled | boolean | false | Turns the behavior on |
| scope | string | "sheet" | Where the setting applies |

## Notes

Changing this setting inside a batch update defers the repaint until
` + "`resumePaint`" + ` runs.
`

var demoTemplate = `# %s Demo

This sample shows %s in a running spreadsheet.

## Setup

` + "```js" + `
window.onload = function () {
    var spread = new GC.Spread.Sheets.Workbook(
        document.getElementById("ss"));
    var sheet = spread.getActiveSheet();
    init%s(sheet);
};
` + "```" + `

## Walkthrough

The sample seeds a data range, then enables %s and binds a change
handler so edits reflow immediately.
`

// Word pools for generating spreadsheet-flavored names.
var (
	components = []string{
		"Workbook", "Worksheet", "CellRange", "PivotTable", "Chart",
		"Formula", "Span", "Filter", "Sort", "Style",
		"Binding", "Theme", "Axis", "Legend", "Series",
		"Outline", "Comment", "Slicer", "Sparkline", "Validator",
	}
	features = []string{
		"conditional formatting", "data binding", "cell merging",
		"frozen panes", "formula evaluation", "data validation",
		"row filtering", "custom sorting", "cell protection",
		"number formatting", "drag fill", "clipboard handling",
		"touch scrolling", "incremental loading", "theme switching",
	}
	accessors = []string{
		"Value", "Range", "State", "Layout", "Selection",
		"Format", "Source", "Options", "Bounds", "Scale",
	}
	methods = []string{
		"setRowCount", "addSpan", "setFormatter", "setDataValidator",
		"setColumnWidth", "freezePanes", "setBorder", "autoFitColumn",
		"setArrayFormula", "groupRows",
	}
)

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	subdirs := []string{"apis/classes", "docs/features", "demos/samples"}
	for _, subdir := range subdirs {
		if err := os.MkdirAll(filepath.Join(*outputDir, subdir), 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating subdirectory %s: %v\n", subdir, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Generating %d documents in %s...\n", *numDocs, *outputDir)

	// Distribution mirrors a real product tree: API reference dominates.
	apiDocs := *numDocs * 50 / 100
	featureDocs := *numDocs * 35 / 100
	demoDocs := *numDocs - apiDocs - featureDocs

	generated := 0
	for i := 0; i < apiDocs; i++ {
		if err := generateAPIDoc(rng, i); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating API doc %d: %v\n", i, err)
			continue
		}
		generated++
	}
	for i := 0; i < featureDocs; i++ {
		if err := generateFeatureDoc(rng, i); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating feature doc %d: %v\n", i, err)
			continue
		}
		generated++
	}
	for i := 0; i < demoDocs; i++ {
		if err := generateDemoDoc(rng, i); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating demo doc %d: %v\n", i, err)
			continue
		}
		generated++
	}

	fmt.Printf("Generated %d documents.\n", generated)
}

func randomWord(rng *rand.Rand, pool []string) string {
	return pool[rng.Intn(len(pool))]
}

// title capitalizes each word. The pools are plain ASCII.
func title(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func generateAPIDoc(rng *rand.Rand, index int) error {
	component := randomWord(rng, components)
	feature := randomWord(rng, features)
	accessor := randomWord(rng, accessors)

	content := fmt.Sprintf(apiTemplate,
		component,
		component, feature,
		component,
		component,
		accessor, strings.ToLower(accessor), strings.ToLower(accessor),
		accessor, accessor,
		strings.ToLower(accessor), strings.ToLower(accessor),
		strings.ToLower(component),
	)

	filename := filepath.Join(*outputDir, "apis/classes",
		fmt.Sprintf("%s-%d.md", strings.ToLower(component), index))
	return os.WriteFile(filename, []byte(content), 0644)
}

func generateFeatureDoc(rng *rand.Rand, index int) error {
	feature := randomWord(rng, features)
	component := randomWord(rng, components)
	method := randomWord(rng, methods)

	heading := title(feature)
	content := fmt.Sprintf(docTemplate,
		heading,
		heading, component,
		heading, feature,
		method,
	)

	filename := filepath.Join(*outputDir, "docs/features",
		fmt.Sprintf("%s-%d.md", strings.ReplaceAll(feature, " ", "-"), index))
	return os.WriteFile(filename, []byte(content), 0644)
}

func generateDemoDoc(rng *rand.Rand, index int) error {
	feature := randomWord(rng, features)
	component := randomWord(rng, components)

	content := fmt.Sprintf(demoTemplate,
		title(feature),
		feature,
		component,
		feature,
	)

	filename := filepath.Join(*outputDir, "demos/samples",
		fmt.Sprintf("%s-demo-%d.md", strings.ReplaceAll(feature, " ", "-"), index))
	return os.WriteFile(filename, []byte(content), 0644)
}
