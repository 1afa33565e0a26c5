// Package loader builds catalogs from seed documents stored in a local file or
// served over HTTP.
package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/giygas/pharmdb/catalog"
	"github.com/giygas/pharmdb/entities"
	"github.com/giygas/pharmdb/interfaces"
	"github.com/giygas/pharmdb/logging"
	"github.com/giygas/pharmdb/validation"
)

// Compile-time check to ensure Loader implements CatalogLoader
var _ interfaces.CatalogLoader = (*Loader)(nil)

// ErrEmptySource is returned by Load when no source is configured
var ErrEmptySource = errors.New("no catalog source configured")

// Document is the seed format: drugs in insertion order, substitutes named
// by drug name
type Document struct {
	Drugs []SeedDrug `json:"drugs"`
}

// SeedDrug is one drug of a seed document
type SeedDrug struct {
	Name        string                `json:"name"`
	Indications []entities.Indication `json:"indications"`
	Substitutes []string              `json:"substitutes"`
	SideEffects []entities.SideEffect `json:"side_effects"`
}

// Loader reads a seed document and builds a fresh catalog from it
type Loader struct {
	source    string
	client    *http.Client
	validator interfaces.DataValidator
}

// Option configures a Loader
type Option func(*Loader)

// WithHTTPClient replaces the default client used for http(s) sources
func WithHTTPClient(client *http.Client) Option {
	return func(l *Loader) {
		l.client = client
	}
}

// New returns a loader for source, a file path or an http(s) URL
func New(source string, validator interfaces.DataValidator, opts ...Option) *Loader {
	l := &Loader{
		source:    source,
		client:    &http.Client{Timeout: 5 * time.Minute},
		validator: validator,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Source returns the configured source
func (l *Loader) Source() string {
	return l.source
}

// Load fetches, decodes and builds the catalog. Any invalid drug fails the
// whole load, so a half-built catalog is never returned.
func (l *Loader) Load(ctx context.Context) (*catalog.Catalog, error) {
	if l.source == "" {
		return nil, ErrEmptySource
	}

	start := time.Now()

	body, err := l.fetch(ctx)
	if err != nil {
		return nil, err
	}
	body, err = toUTF8(body)
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse seed %s: %w", l.source, err)
	}

	c, err := l.Build(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog from %s: %w", l.source, err)
	}

	report := l.validator.ReportDataQuality(c)
	logging.Info("Catalog loaded",
		"source", l.source,
		"drugs", c.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
		"without_indications", report.DrugsWithoutIndications,
		"isolated", report.IsolatedDrugs,
	)

	return c, nil
}

// Build adds the drugs of doc to a new catalog in order. A substitute name
// resolves to the most recent earlier drug with that name.
func (l *Loader) Build(doc Document) (*catalog.Catalog, error) {
	c := catalog.New()
	latest := make(map[string]entities.DrugID, len(doc.Drugs))

	for i, seed := range doc.Drugs {
		in := entities.DrugInput{
			Name:        seed.Name,
			Indications: seed.Indications,
			SideEffects: seed.SideEffects,
		}

		for _, name := range seed.Substitutes {
			id, ok := latest[validation.NormalizeLabel(name)]
			if !ok {
				return nil, fmt.Errorf("drug #%d %q: %w: substitute %q is not defined earlier",
					i+1, seed.Name, catalog.ErrReferentialIntegrity, name)
			}
			in.Substitutes = append(in.Substitutes, id)
		}

		if err := l.validator.ValidateDrugInput(&in); err != nil {
			return nil, fmt.Errorf("drug #%d %q: %w", i+1, seed.Name, err)
		}

		id, err := c.AddDrug(in)
		if err != nil {
			return nil, fmt.Errorf("drug #%d %q: %w", i+1, seed.Name, err)
		}
		latest[in.Name] = id
	}

	return c, nil
}
