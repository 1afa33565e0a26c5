package loader

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/giygas/pharmdb/catalog"
	"github.com/giygas/pharmdb/entities"
	"github.com/giygas/pharmdb/logging"
	"github.com/giygas/pharmdb/validation"
)

func init() {
	logging.InitLogger(logging.Options{Level: slog.LevelError})
}

const painkillersSeed = `{
  "drugs": [
    {"name": "Apap", "indications": [{"disease": "headache", "efficacy": 8}],
     "side_effects": [{"effect": "nausea", "severity": 2, "frequency": 2.0}]},
    {"name": "Ibuprom", "indications": [{"disease": "headache", "efficacy": 7}, {"disease": "fever", "efficacy": 8}],
     "side_effects": [{"effect": "stomach ache", "severity": 2, "frequency": 10.0}]},
    {"name": "Nurofen", "indications": [{"disease": "headache", "efficacy": 8}],
     "substitutes": ["Apap", "Ibuprom"],
     "side_effects": [{"effect": "drowsiness", "severity": 1, "frequency": 3.0}]}
  ]
}`

func writeSeed(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("Failed to write seed: %v", err)
	}
	return path
}

func newLoader(source string, opts ...Option) *Loader {
	return New(source, validation.NewDataValidator(), opts...)
}

func mustLoad(t *testing.T, l *Loader) *catalog.Catalog {
	t.Helper()
	c, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return c
}

func TestLoadFromFile(t *testing.T) {
	c := mustLoad(t, newLoader(writeSeed(t, []byte(painkillersSeed))))

	if c.Len() != 3 {
		t.Fatalf("Expected 3 drugs, got %d", c.Len())
	}
	if n := c.NumberOfAlternativeDrugs(1); n != 1 {
		t.Errorf("Expected 1 alternative for Apap, got %d", n)
	}
	if n := c.NumberOfAlternativeDrugs(2); n != 1 {
		t.Errorf("Expected 1 alternative for Ibuprom, got %d", n)
	}
	if got := c.LongestAlternativeList(); !slices.Equal(got, []entities.DrugID{1, 3}) {
		t.Errorf("Expected [D0001 D0003], got %v", got)
	}

	best, ok := c.FindBestDrugForIndication("headache")
	if !ok || best != 3 {
		t.Errorf("Expected D0003 for headache, got %s (%v)", best, ok)
	}

	drug, ok := c.Drug(3)
	if !ok {
		t.Fatal("Expected D0003 to exist")
	}
	if !slices.Equal(drug.Substitutes, []entities.DrugID{1, 2}) {
		t.Errorf("Expected substitutes [D0001 D0002], got %v", drug.Substitutes)
	}
}

func TestLoadFromHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if accept := r.Header.Get("Accept"); accept != "application/json" {
			t.Errorf("Expected Accept application/json, got %q", accept)
		}
		_, _ = w.Write([]byte(painkillersSeed))
	}))
	defer srv.Close()

	l := newLoader(srv.URL+"/catalog.json", WithHTTPClient(srv.Client()))
	if l.Source() != srv.URL+"/catalog.json" {
		t.Errorf("Unexpected source %q", l.Source())
	}

	if c := mustLoad(t, l); c.Len() != 3 {
		t.Errorf("Expected 3 drugs, got %d", c.Len())
	}
}

func TestLoadFromHTTP_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newLoader(srv.URL, WithHTTPClient(srv.Client())).Load(context.Background())
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("Expected an error naming status 404, got %v", err)
	}
}

func TestLoadFromHTTP_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(painkillersSeed))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newLoader(srv.URL, WithHTTPClient(srv.Client())).Load(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestLoadDecodesLatin1(t *testing.T) {
	// 0xE9 and 0xE8 are é and è in ISO-8859-1 and invalid on their own in UTF-8
	seed := []byte(`{"drugs":[{"name":"Pyralgin` + "\xe9" + `","indications":[{"disease":"fi` + "\xe8" + `vre","efficacy":6}]}]}`)

	c := mustLoad(t, newLoader(writeSeed(t, seed)))

	if ids := c.DrugIDsByName("Pyralgin\u00e9"); !slices.Equal(ids, []entities.DrugID{1}) {
		t.Errorf("Expected the decoded name to resolve to D0001, got %v", ids)
	}
	if best, ok := c.FindBestDrugForIndication("fi\u00e8vre"); !ok || best != 1 {
		t.Errorf("Expected D0001 for the decoded disease, got %s (%v)", best, ok)
	}
}

func TestLoadNormalizesNames(t *testing.T) {
	seed := []byte(`{"drugs":[
		{"name":"Pyralginé"},
		{"name":"Metafen","substitutes":["Pyralginé"]}
	]}`)

	c := mustLoad(t, newLoader(writeSeed(t, seed)))

	if n := c.NumberOfAlternativeDrugs(1); n != 1 {
		t.Errorf("Expected the substitute to resolve across normalization forms, got %d alternatives", n)
	}
}

func TestLoadStripsByteOrderMark(t *testing.T) {
	seed := append([]byte("\xef\xbb\xbf"), []byte(painkillersSeed)...)

	if c := mustLoad(t, newLoader(writeSeed(t, seed))); c.Len() != 3 {
		t.Errorf("Expected 3 drugs, got %d", c.Len())
	}
}

func TestBuild_SubstituteResolvesToLatestEarlierName(t *testing.T) {
	doc := Document{Drugs: []SeedDrug{
		{Name: "Apap"},
		{Name: "Apap"},
		{Name: "Nurofen", Substitutes: []string{"Apap"}},
		{Name: "Apap"},
	}}

	c, err := newLoader("unused").Build(doc)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	drug, _ := c.Drug(3)
	if !slices.Equal(drug.Substitutes, []entities.DrugID{2}) {
		t.Errorf("Expected substitute D0002, got %v", drug.Substitutes)
	}
	if ids := c.DrugIDsByName("Apap"); !slices.Equal(ids, []entities.DrugID{1, 2, 4}) {
		t.Errorf("Expected [D0001 D0002 D0004], got %v", ids)
	}
}

func TestBuild_Failures(t *testing.T) {
	tests := []struct {
		name   string
		doc    Document
		target error
	}{
		{
			name:   "unknown substitute",
			doc:    Document{Drugs: []SeedDrug{{Name: "Nurofen", Substitutes: []string{"Apap"}}}},
			target: catalog.ErrReferentialIntegrity,
		},
		{
			name: "forward reference",
			doc: Document{Drugs: []SeedDrug{
				{Name: "Nurofen", Substitutes: []string{"Apap"}},
				{Name: "Apap"},
			}},
			target: catalog.ErrReferentialIntegrity,
		},
		{
			name:   "efficacy out of range",
			doc:    Document{Drugs: []SeedDrug{{Name: "Apap", Indications: []entities.Indication{{Disease: "flu", Efficacy: 11}}}}},
			target: catalog.ErrInvalidIndication,
		},
		{
			name:   "severity out of range",
			doc:    Document{Drugs: []SeedDrug{{Name: "Apap", SideEffects: []entities.SideEffect{{Effect: "rash", Severity: 4, Frequency: 1}}}}},
			target: catalog.ErrInvalidSideEffect,
		},
		{
			name:   "empty name",
			doc:    Document{Drugs: []SeedDrug{{Name: " "}}},
			target: validation.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := newLoader("unused").Build(tt.doc)
			if c != nil {
				t.Error("Expected no catalog on failure")
			}
			if !errors.Is(err, tt.target) {
				t.Errorf("Expected %v, got %v", tt.target, err)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := newLoader("").Load(context.Background())
	if !errors.Is(err, ErrEmptySource) {
		t.Errorf("Expected ErrEmptySource, got %v", err)
	}

	_, err = newLoader(filepath.Join(t.TempDir(), "missing.json")).Load(context.Background())
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected os.ErrNotExist, got %v", err)
	}

	_, err = newLoader(writeSeed(t, []byte(`{"drugs": [`))).Load(context.Background())
	if err == nil || !strings.Contains(err.Error(), "failed to parse seed") {
		t.Errorf("Expected a parse error, got %v", err)
	}
}

func TestLoadEmptyDocument(t *testing.T) {
	c := mustLoad(t, newLoader(writeSeed(t, []byte(`{"drugs": []}`))))

	if c.Len() != 0 {
		t.Errorf("Expected an empty catalog, got %d drugs", c.Len())
	}
	if got := c.LongestAlternativeList(); got == nil || len(got) != 0 {
		t.Errorf("Expected a non-nil empty list, got %#v", got)
	}
}
