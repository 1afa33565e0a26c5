// Package catalog is the in-memory analytical index over a drug catalog.
//
// A Catalog owns four structures that are kept current on every insertion:
//   - the entity store: drugs in an arena indexed by their sequential DrugID
//   - the substitute graph: "can replace" edges and their reverse view
//   - the efficacy leaderboard: best drug per disease, max-heap with lazy deletion
//   - the frequency index: side effects ordered by frequency for range queries
//
// Edges may only point at drugs that already exist, so the substitute graph is a
// DAG by construction and never needs cycle detection.
//
// A Catalog is not safe for concurrent use. Callers that share one across
// goroutines must serialize AddDrug and UpdateBestIndication against each other
// and against readers (see package data).
package catalog

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/giygas/pharmdb/entities"
)

// DefaultMaxSteps is the hop limit used by callers that do not pick one
const DefaultMaxSteps = 2

// Sentinel errors returned by AddDrug and UpdateBestIndication.
var (
	// ErrReferentialIntegrity matches any *ReferentialIntegrityError.
	ErrReferentialIntegrity = errors.New("catalog: substitute must reference an existing drug")

	// ErrInvalidIndication is returned for efficacies outside 1..10.
	ErrInvalidIndication = errors.New("catalog: invalid indication")

	// ErrInvalidSideEffect is returned for severities outside 1..3 and
	// negative or non-finite frequencies.
	ErrInvalidSideEffect = errors.New("catalog: invalid side effect")
)

// ReferentialIntegrityError reports a substitute id that was not in the catalog
// when the drug declaring it was inserted.
type ReferentialIntegrityError struct {
	Drug       string
	Substitute entities.DrugID
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("catalog: drug %q declares unknown substitute %s", e.Drug, e.Substitute)
}

// Is lets errors.Is(err, ErrReferentialIntegrity) match.
func (e *ReferentialIntegrityError) Is(target error) bool {
	return target == ErrReferentialIntegrity
}

// Catalog holds every drug and the auxiliary structures built from them
type Catalog struct {
	drugs       []*entities.Drug // drugs[id-1]
	byName      map[string][]entities.DrugID
	graph       *SubstituteGraph
	leaderboard *Leaderboard
	frequencies *FrequencyIndex
}

// Stats summarizes the size of each structure
type Stats struct {
	Drugs                 int `json:"drugs"`
	SubstituteEdges       int `json:"substituteEdges"`
	Diseases              int `json:"diseases"`
	SideEffects           int `json:"sideEffects"`
	DistinctFrequencies   int `json:"distinctFrequencies"`
	PendingLeaderEntries  int `json:"pendingLeaderboardEntries"`
	StaleEntriesDiscarded int `json:"staleEntriesDiscarded"`
}

// New returns an empty catalog. Catalogs share no state with each other.
func New() *Catalog {
	return &Catalog{
		drugs:       make([]*entities.Drug, 0),
		byName:      make(map[string][]entities.DrugID),
		graph:       NewSubstituteGraph(),
		leaderboard: NewLeaderboard(),
		frequencies: NewFrequencyIndex(),
	}
}

// AddDrug registers a drug and returns its id.
//
// Every input is checked before anything is written, so a failed call leaves
// the catalog exactly as it was. Declared substitutes must already exist;
// duplicates among them are ignored. A disease listed twice keeps its last
// efficacy.
func (c *Catalog) AddDrug(in entities.DrugInput) (entities.DrugID, error) {
	if err := checkIndications(in.Indications); err != nil {
		return 0, err
	}
	if err := checkSideEffects(in.SideEffects); err != nil {
		return 0, err
	}

	substitutes := make([]entities.DrugID, 0, len(in.Substitutes))
	for _, sub := range in.Substitutes {
		if _, ok := c.lookup(sub); !ok {
			return 0, &ReferentialIntegrityError{Drug: in.Name, Substitute: sub}
		}
		if !slices.Contains(substitutes, sub) {
			substitutes = append(substitutes, sub)
		}
	}

	id := entities.DrugID(len(c.drugs) + 1)
	drug := newDrug(id, in.Name, in.Indications, in.SideEffects)

	c.drugs = append(c.drugs, drug)
	c.byName[drug.Name] = append(c.byName[drug.Name], id)
	c.graph.AddVertex(id, substitutes)

	for _, disease := range indicationOrder(in.Indications) {
		c.leaderboard.Record(disease, drug.Indications[disease], id)
	}

	for _, effect := range drug.SideEffects {
		c.frequencies.Add(entities.EffectPair{
			DrugID:     id,
			DrugName:   drug.Name,
			EffectName: effect.Effect,
			Frequency:  effect.Frequency,
		})
	}

	return id, nil
}

// lookup resolves an id against the arena
func (c *Catalog) lookup(id entities.DrugID) (*entities.Drug, bool) {
	if id <= 0 || int(id) > len(c.drugs) {
		return nil, false
	}
	return c.drugs[id-1], true
}

// Drug returns a copy of the stored record
func (c *Catalog) Drug(id entities.DrugID) (entities.Drug, bool) {
	drug, ok := c.lookup(id)
	if !ok {
		return entities.Drug{}, false
	}

	view := *drug
	view.Indications = make(map[string]int, len(drug.Indications))
	for disease, efficacy := range drug.Indications {
		view.Indications[disease] = efficacy
	}
	view.SideEffects = slices.Clone(drug.SideEffects)
	view.Substitutes = slices.Clone(c.graph.Substitutes(id))
	view.ReplacedBy = slices.Clone(c.graph.ReplacedBy(id))
	return view, true
}

// DrugIDsByName returns every drug registered under name, oldest first
func (c *Catalog) DrugIDsByName(name string) []entities.DrugID {
	return slices.Clone(c.byName[name])
}

// Len returns the number of drugs
func (c *Catalog) Len() int {
	return len(c.drugs)
}

// RiskScore returns the precomputed risk score, 0 for unknown ids
func (c *Catalog) RiskScore(id entities.DrugID) float64 {
	drug, ok := c.lookup(id)
	if !ok {
		return 0.0
	}
	return drug.RiskScore
}

// NumberOfIndications counts indications with efficacy >= minEfficacy.
// Unknown ids and thresholds outside 1..10 yield 0.
func (c *Catalog) NumberOfIndications(id entities.DrugID, minEfficacy int) int {
	drug, ok := c.lookup(id)
	if !ok || minEfficacy < entities.MinEfficacy || minEfficacy > entities.MaxEfficacy {
		return 0
	}
	return drug.EfficacyHistogram[minEfficacy]
}

// WorstSideEffect returns the name picked at insertion, see worstEffect
func (c *Catalog) WorstSideEffect(id entities.DrugID) (string, bool) {
	drug, ok := c.lookup(id)
	if !ok || !drug.HasWorstEffect {
		return "", false
	}
	return drug.WorstEffectName, true
}

// NumberOfAlternativeDrugs counts drugs that can directly replace id
func (c *Catalog) NumberOfAlternativeDrugs(id entities.DrugID) int {
	if _, ok := c.lookup(id); !ok {
		return 0
	}
	return len(c.graph.ReplacedBy(id))
}

// FindBestAlternative returns the lowest-risk drug reachable from id within
// maxSteps replacements (id itself included). Ties go to the smaller id.
func (c *Catalog) FindBestAlternative(id entities.DrugID, maxSteps int) (entities.DrugID, bool) {
	if _, ok := c.lookup(id); !ok {
		return 0, false
	}
	return c.graph.BestWithin(id, maxSteps, c.RiskScore), true
}

// LongestAlternativeList returns the longest chain where each drug can directly
// replace the previous one. Among equally long chains the smallest id sequence wins.
func (c *Catalog) LongestAlternativeList() []entities.DrugID {
	return c.graph.LongestChain()
}

// FindBestDrugForIndication returns the leaderboard incumbent for disease
func (c *Catalog) FindBestDrugForIndication(disease string) (entities.DrugID, bool) {
	id, _, ok := c.leaderboard.Best(disease)
	return id, ok
}

// UpdateBestIndication changes the efficacy of the current best drug for disease
// and re-elects the incumbent, discarding stale heap entries on the way.
// Unknown diseases are ignored.
func (c *Catalog) UpdateBestIndication(disease string, efficacy int) error {
	incumbent, _, ok := c.leaderboard.Best(disease)
	if !ok {
		return nil
	}
	if efficacy < entities.MinEfficacy || efficacy > entities.MaxEfficacy {
		return fmt.Errorf("%w: efficacy %d for %q outside %d..%d",
			ErrInvalidIndication, efficacy, disease, entities.MinEfficacy, entities.MaxEfficacy)
	}

	drug := c.drugs[incumbent-1]
	setIndication(drug, disease, efficacy)

	c.leaderboard.push(disease, efficacy, incumbent)
	c.leaderboard.Settle(disease, func(id entities.DrugID) (int, bool) {
		d, ok := c.lookup(id)
		if !ok {
			return 0, false
		}
		live, ok := d.Indications[disease]
		return live, ok
	})

	return nil
}

// CountDrugsWithSideEffectFrequency counts (drug, effect) pairs whose frequency
// lies in [minFreq, maxFreq]
func (c *Catalog) CountDrugsWithSideEffectFrequency(minFreq, maxFreq float64) int {
	return c.frequencies.Count(minFreq, maxFreq)
}

// ListDrugsWithSideEffectFrequency lists (drug, effect) pairs whose frequency
// lies in [minFreq, maxFreq], in ascending frequency order
func (c *Catalog) ListDrugsWithSideEffectFrequency(minFreq, maxFreq float64) []entities.EffectPair {
	return c.frequencies.List(minFreq, maxFreq)
}

// Stats reports structure sizes
func (c *Catalog) Stats() Stats {
	return Stats{
		Drugs:                 len(c.drugs),
		SubstituteEdges:       c.graph.Edges(),
		Diseases:              c.leaderboard.Diseases(),
		SideEffects:           c.frequencies.Len(),
		DistinctFrequencies:   c.frequencies.Keys(),
		PendingLeaderEntries:  c.leaderboard.Pending(),
		StaleEntriesDiscarded: c.leaderboard.Discarded(),
	}
}

func checkIndications(indications []entities.Indication) error {
	for _, ind := range indications {
		if ind.Efficacy < entities.MinEfficacy || ind.Efficacy > entities.MaxEfficacy {
			return fmt.Errorf("%w: efficacy %d for %q outside %d..%d",
				ErrInvalidIndication, ind.Efficacy, ind.Disease, entities.MinEfficacy, entities.MaxEfficacy)
		}
	}
	return nil
}

func checkSideEffects(effects []entities.SideEffect) error {
	for _, se := range effects {
		if se.Severity < entities.MinSeverity || se.Severity > entities.MaxSeverity {
			return fmt.Errorf("%w: severity %d for %q outside %d..%d",
				ErrInvalidSideEffect, se.Severity, se.Effect, entities.MinSeverity, entities.MaxSeverity)
		}
		if math.IsNaN(se.Frequency) || math.IsInf(se.Frequency, 0) || se.Frequency < 0 {
			return fmt.Errorf("%w: frequency %v for %q must be a finite non-negative number",
				ErrInvalidSideEffect, se.Frequency, se.Effect)
		}
	}
	return nil
}

// indicationOrder lists each disease once, in order of first appearance
func indicationOrder(indications []entities.Indication) []string {
	seen := make(map[string]bool, len(indications))
	order := make([]string, 0, len(indications))
	for _, ind := range indications {
		if !seen[ind.Disease] {
			seen[ind.Disease] = true
			order = append(order, ind.Disease)
		}
	}
	return order
}
