package catalog

import (
	"slices"

	"github.com/giygas/pharmdb/entities"
)

// newDrug builds a record with its precomputed metrics. Inputs are already validated.
func newDrug(id entities.DrugID, name string, indications []entities.Indication, sideEffects []entities.SideEffect) *entities.Drug {
	drug := &entities.Drug{
		ID:          id,
		Name:        name,
		Indications: make(map[string]int, len(indications)),
		SideEffects: slices.Clone(sideEffects),
	}

	for _, ind := range indications {
		setIndication(drug, ind.Disease, ind.Efficacy)
	}

	drug.RiskScore = riskScore(drug.SideEffects)
	drug.WorstEffectName, drug.HasWorstEffect = worstEffect(drug.SideEffects)

	return drug
}

// setIndication writes the efficacy for disease and keeps the histogram in step
func setIndication(drug *entities.Drug, disease string, efficacy int) {
	if old, ok := drug.Indications[disease]; ok {
		for level := entities.MinEfficacy; level <= old; level++ {
			drug.EfficacyHistogram[level]--
		}
	}

	drug.Indications[disease] = efficacy
	for level := entities.MinEfficacy; level <= efficacy; level++ {
		drug.EfficacyHistogram[level]++
	}
}

func riskScore(effects []entities.SideEffect) float64 {
	score := 0.0
	for _, se := range effects {
		score += float64(se.Severity) * se.Frequency
	}
	return score
}

// worstEffect picks, among effects at the highest severity, the first one whose
// frequency is strictly above every earlier one at that severity. The running
// maximum starts at zero, so an effect with frequency 0 is never chosen.
func worstEffect(effects []entities.SideEffect) (string, bool) {
	maxSeverity := 0
	for _, se := range effects {
		if se.Severity > maxSeverity {
			maxSeverity = se.Severity
		}
	}

	var (
		name  string
		found bool
		worst float64
	)
	for _, se := range effects {
		if se.Severity == maxSeverity && se.Frequency > worst {
			worst = se.Frequency
			name = se.Effect
			found = true
		}
	}

	return name, found
}
