package entities

// Efficacy and severity bounds accepted by the catalog
const (
	MinEfficacy = 1
	MaxEfficacy = 10
	MinSeverity = 1
	MaxSeverity = 3
)

// Drug is one catalog record. Identity, substitutes and side effects are fixed at
// creation; only indication efficacies and ReplacedBy change afterwards.
type Drug struct {
	ID                DrugID               `json:"id"`
	Name              string               `json:"name"`
	Indications       map[string]int       `json:"indications"`
	EfficacyHistogram [MaxEfficacy + 1]int `json:"-"` // [L] = indications with efficacy >= L, index 0 unused
	Substitutes       []DrugID             `json:"substitutes"`
	ReplacedBy        []DrugID             `json:"replacedBy"`
	SideEffects       []SideEffect         `json:"sideEffects"`
	RiskScore         float64              `json:"riskScore"`
	WorstEffectName   string               `json:"worstSideEffect,omitempty"`
	HasWorstEffect    bool                 `json:"-"`
}

// SideEffect is an adverse effect with its severity level (1..3) and frequency
type SideEffect struct {
	Effect    string  `json:"effect" validate:"required,max=100,label"`
	Severity  int     `json:"severity"`
	Frequency float64 `json:"frequency"`
}

// Indication pairs a disease with the drug's efficacy against it (1..10)
type Indication struct {
	Disease  string `json:"disease" validate:"required,max=100,label"`
	Efficacy int    `json:"efficacy"`
}

// DrugInput is what a caller hands to the catalog when registering a drug
type DrugInput struct {
	Name        string       `json:"name" validate:"required,max=200,label"`
	Indications []Indication `json:"indications" validate:"max=100,dive"`
	Substitutes []DrugID     `json:"substitutes" validate:"max=1000,dive,drugid"`
	SideEffects []SideEffect `json:"side_effects" validate:"max=100,dive"`
}

// EffectPair is one (drug, side effect) entry of the frequency index
type EffectPair struct {
	DrugID     DrugID  `json:"drugId"`
	DrugName   string  `json:"drugName"`
	EffectName string  `json:"effect"`
	Frequency  float64 `json:"frequency"`
}
