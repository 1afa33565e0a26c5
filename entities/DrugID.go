package entities

import (
	"fmt"
	"strconv"
)

// DrugID identifies a drug inside one catalog. IDs are handed out sequentially
// starting at 1, so the numeric value doubles as the insertion order.
// The zero value never names a drug.
type DrugID int

// String renders the id as D0001, D0002, ... (wider once past 9999)
func (id DrugID) String() string {
	return fmt.Sprintf("D%04d", int(id))
}

// Valid reports whether the id could have been issued by a catalog
func (id DrugID) Valid() bool {
	return id > 0
}

// ParseDrugID parses the textual form produced by String. Only the canonical
// spelling is accepted, so every drug has exactly one id string.
func ParseDrugID(s string) (DrugID, error) {
	if len(s) < 2 || s[0] != 'D' {
		return 0, fmt.Errorf("invalid drug id %q: expected format D0001", s)
	}

	digits := s[1:]
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, fmt.Errorf("invalid drug id %q: expected digits after D", s)
		}
	}

	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("invalid drug id %q: %w", s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid drug id %q: sequence must be positive", s)
	}

	id := DrugID(n)
	if id.String() != s {
		return 0, fmt.Errorf("invalid drug id %q: expected %s", s, id)
	}
	return id, nil
}

func (id DrugID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *DrugID) UnmarshalText(text []byte) error {
	parsed, err := ParseDrugID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
