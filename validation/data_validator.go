// Package validation provides input validation for the drug catalog API.
package validation

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/giygas/pharmdb/catalog"
	"github.com/giygas/pharmdb/entities"
	"github.com/giygas/pharmdb/interfaces"
	"github.com/giygas/pharmdb/logging"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
)

// ErrInvalidInput wraps every validation failure so callers can map it to 400
var ErrInvalidInput = errors.New("invalid input")

// maxNameLen matches the longest name a drug submission may carry
const maxNameLen = 200

var (
	// Labels may hold any printable text except markup brackets
	labelRegex = regexp.MustCompile(`^[^\p{C}<>]+$`)

	// Script injection patterns, matched case-insensitively
	dangerousPatterns = []string{
		"javascript:", "vbscript:", "data:text/html", "livescript:",
		"onload=", "onerror=", "onclick=", "onmouseover=", "onfocus=", "onblur=",
		"expression(", "@import",
	}
)

// DataValidatorImpl implements the interfaces.DataValidator interface
type DataValidatorImpl struct{}

// NewDataValidator creates a new data validator
func NewDataValidator() interfaces.DataValidator {
	return &DataValidatorImpl{}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// drugValidate checks the struct tags on entities.DrugInput
var drugValidate *validator.Validate

func init() {
	drugValidate = validator.New()
	_ = drugValidate.RegisterValidation("drugid", validateDrugID)
	_ = drugValidate.RegisterValidation("label", validateLabel)
}

func validateDrugID(fl validator.FieldLevel) bool {
	return entities.DrugID(fl.Field().Int()).Valid()
}

func validateLabel(fl validator.FieldLevel) bool {
	return checkLabel(fl.Field().String()) == nil
}

// checkLabel holds the character rules shared by stored names and labels and
// by the path parameters used to look them up, so anything that can be stored
// can also be queried.
func checkLabel(s string) error {
	if !utf8.ValidString(s) {
		return invalid("input is not valid UTF-8")
	}

	if !labelRegex.MatchString(s) {
		return invalid("input contains control characters or markup")
	}

	lowerInput := strings.ToLower(s)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowerInput, pattern) {
			return invalid("input contains potentially dangerous content")
		}
	}
	return nil
}

// ValidateDrugInput NFC-normalizes the name and labels of a drug submission
// in place, then checks its shape. Value ranges are checked by the catalog.
func (v *DataValidatorImpl) ValidateDrugInput(in *entities.DrugInput) error {
	if in == nil {
		return invalid("drug is nil")
	}

	in.Name = NormalizeLabel(in.Name)
	for i := range in.Indications {
		in.Indications[i].Disease = NormalizeLabel(in.Indications[i].Disease)
	}
	for i := range in.SideEffects {
		in.SideEffects[i].Effect = NormalizeLabel(in.SideEffects[i].Effect)
	}

	if err := drugValidate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return invalid("%s", describeFieldError(fieldErrs[0]))
		}
		return invalid("%v", err)
	}
	return nil
}

// describeFieldError turns the first failed tag into a client-facing message
func describeFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "DrugInput.")

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s cannot be empty", field)
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("too many %s: %d (max %s)", field, reflect.ValueOf(fe.Value()).Len(), fe.Param())
		}
		return fmt.Sprintf("%s too long: maximum %s characters", field, fe.Param())
	case "drugid":
		return fmt.Sprintf("%s is not a valid drug id", field)
	case "label":
		return fmt.Sprintf("%s contains control characters, markup or script content", field)
	}
	return fmt.Sprintf("%s failed %q validation", field, fe.Tag())
}

// NormalizeLabel trims surrounding space and converts to Unicode NFC, so the
// same name typed with composed or decomposed accents maps to one key.
func NormalizeLabel(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// ReportDataQuality generates a data quality report for a catalog
func (v *DataValidatorImpl) ReportDataQuality(c *catalog.Catalog) *interfaces.DataQualityReport {
	report := &interfaces.DataQualityReport{
		DuplicateNames: []string{},
	}

	seen := make(map[string]bool)
	for id := entities.DrugID(1); int(id) <= c.Len(); id++ {
		drug, ok := c.Drug(id)
		if !ok {
			continue
		}

		if !seen[drug.Name] {
			seen[drug.Name] = true
			if len(c.DrugIDsByName(drug.Name)) > 1 {
				report.DuplicateNames = append(report.DuplicateNames, drug.Name)
			}
		}

		if len(drug.Indications) == 0 {
			report.DrugsWithoutIndications++
		}
		if len(drug.SideEffects) == 0 {
			report.DrugsWithoutSideEffects++
		}
		if len(drug.Substitutes) == 0 && len(drug.ReplacedBy) == 0 {
			report.IsolatedDrugs++
		}
		for _, effect := range drug.SideEffects {
			if effect.Frequency == 0 {
				report.ZeroFrequencySideEffects++
			}
		}
	}

	if len(report.DuplicateNames) > 0 {
		logging.Warn("Duplicate drug names in catalog",
			"count", len(report.DuplicateNames),
			"names", report.DuplicateNames,
		)
	}

	return report
}

// ValidateInput validates a drug name or label used as a path parameter.
// It accepts exactly the text a drug submission may store.
func (v *DataValidatorImpl) ValidateInput(input string) error {
	if strings.TrimSpace(input) == "" {
		return invalid("input cannot be empty")
	}

	if utf8.RuneCountInString(input) > maxNameLen {
		return invalid("input too long: maximum %d characters", maxNameLen)
	}

	return checkLabel(input)
}

// ValidateDrugID validates drug identifiers of the form D0001
func (v *DataValidatorImpl) ValidateDrugID(input string) (entities.DrugID, error) {
	trimmedInput := strings.TrimSpace(input)
	if trimmedInput == "" {
		return 0, invalid("drug id cannot be empty")
	}

	// Reject if original input contained whitespace
	if len(input) != len(trimmedInput) {
		return 0, invalid("drug id contains invalid characters")
	}

	if len(trimmedInput) > 12 {
		return 0, invalid("drug id too long")
	}

	id, err := entities.ParseDrugID(trimmedInput)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return id, nil
}

// ValidateFrequencyRange parses the inclusive bounds of a frequency query.
// Both bounds are required; min greater than max is a valid, empty range.
func (v *DataValidatorImpl) ValidateFrequencyRange(minInput, maxInput string) (float64, float64, error) {
	minFreq, err := parseBound("min", minInput)
	if err != nil {
		return 0, 0, err
	}
	maxFreq, err := parseBound("max", maxInput)
	if err != nil {
		return 0, 0, err
	}
	return minFreq, maxFreq, nil
}

func parseBound(name, input string) (float64, error) {
	if input == "" {
		return 0, invalid("%s is required", name)
	}
	value, err := strconv.ParseFloat(input, 64)
	if err != nil || math.IsNaN(value) {
		return 0, invalid("%s must be a number, got %q", name, input)
	}
	return value, nil
}

// ValidateQueryInt parses an optional integer query value, returning fallback
// when input is empty
func (v *DataValidatorImpl) ValidateQueryInt(name, input string, fallback int) (int, error) {
	if input == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(input)
	if err != nil {
		return 0, invalid("%s must be an integer, got %q", name, input)
	}
	return value, nil
}
