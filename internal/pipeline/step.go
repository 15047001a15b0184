// Package pipeline models the cleaning steps recorded against a dataframe
// in the kernel and exports them as a standalone Python function. Steps
// arrive as JSON from the kernel-side tracker; this side only describes
// and renders them, it never executes them.
package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is returned when a pipeline reply cannot be parsed.
var ErrMalformed = errors.New("malformed pipeline reply")

// Kind discriminates the cleaning step families.
type Kind string

const (
	KindOutlier     Kind = "outlier_removal"
	KindNull        Kind = "null_removal"
	KindTypeConvert Kind = "type_conversion"
	KindRBM         Kind = "rbm_impute"
)

// Method names within a family. They mirror the kernel-side enum names.
const (
	MethodNone        = "NONE"
	MethodMean        = "MEAN"
	MethodMedian      = "MEDIAN"
	MethodMode        = "MODE"
	MethodModeNumeric = "MODE_NUMERIC"
	MethodNearestCut  = "NEAREST_CUT"
	MethodSample      = "SAMPLE"
	MethodNull        = "NULL"
	MethodDrop        = "DROP"
	MethodCast        = "CAST"
)

// Human-readable method labels, used in descriptions and generated code
// comments.
var methodLabels = map[Kind]map[string]string{
	KindOutlier: {
		MethodNone:        "Do Nothing",
		MethodMean:        "Replace with Mean (excluding outliers)",
		MethodMedian:      "Replace with Median (excluding outliers)",
		MethodNearestCut:  "Replace with Nearest Cut (Clip)",
		MethodModeNumeric: "Replace with Mode",
		MethodSample:      "Sample from Column Distribution",
		MethodNull:        "Replace with Null",
		MethodDrop:        "Drop Rows",
	},
	KindNull: {
		MethodNone:        "Do Nothing",
		MethodMean:        "Replace with Mean",
		MethodMedian:      "Replace with Median",
		MethodMode:        "Replace with Most Common Value",
		MethodModeNumeric: "Replace with Mode",
		MethodSample:      "Sample from Column Distribution",
		MethodDrop:        "Drop Rows",
	},
	KindTypeConvert: {
		MethodNone:   "Do Nothing",
		MethodCast:   "Try to Cast",
		MethodMean:   "Replace with Mean",
		MethodMedian: "Replace with Median",
		MethodMode:   "Replace with Most Common Value",
		MethodSample: "Sample from Column Distribution",
		MethodDrop:   "Drop Rows",
	},
}

// Step is one recorded cleaning operation. Fields beyond Kind and Method
// apply per family: Column/LowCut/HighCut for outliers, Column for null
// removal, Column/DataType for type conversion, the column lists for RBM
// imputation.
type Step struct {
	Kind               Kind     `json:"kind"`
	Method             string   `json:"method"`
	Column             string   `json:"colname,omitempty"`
	LowCut             float64  `json:"low_cut,omitempty"`
	HighCut            float64  `json:"high_cut,omitempty"`
	DataType           string   `json:"data_type,omitempty"`
	NumericalColumns   []string `json:"numerical_columns,omitempty"`
	CategoricalColumns []string `json:"categorical_columns,omitempty"`
}

// Validate checks that the step's kind and method are known and its
// required fields are present.
func (s Step) Validate() error {
	switch s.Kind {
	case KindOutlier, KindNull, KindTypeConvert:
		if s.Column == "" {
			return fmt.Errorf("%s step without a column", s.Kind)
		}
		if _, ok := methodLabels[s.Kind][s.Method]; !ok {
			return fmt.Errorf("unknown %s method %q", s.Kind, s.Method)
		}
		if s.Kind == KindTypeConvert && s.DataType == "" {
			return errors.New("type conversion step without a target type")
		}
	case KindRBM:
		if len(s.NumericalColumns)+len(s.CategoricalColumns) == 0 {
			return errors.New("rbm step without columns")
		}
	default:
		return fmt.Errorf("unknown step kind %q", s.Kind)
	}
	return nil
}

// Description renders the one-line human summary shown in the panel and as
// the comment above the step's generated code.
func (s Step) Description() string {
	switch s.Kind {
	case KindOutlier:
		return fmt.Sprintf("On %s, for values outside %s to %s, %s",
			s.Column, pyNumber(s.LowCut), pyNumber(s.HighCut), methodLabels[s.Kind][s.Method])
	case KindNull:
		return fmt.Sprintf("On %s, for missing values, %s",
			s.Column, methodLabels[s.Kind][s.Method])
	case KindTypeConvert:
		return fmt.Sprintf("On %s, for non %s types, %s",
			s.Column, s.DataType, methodLabels[s.Kind][s.Method])
	case KindRBM:
		return fmt.Sprintf("On %d columns, impute values, with an RBM",
			len(s.NumericalColumns)+len(s.CategoricalColumns))
	}
	return string(s.Kind)
}

// ParseSteps decodes the stream text of a pipeline metadata reply. Invalid
// steps fail the whole parse; a half-understood pipeline must not export.
func ParseSteps(text string) ([]Step, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || trimmed == "undefined" || trimmed == "None" {
		return nil, ErrMalformed
	}

	var steps []Step
	if err := json.Unmarshal([]byte(trimmed), &steps); err != nil {
		return nil, ErrMalformed
	}
	for _, s := range steps {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	return steps, nil
}
