package recon

import (
	"errors"
	"fmt"
	"math"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/cleared-dev/recon/internal/model"
)

// Config holds the matching options of the engine.
type Config struct {
	ExactDateToleranceDays int              `yaml:"exact_date_tolerance_days" json:"exact_date_tolerance_days" envconfig:"EXACT_DATE_TOLERANCE_DAYS"`
	ExactAmountEpsilon     float64          `yaml:"exact_amount_epsilon" json:"exact_amount_epsilon" envconfig:"EXACT_AMOUNT_EPSILON"`
	FeeMinRatio            float64          `yaml:"fee_min_ratio" json:"fee_min_ratio" envconfig:"FEE_MIN_RATIO"`
	FuzzyDateToleranceDays int              `yaml:"fuzzy_date_tolerance_days" json:"fuzzy_date_tolerance_days" envconfig:"FUZZY_DATE_TOLERANCE_DAYS"`
	FuzzyScoreThreshold    float64          `yaml:"fuzzy_score_threshold" json:"fuzzy_score_threshold" envconfig:"FUZZY_SCORE_THRESHOLD"`
	FuzzyDateWeight        float64          `yaml:"fuzzy_date_weight" json:"fuzzy_date_weight" envconfig:"FUZZY_DATE_WEIGHT"`
	FuzzyDescriptionWeight float64          `yaml:"fuzzy_description_weight" json:"fuzzy_description_weight" envconfig:"FUZZY_DESCRIPTION_WEIGHT"`
	DisabledStrategies     []model.Strategy `yaml:"disabled_strategies,omitempty" json:"disabled_strategies,omitempty" envconfig:"DISABLED_STRATEGIES"`
}

// DefaultConfig returns the stock matching options.
func DefaultConfig() Config {
	return Config{
		ExactDateToleranceDays: 5,
		ExactAmountEpsilon:     0.01,
		FeeMinRatio:            0.96,
		FuzzyDateToleranceDays: 10,
		FuzzyScoreThreshold:    0.6,
		FuzzyDateWeight:        0.4,
		FuzzyDescriptionWeight: 0.6,
	}
}

// Validate checks every option and returns a *ConfigurationError for the first bad one.
func (c Config) Validate() error {
	for _, opt := range []string{"exact_amount_epsilon", "fee_min_ratio", "fuzzy_score_threshold", "fuzzy_date_weight", "fuzzy_description_weight"} {
		v := c.valueOf(opt).(float64)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &ConfigurationError{Option: opt, Value: v, Reason: "must be a finite number"}
		}
	}

	err := validation.ValidateStruct(&c,
		validation.Field(&c.ExactDateToleranceDays, validation.Min(0)),
		validation.Field(&c.ExactAmountEpsilon, validation.Min(0.0)),
		validation.Field(&c.FeeMinRatio, validation.Required, validation.Min(0.0).Exclusive(), validation.Max(1.0)),
		validation.Field(&c.FuzzyDateToleranceDays, validation.Min(0)),
		validation.Field(&c.FuzzyScoreThreshold, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.FuzzyDateWeight, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.FuzzyDescriptionWeight, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.DisabledStrategies, validation.Each(validation.In(model.StrategyExact, model.StrategyFee, model.StrategyFuzzy))),
	)
	if err != nil {
		return c.configurationError(err)
	}

	if c.FuzzyDateToleranceDays < c.ExactDateToleranceDays {
		return &ConfigurationError{
			Option: "fuzzy_date_tolerance_days",
			Value:  c.FuzzyDateToleranceDays,
			Reason: fmt.Sprintf("must be at least exact_date_tolerance_days (%d)", c.ExactDateToleranceDays),
		}
	}
	if c.FuzzyDateWeight+c.FuzzyDescriptionWeight <= 0 {
		return &ConfigurationError{
			Option: "fuzzy_date_weight",
			Value:  c.FuzzyDateWeight,
			Reason: "fuzzy weights must have a positive sum",
		}
	}
	return nil
}

// Enabled reports whether strategy s takes part in matching.
func (c Config) Enabled(s model.Strategy) bool {
	for _, d := range c.DisabledStrategies {
		if d == s {
			return false
		}
	}
	return true
}

// widestWindow is the largest candidate window any enabled strategy can query.
func (c Config) widestWindow() int {
	w := 0
	if c.Enabled(model.StrategyExact) || c.Enabled(model.StrategyFee) {
		w = c.ExactDateToleranceDays
	}
	if c.Enabled(model.StrategyFuzzy) && c.FuzzyDateToleranceDays > w {
		w = c.FuzzyDateToleranceDays
	}
	return w
}

func (c Config) configurationError(err error) error {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return &ConfigurationError{Reason: err.Error(), Err: err}
	}

	keys := make([]string, 0, len(verrs))
	for k := range verrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	first := keys[0]

	return &ConfigurationError{
		Option: first,
		Value:  c.valueOf(first),
		Reason: verrs[first].Error(),
		Err:    err,
	}
}

func (c Config) valueOf(option string) any {
	switch option {
	case "exact_date_tolerance_days":
		return c.ExactDateToleranceDays
	case "exact_amount_epsilon":
		return c.ExactAmountEpsilon
	case "fee_min_ratio":
		return c.FeeMinRatio
	case "fuzzy_date_tolerance_days":
		return c.FuzzyDateToleranceDays
	case "fuzzy_score_threshold":
		return c.FuzzyScoreThreshold
	case "fuzzy_date_weight":
		return c.FuzzyDateWeight
	case "fuzzy_description_weight":
		return c.FuzzyDescriptionWeight
	case "disabled_strategies":
		return c.DisabledStrategies
	}
	return nil
}
