package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

// AppDefaults is the application defaults document (defaults.json)
type AppDefaults struct {
	WindowWidth          int    `yaml:"window_width" json:"window_width" envconfig:"WINDOW_WIDTH" validate:"gte=0"`
	WindowHeight         int    `yaml:"window_height" json:"window_height" envconfig:"WINDOW_HEIGHT" validate:"gte=0"`
	MaxRows              int    `yaml:"max_rows" json:"max_rows" envconfig:"MAX_ROWS" validate:"min=1"`
	MaxColumns           int    `yaml:"max_columns" json:"max_columns" envconfig:"MAX_COLUMNS" validate:"min=1"`
	MaxFileSizeMB        int    `yaml:"max_file_size_mb" json:"max_file_size_mb" envconfig:"MAX_FILE_SIZE_MB" validate:"min=1"`
	DefaultDecimalPlaces int    `yaml:"default_decimal_places" json:"default_decimal_places" envconfig:"DECIMAL_PLACES" validate:"gte=0,lte=15"`
	ChartDPI             int    `yaml:"chart_dpi" json:"chart_dpi" envconfig:"CHART_DPI" validate:"min=50,max=1200"`
	DefaultSaveFormat    string `yaml:"default_save_format" json:"default_save_format" envconfig:"SAVE_FORMAT" validate:"oneof=xlsx csv"`
	HistoryDepth         int    `yaml:"history_depth" json:"history_depth" envconfig:"HISTORY_DEPTH" validate:"min=1,max=100"`
	TimestampFilenames   bool   `yaml:"timestamp_filenames" json:"timestamp_filenames" envconfig:"TIMESTAMP_FILENAMES"`
	CSVBOM               bool   `yaml:"csv_bom" json:"csv_bom" envconfig:"CSV_BOM"`
}

// DefaultAppDefaults returns the built-in application defaults
func DefaultAppDefaults() AppDefaults {
	return AppDefaults{
		WindowWidth:          DefaultWindowWidth,
		WindowHeight:         DefaultWindowHeight,
		MaxRows:              DefaultMaxRows,
		MaxColumns:           DefaultMaxColumns,
		MaxFileSizeMB:        DefaultMaxFileSizeMB,
		DefaultDecimalPlaces: DefaultDecimalPlaces,
		ChartDPI:             DefaultChartDPI,
		DefaultSaveFormat:    DefaultSaveFormat,
		HistoryDepth:         DefaultHistoryDepth,
		TimestampFilenames:   false,
		CSVBOM:               true,
	}
}

// LoadAppDefaults overlays the defaults document at path on base. A missing
// file is not an error; base is returned unchanged.
func LoadAppDefaults(path string, base AppDefaults) (AppDefaults, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return base, nil
	}
	if err != nil {
		return base, err
	}

	out := base
	if err := yaml.Unmarshal(data, &out); err != nil {
		return base, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := validator.New().Struct(out); err != nil {
		return base, fmt.Errorf("invalid defaults in %s: %w", path, err)
	}
	return out, nil
}

// UnitFactors is the raw unit conversion document (units.json): factors[from][to].
type UnitFactors map[string]map[string]float64

// unitsDocument is the on-disk layout of units.json
type unitsDocument struct {
	Units   []string    `yaml:"units"`
	Factors UnitFactors `yaml:"factors"`
}

// LoadUnitFactors reads the unit conversion document. It returns nil, nil
// when the file does not exist so callers fall back to the built-in table.
func LoadUnitFactors(path string) (UnitFactors, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var doc unitsDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(doc.Factors) == 0 {
		return nil, fmt.Errorf("%s contains no factors", path)
	}
	return doc.Factors, nil
}
