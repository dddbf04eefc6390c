package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	PlacementConfig struct {
		Density         float64 `yaml:"density" validate:"gt=0,lte=1"`
		TargetOverflow  float64 `yaml:"target_overflow" validate:"gt=0,lte=1"`
		MaxIterations   int     `yaml:"max_iterations" validate:"min=1"`
		InitIterations  int     `yaml:"initial_iterations" validate:"min=1"`
		Seed            int64   `yaml:"seed"`
		PaddingSites    int     `yaml:"padding_sites" validate:"gte=0"`
		DivergenceRatio float64 `yaml:"divergence_ratio" validate:"gt=1"`
	}

	PinsConfig struct {
		CornerAvoidance float64 `yaml:"corner_avoidance" validate:"gte=0"`
		MinDistance     float64 `yaml:"min_distance" validate:"gte=0"`
	}

	PowerConfig struct {
		ViaResistance   float64 `yaml:"via_resistance" validate:"gte=0"`
		ActivityFactor  float64 `yaml:"activity_factor" validate:"gte=0,lte=1"`
		SolverIters     int     `yaml:"solver_iterations" validate:"min=1"`
		SolverTolerance float64 `yaml:"solver_tolerance" validate:"gt=0"`
	}

	SnapshotConfig struct {
		Width        int    `yaml:"width" validate:"gte=0"`
		Height       int    `yaml:"height" validate:"gte=0"`
		NameTemplate string `yaml:"name_template"`
	}

	MetricsConfig struct {
		Destination string `yaml:"destination,omitempty" sanitize:"path_clean,assure_dir_exists_for_file" validate:"omitempty,filepath"`
	}

	Config struct {
		Version   int             `yaml:"version" validate:"eq=1"`
		Placement PlacementConfig `yaml:"placement"`
		Pins      PinsConfig      `yaml:"pins"`
		Power     PowerConfig     `yaml:"power"`
		Snapshot  SnapshotConfig  `yaml:"snapshot"`
		Metrics   MetricsConfig   `yaml:"metrics"`
		Logging   LoggingConfig   `yaml:"logging"`
		Reporting ReporterConfig  `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above, alternative is to use struct
	// field name and reflection which I want to avoid for now
	SnapshotNameTemplateFieldName TemplateFieldName = "name_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(SnapshotNameTemplateFieldName)),
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
