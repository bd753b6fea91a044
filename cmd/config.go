package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/agreement-sim/sim"
	"github.com/inference-sim/agreement-sim/sim/initial"
	"github.com/inference-sim/agreement-sim/sim/search"
)

// configValidate is the validator instance for config files.
var configValidate = validator.New()

// FileConfig is the --config file shared by run, stats, theory and search.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type FileConfig struct {
	Seed        *int64            `yaml:"seed,omitempty"`
	Initial     initial.Spec      `yaml:"initial"`
	P           float64           `yaml:"p" validate:"gte=0,lte=1"`
	Rounds      int               `yaml:"rounds" validate:"gte=0"`
	Repetitions int               `yaml:"repetitions" validate:"gte=0"`
	Algorithm   sim.AlgorithmSpec `yaml:"algorithm"`
	Delivery    sim.Delivery      `yaml:"delivery"`
	Metric      sim.Metric        `yaml:"metric" validate:"omitempty,oneof=euclidean l1 linf"`
	Search      *SearchConfig     `yaml:"search,omitempty"`
}

// SearchConfig is the `search` section of a config file.
type SearchConfig struct {
	Horizon       int             `yaml:"horizon" validate:"gte=0"`
	PGrid         []float64       `yaml:"p_grid" validate:"dive,gte=0,lte=1"`
	Deliveries    []sim.Delivery  `yaml:"deliveries"`
	Objective     string          `yaml:"objective" validate:"omitempty,oneof=mode median mean min max"`
	MeetingPoints []float64       `yaml:"meeting_points" validate:"dive,gte=0,lte=1"`
	Policies      []search.Policy `yaml:"policies,omitempty"`
	Cap           int             `yaml:"cap" validate:"gte=0"`
	Workers       int             `yaml:"workers" validate:"gte=0"`
	KeepTrace     bool            `yaml:"keep_trace"`
}

// LoadConfig parses a config file with strict field checking (typos must
// cause errors) and validates it.
func LoadConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return parseConfig(data)
}

func parseConfig(data []byte) (*FileConfig, error) {
	var cfg FileConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	if err := configValidate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// hasInitial reports whether the file declares an initial configuration.
func (c *FileConfig) hasInitial() bool {
	in := c.Initial
	return in.Type != "" || len(in.Values) > 0 || len(in.Vectors) > 0 || in.N > 0
}
