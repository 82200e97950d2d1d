package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario defines one re-import run and its expected effect.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Threshold overrides the truncation length. Zero means the importer
	// default.
	Threshold int `yaml:"threshold,omitempty"`

	// Seed lists the potholes stored before the run, in id order.
	Seed []ImageState `yaml:"seed"`

	// CSV is the import document, header row included.
	CSV string `yaml:"csv"`

	Expect Expectation `yaml:"expect"`
}

// ImageState describes a pothole's frame image, either literally or by
// length.
type ImageState struct {
	Frame       int64   `yaml:"frame"`
	Image       *string `yaml:"image,omitempty"`
	ImageLength *int    `yaml:"image_length,omitempty"`
	NullImage   bool    `yaml:"null_image,omitempty"`
}

// Expectation is checked after the run.
type Expectation struct {
	Updated   int     `yaml:"updated"`
	Skipped   int     `yaml:"skipped"`
	Errored   int     `yaml:"errored"`
	Unmatched []int64 `yaml:"unmatched,omitempty"`

	// Images are compared against the first pothole holding each frame.
	Images []ImageState `yaml:"images,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Description == "" {
		return errors.New("description is required")
	}
	if strings.TrimSpace(s.CSV) == "" {
		return errors.New("csv is required")
	}
	if s.Threshold < 0 {
		return fmt.Errorf("threshold must be positive, got %d", s.Threshold)
	}

	for i, st := range s.Seed {
		if err := st.validate(); err != nil {
			return fmt.Errorf("seed[%d]: %w", i, err)
		}
	}
	for i, st := range s.Expect.Images {
		if err := st.validate(); err != nil {
			return fmt.Errorf("expect.images[%d]: %w", i, err)
		}
	}

	return nil
}

func (st ImageState) validate() error {
	set := 0
	if st.Image != nil {
		set++
	}
	if st.ImageLength != nil {
		set++
		if *st.ImageLength < 0 {
			return fmt.Errorf("image_length must not be negative, got %d", *st.ImageLength)
		}
	}
	if st.NullImage {
		set++
	}
	if set != 1 {
		return errors.New("exactly one of image, image_length or null_image is required")
	}
	return nil
}

// value returns the image described, or nil for a NULL image.
func (st ImageState) value() *string {
	switch {
	case st.Image != nil:
		return st.Image
	case st.ImageLength != nil:
		s := strings.Repeat("A", *st.ImageLength)
		return &s
	default:
		return nil
	}
}
