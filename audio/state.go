package audio

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// State is the persisted parameter set of a Synth.
type State struct {
	Gain float64 `yaml:"gain"`
}

// SaveState writes the current synth parameters to w as YAML.
func SaveState(w io.Writer, d Device) error {
	v, err := d.Get(PropGain)
	if err != nil {
		return err
	}
	gain, ok := v.(float64)
	if !ok {
		return fmt.Errorf("save state: gain is not a float64: %v", v)
	}
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(State{Gain: gain}); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return enc.Close()
}

// LoadState reads parameters written by SaveState and applies them to d.
// Nothing is applied if the document is invalid.
func LoadState(r io.Reader, d Device) error {
	var st struct {
		Gain *float64 `yaml:"gain"`
	}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&st); err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if st.Gain == nil {
		return errors.New("load state: missing gain")
	}
	if err := d.Set(PropGain, *st.Gain); err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	return nil
}
