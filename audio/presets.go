package audio

import (
	"fmt"
	"sort"
)

type preset map[string]interface{}

var presets = map[string]preset{
	"default": {PropGain: DefaultGain},
	"quiet":   {PropGain: 0.2},
	"full":    {PropGain: 1.},
}

// PresetNames returns the names accepted by LoadPreset.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func LoadPreset(name string, d Device) error {
	p, ok := presets[name]
	if !ok {
		return fmt.Errorf("unknown preset: %v", name)
	}
	for k, v := range p {
		if err := d.Set(k, v); err != nil {
			return err
		}
	}
	return nil
}
