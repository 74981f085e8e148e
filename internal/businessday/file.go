package businessday

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"chronoutil/pkg/chrono"
)

// File is the on-disk calendar layout:
//
//	weekend: [Saturday, Sunday]
//	holidays:
//	  - date: 2026-01-26
//	    name: Republic Day
type File struct {
	Weekend  []string  `yaml:"weekend"`
	Holidays []Holiday `yaml:"holidays"`
}

// ParseFile decodes a calendar file. A missing weekend key means
// Saturday and Sunday.
func ParseFile(data []byte) ([]chrono.DayOfWeek, []Holiday, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("decode calendar: %w", err)
	}
	weekend := []chrono.DayOfWeek{chrono.Saturday, chrono.Sunday}
	if f.Weekend != nil {
		weekend = weekend[:0]
		for _, name := range f.Weekend {
			d, err := chrono.ParseDayOfWeek(name)
			if err != nil {
				return nil, nil, fmt.Errorf("weekend: %w", err)
			}
			weekend = append(weekend, d)
		}
	}
	for i, h := range f.Holidays {
		if h.Date.IsNull() {
			return nil, nil, fmt.Errorf("holiday %d (%q): missing date", i, h.Name)
		}
	}
	return weekend, f.Holidays, nil
}

// LoadFile replaces the calendar contents with those of the file at path.
// On error the calendar is left unchanged.
func (c *Calendar) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read calendar %s: %w", path, err)
	}
	weekend, holidays, err := ParseFile(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	c.Replace(weekend, holidays)
	return nil
}
