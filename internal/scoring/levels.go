package scoring

import (
	"errors"
	"fmt"
)

// Level is a named tier reached at MinPoints cumulative points.
type Level struct {
	Name      string `yaml:"name" json:"name"`
	MinPoints int    `yaml:"min_points" json:"min_points"`
}

// Levels is an ordered, strictly increasing list of tiers starting at zero.
type Levels []Level

// DefaultLevels mirrors the product's Beginner/Intermediate/Advanced tiers.
func DefaultLevels() Levels {
	return Levels{
		{Name: "Beginner", MinPoints: 0},
		{Name: "Intermediate", MinPoints: 200},
		{Name: "Advanced", MinPoints: 500},
	}
}

// NewLevels validates thresholds: non-empty, first at 0, strictly increasing, named.
func NewLevels(levels []Level) (Levels, error) {
	if len(levels) == 0 {
		return nil, errors.New("levels: at least one level is required")
	}
	if levels[0].MinPoints != 0 {
		return nil, errors.New("levels: first level must start at 0 points")
	}
	for i, l := range levels {
		if l.Name == "" {
			return nil, fmt.Errorf("levels: level %d has no name", i)
		}
		if i > 0 && l.MinPoints <= levels[i-1].MinPoints {
			return nil, fmt.Errorf("levels: %q must require more points than %q", l.Name, levels[i-1].Name)
		}
	}
	return append(Levels(nil), levels...), nil
}

// For returns the highest tier whose threshold points reaches.
func (l Levels) For(points int) string {
	name := ""
	for _, level := range l {
		if points < level.MinPoints {
			break
		}
		name = level.Name
	}
	return name
}
