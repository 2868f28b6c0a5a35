package app

import (
	"sort"
	"time"

	"tegalsec-progression/internal/domain"
)

// DailyPicker designates one challenge for the calendar day containing day.
type DailyPicker func(challenges []domain.Challenge, day time.Time) (domain.Challenge, bool)

// RotateDaily walks the catalogue ordered by id, advancing one challenge per calendar day.
func RotateDaily(challenges []domain.Challenge, day time.Time) (domain.Challenge, bool) {
	if len(challenges) == 0 {
		return domain.Challenge{}, false
	}
	ordered := append([]domain.Challenge(nil), challenges...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	y, m, d := day.Date()
	days := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
	return ordered[int(days%int64(len(ordered)))], true
}

// FixedDaily always designates the challenge with the given id, when it exists.
func FixedDaily(challengeID string) DailyPicker {
	return func(challenges []domain.Challenge, _ time.Time) (domain.Challenge, bool) {
		for _, c := range challenges {
			if c.ID == challengeID {
				return c, true
			}
		}
		return domain.Challenge{}, false
	}
}

func (s *ProgressionService) dailyFor(catalog []domain.Challenge, now time.Time) (domain.Challenge, bool) {
	return s.opts.DailyPicker(catalog, now.In(s.opts.Location))
}
