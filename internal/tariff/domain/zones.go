package tariff

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const minutesPerDay = 1440

// ValidateZones checks a time-of-use zone set for overlaps and 24-hour
// coverage. It returns human-readable problems; an empty slice means the
// configuration is valid. Both checks always run so a single call surfaces
// every defect at once.
//
// Zones with an empty start or end are skipped from range construction and
// contribute to neither check.
func ValidateZones(zones []ZoneRate) []string {
	var problems []string

	if len(zones) == 0 {
		return []string{"at least one time zone is required"}
	}

	type span struct {
		start, end int // minute offsets, [start,end)
		zoneID     string
	}
	var spans []span
	for _, zone := range zones {
		if zone.Start == "" || zone.End == "" {
			continue
		}
		zoneID := zone.ID
		if zoneID == "" {
			zoneID = zone.Start + "-" + zone.End
		}
		start, err := ParseClock(zone.Start)
		if err != nil {
			problems = append(problems, fmt.Sprintf("zone %q has invalid start time %q", zoneID, zone.Start))
			continue
		}
		end, err := ParseClock(zone.End)
		if err != nil {
			problems = append(problems, fmt.Sprintf("zone %q has invalid end time %q", zoneID, zone.End))
			continue
		}
		if end <= start {
			// Wraps midnight: split into two ordinary ranges.
			spans = append(spans, span{start: start, end: minutesPerDay, zoneID: zoneID})
			if end > 0 {
				spans = append(spans, span{start: 0, end: end, zoneID: zoneID})
			}
		} else {
			spans = append(spans, span{start: start, end: end, zoneID: zoneID})
		}
	}

	// Overlap: sweep sorted ranges tracking the furthest end seen. The two
	// halves of a wrapped zone never overlap each other, so they are safe to
	// treat as independent entries.
	sorted := append([]span(nil), spans...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].start != sorted[j].start {
			return sorted[i].start < sorted[j].start
		}
		return sorted[i].end < sorted[j].end
	})
	maxEnd := 0
	prevZone := ""
	for _, s := range sorted {
		if s.start < maxEnd {
			problems = append(problems, fmt.Sprintf("zones %q and %q overlap at %s", prevZone, s.zoneID, FormatClock(s.start)))
		}
		if s.end > maxEnd {
			maxEnd = s.end
			prevZone = s.zoneID
		}
	}

	// Coverage: mark every covered minute, report the first gap.
	var covered [minutesPerDay]bool
	for _, s := range spans {
		for minute := s.start; minute < s.end && minute < minutesPerDay; minute++ {
			covered[minute] = true
		}
	}
	for minute := 0; minute < minutesPerDay; minute++ {
		if !covered[minute] {
			problems = append(problems, fmt.Sprintf("time zones leave a coverage gap starting at %s", FormatClock(minute)))
			break
		}
	}

	return problems
}

// RateAt returns the rate of the zone covering the given minute of day,
// honoring midnight wraparound. The second result is false when no zone
// covers the minute.
func RateAt(zones []ZoneRate, minuteOfDay int) (float64, bool) {
	for _, zone := range zones {
		if zone.Start == "" || zone.End == "" {
			continue
		}
		start, err := ParseClock(zone.Start)
		if err != nil {
			continue
		}
		end, err := ParseClock(zone.End)
		if err != nil {
			continue
		}
		if end <= start {
			if minuteOfDay >= start || minuteOfDay < end {
				return zone.Rate, true
			}
			continue
		}
		if minuteOfDay >= start && minuteOfDay < end {
			return zone.Rate, true
		}
	}
	return 0, false
}

// ParseClock converts "HH:MM" to a minute offset. "24:00" maps to 1440 so
// it can close a day-final zone.
func ParseClock(value string) (int, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return 0, ErrInvalidClock
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, ErrInvalidClock
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, ErrInvalidClock
	}
	if hour == 24 && minute == 0 {
		return minutesPerDay, nil
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, ErrInvalidClock
	}
	return hour*60 + minute, nil
}

// FormatClock renders a minute offset as "HH:MM".
func FormatClock(minuteOfDay int) string {
	return fmt.Sprintf("%02d:%02d", minuteOfDay/60, minuteOfDay%60)
}
