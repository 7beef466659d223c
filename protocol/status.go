package protocol

import (
	"regexp"
	"strconv"
)

// statusPattern matches a status payload anywhere in a frame: '>' followed by
// eleven two-digit groups.
var statusPattern = regexp.MustCompile(`>(\d\d)(\d\d)(\d\d)(\d\d)(\d\d)(\d\d)(\d\d)(\d\d)(\d\d)(\d\d)(\d\d)`)

// ZoneStatus is a snapshot of one zone as reported by the amplifier.
//
// Wire format: >ZZ AA PP MM DD VV TT BB LL SS KK (without spaces), where the
// groups are zone, PA, power, mute, do-not-disturb, volume, treble, bass,
// balance, source and keypad.
type ZoneStatus struct {
	Zone         int
	PA           bool
	Power        bool
	Mute         bool
	DoNotDisturb bool
	Volume       int // 0..38
	Treble       int // 0..14, 7 is flat
	Bass         int // 0..14, 7 is flat
	Balance      int // 0..20, 10 is centered
	Source       int // 1..6
	Keypad       bool
}

// ParseStatus extracts the first status payload found in s.
//
// Surrounding noise (markers, partial frames, trailing text) is ignored.
// ok is false when s holds no complete payload, in which case the returned
// status is the zero value.
func ParseStatus(s string) (status ZoneStatus, ok bool) {
	if s == "" {
		return ZoneStatus{}, false
	}

	m := statusPattern.FindStringSubmatch(s)
	if m == nil {
		return ZoneStatus{}, false
	}

	var groups [statusFields]int
	for i := range groups {
		v, err := strconv.Atoi(m[i+1])
		if err != nil {
			return ZoneStatus{}, false
		}
		groups[i] = v
	}

	return ZoneStatus{
		Zone:         groups[0],
		PA:           groups[1] != 0,
		Power:        groups[2] != 0,
		Mute:         groups[3] != 0,
		DoNotDisturb: groups[4] != 0,
		Volume:       groups[5],
		Treble:       groups[6],
		Bass:         groups[7],
		Balance:      groups[8],
		Source:       groups[9],
		Keypad:       groups[10] != 0,
	}, true
}

// ParseStatuses parses every line and keeps the ones that hold a status,
// preserving their order. Lines that fail to parse are dropped silently.
func ParseStatuses(lines []string) []ZoneStatus {
	statuses := make([]ZoneStatus, 0, len(lines))
	for _, line := range lines {
		if status, ok := ParseStatus(line); ok {
			statuses = append(statuses, status)
		}
	}
	return statuses
}

// ParseUnitStatus decodes the response to a unit status query.
func ParseUnitStatus(resp string) []ZoneStatus {
	return ParseStatuses(SplitFrames(resp))
}

// Line returns the canonical status payload for s, the inverse of ParseStatus.
// Fields outside 0..99 are clamped so the payload keeps its fixed width.
func (s ZoneStatus) Line() string {
	b := make([]byte, 0, 1+2*statusFields)
	b = append(b, StatusPrefix)
	for _, v := range []int{
		s.Zone,
		boolValue(s.PA),
		boolValue(s.Power),
		boolValue(s.Mute),
		boolValue(s.DoNotDisturb),
		s.Volume,
		s.Treble,
		s.Bass,
		s.Balance,
		s.Source,
		boolValue(s.Keypad),
	} {
		b = appendTwoDigits(b, max(0, min(v, 99)))
	}
	return string(b)
}

// Unit returns the unit hosting the zone.
func (s ZoneStatus) Unit() int {
	return ZoneUnit(s.Zone)
}

// TrebleOffset returns treble relative to flat, -7..+7.
func (s ZoneStatus) TrebleOffset() int {
	return s.Treble - ToneCenter
}

// BassOffset returns bass relative to flat, -7..+7.
func (s ZoneStatus) BassOffset() int {
	return s.Bass - ToneCenter
}

// BalanceOffset returns balance relative to center, -10 (left) to +10 (right).
func (s ZoneStatus) BalanceOffset() int {
	return s.Balance - BalanceCenter
}

// ZoneUnit returns the unit part of a zone identifier (zone 23 is on unit 2).
func ZoneUnit(zone int) int {
	return zone / 10
}

// ValidUnit reports whether unit can be queried as a whole.
func ValidUnit(unit int) bool {
	return unit >= MinUnit && unit <= MaxUnit
}

// UnitZones returns the zone identifiers hosted by unit, or nil for an invalid unit.
func UnitZones(unit int) []int {
	if !ValidUnit(unit) {
		return nil
	}
	zones := make([]int, ZonesPerUnit)
	for i := range zones {
		zones[i] = unit*10 + i + 1
	}
	return zones
}
