package protocol

// Param represents a settable zone parameter (2 characters on the wire).
type Param string

// Protocol delimiters
const (
	// EOL terminates every frame sent by the amplifier: CR, LF, '#'.
	EOL = "\r\n#"

	// CR terminates every request sent to the amplifier.
	CR = "\r"

	// StatusPrefix starts a status payload inside a frame.
	StatusPrefix = '>'

	// QueryPrefix starts a status query.
	QueryPrefix = '?'

	// SetPrefix starts a set command.
	SetPrefix = '<'
)

// Parameter codes
//
// Wire format of a set command: <{zone}{code}{value:02d}\r
//
// Values are clamped into the parameter range before formatting, never rejected.
const (
	// ParamPower turns the zone on (01) or off (00).
	ParamPower Param = "PR"

	// ParamMute mutes (01) or unmutes (00) the zone.
	ParamMute Param = "MU"

	// ParamVolume sets the volume, 00-38.
	ParamVolume Param = "VO"

	// ParamTreble sets treble, 00-14 where 07 is flat (00 = -7, 14 = +7).
	ParamTreble Param = "TR"

	// ParamBass sets bass, 00-14 where 07 is flat (00 = -7, 14 = +7).
	ParamBass Param = "BS"

	// ParamBalance sets balance, 00-20 where 10 is centered (00 = left, 20 = right).
	ParamBalance Param = "BL"

	// ParamSource selects the input, 01-06.
	ParamSource Param = "CH"
)

// Value ranges
const (
	MaxVolume  = 38
	MaxTreble  = 14
	MaxBass    = 14
	MaxBalance = 20
	MinSource  = 1
	MaxSource  = 6

	// ToneCenter is the flat point of treble and bass.
	ToneCenter = 7

	// BalanceCenter is the centered balance value.
	BalanceCenter = 10
)

// Topology of the reference deployment: up to 3 daisy-chained units with 6 zones each.
// Zone identifiers are unit*10 + channel (11..16, 21..26, 31..36).
const (
	MinUnit      = 1
	MaxUnit      = 3
	ZonesPerUnit = 6
)

// Marker counts that complete a response.
const (
	// StatusMarkers: a single zone query answers "\r\n#>...\r\n#".
	StatusMarkers = 2

	// UnitStatusMarkers: a unit query answers one leading EOL followed by one
	// payload+EOL pair per zone.
	UnitStatusMarkers = 1 + ZonesPerUnit

	// SetMarkers: set commands are acknowledged by a single EOL.
	SetMarkers = 1
)

// statusFields is the number of two-digit groups in a status payload.
const statusFields = 11

// Params lists all settable parameters in restore order.
var Params = []Param{
	ParamPower,
	ParamMute,
	ParamVolume,
	ParamTreble,
	ParamBass,
	ParamBalance,
	ParamSource,
}

// Range returns the inclusive valid range of the parameter.
// Unknown parameters report 0..99, the widest two-digit range.
func (p Param) Range() (lo, hi int) {
	switch p {
	case ParamPower, ParamMute:
		return 0, 1
	case ParamVolume:
		return 0, MaxVolume
	case ParamTreble:
		return 0, MaxTreble
	case ParamBass:
		return 0, MaxBass
	case ParamBalance:
		return 0, MaxBalance
	case ParamSource:
		return MinSource, MaxSource
	default:
		return 0, 99
	}
}

// Clamp forces v into the parameter range.
func (p Param) Clamp(v int) int {
	lo, hi := p.Range()
	return max(lo, min(v, hi))
}

// Valid reports whether p is a known parameter code.
func (p Param) Valid() bool {
	switch p {
	case ParamPower, ParamMute, ParamVolume, ParamTreble, ParamBass, ParamBalance, ParamSource:
		return true
	default:
		return false
	}
}

// String returns a human readable parameter name.
func (p Param) String() string {
	switch p {
	case ParamPower:
		return "power"
	case ParamMute:
		return "mute"
	case ParamVolume:
		return "volume"
	case ParamTreble:
		return "treble"
	case ParamBass:
		return "bass"
	case ParamBalance:
		return "balance"
	case ParamSource:
		return "source"
	default:
		return string(p)
	}
}

// ParseParam resolves a parameter by wire code ("VO") or name ("volume").
func ParseParam(s string) (Param, bool) {
	for _, p := range Params {
		if s == string(p) || s == p.String() {
			return p, true
		}
	}
	return "", false
}
