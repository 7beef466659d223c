package protocol

import (
	"reflect"
	"strconv"
)

// StatusRequest builds a single zone status query: ?{zone}\r
func StatusRequest(zone int) []byte {
	b := make([]byte, 0, 8)
	b = append(b, QueryPrefix)
	b = strconv.AppendInt(b, int64(zone), 10)
	return append(b, CR...)
}

// UnitStatusRequest builds a whole unit status query: ?{unit*10}\r
func UnitStatusRequest(unit int) []byte {
	return StatusRequest(unit * 10)
}

// SetRequest builds a set command for any parameter: <{zone}{code}{value:02d}\r
//
// The value is clamped into the parameter range first. Power and mute accept
// any value; zero encodes "00" and everything else "01".
func SetRequest(zone int, param Param, value int) []byte {
	switch param {
	case ParamPower, ParamMute:
		if value != 0 {
			value = 1
		}
	default:
		value = param.Clamp(value)
	}

	b := make([]byte, 0, 12)
	b = append(b, SetPrefix)
	b = strconv.AppendInt(b, int64(zone), 10)
	b = append(b, param...)
	b = appendTwoDigits(b, value)
	return append(b, CR...)
}

// PowerRequest builds <{zone}PR01\r or <{zone}PR00\r.
func PowerRequest(zone int, on bool) []byte {
	return SetRequest(zone, ParamPower, boolValue(on))
}

// MuteRequest builds <{zone}MU01\r or <{zone}MU00\r.
func MuteRequest(zone int, on bool) []byte {
	return SetRequest(zone, ParamMute, boolValue(on))
}

// VolumeRequest builds <{zone}VO{00-38}\r.
func VolumeRequest(zone, volume int) []byte {
	return SetRequest(zone, ParamVolume, volume)
}

// TrebleRequest builds <{zone}TR{00-14}\r.
func TrebleRequest(zone, treble int) []byte {
	return SetRequest(zone, ParamTreble, treble)
}

// BassRequest builds <{zone}BS{00-14}\r.
func BassRequest(zone, bass int) []byte {
	return SetRequest(zone, ParamBass, bass)
}

// BalanceRequest builds <{zone}BL{00-20}\r.
func BalanceRequest(zone, balance int) []byte {
	return SetRequest(zone, ParamBalance, balance)
}

// SourceRequest builds <{zone}CH{01-06}\r.
func SourceRequest(zone, source int) []byte {
	return SetRequest(zone, ParamSource, source)
}

// RestoreRequests returns the set commands that bring a zone back to status,
// in the order power, mute, volume, treble, bass, balance, source.
func RestoreRequests(status ZoneStatus) [][]byte {
	return [][]byte{
		PowerRequest(status.Zone, status.Power),
		MuteRequest(status.Zone, status.Mute),
		VolumeRequest(status.Zone, status.Volume),
		TrebleRequest(status.Zone, status.Treble),
		BassRequest(status.Zone, status.Bass),
		BalanceRequest(status.Zone, status.Balance),
		SourceRequest(status.Zone, status.Source),
	}
}

// Truthy reports whether v would be considered "on" by a loosely typed caller.
//
// nil, false, numeric zero, the empty string and empty slices, maps and arrays
// are false. Everything else is true, including the string "false".
func Truthy(v any) bool {
	if v == nil {
		return false
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array, reflect.Chan:
		return rv.Len() != 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	default:
		return true
	}
}

func boolValue(on bool) int {
	if on {
		return 1
	}
	return 0
}

// appendTwoDigits appends v as a zero-padded two digit decimal. v must be in 0..99.
func appendTwoDigits(b []byte, v int) []byte {
	return append(b, byte('0'+v/10), byte('0'+v%10))
}
