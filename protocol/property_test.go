package protocol

import (
	"fmt"
	"strconv"
	"testing"

	"pgregory.net/rapid"
)

// ============================================================================
// Encoder Property Tests
// ============================================================================

// TestPropertySetRequestClamps verifies every set command carries the clamped value.
func TestPropertySetRequestClamps(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		zone := rapid.IntRange(1, 36).Draw(t, "zone")
		param := rapid.SampledFrom([]Param{ParamVolume, ParamTreble, ParamBass, ParamBalance, ParamSource}).Draw(t, "param")
		value := rapid.IntRange(-1000, 1000).Draw(t, "value")

		lo, hi := param.Range()
		want := max(lo, min(value, hi))
		expected := fmt.Sprintf("<%d%s%02d\r", zone, string(param), want)

		if got := string(SetRequest(zone, param, value)); got != expected {
			t.Fatalf("SetRequest(%d, %s, %d) = %q, want %q", zone, param, value, got, expected)
		}
	})
}

// TestPropertyBoolRequests verifies power and mute only ever encode 00 or 01.
func TestPropertyBoolRequests(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		zone := rapid.IntRange(1, 36).Draw(t, "zone")
		value := rapid.Int().Draw(t, "value")

		got := string(SetRequest(zone, ParamPower, value))
		suffix := got[len(got)-3 : len(got)-1]
		if value == 0 && suffix != "00" || value != 0 && suffix != "01" {
			t.Fatalf("SetRequest power %d encoded %q", value, got)
		}
	})
}

// ============================================================================
// Decoder Property Tests
// ============================================================================

func drawStatus(t *rapid.T) ZoneStatus {
	return ZoneStatus{
		Zone:         rapid.IntRange(0, 99).Draw(t, "zone"),
		PA:           rapid.Bool().Draw(t, "pa"),
		Power:        rapid.Bool().Draw(t, "power"),
		Mute:         rapid.Bool().Draw(t, "mute"),
		DoNotDisturb: rapid.Bool().Draw(t, "dnd"),
		Volume:       rapid.IntRange(0, MaxVolume).Draw(t, "volume"),
		Treble:       rapid.IntRange(0, MaxTreble).Draw(t, "treble"),
		Bass:         rapid.IntRange(0, MaxBass).Draw(t, "bass"),
		Balance:      rapid.IntRange(0, MaxBalance).Draw(t, "balance"),
		Source:       rapid.IntRange(MinSource, MaxSource).Draw(t, "source"),
		Keypad:       rapid.Bool().Draw(t, "keypad"),
	}
}

// TestPropertyStatusRoundTrip verifies ParseStatus inverts ZoneStatus.Line.
func TestPropertyStatusRoundTrip(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		status := drawStatus(t)
		noise := rapid.StringMatching(`[a-z#\r\n ]{0,8}`).Draw(t, "noise")

		got, ok := ParseStatus(noise + EOL + status.Line() + EOL + noise)
		if !ok {
			t.Fatalf("failed to parse %q", status.Line())
		}
		if got != status {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, status)
		}
	})
}

// TestPropertyParseStatusesSubset verifies bulk parsing keeps exactly the valid lines in order.
func TestPropertyParseStatusesSubset(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 8).Draw(t, "n")

		var lines []string
		var want []ZoneStatus
		for i := range n {
			if rapid.Bool().Draw(t, "valid"+strconv.Itoa(i)) {
				s := drawStatus(t)
				want = append(want, s)
				lines = append(lines, s.Line())
			} else {
				lines = append(lines, rapid.StringMatching(`[a-z>]{0,10}`).Draw(t, "junk"))
			}
		}

		got := ParseStatuses(lines)
		if len(got) != len(want) {
			t.Fatalf("got %d statuses, want %d", len(got), len(want))
		}
		for i := range got {
			if got[i] != want[i] {
				t.Fatalf("status %d: got %+v, want %+v", i, got[i], want[i])
			}
		}
	})
}

// ============================================================================
// Frame Accumulator Property Tests
// ============================================================================

// TestPropertyIncrementalCountMatchesSingleShot verifies that feeding a buffer
// in arbitrary chunks counts the same markers as a single scan.
func TestPropertyIncrementalCountMatchesSingleShot(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		data := []byte(rapid.StringMatching(`[\r\n#>0-9]{0,64}`).Draw(t, "data"))
		whole := CountEOL(data, Cursor{})

		var buf []byte
		var cur Cursor
		for len(buf) < len(data) {
			step := rapid.IntRange(1, len(data)-len(buf)).Draw(t, "step")
			buf = append(buf, data[len(buf):len(buf)+step]...)
			cur = CountEOL(buf, cur)
		}

		if cur.Count != whole.Count {
			t.Fatalf("incremental count %d != single shot %d for %q", cur.Count, whole.Count, data)
		}
	})
}
