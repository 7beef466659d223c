package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountMarkers(t *testing.T) {
	tests := []struct {
		name     string
		buf      string
		marker   string
		prev     Cursor
		expected Cursor
	}{
		{name: "empty buffer", buf: "", marker: EOL, expected: Cursor{}},
		{name: "no marker", buf: ">1100", marker: EOL, expected: Cursor{}},
		{name: "single", buf: EOL, marker: EOL, expected: Cursor{Offset: 3, Count: 1}},
		{name: "two in one append", buf: EOL + ">11" + EOL, marker: EOL, expected: Cursor{Offset: 9, Count: 2}},
		{name: "non overlapping", buf: "\r\r\r", marker: "\r\r", expected: Cursor{Offset: 2, Count: 1}},
		{name: "partial marker", buf: EOL + "\r\n", marker: EOL, expected: Cursor{Offset: 3, Count: 1}},
		{name: "empty marker", buf: "abc", marker: "", expected: Cursor{}},
		{
			name:     "resume skips counted",
			buf:      EOL + ">11" + EOL,
			marker:   EOL,
			prev:     Cursor{Offset: 3, Count: 1},
			expected: Cursor{Offset: 9, Count: 2},
		},
		{
			name:     "offset past buffer",
			buf:      "ab",
			marker:   EOL,
			prev:     Cursor{Offset: 5, Count: 2},
			expected: Cursor{Offset: 5, Count: 2},
		},
		{
			name:     "negative offset",
			buf:      EOL + EOL,
			marker:   EOL,
			prev:     Cursor{Offset: -1, Count: 1},
			expected: Cursor{Offset: -1, Count: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CountMarkers([]byte(tt.buf), []byte(tt.marker), tt.prev)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCountMarkers_Resumable(t *testing.T) {
	buf := []byte("\r\r\r")
	cur := CountMarkers(buf, []byte("\r\r"), Cursor{})
	assert.Equal(t, Cursor{Offset: 2, Count: 1}, cur)

	buf = append(buf, '\r')
	cur = CountMarkers(buf, []byte("\r\r"), cur)
	assert.Equal(t, Cursor{Offset: 4, Count: 2}, cur)

	// Rescanning with the same cursor must not count again.
	cur = CountMarkers(buf, []byte("\r\r"), cur)
	assert.Equal(t, Cursor{Offset: 4, Count: 2}, cur)
}

func TestCountEOL_ByteByByte(t *testing.T) {
	resp := []byte("\r\n#>1100010000131112100401\r\n#")

	var buf []byte
	var cur Cursor
	counts := make([]int, 0, len(resp))
	for _, b := range resp {
		buf = append(buf, b)
		cur = CountEOL(buf, cur)
		counts = append(counts, cur.Count)
	}

	assert.Equal(t, 2, cur.Count)
	assert.Equal(t, len(resp), cur.Offset)
	assert.Equal(t, 1, counts[2], "first marker completes on its third byte")
	assert.Equal(t, 1, counts[len(counts)-2], "second marker not complete before its last byte")
}

func TestCompletion_Markers(t *testing.T) {
	resp := []byte(EOL + ">1100010000131112100401" + EOL)

	cur, done := SetCompletion.Advance(resp[:3], Cursor{})
	assert.True(t, done)
	assert.Equal(t, 1, cur.Count)

	cur, done = StatusCompletion.Advance(resp[:10], Cursor{})
	assert.False(t, done)

	cur, done = StatusCompletion.Advance(resp, cur)
	assert.True(t, done)
	assert.Equal(t, 2, cur.Count)
}

func TestCompletion_UnitStatus(t *testing.T) {
	resp := EOL
	for zone := 11; zone <= 16; zone++ {
		status := ZoneStatus{Zone: zone, Source: 1}
		resp += status.Line() + EOL
	}

	cur, done := UnitStatusCompletion.Advance([]byte(resp[:len(resp)-1]), Cursor{})
	assert.False(t, done)
	assert.Equal(t, 6, cur.Count)

	cur, done = UnitStatusCompletion.Advance([]byte(resp), cur)
	assert.True(t, done)
	assert.Equal(t, 7, cur.Count)
}

func TestCompletion_Size(t *testing.T) {
	c := UntilSize(4)
	assert.Equal(t, 4, c.Size())
	assert.Equal(t, 0, c.Markers())

	_, done := c.Advance([]byte("abc"), Cursor{})
	assert.False(t, done)

	_, done = c.Advance([]byte("abcd"), Cursor{})
	assert.True(t, done)
}

func TestCompletion_Defaults(t *testing.T) {
	var zero Completion
	assert.Equal(t, 1, zero.Markers())
	assert.Equal(t, 1, UntilMarkers(0).Markers())
	assert.Equal(t, 1, UntilSize(-5).Size())
	assert.Equal(t, "2 markers", StatusCompletion.String())
	assert.Equal(t, "16 bytes", UntilSize(16).String())
}

func TestSplitFrames(t *testing.T) {
	frames := SplitFrames(EOL + ">11" + EOL + ">12" + EOL)
	require.Len(t, frames, 4)
	assert.Equal(t, []string{"", ">11", ">12", ""}, frames)
}
