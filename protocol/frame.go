package protocol

import (
	"bytes"
	"strconv"
	"strings"
)

var eolBytes = []byte(EOL)

// Cursor is the resumable state of a marker scan over a growing buffer.
//
// Offset is where the next scan starts (just past the last counted marker) and
// Count is the number of markers counted so far. The zero value starts a new scan.
type Cursor struct {
	Offset int
	Count  int
}

// CountMarkers counts non-overlapping occurrences of marker in buf, resuming
// from prev.
//
// buf is the whole buffer received so far, not only the newly appended bytes.
// Markers before prev.Offset are never counted again, so the result can be
// passed back in after every append. An empty marker or an offset outside buf
// counts nothing.
func CountMarkers(buf, marker []byte, prev Cursor) Cursor {
	if len(marker) == 0 || prev.Offset < 0 || prev.Offset > len(buf) {
		return prev
	}

	cur := prev
	for {
		idx := bytes.Index(buf[cur.Offset:], marker)
		if idx < 0 {
			return cur
		}
		cur.Offset += idx + len(marker)
		cur.Count++
	}
}

// CountEOL is CountMarkers with the amplifier end-of-line marker.
func CountEOL(buf []byte, prev Cursor) Cursor {
	return CountMarkers(buf, eolBytes, prev)
}

// Completion decides when enough of a response has arrived.
//
// A response is complete either after a number of EOL markers or, for fixed
// size reads, after a number of bytes. The zero value waits for one marker.
type Completion struct {
	markers int
	size    int
}

// Completions used by the amplifier commands.
var (
	StatusCompletion     = UntilMarkers(StatusMarkers)
	UnitStatusCompletion = UntilMarkers(UnitStatusMarkers)
	SetCompletion        = UntilMarkers(SetMarkers)
)

// UntilMarkers completes once n EOL markers were received. n below 1 is treated as 1.
func UntilMarkers(n int) Completion {
	return Completion{markers: max(n, 1)}
}

// UntilSize completes once n bytes were received. n below 1 is treated as 1.
func UntilSize(n int) Completion {
	return Completion{size: max(n, 1)}
}

// Markers returns the marker target, or 0 for size based completions.
func (c Completion) Markers() int {
	if c.size > 0 {
		return 0
	}
	return max(c.markers, 1)
}

// Size returns the byte target, or 0 for marker based completions.
func (c Completion) Size() int {
	return c.size
}

// Advance updates cur with the bytes in buf and reports whether the response is complete.
func (c Completion) Advance(buf []byte, cur Cursor) (Cursor, bool) {
	if c.size > 0 {
		return Cursor{Offset: len(buf)}, len(buf) >= c.size
	}

	cur = CountEOL(buf, cur)
	return cur, cur.Count >= c.Markers()
}

func (c Completion) String() string {
	if c.size > 0 {
		return strconv.Itoa(c.size) + " bytes"
	}
	return strconv.Itoa(c.Markers()) + " markers"
}

// SplitFrames splits a decoded response on the EOL marker.
// Empty frames are kept so the result lines up with the markers on the wire.
func SplitFrames(resp string) []string {
	return strings.Split(resp, EOL)
}
