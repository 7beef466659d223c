// Package protocol implements the ASCII control protocol of Monoprice 6-zone
// amplifiers (MPR-6ZHMAUT and compatible), without any I/O.
//
// It provides the three building blocks a transport needs:
//
//   - Command encoding: StatusRequest, UnitStatusRequest, SetRequest and the
//     per-parameter helpers (PowerRequest, VolumeRequest, ...). Out of range
//     values are clamped, never rejected.
//   - Frame accumulation: CountMarkers and Completion decide when enough of a
//     response has arrived. The scan state is an explicit Cursor value that the
//     caller threads through successive appends.
//   - Status decoding: ParseStatus, ParseStatuses and ParseUnitStatus turn
//     response text into ZoneStatus values.
//
// # Wire Format
//
// Requests are terminated by CR:
//
//	?11\r         status of zone 11
//	?10\r         status of all zones of unit 1
//	<11VO20\r     set zone 11 volume to 20
//
// Every frame sent by the amplifier ends with the three byte EOL marker
// "\r\n#". A zone query is answered with:
//
//	\r\n#>1100010000131112100401\r\n#
//
// A unit query is answered with one leading EOL and then one payload+EOL pair
// per zone. A set command is acknowledged with a single EOL.
//
// # Reading Responses
//
//	var buf []byte
//	var cur protocol.Cursor
//	for {
//	    n, err := port.Read(chunk)
//	    ...
//	    buf = append(buf, chunk[:n]...)
//	    var done bool
//	    if cur, done = protocol.StatusCompletion.Advance(buf, cur); done {
//	        break
//	    }
//	}
//	status, ok := protocol.ParseStatus(string(buf))
//
// # Error Handling
//
// TimeoutError reports an incomplete response and keeps the connection usable.
// ConnectionError wraps port failures and requires reopening the port. Use
// ShouldCloseConnection to tell them apart.
package protocol
