// Package monoprice controls Monoprice 6-zone amplifiers over a serial port.
//
// A Client issues zone queries and set commands through a Session, which owns
// the port and guarantees that request/response exchanges never interleave on
// the wire. Two sessions share the same contract:
//
//   - BlockingSession reads synchronously on the calling goroutine, with a mutex
//     held for the whole exchange.
//   - AsyncSession opens the port in the background, reads it from a dedicated
//     goroutine and suspends callers in a context aware gate while the port is
//     opening or busy.
//
// Basic usage:
//
//	client, err := monoprice.Open("/dev/ttyUSB0", monoprice.Config{})
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	status, ok, err := client.ZoneStatus(ctx, 11)
//	if err != nil {
//		return err
//	}
//	if ok && !status.Power {
//		err = client.SetPower(ctx, 11, true)
//	}
//
// # Timeouts
//
// Every exchange is bounded by Config.Timeout (2 seconds by default) over the
// whole response. A timeout returns a *protocol.TimeoutError, matched by
// errors.Is(err, protocol.ErrTimeout). The port stays open and the next call
// can proceed normally. Nothing is retried internally.
//
// # Watching zones
//
// A Watcher polls units on an interval and reports the zones whose status
// changed, which is how keypad changes made at the wall can be followed.
package monoprice
