// Package runner runs a scan on a background goroutine and maps interrupts
// onto the scan's control surface.
//
// The first interrupt (SIGINT, SIGTERM, or a value on the interrupt source)
// requests a cooperative abort, so finalization actions still run at the next
// position boundary. A second interrupt cancels the scan context outright.
package runner
