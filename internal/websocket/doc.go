// Package websocket broadcasts compute-run progress events to connected
// clients. A single Hub goroutine owns the client set; clients register
// through the HTTP upgrade handler and receive JSON stage events. Slow
// clients are dropped rather than allowed to stall the broadcast loop.
package websocket
