// Package transfer drives the client side of a file transfer: dialing the
// relay, negotiating the main and multiplex rooms, running the
// client-to-client PAKE, and walking the state machine from key exchange
// through manifest exchange to chunked file I/O.
package transfer
