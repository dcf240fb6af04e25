package transfer

import "errors"

// Every one of these is fatal to the session that encounters it: the
// connection is closed and, for the relay side, the room is torn down.
// There is no automatic retry anywhere in this package.
var (
	ErrBadSharedSecret       = errors.New("transfer: shared secret must be at least 4 bytes")
	ErrBadPassword           = errors.New("transfer: bad relay password")
	ErrRoomFull              = errors.New("transfer: room full")
	ErrRoomNegotiationFailed = errors.New("transfer: room negotiation failed")
	ErrBadResponse           = errors.New("transfer: unexpected relay response")
	ErrUnknownKeepalive      = errors.New("transfer: unknown keepalive message")
	ErrCurveNotSupported     = errors.New("transfer: unsupported curve")
	ErrInvalidState          = errors.New("transfer: message received out of state order")
	ErrTransferDenied        = errors.New("transfer: receiver refused files")
	ErrPathTraversal         = errors.New("transfer: file path escapes destination directory")
)
