// Package common contains shared constants and sentinel errors used across
// zeroledger components.
package common

const (
	// ErrorCodeTrailer is the gRPC trailer key carrying the protocol error code.
	ErrorCodeTrailer = "error-code"

	// RequestIDHeader is echoed on every HTTP response.
	RequestIDHeader = "X-Request-Id"

	// Tool names accepted by the envelope endpoint.
	ToolExpress  = "express"
	ToolOwn      = "own"
	ToolTransfer = "transfer"
)
