// Package client contains the agent side of the zeroledger protocol.
//
// # Overview
//
// The package provides:
//  1. Signer, which turns a tool name and params into a signed envelope with
//     a fresh nonce and a millisecond ISO 8601 timestamp.
//  2. A transport-agnostic contract (see the Client interface) with two
//     implementations: HTTPClient posts envelopes to /mcp and GRPCClient
//     calls zeroledger.v1.Ledger/Call.
//  3. FetchKeyDocument and FetchServerTime for the public HTTP documents
//     that receipt verification and clock checks rely on.
//
// # Error Handling
//
// Rejections by the ledger come back as *common.Error carrying the protocol
// code, on both transports. Transport failures wrap ErrUnavailable.
package client
