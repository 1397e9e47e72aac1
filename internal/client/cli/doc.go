// Package cli implements the zeroledger agent command line.
//
// Each invocation runs one command (see Execute); "shell" starts an
// interactive loop that accepts the same commands line by line. The agent
// key is unsealed on first use, and every receipt returned by express or
// transfer is stored in the local journal so "verify" can re-check it
// against the server key later.
package cli
