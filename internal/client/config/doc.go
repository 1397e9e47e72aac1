// Package config loads runtime configuration for the zeroledger agent CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Environment: ZEROLEDGER_SERVER_URL, ZEROLEDGER_GRPC_ADDR and
//     ZEROLEDGER_PASSPHRASE.
//  4. Command-line flags, which override everything else.
//
// Supported flags
//
//	-s string   base URL of the HTTP endpoint
//	-a string   address:port of the gRPC endpoint
//	-t string   transport: http or grpc
//	-k string   path of the sealed key file
//	-j string   path of the receipt journal (SQLite)
//	-r int      request timeout (seconds)
//
// # JSON schema
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "grpc_addr": "127.0.0.1:50051",
//	  "transport": "http",
//	  "key_file": ".zeroledger/agent_key.json",
//	  "journal_path": ".zeroledger/journal.db",
//	  "request_timeout": "10s"
//	}
package config
