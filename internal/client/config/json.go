package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/zeroledger/internal/flagx"
	"github.com/dmitrijs2005/zeroledger/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Absent keys
// leave the current values alone.
type JsonConfig struct {
	ServerURL      *string         `json:"server_url"`
	GRPCAddr       *string         `json:"grpc_addr"`
	Transport      *string         `json:"transport"`
	KeyFile        *string         `json:"key_file"`
	JournalPath    *string         `json:"journal_path"`
	RequestTimeout *timex.Duration `json:"request_timeout"`
}

// parseJson overlays cfg with the file named by -c/-config. Read or decode
// errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	for dst, v := range map[*string]*string{
		&cfg.ServerURL:   jc.ServerURL,
		&cfg.GRPCAddr:    jc.GRPCAddr,
		&cfg.Transport:   jc.Transport,
		&cfg.KeyFile:     jc.KeyFile,
		&cfg.JournalPath: jc.JournalPath,
	} {
		if v != nil {
			*dst = *v
		}
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
}
