// Package auth verifies signed request envelopes: field formats, the
// timestamp window, nonce replay and the Ed25519 signature.
package auth

import (
	"errors"
	"regexp"

	"github.com/dmitrijs2005/zeroledger/internal/canonjson"
	"github.com/dmitrijs2005/zeroledger/internal/common"
	"github.com/dmitrijs2005/zeroledger/internal/cryptox"
	"github.com/dmitrijs2005/zeroledger/internal/timex"
)

// Credentials is the "auth" block of an envelope.
type Credentials struct {
	PublicKey string `json:"public_key"`
	Timestamp string `json:"timestamp"`
	Nonce     string `json:"nonce"`
	Signature string `json:"signature"`
}

// Envelope is a signed tool call.
type Envelope struct {
	Auth   *Credentials   `json:"auth"`
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params"`
}

// Context describes an authenticated caller. PublicKey is lowercase.
type Context struct {
	PublicKey string
	Signature string
	Timestamp string
}

var (
	publicKeyRe = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)
	nonceRe     = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)
	signatureRe = regexp.MustCompile(`^[0-9a-fA-F]{128}$`)
)

var errMissingToolOrParams = common.NewValidationError("Request must include tool and params")

// ParseEnvelope decodes a request body. Numbers keep their literal form so
// the signed message is rebuilt exactly as the client produced it. Field
// formats are not checked here; that is the verifier's first gate.
func ParseEnvelope(body []byte) (*Envelope, error) {
	decoded, err := canonjson.Decode(body)
	if err != nil {
		return nil, common.NewValidationError("Request body must be valid JSON")
	}
	return EnvelopeFromMap(decoded)
}

// EnvelopeFromMap builds an Envelope from an already decoded JSON value.
func EnvelopeFromMap(v any) (*Envelope, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, errMissingToolOrParams
	}
	tool, _ := m["tool"].(string)
	params, ok := m["params"].(map[string]any)
	if tool == "" || !ok {
		return nil, errMissingToolOrParams
	}

	env := &Envelope{Tool: tool, Params: params}
	if a, ok := m["auth"].(map[string]any); ok {
		env.Auth = &Credentials{
			PublicKey: stringField(a, "public_key"),
			Timestamp: stringField(a, "timestamp"),
			Nonce:     stringField(a, "nonce"),
			Signature: stringField(a, "signature"),
		}
	}
	return env, nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// validate is the format gate. Errors are INVALID_REQUEST.
func validate(env *Envelope) error {
	if env.Auth == nil {
		return common.NewValidationError("auth envelope is required")
	}
	a := env.Auth

	switch {
	case a.PublicKey == "":
		return common.NewValidationError("public_key is required")
	case !publicKeyRe.MatchString(a.PublicKey):
		return common.NewValidationError("public_key must be 64 hex characters")
	}

	if a.Timestamp == "" {
		return common.NewValidationError("timestamp is required")
	}
	if _, err := timex.ParseISO(a.Timestamp); err != nil {
		return common.NewValidationError("timestamp must be valid ISO 8601")
	}

	switch {
	case a.Nonce == "":
		return common.NewValidationError("nonce is required")
	case !nonceRe.MatchString(a.Nonce):
		return common.NewValidationError("nonce must be 24 hex characters")
	}

	switch {
	case a.Signature == "":
		return common.NewValidationError("signature is required")
	case !signatureRe.MatchString(a.Signature):
		return common.NewValidationError("signature must be 128 hex characters")
	}

	if env.Tool == "" {
		return common.NewValidationError("tool is required")
	}
	return nil
}

// Message is the value whose canonical digest the caller signs.
func Message(tool string, params map[string]any, timestamp, nonce string) map[string]any {
	if params == nil {
		params = map[string]any{}
	}
	return map[string]any{
		"tool":      tool,
		"params":    params,
		"timestamp": timestamp,
		"nonce":     nonce,
	}
}

// SignEnvelope produces a complete envelope for tool/params signed with
// seed. timestamp and nonce are supplied by the caller.
func SignEnvelope(tool string, params map[string]any, seed []byte, timestamp, nonce string) (*Envelope, error) {
	if tool == "" {
		return nil, errors.New("auth: empty tool")
	}
	pub, err := cryptox.DerivePublicKey(seed)
	if err != nil {
		return nil, err
	}
	sig, err := cryptox.SignValue(Message(tool, params, timestamp, nonce), seed)
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = map[string]any{}
	}
	return &Envelope{
		Auth: &Credentials{
			PublicKey: cryptox.EncodeHex(pub),
			Timestamp: timestamp,
			Nonce:     nonce,
			Signature: sig,
		},
		Tool:   tool,
		Params: params,
	}, nil
}
