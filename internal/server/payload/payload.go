// Package payload validates expression payloads against their declared type.
//
// Known types get a typed variant; anything else, including "raw", is
// accepted as Opaque as long as it is a JSON object. Every variant keeps the
// full object the caller sent, so hashing and storage see extra keys too.
package payload

import (
	"regexp"

	"github.com/dmitrijs2005/zeroledger/internal/common"
)

const (
	TypeClaim     = "claim"
	TypeReference = "reference"
	TypeGlyph     = "glyph"
	TypeRaw       = "raw"
)

// GlyphLength is the number of digits in a glyph grid.
const GlyphLength = 100

var glyphRe = regexp.MustCompile(`^[0-9]{100}$`)

type Payload interface {
	Type() string
	// Fields returns the object as received.
	Fields() map[string]any
}

type base struct {
	fields map[string]any
}

func (b base) Fields() map[string]any { return b.fields }

type Claim struct {
	base
	Subject   string
	Predicate string
}

func (Claim) Type() string { return TypeClaim }

type Reference struct {
	base
	Hash string
}

func (Reference) Type() string { return TypeReference }

type Glyph struct {
	base
	Data string
}

func (Glyph) Type() string { return TypeGlyph }

// Opaque carries raw and caller-defined types.
type Opaque struct {
	base
	TypeName string
}

func (o Opaque) Type() string { return o.TypeName }

// Parse checks fields against expressionType and returns the variant.
// Failures are INVALID_REQUEST protocol errors.
func Parse(expressionType any, fields any) (Payload, error) {
	t, ok := expressionType.(string)
	if !ok || t == "" {
		return nil, common.NewValidationError("expression_type is required and must be a string")
	}
	obj, ok := fields.(map[string]any)
	if !ok || obj == nil {
		return nil, common.NewValidationError("payload is required and must be an object")
	}
	b := base{fields: obj}

	switch t {
	case TypeClaim:
		subject, ok := nonEmptyString(obj, "subject")
		if !ok {
			return nil, common.NewValidationError(`claim payload requires "subject" (string)`)
		}
		predicate, ok := nonEmptyString(obj, "predicate")
		if !ok {
			return nil, common.NewValidationError(`claim payload requires "predicate" (string)`)
		}
		return Claim{base: b, Subject: subject, Predicate: predicate}, nil

	case TypeReference:
		hash, ok := nonEmptyString(obj, "hash")
		if !ok {
			return nil, common.NewValidationError(`reference payload requires "hash" (string)`)
		}
		return Reference{base: b, Hash: hash}, nil

	case TypeGlyph:
		data, ok := nonEmptyString(obj, "data")
		if !ok {
			return nil, common.NewValidationError(`glyph payload requires "data" (string)`)
		}
		if !glyphRe.MatchString(data) {
			return nil, common.NewValidationError("glyph data must be exactly 100 digits (0-9)")
		}
		return Glyph{base: b, Data: data}, nil

	default:
		return Opaque{base: b, TypeName: t}, nil
	}
}

func nonEmptyString(m map[string]any, k string) (string, bool) {
	s, ok := m[k].(string)
	return s, ok && s != ""
}
