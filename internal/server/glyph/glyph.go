// Package glyph renders 10x10 digit grids as SVG and names them by hash.
package glyph

import (
	"strings"

	"github.com/dmitrijs2005/zeroledger/internal/canonjson"
	"github.com/dmitrijs2005/zeroledger/internal/cryptox"
)

const (
	gridSize = 10
	cellSize = 3
	// HashLength is the number of hex characters used to name a glyph.
	HashLength = 16
)

// Render draws data, 100 decimal digits, row by row. Each digit d becomes a
// 3x3 black cell with opacity d/9 inside a 1px white border. data must
// already be validated.
func Render(data string) string {
	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 32 32">`)
	b.WriteString(`<rect width="32" height="32" fill="white"/>`)

	for row := 0; row < gridSize; row++ {
		for col := 0; col < gridSize; col++ {
			v := int(data[row*gridSize+col] - '0')
			opacity := canonjson.MustMarshal(float64(v) / 9)

			b.WriteString(`<rect x="`)
			writeInt(&b, 1+col*cellSize)
			b.WriteString(`" y="`)
			writeInt(&b, 1+row*cellSize)
			b.WriteString(`" width="3" height="3" fill="black" opacity="`)
			b.Write(opacity)
			b.WriteString(`"/>`)
		}
	}

	b.WriteString(`</svg>`)
	return b.String()
}

func writeInt(b *strings.Builder, n int) {
	b.Write(canonjson.MustMarshal(n))
}

// Hash is the first 16 hex characters of SHA-256 over data.
func Hash(data string) string {
	return cryptox.SHA256Hex(data)[:HashLength]
}

// URL is where the rendered glyph is served: <base>/glyph/<hash>.svg.
func URL(base, data string) string {
	return strings.TrimRight(base, "/") + "/glyph/" + Hash(data) + ".svg"
}
