package glyph

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = strings.Repeat("0123456789", 10)

func TestRender_Structure(t *testing.T) {
	svg := Render(sample)

	assert.True(t, strings.HasPrefix(svg, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 32 32">`))
	assert.True(t, strings.HasSuffix(svg, `</svg>`))
	assert.Equal(t, 101, strings.Count(svg, "<rect"))
	assert.Equal(t, 100, strings.Count(svg, `width="3" height="3"`))
	assert.Contains(t, svg, `x="1" y="1"`)
	assert.Contains(t, svg, `x="28" y="28"`)
}

func TestRender_Opacity(t *testing.T) {
	assert.Contains(t, Render(strings.Repeat("0", 100)), `opacity="0"`)
	assert.Contains(t, Render(strings.Repeat("9", 100)), `opacity="1"`)
	assert.Contains(t, Render("5"+strings.Repeat("0", 99)), `opacity="0.5555555555555556"`)
	assert.Contains(t, Render("1"+strings.Repeat("0", 99)), `opacity="0.1111111111111111"`)
}

func TestRender_DeterministicAndDistinct(t *testing.T) {
	assert.Equal(t, Render(sample), Render(sample))
	assert.NotEqual(t, Render(sample), Render(strings.Repeat("9876543210", 10)))
}

func TestHashAndURL(t *testing.T) {
	h := Hash(sample)
	require.Len(t, h, HashLength)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{16}$`), h)

	assert.Equal(t, "https://ledger.example/glyph/"+h+".svg", URL("https://ledger.example/", sample))
	assert.Equal(t, "https://ledger.example/glyph/"+h+".svg", URL("https://ledger.example", sample))
}
