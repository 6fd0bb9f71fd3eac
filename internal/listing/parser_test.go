package listing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grammatech/gtirb-lsp-go/internal/listing"
)

func TestExtractAddressLines(t *testing.T) {
	t.Parallel()
	lines := []string{
		"main:",
		"  push RBP # EA: 0x401130",
		"  mov RBP,RSP # EA: 0x401131",
		"  nop",
		"  call main # EA: 0x401140",
	}
	got := listing.ExtractAddressLines(lines)
	require.Len(t, got, 3)
	assert.Equal(t, uint64(0x401130), got[0].Addr)
	assert.Equal(t, 1, got[0].Line)
	assert.Equal(t, uint64(0x401140), got[2].Addr)
}

func TestTokenizeAt(t *testing.T) {
	t.Parallel()
	line := "  call [RAX+0x10] # EA: 0x401140"

	tests := []struct {
		name string
		pos  int
		want string
	}{
		{"within call", 3, "call"},
		{"within register", 9, "RAX"},
		{"on delimiter", 7, ""},
		{"out of bounds negative", -1, ""},
		{"out of bounds past end", 1000, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, listing.TokenizeAt(line, tt.pos))
		})
	}
}

func TestParseFunctionName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		line string
		want string
		ok   bool
	}{
		{".globl main", "main", true},
		{".type main, @function", "main", true},
		{"main:", "main", true},
		{"  nop", "", false},
	}
	for _, tt := range tests {
		got, ok := listing.ParseFunctionName(tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
		assert.Equal(t, tt.want, got, tt.line)
	}
}

func TestPrecedingFunctionLine(t *testing.T) {
	t.Parallel()
	lines := []string{
		"main:",
		"  push RBP # EA: 0x401130",
		"  mov RBP,RSP # EA: 0x401131",
	}
	line, ok := listing.PrecedingFunctionLine(lines, "main", 2)
	require.True(t, ok)
	assert.Equal(t, 0, line)

	// Seeing an EA line before the label aborts the search.
	lines2 := []string{
		"  push RBP # EA: 0x401130",
		"main:",
		"  mov RBP,RSP # EA: 0x401131",
		"  nop # EA: 0x401134",
	}
	_, ok = listing.PrecedingFunctionLine(lines2, "main", 3)
	assert.False(t, ok)
}
