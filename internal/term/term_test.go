package term

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pnwtools/pnwtools/internal/config"
)

func TestConfigure(t *testing.T) {
	t.Cleanup(func() { Configure(config.ColorNever) })

	Configure(config.ColorAlways)
	assert.True(t, Enabled())
	assert.NotEmpty(t, Magenta)

	Configure(config.ColorNever)
	assert.False(t, Enabled())
	assert.Empty(t, Magenta)
}

func TestIsTerminal_RegularFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	assert.False(t, IsTerminal(f))
	assert.False(t, IsTerminal(nil))
}
