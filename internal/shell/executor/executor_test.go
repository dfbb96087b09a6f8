package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeEnv_OverlayWins(t *testing.T) {
	base := []string{"PATH=/usr/bin", "DB_HOST=old", "HOME=/root"}
	overlay := map[string]string{"DB_HOST": "new", "EXTRA": "1"}

	merged := mergeEnv(base, overlay)

	assert.Contains(t, merged, "PATH=/usr/bin")
	assert.Contains(t, merged, "HOME=/root")
	assert.Contains(t, merged, "DB_HOST=new")
	assert.Contains(t, merged, "EXTRA=1")
	assert.NotContains(t, merged, "DB_HOST=old")
}

func TestMergeEnv_NoOverlayReturnsBase(t *testing.T) {
	base := []string{"PATH=/usr/bin"}
	assert.Equal(t, base, mergeEnv(base, nil))
}

func TestCLIRunner_CapturesOutput(t *testing.T) {
	r := NewCLIRunner(nil)

	result := r.Run(context.Background(), Request{Op: "test", Bin: "echo", Args: []string{"hello"}})

	assert.True(t, result.Succeeded)
	assert.Equal(t, "hello\n", result.Stdout)
}

func TestCLIRunner_MissingBinaryIsFailureNotError(t *testing.T) {
	r := NewCLIRunner(nil)

	result := r.Run(context.Background(), Request{Op: "test", Bin: "stackman-no-such-binary"})

	assert.False(t, result.Succeeded)
}
