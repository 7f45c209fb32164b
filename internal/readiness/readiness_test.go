package readiness_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Venkmine/proxyforge/internal/readiness"
)

func TestRunPassesWhenEverythingResolves(t *testing.T) {
	shPath, err := exec.LookPath("sh")
	require.NoError(t, err)

	report := readiness.Run(readiness.Config{
		FFmpegPath:  shPath,
		FFprobePath: shPath,
		OutputRoot:  t.TempDir(),
	})

	assert.True(t, report.Ready)
	assert.Equal(t, 0, report.BlockingFailures)
	assert.Len(t, report.Checks, 3)
}

func TestRunFailsBlockingWhenOutputRootUnwritable(t *testing.T) {
	shPath, err := exec.LookPath("sh")
	require.NoError(t, err)

	blocker := filepath.Join(t.TempDir(), "not-a-directory")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	report := readiness.Run(readiness.Config{
		FFmpegPath:  shPath,
		FFprobePath: shPath,
		OutputRoot:  filepath.Join(blocker, "nested"),
	})

	assert.False(t, report.Ready)
	assert.Equal(t, 1, report.BlockingFailures)
}

func TestRunReportsNonBlockingFailureForMissingBinary(t *testing.T) {
	report := readiness.Run(readiness.Config{
		FFmpegPath:  "definitely-not-a-real-binary-xyz",
		FFprobePath: "",
		OutputRoot:  t.TempDir(),
	})

	assert.True(t, report.Ready)
	assert.Equal(t, 2, report.TotalFailures)
	assert.Equal(t, 0, report.BlockingFailures)
}
