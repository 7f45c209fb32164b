package license_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Venkmine/proxyforge/internal/apperr"
	"github.com/Venkmine/proxyforge/internal/config"
	"github.com/Venkmine/proxyforge/internal/jobmodel"
	"github.com/Venkmine/proxyforge/internal/license"
)

func TestResolveDefaultsToFree(t *testing.T) {
	os.Unsetenv("FORGE_LICENSE_TYPE")
	lic := license.Resolve(&config.LicenseConfig{FilePath: filepath.Join(t.TempDir(), "missing.json")})
	assert.Equal(t, jobmodel.TierFree, lic.Tier)
	require.NotNil(t, lic.MaxWorkers)
	assert.Equal(t, 1, *lic.MaxWorkers)
}

func TestResolveFromFile(t *testing.T) {
	os.Unsetenv("FORGE_LICENSE_TYPE")
	dir := t.TempDir()
	path := filepath.Join(dir, "license.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"tier":"freelance"}`), 0o644))

	lic := license.Resolve(&config.LicenseConfig{FilePath: path})
	assert.Equal(t, jobmodel.TierFreelance, lic.Tier)
	assert.Equal(t, 3, *lic.MaxWorkers)
}

func TestResolveFromEnv(t *testing.T) {
	os.Setenv("FORGE_LICENSE_TYPE", "facility")
	defer os.Unsetenv("FORGE_LICENSE_TYPE")

	lic := license.Resolve(&config.LicenseConfig{})
	assert.Equal(t, jobmodel.TierFacility, lic.Tier)
	assert.Nil(t, lic.MaxWorkers)
}

func TestEnforcerFreelanceCapAtThree(t *testing.T) {
	three := 3
	enf := license.NewEnforcer(&jobmodel.License{Tier: jobmodel.TierFreelance, MaxWorkers: &three})

	for i := 0; i < 3; i++ {
		ok, err := enf.Heartbeat(workerID(i))
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := enf.Heartbeat("worker-4")
	require.Error(t, err)
	assert.False(t, ok)
	ae, _ := apperr.As(err)
	assert.Equal(t, apperr.TagWorkerLimitExceeded, ae.Tag)

	rejected := enf.Rejected()
	require.Len(t, rejected, 1)
	assert.Equal(t, 3, rejected[0].CurrentWorkers)
	assert.Equal(t, 3, rejected[0].MaxWorkers)
}

func TestEnforcerFacilityUnlimited(t *testing.T) {
	enf := license.NewEnforcer(&jobmodel.License{Tier: jobmodel.TierFacility, MaxWorkers: nil})
	for i := 0; i < 50; i++ {
		ok, err := enf.Heartbeat(workerID(i))
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, 50, enf.ActiveCount())
}

func TestEnforcerDeregisterFreesSlot(t *testing.T) {
	one := 1
	enf := license.NewEnforcer(&jobmodel.License{Tier: jobmodel.TierFree, MaxWorkers: &one})
	ok, err := enf.Heartbeat("w1")
	require.NoError(t, err)
	require.True(t, ok)

	_, err = enf.Heartbeat("w2")
	require.Error(t, err)

	enf.Deregister("w1")
	ok, err = enf.Heartbeat("w2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func workerID(i int) string {
	return "worker-" + string(rune('a'+i))
}
