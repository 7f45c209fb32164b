package naming_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Venkmine/proxyforge/internal/naming"
)

func TestResolveSourceNameToken(t *testing.T) {
	path, err := naming.Resolve(naming.Params{
		SourcePath:      "/m/a.mov",
		OutputDirectory: "/o",
		NamingTemplate:  "{source_name}_proxy",
		Container:       "mp4",
	})
	require.NoError(t, err)
	assert.Equal(t, "/o/a_proxy.mp4", path)
}

func TestResolveIndexToken(t *testing.T) {
	path, err := naming.Resolve(naming.Params{
		SourcePath:      "/m/a.mov",
		OutputDirectory: "/o",
		NamingTemplate:  "clip_{index}",
		Container:       "mov",
		Index:           2,
	})
	require.NoError(t, err)
	assert.Equal(t, "/o/clip_002.mov", path)
}

func TestResolvePrefixSuffix(t *testing.T) {
	path, err := naming.Resolve(naming.Params{
		SourcePath:      "/m/a.mov",
		OutputDirectory: "/o",
		NamingTemplate:  "{source_name}",
		Prefix:          "PRX_",
		Suffix:          "_v1",
		Container:       "mp4",
	})
	require.NoError(t, err)
	assert.Equal(t, "/o/PRX_a_v1.mp4", path)
}

func TestResolvePreservesSourceDirs(t *testing.T) {
	path, err := naming.Resolve(naming.Params{
		SourcePath:         "/m/reel1/cam_a/a.mov",
		SourceRoot:         "/m",
		OutputDirectory:    "/o",
		NamingTemplate:     "{source_name}",
		Container:          "mp4",
		PreserveSourceDirs: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "/o/reel1/cam_a/a.mp4", path)
}

func TestResolveUnknownContainer(t *testing.T) {
	_, err := naming.Resolve(naming.Params{
		SourcePath:      "/m/a.mov",
		OutputDirectory: "/o",
		NamingTemplate:  "{source_name}",
		Container:       "webm",
	})
	require.Error(t, err)
}

func TestCollisionGuardDetectsDuplicates(t *testing.T) {
	g := naming.NewCollisionGuard()
	assert.False(t, g.Seen("/o/a.mp4"))
	assert.True(t, g.Seen("/o/a.mp4"))
}
