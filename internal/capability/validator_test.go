package capability_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Venkmine/proxyforge/internal/apperr"
	"github.com/Venkmine/proxyforge/internal/capability"
	"github.com/Venkmine/proxyforge/internal/jobmodel"
)

func writeTempFile(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("fake"), 0o644))
	return p
}

func TestValidateEmptySourcePaths(t *testing.T) {
	_, err := capability.Validate(capability.ValidationInput{})
	require.Error(t, err)
	ae, _ := apperr.As(err)
	require.Equal(t, apperr.TagSourceMissingOrNotFile, ae.Tag)
}

func TestValidateSingleClipTemplateExempt(t *testing.T) {
	dir := t.TempDir()
	src := writeTempFile(t, dir, "a.mov")

	res, err := capability.Validate(capability.ValidationInput{
		SourcePaths:     []string{src},
		OutputDirectory: dir,
		Codec:           "h264",
		Container:       "mov",
		NamingTemplate:  "output",
	})
	require.NoError(t, err)
	require.Equal(t, jobmodel.EngineFFmpeg, res.Engine)
}

func TestValidateMultiClipTemplateMustBeUnique(t *testing.T) {
	dir := t.TempDir()
	a := writeTempFile(t, dir, "a.mov")
	b := writeTempFile(t, dir, "b.mov")

	_, err := capability.Validate(capability.ValidationInput{
		SourcePaths:     []string{a, b},
		OutputDirectory: dir,
		Codec:           "h264",
		Container:       "mov",
		NamingTemplate:  "output",
	})
	require.Error(t, err)
	ae, _ := apperr.As(err)
	require.Equal(t, apperr.TagNamingTemplateAmbiguous, ae.Tag)

	_, err = capability.Validate(capability.ValidationInput{
		SourcePaths:     []string{a, b},
		OutputDirectory: dir,
		Codec:           "h264",
		Container:       "mov",
		NamingTemplate:  "{source_name}_proxy",
	})
	require.NoError(t, err)
}

func TestValidateSourceNotFile(t *testing.T) {
	dir := t.TempDir()
	_, err := capability.Validate(capability.ValidationInput{
		SourcePaths:     []string{filepath.Join(dir, "missing.mov")},
		OutputDirectory: dir,
		Codec:           "h264",
		Container:       "mov",
		NamingTemplate:  "output",
	})
	require.Error(t, err)
	ae, _ := apperr.As(err)
	require.Equal(t, apperr.TagSourceMissingOrNotFile, ae.Tag)
}

func TestValidateProfileEngineMismatch(t *testing.T) {
	dir := t.TempDir()
	src := writeTempFile(t, dir, "a.mov")

	_, err := capability.Validate(capability.ValidationInput{
		SourcePaths:     []string{src},
		OutputDirectory: dir,
		Codec:           "h264",
		Container:       "mov",
		NamingTemplate:  "output",
		ProxyProfile:    "proxy_prores_proxy_resolve",
	})
	require.Error(t, err)
	ae, _ := apperr.As(err)
	require.Equal(t, apperr.TagProxyProfileMismatch, ae.Tag)
}

func TestValidateResolveRequiresPreset(t *testing.T) {
	dir := t.TempDir()
	src := writeTempFile(t, dir, "a.braw")

	_, err := capability.Validate(capability.ValidationInput{
		SourcePaths:     []string{src},
		OutputDirectory: dir,
		Codec:           "braw",
		Container:       "braw",
		NamingTemplate:  "output",
	})
	require.Error(t, err)
	ae, _ := apperr.As(err)
	require.Equal(t, apperr.TagResolvePresetMissing, ae.Tag)
}
