package app

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := NewConfig(Config{Steps: []string{StepBuildStage1}})
		require.NoError(t, err)

		assert.Equal(t, "Release", cfg.BuildType)
		assert.Equal(t, "mcuforge", cfg.OutDir)
		assert.Equal(t, "cmake/caches", cfg.CacheDir)
		assert.Equal(t, Version, cfg.PkgVersion)
		assert.Equal(t, runtime.NumCPU(), cfg.Jobs)
		assert.Equal(t, runtime.NumCPU(), cfg.LinkJobs)
	})

	t.Run("empty step list means all", func(t *testing.T) {
		cfg, err := NewConfig(Config{PacksDir: t.TempDir()})
		require.NoError(t, err)
		assert.Equal(t, StepNames, cfg.Steps)
	})

	t.Run("the all alias expands in declaration order", func(t *testing.T) {
		cfg, err := NewConfig(Config{Steps: []string{"package", "all"}, PacksDir: t.TempDir()})
		require.NoError(t, err)
		assert.Equal(t, StepNames, cfg.Steps)
	})

	t.Run("requested steps expand to their prerequisite closure", func(t *testing.T) {
		cfg, err := NewConfig(Config{Steps: []string{StepBuildRuntimes}})
		require.NoError(t, err)
		assert.Equal(t, []string{StepAcquireSources, StepBuildStage1, StepBuildMusl, StepBuildRuntimes}, cfg.Steps)

		full, err := NewConfig(Config{Steps: []string{StepPackage}, PacksDir: t.TempDir()})
		require.NoError(t, err)
		assert.Equal(t, StepNames, full.Steps)
	})

	t.Run("duplicate step names collapse", func(t *testing.T) {
		cfg, err := NewConfig(Config{Steps: []string{StepBuildStage1, StepBuildStage1}})
		require.NoError(t, err)
		assert.Equal(t, []string{StepAcquireSources, StepBuildStage1}, cfg.Steps)
	})

	t.Run("unknown step is a configuration error", func(t *testing.T) {
		_, err := NewConfig(Config{Steps: []string{"build-everything"}})
		require.ErrorContains(t, err, `unknown step "build-everything"`)
	})

	t.Run("unknown step next to the all alias is still rejected", func(t *testing.T) {
		_, err := NewConfig(Config{Steps: []string{"all", "bogus"}})
		require.ErrorContains(t, err, `unknown step "bogus"`)
	})

	t.Run("invalid build type", func(t *testing.T) {
		_, err := NewConfig(Config{Steps: []string{StepBuildStage1}, BuildType: "Fastest"})
		require.ErrorContains(t, err, "invalid build type")
	})

	t.Run("jobs are clamped to the processor count", func(t *testing.T) {
		cfg, err := NewConfig(Config{Steps: []string{StepBuildStage1}, Jobs: 100000, LinkJobs: 100000})
		require.NoError(t, err)
		assert.Equal(t, runtime.NumCPU(), cfg.Jobs)
		assert.Equal(t, runtime.NumCPU(), cfg.LinkJobs)

		one, err := NewConfig(Config{Steps: []string{StepBuildStage1}, Jobs: 1, LinkJobs: 1})
		require.NoError(t, err)
		assert.Equal(t, 1, one.Jobs)
		assert.Equal(t, 1, one.LinkJobs)
	})

	t.Run("generate-device-files requires an existing packs dir", func(t *testing.T) {
		_, err := NewConfig(Config{Steps: []string{StepGenerateDeviceFiles}})
		require.ErrorContains(t, err, "-packs-dir")

		_, err = NewConfig(Config{Steps: []string{StepGenerateDeviceFiles}, PacksDir: "/does/not/exist"})
		require.ErrorContains(t, err, "does not exist")

		cfg, err := NewConfig(Config{Steps: []string{StepGenerateDeviceFiles}, PacksDir: t.TempDir()})
		require.NoError(t, err)
		assert.NotEmpty(t, cfg.PacksDir)
	})

	t.Run("packs dir is required when device files are pulled transitively", func(t *testing.T) {
		_, err := NewConfig(Config{Steps: []string{StepPackage}})
		require.ErrorContains(t, err, "-packs-dir")

		_, err = NewConfig(Config{Steps: []string{StepBuildStartupCode}})
		require.ErrorContains(t, err, "-packs-dir")
	})

	t.Run("packs dir is not required for plans without device files", func(t *testing.T) {
		_, err := NewConfig(Config{Steps: []string{StepBuildRuntimes}})
		require.NoError(t, err)
	})
}
