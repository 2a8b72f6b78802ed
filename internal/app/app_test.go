package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/spectrum-analyzer/configs"
	"github.com/RyanBlaney/spectrum-analyzer/internal/pipeline"
	"github.com/RyanBlaney/spectrum-analyzer/internal/testutil"
	"github.com/RyanBlaney/spectrum-analyzer/pkg/audio/common"
)

type AppTestSuite struct {
	suite.Suite
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	config *configs.Config
	sine   string
}

func (s *AppTestSuite) SetupTest() {
	s.stdout = &bytes.Buffer{}
	s.stderr = &bytes.Buffer{}
	s.config = configs.GetDefaultConfig()
	s.config.Analysis.WindowSize = 1024
	s.config.Analysis.Overlap = 0.5
	s.sine = testutil.WriteWAV(s.T(), "sine.wav", [][]float64{testutil.Sine(440, 44100, 44100, 0.8)}, 44100)
}

func (s *AppTestSuite) newApp() *AnalyzerApp {
	app, err := NewAnalyzerApp(&Context{Config: s.config, Stdout: s.stdout, Stderr: s.stderr})
	s.Require().NoError(err)
	return app
}

func (s *AppTestSuite) TestRunFileConfirms() {
	out := filepath.Join(s.T().TempDir(), "sine.png")
	s.Require().NoError(s.newApp().RunFile(context.Background(), pipeline.Job{Input: s.sine, Output: out}))

	s.Equal("Spectrogram written: "+out+"\n", s.stdout.String())
	s.FileExists(out)
}

func (s *AppTestSuite) TestRunFileQuiet() {
	s.config.Quiet = true
	out := filepath.Join(s.T().TempDir(), "sine.png")
	s.Require().NoError(s.newApp().RunFile(context.Background(), pipeline.Job{Input: s.sine, Output: out}))
	s.Empty(s.stdout.String())
}

func (s *AppTestSuite) TestRunFileJSONReport() {
	s.config.Report = "json"
	out := filepath.Join(s.T().TempDir(), "sine.png")
	s.Require().NoError(s.newApp().RunFile(context.Background(), pipeline.Job{Input: s.sine, Output: out}))

	var report map[string]any
	s.Require().NoError(json.Unmarshal(s.stdout.Bytes(), &report))
	s.Equal(float64(87), report["frames"])
	s.Equal(float64(512), report["hop_size"])
	s.Equal(out, report["output"])

	timings, ok := report["stage_timings_ms"].(map[string]any)
	s.Require().True(ok)
	s.Contains(timings, "Decode")
	s.Contains(timings, "Render")
}

func (s *AppTestSuite) TestRunFileYAMLReport() {
	s.config.Report = "yaml"
	out := filepath.Join(s.T().TempDir(), "sine.png")
	s.Require().NoError(s.newApp().RunFile(context.Background(), pipeline.Job{Input: s.sine, Output: out}))

	var report map[string]any
	s.Require().NoError(yaml.Unmarshal(s.stdout.Bytes(), &report))
	s.Equal(87, report["frames"])
	s.Equal("wav", report["format"])
}

func (s *AppTestSuite) TestRunFileFailure() {
	corrupt := testutil.WriteFile(s.T(), "corrupt.wav", testutil.CorruptWAVBytes())
	err := s.newApp().RunFile(context.Background(), pipeline.Job{Input: corrupt})

	s.Require().Error(err)
	s.ErrorIs(err, common.ErrCorruptData)
	s.Contains(err.Error(), "decode failed for "+corrupt)
	s.Empty(s.stdout.String())
}

func (s *AppTestSuite) TestRunBatchReportsFailures() {
	corrupt := testutil.WriteFile(s.T(), "corrupt.wav", testutil.CorruptWAVBytes())
	dir := s.T().TempDir()
	jobs := BuildJobs([]string{s.sine, corrupt}, dir, pipeline.ModeImage)

	err := s.newApp().RunBatch(context.Background(), jobs)
	s.EqualError(err, "1 of 2 files failed")
	s.Contains(s.stderr.String(), "error: decode failed for "+corrupt)
	s.Contains(s.stdout.String(), "Spectrogram written: "+filepath.Join(dir, "sine.png"))
	s.FileExists(filepath.Join(dir, "sine.png"))
}

func (s *AppTestSuite) TestRunBatchJSONReport() {
	s.config.Report = "json"
	corrupt := testutil.WriteFile(s.T(), "corrupt.wav", testutil.CorruptWAVBytes())
	jobs := BuildJobs([]string{s.sine, corrupt}, s.T().TempDir(), pipeline.ModeImage)

	s.Error(s.newApp().RunBatch(context.Background(), jobs))

	var report map[string]any
	s.Require().NoError(json.Unmarshal(s.stdout.Bytes(), &report))
	s.Equal(float64(1), report["succeeded"])
	s.Equal(float64(1), report["failed"])
	files, ok := report["files"].([]any)
	s.Require().True(ok)
	s.Len(files, 2)
}

func (s *AppTestSuite) TestRunBatchEmpty() {
	s.Error(s.newApp().RunBatch(context.Background(), nil))
}

func (s *AppTestSuite) TestInvalidConfiguration() {
	_, err := NewAnalyzerApp(&Context{})
	s.Error(err)

	s.config.Analysis.WindowSize = 1000
	_, err = NewAnalyzerApp(&Context{Config: s.config})
	s.Error(err)
}

func (s *AppTestSuite) TestPipelineResolved() {
	s.config.Render.MinFreq = "C2"
	app := s.newApp()
	s.Equal(1024, app.Pipeline().WindowSize)
	s.InDelta(65.406, app.Pipeline().Render.MinFreq, 1e-3)
}

func TestAppTestSuite(t *testing.T) {
	suite.Run(t, new(AppTestSuite))
}

func TestStageTimings(t *testing.T) {
	got := stageTimings(map[common.Stage]time.Duration{
		common.StageDecode:    1500 * time.Microsecond,
		common.StageTransform: 2 * time.Millisecond,
	})
	assert.Equal(t, map[string]float64{"Decode": 1.5, "Transform": 2}, got)
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
output_dir: renders
jobs:
  - input: intro.flac
  - input: /abs/theme.wav
    output: theme_full.png
`), 0o644))

	manifest, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "renders"), manifest.OutputDir)

	jobs := manifest.Resolve("", pipeline.ModeImage)
	assert.Equal(t, []pipeline.Job{
		{Input: filepath.Join(dir, "intro.flac"), Output: filepath.Join(dir, "renders", "intro.png")},
		{Input: "/abs/theme.wav", Output: filepath.Join(dir, "theme_full.png")},
	}, jobs)

	jobs = manifest.Resolve("/out", pipeline.ModeAnimated)
	assert.Equal(t, "/out/intro_frames", jobs[0].Output)
}

func TestLoadManifestErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadManifest(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("jobs: [\n"), 0o644))
	_, err = LoadManifest(bad)
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("jobs:\n  - output: x.png\n"), 0o644))
	_, err = LoadManifest(empty)
	assert.ErrorContains(t, err, "job 1 has no input")
}

func TestBuildJobs(t *testing.T) {
	jobs := BuildJobs([]string{"/music/a.flac", "b.mp3"}, "", pipeline.ModeImage)
	assert.Equal(t, []pipeline.Job{{Input: "/music/a.flac"}, {Input: "b.mp3"}}, jobs)

	jobs = BuildJobs([]string{"/music/a.flac"}, "/out", pipeline.ModeImage)
	assert.Equal(t, "/out/a.png", jobs[0].Output)
}
