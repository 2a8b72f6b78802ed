package app

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/spectrum-analyzer/internal/pipeline"
)

// Manifest lists batch jobs. Relative paths resolve against the directory
// holding the manifest.
//
//	output_dir: renders
//	jobs:
//	  - input: intro.flac
//	  - input: theme.wav
//	    output: theme_full.png
type Manifest struct {
	OutputDir string         `yaml:"output_dir,omitempty"`
	Jobs      []pipeline.Job `yaml:"jobs"`
}

// LoadManifest reads a YAML manifest
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	base := filepath.Dir(path)
	for i, job := range manifest.Jobs {
		if job.Input == "" {
			return nil, fmt.Errorf("manifest %s: job %d has no input", path, i+1)
		}
		manifest.Jobs[i].Input = resolve(base, job.Input)
		if job.Output != "" {
			manifest.Jobs[i].Output = resolve(base, job.Output)
		}
	}
	if manifest.OutputDir != "" {
		manifest.OutputDir = resolve(base, manifest.OutputDir)
	}

	return &manifest, nil
}

// BuildJobs turns input files into jobs. With outputDir set, each default
// output is placed there instead of next to its input.
func BuildJobs(inputs []string, outputDir string, mode pipeline.Mode) []pipeline.Job {
	jobs := make([]pipeline.Job, 0, len(inputs))
	for _, input := range inputs {
		jobs = append(jobs, pipeline.Job{Input: input, Output: outputFor(input, outputDir, mode)})
	}
	return jobs
}

// Resolve fills missing outputs; outputDir overrides the manifest's own
func (m *Manifest) Resolve(outputDir string, mode pipeline.Mode) []pipeline.Job {
	if outputDir == "" {
		outputDir = m.OutputDir
	}

	jobs := make([]pipeline.Job, len(m.Jobs))
	for i, job := range m.Jobs {
		if job.Output == "" {
			job.Output = outputFor(job.Input, outputDir, mode)
		}
		jobs[i] = job
	}
	return jobs
}

func outputFor(input, outputDir string, mode pipeline.Mode) string {
	if outputDir == "" {
		return ""
	}
	return filepath.Join(outputDir, filepath.Base(pipeline.DefaultOutput(input, mode)))
}

func resolve(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
