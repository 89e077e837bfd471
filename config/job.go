// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/poiesic/llmerge/tabular"
	"gopkg.in/yaml.v3"
)

// Job is the complete description of a merge or indexing run, as read
// from a YAML job file.
type Job struct {
	Data      DataConfig      `yaml:"data"`
	Merge     MergeConfig     `yaml:"merge"`
	Chain     ChainConfig     `yaml:"chain"`
	Embedding EmbeddingConfig `yaml:"embedding"`
}

// DataConfig names the merge inputs and output.
type DataConfig struct {
	Left   DatasetConfig `yaml:"left"`
	Right  DatasetConfig `yaml:"right"`
	Output OutputConfig  `yaml:"output"`
}

// DatasetConfig describes one input file.
type DatasetConfig struct {
	Path string `yaml:"path"`

	// Format overrides detection from the file extension.
	Format string `yaml:"format,omitempty"`

	// Limit keeps only the first rows of the file; 0 keeps all.
	Limit int `yaml:"limit,omitempty"`

	// Delimiter is a single character used instead of the format default.
	Delimiter string `yaml:"delimiter,omitempty"`

	NullValues []string       `yaml:"null_values,omitempty"`
	Schema     tabular.Schema `yaml:"schema"`
}

// OutputConfig describes the merged output file.
type OutputConfig struct {
	Path      string `yaml:"path"`
	Format    string `yaml:"format,omitempty"`
	Delimiter string `yaml:"delimiter,omitempty"`
}

// MergeConfig controls the join.
type MergeConfig struct {
	// LeftOn and RightOn are key fields written "Namespace/Name" or "Name".
	LeftOn  string `yaml:"left_on"`
	RightOn string `yaml:"right_on"`

	ChunkSize   int    `yaml:"chunk_size"`
	Concurrency int    `yaml:"concurrency"`
	Unmatched   string `yaml:"unmatched"`

	// CallTimeout bounds a single matcher call, e.g. "2m". Empty means none.
	CallTimeout string `yaml:"call_timeout,omitempty"`

	Labels LabelsConfig `yaml:"labels,omitempty"`
}

// LabelsConfig overrides the output column labels.
type LabelsConfig struct {
	Left  string `yaml:"left,omitempty"`
	Right string `yaml:"right,omitempty"`
	Match string `yaml:"match,omitempty"`
}

// ChainConfig configures the chat model used as matcher.
type ChainConfig struct {
	Host        string  `yaml:"host"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`

	// Mode is "tools" or "json".
	Mode string `yaml:"mode"`

	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env"`

	MaxParseAttempts int `yaml:"max_parse_attempts"`

	// Retries is the number of attempts per matcher call.
	Retries    int    `yaml:"retries"`
	RetryDelay string `yaml:"retry_delay"`

	SystemPrompt   string               `yaml:"system_prompt,omitempty"`
	ResponseSchema ResponseSchemaConfig `yaml:"response_schema"`
}

// ResponseSchemaConfig names the fields of each match record.
type ResponseSchemaConfig struct {
	LeftIndex  string             `yaml:"left_index"`
	RightIndex string             `yaml:"right_index"`
	Extra      []ExtraFieldConfig `yaml:"extra"`
}

type ExtraFieldConfig struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Description string `yaml:"description,omitempty"`
}

// EmbeddingConfig configures the document search helpers.
type EmbeddingConfig struct {
	// Host defaults to the chain host.
	Host       string `yaml:"host,omitempty"`
	Model      string `yaml:"model"`
	BatchSize  int    `yaml:"batch_size"`
	StorePath  string `yaml:"store_path"`
	Collection string `yaml:"collection"`

	Source SourceConfig `yaml:"source"`

	// K is the number of documents a search returns.
	K              int     `yaml:"k"`
	ScoreThreshold float32 `yaml:"score_threshold,omitempty"`
}

// Source kinds.
const (
	SourcePDF     = "pdf"
	SourceDataset = "dataset"
)

// SourceConfig describes the documents of a new collection.
type SourceConfig struct {
	// Type is "pdf" or "dataset".
	Type string `yaml:"type"`

	// Path is the PDF file for pdf sources.
	Path         string `yaml:"path,omitempty"`
	ChunkSize    int    `yaml:"chunk_size,omitempty"`
	ChunkOverlap int    `yaml:"chunk_overlap,omitempty"`

	// Dataset and Columns describe dataset sources. Columns are fields
	// written "Namespace/Name"; empty means every field.
	Dataset DatasetConfig `yaml:"dataset,omitempty"`
	Columns []string      `yaml:"columns,omitempty"`
}

// Load reads, defaults and validates the job file at path.
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}
	job, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return job, nil
}

// Parse decodes a job from r. Unknown keys are rejected.
func Parse(r io.Reader) (*Job, error) {
	var job Job
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&job); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	applyDefaults(&job)
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return &job, nil
}

// Default returns a job with every default applied and no inputs set.
func Default() *Job {
	var job Job
	applyDefaults(&job)
	return &job
}

func applyDefaults(job *Job) {
	if job.Merge.ChunkSize == 0 {
		job.Merge.ChunkSize = 20
	}
	if job.Merge.Concurrency == 0 {
		job.Merge.Concurrency = 1
	}
	if job.Merge.Unmatched == "" {
		job.Merge.Unmatched = "drop"
	}

	if job.Chain.Host == "" {
		job.Chain.Host = "http://localhost:11434/v1"
	}
	if job.Chain.Model == "" {
		job.Chain.Model = "qwen2.5:7b"
	}
	if job.Chain.Mode == "" {
		job.Chain.Mode = "tools"
	}
	if job.Chain.APIKeyEnv == "" {
		job.Chain.APIKeyEnv = "OPENAI_API_KEY"
	}
	if job.Chain.MaxParseAttempts == 0 {
		job.Chain.MaxParseAttempts = 3
	}
	if job.Chain.Retries == 0 {
		job.Chain.Retries = 3
	}
	if job.Chain.RetryDelay == "" {
		job.Chain.RetryDelay = "1s"
	}
	if job.Chain.ResponseSchema.LeftIndex == "" {
		job.Chain.ResponseSchema.LeftIndex = "index_1"
	}
	if job.Chain.ResponseSchema.RightIndex == "" {
		job.Chain.ResponseSchema.RightIndex = "index_2"
	}
	if job.Chain.ResponseSchema.Extra == nil {
		job.Chain.ResponseSchema.Extra = []ExtraFieldConfig{{
			Name:        "similarity",
			Type:        "number",
			Description: "Confidence from 0 to 1 that both rows describe the same item",
		}}
	}

	if job.Embedding.Host == "" {
		job.Embedding.Host = job.Chain.Host
	}
	if job.Embedding.Model == "" {
		job.Embedding.Model = "embeddinggemma"
	}
	if job.Embedding.BatchSize == 0 {
		job.Embedding.BatchSize = 100
	}
	if job.Embedding.StorePath == "" {
		job.Embedding.StorePath = ".llmerge/index"
	}
	if job.Embedding.Source.Type == "" {
		job.Embedding.Source.Type = SourcePDF
	}
	if job.Embedding.Source.ChunkSize == 0 {
		job.Embedding.Source.ChunkSize = 1000
	}
	if job.Embedding.K == 0 {
		job.Embedding.K = 4
	}
}

// Validate checks the values that do not depend on which command runs.
// Missing input paths are reported by the command that needs them.
func (j *Job) Validate() error {
	if j.Merge.ChunkSize < 1 {
		return fmt.Errorf("%w: merge.chunk_size must be at least 1", ErrInvalid)
	}
	if j.Merge.Concurrency < 1 {
		return fmt.Errorf("%w: merge.concurrency must be at least 1", ErrInvalid)
	}
	if _, err := j.UnmatchedPolicy(); err != nil {
		return fmt.Errorf("%w: merge.unmatched: %w", ErrInvalid, err)
	}
	if _, err := parseDuration(j.Merge.CallTimeout); err != nil {
		return fmt.Errorf("%w: merge.call_timeout: %w", ErrInvalid, err)
	}
	if _, err := parseDuration(j.Chain.RetryDelay); err != nil {
		return fmt.Errorf("%w: chain.retry_delay: %w", ErrInvalid, err)
	}
	if j.Chain.Retries < 1 {
		return fmt.Errorf("%w: chain.retries must be at least 1", ErrInvalid)
	}

	inputs := []struct {
		name string
		ds   DatasetConfig
	}{
		{"data.left", j.Data.Left},
		{"data.right", j.Data.Right},
		{"embedding.source.dataset", j.Embedding.Source.Dataset},
	}
	for _, in := range inputs {
		if err := in.ds.validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalid, in.name, err)
		}
	}
	if _, err := delimiter(j.Data.Output.Delimiter); err != nil {
		return fmt.Errorf("%w: data.output: %w", ErrInvalid, err)
	}

	switch j.Embedding.Source.Type {
	case SourcePDF, SourceDataset:
	default:
		return fmt.Errorf("%w: embedding.source.type %q", ErrInvalid, j.Embedding.Source.Type)
	}
	if j.Embedding.K < 1 {
		return fmt.Errorf("%w: embedding.k must be at least 1", ErrInvalid)
	}
	if j.Embedding.ScoreThreshold < 0 || j.Embedding.ScoreThreshold > 1 {
		return fmt.Errorf("%w: embedding.score_threshold must be between 0 and 1", ErrInvalid)
	}
	return nil
}

func (d DatasetConfig) validate() error {
	if d.Limit < 0 {
		return errors.New("limit must not be negative")
	}
	if _, err := delimiter(d.Delimiter); err != nil {
		return err
	}
	if d.Path == "" {
		return nil
	}
	return d.Schema.Validate()
}

// parseDuration treats the empty string as zero.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}

func delimiter(s string) (rune, error) {
	switch r := []rune(s); len(r) {
	case 0:
		return 0, nil
	case 1:
		return r[0], nil
	default:
		if s == `\t` {
			return '\t', nil
		}
		return 0, fmt.Errorf("delimiter %q must be a single character", s)
	}
}
