package config

import (
	"fmt"
	"time"

	"github.com/poiesic/llmerge/ai"
	"github.com/poiesic/llmerge/core"
	"github.com/poiesic/llmerge/merge"
	"github.com/poiesic/llmerge/tabular"
)

// MatchSchema returns the configured match record schema.
func (j *Job) MatchSchema() core.MatchSchema {
	rs := j.Chain.ResponseSchema
	schema := core.MatchSchema{
		LeftIndexField:  rs.LeftIndex,
		RightIndexField: rs.RightIndex,
	}
	for _, f := range rs.Extra {
		schema.Extra = append(schema.Extra, core.SchemaField{
			Name:        f.Name,
			Type:        f.Type,
			Description: f.Description,
		})
	}
	return schema
}

// AIConfig builds the provider configuration. The API key is read from
// the environment.
func (j *Job) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithChatHost(j.Chain.Host),
		ai.WithEmbeddingHost(j.Embedding.Host),
		ai.WithChatModel(j.Chain.Model),
		ai.WithEmbeddingModel(j.Embedding.Model),
		ai.WithAPIKey(j.APIKey()),
		ai.WithTemperature(j.Chain.Temperature),
		ai.WithMatchMode(ai.MatchMode(j.Chain.Mode)),
		ai.WithMaxParseAttempts(j.Chain.MaxParseAttempts),
		ai.WithEmbeddingBatchSize(j.Embedding.BatchSize),
		ai.WithSystemPrompt(j.Chain.SystemPrompt),
		ai.WithMatchSchema(j.MatchSchema()),
	)
}

// RetryDelay returns the base delay between matcher retries.
func (j *Job) RetryDelay() time.Duration {
	d, err := parseDuration(j.Chain.RetryDelay)
	if err != nil {
		return time.Second
	}
	return d
}

// CallTimeout returns the per-call matcher timeout; zero means none.
func (j *Job) CallTimeout() time.Duration {
	d, _ := parseDuration(j.Merge.CallTimeout)
	return d
}

// UnmatchedPolicy parses merge.unmatched.
func (j *Job) UnmatchedPolicy() (merge.Unmatched, error) {
	return merge.ParseUnmatched(j.Merge.Unmatched)
}

// Keys returns the left and right join key fields.
func (j *Job) Keys() (left, right core.Field, err error) {
	if j.Merge.LeftOn == "" || j.Merge.RightOn == "" {
		return core.Field{}, core.Field{}, fmt.Errorf("%w: merge.left_on and merge.right_on are required", ErrMissingInput)
	}
	return core.ParseField(j.Merge.LeftOn), core.ParseField(j.Merge.RightOn), nil
}

// MergeOptions converts the merge section into joiner options.
func (j *Job) MergeOptions() ([]merge.Option, error) {
	policy, err := j.UnmatchedPolicy()
	if err != nil {
		return nil, err
	}
	return []merge.Option{
		merge.WithChunkSize(j.Merge.ChunkSize),
		merge.WithConcurrency(j.Merge.Concurrency),
		merge.WithSchema(j.MatchSchema()),
		merge.WithUnmatched(policy),
		merge.WithCallTimeout(j.CallTimeout()),
		merge.WithLabels(merge.Labels{
			Left:  j.Merge.Labels.Left,
			Right: j.Merge.Labels.Right,
			Match: j.Merge.Labels.Match,
		}),
	}, nil
}

// Source converts a dataset description into a tabular read request.
func (d DatasetConfig) Source() (tabular.Source, error) {
	if d.Path == "" {
		return tabular.Source{}, fmt.Errorf("%w: dataset path", ErrMissingInput)
	}
	delim, err := delimiter(d.Delimiter)
	if err != nil {
		return tabular.Source{}, err
	}
	return tabular.Source{
		Path:       d.Path,
		Format:     tabular.Format(d.Format),
		Schema:     d.Schema,
		Limit:      d.Limit,
		Delimiter:  delim,
		NullValues: d.NullValues,
	}, nil
}

// Sink converts the output description into a tabular write request.
func (o OutputConfig) Sink() (tabular.Sink, error) {
	if o.Path == "" {
		return tabular.Sink{}, fmt.Errorf("%w: data.output.path", ErrMissingInput)
	}
	delim, err := delimiter(o.Delimiter)
	if err != nil {
		return tabular.Sink{}, err
	}
	return tabular.Sink{Path: o.Path, Format: tabular.Format(o.Format), Delimiter: delim}, nil
}

// SourceColumns parses embedding.source.columns.
func (s SourceConfig) SourceColumns() []core.Field {
	if len(s.Columns) == 0 {
		return nil
	}
	fields := make([]core.Field, len(s.Columns))
	for i, c := range s.Columns {
		fields[i] = core.ParseField(c)
	}
	return fields
}
