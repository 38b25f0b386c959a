package ai

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// PipelineConfig controls the retry budget and date resolution.
type PipelineConfig struct {
	MaxAttempts int            // total attempts, including the first
	Location    *time.Location // timezone for resolving relative dates
}

// Pipeline is the model-backed classifier. It prompts the caller, salvages
// the response through the recovery ladder, and validates the outcome.
// Transport and recovery failures are retried within the attempt budget;
// validation failures are terminal.
type Pipeline struct {
	caller   Caller
	attempts int
	loc      *time.Location
	log      zerolog.Logger
}

// NewPipeline constructs a Pipeline from dependencies.
func NewPipeline(caller Caller, cfg PipelineConfig, log zerolog.Logger) *Pipeline {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Pipeline{caller: caller, attempts: cfg.MaxAttempts, loc: cfg.Location, log: log}
}

// Classify obtains one normalized Result for the input.
func (p *Pipeline) Classify(ctx context.Context, in Input) (*Result, error) {
	if strings.TrimSpace(in.Text) == "" && len(in.Parts) == 0 {
		return nil, &ValidationError{Field: "input", Msg: "nothing to analyze"}
	}

	prompt := buildPrompt(time.Now().In(p.loc), in.CalendarCategories, in.MemoCategories)
	parts := buildParts(in)

	var lastErr error
	var lastRaw string
	for attempt := 1; attempt <= p.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, err := p.caller.Invoke(ctx, prompt, parts)
		if err != nil {
			if !retryable(err) {
				return nil, err
			}
			p.log.Warn().Err(err).Int("attempt", attempt).Msg("model call failed")
			lastErr = err
			continue
		}
		lastRaw = raw

		rec, err := Recover(raw)
		if err != nil {
			p.log.Warn().Err(err).Int("attempt", attempt).Msg("response recovery failed")
			lastErr = err
			continue
		}

		res, err := p.normalize(rec)
		if err != nil {
			return nil, err
		}
		if rec.Stage != StageParsed {
			p.log.Info().Str("stage", string(rec.Stage)).Int("attempt", attempt).Msg("response salvaged")
		}
		return res, nil
	}

	return nil, &ExhaustedError{Attempts: p.attempts, LastRaw: truncateRaw(lastRaw), Last: lastErr}
}

// normalize decodes a recovered payload, coerces the kind and validates.
// An unrecognized or missing kind is forced to MEMO rather than rejected:
// the system always produces some classification.
func (p *Pipeline) normalize(rec Recovered) (*Result, error) {
	var res Result
	if err := json.Unmarshal(rec.JSON, &res); err != nil {
		return nil, &ValidationError{Field: "result", Msg: err.Error()}
	}
	res.Stage = rec.Stage

	kind := Kind(strings.ToUpper(strings.TrimSpace(string(res.Kind))))
	if kind != KindCalendar && kind != KindMemo {
		p.log.Warn().Str("type", string(res.Kind)).Msg("invalid classification type, forcing MEMO")
		kind = KindMemo
	}
	res.Kind = kind

	if err := res.Validate(); err != nil {
		return nil, err
	}
	return &res, nil
}

// buildParts assembles the model content: media parts first, the input text
// after, labeled so the model can tell content from instructions.
func buildParts(in Input) []Part {
	parts := make([]Part, 0, len(in.Parts)+1)
	parts = append(parts, in.Parts...)
	if s := strings.TrimSpace(in.Text); s != "" {
		label := "Content to analyze:\n"
		if len(in.Parts) > 0 {
			label = "Additional context:\n"
		}
		parts = append(parts, Part{Text: label + s})
	}
	return parts
}
