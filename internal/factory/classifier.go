package factory

import (
	"github.com/rs/zerolog"

	"github.com/intraylabs/intray/internal/ai"
	"github.com/intraylabs/intray/internal/config"
)

// NewClassifier returns the model-backed pipeline when an API key is
// configured, or the disabled classifier otherwise. The boolean reports
// whether the model is in play; without it the record service classifies
// with its keyword fallback.
func NewClassifier(cfg *config.Config, log zerolog.Logger) (ai.Classifier, bool) {
	caller, err := ai.NewGemini(ai.GeminiConfig{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
	})
	if err != nil {
		log.Warn().Msg("no model API key configured; classification falls back to keyword heuristics")
		return ai.Disabled{}, false
	}
	return ai.NewPipeline(caller, ai.PipelineConfig{
		MaxAttempts: cfg.MaxAnalysisAttempts,
		Location:    cfg.Location(),
	}, log), true
}
