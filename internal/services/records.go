package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/intraylabs/intray/internal/ai"
	"github.com/intraylabs/intray/internal/jobs"
	"github.com/intraylabs/intray/internal/metrics"
	"github.com/intraylabs/intray/internal/model"
	"github.com/intraylabs/intray/internal/store"
	"github.com/intraylabs/intray/internal/stream"
	"github.com/intraylabs/intray/internal/uploader"
)

// RecordService drives the capture lifecycle: create, background analysis,
// edits, upload to the target service, cancellation.
type RecordService struct {
	store      store.Store
	classifier ai.Classifier
	fallback   ai.Classifier
	runner     *jobs.Runner
	broker     *stream.Broker
	calendar   uploader.Target
	notion     uploader.Target

	calendarCategories []string
	memoCategories     []string
	log                zerolog.Logger
}

// RecordServiceConfig wires the service's collaborators. Store is required;
// everything else degrades gracefully when absent: a nil Runner runs
// analysis inline, a nil Broker publishes nothing, nil uploaders reject
// uploads for their kind.
type RecordServiceConfig struct {
	Store      store.Store
	Classifier ai.Classifier
	Fallback   ai.Classifier
	Runner     *jobs.Runner
	Broker     *stream.Broker
	Calendar   uploader.Target
	Notion     uploader.Target

	// Default category vocabulary offered to the classifier, merged with
	// the user's own categories.
	CalendarCategories []string
	MemoCategories     []string
}

func NewRecordService(cfg RecordServiceConfig, log zerolog.Logger) *RecordService {
	if cfg.Classifier == nil {
		cfg.Classifier = ai.Disabled{}
	}
	if cfg.Fallback == nil {
		cfg.Fallback = ai.NewKeyword()
	}
	return &RecordService{
		store:              cfg.Store,
		classifier:         cfg.Classifier,
		fallback:           cfg.Fallback,
		runner:             cfg.Runner,
		broker:             cfg.Broker,
		calendar:           cfg.Calendar,
		notion:             cfg.Notion,
		calendarCategories: cfg.CalendarCategories,
		memoCategories:     cfg.MemoCategories,
		log:                log,
	}
}

// CreateRecordRequest is one incoming capture. Media parts are analyzed but
// never persisted; only Text survives for later reanalysis.
type CreateRecordRequest struct {
	UserID    string
	InputType model.InputType
	Text      string
	Media     []ai.Part
}

// UpdateRecordRequest carries user edits. Nil Text leaves the text alone;
// empty AnalysisData leaves the analysis alone.
type UpdateRecordRequest struct {
	Text         *string
	AnalysisData json.RawMessage
}

// UploadRecordRequest confirms a record for upload. FinalData overrides the
// stored analysis when present. GoogleToken takes precedence over a stored
// google connection for calendar uploads.
type UploadRecordRequest struct {
	FinalData   json.RawMessage
	GoogleToken string
}

// recordEvent is the payload for analysis and update stream events. Fields
// are populated per event kind.
type recordEvent struct {
	RecordID     string             `json:"recordId"`
	Status       model.RecordStatus `json:"status,omitempty"`
	AnalysisData json.RawMessage    `json:"analysisData,omitempty"`
	UploadResult json.RawMessage    `json:"uploadResult,omitempty"`
	Error        string             `json:"error,omitempty"`
}

// analysisFailure is the diagnostic stored in Result when classification
// gives up. The record stays PENDING so the user can retry or edit.
type analysisFailure struct {
	AnalysisFailed bool   `json:"analysisFailed"`
	Error          string `json:"error"`
	RawText        string `json:"rawText,omitempty"`
}

// CreateRecord stores the capture and schedules its analysis. The record is
// returned immediately in PENDING state; analysis results arrive on the
// event stream.
func (s *RecordService) CreateRecord(ctx context.Context, req CreateRecordRequest) (*model.Record, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: userId is required", model.ErrValidation)
	}
	if req.InputType == "" {
		req.InputType = model.InputText
	}
	switch req.InputType {
	case model.InputText, model.InputImage, model.InputPDF:
	default:
		return nil, fmt.Errorf("%w: unknown inputType %q", model.ErrValidation, req.InputType)
	}
	if strings.TrimSpace(req.Text) == "" && len(req.Media) == 0 {
		return nil, fmt.Errorf("%w: text or file content is required", model.ErrValidation)
	}

	rec, err := s.store.Records().Create(ctx, &model.Record{
		UserID:    req.UserID,
		InputType: req.InputType,
		Text:      req.Text,
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordsCreated.WithLabelValues(string(rec.InputType)).Inc()
	s.publish(rec.UserID, stream.EventRecordCreated, rec)
	s.scheduleAnalysis(rec, req.Media)
	return rec, nil
}

func (s *RecordService) GetRecord(ctx context.Context, userID, recordID string) (*model.Record, error) {
	return s.store.Records().Get(ctx, userID, recordID)
}

func (s *RecordService) ListRecords(ctx context.Context, userID string, f model.RecordFilter) ([]*model.Record, error) {
	return s.store.Records().List(ctx, userID, f)
}

// UpdateRecord applies user edits to text and analysis data. Supplying
// analysis data marks the record ANALYZED; a request with no effective
// change returns the current record untouched.
func (s *RecordService) UpdateRecord(ctx context.Context, userID, recordID string, req UpdateRecordRequest) (*model.Record, error) {
	cur, err := s.store.Records().Get(ctx, userID, recordID)
	if err != nil {
		return nil, err
	}
	if terminal(cur.Status) {
		return nil, fmt.Errorf("%w: record is %s", model.ErrInvalidState, cur.Status)
	}

	var upd model.RecordUpdate
	changed := false
	if req.Text != nil && *req.Text != cur.Text {
		if strings.TrimSpace(*req.Text) == "" {
			return nil, fmt.Errorf("%w: text must not be empty", model.ErrValidation)
		}
		upd.Text = req.Text
		changed = true
	}
	if len(req.AnalysisData) > 0 {
		var res ai.Result
		if err := json.Unmarshal(req.AnalysisData, &res); err != nil {
			return nil, fmt.Errorf("%w: analysisData is not valid JSON", model.ErrValidation)
		}
		if err := res.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrValidation, err)
		}
		status := model.StatusAnalyzed
		upd.Result = req.AnalysisData
		upd.Status = &status
		changed = true
	}
	if !changed {
		return cur, nil
	}

	updated, err := s.store.Records().Update(ctx, userID, recordID, upd)
	if err != nil {
		return nil, err
	}
	s.publish(userID, stream.EventRecordUpdated, recordEvent{
		RecordID:     updated.RecordID,
		Status:       updated.Status,
		AnalysisData: updated.Result,
	})
	return updated, nil
}

// CancelRecord retires a record without uploading it. The record is hidden
// from default listings and swept by retention later.
func (s *RecordService) CancelRecord(ctx context.Context, userID, recordID string) (*model.Record, error) {
	cur, err := s.store.Records().Get(ctx, userID, recordID)
	if err != nil {
		return nil, err
	}
	if terminal(cur.Status) {
		return nil, fmt.Errorf("%w: record is %s", model.ErrInvalidState, cur.Status)
	}
	status := model.StatusCanceled
	now := time.Now().UTC()
	return s.store.Records().Update(ctx, userID, recordID, model.RecordUpdate{
		Status:       &status,
		DeletionTime: &now,
	})
}

// UploadRecord sends a confirmed analysis to its target service. The
// confirmed payload is persisted before the upload is attempted, so a
// failed or interrupted upload never loses the user's confirmation; the
// record stays ANALYZED and can be retried.
func (s *RecordService) UploadRecord(ctx context.Context, userID, recordID string, req UploadRecordRequest) (*model.Record, error) {
	cur, err := s.store.Records().Get(ctx, userID, recordID)
	if err != nil {
		return nil, err
	}
	if cur.Status != model.StatusAnalyzed {
		return nil, fmt.Errorf("%w: record is %s, only %s records can be uploaded", model.ErrInvalidState, cur.Status, model.StatusAnalyzed)
	}

	final := req.FinalData
	if len(final) == 0 {
		final = cur.Result
	}
	if len(final) == 0 {
		return nil, fmt.Errorf("%w: record has no analysis to upload", model.ErrValidation)
	}
	var res ai.Result
	if err := json.Unmarshal(final, &res); err != nil {
		return nil, fmt.Errorf("%w: finalData is not valid JSON", model.ErrValidation)
	}
	if err := res.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrValidation, err)
	}

	if _, err := s.store.Records().Update(ctx, userID, recordID, model.RecordUpdate{FinalResult: final}); err != nil {
		return nil, err
	}

	target, creds, err := s.resolveTarget(ctx, userID, res.Kind, req.GoogleToken)
	if err != nil {
		return nil, err
	}
	targetName := strings.ToLower(string(res.Kind))
	outcome, err := target.Upload(ctx, creds, uploader.Request{Result: &res, SourceText: cur.Text})
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(targetName, metrics.OutcomeFailed).Inc()
		s.log.Warn().Err(err).Str("record_id", recordID).Str("kind", string(res.Kind)).Msg("upload failed")
		s.publish(userID, stream.EventRecordUpdated, recordEvent{
			RecordID: recordID,
			Status:   model.StatusAnalyzed,
			Error:    err.Error(),
		})
		return nil, err
	}
	metrics.UploadsTotal.WithLabelValues(targetName, metrics.OutcomeOK).Inc()

	status := model.StatusCompleted
	now := time.Now().UTC()
	updated, err := s.store.Records().Update(ctx, userID, recordID, model.RecordUpdate{
		Status:         &status,
		CompletionTime: &now,
		DeletionTime:   &now,
	})
	if err != nil {
		return nil, err
	}
	s.publish(userID, stream.EventRecordUpdated, recordEvent{
		RecordID:     updated.RecordID,
		Status:       updated.Status,
		UploadResult: outcome,
	})
	return updated, nil
}

// ReanalyzeRecord schedules a fresh classification of the stored text.
// Media parts are not persisted, so image and PDF records reanalyze from
// their extracted text only.
func (s *RecordService) ReanalyzeRecord(ctx context.Context, userID, recordID string) (*model.Record, error) {
	cur, err := s.store.Records().Get(ctx, userID, recordID)
	if err != nil {
		return nil, err
	}
	if terminal(cur.Status) {
		return nil, fmt.Errorf("%w: record is %s", model.ErrInvalidState, cur.Status)
	}
	s.scheduleAnalysis(cur, nil)
	return cur, nil
}

// Analyze classifies input without creating a record.
func (s *RecordService) Analyze(ctx context.Context, userID, text string, media []ai.Part) (*ai.Result, error) {
	if strings.TrimSpace(text) == "" && len(media) == 0 {
		return nil, fmt.Errorf("%w: text or file content is required", model.ErrValidation)
	}
	cal, memo := s.categoryVocabulary(ctx, userID)
	return s.classify(ctx, ai.Input{
		Text:               text,
		Parts:              media,
		CalendarCategories: cal,
		MemoCategories:     memo,
	})
}

// scheduleAnalysis queues the classification task. Without a runner the
// task executes inline. A full or closed queue leaves the record PENDING;
// the user can reanalyze later.
func (s *RecordService) scheduleAnalysis(rec *model.Record, media []ai.Part) {
	task := func(ctx context.Context) {
		s.runAnalysis(ctx, rec.UserID, rec.RecordID, rec.Text, media)
	}
	if s.runner == nil {
		task(context.Background())
		return
	}
	if err := s.runner.Submit(task); err != nil {
		s.log.Warn().Err(err).Str("record_id", rec.RecordID).Msg("could not schedule analysis")
	}
}

func (s *RecordService) runAnalysis(ctx context.Context, userID, recordID, text string, media []ai.Part) {
	cal, memo := s.categoryVocabulary(ctx, userID)
	res, classifyErr := s.classify(ctx, ai.Input{
		Text:               text,
		Parts:              media,
		CalendarCategories: cal,
		MemoCategories:     memo,
	})

	// Re-read before writing: the record may have been canceled, uploaded
	// or purged while the model was running. Results for records past
	// PENDING/ANALYZED are dropped.
	cur, err := s.store.Records().Get(ctx, userID, recordID)
	if err != nil {
		s.log.Warn().Err(err).Str("record_id", recordID).Msg("record gone before analysis finished")
		return
	}
	if cur.Status != model.StatusPending && cur.Status != model.StatusAnalyzed {
		s.log.Debug().Str("record_id", recordID).Str("status", string(cur.Status)).Msg("dropping analysis result")
		return
	}
	if classifyErr != nil {
		s.failAnalysis(ctx, cur, classifyErr)
		return
	}

	payload, err := json.Marshal(res)
	if err != nil {
		s.failAnalysis(ctx, cur, err)
		return
	}
	status := model.StatusAnalyzed
	updated, err := s.store.Records().Update(ctx, userID, recordID, model.RecordUpdate{
		Status: &status,
		Result: payload,
	})
	if err != nil {
		s.log.Error().Err(err).Str("record_id", recordID).Msg("could not store analysis result")
		return
	}
	metrics.AnalysisTotal.WithLabelValues(metrics.OutcomeOK).Inc()
	s.publish(userID, stream.EventAnalysisCompleted, recordEvent{
		RecordID:     updated.RecordID,
		Status:       updated.Status,
		AnalysisData: updated.Result,
	})
}

// failAnalysis stores a failure diagnostic in Result and leaves the record
// PENDING.
func (s *RecordService) failAnalysis(ctx context.Context, rec *model.Record, cause error) {
	metrics.AnalysisTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
	s.log.Warn().Err(cause).Str("record_id", rec.RecordID).Msg("analysis failed")

	diag := analysisFailure{AnalysisFailed: true, Error: cause.Error()}
	var ex *ai.ExhaustedError
	if errors.As(cause, &ex) {
		diag.RawText = ex.LastRaw
	}
	payload, err := json.Marshal(diag)
	if err != nil {
		return
	}
	if _, err := s.store.Records().Update(ctx, rec.UserID, rec.RecordID, model.RecordUpdate{Result: payload}); err != nil {
		s.log.Error().Err(err).Str("record_id", rec.RecordID).Msg("could not store analysis failure")
	}
	s.publish(rec.UserID, stream.EventAnalysisFailed, recordEvent{
		RecordID: rec.RecordID,
		Error:    cause.Error(),
	})
}

// classify runs the configured classifier and falls back to keyword rules
// when no model is configured.
func (s *RecordService) classify(ctx context.Context, in ai.Input) (*ai.Result, error) {
	res, err := s.classifier.Classify(ctx, in)
	if err != nil && errors.Is(err, ai.ErrNotConfigured) {
		s.log.Debug().Msg("classifier not configured, using keyword fallback")
		return s.fallback.Classify(ctx, in)
	}
	return res, err
}

// categoryVocabulary merges the configured default categories with the
// user's own. A store failure degrades to the defaults.
func (s *RecordService) categoryVocabulary(ctx context.Context, userID string) (cal, memo []string) {
	cal = append([]string(nil), s.calendarCategories...)
	memo = append([]string(nil), s.memoCategories...)

	cats, err := s.store.Categories().List(ctx, userID, "")
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("could not load user categories")
		return cal, memo
	}
	for _, c := range cats {
		switch strings.ToUpper(c.Kind) {
		case string(ai.KindCalendar):
			cal = appendUnique(cal, c.Name)
		case string(ai.KindMemo):
			memo = appendUnique(memo, c.Name)
		}
	}
	return cal, memo
}

// resolveTarget picks the uploader and credentials for a result kind.
// Calendar uploads prefer an explicit per-request token over the stored
// google connection; memo uploads always use the notion connection.
func (s *RecordService) resolveTarget(ctx context.Context, userID string, kind ai.Kind, googleToken string) (uploader.Target, uploader.Credentials, error) {
	switch kind {
	case ai.KindCalendar:
		if s.calendar == nil {
			return nil, uploader.Credentials{}, errors.New("calendar uploads are not configured")
		}
		creds := uploader.Credentials{Token: googleToken}
		conn, err := s.store.Connections().Get(ctx, userID, model.ProviderGoogle)
		switch {
		case err == nil:
			if creds.Token == "" {
				creds.Token = conn.AccessToken
			}
			creds.TargetID = conn.TargetID
		case !errors.Is(err, model.ErrNotFound):
			return nil, uploader.Credentials{}, err
		}
		if creds.Token == "" {
			return nil, uploader.Credentials{}, fmt.Errorf("%w: a google token or google connection is required for calendar uploads", model.ErrValidation)
		}
		return s.calendar, creds, nil

	case ai.KindMemo:
		if s.notion == nil {
			return nil, uploader.Credentials{}, errors.New("memo uploads are not configured")
		}
		conn, err := s.store.Connections().Get(ctx, userID, model.ProviderNotion)
		if errors.Is(err, model.ErrNotFound) {
			return nil, uploader.Credentials{}, fmt.Errorf("%w: a notion connection is required for memo uploads", model.ErrValidation)
		}
		if err != nil {
			return nil, uploader.Credentials{}, err
		}
		if conn.TargetID == "" {
			return nil, uploader.Credentials{}, fmt.Errorf("%w: the notion connection has no database id", model.ErrValidation)
		}
		return s.notion, uploader.Credentials{Token: conn.AccessToken, TargetID: conn.TargetID}, nil

	default:
		return nil, uploader.Credentials{}, fmt.Errorf("%w: unknown result type %q", model.ErrValidation, kind)
	}
}

func (s *RecordService) publish(userID string, kind stream.EventKind, payload any) {
	if s.broker == nil {
		return
	}
	s.broker.Publish(userID, kind, payload)
}

// terminal reports whether a status admits no further transitions.
func terminal(st model.RecordStatus) bool {
	return st == model.StatusCompleted || st == model.StatusCanceled
}

func appendUnique(list []string, v string) []string {
	for _, have := range list {
		if strings.EqualFold(have, v) {
			return list
		}
	}
	return append(list, v)
}
