package api

import (
	"context"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/intraylabs/intray/internal/ai"
	"github.com/intraylabs/intray/internal/api/recovery"
	"github.com/intraylabs/intray/internal/model"
	"github.com/intraylabs/intray/internal/services"
	"github.com/intraylabs/intray/internal/stream"
)

// RecordService is the record surface the handlers call. Satisfied by
// *services.RecordService; narrowed to an interface so handler tests can
// run against fakes.
type RecordService interface {
	CreateRecord(ctx context.Context, req services.CreateRecordRequest) (*model.Record, error)
	GetRecord(ctx context.Context, userID, recordID string) (*model.Record, error)
	ListRecords(ctx context.Context, userID string, f model.RecordFilter) ([]*model.Record, error)
	UpdateRecord(ctx context.Context, userID, recordID string, req services.UpdateRecordRequest) (*model.Record, error)
	CancelRecord(ctx context.Context, userID, recordID string) (*model.Record, error)
	UploadRecord(ctx context.Context, userID, recordID string, req services.UploadRecordRequest) (*model.Record, error)
	ReanalyzeRecord(ctx context.Context, userID, recordID string) (*model.Record, error)
	Analyze(ctx context.Context, userID, text string, media []ai.Part) (*ai.Result, error)
}

// CategoryService is the category surface the handlers call.
type CategoryService interface {
	CreateCategory(ctx context.Context, userID, kind, name string) (*model.Category, error)
	ListCategories(ctx context.Context, userID, kind string) ([]*model.Category, error)
	DeleteCategory(ctx context.Context, userID, categoryID string) error
}

// ConnectionService is the connection surface the handlers call.
type ConnectionService interface {
	SaveConnection(ctx context.Context, c *model.Connection) (*model.Connection, error)
	GetConnection(ctx context.Context, userID, provider string) (*model.Connection, error)
	DeleteConnection(ctx context.Context, userID, provider string) error
}

// Deps carries everything the router needs. Broker and Health may be nil in
// tests; the stream and health endpoints then degrade rather than panic.
type Deps struct {
	Records     RecordService
	Categories  CategoryService
	Connections ConnectionService
	Broker      *stream.Broker
	StreamPing  time.Duration
	Health      HealthStatus
	AIEnabled   bool
}

// NewRouter creates the HTTP router with all API routes.
func NewRouter(deps Deps) *mux.Router {
	router := mux.NewRouter()

	// Global middlewares. Metrics wraps recovery so a recovered panic is
	// still counted as a 500.
	router.Use(metricsMiddleware)
	router.Use(recovery.Middleware)

	recordHandler := NewRecordHandler(deps.Records)
	categoryHandler := NewCategoryHandler(deps.Categories)
	connectionHandler := NewConnectionHandler(deps.Connections)
	streamHandler := NewStreamHandler(deps.Broker, deps.StreamPing)
	healthHandler := NewHealthHandler(deps.Health, deps.AIEnabled)

	// Health and metrics
	router.HandleFunc("/v0/health", healthHandler.CheckHealth).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Record endpoints. The stream route is registered before the
	// {recordId} routes so "stream" never matches as a record id.
	router.HandleFunc("/v0/records/stream", streamHandler.Stream).Methods("GET")
	router.HandleFunc("/v0/records", recordHandler.CreateRecord).Methods("POST")
	router.HandleFunc("/v0/records", recordHandler.ListRecords).Methods("GET")
	router.HandleFunc("/v0/records/{recordId}", recordHandler.GetRecord).Methods("GET")
	router.HandleFunc("/v0/records/{recordId}", recordHandler.UpdateRecord).Methods("PATCH")
	router.HandleFunc("/v0/records/{recordId}", recordHandler.CancelRecord).Methods("DELETE")
	router.HandleFunc("/v0/records/{recordId}/upload", recordHandler.UploadRecord).Methods("POST")
	router.HandleFunc("/v0/records/{recordId}/reanalyze", recordHandler.ReanalyzeRecord).Methods("POST")

	// Direct analysis without a persisted record
	router.HandleFunc("/v0/analyze", recordHandler.Analyze).Methods("POST")

	// Category endpoints
	router.HandleFunc("/v0/categories", categoryHandler.CreateCategory).Methods("POST")
	router.HandleFunc("/v0/categories", categoryHandler.ListCategories).Methods("GET")
	router.HandleFunc("/v0/categories/{categoryId}", categoryHandler.DeleteCategory).Methods("DELETE")

	// Connection endpoints
	router.HandleFunc("/v0/connections/{provider}", connectionHandler.SaveConnection).Methods("PUT")
	router.HandleFunc("/v0/connections/{provider}", connectionHandler.GetConnection).Methods("GET")
	router.HandleFunc("/v0/connections/{provider}", connectionHandler.DeleteConnection).Methods("DELETE")

	return router
}
