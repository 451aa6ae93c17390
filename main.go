package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	_ "github.com/joho/godotenv/autoload"
	openai "github.com/sashabaranov/go-openai"

	"venue-enrichment/internal/dedup"
	"venue-enrichment/internal/embedding"
	"venue-enrichment/internal/inferrer"
	"venue-enrichment/internal/models"
	"venue-enrichment/internal/placemap"
	"venue-enrichment/internal/prompts"
	"venue-enrichment/internal/scoring"
	"venue-enrichment/internal/trust"
	"venue-enrichment/internal/workflow"
	"venue-enrichment/pkg/config"
	"venue-enrichment/pkg/database"
	"venue-enrichment/pkg/events"
	"venue-enrichment/pkg/health"
	"venue-enrichment/pkg/logging"
)

func main() {
	cfg := config.Load()

	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		log.Error("failed to load scoring policy", err)
		os.Exit(1)
	}
	if err := policy.Validate(); err != nil {
		log.Error("invalid scoring policy", err)
		os.Exit(1)
	}

	pm, err := prompts.NewManager()
	if err != nil {
		log.Error("failed to load prompts", err)
		os.Exit(1)
	}

	mapper, err := placemap.NewService(cfg.PlacesAPIKey, log)
	if err != nil {
		log.Error("failed to create places client", err)
		os.Exit(1)
	}

	aiClient := openai.NewClient(cfg.OpenAIAPIKey)
	inf := inferrer.New(aiClient, pm, inferrer.Config{
		Model:         cfg.OpenAIModel,
		Temperature:   float32(cfg.OpenAITemperature),
		MaxTokens:     cfg.OpenAIMaxTokens,
		ConfidenceCap: policy.FallbackConfidence.Cap,
		MinTokenLen:   policy.FallbackConfidence.MinTokenLen,
	})
	emb := embedding.NewAdapter(aiClient, cfg.EmbeddingModel)

	// Persistence is optional; without a database URL the engine keeps runs
	// and events in memory only.
	var db *database.DB
	var store workflow.RunStore
	var eventStore events.EventStore = events.NewMemStore()
	if cfg.DatabaseURL != "" {
		db, err = database.New(cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to connect to database", err)
			os.Exit(1)
		}
		defer db.Close()
		store = db

		es, err := events.NewSQLEventStore(db)
		if err != nil {
			log.Error("failed to create event store", err)
			os.Exit(1)
		}
		eventStore = es
	}

	engineCfg := workflow.EngineConfig{
		WorkerCount:         cfg.WorkerCount,
		QueueSize:           cfg.QueueSize,
		MappingMaxRetries:   cfg.MappingMaxRetries,
		InferenceMaxRetries: cfg.InferenceMaxRetries,
		RetryBackoff:        cfg.RetryBackoff,
		MappingTimeout:      cfg.MappingTimeout,
		InferenceTimeout:    cfg.InferenceTimeout,
		EmbeddingTimeout:    cfg.EmbeddingTimeout,
		DuplicateThreshold:  cfg.DuplicateThreshold,
		DuplicateTopK:       cfg.DuplicateTopK,
		ProviderRPS:         cfg.ProviderRPS,
		ProviderBurst:       cfg.ProviderBurst,
		ModelRPS:            cfg.ModelRPS,
		ModelBurst:          cfg.ModelBurst,
	}

	engine, err := workflow.NewEngine(workflow.Deps{
		Mapper:   mapper,
		Inferrer: inf,
		Embedder: emb,
		Scorer:   scoring.New(policy),
		Index:    dedup.NewIndex(),
		Store:    store,
		Events:   eventStore,
		Trust:    trust.NewDefault(),
		Logger:   log,
	}, engineCfg)
	if err != nil {
		log.Error("failed to create engine", err)
		os.Exit(1)
	}
	engine.Start()

	app := &App{engine: engine, events: eventStore, log: log.WithComponent("http")}

	healthMgr := health.NewManager(log)
	healthMgr.Register(health.QueueCheck("job_queue", func() int64 {
		return engine.GetStats().QueueDepth
	}, cfg.QueueSize))
	if db != nil {
		healthMgr.Register(health.DatabaseCheck("database", db.Conn()))
	}

	router := mux.NewRouter()
	router.HandleFunc("/submissions", app.submitHandler).Methods("POST")
	router.HandleFunc("/runs/{id}", app.runHandler).Methods("GET")
	router.HandleFunc("/runs/{id}/events", app.runEventsHandler).Methods("GET")
	router.HandleFunc("/stats", app.statsHandler).Methods("GET")
	router.HandleFunc("/health", healthMgr.Handler()).Methods("GET")

	server := &http.Server{Addr: ":" + cfg.Port, Handler: router}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Info("shutdown signal received")
		if err := engine.Stop(30 * time.Second); err != nil {
			log.Error("engine shutdown error", err)
		}
		cancel()
	}()

	go func() {
		log.Info("server starting", logging.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown error", err)
	}
	log.Info("shutdown complete")
}

// App carries HTTP handler dependencies.
type App struct {
	engine *workflow.Engine
	events events.EventStore
	log    *logging.Logger
}

type submissionRequest struct {
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	Description string  `json:"description"`
	VendorID    *string `json:"vendor_id,omitempty"`
	PlaceRef    *string `json:"place_ref,omitempty"`

	// Vendor history, when the caller knows it; feeds queue priority.
	VendorPublished int  `json:"vendor_published,omitempty"`
	VendorRejected  int  `json:"vendor_rejected,omitempty"`
	VendorVerified  bool `json:"vendor_verified,omitempty"`
}

func (a *App) submitHandler(w http.ResponseWriter, r *http.Request) {
	var req submissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Address == "" {
		http.Error(w, "name and address are required", http.StatusBadRequest)
		return
	}

	sub := models.VenueSubmission{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Address:     req.Address,
		Description: req.Description,
		VendorID:    req.VendorID,
		PlaceRef:    req.PlaceRef,
		SubmittedAt: time.Now(),
	}

	history := trust.VendorHistory{
		Published: req.VendorPublished,
		Rejected:  req.VendorRejected,
		Verified:  req.VendorVerified,
	}
	if req.VendorID != nil {
		history.VendorID = *req.VendorID
	}

	runID, err := a.engine.Submit(sub, history)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"run_id":        runID,
		"submission_id": sub.ID,
	})
}

func (a *App) runHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	run, ok := a.engine.GetRun(id)
	if !ok {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(run)
}

func (a *App) runEventsHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	evs, err := a.events.ListByRun(r.Context(), id)
	if err != nil {
		a.log.Error("failed to list events", err)
		http.Error(w, "failed to list events", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(evs)
}

func (a *App) statsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(a.engine.GetStats())
}
