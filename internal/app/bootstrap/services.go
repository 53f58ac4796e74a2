package bootstrap

import (
	"database/sql"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/Schofield90/whatsapp-lead-system/internal/api/router"
	"github.com/Schofield90/whatsapp-lead-system/internal/bookings"
	"github.com/Schofield90/whatsapp-lead-system/internal/calendar"
	"github.com/Schofield90/whatsapp-lead-system/internal/callinsights"
	appconfig "github.com/Schofield90/whatsapp-lead-system/internal/config"
	"github.com/Schofield90/whatsapp-lead-system/internal/conversation"
	"github.com/Schofield90/whatsapp-lead-system/internal/followups"
	"github.com/Schofield90/whatsapp-lead-system/internal/leads"
	"github.com/Schofield90/whatsapp-lead-system/internal/messaging"
	"github.com/Schofield90/whatsapp-lead-system/internal/notify"
	"github.com/Schofield90/whatsapp-lead-system/internal/observability/metrics"
	"github.com/Schofield90/whatsapp-lead-system/internal/orgs"
	"github.com/Schofield90/whatsapp-lead-system/internal/reminders"
	"github.com/Schofield90/whatsapp-lead-system/internal/training"
	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

// Infra holds the external clients an App is assembled from. Postgres, SQL
// and LLM are required; the rest are optional and degrade to in-process
// fallbacks.
type Infra struct {
	Postgres   leads.DB
	SQL        *sql.DB
	Redis      *redis.Client
	LLM        conversation.LLMClient
	Model      string
	Sender     messaging.Sender
	Calendar   calendar.Provider
	Email      notify.EmailSender
	S3         callinsights.S3API
	Dynamo     conversation.DynamoAPI
	SQS        conversation.SQSAPI
	Registerer prometheus.Registerer
}

// App is the fully wired lead-conversation system.
type App struct {
	Leads         leads.Repository
	Orgs          orgs.Repository
	Conversations conversation.Store
	Ledger        *conversation.CostLedger
	Conversation  *conversation.Service
	Dispatcher    conversation.Dispatcher
	Queue         *conversation.SQSQueue
	Bookings      *bookings.Orchestrator
	Reminders     *reminders.Sweeper
	FollowUps     *followups.Sweeper

	LeadsHandler        *leads.Handler
	ConversationHandler *conversation.Handler
	TrainingHandler     *training.Handler
	CallInsightsHandler *callinsights.Handler
	BookingsHandler     *bookings.Handler
	RemindersHandler    *reminders.Handler
	FollowUpsHandler    *followups.Handler
}

// Build wires every service and handler from cfg and infra.
func Build(cfg *appconfig.Config, infra Infra, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if infra.Postgres == nil || infra.SQL == nil {
		return nil, fmt.Errorf("bootstrap: postgres connections are required")
	}
	if infra.LLM == nil {
		return nil, fmt.Errorf("bootstrap: llm client is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	reg := infra.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	messagingMetrics := metrics.NewMessagingMetrics(reg)
	llmMetrics := metrics.NewLLMMetrics(reg)
	reminderMetrics := metrics.NewReminderMetrics(reg)

	sender := infra.Sender
	if sender == nil {
		logger.Warn("no WhatsApp sender configured; outbound messages will only be logged")
		sender = messaging.NewLogSender(logger)
	}
	observedSender := messaging.NewObservedSender(sender, messagingMetrics)

	cal := infra.Calendar
	if cal == nil {
		logger.Warn("no calendar configured; bookings are kept in memory only")
		cal = calendar.NewMemoryProvider()
	}

	leadRepo := leads.NewPostgresRepository(infra.Postgres)
	orgRepo := orgs.NewPostgresRepository(infra.Postgres)
	convStore := conversation.NewPostgresStore(infra.Postgres)
	trainingStore := training.NewSQLStore(infra.SQL)
	var knowledge training.KnowledgeBase
	if infra.Redis != nil {
		knowledge = training.NewRedisKnowledgeBase(infra.Redis)
	} else {
		logger.Warn("redis not configured; knowledge base disabled")
	}
	transcriptStore := callinsights.NewPostgresStore(infra.Postgres)
	archive := callinsights.NewArchive(infra.S3, cfg.TranscriptArchiveBucket, logger)
	insights := callinsights.NewService(transcriptStore, archive, logger)

	sinks := []conversation.CostSink{conversation.NewMetricsSink(llmMetrics)}
	if infra.Dynamo != nil && cfg.CostLedgerTable != "" {
		sinks = append(sinks, conversation.NewDynamoCostSink(infra.Dynamo, cfg.CostLedgerTable))
	}
	ledger := conversation.NewCostLedger(logger, sinks...)

	budget := PromptBudget(cfg)
	optimized := conversation.NewOptimizedPromptBuilder(budget, logger)
	builders := map[conversation.Variant]conversation.PromptBuilder{
		conversation.VariantFull:      conversation.NewFullPromptBuilder(budget, logger),
		conversation.VariantOptimized: optimized,
	}

	assembler := conversation.NewAssembler(leadRepo, orgRepo, convStore,
		training.NewAccessor(trainingStore, knowledge, logger),
		transcriptStore,
		conversation.AssemblerConfig{
			HistorySize:     cfg.MessageHistorySize,
			TranscriptLimit: cfg.TranscriptLimit,
			Snippets:        callinsights.DefaultSnippets,
		}, logger)
	invoker := conversation.NewInvoker(infra.LLM, ledger, conversation.InvokerConfig{
		Model:             infra.Model,
		MaxTokens:         int32(cfg.LLMMaxReplyTokens),
		Temperature:       float32(cfg.LLMTemperature),
		Timeout:           cfg.LLMTimeout,
		Pricing:           Pricing(cfg),
		MaxCostPerCallUSD: cfg.MaxCostPerCallUSD,
	}, logger)

	bookingStore := bookings.NewPostgresStore(infra.Postgres)
	reminderStore := reminders.NewPostgresStore(infra.Postgres)
	var notifier bookings.OwnerNotifier
	if infra.Email != nil {
		notifier = notify.NewService(infra.Email, logger)
	}
	orchestrator := bookings.NewOrchestrator(bookings.OrchestratorDeps{
		Store:             bookingStore,
		Leads:             leadRepo,
		Orgs:              orgRepo,
		Calendar:          cal,
		Reminders:         reminders.NewScheduler(reminderStore, logger),
		Notifier:          notifier,
		DefaultCalendarID: cfg.DefaultCalendarID,
		Logger:            logger,
	})

	service := conversation.NewService(conversation.ServiceDeps{
		Leads:     leadRepo,
		Store:     convStore,
		Assembler: assembler,
		Prompts:   optimized,
		Invoker:   invoker,
		Sender:    observedSender,
		Booker:    bookings.NewConversationBooker(orchestrator, orgRepo, logger),
		Logger:    logger,
	})

	app := &App{
		Leads:         leadRepo,
		Orgs:          orgRepo,
		Conversations: convStore,
		Ledger:        ledger,
		Conversation:  service,
		Bookings:      orchestrator,
	}

	var dispatcher conversation.Dispatcher = service
	if infra.SQS != nil && cfg.ConversationQueueURL != "" {
		app.Queue = conversation.NewSQSQueue(infra.SQS, cfg.ConversationQueueURL)
		dispatcher = conversation.NewQueueDispatcher(app.Queue, logger)
		logger.Info("inbound messages are queued", "queue_url", cfg.ConversationQueueURL)
	}
	app.Dispatcher = messaging.NewObservedDispatcher(dispatcher, messagingMetrics)

	app.Reminders = reminders.NewSweeper(reminderStore, observedSender, logger,
		reminders.WithBatchSize(cfg.ReminderSweepBatch),
		reminders.WithBookingFlagger(bookingStore),
		reminders.WithObserver(reminderMetrics),
	)
	app.FollowUps = followups.NewSweeper(convStore, leadRepo, orgRepo, service, followups.Config{
		After:       cfg.FollowUpAfter,
		MaxAttempts: cfg.FollowUpMaxAttempts,
		BatchSize:   cfg.FollowUpBatch,
	}, logger)

	app.LeadsHandler = leads.NewHandler(leadRepo, service, logger)
	app.ConversationHandler = conversation.NewHandler(app.Dispatcher, assembler, convStore, builders, ledger, logger)
	app.TrainingHandler = training.NewHandler(trainingStore, knowledge, logger)
	app.CallInsightsHandler = callinsights.NewHandler(insights, logger)
	app.BookingsHandler = bookings.NewHandler(orchestrator, bookingStore, logger)
	app.RemindersHandler = reminders.NewHandler(reminderStore, app.Reminders, logger)
	app.FollowUpsHandler = followups.NewHandler(app.FollowUps, logger)
	return app, nil
}

// RouterConfig exposes the App's handlers to the HTTP router.
func (a *App) RouterConfig(cfg *appconfig.Config, logger *logging.Logger, metricsHandler http.Handler, readiness map[string]router.ReadinessCheck) *router.Config {
	return &router.Config{
		Logger:              logger,
		LeadsHandler:        a.LeadsHandler,
		ConversationHandler: a.ConversationHandler,
		TrainingHandler:     a.TrainingHandler,
		CallInsightsHandler: a.CallInsightsHandler,
		BookingsHandler:     a.BookingsHandler,
		RemindersHandler:    a.RemindersHandler,
		FollowUpsHandler:    a.FollowUpsHandler,
		MetricsHandler:      metricsHandler,
		WebhookTokens:       cfg.WebhookTokens(),
		WhatsAppWebhookKey:  cfg.WhatsAppWebhookToken,
		AdminAuthSecret:     cfg.AdminJWTSecret,
		Readiness:           readiness,
	}
}
