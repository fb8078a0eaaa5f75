package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"github.com/sandevgo/replydesk/internal/config"
	"github.com/sandevgo/replydesk/internal/core"
	"github.com/sandevgo/replydesk/internal/providers/calendly"
	"github.com/sandevgo/replydesk/internal/providers/crm"
	"github.com/sandevgo/replydesk/internal/providers/llm"
	"github.com/sandevgo/replydesk/internal/providers/notify"
	"github.com/sandevgo/replydesk/internal/providers/twilio"
	"github.com/sandevgo/replydesk/internal/providers/websearch"
	"github.com/sandevgo/replydesk/internal/service/escalation"
	"github.com/sandevgo/replydesk/internal/service/knowledge"
	"github.com/sandevgo/replydesk/internal/service/language"
	"github.com/sandevgo/replydesk/internal/service/orchestrator"
	"github.com/sandevgo/replydesk/internal/service/schedule"
	"github.com/sandevgo/replydesk/internal/service/signals"
	"github.com/sandevgo/replydesk/internal/service/summary"
	"github.com/sandevgo/replydesk/internal/storage/redis"
	"github.com/sandevgo/replydesk/internal/storage/sqlite"
	"github.com/sandevgo/replydesk/internal/transport/httpapi"
	"github.com/sandevgo/replydesk/pkg/log"
	"github.com/sandevgo/replydesk/pkg/srv"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook and API server",
	Long:  `Starts the HTTP server for the Twilio SMS and voice webhooks, the inbound email webhook and the JSON API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ctx, appCfg, flushLog := bootstrap(ctx, os.Stdout)
		defer flushLog()

		logger := log.FromCtx(ctx)
		logger.Info().Str("version", core.AppVersion).Msg("starting replydesk")

		services := NewServices(ctx, appCfg)

		srv.StartServices(ctx, services)

		srv.ShutdownServices(ctx, services)
		logger.Info().Msg("replydesk has been shut down gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// components holds what serve and mcp share.
type components struct {
	db          *sql.DB
	llm         *config.LLMConfig
	store       *sqlite.Store
	model       core.ChatModel
	language    *language.Service
	knowledge   *knowledge.Service
	escalations *escalation.Service
	orch        *orchestrator.Orchestrator
	summarizer  *summary.Service
}

// newComponents builds storage, the model and the domain services.
func newComponents(ctx context.Context, appCfg *config.AppConfig) *components {
	logger := log.FromCtx(ctx)

	llmCfg := config.NewLLMConfig(ctx)
	webCfg := config.NewWebSearchConfig(ctx)
	tgCfg := config.NewTelegramConfig(ctx)

	// 1. Storage
	db, err := sqlite.NewDB(ctx, appCfg.GetDatabasePath())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	store := sqlite.NewStore(db)

	// 2. AI Provider
	model, err := llm.NewProvider(ctx, llmCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize LLM provider")
	}

	// 3. Analysis services
	lang := language.NewService(model, llmCfg.AnalysisTimeout)
	sentiment := signals.NewSentimentAnalyzer(model, llmCfg.AnalysisTimeout)
	kb := knowledge.NewService(store)
	scheduler := schedule.NewScheduler(calendly.NewClient(config.NewCalendlyConfig(ctx)), llmCfg.AnalysisTimeout)

	var web core.WebSearcher
	if webCfg.Enabled() {
		web = websearch.NewBrave(webCfg)
	}

	// 4. Escalation notices
	notifiers := notify.Multi{notify.LogNotifier{}}
	if tgCfg.Enabled() {
		tg, err := notify.NewTelegram(tgCfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize Telegram notifier")
		}
		notifiers = append(notifiers, tg)
	}
	escalations := escalation.NewService(store, notifiers)

	// 5. CRM sync for businesses that turn it on
	var crmSyncer core.CRMSyncer = crm.LogSyncer{}
	if crmCfg := config.NewCRMConfig(ctx); crmCfg.Enabled() {
		crmSyncer = crm.NewWebhook(crmCfg)
	}

	// 6. Orchestrator
	orch := orchestrator.NewOrchestrator(orchestrator.Deps{
		Store:       store,
		Model:       model,
		Language:    lang,
		Sentiment:   sentiment,
		Knowledge:   kb,
		Web:         web,
		Scheduler:   scheduler,
		Escalations: escalations,
		Suggester:   signals.NewSuggester(model, llmCfg.AnalysisTimeout),
		CRM:         crmSyncer,
	}, orchestrator.NewOptions(appCfg, llmCfg, webCfg))

	return &components{
		db:          db,
		llm:         llmCfg,
		store:       store,
		model:       model,
		language:    lang,
		knowledge:   kb,
		escalations: escalations,
		orch:        orch,
		summarizer:  summary.NewService(store, model, llmCfg.GenerationTimeout).WithScorer(sentiment),
	}
}

func NewServices(ctx context.Context, appCfg *config.AppConfig) []srv.Service {
	logger := log.FromCtx(ctx)
	services := make([]srv.Service, 0)

	rt := newComponents(ctx, appCfg)
	services = append(services, srv.NewCleanup(rt.db.Close))
	services = append(services, rt.escalations)
	services = append(services, srv.NewCleanup(func() error {
		rt.orch.Wait()
		return nil
	}))

	// Webhook dedupe
	var deduper core.Deduper = redis.Nop{}
	if redisCfg := config.NewRedisConfig(ctx); redisCfg.Enabled() {
		d, err := redis.NewDeduper(ctx, redisCfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		services = append(services, srv.NewCleanup(d.Close))
		deduper = d
	}

	// Outbound SMS for voice booking links
	var sms core.SMSSender
	if twCfg := config.NewTwilioConfig(ctx); twCfg.Enabled() {
		sms = twilio.NewClient(twCfg)
	} else {
		logger.Warn().Msg("twilio credentials not set, booking links will not be texted")
	}

	httpCfg := config.NewHTTPConfig(ctx)
	if err := httpCfg.CheckBudget(rt.llm); err != nil {
		logger.Fatal().Err(err).Msg("invalid timeout configuration")
	}
	server := httpapi.NewServer(httpCfg, httpapi.Deps{
		Responder:  rt.orch,
		Summarizer: rt.summarizer,
		Translator: rt.language,
		Businesses: rt.store,
		Deduper:    deduper,
		SMS:        sms,
	})
	services = append(services, server)

	return services
}
