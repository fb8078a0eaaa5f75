package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sandevgo/replydesk/internal/config"
	"github.com/sandevgo/replydesk/internal/core"
	"github.com/sandevgo/replydesk/internal/providers/websearch"
	"github.com/sandevgo/replydesk/internal/service/escalation"
	"github.com/sandevgo/replydesk/internal/service/knowledge"
	"github.com/sandevgo/replydesk/internal/service/language"
	"github.com/sandevgo/replydesk/internal/service/schedule"
	"github.com/sandevgo/replydesk/internal/service/signals"
	"github.com/sandevgo/replydesk/pkg/log"
)

const (
	ApologyText    = "I'm experiencing technical difficulties. Please try again or contact us directly."
	RephraseText   = "I'm sorry, I didn't understand that. Could you please rephrase?"
	defaultWebHits = 5

	// persistTimeout bounds storing a turn once the caller may have gone.
	persistTimeout = 5 * time.Second
	crmTimeout     = 10 * time.Second
)

// Deps are the collaborators of an Orchestrator. Web, Suggester and CRM may be nil.
type Deps struct {
	Store       core.Store
	Model       core.ChatModel
	Language    *language.Service
	Sentiment   *signals.SentimentAnalyzer
	Knowledge   *knowledge.Service
	Web         core.WebSearcher
	Scheduler   *schedule.Scheduler
	Escalations *escalation.Service
	Suggester   *signals.Suggester
	CRM         core.CRMSyncer
}

type Options struct {
	HistoryLimit       int
	HistoryTokenBudget int
	KnowledgeLimit     int
	WebLimit           int
	GenerationTimeout  time.Duration
}

func NewOptions(app *config.AppConfig, llm *config.LLMConfig, web *config.WebSearchConfig) Options {
	return Options{
		HistoryLimit:       app.HistoryLimit,
		HistoryTokenBudget: app.HistoryTokenBudget,
		KnowledgeLimit:     app.KnowledgeLimit,
		WebLimit:           web.Limit,
		GenerationTimeout:  llm.GenerationTimeout,
	}
}

type Orchestrator struct {
	deps Deps
	opts Options
	now  func() time.Time
	wg   sync.WaitGroup
}

func NewOrchestrator(deps Deps, opts Options) *Orchestrator {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 20
	}
	if opts.KnowledgeLimit <= 0 {
		opts.KnowledgeLimit = knowledge.DefaultLimit
	}
	if opts.WebLimit <= 0 {
		opts.WebLimit = defaultWebHits
	}
	return &Orchestrator{deps: deps, opts: opts, now: time.Now}
}

// analysis is everything gathered concurrently before generation.
type analysis struct {
	language   string
	sentiment  core.Sentiment
	knowledge  []core.KnowledgeItem
	webResults []core.WebResult
	history    []core.StoredMessage
	suggestion *core.Suggestion
}

// Respond handles one inbound message end to end. Once the inbound message is
// stored every failure is absorbed and the caller still gets a reply.
func (o *Orchestrator) Respond(ctx context.Context, in core.Inbound) (core.Result, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return core.Result{}, core.InvalidInput("message text is empty")
	}
	if !in.Channel.Valid() {
		return core.Result{}, core.InvalidInput("unknown channel %q", in.Channel)
	}
	if in.Contact.Empty() {
		return core.Result{}, core.InvalidInput("contact needs a phone or an email")
	}

	ctx = log.WithFields(ctx, "business_id", in.BusinessID, "channel", string(in.Channel))

	b, err := o.deps.Store.GetBusiness(ctx, in.BusinessID)
	if err != nil {
		return core.Result{}, err
	}
	contact, err := o.deps.Store.FindOrCreateContact(ctx, b.ID, in.Contact)
	if err != nil {
		return core.Result{}, fmt.Errorf("failed to resolve contact: %w", err)
	}
	conv, err := o.conversation(ctx, in, contact)
	if err != nil {
		return core.Result{}, err
	}

	ctx = log.WithFields(ctx, "conversation_id", conv.ID)
	logger := log.FromCtx(ctx)

	payload := core.ChannelPayload{Channel: in.Channel}
	if in.Payload != nil {
		payload = *in.Payload
		payload.Channel = in.Channel
	}
	inbound, err := o.deps.Store.AppendMessage(ctx, conv.ID, core.MessageRoleUser, text, core.NewMetadata(payload))
	if err != nil {
		return core.Result{}, fmt.Errorf("failed to store inbound message: %w", err)
	}

	a := o.analyze(ctx, in, text, b, contact, conv)

	if a.language != conv.Language {
		if err := o.deps.Store.SetConversationLanguage(ctx, conv.ID, a.language); err != nil {
			logger.Warn().Err(err).Msg("failed to store conversation language")
		}
	}

	wantsSchedule := signals.HasSchedulingIntent(text)
	escalate := signals.ShouldEscalate(text)

	if err := o.deps.Store.AttachMetadata(ctx, inbound.ID, core.Analysis{
		Sentiment:        a.sentiment,
		Language:         a.language,
		SchedulingIntent: wantsSchedule,
		Objection:        signals.HasObjection(text),
		EscalationMatch:  escalate,
		Suggestion:       a.suggestion,
	}); err != nil {
		logger.Warn().Err(err).Msg("failed to attach analysis")
	}

	var scheduling *core.SchedulingInfo
	if wantsSchedule && o.deps.Scheduler != nil {
		info := o.deps.Scheduler.Respond(ctx, b, text)
		scheduling = &info
	}

	hours := schedule.IsBusinessOpen(b.Hours, o.now().In(b.Location()))
	hoursMessage := o.translate(ctx, hours.Message, a.language)

	system := buildSystemPrompt(promptInput{
		Business:     b,
		Channel:      in.Channel,
		Language:     a.language,
		HoursMessage: hoursMessage,
		Knowledge:    knowledge.Context(a.knowledge),
		WebResults:   websearch.Format(a.webResults),
		Sentiment:    a.sentiment,
		Scheduling:   scheduling,
	})

	history := a.history
	if len(history) == 0 {
		history = []core.StoredMessage{*inbound}
	}
	msgs := chatHistory(system, history, o.opts.HistoryTokenBudget)

	reply, fallback := o.generate(ctx, msgs, a.language)

	res := core.Result{
		ConversationID: conv.ID,
		ContactID:      contact.ID,
		Reply:          reply,
		ShouldEscalate: escalate,
		Language:       a.language,
		Scheduling:     scheduling,
		Sentiment:      a.sentiment,
		WebSearchUsed:  len(a.webResults) > 0 && !fallback,
		Fallback:       fallback,
		Suggestion:     a.suggestion,
	}

	// The reply is stored even when the caller's deadline already passed.
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	o.persist(pctx, b, contact, conv, text, res, len(a.webResults))
	return res, nil
}

// conversation picks the conversation a message belongs to. A supplied id is
// honoured while it is OPEN and belongs to the same contact and channel.
func (o *Orchestrator) conversation(ctx context.Context, in core.Inbound, contact *core.Contact) (*core.Conversation, error) {
	if in.ConversationID != "" {
		conv, err := o.deps.Store.GetConversation(ctx, in.ConversationID)
		if err != nil {
			return nil, err
		}
		if conv.BusinessID != in.BusinessID {
			return nil, core.NotFound("conversation", in.ConversationID)
		}
		if !conv.Status.Terminal() && conv.ContactID == contact.ID && conv.Channel == in.Channel {
			return conv, nil
		}
		log.FromCtx(ctx).Debug().
			Str("conversation_id", conv.ID).
			Str("status", string(conv.Status)).
			Msg("conversation not reusable, starting a new one")
	}

	conv, err := o.deps.Store.GetOrCreateConversation(ctx, in.BusinessID, contact.ID, in.Channel)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve conversation: %w", err)
	}
	return conv, nil
}

func (o *Orchestrator) analyze(ctx context.Context, in core.Inbound, text string, b *core.Business, contact *core.Contact, conv *core.Conversation) analysis {
	logger := log.FromCtx(ctx)
	a := analysis{sentiment: core.NeutralSentiment(), language: core.DefaultLanguage}

	prior := conv.Language
	if p := contact.Preferences.Language; p != "" && (prior == "" || prior == core.DefaultLanguage) {
		prior = p
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		switch {
		case in.Language != "":
			a.language = language.Normalize(in.Language)
		case o.deps.Language != nil:
			a.language = o.deps.Language.DetectWithFallback(gctx, text, prior)
		default:
			a.language = language.Normalize(prior)
		}
		return nil
	})

	if o.deps.Sentiment != nil {
		g.Go(func() error {
			a.sentiment = o.deps.Sentiment.Analyze(gctx, text)
			return nil
		})
	}

	g.Go(func() error {
		if o.deps.Knowledge != nil {
			items, err := o.deps.Knowledge.Search(gctx, b.ID, text, o.opts.KnowledgeLimit)
			if err != nil {
				logger.Warn().Err(err).Msg("knowledge search failed")
			}
			a.knowledge = items
		}

		if o.deps.Web == nil || !b.Features.WebSearch || !websearch.ShouldSearch(text, len(a.knowledge) > 0) {
			return nil
		}
		results, err := o.deps.Web.Search(gctx, text, o.opts.WebLimit)
		if err != nil {
			logger.Warn().Err(err).Msg("web search failed")
			return nil
		}
		a.webResults = results
		return nil
	})

	g.Go(func() error {
		msgs, err := o.deps.Store.RecentMessages(gctx, conv.ID, o.opts.HistoryLimit)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to load history")
			return nil
		}
		a.history = msgs
		if o.deps.Suggester != nil {
			a.suggestion = o.deps.Suggester.Suggest(gctx, b.Services, msgs)
		}
		return nil
	})

	_ = g.Wait()
	return a
}

// generate returns the reply and whether it is the canned apology.
func (o *Orchestrator) generate(ctx context.Context, msgs []core.Message, lang string) (string, bool) {
	genCtx := ctx
	if o.opts.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, o.opts.GenerationTimeout)
		defer cancel()
	}

	resp, err := o.deps.Model.Chat(genCtx, msgs, core.ChatOptions{
		Temperature: core.Temperature(0.7),
		MaxTokens:   500,
	})
	if err != nil {
		log.FromCtx(ctx).Error().Err(core.ProviderFailure("generation", err)).Msg("reply generation failed")
		return o.translate(ctx, ApologyText, lang), true
	}

	reply := strings.TrimSpace(resp.Content)
	if reply == "" {
		return o.translate(ctx, RephraseText, lang), false
	}
	if lang != core.DefaultLanguage && language.LooksDefault(reply) {
		reply = o.translate(ctx, reply, lang)
	}
	return reply, false
}

func (o *Orchestrator) translate(ctx context.Context, text, lang string) string {
	if o.deps.Language == nil {
		return text
	}
	return o.deps.Language.Translate(ctx, text, lang)
}

// persist stores the outcome of a turn. Failures are logged only.
func (o *Orchestrator) persist(ctx context.Context, b *core.Business, contact *core.Contact, conv *core.Conversation, text string, res core.Result, webHits int) {
	logger := log.FromCtx(ctx)

	meta := core.NewMetadata()
	if res.Scheduling != nil {
		meta = meta.With(core.SchedulingTag{Info: *res.Scheduling})
	}
	if res.WebSearchUsed {
		meta = meta.With(core.WebSearchTag{Used: true, Results: webHits})
	}
	if _, err := o.deps.Store.AppendMessage(ctx, conv.ID, core.MessageRoleAssistant, res.Reply, meta); err != nil {
		logger.Error().Err(err).Msg("failed to store reply")
	}

	if res.Sentiment.Confidence > 0 {
		updated, err := o.deps.Store.RecordSentiment(ctx, conv.ID, res.Sentiment)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to record sentiment")
		} else {
			conv = updated
		}
	}

	if _, err := o.deps.Store.UpdateContactPreferences(ctx, contact.ID, core.ContactPreferences{
		Language:         res.Language,
		PreferredChannel: conv.Channel,
	}); err != nil {
		logger.Warn().Err(err).Msg("failed to update contact preferences")
	}

	ref := core.ContactRef{Phone: contact.Phone, Email: contact.Email, Name: contact.Name}
	if res.ShouldEscalate && o.deps.Escalations != nil {
		e, err := o.deps.Escalations.Escalate(ctx, escalation.Request{
			Business:     b,
			Conversation: conv,
			Contact:      ref,
			Reason:       escalation.DefaultReason,
			LastMessage:  text,
		})
		switch {
		case err != nil:
			logger.Error().Err(err).Msg("failed to escalate conversation")
		case e != nil:
			logger.Info().Str("escalation_id", e.ID).Msg("conversation escalated")
		}
	}

	if b.Features.CRMSync && o.deps.CRM != nil {
		o.wg.Add(1)
		go o.syncCRM(context.WithoutCancel(ctx), core.CRMRecord{
			BusinessID:     b.ID,
			ConversationID: conv.ID,
			ContactID:      contact.ID,
			Contact:        ref,
			Channel:        conv.Channel,
			Language:       res.Language,
			Sentiment:      res.Sentiment.Label,
			Escalated:      res.ShouldEscalate,
			Suggestion:     res.Suggestion,
			At:             o.now(),
		})
	}
}

func (o *Orchestrator) syncCRM(ctx context.Context, rec core.CRMRecord) {
	defer o.wg.Done()
	ctx, cancel := context.WithTimeout(ctx, crmTimeout)
	defer cancel()

	if err := o.deps.CRM.SyncConversation(ctx, rec); err != nil {
		log.FromCtx(ctx).Error().Err(err).Msg("crm sync failed")
	}
}

// Wait blocks until in-flight CRM syncs finish.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Resolve closes a conversation owned by businessID.
func (o *Orchestrator) Resolve(ctx context.Context, businessID, conversationID string, summary *string) error {
	conv, err := o.deps.Store.GetConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv.BusinessID != businessID {
		return core.NotFound("conversation", conversationID)
	}
	return o.deps.Store.UpdateConversationStatus(ctx, conversationID, core.StatusResolved, summary)
}
