package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	mcpproto "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/sandevgo/replydesk/internal/core"
	"github.com/sandevgo/replydesk/pkg/log"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

type Store interface {
	GetConversation(ctx context.Context, id string) (*core.Conversation, error)
	ListConversations(ctx context.Context, businessID string, status core.ConversationStatus, limit int) ([]core.Conversation, error)
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]core.StoredMessage, error)
	ListEscalations(ctx context.Context, businessID string, limit int) ([]core.Escalation, error)
}

type KnowledgeSearcher interface {
	Search(ctx context.Context, businessID, query string, limit int) ([]core.KnowledgeItem, error)
}

type Resolver interface {
	Resolve(ctx context.Context, businessID, conversationID string, summary *string) error
}

type Summarizer interface {
	Summarize(ctx context.Context, businessID, conversationID string) (*core.Summary, error)
}

// Deps holds the operator tool backends. Summarizer may be nil.
type Deps struct {
	Store      Store
	Knowledge  KnowledgeSearcher
	Resolver   Resolver
	Summarizer Summarizer
}

// NewServer registers the operator tools for inspecting and closing
// conversations of one business at a time.
func NewServer(deps Deps, version string) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer(
		core.AppName,
		version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithInstructions("replydesk operator tools: search the knowledge base, review escalations and conversations, resolve and summarize conversations."),
		mcpserver.WithRecovery(),
	)

	s.AddTool(
		mcpproto.NewTool("search_knowledge",
			mcpproto.WithDescription("Search a business knowledge base the same way replies are grounded."),
			mcpproto.WithString("business_id", mcpproto.Description("Business id"), mcpproto.Required()),
			mcpproto.WithString("query", mcpproto.Description("Search query"), mcpproto.Required()),
			mcpproto.WithNumber("limit", mcpproto.Description("Maximum number of items (default 3)")),
		),
		searchKnowledge(deps),
	)

	s.AddTool(
		mcpproto.NewTool("list_escalations",
			mcpproto.WithDescription("List the most recent escalations of a business, newest first."),
			mcpproto.WithString("business_id", mcpproto.Description("Business id"), mcpproto.Required()),
			mcpproto.WithNumber("limit", mcpproto.Description("Maximum number of escalations (default 20)")),
		),
		listEscalations(deps),
	)

	s.AddTool(
		mcpproto.NewTool("list_conversations",
			mcpproto.WithDescription("List conversations of a business by priority, optionally filtered by status."),
			mcpproto.WithString("business_id", mcpproto.Description("Business id"), mcpproto.Required()),
			mcpproto.WithString("status", mcpproto.Description("OPEN, RESOLVED or ESCALATED")),
			mcpproto.WithNumber("limit", mcpproto.Description("Maximum number of conversations (default 20)")),
		),
		listConversations(deps),
	)

	s.AddTool(
		mcpproto.NewTool("conversation_history",
			mcpproto.WithDescription("Show the latest messages of a conversation in order."),
			mcpproto.WithString("business_id", mcpproto.Description("Business id"), mcpproto.Required()),
			mcpproto.WithString("conversation_id", mcpproto.Description("Conversation id"), mcpproto.Required()),
			mcpproto.WithNumber("limit", mcpproto.Description("Maximum number of messages (default 20)")),
		),
		conversationHistory(deps),
	)

	s.AddTool(
		mcpproto.NewTool("resolve_conversation",
			mcpproto.WithDescription("Mark a conversation as resolved."),
			mcpproto.WithString("business_id", mcpproto.Description("Business id"), mcpproto.Required()),
			mcpproto.WithString("conversation_id", mcpproto.Description("Conversation id"), mcpproto.Required()),
			mcpproto.WithString("summary", mcpproto.Description("Optional closing summary")),
		),
		resolveConversation(deps),
	)

	s.AddTool(
		mcpproto.NewTool("summarize_conversation",
			mcpproto.WithDescription("Summarize a conversation into key points, action items and next steps."),
			mcpproto.WithString("business_id", mcpproto.Description("Business id"), mcpproto.Required()),
			mcpproto.WithString("conversation_id", mcpproto.Description("Conversation id"), mcpproto.Required()),
		),
		summarizeConversation(deps),
	)

	return s
}

// ServeStdio runs the server over the given streams until ctx is done.
func ServeStdio(ctx context.Context, s *mcpserver.MCPServer, in io.Reader, out io.Writer) error {
	log.FromCtx(ctx).Info().Msg("starting mcp stdio server")
	err := mcpserver.NewStdioServer(s).Listen(ctx, in, out)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

type knowledgeView struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Title    string `json:"title,omitempty"`
	Question string `json:"question,omitempty"`
	Answer   string `json:"answer,omitempty"`
	Content  string `json:"content,omitempty"`
	Source   string `json:"source,omitempty"`
}

type escalationView struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Reason         string    `json:"reason"`
	CreatedAt      time.Time `json:"created_at"`
}

type conversationView struct {
	ID        string    `json:"id"`
	ContactID string    `json:"contact_id"`
	Channel   string    `json:"channel"`
	Status    string    `json:"status"`
	Language  string    `json:"language"`
	Sentiment string    `json:"sentiment"`
	Priority  int       `json:"priority"`
	Summary   string    `json:"summary,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type messageView struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func searchKnowledge(deps Deps) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
		businessID, err := req.RequireString("business_id")
		if err != nil {
			return toolError("business_id is required"), nil
		}
		query, err := req.RequireString("query")
		if err != nil {
			return toolError("query is required"), nil
		}

		items, err := deps.Knowledge.Search(ctx, businessID, query, clampLimit(req.GetInt("limit", 3)))
		if err != nil {
			return toolError(fmt.Sprintf("search failed: %v", err)), nil
		}

		out := make([]knowledgeView, len(items))
		for i, it := range items {
			out[i] = knowledgeView{
				ID:       it.ID,
				Kind:     string(it.Kind),
				Title:    it.Title,
				Question: it.Question,
				Answer:   it.Answer,
				Content:  it.Content,
				Source:   it.Source,
			}
		}
		return toolJSON(out), nil
	}
}

func listEscalations(deps Deps) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
		businessID, err := req.RequireString("business_id")
		if err != nil {
			return toolError("business_id is required"), nil
		}

		escs, err := deps.Store.ListEscalations(ctx, businessID, clampLimit(req.GetInt("limit", defaultLimit)))
		if err != nil {
			return toolError(fmt.Sprintf("failed to list escalations: %v", err)), nil
		}

		out := make([]escalationView, len(escs))
		for i, e := range escs {
			out[i] = escalationView{ID: e.ID, ConversationID: e.ConversationID, Reason: e.Reason, CreatedAt: e.CreatedAt}
		}
		return toolJSON(out), nil
	}
}

func listConversations(deps Deps) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
		businessID, err := req.RequireString("business_id")
		if err != nil {
			return toolError("business_id is required"), nil
		}

		status := core.ConversationStatus(req.GetString("status", ""))
		convs, err := deps.Store.ListConversations(ctx, businessID, status, clampLimit(req.GetInt("limit", defaultLimit)))
		if err != nil {
			return toolError(fmt.Sprintf("failed to list conversations: %v", err)), nil
		}

		out := make([]conversationView, len(convs))
		for i, c := range convs {
			out[i] = viewConversation(c)
		}
		return toolJSON(out), nil
	}
}

func conversationHistory(deps Deps) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
		businessID, err := req.RequireString("business_id")
		if err != nil {
			return toolError("business_id is required"), nil
		}
		conversationID, err := req.RequireString("conversation_id")
		if err != nil {
			return toolError("conversation_id is required"), nil
		}

		conv, err := deps.Store.GetConversation(ctx, conversationID)
		if err != nil || conv.BusinessID != businessID {
			return toolError(fmt.Sprintf("conversation %s not found", conversationID)), nil
		}

		msgs, err := deps.Store.RecentMessages(ctx, conversationID, clampLimit(req.GetInt("limit", defaultLimit)))
		if err != nil {
			return toolError(fmt.Sprintf("failed to load messages: %v", err)), nil
		}

		out := struct {
			Conversation conversationView `json:"conversation"`
			Messages     []messageView    `json:"messages"`
		}{
			Conversation: viewConversation(*conv),
			Messages:     make([]messageView, len(msgs)),
		}
		for i, m := range msgs {
			out.Messages[i] = messageView{Role: string(m.Role), Content: m.Content, CreatedAt: m.CreatedAt}
		}
		return toolJSON(out), nil
	}
}

func resolveConversation(deps Deps) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
		businessID, err := req.RequireString("business_id")
		if err != nil {
			return toolError("business_id is required"), nil
		}
		conversationID, err := req.RequireString("conversation_id")
		if err != nil {
			return toolError("conversation_id is required"), nil
		}

		var summary *string
		if s := req.GetString("summary", ""); s != "" {
			summary = &s
		}
		if err := deps.Resolver.Resolve(ctx, businessID, conversationID, summary); err != nil {
			return toolError(fmt.Sprintf("failed to resolve: %s", core.PublicMessage(err))), nil
		}
		return toolText(fmt.Sprintf("Conversation %s resolved", conversationID)), nil
	}
}

func summarizeConversation(deps Deps) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
		if deps.Summarizer == nil {
			return toolError("summarization is not configured"), nil
		}
		businessID, err := req.RequireString("business_id")
		if err != nil {
			return toolError("business_id is required"), nil
		}
		conversationID, err := req.RequireString("conversation_id")
		if err != nil {
			return toolError("conversation_id is required"), nil
		}

		sum, err := deps.Summarizer.Summarize(ctx, businessID, conversationID)
		if err != nil {
			return toolError(fmt.Sprintf("failed to summarize: %s", core.PublicMessage(err))), nil
		}
		return toolJSON(sum), nil
	}
}

func viewConversation(c core.Conversation) conversationView {
	return conversationView{
		ID:        c.ID,
		ContactID: c.ContactID,
		Channel:   string(c.Channel),
		Status:    string(c.Status),
		Language:  c.Language,
		Sentiment: string(c.Sentiment),
		Priority:  c.Priority,
		Summary:   c.Summary,
		UpdatedAt: c.UpdatedAt,
	}
}

func clampLimit(n int) int {
	if n <= 0 {
		return defaultLimit
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}

func toolJSON(v any) *mcpproto.CallToolResult {
	b, err := json.Marshal(v)
	if err != nil {
		return toolError(fmt.Sprintf("failed to marshal result: %v", err))
	}
	return toolText(string(b))
}

func toolText(text string) *mcpproto.CallToolResult {
	return &mcpproto.CallToolResult{
		Content: []mcpproto.Content{
			mcpproto.TextContent{Type: "text", Text: text},
		},
	}
}

func toolError(msg string) *mcpproto.CallToolResult {
	return &mcpproto.CallToolResult{
		Content: []mcpproto.Content{
			mcpproto.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
