package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rolohq/rolo/internal/match"
	"github.com/rolohq/rolo/internal/model"
	"github.com/rolohq/rolo/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store  *storage.Store
	Syncer SyncRunner
}

// NewMCPServer creates an MCP server exposing the CRM to agent clients:
// contact search, note capture, match scoring and link confirmation.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"rolo",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("rolo — local personal CRM over synced calendar, tasks, mail and contacts."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("find_contact",
			mcp.WithDescription("Search CRM contacts by name or email substring."),
			mcp.WithString("query", mcp.Description("Name or email fragment"), mcp.Required()),
		),
		mcpFindContact(deps),
	)

	s.AddTool(
		mcp.NewTool("add_note",
			mcp.WithDescription("Store a note, optionally attached to a CRM contact."),
			mcp.WithString("content", mcp.Description("The note text"), mcp.Required()),
			mcp.WithString("contact_id", mcp.Description("Optional CRM contact id to attach the note to")),
		),
		mcpAddNote(deps),
	)

	s.AddTool(
		mcp.NewTool("find_matches",
			mcp.WithDescription("Score a note against synced calendar events and tasks, returning ranked link candidates."),
			mcp.WithString("note_id", mcp.Description("Note id"), mcp.Required()),
		),
		mcpFindMatches(deps),
	)

	s.AddTool(
		mcp.NewTool("link_note",
			mcp.WithDescription("Link a note to a calendar event or task."),
			mcp.WithString("note_id", mcp.Description("Note id"), mcp.Required()),
			mcp.WithString("target_kind", mcp.Description("Either \"event\" or \"task\""), mcp.Required()),
			mcp.WithString("target_id", mcp.Description("Id of the event or task"), mcp.Required()),
		),
		mcpLinkNote(deps),
	)

	s.AddTool(
		mcp.NewTool("sync",
			mcp.WithDescription("Trigger a provider sync for one resource (calendar, tasks, email, contacts) or all."),
			mcp.WithString("resource", mcp.Description("Resource name; omit to sync everything")),
		),
		mcpSync(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"crm://sync-state",
			"Sync State",
			mcp.WithResourceDescription("Last successful sync timestamp per resource"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceSyncState(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"crm://contacts",
			"CRM Contacts",
			mcp.WithResourceDescription("All CRM contacts as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceContacts(deps),
	)

	return s
}

func mcpFindContact(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}
		needle := strings.ToLower(strings.TrimSpace(query))
		if needle == "" {
			return mcpError("query must not be empty"), nil
		}

		contacts, err := deps.Store.AllContacts()
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load contacts: %v", err)), nil
		}

		var hits []model.Contact
		for _, c := range contacts {
			if strings.Contains(strings.ToLower(c.Name), needle) ||
				strings.Contains(strings.ToLower(c.Email), needle) {
				hits = append(hits, c)
			}
		}
		if hits == nil {
			return mcpText("[]"), nil
		}

		b, err := json.Marshal(hits)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpAddNote(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content, err := req.RequireString("content")
		if err != nil {
			return mcpError("content is required"), nil
		}
		contactID := req.GetString("contact_id", "")

		if contactID != "" {
			if _, err := deps.Store.GetContact(contactID); err != nil {
				return mcpError(fmt.Sprintf("contact %s: %v", contactID, err)), nil
			}
		}

		note := model.Note{
			ID:        uuid.New().String(),
			Content:   content,
			ContactID: contactID,
			CreatedAt: time.Now().UTC(),
		}
		if err := deps.Store.SaveNote(note); err != nil {
			return mcpError(fmt.Sprintf("failed to save note: %v", err)), nil
		}
		if contactID != "" {
			if err := deps.Store.TouchContact(contactID, note.CreatedAt); err != nil {
				return mcpError(fmt.Sprintf("note %s saved but contact activity not updated: %v", note.ID, err)), nil
			}
		}

		return mcpText(fmt.Sprintf("Stored note %s", note.ID)), nil
	}
}

func mcpFindMatches(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		noteID, err := req.RequireString("note_id")
		if err != nil {
			return mcpError("note_id is required"), nil
		}

		note, err := deps.Store.GetNote(noteID)
		if err != nil {
			return mcpError(fmt.Sprintf("note %s: %v", noteID, err)), nil
		}
		events, err := deps.Store.Events()
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load events: %v", err)), nil
		}
		tasks, err := deps.Store.Tasks()
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load tasks: %v", err)), nil
		}

		results := match.ForNote(note, events, tasks)
		if len(results) == 0 {
			return mcpText("[]"), nil
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpLinkNote(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		noteID, err := req.RequireString("note_id")
		if err != nil {
			return mcpError("note_id is required"), nil
		}
		targetKind, err := req.RequireString("target_kind")
		if err != nil {
			return mcpError("target_kind is required"), nil
		}
		targetID, err := req.RequireString("target_id")
		if err != nil {
			return mcpError("target_id is required"), nil
		}

		switch targetKind {
		case model.KindEvent:
			err = deps.Store.LinkNoteToEvent(noteID, targetID)
		case model.KindTask:
			err = deps.Store.LinkNoteToTask(noteID, targetID)
		default:
			return mcpError(fmt.Sprintf("target_kind must be %q or %q", model.KindEvent, model.KindTask)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to link: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Linked note %s to %s %s", noteID, targetKind, targetID)), nil
	}
}

func mcpSync(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resource := req.GetString("resource", "")

		if resource != "" {
			if err := deps.Syncer.SyncResource(ctx, resource); err != nil {
				return mcpError(fmt.Sprintf("sync failed: %v", err)), nil
			}
			return mcpText(fmt.Sprintf("Synced %s", resource)), nil
		}

		results := deps.Syncer.SyncAll(ctx)
		out := make(map[string]string, len(results))
		for res, err := range results {
			if err != nil {
				out[res] = err.Error()
			} else {
				out[res] = "ok"
			}
		}
		b, err := json.Marshal(out)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceSyncState(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		times, err := deps.Store.SyncTimes()
		if err != nil {
			return nil, fmt.Errorf("failed to read sync state: %w", err)
		}

		out := make(map[string]string, len(times))
		for resource, t := range times {
			out[resource] = t.Format(time.RFC3339)
		}
		b, err := json.Marshal(out)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal sync state: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpResourceContacts(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		contacts, err := deps.Store.AllContacts()
		if err != nil {
			return nil, fmt.Errorf("failed to load contacts: %w", err)
		}
		if contacts == nil {
			contacts = []model.Contact{}
		}

		b, err := json.Marshal(contacts)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal contacts: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
