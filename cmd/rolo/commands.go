package main

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/rolohq/rolo/internal/assist"
	"github.com/rolohq/rolo/internal/config"
	"github.com/rolohq/rolo/internal/model"
	"github.com/rolohq/rolo/internal/provider"
	"github.com/rolohq/rolo/internal/storage"
)

// --- auth ---

var authCmd = &cobra.Command{
	Use:   "auth [code]",
	Short: "Connect your provider account (desktop OAuth flow)",
	Long: `Connect your provider account.

Without arguments, prints the authorization URL and waits for the code
on stdin. The exchanged token is stored locally; all requested scopes
are read-only.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.Google.ClientID == "" || cfg.Google.ClientSecret == "" {
			return fmt.Errorf("google.client_id and google.client_secret must be configured first (rolo config set)")
		}

		oauthCfg := provider.OAuthConfig(cfg.Google.ClientID, cfg.Google.ClientSecret)

		var code string
		if len(args) == 1 {
			code = args[0]
		} else {
			url := oauthCfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Open this URL in your browser:\n\n%s\n\nPaste the authorization code: ", url)

			scanner := bufio.NewScanner(os.Stdin)
			if !scanner.Scan() {
				return fmt.Errorf("no authorization code provided")
			}
			code = strings.TrimSpace(scanner.Text())
		}
		if code == "" {
			return fmt.Errorf("empty authorization code")
		}

		tok, err := provider.Exchange(cmd.Context(), oauthCfg, code)
		if err != nil {
			return err
		}

		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		if err := provider.SaveToken(store, tok); err != nil {
			return fmt.Errorf("saving token: %w", err)
		}

		printSuccess("Account connected")
		return nil
	},
}

// --- sync ---

var syncCmd = &cobra.Command{
	Use:   "sync [resource]",
	Short: "Sync provider data (calendar, tasks, email, contacts, or all)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := "/sync"
		if len(args) == 1 {
			path = "/sync/" + args[0]
		}

		resp, err := client.post(cmd.Context(), path, nil)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(args) == 1 {
			printSuccess("Synced %s", args[0])
			return nil
		}
		failed := 0
		for resource, status := range result {
			if status == "ok" {
				printSuccess("%s synced", resource)
			} else {
				printError("%s: %s", resource, status)
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d resource(s) failed to sync", failed)
		}
		return nil
	},
}

// --- agenda ---

var agendaCmd = &cobra.Command{
	Use:   "agenda",
	Short: "Show classified events and open tasks in time order",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/agenda")
		if err != nil {
			return err
		}

		var items []struct {
			Kind           string               `json:"kind"`
			ID             string               `json:"id"`
			Title          string               `json:"title"`
			Classification model.Classification `json:"classification"`
		}
		if err := decodeJSON(resp, &items); err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("Nothing on the agenda.")
			return nil
		}

		for _, item := range items {
			when := item.Classification.StartsAt.Local().Format("Mon 02 Jan 15:04")
			label := item.Classification.Type
			if item.Classification.Priority == "high" {
				label = colorize(colorRed, label+" !")
			}
			fmt.Printf("%s  %-16s  %s\n", when, label, colorize(colorBold, item.Title))
		}
		return nil
	},
}

// --- contacts ---

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Manage CRM contacts",
}

var contactsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List CRM contacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/contacts?limit=%d", limit))
		if err != nil {
			return err
		}

		var contacts []model.Contact
		if err := decodeJSON(resp, &contacts); err != nil {
			return err
		}
		if len(contacts) == 0 {
			fmt.Println("No contacts found.")
			return nil
		}

		for _, c := range contacts {
			fmt.Printf("%s  %-24s  %-28s  %s\n",
				colorize(colorCyan, c.ID[:8]),
				c.Name,
				c.Email,
				c.Status,
			)
		}
		return nil
	},
}

var contactsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a CRM contact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		phone, _ := cmd.Flags().GetString("phone")
		company, _ := cmd.Flags().GetString("company")
		tagsStr, _ := cmd.Flags().GetString("tags")

		var tags []string
		if tagsStr != "" {
			tags = strings.Split(tagsStr, ",")
			for i := range tags {
				tags[i] = strings.TrimSpace(tags[i])
			}
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]any{"name": args[0]}
		if email != "" {
			body["email"] = email
		}
		if phone != "" {
			body["phone"] = phone
		}
		if company != "" {
			body["company"] = company
		}
		if tags != nil {
			body["tags"] = tags
		}

		resp, err := client.post(cmd.Context(), "/contacts", body)
		if err != nil {
			return err
		}

		var contact model.Contact
		if err := decodeJSON(resp, &contact); err != nil {
			return err
		}

		printSuccess("Created contact %s (%s)", contact.Name, contact.ID[:8])
		return nil
	},
}

var contactsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one contact as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/contacts/"+args[0])
		if err != nil {
			return err
		}

		var contact any
		if err := decodeJSON(resp, &contact); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(contact)
	},
}

var contactsRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a contact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/contacts/"+args[0])
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Contact deleted")
		return nil
	},
}

func init() {
	contactsListCmd.Flags().Int("limit", 50, "maximum number of contacts to list")
	contactsAddCmd.Flags().String("email", "", "contact email")
	contactsAddCmd.Flags().String("phone", "", "contact phone")
	contactsAddCmd.Flags().String("company", "", "contact company")
	contactsAddCmd.Flags().String("tags", "", "comma-separated tags")
	contactsCmd.AddCommand(contactsListCmd)
	contactsCmd.AddCommand(contactsAddCmd)
	contactsCmd.AddCommand(contactsShowCmd)
	contactsCmd.AddCommand(contactsRmCmd)
}

// --- notes ---

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Manage CRM notes",
}

var notesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a note",
	Long: `Add a note.

Examples:
  rolo notes add --text "Met Ana at the conference, follow up next week"
  rolo notes add --pdf ./meeting-minutes.pdf --contact 4f2a91cc`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, _ := cmd.Flags().GetString("text")
		pdfPath, _ := cmd.Flags().GetString("pdf")
		contactID, _ := cmd.Flags().GetString("contact")

		if text == "" && pdfPath == "" {
			return fmt.Errorf("one of --text or --pdf is required")
		}

		body := map[string]any{}
		if contactID != "" {
			body["contact_id"] = contactID
		}
		switch {
		case pdfPath != "":
			data, err := os.ReadFile(pdfPath)
			if err != nil {
				return fmt.Errorf("reading pdf: %w", err)
			}
			body["type"] = "pdf"
			body["content"] = base64.StdEncoding.EncodeToString(data)
		default:
			body["content"] = text
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/notes", body)
		if err != nil {
			return err
		}

		var note model.Note
		if err := decodeJSON(resp, &note); err != nil {
			return err
		}

		printSuccess("Stored note %s", note.ID[:8])
		return nil
	},
}

var notesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/notes?limit=%d", limit))
		if err != nil {
			return err
		}

		var notes []model.Note
		if err := decodeJSON(resp, &notes); err != nil {
			return err
		}
		if len(notes) == 0 {
			fmt.Println("No notes found.")
			return nil
		}

		for _, n := range notes {
			content := n.Content
			if len(content) > 80 {
				content = content[:80] + "..."
			}
			fmt.Printf("%s  %s  %s\n",
				colorize(colorCyan, n.ID[:8]),
				n.CreatedAt.Local().Format("2006-01-02 15:04"),
				content,
			)
		}
		return nil
	},
}

var notesMatchesCmd = &cobra.Command{
	Use:   "matches <note-id>",
	Short: "Show ranked event/task link candidates for a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/notes/"+args[0]+"/matches")
		if err != nil {
			return err
		}

		var results []model.MatchResult
		if err := decodeJSON(resp, &results); err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No matches found.")
			return nil
		}

		for _, m := range results {
			fmt.Printf("%3d  %-6s  %s  (%s)\n", m.Confidence, m.TargetKind, m.TargetID, m.MatchedOn)
		}
		return nil
	},
}

var notesLinkCmd = &cobra.Command{
	Use:   "link <note-id> <event|task> <target-id>",
	Short: "Link a note to an event or task",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		noteID, kind, targetID := args[0], args[1], args[2]
		if kind != model.KindEvent && kind != model.KindTask {
			return fmt.Errorf("target kind must be %q or %q", model.KindEvent, model.KindTask)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), fmt.Sprintf("/notes/%s/link/%s/%s", noteID, kind, targetID), nil)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Linked note %s to %s %s", noteID, kind, targetID)
		return nil
	},
}

var notesRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/notes/"+args[0])
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Note deleted")
		return nil
	},
}

func init() {
	notesAddCmd.Flags().String("text", "", "note text")
	notesAddCmd.Flags().String("pdf", "", "path to a PDF whose text becomes the note")
	notesAddCmd.Flags().String("contact", "", "contact id to attach the note to")
	notesListCmd.Flags().Int("limit", 50, "maximum number of notes to list")
	notesCmd.AddCommand(notesAddCmd)
	notesCmd.AddCommand(notesListCmd)
	notesCmd.AddCommand(notesMatchesCmd)
	notesCmd.AddCommand(notesLinkCmd)
	notesCmd.AddCommand(notesRmCmd)
}

// --- tasks ---

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Browse synced tasks",
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List synced tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/tasks")
		if err != nil {
			return err
		}

		var tasks []model.Task
		if err := decodeJSON(resp, &tasks); err != nil {
			return err
		}
		if len(tasks) == 0 {
			fmt.Println("No tasks found.")
			return nil
		}

		for _, t := range tasks {
			mark := " "
			if t.Completed {
				mark = "x"
			}
			due := ""
			if t.Due != nil {
				due = t.Due.Local().Format("2006-01-02")
			}
			fmt.Printf("[%s] %s  %-10s  %s\n", mark, colorize(colorCyan, t.ID[:minInt(8, len(t.ID))]), due, t.Title)
		}
		return nil
	},
}

var tasksSuggestCmd = &cobra.Command{
	Use:   "suggest <task-id>",
	Short: "Compute contact suggestions for a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/tasks/"+args[0]+"/suggestion", nil)
		if err != nil {
			return err
		}

		var result struct {
			Suggestion *model.ContactSuggestion `json:"suggestion"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		if result.Suggestion == nil {
			fmt.Println("No contact suggestions for this task.")
			return nil
		}

		for i, opt := range result.Suggestion.Options {
			fmt.Printf("%d. %s\n", i+1, opt)
		}
		return nil
	},
}

var tasksSelectCmd = &cobra.Command{
	Use:   "select <task-id> <option>",
	Short: "Pick one of a task's suggested contact options",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.put(cmd.Context(), "/tasks/"+args[0]+"/suggestion", map[string]string{"selected": args[1]})
		if err != nil {
			return err
		}

		var result map[string]any
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Selected %q", args[1])
		return nil
	},
}

func init() {
	tasksCmd.AddCommand(tasksListCmd)
	tasksCmd.AddCommand(tasksSuggestCmd)
	tasksCmd.AddCommand(tasksSelectCmd)
}

// --- events ---

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Browse synced calendar events",
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List synced calendar events",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/events")
		if err != nil {
			return err
		}

		var events []model.CalendarEvent
		if err := decodeJSON(resp, &events); err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Println("No events found.")
			return nil
		}

		for _, ev := range events {
			fmt.Printf("%s  %s  %s\n",
				colorize(colorCyan, ev.ID[:minInt(8, len(ev.ID))]),
				ev.Start.Local().Format("Mon 02 Jan 15:04"),
				ev.Title,
			)
		}
		return nil
	},
}

var eventsAttendeesCmd = &cobra.Command{
	Use:   "attendees <event-id>",
	Short: "Resolve an event's attendees against known contacts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/events/"+args[0]+"/attendees/resolve", nil)
		if err != nil {
			return err
		}

		var resolved []struct {
			Attendee string `json:"attendee"`
			Match    *struct {
				Name      string `json:"name"`
				ContactID string `json:"contact_id"`
				Linked    bool   `json:"linked"`
			} `json:"match"`
		}
		if err := decodeJSON(resp, &resolved); err != nil {
			return err
		}
		if len(resolved) == 0 {
			fmt.Println("Event has no attendees.")
			return nil
		}

		for _, r := range resolved {
			switch {
			case r.Match == nil:
				fmt.Printf("%-32s  %s\n", r.Attendee, colorize(colorYellow, "unknown"))
			case r.Match.Linked:
				fmt.Printf("%-32s  %s (%s)\n", r.Attendee, colorize(colorGreen, r.Match.Name), r.Match.ContactID[:8])
			default:
				fmt.Printf("%-32s  %s %s\n", r.Attendee, r.Match.Name, colorize(colorCyan, "[importable]"))
			}
		}
		return nil
	},
}

func init() {
	eventsCmd.AddCommand(eventsListCmd)
	eventsCmd.AddCommand(eventsAttendeesCmd)
}

// --- emails ---

var emailsCmd = &cobra.Command{
	Use:   "emails",
	Short: "Browse synced email",
}

var emailsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List synced email messages",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/emails")
		if err != nil {
			return err
		}

		var emails []model.Email
		if err := decodeJSON(resp, &emails); err != nil {
			return err
		}
		if len(emails) == 0 {
			fmt.Println("No emails found.")
			return nil
		}

		for _, e := range emails {
			fmt.Printf("%s  %s  %-28s  %s\n",
				colorize(colorCyan, e.ID[:minInt(8, len(e.ID))]),
				e.ReceivedAt.Local().Format("02 Jan 15:04"),
				e.From,
				e.Subject,
			)
		}
		return nil
	},
}

var emailsMatchesCmd = &cobra.Command{
	Use:   "matches <email-id>",
	Short: "Show ranked note/event link candidates for an email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/emails/"+args[0]+"/matches")
		if err != nil {
			return err
		}

		var results []model.MatchResult
		if err := decodeJSON(resp, &results); err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No matches found.")
			return nil
		}

		for _, m := range results {
			fmt.Printf("%3d  %-6s  %s  (%s)\n", m.Confidence, m.TargetKind, m.TargetID, m.MatchedOn)
		}
		return nil
	},
}

var emailsLinkCmd = &cobra.Command{
	Use:   "link <email-id> <note|event> <target-id>",
	Short: "Link an email to a note or event",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		emailID, kind, targetID := args[0], args[1], args[2]
		if kind != model.KindNote && kind != model.KindEvent {
			return fmt.Errorf("target kind must be %q or %q", model.KindNote, model.KindEvent)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), fmt.Sprintf("/emails/%s/link/%s/%s", emailID, kind, targetID), nil)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Linked email %s to %s %s", emailID, kind, targetID)
		return nil
	},
}

func init() {
	emailsCmd.AddCommand(emailsListCmd)
	emailsCmd.AddCommand(emailsMatchesCmd)
	emailsCmd.AddCommand(emailsLinkCmd)
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Ask the chat assistant",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message := strings.Join(args, " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := assist.ChatRequest{
			Messages: []assist.Message{
				{Role: "user", Content: message},
			},
		}
		resp, err := client.post(cmd.Context(), "/chat", req)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Println(result["reply"])
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
