package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shipyardhq/shipyard/internal/analytics"
	"github.com/shipyardhq/shipyard/internal/config"
	"github.com/shipyardhq/shipyard/internal/engagement"
	"github.com/shipyardhq/shipyard/internal/extract"
	"github.com/shipyardhq/shipyard/internal/memory"
	"github.com/shipyardhq/shipyard/internal/progress"
	"github.com/shipyardhq/shipyard/internal/server"
	"github.com/shipyardhq/shipyard/internal/session"
	"github.com/shipyardhq/shipyard/internal/store"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "shipyard",
	Short:   "Coaching session insights",
	Long:    "Shipyard turns closed coaching conversations into outcomes, reports, weekly digests, and a long-term memory profile.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(timelineCmd)
	rootCmd.AddCommand(memoryCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("shipyard", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/shipyard/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure the extraction endpoint and tuning knobs.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store and insight status",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		pipe := progress.New(st, cfg)
		outcomes := pipe.OutcomeCards()

		fmt.Printf("Store: %s\n\n", st.Path())
		fmt.Println("Cards:")
		fmt.Printf("  Outcomes: %d\n", len(outcomes))
		fmt.Printf("  Sessions: %d\n", len(pipe.SessionHistory()))
		fmt.Printf("  Reports: %d\n", len(pipe.SessionReports()))
		fmt.Printf("  Weekly summaries: %d\n", len(pipe.WeeklySummaries()))

		mem := pipe.Memory()
		state := "on"
		if !mem.Enabled() {
			state = "off"
		}
		fmt.Println("\nMemory:")
		fmt.Printf("  Enabled: %s\n", state)
		fmt.Printf("  Items: %d (stage %d)\n", len(mem.Items()), mem.StageFor(len(outcomes)))
		fmt.Printf("  Dismissed patterns: %d\n", len(mem.Dismissed()))

		limiter := engagement.NewDailyLimiter(st, cfg.Limits.DailyMessageCap)
		fmt.Println("\nLimits:")
		fmt.Printf("  Daily message cap: %d\n", limiter.Cap())
		fmt.Printf("  Paused today: %v\n", limiter.Paused())

		fmt.Println("\nOutcome quality:")
		for _, metric := range analytics.OutcomeQualityMetrics(pipe.Tracker().Events()) {
			fmt.Printf("  %s: %d\n", metric.Label, metric.Value)
		}

		eng := engagement.New(st)
		if reminder := eng.MaybeReminder(outcomes); reminder != nil {
			fmt.Printf("\nReminder (%s): %s\n", reminder.Coach, reminder.Message)
			if err := eng.MarkReminderShown(); err != nil {
				log.Printf("Marking reminder shown failed: %v", err)
			}
			pipe.Tracker().Track(analytics.EventReminderTriggered, analytics.Payload{
				"coach": string(reminder.Coach),
			})
		}
		return nil
	},
}

// --- save command ---

// transcriptFile is the on-disk shape the save command reads.
type transcriptFile struct {
	Coach     session.Coach      `json:"coach"`
	StartedAt time.Time          `json:"startedAt"`
	Messages  session.Transcript `json:"messages"`
}

var noExtract bool

var saveCmd = &cobra.Command{
	Use:   "save [transcript.json]",
	Short: "Persist a closed conversation as outcome, report, and history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading transcript: %w", err)
		}
		var file transcriptFile
		if err := json.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("parsing transcript: %w", err)
		}
		if !file.Coach.Valid() {
			return fmt.Errorf("unknown coach %q", file.Coach)
		}
		if file.StartedAt.IsZero() {
			file.StartedAt = time.Now()
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		pipe := progress.New(st, cfg)
		tracker := pipe.Tracker()
		tracker.Track(analytics.EventSessionClosed, analytics.Payload{
			"coach": string(file.Coach),
		})
		if err := engagement.New(st).MarkOpened(); err != nil {
			log.Printf("Marking store opened failed: %v", err)
		}

		limiter := engagement.NewDailyLimiter(st, cfg.Limits.DailyMessageCap)
		for _, msg := range file.Messages.Conversational() {
			if msg.Role != session.RoleUser {
				continue
			}
			within, err := limiter.Consume()
			if err != nil {
				log.Printf("Recording message quota failed: %v", err)
				break
			}
			if !within {
				fmt.Printf("Daily message cap (%d) reached.\n", limiter.Cap())
				break
			}
		}

		input := progress.SaveSessionInput{
			Coach:     file.Coach,
			StartedAt: file.StartedAt,
			Messages:  file.Messages,
		}

		if client := extract.NewClient(cfg.Extraction); client != nil && !noExtract {
			ctx := context.Background()

			candidate, err := client.OutcomeCandidate(ctx, file.Coach, file.Messages)
			tracker.Track(analytics.EventOutcomeExtraction, analytics.Payload{
				"coach":                 string(file.Coach),
				"used_fallback_outcome": err != nil || candidate == nil,
			})
			if err != nil {
				log.Printf("Outcome extraction failed: %v", err)
			}
			input.OutcomeCandidate = candidate

			reportCandidate, err := client.ReportCandidate(ctx, file.Coach, file.Messages)
			tracker.Track(analytics.EventReportExtraction, analytics.Payload{
				"coach":   string(file.Coach),
				"success": err == nil && reportCandidate != nil,
			})
			if err != nil {
				log.Printf("Report extraction failed: %v", err)
			}
			input.ReportCandidate = reportCandidate
		}

		card, err := pipe.SaveSession(input)
		if err != nil {
			return fmt.Errorf("saving session: %w", err)
		}
		if card == nil {
			fmt.Println("Conversation too short to persist; nothing saved.")
			return nil
		}

		fmt.Printf("Saved outcome %s (%s)\n", card.ID, card.Data.Kind())
		fmt.Printf("  %s\n", card.Data.Primary())
		if secondary := card.Data.Secondary(); secondary != "" {
			fmt.Printf("  %s\n", secondary)
		}
		return nil
	},
}

func init() {
	saveCmd.Flags().BoolVar(&noExtract, "no-extract", false, "Skip the extraction service and use deterministic fallbacks")
}

// --- timeline command ---

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Print the merged insight timeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		items := progress.New(st, cfg).TimelineItems()
		if len(items) == 0 {
			fmt.Println("No insights yet. Save a session with: shipyard save")
			return nil
		}

		for _, item := range items {
			stamp := item.CreatedAt.Format("2006-01-02 15:04")
			switch item.Type {
			case session.TimelineOutcome:
				fmt.Printf("%s  outcome  [%s] %s\n", stamp, item.Outcome.Data.Kind(), item.Outcome.Data.Primary())
			case session.TimelineWeeklySummary:
				fmt.Printf("%s  weekly   %s\n", stamp, item.Summary.Summary)
			case session.TimelineSessionReport:
				fmt.Printf("%s  report   (%s) %s\n", stamp, item.Report.QualityStatus, item.Report.Summary)
			}
		}
		return nil
	},
}

// --- memory command ---

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Manage the long-term memory profile",
}

var memoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active memory items",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		pipe := progress.New(st, cfg)
		mem := pipe.Memory()
		if !mem.Enabled() {
			fmt.Println("Memory is disabled. Enable with: shipyard memory toggle")
			return nil
		}

		items := mem.ActiveItems()
		if len(items) == 0 {
			fmt.Println("No memory items yet.")
			return nil
		}

		fmt.Printf("Memory (stage %d):\n\n", mem.StageFor(len(pipe.OutcomeCards())))
		for _, item := range items {
			marker := " "
			if item.Source == memory.SourceUser {
				marker = "*"
			}
			fmt.Printf("  %s [%s] %s\n", marker, item.Type, item.Label)
			fmt.Printf("      id: %s\n", item.ID)
		}
		if dismissed := mem.Dismissed(); len(dismissed) > 0 {
			fmt.Printf("\nDismissed patterns: %s\n", strings.Join(dismissed, "; "))
		}
		return nil
	},
}

var memoryItemType string

var memoryAddCmd = &cobra.Command{
	Use:   "add [label]",
	Short: "Add a memory item yourself",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		itemType := memory.ItemType(memoryItemType)
		switch itemType {
		case memory.TypeValue, memory.TypeTheme, memory.TypePattern:
		default:
			return fmt.Errorf("invalid type %q (want value, theme, or pattern)", memoryItemType)
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		item, err := progress.New(st, cfg).Memory().AddManual(args[0], itemType)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("label is empty")
		}
		fmt.Printf("Added %s: %s\n", item.Type, item.Label)
		return nil
	},
}

var memoryRemoveCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove a memory item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := progress.New(st, cfg).Memory().Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("Removed memory item %s\n", args[0])
		return nil
	},
}

var memoryDismissCmd = &cobra.Command{
	Use:   "dismiss [label]",
	Short: "Suppress an inferred pattern without deleting history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := progress.New(st, cfg).Memory().Dismiss(args[0]); err != nil {
			return err
		}
		fmt.Printf("Dismissed pattern: %s\n", args[0])
		return nil
	},
}

var memoryRestoreCmd = &cobra.Command{
	Use:   "restore [label]",
	Short: "Lift a pattern dismissal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := progress.New(st, cfg).Memory().Restore(args[0]); err != nil {
			return err
		}
		fmt.Printf("Restored pattern: %s\n", args[0])
		return nil
	},
}

var memoryToggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Turn memory synthesis on or off",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		mem := progress.New(st, cfg).Memory()
		next := !mem.Enabled()
		if err := mem.SetEnabled(next); err != nil {
			return err
		}
		state := "disabled"
		if next {
			state = "enabled"
		}
		fmt.Printf("Memory %s\n", state)
		return nil
	},
}

func init() {
	memoryAddCmd.Flags().StringVarP(&memoryItemType, "type", "t", "value", "Item type: value, theme, or pattern")

	memoryCmd.AddCommand(memoryListCmd)
	memoryCmd.AddCommand(memoryAddCmd)
	memoryCmd.AddCommand(memoryRemoveCmd)
	memoryCmd.AddCommand(memoryDismissCmd)
	memoryCmd.AddCommand(memoryRestoreCmd)
	memoryCmd.AddCommand(memoryToggleCmd)
}

// --- sync command ---

var syncServer string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push the local event log to an analytics server",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		pipe := progress.New(st, cfg)
		events := pipe.Tracker().Events()
		if len(events) == 0 {
			fmt.Println("No events to sync.")
			return nil
		}

		body, err := json.Marshal(map[string]any{"events": events})
		if err != nil {
			return fmt.Errorf("marshaling events: %w", err)
		}

		url := strings.TrimSuffix(syncServer, "/") + "/api/analytics/sync"
		resp, err := http.Post(url, "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("posting events: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
		}

		var result struct {
			Accepted    int `json:"accepted"`
			TotalStored int `json:"totalStored"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}

		pipe.Tracker().Track(analytics.EventAnalyticsSynced, analytics.Payload{
			"count": len(events),
		})
		fmt.Printf("Synced %d events (%d accepted, %d stored on server)\n", len(events), result.Accepted, result.TotalStored)
		return nil
	},
}

func init() {
	syncCmd.Flags().StringVarP(&syncServer, "server", "s", "http://localhost:8787", "Analytics server base URL")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analytics ingest server and dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(st, cfg.Analytics, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

func openStore() (*store.Store, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return store.Open(filepath.Join(dataDir, "shipyard.db"))
}
