package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"dreamlog/internal/app"
	"dreamlog/internal/config"
	"dreamlog/internal/model"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "Record", "Search").
func newApp(ctx context.Context, operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(ctx, cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:   "dreamlog",
	Short: "Dream journal with audio capture and AI structuring",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		ownerID := uuid.New().String()
		cfg := config.NewConfig(ownerID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Owner ID: %s\n", ownerID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Owner ID:  %s\n", cfg.OwnerID)
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Media:     %s\n", cfg.Media.Type)
		fmt.Printf("Database:  %s\n", cfg.Database.Type)
		fmt.Printf("Capture:   %s\n", cfg.Capture.Type)
		key := "not set"
		if cfg.APIKey() != "" {
			key = "set"
		}
		fmt.Printf("API key:   %s\n", key)
		return nil
	},
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key",
	Short: "Store the OpenAI API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Print("API key: ")
		key, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("reading key: %w", err)
		}
		if len(key) == 0 {
			return fmt.Errorf("empty key")
		}

		if err := cfg.WriteAPIKey(string(key)); err != nil {
			return err
		}
		fmt.Printf("Key stored at %s\n", cfg.OpenAI.KeyPath)
		return nil
	},
}

// record command: the full audio flow.
var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a dream, transcribe it, and save the structured entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "Record")
		if err != nil {
			return err
		}
		defer a.Close()

		flow, err := a.NewCaptureFlow(ctx)
		if err != nil {
			return err
		}

		if err := flow.BeginCapture(ctx); err != nil {
			return fmt.Errorf("starting capture: %w", err)
		}

		fmt.Println("Recording. Press Enter to stop, or type c + Enter to cancel.")
		line := readLine()
		if strings.TrimSpace(line) == "c" {
			if err := flow.CancelCapture(); err != nil {
				return err
			}
			fmt.Println("Recording discarded.")
			return nil
		}

		fmt.Println("Transcribing and structuring...")
		if err := flow.FinishCapture(ctx); err != nil {
			return fmt.Errorf("processing recording: %w", err)
		}

		entry, err := flow.Save(ctx, a.OwnerID())
		if err != nil {
			return fmt.Errorf("saving entry: %w", err)
		}

		printEntry(entry)
		return nil
	},
}

// add command: text-only flow.
var addCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Add a typed dream entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "Add")
		if err != nil {
			return err
		}
		defer a.Close()

		flow, err := a.NewTextFlow()
		if err != nil {
			return err
		}

		fmt.Println("Structuring...")
		if err := flow.SubmitText(ctx, args[0]); err != nil {
			return fmt.Errorf("structuring text: %w", err)
		}

		entry, err := flow.Save(ctx, a.OwnerID())
		if err != nil {
			return fmt.Errorf("saving entry: %w", err)
		}

		printEntry(entry)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List dream entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "List")
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.Service().ListEntries(ctx, a.OwnerID())
		if err != nil {
			return err
		}
		printEntryList(entries)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search dream entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "Search")
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.Service().SearchEntries(ctx, a.OwnerID(), args[0])
		if err != nil {
			return err
		}
		printEntryList(entries)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a dream entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "Show")
		if err != nil {
			return err
		}
		defer a.Close()

		entry, err := a.Service().GetEntry(ctx, args[0], a.OwnerID())
		if err != nil {
			return err
		}
		printEntry(entry)
		return nil
	},
}

var starCmd = &cobra.Command{
	Use:   "star <id>",
	Short: "Toggle the star on an entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "ToggleStar")
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Service().ToggleStar(ctx, args[0], a.OwnerID())
	},
}

var rmSoft bool

var rmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete an entry and its audio",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "Delete")
		if err != nil {
			return err
		}
		defer a.Close()

		if rmSoft {
			return a.Service().SoftDeleteEntry(ctx, args[0], a.OwnerID())
		}
		return a.Service().DeleteEntry(ctx, args[0], a.OwnerID())
	},
}

var (
	editTitle      string
	editTranscript string
	editSummary    string
	editTags       []string
	editKeywords   []string
	editMood       string
)

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Update fields of an entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "Update")
		if err != nil {
			return err
		}
		defer a.Close()

		var patch model.EntryPatch
		if cmd.Flags().Changed("title") {
			patch.Title = &editTitle
		}
		if cmd.Flags().Changed("transcript") {
			patch.Transcript = &editTranscript
		}
		if cmd.Flags().Changed("summary") {
			patch.Summary = &editSummary
		}
		if cmd.Flags().Changed("tags") {
			patch.Tags = editTags
		}
		if cmd.Flags().Changed("keywords") {
			patch.Keywords = editKeywords
		}
		if cmd.Flags().Changed("mood") {
			mood := model.Mood(editMood)
			patch.Mood = &mood
		}

		entry, err := a.Service().UpdateEntry(ctx, args[0], a.OwnerID(), patch)
		if err != nil {
			return err
		}
		printEntry(entry)
		return nil
	},
}

func readLine() string {
	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		return scanner.Text()
	}
	return ""
}

func printEntry(e *model.DreamEntry) {
	fmt.Printf("ID:         %s\n", e.ID)
	fmt.Printf("Title:      %s\n", e.Title)
	fmt.Printf("Created:    %s\n", e.CreatedAt.Local().Format(time.RFC1123))
	if e.Mood != "" {
		fmt.Printf("Mood:       %s\n", e.Mood)
	}
	if len(e.Tags) > 0 {
		fmt.Printf("Tags:       %s\n", strings.Join(e.Tags, ", "))
	}
	if len(e.Keywords) > 0 {
		fmt.Printf("Keywords:   %s\n", strings.Join(e.Keywords, ", "))
	}
	if e.AudioURL != "" {
		fmt.Printf("Audio:      %s (%.0fs)\n", e.AudioURL, e.AudioSeconds)
	}
	if e.Starred {
		fmt.Printf("Starred:    yes\n")
	}
	if e.Summary != "" {
		fmt.Printf("\nSummary:\n%s\n", e.Summary)
	}
	fmt.Printf("\nTranscript:\n%s\n", e.Transcript)
}

func printEntryList(entries []model.DreamEntry) {
	if len(entries) == 0 {
		fmt.Println("No entries.")
		return
	}
	for _, e := range entries {
		star := " "
		if e.Starred {
			star = "*"
		}
		title := e.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%s %s  %s  %s\n", star, e.ID, e.CreatedAt.Local().Format("2006-01-02"), title)
	}
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configSetKeyCmd)

	editCmd.Flags().StringVar(&editTitle, "title", "", "new title")
	editCmd.Flags().StringVar(&editTranscript, "transcript", "", "new transcript")
	editCmd.Flags().StringVar(&editSummary, "summary", "", "new summary")
	editCmd.Flags().StringSliceVar(&editTags, "tags", nil, "replacement tags")
	editCmd.Flags().StringSliceVar(&editKeywords, "keywords", nil, "replacement keywords")
	editCmd.Flags().StringVar(&editMood, "mood", "", "new mood")

	rmCmd.Flags().BoolVar(&rmSoft, "soft", false, "soft-delete (keep the row and audio)")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(starCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(editCmd)
}
