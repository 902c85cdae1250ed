package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"rewind-go/internal/app"
	"rewind-go/internal/config"
	"rewind-go/internal/rewind"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(app.ExitCode(err))
	}
}

// newApp reads the config and creates a RewindApp. The caller must defer app.Close().
func newApp() (*app.RewindApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewRewindApp(cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// projectRoot returns the --project flag, defaulting to the working directory.
func projectRoot(cmd *cobra.Command) (string, error) {
	p, _ := cmd.Flags().GetString("project")
	if p == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		p = cwd
	}
	return filepath.Abs(p)
}

var rootCmd = &cobra.Command{
	Use:          "rewind",
	Short:        "Undo timeline for project files",
	SilenceUsage: true,
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

		cfg := config.NewConfig(defaults["base_dir"])
		cfg.LogDir = defaults["log_dir"]

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Data Dir: %s\n", cfg.DataDir)
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
		fmt.Printf("Enabled:      %v\n", cfg.Enabled)
		fmt.Printf("Data Dir:     %s\n", cfg.DataDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Storage Mode: %s\n", cfg.Storage.Mode)
		fmt.Printf("Max Storage:  %s\n", humanize.IBytes(uint64(cfg.Storage.MaxStorageMB)*1024*1024))
		fmt.Printf("Retention:    all entries %dh, hourly %dd, daily %dd\n",
			cfg.Retention.EntriesHours,
			cfg.Retention.HourlyCheckpointsDays,
			cfg.Retention.DailyCheckpointsDays,
		)
		fmt.Printf("Encryption:   %s\n", cfg.Encryption.Type)
		fmt.Printf("Ignore:       %v\n", cfg.Filesystem.Ignore)
		return nil
	},
}

// record command
var recordCmd = &cobra.Command{
	Use:   "record PATH",
	Short: "Record a file change",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		changeType, _ := cmd.Flags().GetString("type")
		from, _ := cmd.Flags().GetString("from")
		message, _ := cmd.Flags().GetString("message")

		project, err := projectRoot(cmd)
		if err != nil {
			return err
		}

		absPath, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}
		if from != "" {
			if from, err = filepath.Abs(from); err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		entry, err := a.Record(cmd.Context(), app.RecordOptions{
			Project: project,
			Path:    absPath,
			Type:    changeType,
			From:    from,
			Message: message,
		})
		if err != nil {
			return err
		}
		if entry == nil {
			fmt.Println("Nothing recorded.")
			return nil
		}

		fmt.Printf("#%d  %s  %s\n", entry.Seq, entry.Type, entry.Description)
		return nil
	},
}

// checkpoint command
var checkpointCmd = &cobra.Command{
	Use:   "checkpoint NAME",
	Short: "Name the current state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		at, _ := cmd.Flags().GetInt64("at")

		project, err := projectRoot(cmd)
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		cp, err := a.Checkpoint(cmd.Context(), project, args[0], at)
		if err != nil {
			return err
		}

		fmt.Printf("Checkpoint %s at #%d\n", cp.Name, cp.Seq)
		return nil
	},
}

// last command
var lastCmd = &cobra.Command{
	Use:   "last",
	Short: "Undo the most recent change",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := projectRoot(cmd)
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Last(cmd.Context(), project)
		if err != nil {
			return err
		}

		printRestore(result)
		return nil
	},
}

// restore command
var restoreCmd = &cobra.Command{
	Use:   "restore REF",
	Short: "Restore files to a sequence id or checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := projectRoot(cmd)
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Restore(cmd.Context(), project, args[0])
		if err != nil {
			return err
		}

		printRestore(result)
		return nil
	},
}

func printRestore(result *rewind.RestoreResult) {
	if !result.Changed() {
		fmt.Printf("Already at #%d, nothing to restore.\n", result.Target)
		return
	}
	for _, p := range result.Written {
		fmt.Printf("restored  %s\n", p)
	}
	for _, p := range result.Removed {
		fmt.Printf("removed   %s\n", p)
	}
	fmt.Printf("Restored %d file(s) to #%d\n", len(result.Entries), result.Target)
}

// prune command
var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the retention policy",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Prune(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Scanned %d entries, removed %d entries and %d backups, freed %s\n",
			report.Scanned,
			report.EntriesRemoved,
			report.BackupsRemoved,
			humanize.IBytes(uint64(report.BytesFreed)),
		)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("project", "C", "", "Project root (default: current directory)")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(recordCmd)
	recordCmd.Flags().StringP("type", "t", "", "Change type: create, edit, delete or rename (default: inferred)")
	recordCmd.Flags().String("from", "", "Source path of a rename")
	recordCmd.Flags().StringP("message", "m", "", "Description of the change")
	rootCmd.AddCommand(checkpointCmd)
	checkpointCmd.Flags().Int64("at", 0, "Bind the name to this sequence id instead of the head")
	rootCmd.AddCommand(lastCmd)
	rootCmd.AddCommand(timelineCmd)
	timelineCmd.Flags().IntP("limit", "n", 50, "Maximum number of entries to show (0 for all)")
	timelineCmd.Flags().Bool("json", false, "Print entries as JSON")
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(pruneCmd)
}
