package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"chatvault/internal/config"
	"chatvault/internal/database"
	"chatvault/internal/logging"
	"chatvault/internal/services"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "chatvault",
	Short:         "chatvault manages the conversation store",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(config.New(), configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		logging.Init(cfg.Logging)
		if cfg.EnvFile != "" {
			log.Debug().Str("file", cfg.EnvFile).Msg("loaded environment file")
		}
		return nil
	},
}

// withApp starts the store, runs fn and shuts the store down again.
func withApp(fn func(a *App) error) error {
	ctx := context.Background()
	app := NewApp(cfg)
	if err := app.startup(ctx); err != nil {
		return err
	}
	defer app.shutdown(ctx)
	return fn(app)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the store to the latest schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *App) error {
			result := a.LastMigration()
			green := color.New(color.FgGreen)
			if len(result.Applied) == 0 {
				green.Printf("Schema is up to date (version %d)\n", result.To)
				return nil
			}
			green.Printf("Migrated schema %d -> %d\n", result.From, result.To)
			fmt.Printf("  applied: %s\n", joinInts(result.Applied))
			return nil
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the current and latest schema versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *App) error {
			current, err := a.GetSchemaVersion()
			if err != nil {
				return err
			}
			cyan := color.New(color.FgCyan)
			cyan.Println("  Schema")
			cyan.Println("  ------")
			fmt.Printf("  Store:    %s\n", cfg.Database.Path)
			fmt.Printf("  Current:  %d\n", current)
			fmt.Printf("  Latest:   %d\n", database.LatestSchemaVersion())
			return nil
		})
	},
}

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export <chat-id>",
	Short: "Export a chat as a yaml archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *App) error {
			data, err := a.Services.Export.ExportChat(context.Background(), args[0])
			if err != nil {
				return err
			}
			if exportOutput == "" {
				_, err = os.Stdout.Write(data)
				return err
			}
			if err := os.WriteFile(exportOutput, data, 0o644); err != nil {
				return err
			}
			color.Green("Exported chat %s to %s\n", args[0], exportOutput)
			return nil
		})
	},
}

var importProject string

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import chats from a yaml archive into a new project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		return withApp(func(a *App) error {
			projectID, chatIDs, err := a.Services.Export.ImportChats(context.Background(), data, importProject)
			if err != nil {
				return err
			}
			color.Green("Imported %d chat(s) into project %s\n", len(chatIDs), projectID)
			for _, id := range chatIDs {
				fmt.Printf("  %s\n", id)
			}
			return nil
		})
	},
}

var gcCmd = &cobra.Command{
	Use:   "gc-attachments",
	Short: "Delete attachment records no message, project or draft uses",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *App) error {
			removed, err := a.Services.Attachments.CollectOrphans(context.Background())
			if err != nil {
				return err
			}
			if len(removed) == 0 {
				fmt.Println("No orphaned attachments")
				return nil
			}
			yellow := color.New(color.FgYellow)
			yellow.Printf("Removed %d orphaned attachment(s); their blobs can be deleted:\n", len(removed))
			for _, att := range removed {
				fmt.Printf("  %s\n", att.Path)
			}
			return nil
		})
	},
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Read and change app settings",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *App) error {
			value, err := a.GetSetting(args[0])
			if err != nil {
				return err
			}
			fmt.Println(value)
			return nil
		})
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *App) error {
			if err := a.SetSetting(args[0], args[1]); err != nil {
				return err
			}
			color.Green("%s = %s\n", args[0], args[1])
			return nil
		})
	},
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every setting with its effective value",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *App) error {
			all, err := a.Services.Settings.All(context.Background())
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(all))
			for k := range all {
				keys = append(keys, string(k))
			}
			sort.Strings(keys)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tVALUE")
			for _, k := range keys {
				fmt.Fprintf(w, "%s\t%s\n", k, all[services.SettingKey(k)])
			}
			return w.Flush()
		})
	},
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to chatvault.yaml")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write the archive to a file instead of stdout")
	importCmd.Flags().StringVar(&importProject, "project", "Imported", "name of the project to import into")

	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd, settingsListCmd)
	rootCmd.AddCommand(migrateCmd, versionCmd, exportCmd, importCmd, gcCmd, settingsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Debug().Err(err).Msg("command failed")
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}
