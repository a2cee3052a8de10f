// flock is a terminal client for a short-message social feed.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/infblueocean/flock/internal/api"
	"github.com/infblueocean/flock/internal/bus"
	"github.com/infblueocean/flock/internal/cache"
	"github.com/infblueocean/flock/internal/config"
	"github.com/infblueocean/flock/internal/feed"
	"github.com/infblueocean/flock/internal/live"
	"github.com/infblueocean/flock/internal/logging"
	"github.com/infblueocean/flock/internal/ui"
)

const version = "0.3.0"

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "flock",
	Short: "A terminal social feed client",
	Long:  "flock shows your timeline in the terminal: scroll, like, comment, retweet, follow.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("flock " + version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/flock/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.AddCommand(versionCmd)
}

func run() error {
	if err := config.Init(configPath); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	level := config.GetString("log.level")
	if verbose {
		level = "debug"
	}
	if err := logging.Init(config.GetConfigDir(), level); err != nil {
		fmt.Fprintf(os.Stderr, "warning: logging disabled: %v\n", err)
	}
	defer logging.Close()

	viewer := feed.Viewer{UserID: config.GetInt64("viewer.id")}
	if viewer.UserID == 0 {
		return fmt.Errorf("viewer.id is not set; add it to %s/config.toml", config.GetConfigDir())
	}

	policy := feed.PinMulti
	if config.GetString("feed.pin_policy") == "exclusive" {
		policy = feed.PinExclusive
	}

	source := api.New(api.Options{
		BaseURL: config.GetString("api.base_url"),
		Token:   config.GetString("api.token"),
		Timeout: time.Duration(config.GetInt("api.timeout")) * time.Second,
		Logger:  logging.WithPrefix("api"),
	})

	itemCache, err := cache.Open(config.GetString("cache.path"))
	if err != nil {
		logging.Warn("offline cache unavailable", "err", err)
		itemCache = nil
	} else {
		defer itemCache.Close()
		if err := itemCache.Prune(); err != nil {
			logging.Warn("cache prune failed", "err", err)
		}
	}

	eventBus := bus.New(64)
	defer eventBus.Close()
	events, unsubscribe := eventBus.Subscribe()
	defer unsubscribe()

	config.Watch(func() {
		eventBus.Publish(bus.SettingsChanged{
			ShowCensored: config.GetBool("ui.show_censored_placeholders"),
		})
	})

	pollInterval := time.Duration(config.GetInt("live.poll_seconds")) * time.Second
	notifier := live.New(source, eventBus, logging.WithPrefix("live"), pollInterval, 0)

	ctx, cancel := context.WithCancel(context.Background())
	notifier.Start(ctx)
	defer func() {
		cancel()
		notifier.Wait()
	}()

	opts := ui.Options{
		Source:       source,
		Events:       events,
		Viewer:       viewer,
		PinPolicy:    policy,
		ShowCensored: config.GetBool("ui.show_censored_placeholders"),
		OnCreated:    notifier.Advance,
	}
	if itemCache != nil {
		opts.Cache = itemCache
	}

	program := tea.NewProgram(ui.NewApp(opts), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("ui: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
