package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/stagehand/internal/config"
	"github.com/dshills/stagehand/internal/engine"
	"github.com/dshills/stagehand/internal/event"
	"github.com/dshills/stagehand/internal/git"
	"github.com/dshills/stagehand/internal/watcher"
)

func newRootCmd() *cobra.Command {
	var configPath string
	var verbose bool

	cmd := &cobra.Command{
		Use:          "stagehand",
		Short:        "stagehand — automatically stage newly created files in a git working tree",
		SilenceUsage: true,
		Version:      version,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file (.toml or .lua)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newWatchCmd(&configPath, &verbose))
	cmd.AddCommand(newAddCmd(&configPath, &verbose))
	cmd.AddCommand(newStatusCmd(&configPath))

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	return cmd
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newWatchCmd(configPath *string, verbose *bool) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Watch a directory tree and stage newly created files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			log, err := newLogger(*verbose)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			bus := event.NewBus()
			bus.Subscribe("stage.*", func(topic string, data map[string]any) {
				log.Debug("engine event", zap.String("topic", topic), zap.Any("data", data))
			})

			eng, err := engine.New(cfg,
				engine.WithLogger(log),
				engine.WithEventPublisher(bus),
				engine.WithOnResult(func(path string, success bool, message string) {
					if success {
						log.Info("staged", zap.String("path", path))
					} else {
						log.Warn("staging failed",
							zap.String("path", path),
							zap.String("message", message))
					}
				}),
			)
			if err != nil {
				return err
			}
			defer eng.Cleanup()

			w, err := watcher.New(dir, watcher.Mode(mode), eng.RequestAdd, log)
			if err != nil {
				return err
			}
			defer w.Close()

			log.Info("watching", zap.String("dir", dir), zap.String("mode", mode))

			signals := make(chan os.Signal, 1)
			signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
			<-signals

			log.Info("shutting down")
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(watcher.ModeCreate),
		"Trigger mode: create (stage on creation) or save (stage on first write)")
	return cmd
}

func newAddCmd(configPath *string, verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "add <path>",
		Short: "Stage a single file now, applying the configured policy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(*verbose)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			cfg.DelayMs = 0 // one-shot invocation, no debounce

			results := make(chan string, 1)
			failed := false
			eng, err := engine.New(cfg,
				engine.WithLogger(log),
				engine.WithOnResult(func(_ string, success bool, message string) {
					failed = !success
					results <- message
				}),
			)
			if err != nil {
				return err
			}
			defer eng.Cleanup()

			snap := eng.Status(args[0])
			if !snap.Accepted {
				return fmt.Errorf("rejected: %s", snap.Reason)
			}

			eng.RequestAdd(args[0])

			select {
			case message := <-results:
				if failed {
					return fmt.Errorf("%s", message)
				}
				cmd.Println(message)
				return nil
			case <-time.After(cfg.CommandTimeout() + time.Second):
				// Tracked files complete without a result callback
				cmd.Println("Nothing to do")
				return nil
			}
		},
	}
}

func newStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status <path>",
		Short: "Show how the engine would treat a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			eng, err := engine.New(cfg)
			if err != nil {
				return err
			}
			defer eng.Cleanup()

			snap := eng.Status(args[0])
			cmd.Printf("path:       %s\n", snap.Path)
			if snap.InRepository {
				cmd.Printf("repository: %s\n", snap.Root)
				cmd.Printf("relative:   %s\n", snap.RelPath)
			} else {
				cmd.Println("repository: (none)")
			}
			cmd.Printf("accepted:   %v\n", snap.Accepted)
			cmd.Printf("reason:     %s\n", snap.Reason)

			if snap.InRepository && snap.RelPath != "" {
				client := git.NewClient(git.WithTimeout(cfg.CommandTimeout()))
				done := make(chan struct{})
				client.FileStatus(snap.Root, snap.RelPath, func(code, detail string) {
					if code == "" {
						cmd.Printf("git status: clean (%s)\n", detail)
					} else {
						cmd.Printf("git status: %q (%s)\n", code, detail)
					}
					close(done)
				})
				select {
				case <-done:
				case <-time.After(cfg.CommandTimeout() + time.Second):
				}
			}
			return nil
		},
	}
}
