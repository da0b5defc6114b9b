package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/christopherklint97/studyr/internal/ai"
	"github.com/christopherklint97/studyr/internal/config"
	"github.com/christopherklint97/studyr/internal/planning"
	"github.com/christopherklint97/studyr/internal/scheduler"
	"github.com/christopherklint97/studyr/internal/server"
	"github.com/christopherklint97/studyr/internal/setup"
	"github.com/christopherklint97/studyr/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "studyr",
	Short: "Study planner powered by AI",
	Long: "studyr computes the free time around your lectures, work and absences, " +
		"has a language model turn it into a study plan, and reminds you before each session.",
	SilenceUsage: true,
}

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Start the session reminder loop",
	RunE:  runRemind,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running reminder loop",
	RunE:  runStop,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API",
	RunE:  runServe,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Open config file in your editor",
	RunE:  runConfig,
}

var configSetCmd = &cobra.Command{
	Use:   "set <section.key> <value>",
	Short: "Set a single config value",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var (
	flagConfig string
	flagSetup  string
	flagDebug  bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ~/.config/studyr/config.toml)")
	rootCmd.PersistentFlags().StringVar(&flagSetup, "setup", "", "setup file (overrides setup_path)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "log debug output to stderr")

	serveCmd.Flags().String("addr", "", "listen address (default from config)")

	configCmd.AddCommand(configSetCmd)

	rootCmd.AddCommand(slotsCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(plansCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCalendarCmd)
	rootCmd.AddCommand(restDaysCmd)
	rootCmd.AddCommand(remindCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func configPath() (string, error) {
	if flagConfig != "" {
		return flagConfig, nil
	}
	return config.ConfigPath()
}

func loadConfig() (*config.Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if flagSetup != "" {
		cfg.SetupPath = flagSetup
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := cfg.Log.SlogLevel()
	if flagDebug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func openStore() (*store.DB, error) {
	path, err := store.DefaultPath()
	if err != nil {
		return nil, err
	}
	db, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func loadSetup(cfg *config.Config) (*setup.Setup, error) {
	s, err := setup.LoadOrNew(cfg.SetupPath)
	if err != nil {
		return nil, fmt.Errorf("loading setup from %s: %w", cfg.SetupPath, err)
	}
	return s, nil
}

func newAIProvider(cfg *config.Config, logger *slog.Logger) (ai.Provider, error) {
	p, err := ai.New(cfg.AI, logger)
	if err != nil {
		return nil, fmt.Errorf("configuring AI provider: %w (run 'studyr config' to set it up)", err)
	}
	return p, nil
}

func locale(cfg *config.Config) planning.Locale {
	return planning.ParseLocale(cfg.Planning.Locale)
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runRemind(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := signalContext()
	defer cancel()

	return scheduler.New(cfg, db, logger).Run(ctx)
}

func runStop(cmd *cobra.Command, args []string) error {
	pid, err := scheduler.ReadPID()
	if err != nil {
		return err
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("sending stop signal: %w", err)
	}

	fmt.Printf("Sent stop signal to studyr (PID %d)\n", pid)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.Server.Addr
	}

	srv := server.New(db, server.Options{
		Defaults: setup.DefaultsFrom(cfg.Planning),
		Locale:   locale(cfg),
		Location: time.Local,
		Logger:   logger,
	})

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("Serving on http://%s\n", addr)
	return srv.ListenAndServe(ctx, addr)
}

func runConfig(cmd *cobra.Command, args []string) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := config.WriteDefault(path); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	fmt.Printf("Opening %s with %s...\n", path, editor)

	c := exec.Command(editor, path)
	c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := c.Run(); err != nil {
		fmt.Printf("Could not open editor. Config file is at: %s\n", path)
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := config.Set(path, args[0], args[1]); err != nil {
		return err
	}
	fmt.Printf("Set %s = %s\n", args[0], args[1])
	return nil
}
