package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/booking-ledger/internal/apperr"
	"github.com/Tiliavir/booking-ledger/internal/config"
	"github.com/Tiliavir/booking-ledger/internal/ledger"
	"github.com/Tiliavir/booking-ledger/internal/storage"
)

var (
	flagVerbose bool
	flagConfig  string
)

// clock is the only source of the current time.
var clock = time.Now

var rootCmd = &cobra.Command{
	Use:   "tbl",
	Short: "tbl – an interruption-aware booking ledger",
	Long: `tbl records what you work on as a log of actions (start, stop,
interrupt, resume, fixed bookings) and turns each day into gap-free,
non-overlapping bookings. Closed days are stored per ISO week as
human-readable JSON files in the data directory (default ~/.tbl/data).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if flagVerbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
	},
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps errors to the exit status: 2 when the data directory could
// not be read or written, 1 for everything else.
func exitCode(err error) int {
	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Kind() == apperr.KindStorage {
		return 2
	}
	return 1
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log debug output to stderr")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default ~/.tbl/config.json)")

	rootCmd.AddCommand(dayCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(interruptCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(bookCmd)
	rootCmd.AddCommand(undoCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(recentCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(finalizeCmd)
	rootCmd.AddCommand(amendCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(outlookCmd)
}

// session bundles what a command needs. Writers hold the data directory lock
// until close.
type session struct {
	cfg    config.Config
	store  *storage.Store
	lock   *storage.Lock
	ledger *ledger.Ledger
}

func loadConfig() (config.Config, error) {
	if flagConfig != "" {
		return config.LoadFrom(flagConfig)
	}
	return config.Load()
}

func openSession(write bool) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store := storage.NewStore(cfg.DataDir)
	var lock *storage.Lock
	if write {
		lock, err = storage.AcquireLock(cfg.DataDir)
		if err != nil {
			return nil, err
		}
	}
	l, err := ledger.Open(store, lock, ledger.Options{
		Location: cfg.Location(),
		Policy:   cfg.Policy(),
		Logger:   slog.Default(),
	})
	if err != nil {
		_ = lock.Release()
		return nil, err
	}
	return &session{cfg: cfg, store: store, lock: lock, ledger: l}, nil
}

func (s *session) close() {
	_ = s.lock.Release()
}

// now returns the current time in the configured zone, truncated to seconds.
func (s *session) now() time.Time {
	return clock().In(s.cfg.Location()).Truncate(time.Second)
}
