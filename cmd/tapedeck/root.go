package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mmcdole/tapedeck/internal/catalog"
	"github.com/mmcdole/tapedeck/internal/config"
	"github.com/mmcdole/tapedeck/internal/hierarchy"
	"github.com/mmcdole/tapedeck/internal/log"
	"github.com/mmcdole/tapedeck/internal/store"
)

var (
	configFile string
	storageDir string
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:           "tapedeck",
	Short:         "Organize playlists and playlist directories",
	Long:          `tapedeck manages a persisted hierarchy of playlists and playlist directories.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default $HOME/.config/tapedeck/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&storageDir, "dir", "", "storage directory, overrides the config")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// session is an opened hierarchy together with everything it was built from.
type session struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *store.PlaylistStore
	catalog *catalog.Catalog
	h       *hierarchy.Hierarchy

	logCloser io.Closer
}

// openSession loads config, opens the store and builds the hierarchy. The
// catalog knows every audio item the stored playlists reference plus extra.
func openSession(ctx context.Context, extra []int) (*session, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if storageDir != "" {
		cfg.Storage.Dir = storageDir
	}

	s := &session{cfg: cfg}

	// Fall back to null logger if file logging fails
	logger, closer, err := log.SetupLogger(&cfg.Logging)
	if err != nil {
		logger = log.NullLogger()
	} else {
		s.logCloser = closer
	}
	slog.SetDefault(logger)
	s.logger = logger

	s.store, err = store.NewPlaylistStore(cfg.Storage.Dir)
	if err != nil {
		s.closeLog()
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	records, err := s.store.Snapshot()
	if err != nil {
		s.store.Close()
		s.closeLog()
		return nil, fmt.Errorf("failed to read store: %w", err)
	}
	s.catalog = catalog.FromRecords(records, extra...)

	s.h, err = hierarchy.New(ctx, s.store, s.catalog, logger)
	if err != nil {
		s.store.Close()
		s.closeLog()
		return nil, fmt.Errorf("failed to load playlists: %w", err)
	}

	logger.Debug("opened session", "store", s.store.Path(), "playlists", s.h.Size(), "audio_items", s.catalog.Len())
	return s, nil
}

// Close flushes pending writes and releases the store and log file.
func (s *session) Close() error {
	err := s.h.Close()
	err = errors.Join(err, s.store.Close())
	s.closeLog()
	return err
}

func (s *session) closeLog() {
	if s.logCloser != nil {
		s.logCloser.Close()
	}
}

// color reports whether output to w should be styled.
func (s *session) color(w io.Writer) bool {
	if noColor || !s.cfg.UI.Color {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// width returns the terminal width of w, or 0 when unknown.
func width(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	cols, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return cols
}

// withSession runs fn against an opened session and closes it, reporting
// persistence failures.
func withSession(cmd *cobra.Command, extra []int, fn func(s *session) error) error {
	s, err := openSession(cmd.Context(), extra)
	if err != nil {
		return err
	}
	err = fn(s)
	return errors.Join(err, s.Close())
}
