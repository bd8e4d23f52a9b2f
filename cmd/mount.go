package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/narumatt/sqlitefs/internal/clock"
	"github.com/narumatt/sqlitefs/internal/config"
	"github.com/narumatt/sqlitefs/internal/fs"
	"github.com/narumatt/sqlitefs/internal/logger"
	"github.com/narumatt/sqlitefs/internal/store"
)

// mountAndJoin opens the backing database, mounts the filesystem, and blocks
// until it is unmounted.
func mountAndJoin(cfg *config.Config) error {
	cfg.LogSeverity = strings.ToUpper(cfg.LogSeverity)

	// An empty LogPath keeps logging on stderr; severity and format apply
	// either way.
	if err := logger.InitLogFile(cfg.LogPath, cfg.LogSeverity, cfg.LogFormat, logger.DefaultLogRotateConfig()); err != nil {
		return fmt.Errorf("init log file: %w", err)
	}

	logger.Infof("opening database at %q", cfg.DBPath)
	s, err := store.Open(cfg.DBPath, clock.RealClock{})
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	fileSystem := fs.New(s, clock.RealClock{}, statfsDir(cfg), cfg.AttrCacheTTL())
	defer fileSystem.Shutdown()

	mountCfg := buildMountConfig(cfg)

	logger.Infof("mounting %q at %q", cfg.DBPath, cfg.MountPoint)
	mfs, err := fuse.Mount(cfg.MountPoint, fuseutil.NewFileSystemServer(fileSystem), mountCfg)
	if err != nil {
		return fmt.Errorf("mount: %w", err)
	}

	registerSIGINTHandler(mfs.Dir())

	if err := mfs.Join(context.Background()); err != nil {
		return fmt.Errorf("MountedFileSystem.Join: %w", err)
	}
	return nil
}

// statfsDir picks the directory StatFS reports on: the backing database
// file's directory, or the mount point's parent for an in-memory store,
// which has no file of its own to stat.
func statfsDir(cfg *config.Config) string {
	if cfg.DBPath == ":memory:" {
		return filepath.Dir(cfg.MountPoint)
	}
	return filepath.Dir(cfg.DBPath)
}

func buildMountConfig(cfg *config.Config) *fuse.MountConfig {
	options := make(map[string]string)
	options["default_permissions"] = ""
	options["allow_other"] = ""
	for _, o := range cfg.FuseOptions {
		config.ParseOptions(options, o)
	}

	// Distinguish concurrent mounts of this same filesystem type (e.g. in
	// `mount` output) with a short random suffix when the user hasn't
	// picked one of their own via "-o fsname=...".
	fsName := options["fsname"]
	if fsName == "" {
		fsName = "sqlitefs-" + uuid.NewString()[:8]
		options["fsname"] = fsName
	}

	mountCfg := &fuse.MountConfig{
		FSName:     fsName,
		Subtype:    "sqlitefs",
		VolumeName: "sqlitefs",
		Options:    options,
	}

	switch cfg.LogSeverity {
	case logger.ERROR, logger.WARNING, logger.OFF:
		mountCfg.ErrorLogger = logger.NewLegacyLogger(logger.LevelError, "fuse: ")
	case logger.TRACE, logger.DEBUG:
		mountCfg.ErrorLogger = logger.NewLegacyLogger(logger.LevelError, "fuse: ")
		mountCfg.DebugLogger = logger.NewLegacyLogger(logger.LevelTrace, "fuse_debug: ")
	}

	return mountCfg
}

// registerSIGINTHandler lets the user unmount with Ctrl-C.
func registerSIGINTHandler(mountPoint string) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt)

	go func() {
		for range signalChan {
			logger.Info("received SIGINT, attempting to unmount...")
			if err := fuse.Unmount(mountPoint); err != nil {
				logger.Errorf("failed to unmount in response to SIGINT: %v", err)
			} else {
				logger.Infof("successfully unmounted in response to SIGINT")
				return
			}
		}
	}()
}
