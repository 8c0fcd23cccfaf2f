package cmd

import (
	"io"

	"go.uber.org/zap"

	"github.com/atikulmunna/sharetail/internal/config"
	"github.com/atikulmunna/sharetail/internal/discovery"
	"github.com/atikulmunna/sharetail/internal/logging"
	"github.com/atikulmunna/sharetail/internal/logname"
	"github.com/atikulmunna/sharetail/internal/poller"
	"github.com/atikulmunna/sharetail/internal/tailer"
)

// app holds what every command builds from the configuration.
type app struct {
	cfg      config.Config
	log      *logging.Logger
	naming   logname.Convention
	detector *discovery.Detector
	readOpts tailer.Options
}

// newApp loads the configuration and builds the shared components. withFile
// adds the rotated log file sink; console receives human-readable logs.
func newApp(console io.Writer, withFile bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logCfg := logging.Config{
		Level:      cfg.Logging.Level,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Console:    console,
	}
	if withFile {
		logCfg.FilePath = cfg.Logging.File
	}
	log, err := logging.New(logCfg)
	if err != nil {
		return nil, err
	}

	dec, err := tailer.NewDecoder(cfg.Log.Encoding)
	if err != nil {
		_ = log.Close()
		return nil, err
	}

	naming := logname.Convention{
		Prefix:     cfg.Log.Prefix,
		Extension:  cfg.Log.Extension,
		DateLayout: cfg.Log.DateLayout,
	}
	share := discovery.Share{
		Server:       cfg.Share.Server,
		Name:         cfg.Share.Name,
		Path:         cfg.Share.Path,
		MountName:    cfg.Share.MountName,
		Port:         cfg.Share.Port,
		FallbackUID:  cfg.Share.FallbackUID,
		DriveLetters: cfg.Share.DriveLetters,
	}

	return &app{
		cfg:    cfg,
		log:    log,
		naming: naming,
		detector: discovery.New(share, naming, log.Logger,
			discovery.WithConnectivityTimeouts(cfg.Timeouts.Ping, cfg.Timeouts.Connect)),
		readOpts: tailer.Options{
			ReadTimeout:   cfg.Timeouts.Read,
			StatTimeout:   cfg.Timeouts.Stat,
			LocateTimeout: cfg.Timeouts.Discovery,
			InitialLines:  cfg.Lines.Initial,
			UpdateLines:   cfg.Lines.Update,
			Decoder:       dec,
		},
	}, nil
}

// resolver reads the configured directory directly when one is set and
// otherwise discovers the share mount.
func (a *app) resolver() poller.Resolver {
	if a.cfg.Log.Dir != "" {
		a.log.Info("using configured log directory", zap.String("dir", a.cfg.Log.Dir))
		return poller.Static(a.cfg.Log.Dir, a.naming, a.readOpts, a.log.Logger)
	}
	return poller.Discover(a.detector, a.naming, a.readOpts, a.cfg.Timeouts.Probe, a.cfg.Timeouts.Discovery, a.log.Logger)
}
