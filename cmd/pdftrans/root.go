package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/euel88/law-chatbot/internal/config"
	"github.com/euel88/law-chatbot/internal/logger"
)

// cli holds state shared by every subcommand.
type cli struct {
	configPath string
	verbose    bool

	config *config.ConfigManager
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "pdftrans",
		Short:         "Translate PDF documents while preserving their layout",
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default ~/.config/pdftrans/config.yaml)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newTranslateCmd(c),
		newInfoCmd(c),
		newServeCmd(c),
		newLanguagesCmd(c),
		newConfigCmd(c),
	)
	return root
}

// setup loads the configuration and initialises logging.
func (c *cli) setup() error {
	if c.verbose {
		logger.SetGlobalLogger(logger.NewConsoleLogger(os.Stderr, logger.LevelDebug))
	}

	cm, err := config.NewConfigManager(c.configPath)
	if err != nil {
		return err
	}
	if err := cm.Load(); err != nil {
		return err
	}
	c.config = cm

	cfg := cm.GetConfig()
	logCfg := &logger.Config{
		LogFilePath: cfg.LogFile,
		MaxFileSize: logger.DefaultConfig().MaxFileSize,
		MaxBackups:  logger.DefaultConfig().MaxBackups,
		Level:       logger.ParseLevel(cfg.LogLevel),
	}
	if c.verbose {
		logCfg.Level = logger.LevelDebug
		logCfg.Console = os.Stderr
	}
	if logCfg.LogFilePath == "" && logCfg.Console == nil {
		// Nothing to write to; keep the no-op logger.
		return nil
	}
	return logger.Init(logCfg)
}
