package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	imagesquarer "github.com/menta2k/image-squarer"
	"github.com/menta2k/image-squarer/internal/config"
	"github.com/menta2k/image-squarer/internal/logging"
	"github.com/menta2k/image-squarer/internal/utils"
	"github.com/menta2k/image-squarer/pkg/cropper"
	"github.com/menta2k/image-squarer/pkg/vision"
)

type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:          "image-squarer",
		Short:        "Center product photos on a white square canvas",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (JSON or YAML; default "+config.GetConfigPath()+" if present)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug|info|warn|error")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format: text|json")

	cmd.AddCommand(runCmd(opts), serveCmd(opts), versionCmd())
	return cmd
}

// load resolves the config file and applies the global flag overrides
func (o *globalOptions) load(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()

	path := o.configPath
	if path == "" && utils.FileExists(config.GetConfigPath()) {
		path = config.GetConfigPath()
	}
	if path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Log.Format = o.logFormat
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*logrus.Logger, error) {
	return logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
}

func newSquarer(cfg *config.Config) (*imagesquarer.Squarer, error) {
	filter, err := cropper.FilterByName(cfg.Resize.Filter)
	if err != nil {
		return nil, err
	}
	return imagesquarer.NewWithConfig(
		vision.DetectionConfig{},
		cropper.CropConfig{Filter: filter},
		cfg.Output.Quality,
	), nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "image-squarer %s\n", imagesquarer.GetVersion())
		},
	}
}
