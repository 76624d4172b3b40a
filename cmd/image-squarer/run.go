package main

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/menta2k/image-squarer/internal/utils"
	"github.com/menta2k/image-squarer/pkg/types"
)

func runCmd(opts *globalOptions) *cobra.Command {
	var size, quality int
	var outDir, filter string
	var optimg bool

	c := &cobra.Command{
		Use:   "run [files|dirs|urls...]",
		Short: "Normalize images into square JPEGs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("size") {
				cfg.Output.Size = size
			}
			if flags.Changed("quality") {
				cfg.Output.Quality = quality
			}
			if flags.Changed("out") {
				cfg.Output.OutputDir = outDir
			}
			if flags.Changed("filter") {
				cfg.Resize.Filter = filter
			}
			if flags.Changed("optimg") {
				cfg.Output.SuffixEnabled = optimg
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			sq, err := newSquarer(cfg)
			if err != nil {
				return err
			}

			sources, err := utils.ExpandInputs(args)
			if err != nil {
				return err
			}

			failed := 0
			inputs := make([]types.Input, 0, len(sources))
			for _, src := range sources {
				in, err := sq.Processor().LoadImageSmart(src)
				if err != nil {
					log.WithError(err).WithField("source", src).Error("failed to load image")
					failed++
					continue
				}
				inputs = append(inputs, in)
			}

			session, err := sq.NewSession(cfg.Output.Size, log)
			if err != nil {
				return err
			}
			// Completed outcomes are written even when the batch was interrupted
			outcomes, processErr := session.Process(cmd.Context(), inputs)

			if err := utils.EnsureDir(cfg.Output.OutputDir); err != nil {
				return err
			}
			suffix := ""
			if cfg.Output.SuffixEnabled {
				suffix = cfg.Output.Suffix
			}

			results := session.Results()
			for _, o := range outcomes {
				if !o.OK() {
					failed++
					continue
				}
				res := results[o.Index]
				path := filepath.Join(cfg.Output.OutputDir, utils.OutputFilename(res.Name, suffix))
				if err := sq.Processor().SaveBytes(res.Data, path); err != nil {
					log.WithError(err).WithField("path", path).Error("failed to write output")
					failed++
					continue
				}
				log.WithFields(logrus.Fields{
					"path": path,
					"box":  o.Box.String(),
					"size": utils.FormatFileSize(int64(len(res.Data))),
				}).Info("wrote image")
			}

			if processErr != nil {
				return processErr
			}
			if failed > 0 {
				return fmt.Errorf("%d image(s) failed", failed)
			}
			return nil
		},
	}

	c.Flags().IntVarP(&size, "size", "s", 800, "output edge length in pixels (50-5000)")
	c.Flags().IntVarP(&quality, "quality", "q", types.DefaultQuality, "JPEG quality (1-100)")
	c.Flags().StringVarP(&outDir, "out", "o", "./output", "output directory")
	c.Flags().StringVar(&filter, "filter", "lanczos", "resampling filter: lanczos|catmullrom")
	c.Flags().BoolVar(&optimg, "optimg", false, "append the configured suffix to output names")
	return c
}
