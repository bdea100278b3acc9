package main

import (
	"io"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mattdomit/dotted-sub000/internal/seed"
)

type seedOptions struct {
	file     string
	quiet    bool
	generate seed.GenerateOptions
}

func (c *cli) seedCmd() *cobra.Command {
	opts := &seedOptions{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load zones, restaurants and suppliers from a fixture or generate them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fx, err := opts.fixture(c)
			if err != nil {
				return err
			}
			repo, closeFn, err := c.openStore()
			if err != nil {
				return err
			}
			defer closeFn()

			sum, err := applyFixture(cmd, repo, fx, opts.quiet)
			if err != nil {
				return err
			}
			c.logger.Info("seed applied", zap.Int("zones", sum.Zones), zap.Int("restaurants", sum.Restaurants), zap.Int("suppliers", sum.Suppliers))
			return printJSON(cmd.OutOrStdout(), sum)
		},
	}
	opts.bind(cmd)
	return cmd
}

func (o *seedOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.file, "file", "f", "", "YAML fixture to load instead of generating data")
	cmd.Flags().BoolVarP(&o.quiet, "quiet", "q", false, "hide the progress bar")
	cmd.Flags().IntVar(&o.generate.Zones, "zones", 2, "zones to generate")
	cmd.Flags().IntVar(&o.generate.Restaurants, "restaurants", 4, "restaurants per generated zone")
	cmd.Flags().IntVar(&o.generate.Suppliers, "suppliers", 3, "suppliers per generated zone")
	cmd.Flags().IntVar(&o.generate.Members, "members", 25, "members per generated zone")
	cmd.Flags().Int64Var(&o.generate.Seed, "seed", 42, "random seed for generated data")
}

func (o *seedOptions) fixture(c *cli) (seed.Fixture, error) {
	if o.file != "" {
		fx, err := seed.LoadFixture(o.file)
		if err != nil {
			return seed.Fixture{}, err
		}
		if len(fx.Dishes) == 0 {
			fx.Dishes = seed.DefaultDishes()
		}
		return fx, nil
	}
	gen := o.generate
	gen.Timezone = c.cfg.Sweep.DefaultTimezone
	return seed.Generate(gen), nil
}

func applyFixture(cmd *cobra.Command, repo store, fx seed.Fixture, quiet bool) (seed.Summary, error) {
	var w io.Writer = cmd.ErrOrStderr()
	if quiet {
		w = io.Discard
	}
	bar := progressbar.NewOptions(fx.Steps(),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("seeding"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	sum, err := seed.Apply(commandContext(cmd), repo, fx, func() { _ = bar.Add(1) })
	if err != nil {
		return sum, err
	}
	_ = bar.Finish()
	return sum, nil
}
