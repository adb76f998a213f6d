package main

import (
	"fmt"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/goliatone/go-cacherepo/cache"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries the backend opened for the running command.
type app struct {
	cache  cache.AppCache
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "cachectl",
		Short:        "Inspect and maintain cache partitions",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "path to a YAML config file")
	flags.String("backend", "", "cache backend: redis or local")
	flags.String("redis-addr", "", "redis address (host:port)")
	flags.String("prefix", "", "key prefix shared with the application")
	flags.BoolP("verbose", "v", false, "log cache operations to stderr")

	root.AddCommand(
		newPartitionsCmd(a),
		newSweepCmd(a),
		newGetCmd(a),
		newClearCmd(a),
	)
	return root
}

func (a *app) open(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	a.logger = zap.NewNop()
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		if a.logger, err = zap.NewDevelopment(); err != nil {
			return errors.Wrap(err, "creating logger")
		}
	}

	a.cache, err = cache.New(cfg, cache.WithLogger(a.logger), cache.WithContext(cmd.Context()))
	if err != nil {
		return err
	}
	a.logger.Debug("cache opened", zap.String("backend", string(cfg.Backend)), zap.String("prefix", cfg.KeyPrefix))
	return nil
}

func (a *app) close() error {
	if a.cache == nil {
		return nil
	}
	err := a.cache.Close()
	_ = a.logger.Sync()
	a.cache = nil
	return err
}

// withCache opens the backend around fn and closes it whatever fn returns.
func (a *app) withCache(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		if err := a.open(cmd); err != nil {
			return err
		}
		defer func() {
			err = errors.CombineErrors(err, a.close())
		}()
		return fn(cmd, args)
	}
}

func newPartitionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "partitions",
		Short: "List registered partitions",
		Args:  cobra.NoArgs,
		RunE: a.withCache(func(cmd *cobra.Command, args []string) error {
			names, err := a.cache.GetAllPartitionNamesContext(cmd.Context())
			if err != nil {
				return err
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		}),
	}
}

func newSweepCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "sweep [partition...]",
		Short: "Remove expired items from partitions",
		RunE: a.withCache(func(cmd *cobra.Command, args []string) error {
			partitions := args
			if all {
				names, err := a.cache.GetAllPartitionNamesContext(cmd.Context())
				if err != nil {
					return err
				}
				partitions = names
			}
			if len(partitions) == 0 {
				return errors.New("no partition given, pass one or more names or --all")
			}
			for _, partition := range partitions {
				removed, err := a.cache.RemoveExpiredItemsFromPartitionContext(cmd.Context(), partition)
				if err != nil {
					return errors.Wrapf(err, "sweeping %s", partition)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", partition, removed)
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&all, "all", false, "sweep every registered partition")
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	var partition string
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print the decoded value stored under key",
		Args:  cobra.ExactArgs(1),
		RunE: a.withCache(func(cmd *cobra.Command, args []string) error {
			v, err := a.cache.GetContext(cmd.Context(), args[0], partition)
			if err != nil {
				return err
			}
			if v == nil {
				return errors.Newf("key %q not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%v\n", v)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&partition, "partition", "p", "", "partition holding the key")
	return cmd
}

func newClearCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every key of the backend",
		Args:  cobra.NoArgs,
		RunE: a.withCache(func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear the cache without --yes")
			}
			if err := a.cache.ClearCacheContext(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")
			return nil
		}),
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm clearing the whole backend")
	return cmd
}
