package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/slimtgo/slimt/internal/logging"
	"github.com/slimtgo/slimt/pkg/cache"
	"github.com/slimtgo/slimt/pkg/frontend"
	"github.com/slimtgo/slimt/pkg/schedule"
	"github.com/slimtgo/slimt/pkg/xlate"
)

// newServeWorkersCmd drives frontend.Async (spec.md §4.11): each stdin
// line is submitted as an independent Translate call against a fixed
// worker pool, and results are printed in submission order, each one as
// soon as its own Handle (and every earlier one) has resolved.
func newServeWorkersCmd() *cobra.Command {
	var (
		modelPath     string
		shortlistPath string
		configPath    string
		padID, eosID  uint32
		workers       int
		cacheSize     int
	)

	cmd := &cobra.Command{
		Use:   "serve-workers",
		Short: "Translate stdin lines through a worker pool, one per line",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions(configPath)
			if err != nil {
				return err
			}

			lm, err := loadModel("model", modelPath, shortlistPath, opts, padID, eosID)
			if err != nil {
				return err
			}
			defer lm.Close()

			if workers <= 0 {
				workers = opts.Workers
			}

			aggregate := schedule.NewAggregateBatcher()
			monitor := schedule.NewAggregateMonitor(aggregate)
			async := frontend.NewAsync(monitor, workers)
			batcher := schedule.NewBatcher(padID, opts.MaxWords, opts.TargetLengthFactor)
			async.RegisterModel(lm.frontend, batcher)

			c := cache.New(cacheSize)
			v := lm.frontend.Vocab

			var handles []*frontend.Handle
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				ids, _, err := v.Encode(line)
				if err != nil {
					logging.Warnf("serve-workers: skipping unparsable line %q: %v", line, err)
					continue
				}
				handles = append(handles, async.Translate(lm.frontend, []xlate.Segment{ids}, []string{""}, line, [][2]int{{0, len(line)}}, c))
			}
			if err := scanner.Err(); err != nil {
				return err
			}

			for i, h := range handles {
				resp, err := h.Future()
				if err != nil {
					fmt.Printf("%d\terror: %v\n", i, err)
					continue
				}
				fmt.Printf("%d\t%s\n", i, resp.TargetText)
			}

			return async.Shutdown()
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "", "path to model container")
	cmd.Flags().StringVar(&shortlistPath, "shortlist", "", "optional path to shortlist container")
	cmd.Flags().StringVar(&configPath, "config", "", "optional YAML options file")
	cmd.Flags().Uint32Var(&padID, "pad-id", 0, "pad token id")
	cmd.Flags().Uint32Var(&eosID, "eos-id", 1, "end-of-sequence token id")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker count (0 uses config default)")
	cmd.Flags().IntVar(&cacheSize, "cache-size", 0, "translation cache slots (0 disables)")
	cmd.MarkFlagRequired("model")
	return cmd
}
