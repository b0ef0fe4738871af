package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slimtgo/slimt/internal/config"
	"github.com/slimtgo/slimt/pkg/cache"
	"github.com/slimtgo/slimt/pkg/frontend"
	"github.com/slimtgo/slimt/pkg/xlate"
)

// newTranslateCmd wires flags to frontend.Blocking.Translate (spec.md
// §4.11): each positional argument is one source, treated as a single
// segment of whitespace-separated token ids (see idVocab in vocab.go).
func newTranslateCmd() *cobra.Command {
	var (
		modelPath     string
		shortlistPath string
		configPath    string
		padID         uint32
		eosID         uint32
		cacheSize     int
	)

	cmd := &cobra.Command{
		Use:   "translate [source ...]",
		Short: "Translate one or more sources through a single model",
		Args:  cobra.MinimumNArgs(1),
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

			v := lm.frontend.Vocab
			segments := make([][]xlate.Segment, len(args))
			gaps := make([][]string, len(args))
			sourceSpans := make([][][2]int, len(args))
			for i, src := range args {
				ids, _, err := v.Encode(src)
				if err != nil {
					return fmt.Errorf("encode source %d: %w", i, err)
				}
				segments[i] = []xlate.Segment{ids}
				gaps[i] = []string{""}
				sourceSpans[i] = [][2]int{{0, len(src)}}
			}

			c := cache.New(cacheSize)
			responses, err := (frontend.Blocking{}).Translate(lm.frontend, segments, gaps, args, sourceSpans, c, opts.MaxWords, opts.TargetLengthFactor)
			if err != nil {
				return err
			}
			for i, r := range responses {
				fmt.Printf("%d\t%s\n", i, r.TargetText)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "", "path to model container (spec.md §6)")
	cmd.Flags().StringVar(&shortlistPath, "shortlist", "", "optional path to shortlist container")
	cmd.Flags().StringVar(&configPath, "config", "", "optional YAML options file")
	cmd.Flags().Uint32Var(&padID, "pad-id", 0, "pad token id")
	cmd.Flags().Uint32Var(&eosID, "eos-id", 1, "end-of-sequence token id")
	cmd.Flags().IntVar(&cacheSize, "cache-size", 0, "translation cache slots (0 disables)")
	cmd.MarkFlagRequired("model")
	return cmd
}

func loadOptions(path string) (config.Options, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
