package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/slimtgo/slimt/pkg/batch"
	"github.com/slimtgo/slimt/pkg/search"
)

// newBenchCmd drives search.Generate directly over synthetic random
// token ids, bypassing the batcher/cache/request machinery entirely, to
// measure raw decode throughput for a given model shape.
func newBenchCmd() *cobra.Command {
	var (
		modelPath     string
		shortlistPath string
		configPath    string
		padID, eosID  uint32
		batchSize     int
		srcLen        int
		vocabOverride int
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark decode throughput with synthetic inputs",
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

			vocabSize := vocabOverride
			if vocabSize <= 0 {
				vocabSize = lm.frontend.Vocab.Size()
			}
			if vocabSize <= 2 {
				return fmt.Errorf("bench: model vocabulary too small (%d) for synthetic input", vocabSize)
			}

			in, err := batch.New(batchSize, srcLen, padID, opts.TargetLengthFactor)
			if err != nil {
				return err
			}
			lengths := make([]int, batchSize)
			rng := rand.New(rand.NewSource(1))
			for i := 0; i < batchSize; i++ {
				words := make([]uint32, srcLen)
				for j := range words {
					words[j] = uint32(2 + rng.Intn(vocabSize-2))
				}
				if err := in.Add(words); err != nil {
					return err
				}
				lengths[i] = srcLen
			}

			start := time.Now()
			histories, err := search.Generate(lm.frontend.Transformer, in.Indices, in.Mask, lengths, opts.TargetLengthFactor, eosID, lm.shortlist, nil)
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			totalWords := 0
			for _, h := range histories {
				totalWords += len(h.Words)
			}
			fmt.Printf("batch=%d src_len=%d generated=%d words in %s (%.1f words/s)\n",
				batchSize, srcLen, totalWords, elapsed, float64(totalWords)/elapsed.Seconds())
			return nil
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "", "path to model container")
	cmd.Flags().StringVar(&shortlistPath, "shortlist", "", "optional path to shortlist container")
	cmd.Flags().StringVar(&configPath, "config", "", "optional YAML options file")
	cmd.Flags().Uint32Var(&padID, "pad-id", 0, "pad token id")
	cmd.Flags().Uint32Var(&eosID, "eos-id", 1, "end-of-sequence token id")
	cmd.Flags().IntVar(&batchSize, "batch", 8, "synthetic batch size")
	cmd.Flags().IntVar(&srcLen, "len", 16, "synthetic source length")
	cmd.Flags().IntVar(&vocabOverride, "vocab", 0, "override vocabulary size used to generate random ids")
	cmd.MarkFlagRequired("model")
	return cmd
}
