package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var (
		input          string
		engineName     string
		distance       string
		m              int
		efConstruction int
		lists          int
		seed           int64
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Build an index from a vector file and print its stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			vectors, err := loadVectors(input)
			if err != nil {
				return err
			}
			distKind, err := parseDistance(distance)
			if err != nil {
				return err
			}

			e, err := buildEngine(ctx, engineName, vectors, distKind, m, efConstruction, lists, seed)
			if err != nil {
				return err
			}
			fmt.Println(e.statsString())
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "path to an NDJSON vector file (required)")
	cmd.Flags().StringVar(&engineName, "engine", "hnsw", "index engine: hnsw or ivfflat")
	cmd.Flags().StringVar(&distance, "distance", "l2", "distance kind: l2, inner, cosine, or l1")
	cmd.Flags().IntVar(&m, "m", 16, "HNSW M (ignored for ivfflat)")
	cmd.Flags().IntVar(&efConstruction, "ef-construction", 64, "HNSW efConstruction (ignored for ivfflat)")
	cmd.Flags().IntVar(&lists, "lists", 100, "IVFFlat list count (ignored for hnsw)")
	cmd.Flags().Int64Var(&seed, "seed", 1, "k-means random seed (ivfflat only)")
	cmd.MarkFlagRequired("input")
	return cmd
}
