package main

import (
	"encoding/json"
	"fmt"

	"github.com/annidx/annidx/pkg/vector"
	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	var (
		input          string
		engineName     string
		distance       string
		m              int
		efConstruction int
		lists          int
		seed           int64
		queryStr       string
		k              int
		efSearch       int
		probes         int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Build an index from a vector file and run one query against it",
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

			var raw []float32
			if err := json.Unmarshal([]byte(queryStr), &raw); err != nil {
				return fmt.Errorf("parsing --query: %w", err)
			}
			query, err := vector.New(raw)
			if err != nil {
				return err
			}

			e, err := buildEngine(ctx, engineName, vectors, distKind, m, efConstruction, lists, seed)
			if err != nil {
				return err
			}

			results, err := e.search(ctx, query, k, efSearch, probes)
			if err != nil {
				return err
			}

			for i, r := range results {
				fmt.Printf("%d: id=%d distance=%.6f\n", i+1, r.ID, r.Distance)
			}
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
	cmd.Flags().StringVar(&queryStr, "query", "", "query vector as a JSON float array (required)")
	cmd.Flags().IntVar(&k, "k", 10, "number of results")
	cmd.Flags().IntVar(&efSearch, "ef-search", 40, "HNSW efSearch beam width")
	cmd.Flags().IntVar(&probes, "probes", 1, "IVFFlat probes (lists scanned)")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("query")
	return cmd
}
