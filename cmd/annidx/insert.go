package main

import (
	"encoding/json"
	"fmt"

	"github.com/annidx/annidx/pkg/vector"
	"github.com/spf13/cobra"
)

func newInsertCmd() *cobra.Command {
	var (
		input          string
		engineName     string
		distance       string
		m              int
		efConstruction int
		lists          int
		seed           int64
		vectorStr      string
	)

	cmd := &cobra.Command{
		Use:   "insert",
		Short: "Build an index from a vector file, then insert one more vector",
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
			if err := json.Unmarshal([]byte(vectorStr), &raw); err != nil {
				return fmt.Errorf("parsing --vector: %w", err)
			}
			v, err := vector.New(raw)
			if err != nil {
				return err
			}

			e, err := buildEngine(ctx, engineName, vectors, distKind, m, efConstruction, lists, seed)
			if err != nil {
				return err
			}

			switch {
			case e.hnsw != nil:
				id, err := e.hnsw.Insert(ctx, v)
				if err != nil {
					return err
				}
				fmt.Printf("inserted id=%d\n", id)
			case e.ivfflat != nil:
				id := uint64(len(vectors))
				if err := e.ivfflat.Insert(id, v); err != nil {
					return err
				}
				fmt.Printf("inserted id=%d\n", id)
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
	cmd.Flags().StringVar(&vectorStr, "vector", "", "vector to insert, as a JSON float array (required)")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("vector")
	return cmd
}
