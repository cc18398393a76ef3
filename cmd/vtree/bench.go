package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vtree/internal/bench"
	"github.com/vango-dev/vtree/internal/errors"
)

func benchCmd(a *app) *cobra.Command {
	var (
		items    int
		rounds   int
		seed     uint64
		asJSON   bool
		noUpload bool
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark keyed list reordering",
		Long: `Render a keyed list, then time reversing and shuffling it.

When bench.bucket is configured the JSON report is uploaded to S3 using
the AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN
environment variables. AWS_ENDPOINT_URL selects an S3-compatible store.

Examples:
  vtree bench
  vtree bench --items=200 --rounds=20 --json
  vtree bench --set bench.bucket=my-reports`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := bench.Options{
				Items:  a.cfg.Bench.Items,
				Rounds: a.cfg.Bench.Iterations,
				Seed:   seed,
				Logger: a.logger,
			}
			if cmd.Flags().Changed("items") {
				opts.Items = items
			}
			if cmd.Flags().Changed("rounds") {
				opts.Rounds = rounds
			}

			report, err := bench.Run(cmd.Context(), opts)
			if err != nil {
				return errors.New("E300").Wrap(err)
			}

			w := cmd.OutOrStdout()
			if asJSON {
				if err := report.WriteJSON(w); err != nil {
					return err
				}
			} else {
				printReport(w, report)
			}

			if a.cfg.Bench.Bucket == "" || noUpload {
				return nil
			}
			store := bench.NewStore(bench.NewS3Client(a.cfg.Bench.Region), a.cfg.Bench.Bucket, a.cfg.Bench.Prefix)
			key, err := store.Put(cmd.Context(), report)
			if err != nil {
				return errors.New("E301").Wrap(err)
			}
			if !asJSON {
				success("Uploaded s3://%s/%s", a.cfg.Bench.Bucket, key)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&items, "items", "n", 0, "List length (default from bench.items)")
	cmd.Flags().IntVarP(&rounds, "rounds", "r", 0, "Measured renders per case (default from bench.iterations)")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "Shuffle seed")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the JSON report")
	cmd.Flags().BoolVar(&noUpload, "no-upload", false, "Skip the S3 upload")

	return cmd
}

func printReport(w io.Writer, r *bench.Report) {
	fmt.Fprintf(w, "Keyed reorder (N=%d, %d rounds, %s %s/%s)\n\n",
		r.Workload.Items, r.Workload.Rounds, r.Run.Go, r.Run.OS, r.Run.Arch)
	fmt.Fprintf(w, "  %-8s %9s %9s %9s %9s %11s\n", "case", "min ms", "p50 ms", "p95 ms", "max ms", "moves/round")
	for _, c := range r.Cases {
		fmt.Fprintf(w, "  %-8s %9.3f %9.3f %9.3f %9.3f %11.1f\n",
			c.Name, c.LatencyMS.Min, c.LatencyMS.P50, c.LatencyMS.P95, c.LatencyMS.Max, c.InsertsPerRound)
	}
	fmt.Fprintln(w)
}
