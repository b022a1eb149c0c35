package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newSnapshotsCmd(a *app) *cobra.Command {
	var (
		limit int
		all   bool
		prune int
	)
	cmd := &cobra.Command{
		Use:   "snapshots [dir]",
		Short: "List recorded snapshots with the code delta between them",
		Long: `Lists the snapshots recorded with "tally --record" for dir (default "."),
newest first. Each row shows the change in code lines since the snapshot
before it.`,
		Args: maxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return usageError(fmt.Errorf("--all cannot be combined with a directory"))
			}
			if cmd.Flags().Changed("prune") && prune < 0 {
				return usageError(fmt.Errorf("--prune must not be negative: %d", prune))
			}

			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			root := ""
			if !all {
				root = recordRoot(args)
			}
			ctx := cmd.Context()

			if cmd.Flags().Changed("prune") {
				if root == "" {
					return usageError(fmt.Errorf("--prune needs a single directory"))
				}
				n, err := s.Prune(ctx, root, prune)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.stderr, "removed %d snapshots\n", n)
			}

			snaps, err := s.List(ctx, root, limit)
			if err != nil {
				return err
			}
			return a.printer().Snapshots(a.outputFormat(), snaps, time.Now())
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "show at most this many snapshots (0 = all)")
	cmd.Flags().BoolVar(&all, "all", false, "list snapshots of every directory")
	cmd.Flags().IntVar(&prune, "prune", 0, "keep only the newest N snapshots before listing")

	cmd.AddCommand(&cobra.Command{
		Use:   "show ID",
		Short: "Show the per-language counts of one snapshot",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			project, err := s.Project(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printer().Project(a.outputFormat(), project)
		},
	})
	return cmd
}
