package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/kimai-report/pkg/config"
	"github.com/harrisonrobin/kimai-report/pkg/journal"
	"github.com/harrisonrobin/kimai-report/pkg/tags"
	"github.com/harrisonrobin/kimai-report/pkg/timew"
)

func journalCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect and repair the journal of created records",
	}
	cmd.AddCommand(journalListCmd(opts))
	cmd.AddCommand(journalRepairCmd(opts))
	return cmd
}

func openJournal(opts *options) (*config.Config, *journal.Journal, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	path, err := cfg.JournalPath()
	if err != nil {
		return nil, nil, err
	}
	j, err := journal.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening journal: %w", err)
	}
	return cfg, j, nil
}

func journalListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List journalled records",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, j, err := openJournal(opts)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SESSION\tRECORD\tSTART\tEND\tCREATED")
			for _, e := range j.List() {
				fmt.Fprintf(w, "@%s\t%d\t%s\t%s\t%s\n",
					e.SessionID, e.RecordID,
					e.Start.Local().Format("2006-01-02 15:04"),
					e.End.Local().Format("2006-01-02 15:04"),
					e.CreatedAt.Local().Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
}

func journalRepairCmd(opts *options) *cobra.Command {
	var prune bool

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Tag intervals whose record id was never written back",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, j, err := openJournal(opts)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.LogLevel)

			classifier, err := tags.NewClassifier(cfg.Classes())
			if err != nil {
				return err
			}
			format := func(id int) (string, error) {
				return classifier.Format(tags.Record, id)
			}

			tracker := timew.NewClient(cfg.Timew.Bin, logger)
			results, err := journal.Repair(cmd.Context(), j, tracker, format, logger)
			for _, res := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: record %d %s\n", sessionRef(res), res.Entry.RecordID, res.Status)
				if prune && res.Status != "missing" {
					j.Remove(timew.FormatTime(res.Entry.Start))
				}
			}
			if prune {
				if saveErr := j.Save(); saveErr != nil && err == nil {
					err = saveErr
				}
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&prune, "prune", false, "drop entries whose interval is tagged")
	return cmd
}

func sessionRef(res journal.RepairResult) string {
	if res.Session == "" {
		return "@" + res.Entry.SessionID + " (gone)"
	}
	return timew.Session{ID: res.Session}.Ref()
}
