package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Chative-core-poc-v1/companion/internal/agent/model"
)

var (
	recordsUser  string
	recordsKind  string
	recordsMoods int
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List a user's saved habits, goals and reminders",
	RunE:  runRecords,
}

func init() {
	recordsCmd.Flags().StringVarP(&recordsUser, "user", "u", "local-user", "user id to list")
	recordsCmd.Flags().StringVarP(&recordsKind, "kind", "k", "", "habit, goal or reminder (default all)")
	recordsCmd.Flags().IntVar(&recordsMoods, "moods", 5, "number of recent mood entries to show (0 hides them)")
}

func runRecords(cmd *cobra.Command, args []string) error {
	kind := model.FlowType(strings.ToLower(recordsKind))
	if kind != "" && !kind.Committable() {
		return fmt.Errorf("--kind must be habit, goal or reminder, got %q", recordsKind)
	}

	ctx := cmd.Context()
	s, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	records, err := s.records.ListRecords(ctx, recordsUser, kind)
	if err != nil {
		return fmt.Errorf("listing records: %w", err)
	}

	out := cmd.OutOrStdout()
	color.New(color.Bold).Fprintf(out, "Records for %s\n", recordsUser)
	if len(records) == 0 {
		fmt.Fprintln(out, "  (none)")
	} else {
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KIND\tTITLE\tSCHEDULE\tCREATED")
		for _, r := range records {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Kind, r.Title, schedule(r), r.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if recordsMoods <= 0 {
		return nil
	}
	moods, err := s.records.RecentMoods(ctx, recordsUser, recordsMoods)
	if err != nil {
		return fmt.Errorf("listing moods: %w", err)
	}
	color.New(color.Bold).Fprintf(out, "\nRecent moods\n")
	if len(moods) == 0 {
		fmt.Fprintln(out, "  (none)")
	}
	for _, m := range moods {
		fmt.Fprintf(out, "  %s  %d/5  %s\n", m.CreatedAt.Local().Format("2006-01-02 15:04"), m.Score, m.Note)
	}
	return nil
}

func schedule(r model.Record) string {
	switch r.Kind {
	case model.FlowHabit:
		return r.Frequency
	case model.FlowGoal:
		return r.TargetDate
	case model.FlowReminder:
		return r.ReminderTime
	}
	return ""
}
