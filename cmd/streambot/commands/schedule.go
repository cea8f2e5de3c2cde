package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jholhewres/streambot/pkg/streambot/scheduler"
)

// newScheduleCmd creates the `streambot schedule` command group for
// managing periodic posts.
func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage scheduled posts",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <cron-expr> <text>",
			Short: "Add a scheduled post",
			Args:  cobra.ExactArgs(2),
			RunE:  runScheduleAdd,
		},
		&cobra.Command{
			Use:   "list",
			Short: "List scheduled posts",
			RunE:  runScheduleList,
		},
		&cobra.Command{
			Use:   "remove <id>",
			Short: "Remove a scheduled post",
			Args:  cobra.ExactArgs(1),
			RunE:  runScheduleRemove,
		},
	)
	return cmd
}

func openStorage(cmd *cobra.Command) (*scheduler.SQLiteJobStorage, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return scheduler.OpenSQLiteJobStorage(cfg.Scheduler.DBPath)
}

func runScheduleAdd(cmd *cobra.Command, args []string) error {
	storage, err := openStorage(cmd)
	if err != nil {
		return err
	}
	defer storage.Close()

	sched := scheduler.New(storage, nil, nil)
	job, err := sched.Add(args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Printf("Scheduled post %s (%s)\n", job.ID, job.Schedule)
	return nil
}

func runScheduleList(cmd *cobra.Command, _ []string) error {
	storage, err := openStorage(cmd)
	if err != nil {
		return err
	}
	defer storage.Close()

	jobs, err := storage.LoadAll()
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Println("No scheduled posts.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCHEDULE\tRUNS\tTEXT")
	for _, j := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", j.ID, j.Schedule, j.RunCount, j.Text)
	}
	return w.Flush()
}

func runScheduleRemove(cmd *cobra.Command, args []string) error {
	storage, err := openStorage(cmd)
	if err != nil {
		return err
	}
	defer storage.Close()

	if err := storage.Delete(args[0]); err != nil {
		return err
	}
	fmt.Printf("Removed %s\n", args[0])
	return nil
}
