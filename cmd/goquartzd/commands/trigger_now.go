package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jholhewres/goquartz/scheduler"
)

func newTriggerNowCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "trigger-now <group.name>",
		Short: "Store a one-shot ad-hoc trigger for a job, due now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(*cfgPath)
			if err != nil {
				return err
			}
			key := parseJobKey(args[0])
			if err := app.Scheduler.TriggerJob(key, scheduler.JobDataMap{}); err != nil {
				return err
			}
			if err := app.SaveSnapshot(); err != nil {
				return err
			}
			fmt.Printf("job %s triggered\n", key)
			return nil
		},
	}
}
