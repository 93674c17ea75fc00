package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPauseCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "pause <group.name>",
		Short: "Pause a job (all of its triggers)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(*cfgPath)
			if err != nil {
				return err
			}
			key := parseJobKey(args[0])
			if err := app.Scheduler.PauseJob(key); err != nil {
				return err
			}
			if err := app.SaveSnapshot(); err != nil {
				return err
			}
			fmt.Printf("job %s paused\n", key)
			return nil
		},
	}
}

func newResumeCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <group.name>",
		Short: "Resume a paused job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(*cfgPath)
			if err != nil {
				return err
			}
			key := parseJobKey(args[0])
			if err := app.Scheduler.ResumeJob(key); err != nil {
				return err
			}
			if err := app.SaveSnapshot(); err != nil {
				return err
			}
			fmt.Printf("job %s resumed\n", key)
			return nil
		},
	}
}
