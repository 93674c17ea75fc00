package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jholhewres/goquartz/internal/bundle"
)

func newLoadCmd(cfgPath *string) *cobra.Command {
	var replace bool

	cmd := &cobra.Command{
		Use:   "load <bundle.yaml>",
		Short: "Schedule every job/trigger described in a YAML bundle file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(*cfgPath)
			if err != nil {
				return err
			}

			f, err := bundle.Load(args[0])
			if err != nil {
				return err
			}
			jobs, err := bundle.Build(f)
			if err != nil {
				return err
			}
			if err := app.Scheduler.ScheduleJobs(jobs, replace); err != nil {
				return err
			}
			if err := app.SaveSnapshot(); err != nil {
				return err
			}
			fmt.Printf("loaded %d job(s) from %s\n", len(jobs), args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "overwrite jobs/triggers that already exist")
	return cmd
}
