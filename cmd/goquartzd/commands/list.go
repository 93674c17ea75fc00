package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jholhewres/goquartz/scheduler"
)

func newListCmd(cfgPath *string) *cobra.Command {
	var label string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every job and its triggers",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(*cfgPath)
			if err != nil {
				return err
			}

			keys := app.Scheduler.GetJobKeys(scheduler.AnyGroup())
			if len(keys) == 0 {
				fmt.Println("no jobs scheduled")
				return nil
			}
			for _, key := range keys {
				detail, ok := app.Scheduler.RetrieveJob(key)
				if !ok {
					continue
				}
				if label != "" && !hasTag(detail.Tags, label) {
					continue
				}
				fmt.Printf("%s  type=%s durable=%t tags=%v\n", key, detail.TypeID, detail.Durable, detail.Tags)
				for _, t := range app.Scheduler.GetTriggersForJob(key) {
					state := app.Scheduler.GetTriggerState(t.Key())
					fmt.Printf("  trigger %s  state=%s\n", t.Key(), state)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "only list jobs carrying this tag")
	return cmd
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}
