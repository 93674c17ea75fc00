package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/jholhewres/goquartz/scheduler"
)

func newJobCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Manage individual jobs",
	}
	cmd.AddCommand(newJobCreateCmd(cfgPath))
	return cmd
}

// newJobCreateCmd drives an interactive wizard (huh) that prompts for a
// job's identity, type, schedule family, and misfire policy, then
// schedules it against the running store.
func newJobCreateCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Interactively create and schedule a new job",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(*cfgPath)
			if err != nil {
				return err
			}

			var (
				name, group, typeID string
				family              string
				intervalSecondsStr  string
				cronExpr            string
				misfire             string
			)

			typeOptions := make([]huh.Option[string], 0, len(app.Registry.TypeIDs()))
			for _, id := range app.Registry.TypeIDs() {
				typeOptions = append(typeOptions, huh.NewOption(id, id))
			}

			identity := huh.NewForm(huh.NewGroup(
				huh.NewInput().Title("Job name").Value(&name),
				huh.NewInput().Title("Job group").Placeholder("DEFAULT").Value(&group),
				huh.NewSelect[string]().Title("Job type").Options(typeOptions...).Value(&typeID),
			))
			if err := identity.Run(); err != nil {
				return fmt.Errorf("job create: %w", err)
			}

			schedule := huh.NewForm(huh.NewGroup(
				huh.NewSelect[string]().Title("Schedule family").Options(
					huh.NewOption("Simple (fixed interval)", "simple"),
					huh.NewOption("Cron (native Quartz expression)", "cron"),
				).Value(&family),
				huh.NewSelect[string]().Title("Misfire policy").Options(
					huh.NewOption("Smart (default)", "smart"),
					huh.NewOption("Fire now", "fire-now"),
					huh.NewOption("Ignore", "ignore"),
					huh.NewOption("Do nothing", "do-nothing"),
				).Value(&misfire),
			))
			if err := schedule.Run(); err != nil {
				return fmt.Errorf("job create: %w", err)
			}

			var intervalSeconds int
			switch family {
			case "simple":
				intervalForm := huh.NewForm(huh.NewGroup(
					huh.NewInput().Title("Repeat interval (seconds)").Value(&intervalSecondsStr),
				))
				if err := intervalForm.Run(); err != nil {
					return fmt.Errorf("job create: %w", err)
				}
				intervalSeconds, err = strconv.Atoi(intervalSecondsStr)
				if err != nil {
					return fmt.Errorf("job create: parse repeat interval: %w", err)
				}
			case "cron":
				cronForm := huh.NewForm(huh.NewGroup(
					huh.NewInput().Title("Cron expression").Placeholder("0 0 10 ? * *").Value(&cronExpr),
				))
				if err := cronForm.Run(); err != nil {
					return fmt.Errorf("job create: %w", err)
				}
			}

			jobKey := scheduler.NewJobKey(name, group)
			detail := scheduler.JobDetail{Key: jobKey, TypeID: typeID, Durable: true}

			triggerKey := scheduler.NewTriggerKey(name+"-trigger", group)
			var t scheduler.Trigger
			switch family {
			case "simple":
				t = scheduler.NewSimpleTrigger(triggerKey, jobKey, time.Now(), scheduler.UnlimitedRepeatCount, time.Duration(intervalSeconds)*time.Second)
			case "cron":
				ct, err := scheduler.NewCronTrigger(triggerKey, jobKey, time.Now(), cronExpr, nil)
				if err != nil {
					return fmt.Errorf("job create: %w", err)
				}
				t = ct
			}

			if setter, ok := t.(interface {
				SetMisfireInstruction(scheduler.MisfirePolicy)
			}); ok {
				setter.SetMisfireInstruction(parseWizardMisfire(misfire))
			}

			if _, _, err := app.Scheduler.ScheduleJob(detail, t); err != nil {
				return err
			}
			if err := app.SaveSnapshot(); err != nil {
				return err
			}
			fmt.Printf("scheduled job %s with trigger %s\n", jobKey, triggerKey)
			return nil
		},
	}
}

func parseWizardMisfire(s string) scheduler.MisfirePolicy {
	switch s {
	case "fire-now":
		return scheduler.MisfireFireNow
	case "ignore":
		return scheduler.MisfireIgnore
	case "do-nothing":
		return scheduler.MisfireDoNothing
	default:
		return scheduler.MisfireSmartPolicy
	}
}
