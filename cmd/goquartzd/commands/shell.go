package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/jholhewres/goquartz/scheduler"
)

// newShellCmd opens an interactive operator shell over a single in-process
// Scheduler instance: history, arrow-key navigation, and a persistent
// process so commands don't pay a fresh scheduler-construction cost each
// time. The scheduler's acquire/fire loop is not started; commands act on
// its store, which is saved on exit.
func newShellCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Open an interactive shell against an in-process scheduler instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(*cfgPath)
			if err != nil {
				return err
			}

			home, _ := os.UserHomeDir()
			historyFile := filepath.Join(home, ".goquartzd-history")

			rl, err := readline.NewEx(&readline.Config{
				Prompt:            "goquartz> ",
				HistoryFile:       historyFile,
				InterruptPrompt:   "^C",
				EOFPrompt:         "exit",
				HistorySearchFold: true,
			})
			if err != nil {
				return fmt.Errorf("shell: init readline: %w", err)
			}
			defer rl.Close()

			fmt.Println("goquartzd shell - type 'help' for commands, 'exit' to quit")
			for {
				line, err := rl.Readline()
				if err == readline.ErrInterrupt {
					if len(line) == 0 {
						break
					}
					continue
				} else if err == io.EOF {
					break
				}

				line = strings.TrimSpace(line)
				if line == "" {
					continue
				}
				if line == "exit" || line == "quit" {
					break
				}
				runShellCommand(app, line)
			}

			return app.SaveSnapshot()
		},
	}
}

func runShellCommand(app *App, line string) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help":
		fmt.Println("commands: list | pause <key> | resume <key> | trigger <key> | exit")

	case "list":
		for _, key := range app.Scheduler.GetJobKeys(scheduler.AnyGroup()) {
			fmt.Println(key)
		}

	case "pause":
		if len(args) != 1 {
			fmt.Println("usage: pause <group.name>")
			return
		}
		if err := app.Scheduler.PauseJob(parseJobKey(args[0])); err != nil {
			fmt.Println("error:", err)
		}

	case "resume":
		if len(args) != 1 {
			fmt.Println("usage: resume <group.name>")
			return
		}
		if err := app.Scheduler.ResumeJob(parseJobKey(args[0])); err != nil {
			fmt.Println("error:", err)
		}

	case "trigger":
		if len(args) != 1 {
			fmt.Println("usage: trigger <group.name>")
			return
		}
		if err := app.Scheduler.TriggerJob(parseJobKey(args[0]), scheduler.JobDataMap{}); err != nil {
			fmt.Println("error:", err)
		}

	default:
		fmt.Printf("unknown command %q (try 'help')\n", cmd)
	}
}
