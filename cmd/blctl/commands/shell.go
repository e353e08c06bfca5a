package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	appversion "github.com/dantte-lp/gobroadlink/internal/version"
)

// shellCommands lists the available commands for the interactive shell
// help output.
var shellCommands = []struct {
	name string
	desc string
}{
	{"discover", "Sweep the local network for devices"},
	{"hello <ip>", "Probe a single device directly"},
	{"power <on|off|status>", "Switch or query a plug"},
	{"sensors", "Read environment sensors"},
	{"learn ir|rf", "Capture a remote code"},
	{"send <name>", "Replay a stored code"},
	{"codes list", "List stored captures"},
	{"version", "Print build information"},
	{"help", "Show this help message"},
	{"exit / quit", "Leave the interactive shell"},
}

func shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive blctl shell",
		Long:  "Launches a simple REPL that accepts blctl subcommands. Type 'help', 'exit', or 'quit'.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			printShellBanner()
			scanner := bufio.NewScanner(os.Stdin)
			fmt.Print("blctl> ")

			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())

				switch {
				case line == "exit" || line == "quit":
					return nil
				case line == "help" || line == "?":
					printShellHelp()
				case line != "":
					args := strings.Fields(line)
					rootCmd.SetArgs(args)

					if err := rootCmd.Execute(); err != nil {
						fmt.Fprintln(os.Stderr, "Error:", err)
					}
				}

				fmt.Print("blctl> ")
			}

			return scanner.Err()
		},
	}
}

// printShellBanner writes the shell greeting.
func printShellBanner() {
	fmt.Printf("blctl %s interactive shell. Type 'help' for commands.\n",
		appversion.Version)
}

// printShellHelp writes the command summary.
func printShellHelp() {
	for _, c := range shellCommands {
		fmt.Printf("  %-24s %s\n", c.name, c.desc)
	}
}
