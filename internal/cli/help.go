package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// addHelpCommands adds help and discovery commands.
func addHelpCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newCommandsCmd(rootCmd))
}

// commandCategories groups top-level commands for the listing.
var commandCategories = []struct {
	name     string
	commands []string
}{
	{"Charts", []string{"render", "analyze"}},
	{"Data", []string{"import", "export", "data", "watchlist"}},
	{"Utility", []string{"config", "version", "commands"}},
}

// commandEntry is one listed command.
type commandEntry struct {
	Path  string `json:"command"`
	Short string `json:"description"`
}

func newCommandsCmd(rootCmd *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "List all commands by category",
		Long:  "Display all available commands organized by category.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if output.IsJSON() {
				listing := make(map[string][]commandEntry)
				for _, cat := range commandCategories {
					for _, name := range cat.commands {
						listing[cat.name] = append(listing[cat.name], listCommand(rootCmd, name)...)
					}
				}
				return output.JSON(listing)
			}

			output.Bold("Chartlab Commands")
			output.Println()
			for _, cat := range commandCategories {
				output.Printf("%s\n", output.Title(cat.name))
				for _, name := range cat.commands {
					for _, e := range listCommand(rootCmd, name) {
						output.Printf("  %-32s %s\n", e.Path, output.DimText(e.Short))
					}
				}
				output.Println()
			}
			output.Dim("Use 'chartlab <command> --help' for details.")
			return nil
		},
	}
}

// listCommand returns the named top-level command and its runnable
// subcommands.
func listCommand(rootCmd *cobra.Command, name string) []commandEntry {
	var entries []commandEntry
	var walk func(c *cobra.Command)
	walk = func(c *cobra.Command) {
		if c.Hidden {
			return
		}
		if c.Runnable() {
			path := strings.TrimPrefix(c.CommandPath(), rootCmd.Name()+" ")
			if _, rest, ok := strings.Cut(c.Use, " "); ok {
				path += " " + rest
			}
			entries = append(entries, commandEntry{Path: path, Short: c.Short})
		}
		for _, sub := range c.Commands() {
			walk(sub)
		}
	}
	for _, c := range rootCmd.Commands() {
		if c.Name() == name {
			walk(c)
		}
	}
	return entries
}
