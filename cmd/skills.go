package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"brdgen/internal/skills"
)

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "Manage prompt skills",
	Long: `Skills are named instruction bundles activated by trigger phrases in
prompts. Built-in skills ship with brdgen; projects add their own under
.brdgen/skills or the configured directories.`,
}

var skillsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available skills",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadSkills()
		if err != nil {
			return err
		}
		for _, s := range reg.All() {
			fmt.Printf("%-24s %-40s %s\n", s.Name, strings.Join(s.Triggers, ", "), s.Source)
		}
		return nil
	},
}

var skillsShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Print one skill's instructions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadSkills()
		if err != nil {
			return err
		}
		s, err := reg.ByName(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("name: %s\ntriggers: %s\nsource: %s\n\n%s\n",
			s.Name, strings.Join(s.Triggers, ", "), s.Source, s.Instructions)
		return nil
	},
}

func init() {
	skillsCmd.AddCommand(skillsListCmd, skillsShowCmd)
	rootCmd.AddCommand(skillsCmd)
}

// loadSkills builds the registry. Unreadable skill files degrade to a
// warning; the registry is still usable.
func loadSkills() (*skills.Registry, error) {
	reg, err := skills.NewRegistry(skillDirs(), cfg.Skills.DisableBuiltin)
	if err != nil && reg == nil {
		return nil, err
	}
	if err != nil && flagVerbose {
		fmt.Printf("warning: %v\n", err)
	}
	return reg, nil
}
