package commands

import (
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/aiokaizen/bear-vision/internal/lava/resolver"
)

// NewModelsCommand creates the models command.
func NewModelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List registered entity types and their handlers",
		Long: `List every registered entity type with the handler resolved for each
role. Overrides are marked with an asterisk.`,
		Example: `  bearvision models`,
		Args:    cobra.NoArgs,
		RunE:    runModels,
	}
}

func runModels(cmd *cobra.Command, _ []string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	s, err := cc.NewSite()
	if err != nil {
		return err
	}
	menu := s.MenuItems()

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)

	header := table.Row{"Entity", "Name", "Menu"}
	for _, role := range resolver.Roles {
		header = append(header, role.String())
	}
	t.AppendHeader(header)

	for _, desc := range s.Descriptors() {
		resolutions, err := s.Resolver().ResolveAll(desc)
		if err != nil {
			return err
		}
		inMenu := ""
		if slices.Contains(menu, desc.Key()) {
			inMenu = "yes"
		}
		row := table.Row{desc.Key(), desc.VerbosePlural(), inMenu}
		for _, role := range resolver.Roles {
			res := resolutions[role]
			name := res.Name
			if res.Override {
				name += " *"
			}
			row = append(row, name)
		}
		t.AppendRow(row)
	}
	t.Render()
	return nil
}
