package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List the available parameter templates",
	Long:  "Lists the built-in templates plus those loaded from --templates-file. With --show, prints the ordered parameters of one template.",
	RunE:  runTemplates,
}

var templatesShow string

func init() {
	templatesCmd.Flags().StringVarP(&templatesShow, "show", "s", "", "Template id to print in full")

	rootCmd.AddCommand(templatesCmd)
}

func runTemplates(cmd *cobra.Command, _ []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	out := cmd.OutOrStdout()

	if templatesShow == "" {
		for _, id := range rt.registry.IDs() {
			tmpl, err := rt.registry.Get(id)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%-8s %-40s %d parameters\n", tmpl.ID, tmpl.Name, len(tmpl.Parameters)) //nolint:errcheck
		}
		return nil
	}

	tmpl, err := rt.registry.Get(templatesShow)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %s\n", tmpl.ID, tmpl.Name) //nolint:errcheck
	for i, p := range tmpl.Parameters {
		line := fmt.Sprintf("%3d. %-24s %s", i+1, p.Key, p.Label)
		if len(p.Aliases) > 0 {
			line += " (" + strings.Join(p.Aliases, ", ") + ")"
		}
		if p.Unit != "" {
			line += " [" + string(p.Unit) + "]"
		}
		fmt.Fprintln(out, line) //nolint:errcheck
	}
	fmt.Fprintf(out, "Main units: %s\n", strings.Join(tmpl.Sections.MainUnits, ", ")) //nolint:errcheck
	fmt.Fprintf(out, "Standard:   %s\n", strings.Join(tmpl.Sections.Standard, ", "))  //nolint:errcheck
	fmt.Fprintf(out, "Options:    %s\n", strings.Join(tmpl.Sections.Options, ", "))   //nolint:errcheck
	return nil
}
