package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

const catalogJSON = `{
  "name": "DVF series",
  "pages": [
    {
      "number": 1,
      "text_blocks": [
        {"text": "DVF 5000 vertical machining center"},
        {"text": "Main units\n- Base and column\nStandard equipment\n- Coolant tank\nOptional equipment\n- Oil skimmer"}
      ],
      "table_rows": [
        {"header_path": ["Table", "Table size"], "cells": ["Table size", "mm (inch)", "ø650 x 500"]},
        {"header_path": ["Spindle", "Spindle taper"], "cells": ["Spindle taper", "BT40"]}
      ]
    },
    {
      "number": 2,
      "table_rows": [{"cells": ["Coolant tank capacity", "400 L"]}]
    }
  ]
}`

const templatesYAML = `templates:
  - id: mini
    name: Minimal test family
    parameters:
      - key: table_size
        label: Table size
      - key: spindle_taper
        label: Spindle taper
      - key: nc_system
        label: NC system
    sections:
      main_units: [main units]
      standard: [standard equipment]
      options: [optional equipment]
`

// fixture is a temp dir holding a catalog and a templates file.
type fixture struct {
	dir       string
	catalog   string
	templates string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	// keep the developer's environment out of the run
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PROPOSAL_DATABASE_URL", "")

	dir := t.TempDir()
	f := fixture{
		dir:       dir,
		catalog:   filepath.Join(dir, "dvf.json"),
		templates: filepath.Join(dir, "templates.yaml"),
	}
	require.NoError(t, os.WriteFile(f.catalog, []byte(catalogJSON), 0644))
	require.NoError(t, os.WriteFile(f.templates, []byte(templatesYAML), 0644))
	return f
}

func (f fixture) path(name string) string {
	return filepath.Join(f.dir, name)
}

// baseArgs selects the fixture catalog and the mini template.
func (f fixture) baseArgs(args ...string) []string {
	return append(args, "--catalog", f.catalog, "--templates-file", f.templates, "--template", "mini", "--log-level", "error")
}

// execute runs the root command in-process and returns its combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// resetFlags restores every flag of cmd and its subcommands to its default,
// since the command tree and its flag variables are package globals.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}
