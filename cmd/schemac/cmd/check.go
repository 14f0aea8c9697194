package cmd

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/syssam/schemac/compiler/diag"
)

// Check flags.
const (
	FlagNoValidate  = "no-validate"
	FlagRequireKind = "require-kind"
)

func newCheck() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compile, validate and lint the corpus and print its diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := configFrom(ctx)
			if cmd.Flags().Changed(FlagRequireKind) {
				cfg.Lint.RequireKind, _ = cmd.Flags().GetBool(FlagRequireKind)
			}
			res, _, err := compile(ctx, cfg)
			if err != nil {
				if res != nil {
					writeDiagnostics(cmd.OutOrStdout(), res.Diags)
				}
				return err
			}
			if skip, _ := cmd.Flags().GetBool(FlagNoValidate); !skip {
				if err := res.Validate(ctx, cfg.NewValidator()); err != nil {
					return err
				}
			}
			if err := res.Lint(ctx, cfg.LintOptions()...); err != nil {
				return err
			}
			writeDiagnostics(cmd.OutOrStdout(), res.Diags)
			if n := res.Diags.Count(diag.Error); n > 0 {
				return fmt.Errorf("%d error diagnostics", n)
			}
			return nil
		},
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}
	cmd.Flags().Bool(FlagNoValidate, false, "skip the validator")
	cmd.Flags().Bool(FlagRequireKind, false, "report records without x-familiar-kind")
	return cmd
}

func writeDiagnostics(w io.Writer, diags *diag.List) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Severity", "Code", "Subject", "Message", "Rule"})
	for _, d := range diags.Sorted() {
		t.AppendRow(table.Row{d.Severity, d.Code, d.Subject, d.Message, d.Rule})
	}
	t.AppendFooter(table.Row{
		"", "", "",
		fmt.Sprintf("%d errors, %d warnings", diags.Count(diag.Error), diags.Count(diag.Warning)),
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, AutoMerge: true},
	})
	style := table.StyleLight
	style.Options.DrawBorder = false
	t.SetStyle(style)
	t.Render()
}
