package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	slogcontext "github.com/veqryn/slog-context"

	"github.com/syssam/schemac/compiler"
	"github.com/syssam/schemac/compiler/diag"
	"github.com/syssam/schemac/compiler/gen"
)

// FlagStrict fails generate on any error diagnostic.
const FlagStrict = "strict"

func newGenerate() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Compile the corpus and write the configured languages",
		RunE: func(cmd *cobra.Command, args []string) error {
			strict, err := cmd.Flags().GetBool(FlagStrict)
			if err != nil {
				return err
			}
			_, err = generate(cmd.Context(), configFrom(cmd.Context()), strict)
			return err
		},
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}
	cmd.Flags().Bool(FlagStrict, false, "fail on any error diagnostic")
	addOutputFlags(cmd)
	return cmd
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP(FlagOutput, "o", "", "output directory; each language writes below <output>/<language>")
	cmd.Flags().StringSliceP(FlagLanguage, "l", nil, "languages to generate: "+strings.Join(compiler.Emitters(), ", "))
	cmd.Flags().String(FlagLayout, "", "file layout: per-type or bundle")
	cmd.Flags().Int(FlagWorkers, 0, "parallel workers (default: GOMAXPROCS)")
}

// compile runs the analysis phases over the configured root.
func compile(ctx context.Context, cfg *Config) (*compiler.Result, *gen.Config, error) {
	gcfg, err := cfg.GenConfig()
	if err != nil {
		return nil, nil, err
	}
	res, err := compiler.Compile(ctx, os.DirFS(cfg.Root), gcfg, cfg.LoaderOptions()...)
	logDiagnostics(ctx, res)
	return res, gcfg, err
}

// generate compiles and writes every configured language.
func generate(ctx context.Context, cfg *Config, strict bool) (*compiler.Result, error) {
	res, gcfg, err := compile(ctx, cfg)
	if err != nil {
		return res, err
	}
	if n := res.Diags.Count(diag.Error); strict && n > 0 {
		return res, fmt.Errorf("%d error diagnostics", n)
	}
	if err := res.Generate(ctx, gcfg); err != nil {
		return res, err
	}
	slogcontext.FromCtx(ctx).Info("done",
		"output", gcfg.Target, "languages", gcfg.Languages, "regions", res.Context.Len())
	return res, nil
}

func logDiagnostics(ctx context.Context, res *compiler.Result) {
	if res == nil {
		return
	}
	logger := slogcontext.FromCtx(ctx)
	for _, d := range res.Diags.Sorted() {
		switch d.Severity {
		case diag.Error:
			logger.Error(d.Message, "code", d.Code, "subject", d.Subject)
		case diag.Warning:
			logger.Warn(d.Message, "code", d.Code, "subject", d.Subject)
		default:
			logger.Debug(d.Message, "code", d.Code, "subject", d.Subject)
		}
	}
}
