package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/receptionist-onboarding/internal/onboarding"
)

type importFlags struct {
	businessID   string
	url          string
	forcedPaths  []string
	excludePaths []string
	maxPages     int
	maxDepth     int
}

// newImportCmd runs one import in the foreground and prints the summary as JSON.
func newImportCmd() *cobra.Command {
	var f importFlags
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Imports one website and prints the summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runImport(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.businessID, "business-id", "", "business the profile belongs to")
	cmd.Flags().StringVar(&f.url, "url", "", "website base URL")
	cmd.Flags().StringSliceVar(&f.forcedPaths, "forced-path", nil, "path to crawl regardless of links (repeatable)")
	cmd.Flags().StringSliceVar(&f.excludePaths, "exclude-path", nil, "path prefix or glob to skip (repeatable)")
	cmd.Flags().IntVar(&f.maxPages, "max-pages", 0, "page budget (0 uses the configured default)")
	cmd.Flags().IntVar(&f.maxDepth, "max-depth", 0, "link depth (0 uses the configured default)")
	_ = cmd.MarkFlagRequired("business-id")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func runImport(cmd *cobra.Command, f importFlags) error {
	rt, err := resolveRuntime(cmd.Context())
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, rt.cfg, rt.logger)
	if err != nil {
		return err
	}
	defer app.Close(context.WithoutCancel(ctx))

	summary, err := app.Importer().Import(ctx, onboarding.Request{
		BusinessID:   f.businessID,
		URL:          f.url,
		ForcedPaths:  f.forcedPaths,
		ExcludePaths: f.excludePaths,
		MaxPages:     f.maxPages,
		MaxDepth:     f.maxDepth,
	})
	if err != nil {
		rt.logger.Error("import failed",
			zap.String("business_id", f.businessID),
			zap.String("code", string(onboarding.CodeFor(err))),
			zap.Error(err),
		)
		return fmt.Errorf("import %s (%s): %w", f.url, onboarding.CodeFor(err), err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
