package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"podstudio/internal/adapter/repo"
	"podstudio/internal/bootstrap"
	"podstudio/internal/domain"
	"podstudio/internal/imageref"
	"podstudio/internal/infra"
	"podstudio/internal/infra/credentials"
	"podstudio/internal/session"
	"podstudio/pkg/zip"
)

type renderOptions struct {
	variantID  int64
	placements []string
	primary    string
	secondary  string
	guidance   string
	output     string
	publish    bool
	name       string
	price      string
	locale     string
	save       bool
	userID     string
	bundle     string
}

type renderResult struct {
	SessionID   string          `json:"session_id"`
	ArtifactURL string          `json:"artifact_url"`
	MockupURLs  []string        `json:"mockup_urls"`
	Listing     *domain.Listing `json:"listing,omitempty"`
	Saved       []string        `json:"saved,omitempty"`
}

func renderCmd() *cobra.Command {
	var opts renderOptions
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Generate a design from local images and render its mockups",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd.Context(), cmd, opts)
		},
	}
	f := cmd.Flags()
	f.Int64Var(&opts.variantID, "variant", 0, "catalog variant id")
	f.StringSliceVar(&opts.placements, "placement", []string{"front"}, "print placement (repeatable)")
	f.StringVar(&opts.primary, "primary", "", "primary source image (path or URL)")
	f.StringVar(&opts.secondary, "secondary", "", "optional second source image")
	f.StringVar(&opts.guidance, "guidance", "", "extra instruction for the design")
	f.StringVarP(&opts.output, "output", "o", "", "write the generated design to this file")
	f.BoolVar(&opts.publish, "publish", false, "create a store listing from the mockups")
	f.StringVar(&opts.name, "name", "", "listing name; drafted when empty")
	f.StringVar(&opts.price, "price", "", "retail price; defaults to the variant price")
	f.StringVar(&opts.locale, "locale", "en", "locale for drafted listing copy")
	f.BoolVar(&opts.save, "save", false, "save the design to the library (needs DATABASE_URL)")
	f.StringVar(&opts.userID, "user", "cli", "library owner for --save")
	f.StringVar(&opts.bundle, "bundle", "", "write the design and every mockup to this zip file")
	_ = cmd.MarkFlagRequired("variant")
	_ = cmd.MarkFlagRequired("primary")
	return cmd
}

func runRender(ctx context.Context, cmd *cobra.Command, opts renderOptions) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	var (
		creds  *credentials.Store
		design domain.DesignRepository
	)
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		runner := infra.NewSQLRunner(pool, logger)
		creds = credentials.NewStore(runner)
		design = repo.NewDesignRepository(runner)
	} else if opts.save {
		return fmt.Errorf("--save needs DATABASE_URL")
	}

	pipe, err := bootstrap.Build(ctx, cfg, &logger, creds, design)
	if err != nil {
		return err
	}
	flow := pipe.Flow

	variant, product, err := pipe.Catalog.Variant(ctx, opts.variantID)
	if err != nil {
		return fmt.Errorf("look up variant %d: %w", opts.variantID, err)
	}
	sess := session.NewStore(0, &logger).Create(opts.userID)
	if _, err := flow.SelectProduct(ctx, sess, product.ID); err != nil {
		return err
	}
	if _, err := flow.SelectVariant(ctx, sess, variant.ID); err != nil {
		return err
	}
	placements := make([]domain.PlacementID, 0, len(opts.placements))
	for _, p := range opts.placements {
		placements = append(placements, domain.PlacementID(strings.TrimSpace(p)))
	}
	if _, err := flow.SelectPlacements(sess, placements); err != nil {
		return err
	}
	primary := sourceRef(opts.primary)
	var secondary *domain.ImageRef
	if opts.secondary != "" {
		ref := sourceRef(opts.secondary)
		secondary = &ref
	}
	if _, err := flow.SetSources(sess, &primary, secondary); err != nil {
		return err
	}

	state, err := flow.Generate(ctx, sess, opts.guidance)
	if err != nil {
		return report(err)
	}
	if opts.output != "" {
		if err := writeArtifact(opts.output, *state.Artifact); err != nil {
			return err
		}
		logger.Info().Str("path", opts.output).Msg("design written")
	}

	state, err = flow.RenderMockups(ctx, sess)
	if err != nil {
		return report(err)
	}

	if opts.bundle != "" {
		if err := writeBundle(ctx, pipe.Resolver, opts.bundle, state); err != nil {
			return err
		}
		logger.Info().Str("path", opts.bundle).Int("mockups", len(state.MockupURLs)).Msg("bundle written")
	}

	if opts.publish {
		state, err = flow.Publish(ctx, sess, domain.ListingDraft{Name: opts.name, Price: opts.price, Locale: opts.locale})
		if err != nil {
			return report(err)
		}
	}

	result := renderResult{SessionID: sess.ID, ArtifactURL: state.ArtifactURL, MockupURLs: state.MockupURLs, Listing: state.Listing}
	if opts.save {
		records, err := flow.Save(ctx, sess, domain.DesignKindDesign, opts.name)
		if err != nil {
			return report(err)
		}
		for _, r := range records {
			result.Saved = append(result.Saved, r.ID)
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func sourceRef(raw string) domain.ImageRef {
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return domain.RemoteURL(raw)
	}
	return domain.LocalFile(raw)
}

func writeArtifact(path string, ref domain.ImageRef) error {
	data, err := base64.StdEncoding.DecodeString(ref.Data)
	if err != nil {
		return fmt.Errorf("decode design: %w", err)
	}
	if !strings.Contains(path, ".") {
		path += imageref.ExtensionFor(ref.MIME)
	}
	return os.WriteFile(path, data, 0o644)
}

func writeBundle(ctx context.Context, resolver *imageref.Resolver, path string, state session.State) error {
	assets := make([]zip.Asset, 0, len(state.MockupURLs)+1)
	design, err := resolver.Resolve(ctx, *state.Artifact)
	if err != nil {
		return fmt.Errorf("read design: %w", err)
	}
	assets = append(assets, zip.Asset{Filename: "design" + imageref.ExtensionFor(design.MIME), MIME: design.MIME, Data: design.Data})
	for i, u := range state.MockupURLs {
		img, err := resolver.Resolve(ctx, domain.RemoteURL(u))
		if err != nil {
			return fmt.Errorf("download mockup %d: %w", i+1, err)
		}
		name := fmt.Sprintf("mockup-%02d%s", i+1, imageref.ExtensionFor(img.MIME))
		assets = append(assets, zip.Asset{Filename: name, MIME: img.MIME, Data: img.Data})
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := zip.ArchiveAssets(f, assets, time.Now()); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// report keeps the wrapped cause for the log and prints one user message.
func report(err error) error {
	return fmt.Errorf("%s (%w)", domain.UserMessage(err), err)
}

