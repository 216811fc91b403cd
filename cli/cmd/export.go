package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/accord/cli/config"
	"github.com/pithecene-io/accord/cli/tui"
	"github.com/pithecene-io/accord/negotiate"
	"github.com/pithecene-io/accord/types"
)

// PreviewCommand returns the preview command.
// Preview never saves; the markdown is printed or paged.
func PreviewCommand() *cli.Command {
	return &cli.Command{
		Name:  "preview",
		Usage: "Preview the consolidated document as markdown",
		Flags: withFlags(ServiceFlags(), ExportFlags(), []cli.Flag{
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Open the preview in a scrollable pager",
			},
		}),
		Action: previewAction,
	}
}

func previewAction(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	spec, filters, err := exportRequest(c, s.config.Export)
	if err != nil {
		return cli.Exit(err.Error(), exitHardFailure)
	}

	ctx, cancel := s.context(c)
	defer cancel()

	p, err := s.exporter().Preview(ctx, filters, spec)
	if err != nil {
		return failure(err)
	}

	switch {
	case c.Bool("tui"):
		return tui.Run(previewTitle(filters), p)
	case c.IsSet("render"):
		return s.renderer.Render(p)
	}

	if p.Notice != "" {
		_, _ = fmt.Fprintln(s.stderr, p.Notice)
	}
	_, err = fmt.Fprint(s.stdout, p.Text)
	return err
}

func previewTitle(f types.ConsolidatedFilters) string {
	if f.TopicKey == "" {
		return "Consolidated document"
	}
	return "Consolidated document: " + f.TopicKey
}

// ExportCommand returns the export command.
func ExportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the consolidated document",
		Flags: withFlags(ServiceFlags(), ExportFlags(), []cli.Flag{
			&cli.BoolFlag{
				Name:  "download",
				Usage: "Request an attachment disposition (default true)",
			},
		}),
		Action: exportAction,
	}
}

func exportAction(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	spec, filters, err := exportRequest(c, s.config.Export)
	if err != nil {
		return cli.Exit(err.Error(), exitHardFailure)
	}

	var download *bool
	if c.IsSet("download") {
		v := c.Bool("download")
		download = &v
	}

	ctx, cancel := s.context(c)
	defer cancel()

	d, err := s.exporter().Export(ctx, filters, spec, download)
	if err != nil {
		return failure(err)
	}
	return s.emitDelivery(d)
}

// LegacyExportCommand returns the legacy-export command.
func LegacyExportCommand() *cli.Command {
	return &cli.Command{
		Name:   "legacy-export",
		Usage:  "Export the legacy plain-text consolidated document",
		Flags:  ServiceFlags(),
		Action: legacyExportAction,
	}
}

func legacyExportAction(c *cli.Context) error {
	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := s.context(c)
	defer cancel()

	d, err := s.exporter().ExportLegacy(ctx)
	if err != nil {
		return failure(err)
	}
	return s.emitDelivery(d)
}

// exportRequest builds the matrix point and filters from flags, falling
// back to the export section of the config.
func exportRequest(c *cli.Context, defaults config.ExportConfig) (types.ExportSpec, types.ConsolidatedFilters, error) {
	polishIn := defaults.Polish.PolishInput
	if c.IsSet("polish") {
		polishIn = negotiate.PolishMode(c.String("polish"))
	}
	polish, err := polishIn.Normalize()
	if err != nil {
		return types.ExportSpec{}, types.ConsolidatedFilters{}, err
	}

	spec := types.ExportSpec{
		Format: types.Format(flagOr(c, "format", defaults.Format)),
		Output: types.Output(flagOr(c, "output", defaults.Output)),
		Polish: polish,
	}
	filters := types.ConsolidatedFilters{
		TopicKey: c.String("topic"),
		Since:    types.RawBound(c.String("since")),
		Until:    types.RawBound(c.String("until")),
	}
	return spec, filters, nil
}

func flagOr(c *cli.Context, name, fallback string) string {
	if c.IsSet(name) {
		return c.String(name)
	}
	return fallback
}
