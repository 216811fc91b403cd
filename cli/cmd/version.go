package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/accord/cli/render"
	"github.com/pithecene-io/accord/types"
)

// VersionResponse is the response for the version command.
type VersionResponse struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
}

// VersionCommand returns the version command. It never contacts the
// service.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show version information",
		Flags:  []cli.Flag{RenderFlag, NoColorFlag},
		Action: versionAction(commit),
	}
}

func versionAction(commit string) cli.ActionFunc {
	return func(c *cli.Context) error {
		r, err := render.NewRenderer(c)
		if err != nil {
			return cli.Exit(err.Error(), exitHardFailure)
		}
		return r.Render(VersionResponse{
			Version: types.Version,
			Commit:  commit,
		})
	}
}

// Commands returns every accord command.
func Commands(commit string) []*cli.Command {
	return []*cli.Command{
		FinalizeCommand(),
		FinalizeBatchCommand(),
		PreviewCommand(),
		ExportCommand(),
		LegacyExportCommand(),
		ProposalCommand(),
		VersionCommand(commit),
	}
}
