package cmd

import "github.com/urfave/cli/v2"

// ProposalCommand returns the proposal command with its get and download
// subcommands.
func ProposalCommand() *cli.Command {
	return &cli.Command{
		Name:  "proposal",
		Usage: "Read the final proposal of a negotiation",
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Show the final proposal",
				ArgsUsage: "<negotiation-id>",
				Flags:     ServiceFlags(),
				Action:    proposalGetAction,
			},
			{
				Name:      "download",
				Usage:     "Download the final proposal as markdown",
				ArgsUsage: "<negotiation-id>",
				Flags:     ServiceFlags(),
				Action:    proposalDownloadAction,
			},
		},
	}
}

func proposalGetAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("proposal get requires exactly one negotiation id", exitHardFailure)
	}

	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := s.context(c)
	defer cancel()

	p, err := s.finalizer().Get(ctx, c.Args().First())
	if err != nil {
		return failure(err)
	}
	return s.renderer.Render(p)
}

func proposalDownloadAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("proposal download requires exactly one negotiation id", exitHardFailure)
	}

	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := s.context(c)
	defer cancel()

	d, err := s.finalizer().Download(ctx, c.Args().First())
	if err != nil {
		return failure(err)
	}
	return s.emitDelivery(d)
}
