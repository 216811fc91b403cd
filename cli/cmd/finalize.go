package cmd

import (
	"io"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/accord/adapter"
	"github.com/pithecene-io/accord/ipc"
	"github.com/pithecene-io/accord/types"
)

// FinalizeCommand returns the finalize command.
func FinalizeCommand() *cli.Command {
	return &cli.Command{
		Name:      "finalize",
		Usage:     "Finalize one proposal",
		ArgsUsage: "<proposal-id>",
		Flags: withFlags(ServiceFlags(), []cli.Flag{
			&cli.StringFlag{
				Name:  "idempotency-key",
				Usage: "Token the service uses to collapse retries of this attempt",
			},
		}),
		Action: finalizeAction,
	}
}

func finalizeAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("finalize requires exactly one proposal id", exitHardFailure)
	}
	proposalID := c.Args().First()
	token := types.IdempotencyToken(c.String("idempotency-key"))

	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := s.context(c)
	defer cancel()

	outcome, err := s.finalizer().Finalize(ctx, proposalID, token)
	if err != nil {
		return failure(err)
	}

	if err := s.renderer.Render(newFinalizeView(proposalID, token, outcome)); err != nil {
		return err
	}
	if !outcome.Success {
		return cli.Exit("", exitSoftFailure)
	}
	return nil
}

// FinalizeBatchCommand returns the finalize-batch command.
func FinalizeBatchCommand() *cli.Command {
	return &cli.Command{
		Name:      "finalize-batch",
		Usage:     "Finalize several proposals concurrently",
		ArgsUsage: "<proposal-id>...",
		Flags: withFlags(ServiceFlags(), []cli.Flag{
			&cli.StringFlag{
				Name:  "base-key",
				Usage: "Base idempotency token; member i sends <base-key>:i (default: random)",
			},
		}),
		Action: finalizeBatchAction,
	}
}

func finalizeBatchAction(c *cli.Context) error {
	ids := c.Args().Slice()
	if len(ids) == 0 {
		return cli.Exit("finalize-batch requires at least one proposal id", exitHardFailure)
	}

	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := s.context(c)
	defer cancel()

	start := time.Now()
	result := s.finalizer().FinalizeMany(ctx, ids, types.IdempotencyToken(c.String("base-key")))
	duration := time.Since(start)

	adapter.Notify(ctx, s.notifier, adapter.NewBatchFinalizedEvent(result, time.Now(), duration), s.logger)

	if s.emit == emitFrame {
		err = s.writeOut(func(w io.Writer) error {
			return ipc.WriteBatchResult(w, result)
		})
	} else {
		err = s.renderer.Render(newBatchView(result))
	}
	if err != nil {
		return err
	}

	return batchExit(result)
}

// batchExit maps a settled batch to its exit status. Any failed member,
// soft or hard, marks the batch partial.
func batchExit(r types.BatchResult) error {
	if r.Failed == 0 {
		return nil
	}
	return cli.Exit("", exitPartialBatch)
}
