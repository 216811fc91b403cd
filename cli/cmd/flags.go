// Package cmd provides CLI commands for the accord binary.
package cmd

import "github.com/urfave/cli/v2"

// Shared flags for every command that talks to the service.
var (
	// ConfigFlag points at an accord.yaml file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to accord.yaml (default: ./accord.yaml when present)",
	}

	// BaseURLFlag overrides server.base_url.
	BaseURLFlag = &cli.StringFlag{
		Name:  "base-url",
		Usage: "Service base URL, e.g. https://host/api",
	}

	// TokenFlag overrides server.token.
	TokenFlag = &cli.StringFlag{
		Name:  "token",
		Usage: "Bearer token for the service",
	}

	// DeliveryModeFlag overrides delivery.mode.
	DeliveryModeFlag = &cli.StringFlag{
		Name:  "delivery-mode",
		Usage: "Delivery mode: auto, interactive, buffered",
	}

	// RenderFlag selects output format: json, table, yaml.
	RenderFlag = &cli.StringFlag{
		Name:    "render",
		Aliases: []string{"r"},
		Usage:   "Result format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// OutFlag redirects buffered payloads to a file.
	OutFlag = &cli.StringFlag{
		Name:    "out",
		Aliases: []string{"o"},
		Usage:   "Write buffered payloads to `PATH` instead of stdout",
	}

	// EmitFlag switches buffered payloads to framed output.
	EmitFlag = &cli.StringFlag{
		Name:  "emit",
		Usage: "Emit mode for payloads: raw, frame",
		Value: emitRaw,
	}

	// LogLevelFlag overrides log_level.
	LogLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level: debug, info, warn, error",
	}
)

// Emit modes.
const (
	emitRaw   = "raw"
	emitFrame = "frame"
)

// ServiceFlags returns the flags shared by all service commands.
func ServiceFlags() []cli.Flag {
	return []cli.Flag{
		ConfigFlag,
		BaseURLFlag,
		TokenFlag,
		DeliveryModeFlag,
		RenderFlag,
		NoColorFlag,
		OutFlag,
		EmitFlag,
		LogLevelFlag,
	}
}

// ExportFlags returns the export matrix and filter flags.
// Matrix flags default to the export section of accord.yaml.
func ExportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "format",
			Usage: "Document format: structured, plain",
		},
		&cli.StringFlag{
			Name:  "output",
			Usage: "Document output: markdown, docx, pdf",
		},
		&cli.StringFlag{
			Name:  "polish",
			Usage: "Polish pass: none, markdown, ai (true/false accepted)",
		},
		&cli.StringFlag{
			Name:  "topic",
			Usage: "Restrict to one topic key",
		},
		&cli.StringFlag{
			Name:  "since",
			Usage: "Lower bound, sent verbatim (e.g. an ISO-8601 timestamp)",
		},
		&cli.StringFlag{
			Name:  "until",
			Usage: "Upper bound, sent verbatim (e.g. an ISO-8601 timestamp)",
		},
	}
}

func withFlags(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
