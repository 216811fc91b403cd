package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/accord/adapter"
	"github.com/pithecene-io/accord/adapter/redis"
	"github.com/pithecene-io/accord/adapter/webhook"
	"github.com/pithecene-io/accord/api"
	"github.com/pithecene-io/accord/cli/config"
	"github.com/pithecene-io/accord/cli/render"
	"github.com/pithecene-io/accord/export"
	"github.com/pithecene-io/accord/finalize"
	"github.com/pithecene-io/accord/iox"
	"github.com/pithecene-io/accord/ipc"
	"github.com/pithecene-io/accord/log"
	"github.com/pithecene-io/accord/metrics"
	"github.com/pithecene-io/accord/store"
	"github.com/pithecene-io/accord/transport"
	"github.com/pithecene-io/accord/types"
)

// Exit codes.
const (
	exitSuccess      = 0
	exitHardFailure  = 1
	exitSoftFailure  = 2
	exitPartialBatch = 3
)

// session holds the collaborators one command invocation shares. The
// transport mode is detected once here and reused for every call.
type session struct {
	config   *config.Config
	client   *api.Client
	mode     transport.Mode
	logger   *log.Logger
	metrics  *metrics.Collector
	renderer *render.Renderer
	notifier adapter.Adapter

	stdout  io.Writer
	stderr  io.Writer
	outPath string
	emit    string
}

func newSession(c *cli.Context) (*session, error) {
	cfg, err := config.Resolve(c.String("config"))
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("config: %v", err), exitHardFailure)
	}
	applyFlags(c, cfg)

	emit := strings.ToLower(c.String("emit"))
	if emit != emitRaw && emit != emitFrame {
		return nil, cli.Exit(fmt.Sprintf("invalid --emit %q (must be raw or frame)", c.String("emit")), exitHardFailure)
	}

	renderer, err := render.NewRenderer(c)
	if err != nil {
		return nil, cli.Exit(err.Error(), exitHardFailure)
	}

	client, err := api.New(api.Config{
		BaseURL: cfg.Server.BaseURL,
		Token:   cfg.Server.Token,
		Headers: cfg.Server.Headers,
		Timeout: cfg.Server.Timeout.Duration,
	})
	if err != nil {
		return nil, cli.Exit(err.Error(), exitHardFailure)
	}

	logger := log.NewLoggerWithOutput(log.Meta{
		SessionID: uuid.NewString(),
		Endpoint:  cfg.Server.BaseURL,
	}, log.ParseLevel(cfg.LogLevel), c.App.ErrWriter)

	collector := metrics.NewCollector(cfg.Delivery.Mode)
	saver, err := buildSaver(c.Context, cfg.Delivery)
	if err != nil {
		iox.DiscardClose(client)
		return nil, cli.Exit(fmt.Sprintf("delivery: %v", err), exitHardFailure)
	}
	mode, err := transport.Detect(transport.DetectConfig{
		Mode:    cfg.Delivery.Mode,
		Saver:   saver,
		Metrics: collector,
	})
	if err != nil {
		iox.DiscardClose(client)
		return nil, cli.Exit(fmt.Sprintf("delivery: %v", err), exitHardFailure)
	}
	collector.SetTransportMode(string(mode.Name()))

	notifier, err := buildAdapter(cfg.Adapter)
	if err != nil {
		iox.DiscardClose(client)
		return nil, cli.Exit(fmt.Sprintf("adapter: %v", err), exitHardFailure)
	}

	logger.Debug("session started", map[string]any{
		"delivery_mode": string(mode.Name()),
		"adapter":       cfg.Adapter.Type,
	})

	return &session{
		config:   cfg,
		client:   client,
		mode:     mode,
		logger:   logger,
		metrics:  collector,
		renderer: renderer,
		notifier: notifier,
		stdout:   c.App.Writer,
		stderr:   c.App.ErrWriter,
		outPath:  c.String("out"),
		emit:     emit,
	}, nil
}

// applyFlags overlays explicitly set flags on the resolved config.
func applyFlags(c *cli.Context, cfg *config.Config) {
	overrides := []struct {
		flag string
		dst  *string
	}{
		{"base-url", &cfg.Server.BaseURL},
		{"token", &cfg.Server.Token},
		{"delivery-mode", &cfg.Delivery.Mode},
		{"log-level", &cfg.LogLevel},
	}
	for _, o := range overrides {
		if c.IsSet(o.flag) {
			*o.dst = c.String(o.flag)
		}
	}
}

// buildSaver returns the interactive save destination, or nil when no
// delivery path is configured.
func buildSaver(ctx context.Context, d config.DeliveryConfig) (transport.Saver, error) {
	if d.Path == "" {
		return nil, nil
	}

	switch d.Backend {
	case "fs", "":
		s, err := store.NewFS(d.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "s3":
		bucket, prefix := store.ParseS3Path(d.Path)
		s, err := store.NewS3(ctx, store.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       d.Region,
			Endpoint:     d.Endpoint,
			UsePathStyle: d.S3PathStyle,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown backend %q (must be fs or s3)", d.Backend)
	}
}

// buildAdapter returns the configured batch notifier, or nil when none is
// configured.
func buildAdapter(a config.AdapterConfig) (adapter.Adapter, error) {
	switch a.Type {
	case "":
		return nil, nil
	case "webhook":
		retries := webhook.DefaultRetries
		if a.Retries != nil {
			retries = *a.Retries
		}
		w, err := webhook.New(webhook.Config{
			URL:     a.URL,
			Headers: a.Headers,
			Timeout: a.Timeout.Duration,
			Retries: retries,
		})
		if err != nil {
			return nil, err
		}
		return w, nil
	case "redis":
		var retries int
		if a.Retries != nil {
			retries = *a.Retries
		}
		r, err := redis.New(redis.Config{
			URL:     a.URL,
			Channel: a.Channel,
			Timeout: a.Timeout.Duration,
			Retries: retries,
		})
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown adapter type %q (must be webhook or redis)", a.Type)
	}
}

// context returns the command context, cancelled on SIGINT or SIGTERM.
func (s *session) context(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
}

func (s *session) finalizer() *finalize.Client {
	return finalize.New(s.client, finalize.Options{
		Mode:    s.mode,
		Logger:  s.logger,
		Metrics: s.metrics,
	})
}

func (s *session) exporter() *export.Exporter {
	return export.New(s.client, export.Options{
		Mode:    s.mode,
		Logger:  s.logger,
		Metrics: s.metrics,
	})
}

// close logs the session counters and releases the client and notifier.
func (s *session) close() {
	s.logger.Debug("session metrics", s.metrics.Snapshot().Fields())
	if s.notifier != nil {
		iox.DiscardClose(s.notifier)
	}
	iox.DiscardClose(s.client)
	iox.DiscardErr(s.logger.Sync)
}

// emitDelivery writes a delivery result. Frames carry the payload as-is.
// Interactive results are rendered; buffered payloads go to --out or
// stdout.
func (s *session) emitDelivery(d *types.DeliveryResult) error {
	if s.emit == emitFrame {
		return s.writeOut(func(w io.Writer) error {
			return ipc.WriteDelivery(w, d)
		})
	}
	if d.Mode == types.DeliveryInteractive {
		return s.renderer.Render(newDeliveryView(d, d.Location))
	}
	return s.emitPayload(d, d.Bytes())
}

// emitPayload writes raw bytes. With --out the file is written and a
// summary rendered in its place.
func (s *session) emitPayload(d *types.DeliveryResult, data []byte) error {
	err := s.writeOut(func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	if err != nil || s.outPath == "" {
		return err
	}
	return s.renderer.Render(newDeliveryView(d, s.outPath))
}

// writeOut runs write against --out, or stdout when unset.
func (s *session) writeOut(write func(io.Writer) error) error {
	w, err := iox.OpenOut(s.outPath, s.stdout)
	if err != nil {
		return cli.Exit(fmt.Sprintf("write %s: %v", s.outPath, err), exitHardFailure)
	}
	if err := write(w); err != nil {
		iox.DiscardClose(w)
		return err
	}
	return w.Close()
}

// failure converts a hard failure into exit code 1 carrying its
// user-facing message.
func failure(err error) error {
	return cli.Exit(err.Error(), exitHardFailure)
}
