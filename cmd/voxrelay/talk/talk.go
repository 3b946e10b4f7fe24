// Package talkcmder provides the talk command: an interactive voice chat
// session against a running voxrelay relay.
package talkcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/voxrelay/cmd/voxrelay/cachestore"
	"github.com/papercomputeco/voxrelay/pkg/assetcache"
	"github.com/papercomputeco/voxrelay/pkg/cliui"
	"github.com/papercomputeco/voxrelay/pkg/config"
	"github.com/papercomputeco/voxrelay/pkg/logger"
	"github.com/papercomputeco/voxrelay/pkg/metrics"
	"github.com/papercomputeco/voxrelay/pkg/orchestrator"
	"github.com/papercomputeco/voxrelay/pkg/orchestrator/client"
	"github.com/papercomputeco/voxrelay/pkg/orchestrator/speech"
	"github.com/papercomputeco/voxrelay/pkg/storage"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	listenPrompt    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true).Render("listening> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("assistant> ")
)

// Synthesizer modes accepted by --synthesizer.
const (
	SynthesizerAuto = "auto"
	SynthesizerText = "text"
)

// Session commands.
const (
	cmdExit    = "/exit"
	cmdVoice   = "/voice"
	cmdMetrics = "/metrics"
	cmdDebug   = "/debug"
	cmdStatus  = "/status"
)

type talkCommander struct {
	relayTarget     string
	cacheName       string
	synthesizer     string
	autoSubmitMs    int
	targetLatencyMs int
	sqlitePath      string
	postgresDSN     string
	configDir       string
	noCache         bool
	debug           bool

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	logger *zap.Logger
}

var talkFlags = []string{
	config.FlagRelayTarget,
	config.FlagCacheName,
	config.FlagAutoSubmit,
	config.FlagTargetLatency,
	config.FlagSynthesizer,
	config.FlagSQLite,
	config.FlagPostgres,
}

const talkLongDesc string = `Start an interactive voice chat session with a running voxrelay relay.

Type a message and press Enter to send it. Enter /voice to start a voice turn:
the next line is taken as the recognized utterance and sent automatically
after the auto-submit delay. Replies are spoken through the configured
synthesizer and printed, followed by the turn's latency breakdown.

Session commands:
  /voice     Start a voice turn
  /metrics   Show the last turn's latency breakdown
  /status    Show capabilities and the asset cache state
  /debug     Show recent debug messages
  /exit      Quit (Ctrl+D also quits)

Press Ctrl+C during a turn to stop it.

Examples:
  voxrelay talk
  voxrelay talk --relay-target http://localhost:3000 --synthesizer espeak
  voxrelay talk --synthesizer text --auto-submit-ms -1`

const talkShortDesc string = "Interactive voice chat through the voxrelay relay"

func NewTalkCmd() *cobra.Command {
	cmder := &talkCommander{}

	cmd := &cobra.Command{
		Use:   "talk",
		Short: talkShortDesc,
		Long:  talkLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.TalkFlags, talkFlags)
			cmder.relayTarget = v.GetString("client.relay_target")
			cmder.cacheName = v.GetString("cache.name")
			cmder.autoSubmitMs = v.GetInt("client.auto_submit_delay_ms")
			cmder.targetLatencyMs = v.GetInt("client.target_latency_ms")
			cmder.synthesizer = v.GetString("client.synthesizer")
			cmder.sqlitePath = v.GetString("storage.sqlite_path")
			cmder.postgresDSN = v.GetString("storage.postgres_dsn")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			cmder.errOut = cmd.ErrOrStderr()
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.TalkFlags, config.FlagRelayTarget, &cmder.relayTarget)
	config.AddStringFlag(cmd, config.TalkFlags, config.FlagCacheName, &cmder.cacheName)
	config.AddIntFlag(cmd, config.TalkFlags, config.FlagAutoSubmit, &cmder.autoSubmitMs)
	config.AddIntFlag(cmd, config.TalkFlags, config.FlagTargetLatency, &cmder.targetLatencyMs)
	config.AddStringFlag(cmd, config.TalkFlags, config.FlagSynthesizer, &cmder.synthesizer)
	config.AddStringFlag(cmd, config.TalkFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.TalkFlags, config.FlagPostgres, &cmder.postgresDSN)
	cmd.Flags().BoolVar(&cmder.noCache, "no-cache", false, "Send requests straight to the relay without the asset cache")

	return cmd
}

func (c *talkCommander) run(ctx context.Context) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := metrics.New()

	fetcher, closeCache, err := c.newFetcher(ctx, m)
	if err != nil {
		return err
	}
	defer closeCache()

	rec := speech.NewLineRecognizer(c.in)
	ui := newTerminalUI(c.out, c.errOut, cliui.IsTerminal(c.out))

	orch := orchestrator.New(orchestrator.Deps{
		Recognizer:  rec,
		Synthesizer: c.newSynthesizer(),
		Relay:       client.NewHTTPRelay(c.relayTarget, fetcher),
		Notifier:    ui,
		Display:     ui,
		Logger:      c.logger,
		Metrics:     m,
	}, orchestrator.Options{
		AutoSubmitDelay: time.Duration(c.autoSubmitMs) * time.Millisecond,
		TargetLatency:   time.Duration(c.targetLatencyMs) * time.Millisecond,
	})

	// Ctrl+C stops the active turn; at the prompt it ends the session.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigCh:
				if !orch.Active() {
					cancel()
					return
				}
				orch.Stop()
			}
		}
	}()

	s := &session{
		orch:  orch,
		lines: rec,
		ui:    ui,
		cache: fetcher,
	}
	s.header(c.relayTarget)
	return s.loop(ctx)
}

// newFetcher registers the asset cache worker in front of the relay. A
// registration failure is logged and the session continues uncontrolled.
func (c *talkCommander) newFetcher(ctx context.Context, m *metrics.Metrics) (assetcache.Fetcher, func(), error) {
	direct, err := assetcache.NewHTTPFetcher(c.relayTarget, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid relay target: %w", err)
	}
	if c.noCache {
		return direct, func() {}, nil
	}

	driver, err := cachestore.Open(ctx, cachestore.Options{
		SQLitePath:  c.sqlitePath,
		PostgresDSN: c.postgresDSN,
		ConfigDir:   c.configDir,
	}, c.logger)
	if err != nil {
		c.logger.Warn("asset cache unavailable, talking to the relay directly", zap.Error(err))
		return direct, func() {}, nil
	}
	closeDriver := func() { closeQuietly(driver, c.logger) }

	w, err := assetcache.New(assetcache.Config{
		CacheName: c.cacheName,
		Origin:    c.relayTarget,
		Driver:    driver,
		Network:   direct,
		Logger:    c.logger,
		Metrics:   m,
	})
	if err != nil {
		closeDriver()
		return nil, nil, fmt.Errorf("creating asset cache worker: %w", err)
	}

	if err := assetcache.Register(ctx, w, c.logger); err != nil {
		return direct, closeDriver, nil
	}
	return w, closeDriver, nil
}

func (c *talkCommander) newSynthesizer() orchestrator.Synthesizer {
	switch c.synthesizer {
	case SynthesizerText:
		return speech.NewWriterSynthesizer(io.Discard)
	case "", SynthesizerAuto:
		if syn := speech.NewCommandSynthesizer(speech.DefaultCommands...); syn.Available() {
			c.logger.Debug("speaking replies", zap.String("synthesizer", syn.Path()))
			return syn
		}
		return speech.NewWriterSynthesizer(io.Discard)
	default:
		// An explicit command that is missing stays unavailable, so the
		// session reports it rather than silently falling back.
		return speech.NewCommandSynthesizer(c.synthesizer)
	}
}

func closeQuietly(d storage.Driver, logger *zap.Logger) {
	if err := d.Close(); err != nil {
		logger.Warn("closing asset cache", zap.Error(err))
	}
}

// session is the read-eval loop of one talk invocation.
type session struct {
	orch  *orchestrator.Orchestrator
	lines *speech.LineRecognizer
	ui    *terminalUI
	cache assetcache.Fetcher
}

func (s *session) header(target string) {
	caps := s.orch.Capabilities()
	fmt.Fprintln(s.ui.out)
	fmt.Fprintf(s.ui.out, "  %s %s\n", cliui.KeyStyle.Render("Relay:"), cliui.NameStyle.Render(target))
	fmt.Fprintf(s.ui.out, "  %s %s\n", cliui.KeyStyle.Render("Speech:"), cliui.ValueStyle.Render(caps.Synthesis.String()))
	fmt.Fprintf(s.ui.out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /voice to speak, /exit or Ctrl+D to quit."))
}

func (s *session) loop(ctx context.Context) error {
	for {
		fmt.Fprint(s.ui.out, userPrompt)

		line, err := s.lines.ReadLine(ctx)
		if err != nil {
			fmt.Fprintln(s.ui.out)
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		switch input {
		case cmdExit:
			return nil
		case cmdMetrics:
			s.printMetrics(s.orch.Metrics())
			continue
		case cmdDebug:
			s.printDebug()
			continue
		case cmdStatus:
			s.printStatus()
			continue
		case cmdVoice:
			fmt.Fprint(s.ui.out, listenPrompt)
			s.report(s.orch.StartVoiceTurn(ctx))
			continue
		}

		s.report(s.orch.SubmitText(ctx, input))
	}
}

// report prints a finished turn. Failures the orchestrator already surfaced
// through the notifier are not repeated.
func (s *session) report(res *orchestrator.Result, err error) {
	switch {
	case err == nil:
		s.printMetrics(res.Metrics)
	case errors.Is(err, orchestrator.ErrStaleTurn):
		fmt.Fprintf(s.ui.out, "\n  %s\n\n", cliui.DimStyle.Render("stopped"))
	case errors.Is(err, orchestrator.ErrEmptyMessage):
	case errors.Is(err, orchestrator.ErrRecognitionUnavailable):
	default:
		if res != nil && res.Reply != "" {
			// The reply was shown; only speaking it failed.
			s.printMetrics(res.Metrics)
		}
	}
}

func (s *session) printMetrics(m orchestrator.Metrics) {
	target := s.orch.TargetLatency()
	line := cliui.DimStyle.Render(m.String())
	if m.TotalTime > 0 && !m.WithinTarget(target) {
		line += " " + cliui.WarnStyle.Render(fmt.Sprintf("(over %s target)", cliui.FormatDuration(target)))
	}
	fmt.Fprintf(s.ui.out, "  %s\n\n", line)
}

func (s *session) printDebug() {
	entries := s.orch.DebugLog()
	if len(entries) == 0 {
		fmt.Fprintf(s.ui.out, "  %s\n\n", cliui.DimStyle.Render("no debug messages"))
		return
	}
	for _, entry := range entries {
		fmt.Fprintf(s.ui.out, "  %s\n", cliui.DimStyle.Render(entry))
	}
	fmt.Fprintln(s.ui.out)
}

func (s *session) printStatus() {
	caps := s.orch.Capabilities()
	fmt.Fprintln(s.ui.out, cliui.StatusLine("Recognition:", caps.Recognition.String()))
	fmt.Fprintln(s.ui.out, cliui.StatusLine("Synthesis:", caps.Synthesis.String()))
	fmt.Fprintln(s.ui.out, cliui.StatusLine("Status:", s.orch.Status().String()))

	if w, ok := s.cache.(*assetcache.Worker); ok {
		stats := w.Stats()
		fmt.Fprintln(s.ui.out, cliui.StatusLine("Cache:", fmt.Sprintf("%s (%s)", stats.CacheName, stats.State)))
		fmt.Fprintln(s.ui.out, cliui.StatusLine("Hits:", fmt.Sprintf("%d hit, %d miss, %d bypass",
			stats.Hits, stats.Misses, stats.Bypassed)))
	} else {
		fmt.Fprintln(s.ui.out, cliui.StatusLine("Cache:", "not registered"))
	}
	fmt.Fprintln(s.ui.out)
}
