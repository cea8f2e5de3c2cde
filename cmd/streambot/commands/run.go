package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jholhewres/streambot/pkg/streambot/bot"
	"github.com/jholhewres/streambot/pkg/streambot/conversation"
	"github.com/jholhewres/streambot/pkg/streambot/dispatch"
	"github.com/jholhewres/streambot/pkg/streambot/mention"
	"github.com/jholhewres/streambot/pkg/streambot/platform"
	"github.com/jholhewres/streambot/pkg/streambot/platform/playground"
	"github.com/jholhewres/streambot/pkg/streambot/scheduler"
)

// newRunCmd creates the `streambot run` command that starts the bot.
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the bot against the event stream",
		Long: `Start the bot. Real platform drivers are wired by embedding streambot
as a library; --demo runs the built-in in-memory playground, turning stdin
lines into stream events (prefix a line with @<identity> to trigger the
mention path).`,
		RunE: runBot,
	}

	cmd.Flags().Bool("demo", false, "run against the in-memory playground driver")
	return cmd
}

func runBot(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := buildLogger(cmd, cfg)
	slog.SetDefault(logger)

	demo, _ := cmd.Flags().GetBool("demo")
	if !demo {
		return fmt.Errorf("no platform driver configured; embed streambot as a library or pass --demo")
	}
	if cfg.Identity == "" {
		cfg.Identity = "streambot"
	}

	pg := playground.New(cfg.Identity, logger)

	var b *bot.Bot
	handlers := dispatch.Handlers{
		Startup: func(ctx context.Context) {
			logger.Info("stream established")
		},
		Mention: func(ctx context.Context, ev *platform.Event, meta *mention.Meta, conv *conversation.Conversation) {
			if b.Tracker().IsBotSuspect(conv, ev.Sender.Username) {
				logger.Info("ignoring suspected bot", "user", ev.Sender.Username)
				return
			}
			b.Pace()
			if _, err := b.Reply(ctx, ev, meta, meta.StrippedText, nil); err != nil {
				logger.Error("reply failed", "error", err)
			}
		},
		Timeline: func(ctx context.Context, ev *platform.Event, meta *mention.Meta) {
			logger.Debug("timeline post", "user", ev.Sender.Username, "text", ev.Text)
		},
		DirectMessage: func(ctx context.Context, ev *platform.Event) {
			logger.Info("direct message", "from", ev.Sender.Username, "text", ev.Text)
		},
		Follow: func(ctx context.Context, ev *platform.Event) {
			if err := b.Follow(ctx, ev.Sender.Username); err != nil {
				logger.Warn("follow-back failed", "user", ev.Sender.Username, "error", err)
			}
		},
	}

	b, err = bot.New(cfg, pg, pg, handlers, logger)
	if err != nil {
		// Fatal configuration problems are reported before the stream loop.
		logger.Error("bot initialization failed", "error", err)
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Optional periodic posts.
	if cfg.Scheduler.Enabled {
		storage, err := scheduler.OpenSQLiteJobStorage(cfg.Scheduler.DBPath)
		if err != nil {
			return err
		}
		defer storage.Close()

		sched := scheduler.New(storage, func(ctx context.Context, job *scheduler.Job) (string, error) {
			return b.Post(ctx, job.Text, nil)
		}, logger)
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
	}

	go feedStdin(pg, cfg.Identity, logger)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	pg.Inject(&platform.Event{Type: platform.EventConnected})
	err = b.Run(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, platform.ErrStreamClosed) {
		return nil
	}
	return err
}

// feedStdin turns stdin lines into stream events for the demo driver.
func feedStdin(pg *playground.Playground, identity string, logger *slog.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	seq := 1000
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		seq++
		ev := &platform.Event{
			Type:      platform.EventPost,
			ID:        fmt.Sprintf("%d", seq),
			Sender:    platform.User{Username: "console"},
			Text:      line,
			Timestamp: time.Now(),
			Mentions:  scanMentions(line),
		}
		pg.Inject(ev)
	}
	logger.Debug("stdin closed")
	pg.Close()
}

// scanMentions finds @username tokens and their rune spans.
func scanMentions(text string) []platform.Mention {
	var mentions []platform.Mention
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '@' {
			continue
		}
		j := i + 1
		for j < len(runes) && (isWordRune(runes[j]) || runes[j] == '_') {
			j++
		}
		if j > i+1 {
			mentions = append(mentions, platform.Mention{
				Username: string(runes[i+1 : j]),
				Start:    i,
				End:      j,
			})
			i = j - 1
		}
	}
	return mentions
}

func isWordRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// loadConfig resolves and loads the configuration file.
func loadConfig(cmd *cobra.Command) (*bot.Config, error) {
	path, _ := cmd.Root().PersistentFlags().GetString("config")
	if _, err := os.Stat(path); err != nil {
		// No config file: run with defaults (demo mode needs none).
		return bot.DefaultConfig(), nil
	}
	cfg, err := bot.LoadConfigFromFile(path)
	if err != nil {
		return nil, err
	}
	slog.Info("config loaded", "path", path)
	return cfg, nil
}

// buildLogger configures slog from flags and config. The format defaults to
// text on interactive terminals and JSON otherwise.
func buildLogger(cmd *cobra.Command, cfg *bot.Config) *slog.Logger {
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	logLevel := slog.LevelInfo
	if verbose || cfg.Logging.Level == "debug" {
		logLevel = slog.LevelDebug
	}

	format := cfg.Logging.Format
	if format == "" {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			format = "text"
		} else {
			format = "json"
		}
	}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}
	return slog.New(handler)
}
