package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"medassist/apps/backend/internal/ai"
	"medassist/apps/backend/internal/config"
	"medassist/apps/backend/internal/consult"
	"medassist/apps/backend/internal/db"
	"medassist/apps/backend/internal/document"
	"medassist/apps/backend/internal/session"
)

const maxChatLineBytes = 1 << 20

type chatOptions struct {
	sessionID string
	file      string
}

func newChatCmd(root *rootOptions) *cobra.Command {
	opts := &chatOptions{}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Run a consultation in the terminal",
		Long: `Run a consultation against the configured model provider.

Type your symptoms and answer the follow-up questions. Commands:
  /diet <condition>   switch to the diet plan flow for a diagnosed condition
  /quit               leave the consultation`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := root.logger(cmd.ErrOrStderr(), cfg)
			svc, cleanup, err := buildService(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()
			return runChat(cmd.Context(), svc, opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&opts.sessionID, "session", "s", "", "Session id (generated when empty)")
	cmd.Flags().StringVar(&opts.file, "file", "", "Medical document attached to the first message")
	return cmd
}

// buildService wires the consultation service the same way the API does,
// with the archive when DATABASE_URL is set.
func buildService(ctx context.Context, cfg config.Config, logger *slog.Logger) (*consult.Service, func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := ai.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	opts := consult.Options{
		Store: session.NewStore(session.Options{
			RecentTurns: cfg.MemoryRecentTurns,
			Summarizer:  consult.SummarizerFor(cfg, client),
		}),
		Client: client,
		Reader: document.NewReader(),
		Logger: logger,
	}

	cleanup := func() {}
	if cfg.ArchiveEnabled() {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect archive: %w", err)
		}
		archive := db.NewArchive(pool)
		if err := archive.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		opts.Archive = archive
		cleanup = pool.Close
	}
	return consult.NewService(opts), cleanup, nil
}

func runChat(ctx context.Context, svc *consult.Service, opts *chatOptions, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	sessionID := consult.ResolveSessionID(opts.sessionID)
	fmt.Fprintln(out, mutedStyle.Render("session "+sessionID))

	var upload *consult.Upload
	if opts.file != "" {
		content, err := os.ReadFile(opts.file)
		if err != nil {
			return fmt.Errorf("read %s: %w", opts.file, err)
		}
		upload = &consult.Upload{Filename: filepath.Base(opts.file), Content: content}
	}

	condition := ""
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxChatLineBytes)
	for {
		fmt.Fprint(out, promptStyle.Render("you> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/diet" || strings.HasPrefix(line, "/diet "):
			condition = strings.TrimSpace(strings.TrimPrefix(line, "/diet"))
			if condition == "" {
				fmt.Fprintln(out, errorStyle.Render("usage: /diet <condition>"))
				continue
			}
			line = ""
		}

		var (
			outcome consult.Outcome
			err     error
		)
		if condition != "" {
			outcome, err = svc.Diet(ctx, consult.DietRequest{SessionID: sessionID, Condition: condition, Message: line})
		} else {
			outcome, err = svc.Chat(ctx, consult.ChatRequest{SessionID: sessionID, Message: line, Upload: upload})
			upload = nil
		}
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("error: "+err.Error()))
			continue
		}

		renderResult(out, outcome.Result)
		if outcome.Closed {
			fmt.Fprintln(out, mutedStyle.Render("Consultation closed."))
			if outcome.Result.Diagnosis != nil && condition == "" {
				fmt.Fprintln(out, mutedStyle.Render("Type /diet "+outcome.Result.Diagnosis.Condition+" for a diet plan, or /quit."))
			}
			condition = ""
		}
	}
}
