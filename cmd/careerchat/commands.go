package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"career-chat/internal/analytics"
	"career-chat/internal/config"
	"career-chat/internal/console"
	"career-chat/internal/mcpserver"
	"career-chat/internal/scheduler"
	"career-chat/internal/telegram"
	"career-chat/internal/web"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat web UI and JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if addr == "" {
				addr = a.cfg.ListenAddr
			}
			secret, insecure := a.cfg.SessionKey()
			if insecure {
				a.log.Warn("SESSION_SECRET is not set; session cookies are signed with a built-in key and can be forged")
			}

			ctx, stop := signalContext()
			defer stop()

			if a.cfg.StatsSchedule != "" {
				sched := scheduler.New(a.cfg.StatsSchedule, a.log)
				sched.SetReportFunction(analytics.NewReporter(a.registry, a.recorder, a.log).Report)
				if err := sched.Start(); err != nil {
					return err
				}
				defer sched.Stop()
			}

			srv := web.NewServer(a.chat, a.counselor, a.log, web.Options{
				Addr:          addr,
				SessionSecret: secret,
				EagerPriming:  a.cfg.EagerPriming,
			})

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("web server: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			a.log.Info("shutting down", zap.Int("sessions", a.registry.Len()))
			return srv.Stop(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides LISTEN_ADDR)")
	return cmd
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with the counselor in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signalContext()
			defer stop()

			err = console.Run(ctx, a.chat, uuid.NewString(), cmd.InOrStdin(), cmd.OutOrStdout())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func telegramCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "telegram",
		Short: "Run the counselor as a Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if a.cfg.TelegramBotToken == "" {
				return &config.Error{Var: "TELEGRAM_BOT_TOKEN", Reason: "not set"}
			}

			bot, err := telegram.New(a.cfg.TelegramBotToken, a.chat, a.log)
			if err != nil {
				return fmt.Errorf("failed to create bot: %w", err)
			}

			ctx, stop := signalContext()
			defer stop()
			bot.Start(ctx)
			return nil
		},
	}
}

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve counselor tools over MCP on stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signalContext()
			defer stop()
			return mcpserver.New(a.chat, a.counselor, a.log).Run(ctx, version)
		},
	}
}
