package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"career-chat/internal/career"
	"career-chat/internal/chat"
	"career-chat/internal/config"
	"career-chat/internal/llm"
	"career-chat/internal/logger"
	"career-chat/internal/prompts"
	"career-chat/internal/registry"
	"career-chat/internal/storage"
)

// app holds everything the front-ends share. It lives for the whole process.
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	registry  *registry.Registry
	chat      *chat.Service
	counselor *career.Counselor
	recorder  storage.Recorder
}

// newApp loads configuration and builds the shared components. A configuration
// error is returned as-is so the caller can exit before serving anything.
func newApp() (*app, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: failed to read .env: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, &config.Error{Var: "LOG_LEVEL", Reason: err.Error()}
	}

	client, err := llm.NewFactory(cfg).CreateClient(string(cfg.LLMProvider), cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}
	client = llm.WithTimeout(client, cfg.UpstreamTimeout)

	persona, err := prompts.LoadPersona(cfg.PersonaPromptPath)
	if err != nil {
		return nil, &config.Error{Var: "PERSONA_PROMPT_PATH", Reason: err.Error()}
	}

	opts := []registry.Option{registry.WithLogger(log)}
	var rec storage.Recorder
	if cfg.TranscriptLogPath != "" {
		fr, err := storage.NewFileRecorder(cfg.TranscriptLogPath)
		if err != nil {
			log.Warn("transcript log disabled", zap.String("path", cfg.TranscriptLogPath), zap.Error(err))
		} else {
			rec = fr
			opts = append(opts, registry.WithRecorder(fr))
		}
	}

	reg := registry.New(client, persona, opts...)
	log.Info("llm configured",
		zap.String("provider", string(cfg.LLMProvider)),
		zap.String("model", cfg.Model),
		zap.Duration("timeout", cfg.UpstreamTimeout),
	)

	return &app{
		cfg:       cfg,
		log:       log,
		registry:  reg,
		chat:      chat.NewService(reg, log),
		counselor: career.NewCounselor(client),
		recorder:  rec,
	}, nil
}

func (a *app) close() {
	_ = a.log.Sync()
}
