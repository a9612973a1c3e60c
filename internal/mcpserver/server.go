// Package mcpserver exposes the counselor as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"career-chat/internal/career"
	"career-chat/internal/chat"
)

type Server struct {
	chat      *chat.Service
	counselor *career.Counselor
	log       *zap.Logger
}

func New(svc *chat.Service, counselor *career.Counselor, log *zap.Logger) *Server {
	return &Server{chat: svc, counselor: counselor, log: log}
}

// MCP builds the MCP server with every tool registered.
func (s *Server) MCP(version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "career-chat",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "counselor_chat",
		Description: "Sends a message to the career counselor conversation identified by session_id and returns the reply",
	}, s.Chat)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "counselor_history",
		Description: "Returns the transcript of the conversation identified by session_id as JSON",
	}, s.History)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "counselor_clear",
		Description: "Forgets the conversation identified by session_id",
	}, s.Clear)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "career_suggest",
		Description: "Suggests 3-5 career paths from a background profile (name, interests, skills, education)",
	}, s.Suggest)

	return server
}

// Run serves on stdin/stdout until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context, version string) error {
	s.log.Info("starting MCP server on stdin/stdout")
	return s.MCP(version).Run(ctx, mcp.NewStdioTransport())
}

func textResult(text string) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(format string, args ...any) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
	}
}

func stringArg(args map[string]interface{}, name string) (string, bool) {
	v, ok := args[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (s *Server) Chat(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[map[string]interface{}]) (*mcp.CallToolResultFor[any], error) {
	id, ok := stringArg(params.Arguments, "session_id")
	if !ok || id == "" {
		return errorResult("session_id parameter is required"), nil
	}
	message, _ := stringArg(params.Arguments, "message")

	reply, err := s.chat.Send(ctx, id, message)
	if err != nil {
		var ve *chat.ValidationError
		if errors.As(err, &ve) {
			return errorResult("%s", ve.Msg), nil
		}
		s.log.Error("mcp chat failed", zap.String("session", id), zap.Error(err))
		return errorResult("Failed to get a reply: %v", err), nil
	}
	return textResult(reply), nil
}

type historyEntry struct {
	User      string `json:"user"`
	AI        string `json:"ai"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) History(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[map[string]interface{}]) (*mcp.CallToolResultFor[any], error) {
	id, ok := stringArg(params.Arguments, "session_id")
	if !ok || id == "" {
		return errorResult("session_id parameter is required"), nil
	}

	entries := []historyEntry{}
	for _, e := range s.chat.History(id) {
		entries = append(entries, historyEntry{User: e.User, AI: e.AI, Timestamp: e.Timestamp.Format(time.RFC3339Nano)})
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return nil, err
	}
	return textResult(string(b)), nil
}

func (s *Server) Clear(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[map[string]interface{}]) (*mcp.CallToolResultFor[any], error) {
	id, ok := stringArg(params.Arguments, "session_id")
	if !ok || id == "" {
		return errorResult("session_id parameter is required"), nil
	}
	s.chat.Clear(id)
	return textResult("cleared"), nil
}

func (s *Server) Suggest(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[map[string]interface{}]) (*mcp.CallToolResultFor[any], error) {
	var p career.Profile
	p.Name, _ = stringArg(params.Arguments, "name")
	p.Interests, _ = stringArg(params.Arguments, "interests")
	p.Skills, _ = stringArg(params.Arguments, "skills")
	p.Education, _ = stringArg(params.Arguments, "education")

	out, err := s.counselor.Suggest(ctx, p)
	if err != nil {
		if errors.Is(err, career.ErrEmptyProfile) {
			return errorResult("At least one of name, interests, skills or education is required"), nil
		}
		s.log.Error("mcp career suggestions failed", zap.Error(err))
		return errorResult("Error generating suggestions: %v", err), nil
	}
	return textResult(out), nil
}
