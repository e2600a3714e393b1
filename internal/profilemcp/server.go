// Package profilemcp exposes stored user profiles as read-only MCP tools.
package profilemcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/rufetisr/FitnessTelegramBot/internal/store"
)

const (
	ServerName    = "healthmentor-profile-mcp"
	ServerVersion = "1.0.0"

	ToolGetProfile   = "get_profile"
	ToolListProfiles = "list_profiles"
)

type GetProfileParams struct {
	SessionID string `json:"session_id" mcp:"Telegram chat id of the user"`
}

type ListProfilesParams struct {
	Limit int `json:"limit,omitempty" mcp:"maximum number of profiles to return (default: 20, max: 500)"`
}

// ProfileReader is the read side of store.ProfileStore.
type ProfileReader interface {
	Get(ctx context.Context, sessionID string) (*store.UserProfile, error)
	List(ctx context.Context, limit int) ([]store.ProfileSummary, error)
}

type ProfileServer struct {
	profiles ProfileReader
	logger   *zap.Logger
}

func NewProfileServer(profiles ProfileReader, logger *zap.Logger) *ProfileServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileServer{profiles: profiles, logger: logger}
}

// NewServer builds an MCP server with both tools registered.
func NewServer(profiles ProfileReader, logger *zap.Logger) *mcp.Server {
	ps := NewProfileServer(profiles, logger)
	server := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolGetProfile,
		Description: "Returns the stored profile of one user with all generated recommendations",
	}, ps.GetProfile)

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolListProfiles,
		Description: "Lists the most recently active users with their recommendation counts",
	}, ps.ListProfiles)

	return server
}

func (s *ProfileServer) GetProfile(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[GetProfileParams]) (*mcp.CallToolResultFor[any], error) {
	id := strings.TrimSpace(params.Arguments.SessionID)
	if id == "" {
		return errorResult("session_id is required"), nil
	}

	p, err := s.profiles.Get(ctx, id)
	if err != nil {
		s.logger.Error("get_profile failed", zap.String("session_id", id), zap.Error(err))
		return errorResult(fmt.Sprintf("failed to load profile: %v", err)), nil
	}
	if p == nil {
		return errorResult(fmt.Sprintf("no profile for session %s", id)), nil
	}
	return jsonResult(p)
}

func (s *ProfileServer) ListProfiles(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[ListProfilesParams]) (*mcp.CallToolResultFor[any], error) {
	list, err := s.profiles.List(ctx, params.Arguments.Limit)
	if err != nil {
		s.logger.Error("list_profiles failed", zap.Error(err))
		return errorResult(fmt.Sprintf("failed to list profiles: %v", err)), nil
	}
	return jsonResult(list)
}

func jsonResult(v any) (*mcp.CallToolResultFor[any], error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil
}

func errorResult(msg string) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}
