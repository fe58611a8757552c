package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/wricardo/mcp-training/idleclicker/game/config"
	"github.com/wricardo/mcp-training/idleclicker/game/engine"
	"github.com/wricardo/mcp-training/idleclicker/game/service"
	"github.com/wricardo/mcp-training/idleclicker/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
	logger  *slog.Logger
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithLogger sets the request logger
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new API server. hub may be nil.
func NewServer(gameService service.GameService, hub *websocket.Hub, opts ...ServerOption) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)

	api := s.router.PathPrefix("/api").Subrouter()

	// Player worlds
	api.HandleFunc("/players", s.handleCreatePlayer).Methods("POST")
	api.HandleFunc("/players", s.handleListPlayers).Methods("GET")
	api.HandleFunc("/players/{id}", s.handleGetPlayer).Methods("GET")
	api.HandleFunc("/players/{id}", s.handleDeletePlayer).Methods("DELETE")
	api.HandleFunc("/players/{id}/state", s.handleGetState).Methods("GET")

	// Economy
	api.HandleFunc("/players/{id}/click", s.handleClick).Methods("POST")
	api.HandleFunc("/players/{id}/boosts", s.handleDeployBoost).Methods("POST")
	api.HandleFunc("/players/{id}/vault/deposit", s.handleVaultDeposit).Methods("POST")
	api.HandleFunc("/players/{id}/vault/withdraw", s.handleVaultWithdraw).Methods("POST")
	api.HandleFunc("/players/{id}/wager", s.handleWager).Methods("POST")
	api.HandleFunc("/players/{id}/wager", s.handleWagerStatus).Methods("GET")
	api.HandleFunc("/players/{id}/ascend", s.handleAscend).Methods("POST")
	api.HandleFunc("/players/{id}/redeem", s.handleRedeem).Methods("POST")
	api.HandleFunc("/players/{id}/quests/{quest}/claim", s.handleClaimQuest).Methods("POST")
	api.HandleFunc("/players/{id}/rename", s.handleRename).Methods("POST")
	api.HandleFunc("/players/{id}/leaderboard", s.handlePlayerLeaderboard).Methods("GET")

	// Chat
	api.HandleFunc("/players/{id}/chat", s.handlePostGlobalMessage).Methods("POST")
	api.HandleFunc("/players/{id}/chat", s.handleGlobalFeed).Methods("GET")

	// Clans
	api.HandleFunc("/players/{id}/clans", s.handleCreateClan).Methods("POST")
	api.HandleFunc("/players/{id}/clans", s.handleSearchClans).Methods("GET")
	api.HandleFunc("/players/{id}/clans/{clan}/join", s.handleJoinClan).Methods("POST")
	api.HandleFunc("/players/{id}/clans/{clan}/leave", s.handleLeaveClan).Methods("POST")
	api.HandleFunc("/players/{id}/clans/{clan}/recruit", s.handleRecruit).Methods("POST")
	api.HandleFunc("/players/{id}/clans/{clan}/deposit", s.handleClanDeposit).Methods("POST")
	api.HandleFunc("/players/{id}/clans/{clan}/withdraw", s.handleClanWithdraw).Methods("POST")
	api.HandleFunc("/players/{id}/clans/{clan}/messages", s.handlePostClanMessage).Methods("POST")
	api.HandleFunc("/players/{id}/clans/{clan}/kick", s.handleKickMember).Methods("POST")
	api.HandleFunc("/players/{id}/clans/{clan}/roles", s.handleSetMemberRole).Methods("POST")
	api.HandleFunc("/players/{id}/clans/{clan}/channels", s.handleAddChannel).Methods("POST")

	// Administration
	api.HandleFunc("/players/{id}/admin/{action}", s.handleAdmin).Methods("POST")

	// Economies and the cross-world leaderboard
	api.HandleFunc("/economies", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/economies/{name}", s.handleGetConfig).Methods("GET")
	api.HandleFunc("/leaderboard", s.handleGlobalLeaderboard).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps infrastructure errors to HTTP statuses
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrPlayerNotFound), errors.Is(err, config.ErrConfigNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, config.ErrInvalidConfig):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrClosed):
		respondError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errors.New("missing request body")
	}
	return json.NewDecoder(r.Body).Decode(v)
}

type amountRequest struct {
	Amount int64 `json:"amount"`
}

type textRequest struct {
	Text string `json:"text"`
}

type nameRequest struct {
	Name string `json:"name"`
}

// runAction executes a player action and pushes the resulting state to
// websocket watchers
func (s *Server) runAction(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, playerID string) (*service.ActionResult, error)) {
	playerID := mux.Vars(r)["id"]

	result, err := fn(r.Context(), playerID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	if s.hub != nil && result.State != nil {
		s.hub.BroadcastState(playerID, result.State)
	}
	if !result.Success {
		s.logger.Debug("action rejected", "player_id", playerID, "path", r.URL.Path, "code", result.Code)
	}

	respondJSON(w, http.StatusOK, result)
}

// Player Handlers

func (s *Server) handleCreatePlayer(w http.ResponseWriter, r *http.Request) {
	var req service.CreatePlayerRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	player, err := s.service.CreatePlayer(r.Context(), req)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, player)
}

func (s *Server) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := s.service.ListPlayers(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	total := len(players)

	query := r.URL.Query()
	sortBy := query.Get("sort") // "created", "accessed" (default)
	order := query.Get("order") // "asc", "desc" (default)
	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.Slice(players, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = players[i].CreatedAt, players[j].CreatedAt
		} else {
			ti, tj = players[i].LastAccessedAt, players[j].LastAccessedAt
		}
		if ti.Equal(tj) {
			return players[i].ID < players[j].ID
		}
		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	if l, err := strconv.Atoi(query.Get("limit")); err == nil && l > 0 && l < len(players) {
		players = players[:l]
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(players),
		"total":   total,
		"players": players,
		"sort":    sortBy,
		"order":   order,
	})
}

func (s *Server) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	player, err := s.service.GetPlayer(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, player)
}

func (s *Server) handleDeletePlayer(w http.ResponseWriter, r *http.Request) {
	playerID := mux.Vars(r)["id"]

	if err := s.service.DeletePlayer(r.Context(), playerID); err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Player %s deleted", playerID),
	})
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

// Economy Handlers

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	s.runAction(w, r, s.service.Click)
}

func (s *Server) handleDeployBoost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind engine.BoostKind `json:"kind"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.runAction(w, r, func(ctx context.Context, playerID string) (*service.ActionResult, error) {
		return s.service.DeployBoost(ctx, playerID, req.Kind)
	})
}

func (s *Server) handleVaultDeposit(w http.ResponseWriter, r *http.Request) {
	s.amountAction(w, r, s.service.VaultDeposit)
}

func (s *Server) handleVaultWithdraw(w http.ResponseWriter, r *http.Request) {
	s.amountAction(w, r, s.service.VaultWithdraw)
}

func (s *Server) handleWager(w http.ResponseWriter, r *http.Request) {
	s.amountAction(w, r, s.service.Wager)
}

func (s *Server) amountAction(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, playerID string, amount int64) (*service.ActionResult, error)) {
	var req amountRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.runAction(w, r, func(ctx context.Context, playerID string) (*service.ActionResult, error) {
		return fn(ctx, playerID, req.Amount)
	})
}

func (s *Server) handleWagerStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.service.WagerStatus(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleAscend(w http.ResponseWriter, r *http.Request) {
	s.runAction(w, r, s.service.Ascend)
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.runAction(w, r, func(ctx context.Context, playerID string) (*service.ActionResult, error) {
		return s.service.Redeem(ctx, playerID, req.Code)
	})
}

func (s *Server) handleClaimQuest(w http.ResponseWriter, r *http.Request) {
	questID := mux.Vars(r)["quest"]
	s.runAction(w, r, func(ctx context.Context, playerID string) (*service.ActionResult, error) {
		return s.service.ClaimQuest(ctx, playerID, questID)
	})
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DisplayName string `json:"display_name"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.runAction(w, r, func(ctx context.Context, playerID string) (*service.ActionResult, error) {
		return s.service.Rename(ctx, playerID, req.DisplayName)
	})
}

func (s *Server) handlePlayerLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := s.service.Leaderboard(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, board)
}

// Chat Handlers

func (s *Server) handlePostGlobalMessage(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.runAction(w, r, func(ctx context.Context, playerID string) (*service.ActionResult, error) {
		return s.service.PostGlobalMessage(ctx, playerID, req.Text)
	})
}

func (s *Server) handleGlobalFeed(w http.ResponseWriter, r *http.Request) {
	feed, err := s.service.GlobalFeed(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(feed),
		"messages": feed,
	})
}

// Clan Handlers

func (s *Server) handleCreateClan(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.runAction(w, r, func(ctx context.Context, playerID string) (*service.ActionResult, error) {
		return s.service.CreateClan(ctx, playerID, req.Name)
	})
}

func (s *Server) handleSearchClans(w http.ResponseWriter, r *http.Request) {
	clans, err := s.service.SearchClans(r.Context(), mux.Vars(r)["id"], r.URL.Query().Get("q"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(clans),
		"clans": clans,
	})
}

// clanAction runs fn with the clan id from the path
func (s *Server) clanAction(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, playerID, clanID string) (*service.ActionResult, error)) {
	clanID := mux.Vars(r)["clan"]
	s.runAction(w, r, func(ctx context.Context, playerID string) (*service.ActionResult, error) {
		return fn(ctx, playerID, clanID)
	})
}

func (s *Server) handleJoinClan(w http.ResponseWriter, r *http.Request) {
	s.clanAction(w, r, s.service.JoinClan)
}

func (s *Server) handleLeaveClan(w http.ResponseWriter, r *http.Request) {
	s.clanAction(w, r, s.service.LeaveClan)
}

func (s *Server) handleRecruit(w http.ResponseWriter, r *http.Request) {
	s.clanAction(w, r, s.service.BroadcastRecruitment)
}

func (s *Server) handleClanDeposit(w http.ResponseWriter, r *http.Request) {
	s.clanAmountAction(w, r, s.service.ClanDeposit)
}

func (s *Server) handleClanWithdraw(w http.ResponseWriter, r *http.Request) {
	s.clanAmountAction(w, r, s.service.ClanWithdraw)
}

func (s *Server) clanAmountAction(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, playerID, clanID string, amount int64) (*service.ActionResult, error)) {
	var req amountRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.clanAction(w, r, func(ctx context.Context, playerID, clanID string) (*service.ActionResult, error) {
		return fn(ctx, playerID, clanID, req.Amount)
	})
}

func (s *Server) handlePostClanMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChannelID string `json:"channel_id,omitempty"`
		Text      string `json:"text"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.clanAction(w, r, func(ctx context.Context, playerID, clanID string) (*service.ActionResult, error) {
		return s.service.PostClanMessage(ctx, playerID, clanID, req.ChannelID, req.Text)
	})
}

func (s *Server) handleKickMember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MemberID string `json:"member_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.clanAction(w, r, func(ctx context.Context, playerID, clanID string) (*service.ActionResult, error) {
		return s.service.KickMember(ctx, playerID, clanID, req.MemberID)
	})
}

func (s *Server) handleSetMemberRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MemberID string `json:"member_id"`
		RoleID   string `json:"role_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.clanAction(w, r, func(ctx context.Context, playerID, clanID string) (*service.ActionResult, error) {
		return s.service.SetMemberRole(ctx, playerID, clanID, req.MemberID, req.RoleID)
	})
}

func (s *Server) handleAddChannel(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.clanAction(w, r, func(ctx context.Context, playerID, clanID string) (*service.ActionResult, error) {
		return s.service.AddChannel(ctx, playerID, clanID, req.Name)
	})
}

// Administration Handler

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	var req service.AdminRequest
	// The body is optional; wipe and reset-quests take no arguments
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Action = mux.Vars(r)["action"]

	s.runAction(w, r, func(ctx context.Context, playerID string) (*service.ActionResult, error) {
		return s.service.Admin(ctx, playerID, req)
	})
}

// Economy configuration and leaderboard Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	economy, err := s.service.LoadConfig(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, economy)
}

func (s *Server) handleGlobalLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := s.service.GlobalLeaderboard(r.Context(), limit)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(entries),
		"entries": entries,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("player")
	if playerID == "" {
		http.Error(w, "player parameter required", http.StatusBadRequest)
		return
	}
	if s.hub == nil {
		http.Error(w, "websocket updates disabled", http.StatusServiceUnavailable)
		return
	}

	player, err := s.service.GetPlayer(r.Context(), playerID)
	if err != nil {
		http.Error(w, "Invalid player", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, player.ID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
