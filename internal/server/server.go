// Package server exposes the engine over HTTP: JSON read endpoints, the
// player enter/move operations, token-gated admin and system endpoints,
// and a websocket presence feed.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/orvandal/gridworld/internal/auth"
	"github.com/orvandal/gridworld/internal/engine"
	"github.com/orvandal/gridworld/internal/grid"
	"github.com/orvandal/gridworld/internal/model"
	"github.com/orvandal/gridworld/internal/nav"
	"github.com/orvandal/gridworld/internal/route"
)

// Server routes HTTP traffic to the engine.
type Server struct {
	eng    *engine.Engine
	tokens *auth.TokenRegistry
	hub    *Hub
}

// New returns a server over the engine. The hub may be nil to disable
// the presence feed.
func New(eng *engine.Engine, tokens *auth.TokenRegistry, hub *Hub) *Server {
	return &Server{eng: eng, tokens: tokens, hub: hub}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/v1/maps", s.handleMaps)
	r.Get("/v1/tiles", s.handleTileRange)
	r.Get("/v1/tiles/{index}", s.handleTile)
	r.Get("/v1/tiles/{index}/dynamic", s.handleTileDynamic)
	r.Get("/v1/tiles/{index}/players", s.handleTilePlayers)
	r.Get("/v1/tiles/{a}/adjacent/{b}", s.handleAdjacent)
	r.Get("/v1/players/{id}/location", s.handleLocation)
	r.Get("/v1/players/{id}/travel", s.handleTravel)
	r.Get("/v1/players/{id}/entered", s.handleEntered)
	r.Post("/v1/players/{id}/enter", s.handleEnter)
	r.Post("/v1/players/{id}/move", s.handleMove)
	r.Post("/v1/routes/query", s.handleRouteQuery)

	r.Post("/v1/admin/maps", s.handleCreateMap)
	r.Post("/v1/admin/tiles", s.handleSetTiles)
	r.Post("/v1/admin/finalize", s.handleFinalize)
	r.Post("/v1/system/freeze", s.handleFreeze)
	r.Post("/v1/system/unfreeze", s.handleUnfreeze)

	if s.hub != nil {
		r.Get("/ws/presence", s.hub.HandleWS)
	}
	return r
}

// capability resolves the bearer token into a capability.
func (s *Server) capability(r *http.Request) auth.Capability {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return s.tokens.Resolve(h[len(prefix):])
	}
	return auth.As(auth.RolePlayer)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writing response failed", "err", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps engine errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, auth.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, grid.ErrNoSuchTile),
		errors.Is(err, nav.ErrUnknownPlayer),
		errors.Is(err, nav.ErrNotEntered):
		status = http.StatusNotFound
	case errors.Is(err, nav.ErrInvalidPath),
		errors.Is(err, route.ErrBadPosition),
		errors.Is(err, route.ErrBadSampleIndex):
		status = http.StatusBadRequest
	case errors.Is(err, nav.ErrAlreadyEntered),
		errors.Is(err, nav.ErrFrozenPlayer),
		errors.Is(err, nav.ErrTraveling),
		errors.Is(err, grid.ErrMapNameTaken),
		errors.Is(err, grid.ErrMapUnderConstruction),
		errors.Is(err, grid.ErrNoMapUnderConstruction),
		errors.Is(err, grid.ErrMapIncomplete),
		errors.Is(err, grid.ErrTileOutOfRange),
		errors.Is(err, grid.ErrMapTooLarge):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrNotRegistered):
		status = http.StatusUnauthorized
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func tileParam(r *http.Request, name string) (uint16, error) {
	v, err := strconv.ParseUint(chi.URLParam(r, name), 10, 16)
	return uint16(v), err
}

// --- read handlers ---

func (s *Server) handleMaps(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.eng.Maps())
}

func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	idx, err := tileParam(r, "index")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad tile index"})
		return
	}
	tile, err := s.eng.Tile(idx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tile)
}

func (s *Server) handleTileRange(w http.ResponseWriter, r *http.Request) {
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	take, err := strconv.Atoi(r.URL.Query().Get("take"))
	if err != nil || take <= 0 || take > 1024 {
		take = 256
	}
	writeJSON(w, http.StatusOK, s.eng.TileRange(skip, take))
}

func (s *Server) handleTileDynamic(w http.ResponseWriter, r *http.Request) {
	idx, err := tileParam(r, "index")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad tile index"})
		return
	}
	view, err := s.eng.TileDynamic(idx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleTilePlayers(w http.ResponseWriter, r *http.Request) {
	idx, err := tileParam(r, "index")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad tile index"})
		return
	}
	max, err := strconv.Atoi(r.URL.Query().Get("max"))
	if err != nil || max <= 0 || max > 256 {
		max = 64
	}
	players, err := s.eng.PlayersOnTile(idx, r.URL.Query().Get("start"), max)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, players)
}

func (s *Server) handleAdjacent(w http.ResponseWriter, r *http.Request) {
	a, errA := tileParam(r, "a")
	b, errB := tileParam(r, "b")
	if errA != nil || errB != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad tile index"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"adjacent": s.eng.TileAdjacentTo(a, b)})
}

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	tile, canInteract, err := s.eng.PlayerLocation(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tile": tile, "can_interact": canInteract})
}

func (s *Server) handleTravel(w http.ResponseWriter, r *http.Request) {
	data, err := s.eng.PlayerTravelData(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"is_idle":      data.IsIdle,
		"is_traveling": data.IsTraveling,
		"is_embarked":  data.IsEmbarked,
		"tile":         data.Tile,
		"route":        data.Route[:],
		"arrival":      data.Arrival,
	})
}

func (s *Server) handleEntered(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"entered": s.eng.PlayerHasEntered(chi.URLParam(r, "id"))})
}

type routeQueryRequest struct {
	Tile        uint16 `json:"tile"`
	Route       []byte `json:"route"`
	SampleIndex uint8  `json:"sample_index"`
	Destination uint16 `json:"destination"`
	Arrival     int64  `json:"arrival"`
	Position    uint8  `json:"position"`
}

func (s *Server) handleRouteQuery(w http.ResponseWriter, r *http.Request) {
	var req routeQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Route) != route.Size {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad route query"})
		return
	}
	var rt route.Route
	copy(rt[:], req.Route)
	along, err := s.eng.TileAlongRoute(req.Tile, rt, req.SampleIndex, req.Destination, req.Arrival, route.Position(req.Position))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"along": along})
}

// --- state-changing handlers ---

func (s *Server) handleEnter(w http.ResponseWriter, r *http.Request) {
	if err := s.eng.EnterWorld(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"entered": true})
}

type moveRequest struct {
	Path []uint16 `json:"path"`
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad move request"})
		return
	}
	turns, rt, err := s.eng.Move(chi.URLParam(r, "id"), req.Path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"turns": turns, "route": rt[:]})
}

type createMapRequest struct {
	Name  string `json:"name"`
	SizeX uint16 `json:"size_x"`
	SizeZ uint16 `json:"size_z"`
}

func (s *Server) handleCreateMap(w http.ResponseWriter, r *http.Request) {
	var req createMapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad map request"})
		return
	}
	if err := s.eng.CreateMap(s.capability(r), req.Name, req.SizeX, req.SizeZ); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"name": req.Name})
}

type setTilesRequest struct {
	Tiles []struct {
		Index uint16           `json:"index"`
		Data  model.TileStatic `json:"data"`
	} `json:"tiles"`
}

func (s *Server) handleSetTiles(w http.ResponseWriter, r *http.Request) {
	var req setTilesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad tiles request"})
		return
	}
	batch := make([]engine.TileUpdate, len(req.Tiles))
	for i, t := range req.Tiles {
		batch[i] = engine.TileUpdate{Index: t.Index, Data: t.Data}
	}
	if err := s.eng.SetTiles(s.capability(r), batch); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"tiles": len(batch)})
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	if err := s.eng.FinalizeMap(s.capability(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"finalized": true})
}

type freezeRequest struct {
	Player string `json:"player"`
	Until  int64  `json:"until"`
}

func (s *Server) handleFreeze(w http.ResponseWriter, r *http.Request) {
	var req freezeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad freeze request"})
		return
	}
	if err := s.eng.Freeze(s.capability(r), req.Player, req.Until); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"frozen": true})
}

func (s *Server) handleUnfreeze(w http.ResponseWriter, r *http.Request) {
	var req freezeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad unfreeze request"})
		return
	}
	if err := s.eng.Unfreeze(s.capability(r), req.Player); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"frozen": false})
}
