package worker

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/clearhead/internal/pipeline"
	"github.com/thebtf/clearhead/internal/resurface"
	"github.com/thebtf/clearhead/pkg/models"
)

const dueListLimit = 100

func (s *Service) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/api/events", s.broadcaster.ServeHTTP)

	s.router.Route("/api/dumps", func(r chi.Router) {
		r.Post("/", s.handleCreateDump)
		r.Get("/{uid}", s.handleGetDump)
		r.Get("/{uid}/thoughts", s.handleGetDumpThoughts)
	})

	s.router.Route("/api/thoughts", func(r chi.Router) {
		r.Get("/due", s.handleListDue)
		r.Patch("/{id}/status", s.handleUpdateStatus)
	})

	s.router.Get("/api/search", s.handleSearch)
}

type createDumpRequest struct {
	UserID   string `json:"user_id"`
	Source   string `json:"source"`
	Text     string `json:"text"`
	AudioRef string `json:"audio_ref"`
}

type createDumpResponse struct {
	ID     int64  `json:"id"`
	UID    string `json:"uid"`
	Status string `json:"status"`
}

// handleCreateDump accepts a capture and acknowledges before processing. The
// heavy lifting happens on the worker pool; the client polls or subscribes to
// /api/events for progress.
func (s *Service) handleCreateDump(w http.ResponseWriter, r *http.Request) {
	var req createDumpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if !models.ValidDumpSource(req.Source) {
		writeError(w, http.StatusBadRequest, "source must be voice, text, or imported")
		return
	}

	dump := &models.MindDump{
		UserID:  req.UserID,
		Source:  models.DumpSource(req.Source),
		RawText: strings.TrimSpace(req.Text),
	}
	switch dump.Source {
	case models.DumpSourceVoice:
		if req.AudioRef == "" {
			writeError(w, http.StatusBadRequest, "voice dumps require audio_ref")
			return
		}
		dump.AudioRef = sql.NullString{String: req.AudioRef, Valid: true}
		if dump.RawText == "" {
			dump.RawText = models.TranscribingPlaceholder
		}
	default:
		if dump.RawText == "" {
			writeError(w, http.StatusBadRequest, "text is required")
			return
		}
	}

	id, uid, err := s.dumps.CreateDump(r.Context(), dump)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create dump")
		writeError(w, http.StatusInternalServerError, "failed to store dump")
		return
	}

	s.Enqueue(id)
	s.broadcaster.Publish(pipeline.Event{DumpID: id, DumpUID: uid, Stage: pipeline.StageQueued})

	writeJSON(w, http.StatusAccepted, createDumpResponse{ID: id, UID: uid, Status: "queued"})
}

func (s *Service) handleGetDump(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")

	dump, err := s.dumps.GetDumpByUID(r.Context(), uid)
	if err != nil {
		log.Error().Err(err).Str("uid", uid).Msg("Failed to load dump")
		writeError(w, http.StatusInternalServerError, "failed to load dump")
		return
	}
	if dump == nil {
		writeError(w, http.StatusNotFound, "dump not found")
		return
	}

	count, err := s.thoughts.CountByDump(r.Context(), dump.ID)
	if err != nil {
		log.Warn().Err(err).Int64("dumpId", dump.ID).Msg("Failed to count thoughts")
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"dump":          dump,
		"thought_count": count,
	})
}

func (s *Service) handleGetDumpThoughts(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")

	dump, err := s.dumps.GetDumpByUID(r.Context(), uid)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load dump")
		return
	}
	if dump == nil {
		writeError(w, http.StatusNotFound, "dump not found")
		return
	}

	thoughts, err := s.thoughts.GetThoughtsByDump(r.Context(), dump.ID)
	if err != nil {
		log.Error().Err(err).Int64("dumpId", dump.ID).Msg("Failed to list thoughts")
		writeError(w, http.StatusInternalServerError, "failed to list thoughts")
		return
	}

	// Relations let clients reassemble the subtask tree.
	relations := make([]*models.ThoughtRelation, 0)
	for _, t := range thoughts {
		rels, err := s.thoughts.GetRelationsByParent(r.Context(), t.ID)
		if err != nil {
			log.Warn().Err(err).Int64("thoughtId", t.ID).Msg("Failed to load relations")
			continue
		}
		relations = append(relations, rels...)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"thoughts":  thoughts,
		"relations": relations,
	})
}

// handleListDue returns open or snoozed thoughts whose resurface time has
// arrived. before defaults to now.
func (s *Service) handleListDue(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	before := time.Now()
	if raw := r.URL.Query().Get("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "before must be RFC3339")
			return
		}
		before = parsed
	}

	limit := dueListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n < dueListLimit {
			limit = n
		}
	}

	due, err := s.thoughts.ListDue(r.Context(), userID, before, limit)
	if err != nil {
		log.Error().Err(err).Str("userId", userID).Msg("Failed to list due thoughts")
		writeError(w, http.StatusInternalServerError, "failed to list due thoughts")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"thoughts": due})
}

type updateStatusRequest struct {
	Status      string `json:"status"`
	SnoozeUntil string `json:"snooze_until"`
}

// handleUpdateStatus transitions a thought's lifecycle. Snoozing accepts the
// same vocabulary as resurface timings ("tomorrow morning", "in 2 days", an
// absolute timestamp) and rewrites the resurface time.
func (s *Service) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid thought id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !models.ValidThoughtStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "status must be open, done, snoozed, or archived")
		return
	}

	thought, err := s.thoughts.GetThoughtByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load thought")
		return
	}
	if thought == nil {
		writeError(w, http.StatusNotFound, "thought not found")
		return
	}

	status := models.ThoughtStatus(req.Status)
	var resurfaceAt *string
	if status == models.ThoughtStatusSnoozed && req.SnoozeUntil != "" {
		if ts := resurface.Resolve(req.SnoozeUntil, time.Now(), nil); ts != nil {
			formatted := ts.UTC().Format(time.RFC3339)
			resurfaceAt = &formatted
		}
	}

	if err := s.thoughts.UpdateStatus(r.Context(), id, status, resurfaceAt); err != nil {
		log.Error().Err(err).Int64("thoughtId", id).Msg("Failed to update status")
		writeError(w, http.StatusInternalServerError, "failed to update status")
		return
	}

	updated, err := s.thoughts.GetThoughtByID(r.Context(), id)
	if err != nil || updated == nil {
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": status})
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Service) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.searcher == nil {
		writeError(w, http.StatusServiceUnavailable, "search requires an embedding backend")
		return
	}

	userID := r.URL.Query().Get("user_id")
	query := r.URL.Query().Get("q")
	if userID == "" || query == "" {
		writeError(w, http.StatusBadRequest, "user_id and q are required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	results, err := s.searcher.Search(r.Context(), userID, query, limit)
	if err != nil {
		log.Error().Err(err).Str("userId", userID).Msg("Search failed")
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if !s.ready.Load() {
		status = "starting"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":  status,
		"version": s.version,
		"uptime":  time.Since(s.startTime).Round(time.Second).String(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
