// internal/httpserver/server.go
//
// HTTP server wiring for the Rock-Paper-Scissors backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, access log).
//   - Public endpoints: "/", "/health", POST /game/new.
//   - Session endpoints (token required): state, play, reset, history, tally, end.
//   - Journaling of rounds and resets.
//
// Notes:
//   - Game state lives in the session store; every round replaces it atomically
//     through store.Update so concurrent requests for one session cannot lose rounds.
//   - Journal writes happen inside the same Update. A failed write rejects the
//     transition, so history always matches the live state.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/rps/internal/config"
	"github.com/robalobadob/rps/internal/game"
	"github.com/robalobadob/rps/internal/journal"
	"github.com/robalobadob/rps/internal/store"
)

// errJournal marks a transition rejected because the journal could not record it.
var errJournal = errors.New("journal write failed")

// Journal records rounds for history and statistics.
// Writes run inside store.Update, so a session's journal and its state
// change together or not at all.
type Journal interface {
	RecordRound(ctx context.Context, sessionID string, st game.State) error
	RecordReset(ctx context.Context, sessionID string) error
	History(ctx context.Context, sessionID string, limit int) ([]journal.Entry, error)
	Tally(ctx context.Context, sessionID string) ([]journal.ChoiceTally, error)
	Resets(ctx context.Context, sessionID string) (int, error)
}

// Server bundles router, session store, round engine and journal.
type Server struct {
	r            *chi.Mux
	store        store.Store
	engine       *game.Engine
	journal      Journal
	tokens       *tokenIssuer
	cookieSecure bool
	srv          *http.Server
}

// New constructs a Server, installs middleware, and registers routes.
func New(cfg config.Config, st store.Store, eng *game.Engine, j Journal) *Server {
	s := &Server{
		r:            chi.NewRouter(),
		store:        st,
		engine:       eng,
		journal:      j,
		tokens:       newTokenIssuer(cfg.JWTSecret, cfg.SessionTTL),
		cookieSecure: cfg.CookieSecure,
	}
	s.srv = &http.Server{Handler: s.r, ReadHeaderTimeout: 5 * time.Second}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)             // add X-Request-ID
	s.r.Use(chimw.RealIP)                // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(hlog.NewHandler(log.Logger)) // request-scoped logger
	s.r.Use(requestIDLogger)             // tag it with the request ID
	s.r.Use(hlog.AccessHandler(accessLog))
	s.r.Use(chimw.Recoverer)        // recover from panics
	s.r.Use(chimw.Timeout(timeout)) // bound handler time
	s.r.Use(jsonContentType)        // default JSON responses
	s.r.Use(cors(cfg.ClientOrigin)) // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service": "rps-go",
			"endpoints": []string{
				"/health", "POST /game/new", "GET /game/state", "POST /game/play",
				"POST /game/reset", "GET /game/history", "GET /game/tally", "DELETE /game",
			},
		})
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	s.r.Get("/debug/sessions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int{"sessions": s.store.Len()})
	})

	// --- game ---
	s.r.Post("/game/new", s.handleNewGame)
	s.r.Group(func(r chi.Router) {
		r.Use(s.requireSession())
		r.Get("/game/state", s.handleState)
		r.Post("/game/play", s.handlePlay)
		r.Post("/game/reset", s.handleReset)
		r.Get("/game/history", s.handleHistory)
		r.Get("/game/tally", s.handleTally)
		r.Delete("/game", s.handleEnd)
	})

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Start begins serving HTTP on addr and blocks until Shutdown.
func (s *Server) Start(addr string) error {
	s.srv.Addr = addr
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops a server started with Start.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for a single origin.
func cors(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestIDLogger tags the request logger with chi's request ID.
func requestIDLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := chimw.GetReqID(r.Context()); id != "" {
			zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("request_id", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}

func accessLog(r *http.Request, status, size int, d time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", d).
		Msg("request")
}

// ------------------------------ GAME ---------------------------------------

type newGameRes struct {
	SessionID string    `json:"sessionId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	State     stateView `json:"state"`
}

// handleNewGame starts a session, issues its token and sets the session cookie.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Create(r.Context())
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("create session")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	tok, exp, err := s.tokens.sign(sess.ID)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("sign session token")
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return
	}
	s.setSessionCookie(w, tok, exp)
	hlog.FromRequest(r).Debug().Str("session", sess.ID).Msg("session started")
	writeJSON(w, http.StatusOK, newGameRes{SessionID: sess.ID, Token: tok, ExpiresAt: exp, State: newStateView(sess.State)})
}

// handleState returns the current state of the caller's session.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Get(r.Context(), sessionIDFrom(r.Context()))
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newStateView(sess.State))
}

type playReq struct {
	Choice string `json:"choice"`
}

// handlePlay plays one round for the caller's session.
func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req playReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	choice, err := game.ParseChoice(req.Choice)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_choice")
		return
	}

	id := sessionIDFrom(r.Context())
	sess, err := s.store.Update(r.Context(), id, func(cur game.State) (game.State, error) {
		next, err := s.engine.PlayRound(cur, choice)
		if err != nil {
			return cur, err
		}
		if err := s.journal.RecordRound(r.Context(), id, next); err != nil {
			return cur, fmt.Errorf("%w: %w", errJournal, err)
		}
		return next, nil
	})
	if err != nil {
		if errors.Is(err, game.ErrInvalidChoice) {
			writeError(w, http.StatusBadRequest, "invalid_choice")
			return
		}
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newStateView(sess.State))
}

// handleReset replaces the caller's state with a fresh one.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	id := sessionIDFrom(r.Context())
	sess, err := s.store.Update(r.Context(), id, func(cur game.State) (game.State, error) {
		if err := s.journal.RecordReset(r.Context(), id); err != nil {
			return cur, fmt.Errorf("%w: %w", errJournal, err)
		}
		return game.Reset(), nil
	})
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newStateView(sess.State))
}

type historyRes struct {
	Rounds []journal.Entry `json:"rounds"`
}

// handleHistory returns recent rounds, newest first (?limit=n, max 100).
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "invalid_limit")
			return
		}
		limit = n
	}
	rows, err := s.journal.History(r.Context(), sessionIDFrom(r.Context()), limit)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("journal history")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, historyRes{Rounds: rows})
}

type tallyRes struct {
	Choices []journal.ChoiceTally `json:"choices"`
	Resets  int                   `json:"resets"`
}

// handleTally returns outcomes grouped by the player's choice and the reset count.
func (s *Server) handleTally(w http.ResponseWriter, r *http.Request) {
	id := sessionIDFrom(r.Context())
	rows, err := s.journal.Tally(r.Context(), id)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("journal tally")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	resets, err := s.journal.Resets(r.Context(), id)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("journal resets")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, tallyRes{Choices: rows, Resets: resets})
}

// handleEnd drops the caller's session and clears the cookie.
func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), sessionIDFrom(r.Context())); err != nil {
		s.storeError(w, r, err)
		return
	}
	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ------------------------------- helpers -----------------------------------

func (s *Server) storeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session_not_found")
		return
	}
	if errors.Is(err, errJournal) {
		hlog.FromRequest(r).Error().Err(err).Str("session", sessionIDFrom(r.Context())).Msg("journal write")
		writeError(w, http.StatusInternalServerError, "journal_error")
		return
	}
	hlog.FromRequest(r).Error().Err(err).Msg("session store")
	writeError(w, http.StatusInternalServerError, "store_error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
