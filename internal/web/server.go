package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/conorfennell/dutchdrill/internal/content"
	"github.com/conorfennell/dutchdrill/internal/domain"
	"github.com/conorfennell/dutchdrill/internal/session"
	"github.com/conorfennell/dutchdrill/internal/storage"
	"github.com/conorfennell/dutchdrill/internal/sync"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	sessions       *session.Manager
	db             *storage.DB
	reposDir       string
	defaultLearner string
	reload         func() (*content.Library, error)
	router         *echo.Echo
}

type Options struct {
	// DB enables the source management routes when set.
	DB             *storage.DB
	ReposDir       string
	DefaultLearner string
	// Reload rebuilds the library after sources change so that new sessions
	// see synced decks. Nil leaves the library alone.
	Reload         func() (*content.Library, error)
}

// NewServer creates and configures a new server.
func NewServer(sessions *session.Manager, opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{validate: validator.New()}
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Debug("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	s := &Server{
		sessions:       sessions,
		db:             opts.DB,
		reposDir:       opts.ReposDir,
		defaultLearner: opts.DefaultLearner,
		reload:         opts.Reload,
		router:         e,
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	if err := s.router.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the listener and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.router.Shutdown(ctx)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.GET("/healthz", s.handleHealth())

	api := s.router.Group("/api")
	api.GET("/kinds", s.handleKinds())

	api.POST("/sessions", s.handleOpenSession())
	api.DELETE("/sessions/:id", s.handleCloseSession())

	api.GET("/sessions/:id/final-test", s.handleFinalTestOverview())
	api.POST("/sessions/:id/final-test/review", s.handleStartReview())
	api.DELETE("/sessions/:id/final-test/review", s.handleExitReview())
	api.PUT("/sessions/:id/final-test/category", s.handleSwitchCategory())

	api.GET("/sessions/:id/:kind/card", s.handleCard())
	api.POST("/sessions/:id/:kind/answer", s.handleAnswer())
	api.GET("/sessions/:id/:kind/progress", s.handleProgress())

	// Source management routes
	if s.db != nil {
		api.GET("/sources", s.handleGetSources())
		api.POST("/sources", s.handlePostSource())
		api.DELETE("/sources/:id", s.handleDeleteSource())
		api.POST("/sync", s.handlePostSync())
	}
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

func httpError(status int, msg string) error {
	return echo.NewHTTPError(status, msg)
}

// sessionError maps session errors to status codes.
func sessionError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return httpError(http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrUnknownKind), errors.Is(err, session.ErrUnknownCategory):
		return httpError(http.StatusBadRequest, err.Error())
	default:
		slog.Error("session request failed", "path", c.Path(), "error", err)
		return httpError(http.StatusInternalServerError, "internal server error")
	}
}

// bind decodes and validates the request body into v.
func bind(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		return httpError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(v); err != nil {
		return httpError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func (s *Server) handleHealth() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":   "ok",
			"sessions": s.sessions.Len(),
		})
	}
}

func (s *Server) handleKinds() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, domain.Kinds)
	}
}

type openSessionRequest struct {
	Learner string `json:"learner" validate:"omitempty,max=64"`
}

type openSessionResponse struct {
	ID      string `json:"id"`
	Learner string `json:"learner"`
}

// handleOpenSession starts a session for the learner in the body.
func (s *Server) handleOpenSession() echo.HandlerFunc {
	return func(c echo.Context) error {
		var req openSessionRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		if req.Learner == "" {
			req.Learner = s.defaultLearner
		}
		sess, err := s.sessions.Open(c.Request().Context(), req.Learner)
		if err != nil {
			return sessionError(c, err)
		}
		return c.JSON(http.StatusCreated, openSessionResponse{ID: sess.ID, Learner: sess.Learner})
	}
}

func (s *Server) handleCloseSession() echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := s.sessions.Close(c.Request().Context(), c.Param("id")); err != nil {
			return sessionError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

type cardResponse struct {
	Card     *session.Card `json:"card,omitempty"`
	Done     bool          `json:"done"`
	Progress interface{}   `json:"progress"`
}

// handleCard returns the current question of a drill.
func (s *Server) handleCard() echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := s.sessions.Get(c.Param("id"))
		if err != nil {
			return sessionError(c, err)
		}
		card, ok, err := sess.Card(domain.Kind(c.Param("kind")))
		if err != nil {
			return sessionError(c, err)
		}
		if !ok {
			return c.JSON(http.StatusOK, cardResponse{Done: true, Progress: card.Progress})
		}
		return c.JSON(http.StatusOK, cardResponse{Card: &card, Progress: card.Progress})
	}
}

type answerRequest struct {
	ItemID   string `json:"item_id" validate:"required"`
	Response string `json:"response"`
	// Correct records a verdict directly instead of checking Response.
	Correct *bool `json:"correct"`
}

// handleAnswer submits an answer for the current question.
func (s *Server) handleAnswer() echo.HandlerFunc {
	return func(c echo.Context) error {
		var req answerRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		sess, err := s.sessions.Get(c.Param("id"))
		if err != nil {
			return sessionError(c, err)
		}

		kind := domain.Kind(c.Param("kind"))
		var res session.Result
		if req.Correct != nil {
			res, err = sess.Record(kind, req.ItemID, *req.Correct)
		} else {
			res, err = sess.Submit(kind, req.ItemID, req.Response)
		}
		if err != nil {
			return sessionError(c, err)
		}
		if !res.Accepted {
			return c.JSON(http.StatusConflict, res)
		}
		return c.JSON(http.StatusOK, res)
	}
}

func (s *Server) handleProgress() echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := s.sessions.Get(c.Param("id"))
		if err != nil {
			return sessionError(c, err)
		}
		progress, err := sess.Progress(domain.Kind(c.Param("kind")))
		if err != nil {
			return sessionError(c, err)
		}
		return c.JSON(http.StatusOK, progress)
	}
}

func (s *Server) handleFinalTestOverview() echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := s.sessions.Get(c.Param("id"))
		if err != nil {
			return sessionError(c, err)
		}
		return c.JSON(http.StatusOK, sess.Overview())
	}
}

// handleStartReview enters review mode; 409 when nothing is left to review.
func (s *Server) handleStartReview() echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := s.sessions.Get(c.Param("id"))
		if err != nil {
			return sessionError(c, err)
		}
		if !sess.StartReview() {
			return httpError(http.StatusConflict, "no incorrect items to review")
		}
		return c.JSON(http.StatusOK, sess.Overview())
	}
}

func (s *Server) handleExitReview() echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := s.sessions.Get(c.Param("id"))
		if err != nil {
			return sessionError(c, err)
		}
		sess.ExitReview()
		return c.JSON(http.StatusOK, sess.Overview())
	}
}

type switchCategoryRequest struct {
	Category string `json:"category"`
}

func (s *Server) handleSwitchCategory() echo.HandlerFunc {
	return func(c echo.Context) error {
		var req switchCategoryRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		sess, err := s.sessions.Get(c.Param("id"))
		if err != nil {
			return sessionError(c, err)
		}
		if err := sess.SwitchCategory(req.Category); err != nil {
			return sessionError(c, err)
		}
		return c.JSON(http.StatusOK, sess.Overview())
	}
}

// handleGetSources lists the configured deck sources.
func (s *Server) handleGetSources() echo.HandlerFunc {
	return func(c echo.Context) error {
		sources, err := s.db.GetAllSources()
		if err != nil {
			slog.Error("Error getting sources", "error", err)
			return httpError(http.StatusInternalServerError, "internal server error")
		}
		if sources == nil {
			sources = []storage.Source{}
		}
		return c.JSON(http.StatusOK, sources)
	}
}

type addSourceRequest struct {
	Path string `json:"path" validate:"required"`
}

// handlePostSource adds a new source and returns the updated list.
func (s *Server) handlePostSource() echo.HandlerFunc {
	return func(c echo.Context) error {
		var req addSourceRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		if _, err := sync.AddSource(s.db, req.Path); err != nil {
			slog.Warn("Error adding source", "path", req.Path, "error", err)
			return httpError(http.StatusBadRequest, err.Error())
		}
		return s.handleGetSources()(c)
	}
}

// handleDeleteSource deletes a source and returns the updated list.
func (s *Server) handleDeleteSource() echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			return httpError(http.StatusBadRequest, "invalid source ID")
		}
		if err := s.db.DeleteSource(id); err != nil {
			slog.Error("Error deleting source", "id", id, "error", err)
			return httpError(http.StatusInternalServerError, "failed to delete source")
		}
		if err := s.reloadLibrary(); err != nil {
			return err
		}
		return s.handleGetSources()(c)
	}
}

// handlePostSync triggers a sync and reports what changed. It runs in the
// foreground so the caller waits for the result.
func (s *Server) handlePostSync() echo.HandlerFunc {
	return func(c echo.Context) error {
		reports, err := sync.RunSync(c.Request().Context(), s.db, s.reposDir, nil)
		if err != nil {
			slog.Error("Error running sync", "error", err)
			return httpError(http.StatusInternalServerError, "sync failed")
		}
		if err := s.reloadLibrary(); err != nil {
			return err
		}
		out := make([]map[string]interface{}, 0, len(reports))
		for _, r := range reports {
			out = append(out, map[string]interface{}{
				"source_id": r.SourceID,
				"parsed":    r.Parsed,
				"inserted":  r.Inserted,
				"updated":   r.Updated,
				"orphaned":  r.Orphaned,
				"errors":    len(r.Errors),
			})
		}
		return c.JSON(http.StatusOK, out)
	}
}

// reloadLibrary swaps in freshly loaded content for sessions opened later.
func (s *Server) reloadLibrary() error {
	if s.reload == nil {
		return nil
	}
	lib, err := s.reload()
	if err != nil {
		slog.Error("Error reloading content", "error", err)
		return httpError(http.StatusInternalServerError, "failed to reload content")
	}
	s.sessions.SetLibrary(lib)
	return nil
}
