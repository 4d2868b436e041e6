// Package server serves the production report over HTTP: upload a workbook,
// pick a sheet and a relationship, read the rendered report.
package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cast"

	"github.com/KaramelBytes/dairyreport/internal/analysis"
	"github.com/KaramelBytes/dairyreport/internal/config"
	"github.com/KaramelBytes/dairyreport/internal/report"
	"github.com/KaramelBytes/dairyreport/internal/workbook"
)

const sessionCookie = "dairyreport_session"

//go:embed templates/*.html
var templateFS embed.FS

// Server is the report web application.
type Server struct {
	cfg       *config.Global
	opt       report.Options
	log       *slog.Logger
	sessions  *SessionStore
	metrics   *Metrics
	page      *template.Template
	renderers []SectionRenderer
	sweeper   *cron.Cron
	router    chi.Router
}

// New builds a server from cfg. A nil logger uses slog.Default.
func New(cfg *config.Global, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tpl, err := template.New("page.html").Funcs(template.FuncMap{
		"band": formatBand,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s := &Server{
		cfg:       cfg,
		opt:       report.OptionsFromConfig(cfg),
		log:       logger,
		sessions:  NewSessionStore(time.Duration(cfg.SessionTTLMinutes) * time.Minute),
		metrics:   NewMetrics(),
		page:      tpl,
		renderers: defaultRenderers(tpl),
		sweeper:   cron.New(),
	}
	if _, err := s.sweeper.AddFunc("@every 1m", s.sweep); err != nil {
		return nil, fmt.Errorf("schedule session sweep: %w", err)
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleIndex)
	r.Post("/upload", s.handleUpload)
	r.Post("/reset", s.handleReset)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	return r
}

// Handler returns the HTTP handler of the application.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.sweeper.Start()
	defer s.sweeper.Stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) sweep() {
	if n := s.sessions.Sweep(); n > 0 {
		s.log.Info("expired sessions", "count", n)
	}
	s.metrics.sessions.Set(float64(s.sessions.Len()))
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

type pageData struct {
	Session       *Session
	Sheets        []string
	Sheet         string
	Derived       bool
	Relationships []string
	Relationship  string
	ErrorTitle    string
	Error         string
	Sections      []Section
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(r)
	if !ok {
		s.writePage(w, http.StatusOK, pageData{})
		return
	}
	q := r.URL.Query()
	req := report.Request{
		Name:         sess.FileName,
		Workbook:     sess.Data,
		Sheet:        q.Get("sheet"),
		Relationship: q.Get("relationship"),
	}
	opt := s.opt
	if rows := cast.ToInt(q.Get("rows")); rows > 0 {
		opt.PreviewRows = rows
	}

	data := pageData{Session: &sess, Relationships: report.RelationshipNames()}
	start := time.Now()
	rep, err := report.Build(req, opt)
	if rep != nil {
		data.Sheets = rep.Sheets
		data.Sheet = rep.Sheet
		data.Derived = rep.Sheet == opt.DataSheet
	}
	if err != nil {
		if rep != nil {
			// keep the preview visible so another sheet can be chosen
			secs, perr := previewRenderer{s.page}.Render(rep)
			if perr != nil {
				s.log.Error("render preview", "error", perr)
			}
			data.Sections = secs
		}
		s.fail(w, r, err, data)
		return
	}
	data.Sections, err = renderSections(rep, s.renderers)
	if err != nil {
		s.fail(w, r, err, data)
		return
	}
	elapsed := time.Since(start)

	kind := "other"
	if rep.Derived {
		kind = "data"
	}
	s.metrics.renders.WithLabelValues(kind).Inc()
	s.metrics.renderTime.Observe(elapsed.Seconds())
	s.log.Info("rendered report",
		"file", rep.Name,
		"sheet", rep.Sheet,
		"rows", rep.Rows,
		"derived", rep.Derived,
		"duration", elapsed,
	)

	if rep.Relationship != nil {
		data.Relationship = rep.Relationship.Name
	}
	s.writePage(w, http.StatusOK, data)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := int64(s.cfg.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.failUpload(w, r, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d MB", s.cfg.MaxUploadMB))
			return
		}
		s.failUpload(w, r, http.StatusBadRequest, fmt.Errorf("malformed upload: %w", err))
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		s.failUpload(w, r, http.StatusBadRequest, errors.New("file is required"))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		s.failUpload(w, r, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
		return
	}
	name := filepath.Base(hdr.Filename)
	if !strings.EqualFold(filepath.Ext(name), ".xlsx") {
		s.failUpload(w, r, http.StatusBadRequest, fmt.Errorf("%s: %w: expected an .xlsx file", name, workbook.ErrInvalidWorkbook))
		return
	}
	wb, err := workbook.Open(bytes.NewReader(data), name)
	if err != nil {
		s.failUpload(w, r, http.StatusBadRequest, err)
		return
	}
	_ = wb.Close()

	id, ok := sessionID(r)
	if !ok {
		id = uuid.New()
	}
	s.sessions.Put(id, name, data)
	s.metrics.uploadBytes.Observe(float64(len(data)))
	s.metrics.sessions.Set(float64(s.sessions.Len()))
	s.log.Info("workbook uploaded", "file", name, "bytes", len(data), "session", id.String())

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id.String(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if id, ok := sessionID(r); ok {
		s.sessions.Delete(id)
		s.metrics.sessions.Set(float64(s.sessions.Len()))
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type healthResponse struct {
	Status    string    `json:"status"`
	Sessions  int       `json:"sessions"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, healthResponse{Status: "ok", Sessions: s.sessions.Len(), Timestamp: time.Now()})
}

func (s *Server) session(r *http.Request) (Session, bool) {
	id, ok := sessionID(r)
	if !ok {
		return Session{}, false
	}
	return s.sessions.Get(id)
}

func sessionID(r *http.Request) (uuid.UUID, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return uuid.UUID{}, false
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return uuid.UUID{}, false
	}
	return id, true
}

// fail renders the page with the error of a report run.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, data pageData) {
	kind := report.Kind(err)
	s.metrics.failures.WithLabelValues(string(kind)).Inc()
	s.log.Warn("report failed", "kind", kind, "error", err, "request_id", middleware.GetReqID(r.Context()))

	status := statusFor(err)
	data.ErrorTitle = errorTitle(kind)
	data.Error = err.Error()
	var nf *workbook.SheetNotFoundError
	if errors.As(err, &nf) {
		data.Sheets = nf.Available
	}
	s.writePage(w, status, data)
}

func (s *Server) failUpload(w http.ResponseWriter, r *http.Request, status int, err error) {
	kind := report.KindLoad
	if status == http.StatusRequestEntityTooLarge {
		kind = report.KindInput
	}
	s.metrics.failures.WithLabelValues(string(kind)).Inc()
	s.log.Warn("upload rejected", "error", err, "request_id", middleware.GetReqID(r.Context()))
	data := pageData{ErrorTitle: "Could not read the upload", Error: err.Error()}
	if sess, ok := s.session(r); ok {
		data.Session = &sess
	}
	s.writePage(w, status, data)
}

func (s *Server) writePage(w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := s.page.ExecuteTemplate(&buf, "page.html", data); err != nil {
		s.log.Error("render page", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func statusFor(err error) int {
	var nf *workbook.SheetNotFoundError
	switch report.Kind(err) {
	case report.KindLoad:
		return http.StatusBadRequest
	case report.KindSchema:
		return http.StatusUnprocessableEntity
	case report.KindInput:
		if errors.As(err, &nf) {
			return http.StatusNotFound
		}
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errorTitle(kind report.ErrorKind) string {
	switch kind {
	case report.KindLoad:
		return "Could not read the workbook"
	case report.KindSchema:
		return "The data sheet does not match the expected layout"
	case report.KindInput:
		return "Invalid selection"
	default:
		return "Something went wrong"
	}
}

func formatBand(b analysis.Band) string {
	if !b.Defined() {
		return "undefined (fewer than two values)"
	}
	return fmt.Sprintf("%.4g to %.4g (mean %.4g, %.2gσ)", b.Lower, b.Upper, b.Mean, b.Width)
}
