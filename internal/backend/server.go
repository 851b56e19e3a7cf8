/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"

	"goslidedeck/internal/export"
	applog "goslidedeck/internal/log"
	"goslidedeck/internal/serial"
	"goslidedeck/internal/version"
)

// Options configures a Server.
type Options struct {
	// Secret signs bearer tokens. Required.
	Secret string
	// DevTokens enables POST /api/auth/token, which hands out tokens to anyone.
	DevTokens bool
	// AllowedOrigins for CORS; empty allows any origin without credentials.
	AllowedOrigins []string
	// MaxListLimit caps GET /api/decks?limit=.
	MaxListLimit int
}

// Server serves the publish API.
type Server struct {
	repo   Repo
	secret string
	opt    Options
	log    *slog.Logger
	now    func() time.Time
	images export.ImageSource
}

// NewServer returns a server over repo.
func NewServer(repo Repo, opt Options) (*Server, error) {
	if strings.TrimSpace(opt.Secret) == "" {
		return nil, errors.New("server secret is required")
	}
	if opt.MaxListLimit <= 0 {
		opt.MaxListLimit = 100
	}
	return &Server{
		repo:   repo,
		secret: opt.Secret,
		opt:    opt,
		log:    applog.WithComponent("backend"),
		now:    time.Now,
		images: inlineImages{export.NewLoader("")},
	}, nil
}

// inlineImages only resolves data: URLs. A server must not fetch arbitrary
// URLs or read local files on behalf of uploaded decks; other images render
// as placeholders.
type inlineImages struct{ l *export.Loader }

func (i inlineImages) Load(ctx context.Context, ref string) (image.Image, error) {
	if !strings.HasPrefix(strings.TrimSpace(ref), "data:") {
		return nil, fmt.Errorf("remote image not served: %.32s", ref)
	}
	return i.l.Load(ctx, ref)
}

func errBody(msg string) map[string]string { return map[string]string{"error": msg} }

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	co := cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}
	if len(s.opt.AllowedOrigins) > 0 {
		co.AllowedOrigins = s.opt.AllowedOrigins
		co.AllowCredentials = true
	}
	r.Use(cors.Handler(co))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.PlainText(w, r, "ok")
	})
	r.Get("/readyz", s.handleReady)
	r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		render.PlainText(w, r, version.String())
	})

	r.Route("/api", func(r chi.Router) {
		if s.opt.DevTokens {
			r.Post("/auth/token", s.handleToken)
		}
		r.Route("/decks", func(r chi.Router) {
			r.Get("/", s.handleList)
			r.With(s.requireAuth).Post("/", s.handlePublish)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGet)
				r.Get("/pdf", s.handlePDF)
			})
		})
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("took", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.repo.Ping(ctx); err != nil {
		render.Status(r, http.StatusServiceUnavailable)
		render.PlainText(w, r, "db not ready")
		return
	}
	render.PlainText(w, r, "ready")
}

type tokenRequest struct {
	Subject    string `json:"subject"`
	TTLSeconds int64  `json:"ttl_seconds"`
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errBody("invalid JSON"))
		return
	}
	if req.Subject == "" {
		req.Subject = "dev"
	}
	if req.TTLSeconds <= 0 || req.TTLSeconds > 24*3600 {
		req.TTLSeconds = 3600
	}
	exp := s.now().Add(time.Duration(req.TTLSeconds) * time.Second)
	tok, err := SignToken(s.secret, req.Subject, exp)
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errBody("sign token"))
		return
	}
	render.JSON(w, r, map[string]any{"token": tok, "expires_at": exp.UTC().Format(time.RFC3339)})
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	doc, err := serial.ReadDocument(r.Body)
	if err != nil {
		var md *serial.MalformedDocument
		if errors.As(err, &md) {
			render.Status(r, http.StatusUnprocessableEntity)
			render.JSON(w, r, errBody(md.Error()))
			return
		}
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errBody("read body"))
		return
	}
	p := doc.Presentation()
	data, err := serial.ExportJSON(p)
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errBody("encode deck"))
		return
	}
	pub, err := s.repo.Create(r.Context(), Publication{Title: p.Title, Slides: len(p.Slides), Owner: Subject(r.Context()), Data: data})
	if err != nil {
		s.log.Error("create publication", slog.Any("err", err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errBody("store deck"))
		return
	}
	s.log.Info("deck published", slog.String("id", pub.ID), slog.String("owner", pub.Owner), slog.Int("slides", pub.Slides))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, pub)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := s.opt.MaxListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, errBody("invalid limit"))
			return
		}
		limit = min(n, s.opt.MaxListLimit)
	}
	list, err := s.repo.List(r.Context(), limit)
	if err != nil {
		s.log.Error("list publications", slog.Any("err", err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errBody("list decks"))
		return
	}
	if list == nil {
		list = []Publication{}
	}
	render.JSON(w, r, list)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (Publication, bool) {
	pub, err := s.repo.Get(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, ErrNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, errBody("deck not found"))
		return Publication{}, false
	case err != nil:
		s.log.Error("get publication", slog.Any("err", err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errBody("load deck"))
		return Publication{}, false
	}
	return pub, true
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	pub, ok := s.lookup(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write(pub.Data)
}

func (s *Server) handlePDF(w http.ResponseWriter, r *http.Request) {
	pub, ok := s.lookup(w, r)
	if !ok {
		return
	}
	doc, err := serial.ImportJSON(pub.Data)
	if err != nil {
		s.log.Error("stored deck no longer imports", slog.String("id", pub.ID), slog.Any("err", err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errBody("stored deck is unreadable"))
		return
	}
	var buf bytes.Buffer
	if err := export.ExportPDF(r.Context(), doc.Presentation(), &buf, export.PDFOptions{Images: s.images}); err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errBody("render pdf"))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s.pdf"`, pub.ID))
	_, _ = w.Write(buf.Bytes())
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("server listening", slog.String("addr", addr))
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	}
}
