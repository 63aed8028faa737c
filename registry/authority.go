package registry

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/aalemi-dev/portmeta/metadata"
	"github.com/aalemi-dev/portmeta/tracer"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// AuthorityServer serves a metadata.Manager over HTTP as the central authority.
//
// Routes:
//
//	GET  /version               current published version
//	GET  /types                 every known type
//	GET  /types/{id}            one type, 404 when unknown
//	POST /types/{id}/fields     merge fields, 409 on conflicting definitions
//
// Pushed fields are merged with Manager.Bootstrap, so every accepted push publishes
// a new version and re-pushing known fields is accepted. When a sink is set, every
// accepted push is also written to it before the response; a sink failure answers
// 503 so the client retries.
type AuthorityServer struct {
	manager     *metadata.Manager
	sink        metadata.Updater
	router      chi.Router
	tokenSecret string
	server      *http.Server
	logger      Logger
	tracer      tracer.Tracer
}

// NewAuthorityServer creates an authority serving manager.
func NewAuthorityServer(cfg AuthorityConfig, manager *metadata.Manager) *AuthorityServer {
	if cfg.Address == "" {
		cfg.Address = DefaultAuthorityAddress
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}

	a := &AuthorityServer{
		manager:     manager,
		tokenSecret: cfg.TokenSecret,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.traceContext)
	r.Use(a.authenticate)

	r.Get("/version", a.handleVersion)
	r.Route("/types", func(r chi.Router) {
		r.Get("/", a.handleList)
		r.Get("/{id}", a.handleGet)
		r.Post("/{id}/fields", a.handlePush)
	})
	a.router = r

	a.server = &http.Server{
		Addr:              cfg.Address,
		Handler:           r,
		ReadHeaderTimeout: cfg.ReadTimeout,
		ReadTimeout:       cfg.ReadTimeout,
	}
	return a
}

// WithSink sets the updater that accepted pushes are persisted to.
func (a *AuthorityServer) WithSink(sink metadata.Updater) *AuthorityServer {
	a.sink = sink
	return a
}

// WithLogger attaches a logger to the server.
func (a *AuthorityServer) WithLogger(logger Logger) *AuthorityServer {
	a.logger = logger
	return a
}

// WithTracer makes the server continue traces started by clients.
func (a *AuthorityServer) WithTracer(t tracer.Tracer) *AuthorityServer {
	a.tracer = t
	return a
}

// Handler returns the HTTP handler of the authority.
func (a *AuthorityServer) Handler() http.Handler {
	return a.router
}

// Start listens on the configured address and serves in the background.
// A busy address fails immediately.
func (a *AuthorityServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return err
	}
	if a.logger != nil {
		a.logger.InfoWithContext(ctx, "Starting metadata authority", nil, map[string]interface{}{
			"address": ln.Addr().String(),
		})
	}

	go func() {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) && a.logger != nil {
			a.logger.ErrorWithContext(context.Background(), "Metadata authority failed", err)
		}
	}()
	return nil
}

// Stop gracefully shuts the server down.
func (a *AuthorityServer) Stop(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

func (a *AuthorityServer) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int64{"version": a.manager.GetVersion()})
}

func (a *AuthorityServer) handleList(w http.ResponseWriter, r *http.Request) {
	snapshots := a.manager.Snapshots()

	resp := typesResponse{
		Version: snapshots.Version(),
		Types:   make([]metadata.TypeUpdate, 0, snapshots.Len()),
	}
	for _, id := range snapshots.TypeIDs() {
		s, _ := snapshots.Get(id)
		resp.Types = append(resp.Types, toUpdate(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *AuthorityServer) handleGet(w http.ResponseWriter, r *http.Request) {
	typeID, ok := parseTypeID(w, r)
	if !ok {
		return
	}

	s, found := a.manager.Snapshot(typeID)
	if !found {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: ErrTypeNotFound.Error()})
		return
	}
	writeJSON(w, http.StatusOK, toUpdate(s))
}

func (a *AuthorityServer) handlePush(w http.ResponseWriter, r *http.Request) {
	typeID, ok := parseTypeID(w, r)
	if !ok {
		return
	}

	var req pushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.TypeName == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: metadata.ErrEmptyTypeName.Error()})
		return
	}

	added := len(req.Fields)
	if s, found := a.manager.Snapshot(typeID); found {
		added = 0
		for _, f := range req.Fields {
			if !s.HasFieldID(f.ID) {
				added++
			}
		}
	}

	update := metadata.TypeUpdate{TypeID: typeID, TypeName: req.TypeName, Fields: req.Fields}
	err := a.manager.Bootstrap([]metadata.TypeUpdate{update})
	if err != nil {
		var ce *metadata.ConflictError
		if errors.As(err, &ce) {
			a.logWarn(r.Context(), "Rejected conflicting metadata", err, map[string]interface{}{
				"type_id":    typeID,
				"request_id": middleware.GetReqID(r.Context()),
			})
			resp := errorResponse{Error: err.Error()}
			if ce.IncomingTypeName == "" {
				resp.Existing = &ce.Existing
				resp.Incoming = &ce.Incoming
			}
			writeJSON(w, http.StatusConflict, resp)
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	// The sink is written on every push, not only when fields were added, so a
	// retry after a sink failure still reaches it.
	if a.sink != nil {
		if err := a.sink.Push(r.Context(), map[metadata.TypeID]metadata.TypeUpdate{typeID: update}); err != nil {
			a.logWarn(r.Context(), "Failed to persist accepted metadata", err, map[string]interface{}{
				"type_id":    typeID,
				"request_id": middleware.GetReqID(r.Context()),
			})
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
			return
		}
	}

	writeJSON(w, http.StatusOK, pushResponse{Version: a.manager.GetVersion(), Added: added})
}

// authenticate rejects requests without a valid bearer token when a secret is configured.
func (a *AuthorityServer) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.tokenSecret == "" {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
			return
		}
		if _, err := verifyToken(a.tokenSecret, token); err != nil {
			a.logWarn(r.Context(), "Rejected authority token", err, map[string]interface{}{
				"request_id": middleware.GetReqID(r.Context()),
			})
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid bearer token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// traceContext continues the caller's trace from the request headers.
func (a *AuthorityServer) traceContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.tracer == nil {
			next.ServeHTTP(w, r)
			return
		}

		carrier := make(map[string]string, len(r.Header))
		for k := range r.Header {
			carrier[strings.ToLower(k)] = r.Header.Get(k)
		}
		ctx := a.tracer.SetCarrierOnContext(r.Context(), carrier)
		ctx, span := a.tracer.StartSpan(ctx, "registry.authority "+r.Method)
		defer span.End()

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *AuthorityServer) logWarn(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if a.logger != nil {
		a.logger.WarnWithContext(ctx, msg, err, fields)
	}
}

func parseTypeID(w http.ResponseWriter, r *http.Request) (metadata.TypeID, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid type id"})
		return 0, false
	}
	return metadata.TypeID(id), true
}

func toUpdate(s *metadata.Snapshot) metadata.TypeUpdate {
	return metadata.TypeUpdate{
		TypeID:   s.TypeID(),
		TypeName: s.TypeName(),
		Fields:   s.Fields(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
