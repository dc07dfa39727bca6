package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/campushq/regulations-assistant/internal/core/ports"
	"github.com/campushq/regulations-assistant/internal/observability/metrics"
)

const serviceName = "api"

// Router exposes the catalog, session and chat surface over plain net/http.
type Router struct {
	uploader ports.RegulationUploader
	sessions ports.SessionService
	chat     ports.ChatService
	catalog  ports.CatalogRepository
	metrics  *metrics.HTTPServerMetrics
}

func NewRouter(
	uploader ports.RegulationUploader,
	sessions ports.SessionService,
	chat ports.ChatService,
	catalog ports.CatalogRepository,
	m *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		uploader: uploader,
		sessions: sessions,
		chat:     chat,
		catalog:  catalog,
		metrics:  m,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)

	mux.HandleFunc("GET /v1/catalog/faculties", rt.listFaculties)
	mux.HandleFunc("GET /v1/catalog/faculties/{faculty}/programs", rt.listPrograms)
	mux.HandleFunc("GET /v1/catalog/faculties/{faculty}/programs/{program}/courses", rt.listCourses)

	mux.HandleFunc("POST /v1/sessions", rt.startSession)
	mux.HandleFunc("GET /v1/sessions/{id}", rt.getSession)
	mux.HandleFunc("POST /v1/sessions/{id}/restart", rt.restartSession)
	mux.HandleFunc("POST /v1/sessions/{id}/chat", rt.chatTurn)

	mux.HandleFunc("POST /v1/documents", rt.uploadRegulation)

	var handler http.Handler = mux
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return observeRequests(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) listFaculties(w http.ResponseWriter, r *http.Request) {
	faculties, err := rt.catalog.ListFaculties(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"faculties": emptyIfNil(faculties)})
}

func (rt *Router) listPrograms(w http.ResponseWriter, r *http.Request) {
	programs, err := rt.catalog.ListProgramTypes(r.Context(), r.PathValue("faculty"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"programs": emptyIfNil(programs)})
}

func (rt *Router) listCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := rt.catalog.ListCourses(r.Context(), r.PathValue("faculty"), r.PathValue("program"))
	if err != nil {
		writeError(w, err)
		return
	}

	type courseEntry struct {
		Course string `json:"course"`
		Status string `json:"status"`
	}
	out := make([]courseEntry, 0, len(courses))
	for _, doc := range courses {
		out = append(out, courseEntry{Course: doc.Course, Status: string(doc.Status)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"courses": out})
}

type selectionRequest struct {
	Faculty     string `json:"faculty"`
	ProgramType string `json:"program_type"`
	Course      string `json:"course"`
}

func (rt *Router) startSession(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	session, err := rt.sessions.Start(r.Context(), req.Faculty, req.ProgramType, req.Course)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordSessionEvent(serviceName, "started")
	}
	writeJSON(w, http.StatusCreated, session)
}

func (rt *Router) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := rt.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (rt *Router) restartSession(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	session, err := rt.sessions.Restart(r.Context(), r.PathValue("id"), req.Faculty, req.ProgramType, req.Course)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordSessionEvent(serviceName, "restarted")
	}
	writeJSON(w, http.StatusOK, session)
}

func (rt *Router) chatTurn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	session, err := rt.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	answer, err := rt.chat.Answer(r.Context(), session, req.Question)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		kind := "simple"
		if answer.Composite {
			kind = "composite"
		}
		rt.metrics.RecordAnswer(serviceName, kind, len(answer.Sources), time.Since(start))
	}
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) uploadRegulation(w http.ResponseWriter, r *http.Request) {
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.uploader.Upload(
		r.Context(),
		r.FormValue("faculty"),
		r.FormValue("program_type"),
		r.FormValue("course"),
		fileHeader.Filename,
		file,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
