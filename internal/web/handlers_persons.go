package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/persons/internal/core"
)

type dataResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
}

type listResponse struct {
	Success    bool                `json:"success"`
	Data       []core.StoredPerson `json:"data"`
	Pagination pagination          `json:"pagination"`
}

// handleListPersons returns one page of persons.
// Query: page (default 1), limit (default and max 10).
func (s *Server) handleListPersons(w http.ResponseWriter, r *http.Request) {
	page := parseIntParam(r, "page", 1)
	limit := parseIntParam(r, "limit", core.DefaultPageLimit)

	res, err := s.service.List(r.Context(), page, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, listResponse{
		Success: true,
		Data:    res.Items,
		Pagination: pagination{
			Total: res.Total,
			Page:  res.Page,
			Limit: res.Limit,
			Pages: res.Pages,
		},
	})
}

// handleGetPerson returns one person.
func (s *Server) handleGetPerson(w http.ResponseWriter, r *http.Request) {
	p, err := s.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, dataResponse{Success: true, Data: p})
}

// handleCreatePerson validates a JSON person and stores it under a new ID.
func (s *Server) handleCreatePerson(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeFields(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	p, err := s.service.Create(r.Context(), fields)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/persons/"+p.ID)
	writeJSONStatus(w, http.StatusCreated, messageResponse{
		Success: true,
		Message: "Person created successfully",
		Data:    p,
	})
}

// handleUpdatePerson merges the JSON body into an existing person.
func (s *Server) handleUpdatePerson(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeFields(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.service.Update(r.Context(), chi.URLParam(r, "id"), fields); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, messageResponse{Success: true, Message: "Person updated successfully"})
}

// handleDeletePerson removes one person.
func (s *Server) handleDeletePerson(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, messageResponse{Success: true, Message: "Person deleted successfully"})
}

type healthResponse struct {
	Success bool               `json:"success"`
	Status  string             `json:"status"`
	Imports core.LimiterStatus `json:"imports"`
}

// handleHealth reports whether the store answers within two seconds.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.service.Ping(ctx); err != nil {
		writeJSONStatus(w, http.StatusServiceUnavailable, healthResponse{
			Status:  "unavailable",
			Imports: s.service.LimiterStatus(),
		})
		return
	}
	writeJSON(w, healthResponse{Success: true, Status: "ok", Imports: s.service.LimiterStatus()})
}
