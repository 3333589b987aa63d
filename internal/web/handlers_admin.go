package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type createAttributeRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type createAttributeValueRequest struct {
	Value string `json:"value" validate:"required,max=100"`
}

type createCategoryRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// handleCreateAttribute adds an attribute. Names are unique ignoring case.
func (s *Server) handleCreateAttribute(w http.ResponseWriter, r *http.Request) {
	var req createAttributeRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	a, err := s.service.CreateAttribute(r.Context(), req.Name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// handleCreateAttributeValue adds a value to the attribute in the path.
func (s *Server) handleCreateAttributeValue(w http.ResponseWriter, r *http.Request) {
	var req createAttributeValueRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	v, err := s.service.CreateAttributeValue(r.Context(), chi.URLParam(r, "id"), req.Value)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// handleCreateCategory adds a category with a unique slug.
func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	c, err := s.service.CreateCategory(r.Context(), req.Name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}
