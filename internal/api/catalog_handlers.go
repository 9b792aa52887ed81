package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AI-Template-SDK/visibility-workflows/services"
)

func (s *Server) handleListBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := s.catalog.ListBrands(r.Context())
	if err != nil {
		s.logger.Error("Error fetching brands", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch brands")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"brands": brands})
}

func (s *Server) handleCreateBrand(w http.ResponseWriter, r *http.Request) {
	var in services.BrandInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	brand, err := s.catalog.CreateBrand(r.Context(), in)
	switch {
	case errors.Is(err, services.ErrBrandNameRequired):
		s.writeError(w, http.StatusBadRequest, "Brand name is required")
	case err != nil:
		s.logger.Error("Error creating brand", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to create brand")
	default:
		s.writeJSON(w, http.StatusCreated, map[string]interface{}{"brand": brand})
	}
}

func (s *Server) handleGetBrand(w http.ResponseWriter, r *http.Request) {
	brand, err := s.catalog.GetBrand(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, services.ErrBrandNotFound):
		s.writeError(w, http.StatusNotFound, "Brand not found")
	case err != nil:
		s.logger.Error("Error fetching brand details", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch brand details")
	default:
		s.writeJSON(w, http.StatusOK, map[string]interface{}{"brand": brand})
	}
}

func (s *Server) handleUpdateBrand(w http.ResponseWriter, r *http.Request) {
	var in services.BrandInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	brand, err := s.catalog.UpdateBrand(r.Context(), chi.URLParam(r, "id"), in)
	switch {
	case errors.Is(err, services.ErrBrandNotFound):
		s.writeError(w, http.StatusNotFound, "Brand not found")
	case err != nil:
		s.logger.Error("Error updating brand", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to update brand")
	default:
		s.writeJSON(w, http.StatusOK, map[string]interface{}{"brand": brand})
	}
}

func (s *Server) handleDeleteBrand(w http.ResponseWriter, r *http.Request) {
	err := s.catalog.DeleteBrand(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, services.ErrBrandNotFound):
		s.writeError(w, http.StatusNotFound, "Brand not found")
	case err != nil:
		s.logger.Error("Error deleting brand", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to delete brand")
	default:
		s.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}

func (s *Server) handleListQueries(w http.ResponseWriter, r *http.Request) {
	queries, err := s.catalog.ListQueries(r.Context())
	if err != nil {
		s.logger.Error("Error fetching queries", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch queries")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"queries": queries})
}

func (s *Server) handleCreateQuery(w http.ResponseWriter, r *http.Request) {
	var in services.QueryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	query, err := s.catalog.CreateQuery(r.Context(), in)
	switch {
	case errors.Is(err, services.ErrQueryTextRequired):
		s.writeError(w, http.StatusBadRequest, "Query text is required")
	case err != nil:
		s.logger.Error("Error creating query", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to create query")
	default:
		s.writeJSON(w, http.StatusCreated, map[string]interface{}{"query": query})
	}
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.catalog.ListTemplates(r.Context())
	if err != nil {
		s.logger.Error("Error fetching query templates", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch query templates")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"templates": templates})
}

func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	scans, err := s.catalog.ListScans(r.Context())
	if err != nil {
		s.logger.Error("Error fetching scans", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch scans")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"scans": scans})
}

func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	detail, err := s.catalog.GetScan(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, services.ErrScanNotFound):
		s.writeError(w, http.StatusNotFound, "Scan not found")
	case err != nil:
		s.logger.Error("Error fetching scan details", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch scan details")
	default:
		s.writeJSON(w, http.StatusOK, detail)
	}
}
