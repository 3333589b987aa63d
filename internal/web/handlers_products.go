package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/catalog/internal/catalog"
)

// maxJSONBody caps admin request bodies.
const maxJSONBody = 1 << 20

var errNegativePrice = errors.New("price must not be negative")

// reservedQuery are option query parameters that are not attribute names.
var reservedQuery = map[string]bool{"default": true}

// handleHealth reports whether the store answers.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleGetProduct returns a product with its variants.
func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.service.Product(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleOptions resolves a selection given as query parameters, e.g.
// ?Color=Red&Size=. An empty value leaves that attribute unset. With
// default=true an unresolvable selection falls back to the first variant.
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	sel := catalog.Selection{}
	for name, values := range query {
		if reservedQuery[name] || len(values) == 0 {
			continue
		}
		sel[name] = strings.TrimSpace(values[len(values)-1])
	}

	resolve := s.service.Resolve
	if query.Get("default") == "true" {
		resolve = s.service.ResolveOrDefault
	}
	res, err := resolve(r.Context(), chi.URLParam(r, "slug"), sel)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type selectionRequest struct {
	AttributeID   string `json:"attributeId"`
	AttributeName string `json:"attributeName" validate:"required_without=AttributeID,max=100"`
	ValueID       string `json:"valueId"`
	ValueName     string `json:"valueName" validate:"required_without=ValueID,max=100"`
}

type createVariantRequest struct {
	SKU               string             `json:"sku" validate:"required,max=64"`
	Price             decimal.Decimal    `json:"price"`
	Stock             int                `json:"stock" validate:"gte=0"`
	LowStockThreshold int                `json:"lowStockThreshold" validate:"gte=0"`
	Images            []string           `json:"images" validate:"dive,required"`
	Attributes        []selectionRequest `json:"attributes" validate:"dive"`
}

// handleCreateVariant adds a variant to an existing product.
func (s *Server) handleCreateVariant(w http.ResponseWriter, r *http.Request) {
	var req createVariantRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if req.Price.IsNegative() {
		s.respondError(w, r, badRequest(errNegativePrice))
		return
	}

	v := catalog.Variant{
		SKU:               strings.TrimSpace(req.SKU),
		Price:             req.Price,
		Stock:             req.Stock,
		LowStockThreshold: req.LowStockThreshold,
		Images:            req.Images,
	}
	for _, a := range req.Attributes {
		v.Attributes = append(v.Attributes, catalog.AttributeSelection{
			AttributeID:   a.AttributeID,
			AttributeName: strings.TrimSpace(a.AttributeName),
			ValueID:       a.ValueID,
			ValueName:     strings.TrimSpace(a.ValueName),
		})
	}

	created, err := s.service.CreateVariant(r.Context(), chi.URLParam(r, "slug"), v)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// decode reads a JSON body into v and validates it.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest(err)
	}
	if err := s.validate.Struct(v); err != nil {
		return badRequest(err)
	}
	return nil
}
