package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/race-results/internal/research"
	"github.com/jonathan/race-results/internal/scraper"
)

// maxBodyBytes caps request bodies; the largest legitimate body is a batch of order numbers.
const maxBodyBytes = 1 << 20

var validate = validator.New()

// BatchRequest is the body of POST /research/batch.
type BatchRequest struct {
	OrderNumbers []string `json:"order_numbers" validate:"required,min=1,max=200,dive,required"`
}

// BatchItemResponse reports one order of a batch.
type BatchItemResponse struct {
	OrderNumber string           `json:"order_number"`
	Result      *research.Result `json:"result,omitempty"`
	Error       *errorBody       `json:"error,omitempty"`
	Status      int              `json:"status"`
}

// BatchResponse is the body returned by POST /research/batch.
type BatchResponse struct {
	Items     []BatchItemResponse `json:"items"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			s.logger.WithError(err).Warn("health check: database unreachable")
			s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{
				"status":   "unavailable",
				"database": "unreachable",
			})
			return
		}
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListRaces(w http.ResponseWriter, _ *http.Request) {
	races := s.service.SupportedRaces()
	if races == nil {
		races = []string{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"races": races})
}

func (s *Server) handleResearchOrder(w http.ResponseWriter, r *http.Request) {
	orderNumber, ok := s.orderNumber(w, r)
	if !ok {
		return
	}
	result, err := s.service.ResearchOrder(r.Context(), orderNumber)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleResearchBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := decodeBody(r, &req); err != nil {
		s.serviceError(w, r, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		s.serviceError(w, r, validationError(err))
		return
	}

	items := s.service.ResearchBatch(r.Context(), req.OrderNumbers)
	resp := BatchResponse{Items: make([]BatchItemResponse, 0, len(items))}
	for _, item := range items {
		out := BatchItemResponse{OrderNumber: item.OrderNumber, Result: item.Result, Status: http.StatusOK}
		if item.Success() {
			resp.Succeeded++
		} else {
			body := newErrorBody(item.Error)
			out.Error = &body
			out.Status = HTTPStatus(item.Error)
			resp.Failed++
		}
		resp.Items = append(resp.Items, out)
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleAcceptMatch(w http.ResponseWriter, r *http.Request) {
	orderNumber, ok := s.orderNumber(w, r)
	if !ok {
		return
	}
	var candidate scraper.Candidate
	if err := decodeBody(r, &candidate); err != nil {
		s.serviceError(w, r, err)
		return
	}
	result, err := s.service.AcceptMatch(r.Context(), orderNumber, candidate)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleSetOverrides(w http.ResponseWriter, r *http.Request) {
	orderNumber, ok := s.orderNumber(w, r)
	if !ok {
		return
	}
	var update research.OverrideUpdate
	if err := decodeBody(r, &update); err != nil {
		s.serviceError(w, r, err)
		return
	}
	order, err := s.service.SetOverrides(r.Context(), orderNumber, update)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, order)
}

func (s *Server) handleFetchWeather(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.serviceError(w, r, &ErrValidation{Field: "id", Message: "must be a UUID"})
		return
	}
	edition, err := s.service.FetchWeatherForRaceEdition(r.Context(), id)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, edition)
}

func (s *Server) orderNumber(w http.ResponseWriter, r *http.Request) (string, bool) {
	n := strings.TrimSpace(r.PathValue("order_number"))
	if n == "" {
		s.serviceError(w, r, &ErrValidation{Field: "order_number", Message: "is required"})
		return "", false
	}
	return n, true
}

// decodeBody decodes a JSON request body, rejecting unknown fields.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &ErrValidation{Field: "body", Message: "request body is required"}
		}
		return &ErrValidation{Field: "body", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return nil
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ErrValidation{Field: fe.Namespace(), Message: fmt.Sprintf("failed %q rule", fe.Tag())}
	}
	return &ErrValidation{Field: "body", Message: err.Error()}
}
