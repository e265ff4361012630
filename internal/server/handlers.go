package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/KaramelBytes/tallyloom/internal/analysis"
	"github.com/KaramelBytes/tallyloom/internal/classify"
	"github.com/KaramelBytes/tallyloom/internal/export"
	"github.com/KaramelBytes/tallyloom/internal/format"
	"github.com/KaramelBytes/tallyloom/internal/logging"
	"github.com/KaramelBytes/tallyloom/internal/parser"
	"github.com/KaramelBytes/tallyloom/internal/pipeline"
	"github.com/KaramelBytes/tallyloom/internal/record"
	"github.com/KaramelBytes/tallyloom/internal/session"
)

type parseRequest struct {
	Data     string `json:"data"`
	Format   string `json:"format" validate:"omitempty,oneof=json csv tsv text txt tab free-text freetext"`
	Strict   bool   `json:"strict"`
	Fallback string `json:"fallback" validate:"omitempty,oneof=none off lines line always"`
	Name     string `json:"name" validate:"omitempty,max=100"`
	Save     *bool  `json:"save"`
}

type analyticsRequest struct {
	Data      string `json:"data"`
	Format    string `json:"format" validate:"omitempty,oneof=json csv tsv text txt tab free-text freetext"`
	Strict    bool   `json:"strict"`
	SessionID string `json:"session_id" validate:"omitempty,uuid"`
}

type insightsRequest struct {
	SessionID        string `json:"session_id" validate:"omitempty,uuid"`
	Kind             string `json:"type" validate:"omitempty,oneof=financeiro organizacional financial organizational"`
	Analysis         string `json:"analysis" validate:"required,oneof=trend histogram top compare"`
	ValueKey         string `json:"value_key" validate:"omitempty,max=200"`
	DateKey          string `json:"date_key" validate:"omitempty,max=200"`
	CategoryKey      string `json:"category_key" validate:"omitempty,max=200"`
	Bins             int    `json:"bins" validate:"omitempty,min=1,max=1000"`
	Limit            int    `json:"limit" validate:"omitempty,min=1"`
	CompareSessionID string `json:"compare_session_id" validate:"required_if=Analysis compare,omitempty,uuid"`
}

type exportRequest struct {
	SessionID string `json:"session_id" validate:"omitempty,uuid"`
	Type      string `json:"type" validate:"omitempty,oneof=financeiro organizacional financial organizational"`
	Format    string `json:"format" validate:"omitempty,oneof=csv tsv json xlsx"`
}

// decode reads a JSON body into v and validates it. An empty body is an
// error unless optional is set.
func (s *Server) decode(r *http.Request, v any, optional bool) error {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		var mbe *http.MaxBytesError
		switch {
		case errors.As(err, &mbe):
			return ErrPayloadTooLarge.WithDetails(map[string]int64{"max_size": mbe.Limit})
		case errors.Is(err, io.EOF) && optional:
			// no body
		case errors.Is(err, io.EOF):
			return ErrInvalidRequest.WithDetails("empty body")
		default:
			return ErrInvalidRequest.WithDetails(err.Error())
		}
	}
	if err := s.validate.Struct(v); err != nil {
		return validationError(err)
	}
	return nil
}

// parseInput runs the engine and maps strict-mode failures to 422.
func (s *Server) parseInput(r *http.Request, data, tagName, fallback string, strict bool) (*pipeline.Result, error) {
	opt := pipeline.Options{Strict: strict}
	if tagName != "" {
		tag, err := format.ParseTag(tagName)
		if err != nil {
			return nil, ErrValidationFailed.WithDetails(err.Error())
		}
		opt.Format = &tag
	}
	if fallback != "" {
		fb, err := parser.ParseFallback(fallback)
		if err != nil {
			return nil, ErrValidationFailed.WithDetails(err.Error())
		}
		opt.Fallback = fb
	}

	start := time.Now()
	res, err := s.engine.ParseAndClassify(data, opt)
	s.metrics.parseDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		tag := format.Detect(data)
		if opt.Format != nil {
			tag = *opt.Format
		}
		s.metrics.parses.WithLabelValues(tag.String(), "invalid").Inc()
		if errors.Is(err, parser.ErrInvalidInput) {
			return nil, ErrInvalidInput.WithDetails(err.Error())
		}
		return nil, err
	}
	s.metrics.parses.WithLabelValues(res.Format.String(), "ok").Inc()
	s.metrics.records.WithLabelValues(classify.Financial.Label()).Add(float64(len(res.Financial)))
	s.metrics.records.WithLabelValues(classify.Organizational.Label()).Add(float64(len(res.Organizational)))
	logging.WithFields(r.Context(),
		"format", res.Format.String(),
		"financeiro", len(res.Financial),
		"organizacional", len(res.Organizational),
	).Info("parsed input")
	return res, nil
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := s.decode(r, &req, false); err != nil {
		respondError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Data) == "" {
		respondError(w, r, ErrNoData)
		return
	}
	res, err := s.parseInput(r, req.Data, req.Format, req.Fallback, req.Strict)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.setCurrent(res)

	sessionID := ""
	if save := s.opts.SaveSessions; (req.Save == nil && save) || (req.Save != nil && *req.Save) {
		sess := session.New(req.Name, res)
		if err := s.store.Save(r.Context(), sess); err != nil {
			respondError(w, r, fmt.Errorf("save session: %w", err))
			return
		}
		sessionID = sess.ID
	}

	render.JSON(w, r, map[string]any{
		"success": true,
		"message": "Dados processados com sucesso",
		"data": map[string]record.Sequence{
			"financeiro":     res.Financial,
			"organizacional": res.Organizational,
		},
		"count": map[string]int{
			"financeiro":     len(res.Financial),
			"organizacional": len(res.Organizational),
		},
		"format":     res.Format,
		"session_id": sessionID,
	})
}

// source resolves the data an analytics request works on: inline data, a
// stored session, or the last parsed input.
func (s *Server) source(r *http.Request, req analyticsRequest) (*pipeline.Result, error) {
	switch {
	case strings.TrimSpace(req.Data) != "":
		return s.parseInput(r, req.Data, req.Format, "", req.Strict)
	case req.SessionID != "":
		sess, err := s.loadSession(r, req.SessionID)
		if err != nil {
			return nil, err
		}
		return sess.Result(), nil
	default:
		return s.getCurrent(), nil
	}
}

func (s *Server) loadSession(r *http.Request, id string) (*session.Session, error) {
	sess, err := s.store.Load(r.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		return nil, ErrNotFound.WithDetails("session " + id)
	}
	return sess, err
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	kind, err := classify.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		respondError(w, r, ErrInvalidType.WithDetails(err.Error()))
		return
	}
	var req analyticsRequest
	if r.Method == http.MethodGet {
		req.SessionID = r.URL.Query().Get("session")
		if err := s.validate.Struct(req); err != nil {
			respondError(w, r, validationError(err))
			return
		}
	} else if err := s.decode(r, &req, true); err != nil {
		respondError(w, r, err)
		return
	}

	res, err := s.source(r, req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	sum := s.engine.Summarize(bucket(res, kind), kind)
	if sum.Numeric != nil && r.URL.Query().Get("round") != "false" {
		rounded := sum.Numeric.Rounded()
		sum.Numeric = &rounded
	}
	render.JSON(w, r, map[string]any{
		"success":  true,
		"type":     kind.Label(),
		"analysis": sum,
	})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	var req insightsRequest
	if err := s.decode(r, &req, false); err != nil {
		respondError(w, r, err)
		return
	}
	kind := classify.Financial
	if req.Kind != "" {
		kind, _ = classify.ParseKind(req.Kind)
	}
	res, err := s.source(r, analyticsRequest{SessionID: req.SessionID})
	if err != nil {
		respondError(w, r, err)
		return
	}
	seq := bucket(res, kind)
	valueKey := req.ValueKey
	if valueKey == "" {
		valueKey = analysis.DefaultAmountFields[0]
	}

	var out any
	switch req.Analysis {
	case "trend":
		out = analysis.Trend(seq, valueKey, req.DateKey)
	case "histogram":
		out = analysis.Histogram(seq, valueKey, req.Bins)
	case "top":
		limit := req.Limit
		if limit == 0 {
			limit = 10
		}
		out = analysis.TopByCategory(seq, valueKey, req.CategoryKey, limit)
	case "compare":
		other, err := s.loadSession(r, req.CompareSessionID)
		if err != nil {
			respondError(w, r, err)
			return
		}
		out = analysis.Compare(seq, other.Bucket(kind), valueKey)
	}
	render.JSON(w, r, map[string]any{
		"success":  true,
		"type":     kind.Label(),
		"analysis": req.Analysis,
		"result":   out,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := s.decode(r, &req, true); err != nil {
		respondError(w, r, err)
		return
	}
	kind := classify.Financial
	if req.Type != "" {
		kind, _ = classify.ParseKind(req.Type)
	}
	ef, err := export.ParseFormat(req.Format)
	if err != nil {
		respondError(w, r, ErrValidationFailed.WithDetails(err.Error()))
		return
	}
	res, err := s.source(r, analyticsRequest{SessionID: req.SessionID})
	if err != nil {
		respondError(w, r, err)
		return
	}
	seq := bucket(res, kind)
	if len(seq) == 0 {
		respondError(w, r, NewAPIError(http.StatusBadRequest, "NO_DATA", "Nenhum dado para exportar"))
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, seq, ef); err != nil {
		respondError(w, r, fmt.Errorf("export: %w", err))
		return
	}
	filename := fmt.Sprintf("export_%s_%s%s", kind.Label(), time.Now().Format("20060102_150405"), ef.Ext())
	w.Header().Set("Content-Type", ef.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
	logging.FromContext(r.Context()).Info("exported data", "file", filename, "records", len(seq))
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.setCurrent(emptyResult())
	if r.URL.Query().Get("sessions") == "true" {
		if err := s.store.Clear(r.Context()); err != nil {
			respondError(w, r, fmt.Errorf("clear sessions: %w", err))
			return
		}
	}
	render.JSON(w, r, map[string]any{
		"success": true,
		"message": "Dados limpos com sucesso",
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	metas, err := s.store.List(r.Context())
	if err != nil {
		respondError(w, r, fmt.Errorf("list sessions: %w", err))
		return
	}
	render.JSON(w, r, map[string]any{"success": true, "sessions": metas})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.loadSession(r, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{"success": true, "session": sess})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			err = ErrNotFound.WithDetails("session " + id)
		}
		respondError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{"success": true, "message": "Sessão removida"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	cur := s.getCurrent()
	render.JSON(w, r, map[string]any{
		"status": "healthy",
		"data_loaded": map[string]int{
			"financeiro":     len(cur.Financial),
			"organizacional": len(cur.Organizational),
		},
	})
}

func bucket(res *pipeline.Result, k classify.Kind) record.Sequence {
	seq := res.Financial
	if k == classify.Organizational {
		seq = res.Organizational
	}
	if seq == nil {
		return record.Sequence{}
	}
	return seq
}
