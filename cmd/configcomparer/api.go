package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/configcomparer/compare"
	"github.com/BaSui01/configcomparer/internal/ctxkeys"
	"github.com/BaSui01/configcomparer/internal/skiplist"
)

// =============================================================================
// 🌐 HTTP API
// =============================================================================

const maxBodyBytes = 1 << 20

// api 比对、连接测试与忽略列表维护接口。
// current 每次请求取最新的组件，配置重载后立即生效。
type api struct {
	current func() *engine
	skips   skiplist.Store
	logger  *zap.Logger
}

// compareRequest POST /api/compare 的可选请求体
type compareRequest struct {
	Hide       []string `json:"hide"`
	Invert     bool     `json:"invert"`
	Identifier string   `json:"identifier"`
	Search     string   `json:"search"`
}

// skipRequest 忽略列表的一项
type skipRequest struct {
	Identifier string `json:"identifier"`
	Namespace  string `json:"namespace"`
	Key        string `json:"key"`
}

func (r skipRequest) key() (compare.CompositeKey, error) {
	if r.Identifier == "" || r.Namespace == "" || r.Key == "" {
		return compare.CompositeKey{}, errors.New("identifier, namespace and key are required")
	}
	return compare.CompositeKey{Identifier: r.Identifier, Namespace: r.Namespace, Key: r.Key}, nil
}

type errorResponse struct {
	Error        string          `json:"error"`
	Environments map[string]bool `json:"environments,omitempty"`
}

func (a *api) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.handleHealth)
	mux.HandleFunc("GET /version", a.handleVersion)
	mux.HandleFunc("POST /api/compare", a.handleCompare)
	mux.HandleFunc("POST /api/compare/shared", a.handleShared)
	mux.HandleFunc("GET /api/connections", a.handleConnections)
	mux.HandleFunc("GET /api/skip", a.handleListSkip)
	mux.HandleFunc("POST /api/skip", a.handleAddSkip)
	mux.HandleFunc("DELETE /api/skip", a.handleRemoveSkip)
	return mux
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) handleVersion(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"version":    Version,
		"build_time": BuildTime,
		"git_commit": GitCommit,
	})
}

func (a *api) handleCompare(w http.ResponseWriter, r *http.Request) {
	run, filter, ok := a.runFiltered(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, newRunView(run, filter))
}

func (a *api) handleShared(w http.ResponseWriter, r *http.Request) {
	run, filter, ok := a.runFiltered(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, newSharedView(run, filter))
}

// runFiltered 解析过滤条件并执行一次比对，失败时已写出错误响应
func (a *api) runFiltered(w http.ResponseWriter, r *http.Request) (*compare.Run, compare.Filter, bool) {
	var req compareRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return nil, compare.Filter{}, false
	}
	hide := make([]string, 0, len(req.Hide))
	for _, h := range req.Hide {
		parsed, err := compare.ParseCategories(h)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return nil, compare.Filter{}, false
		}
		hide = append(hide, parsed...)
	}

	run, err := a.current().service.Run(r.Context())
	if err != nil {
		a.logger.Error("comparison failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return nil, compare.Filter{}, false
	}
	if !run.Usable() {
		respondJSON(w, http.StatusBadGateway, errorResponse{
			Error:        compare.ErrNoUsableResult.Error(),
			Environments: run.Environments,
		})
		return nil, compare.Filter{}, false
	}

	return run, compare.Filter{
		Hide:       hide,
		Invert:     req.Invert,
		Identifier: req.Identifier,
		Search:     req.Search,
	}, true
}

func (a *api) handleConnections(w http.ResponseWriter, r *http.Request) {
	eng := a.current()
	respondJSON(w, http.StatusOK, eng.prober.Probe(r.Context(), eng.cfg.Environments.Map()))
}

func (a *api) handleListSkip(w http.ResponseWriter, r *http.Request) {
	keys, err := a.skips.Load(r.Context())
	if err != nil {
		a.logger.Error("load skip list failed", zap.Error(err))
		writeJSONError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	out := make([]skipRequest, 0, len(keys))
	for _, k := range keys {
		out = append(out, skipRequest{Identifier: k.Identifier, Namespace: k.Namespace, Key: k.Key})
	}
	respondJSON(w, http.StatusOK, out)
}

func (a *api) handleAddSkip(w http.ResponseWriter, r *http.Request) {
	a.updateSkip(w, r, a.skips.Add)
}

func (a *api) handleRemoveSkip(w http.ResponseWriter, r *http.Request) {
	a.updateSkip(w, r, a.skips.Remove)
}

func (a *api) updateSkip(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, keys ...compare.CompositeKey) error) {
	var req skipRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	key, err := req.key()
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := apply(r.Context(), key); err != nil {
		a.logger.Error("update skip list failed", zap.String("key", key.String()), zap.Error(err))
		writeJSONError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	a.logger.Info("skip list updated",
		append([]zap.Field{zap.String("method", r.Method), zap.String("key", key.String())}, ctxkeys.LogFields(r.Context())...)...,
	)
	w.WriteHeader(http.StatusNoContent)
}

// decodeBody 解析 JSON 请求体，optional 为 true 时允许空请求体
func decodeBody(r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) && optional {
			return nil
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}
