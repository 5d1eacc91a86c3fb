// Package rpc serves the JSON-RPC and websocket surface of subswapd.
// Requests arrive as {"method": ..., "params": {...}}; amounts travel as
// decimal strings and accounts as hex. The RPC layer is a thin shell: it
// decodes, calls the engine, and names failures with the core taxonomy.
package rpc

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/TopCodeBeast/subswap/internal/core/engine"
	"github.com/TopCodeBeast/subswap/internal/core/swaperr"
	"github.com/TopCodeBeast/subswap/internal/storage/history"
)

// Server handles HTTP JSON-RPC requests.
type Server struct {
	engine  *engine.Engine
	history *history.Index
	hub     *Hub
	log     *zap.Logger

	// now supplies the block time stamped on submitted requests. The
	// standalone daemon uses wall-clock seconds; an embedded deployment
	// injects its consensus clock.
	now func() uint64

	methods map[string]handler
}

type handler func(r *http.Request, params json.RawMessage) (any, error)

// Option configures a Server.
type Option func(*Server)

// WithHistory attaches the event index for history queries.
func WithHistory(ix *history.Index) Option {
	return func(s *Server) { s.history = ix }
}

// WithClock overrides the block-time source.
func WithClock(now func() uint64) Option {
	return func(s *Server) { s.now = now }
}

// NewServer returns a server over the engine.
func NewServer(eng *engine.Engine, log *zap.Logger, opts ...Option) *Server {
	s := &Server{
		engine: eng,
		hub:    NewHub(log),
		log:    log,
		now:    func() uint64 { return uint64(time.Now().Unix()) },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerMethods()
	return s
}

// Hub returns the websocket hub events should be published to.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the full HTTP handler: JSON-RPC at / and the websocket
// stream at /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", s)
	mux.HandleFunc("/ws", s.hub.serveWS)
	return mux
}

type rpcRequest struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
	ErrMsg string `json:"error_message,omitempty"`
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, "invalid_request", "failed to read request body")
		return
	}
	defer r.Body.Close()

	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, "invalid_json", err.Error())
		return
	}

	h, ok := s.methods[req.Method]
	if !ok {
		s.writeError(w, "unknown_method", "no such method: "+req.Method)
		return
	}

	result, err := h(r, req.Params)
	if err != nil {
		s.log.Debug("rpc method failed",
			zap.String("method", req.Method),
			zap.String("error", err.Error()))
		s.writeError(w, errorName(err), err.Error())
		return
	}
	s.writeJSON(w, rpcResponse{Result: result})
}

// errorName maps an error to its wire name. Core taxonomy errors keep
// their taxonomy name; anything else is reported as internal.
func errorName(err error) string {
	var malformed *paramError
	if errors.As(err, &malformed) {
		return "invalid_params"
	}
	if swaperr.IsCoreError(err) {
		return swaperr.Name(err)
	}
	return "internal"
}

func (s *Server) writeError(w http.ResponseWriter, name, msg string) {
	s.writeJSON(w, rpcResponse{Error: name, ErrMsg: msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, resp rpcResponse) {
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Warn("write rpc response", zap.Error(err))
	}
}

// paramError marks request decoding failures.
type paramError struct {
	msg string
}

func (e *paramError) Error() string { return e.msg }

func badParams(msg string) error {
	return &paramError{msg: msg}
}
