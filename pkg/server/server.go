// Package server exposes the validation service over JSON-RPC 2.0 with
// newline-delimited messages on a byte stream, typically stdin/stdout
// for subprocess embedding.
//
//	{"jsonrpc":"2.0","id":1,"method":"discover_rulesets","params":{}}
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/judepayne/validlib/pkg/batch"
	"github.com/judepayne/validlib/pkg/entity"
	"github.com/judepayne/validlib/pkg/schemaver"
	"github.com/judepayne/validlib/pkg/service"
)

// JSON-RPC error codes.
const (
	CodeParse          = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32000
	CodeValidation     = -32001
)

const maxLineBytes = 64 << 20

// Error is a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a JSON-RPC response object.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Server reads newline-delimited JSON-RPC requests and writes one
// response line per request.
type Server struct {
	svc    *service.Service
	in     io.Reader
	out    io.Writer
	logger *slog.Logger

	writeMu sync.Mutex
}

// New builds a server over stdin/stdout.
func New(svc *service.Service, logger *slog.Logger) *Server {
	return NewWithIO(svc, os.Stdin, os.Stdout, logger)
}

// NewWithIO builds a server over explicit streams.
func NewWithIO(svc *service.Service, in io.Reader, out io.Writer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{svc: svc, in: in, out: out, logger: logger}
}

// Serve processes requests until the input stream closes or ctx is
// canceled.
func (s *Server) Serve(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		resp := s.Handle(ctx, line)
		if err := s.write(resp); err != nil {
			return fmt.Errorf("server: write response: %w", err)
		}
	}
	return scanner.Err()
}

func (s *Server) write(resp Response) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err = s.out.Write(append(payload, '\n'))
	return err
}

// Handle processes one raw request line and returns the response.
func (s *Server) Handle(ctx context.Context, line []byte) Response {
	var req request
	if err := json.Unmarshal(line, &req); err != nil {
		return errorResponse(nil, CodeParse, fmt.Sprintf("Parse error: %v", err))
	}
	if req.JSONRPC != "2.0" {
		return errorResponse(req.ID, CodeInvalidRequest,
			fmt.Sprintf("Invalid JSON-RPC version: %q", req.JSONRPC))
	}
	if req.Method == "" {
		return errorResponse(req.ID, CodeInvalidRequest, "Missing 'method' field")
	}

	s.logger.Debug("dispatching request", "method", req.Method)
	result, rpcErr := s.dispatch(ctx, req.Method, req.Params)
	if rpcErr != nil {
		return Response{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}
	}
	return Response{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func (s *Server) dispatch(ctx context.Context, method string, params json.RawMessage) (any, *Error) {
	switch method {
	case "validate":
		return s.handleValidate(ctx, params)
	case "discover_rules":
		return s.handleDiscoverRules(params)
	case "discover_rulesets":
		return s.svc.DiscoverRulesets(), nil
	case "batch_validate":
		return s.handleBatchValidate(ctx, params)
	case "batch_file_validate":
		return s.handleBatchFileValidate(ctx, params)
	case "reload_logic":
		return s.handleReload()
	case "get_cache_age":
		return map[string]any{"cache_age": s.svc.CacheAge().Seconds()}, nil
	default:
		return nil, &Error{Code: CodeMethodNotFound, Message: fmt.Sprintf("Method not found: %s", method)}
	}
}

type validateParams struct {
	EntityType  string      `json:"entity_type"`
	EntityData  entity.Data `json:"entity_data"`
	RulesetName string      `json:"ruleset_name"`
}

func (p *validateParams) check() *Error {
	switch {
	case p.EntityType == "":
		return missingParam("entity_type")
	case p.EntityData == nil:
		return missingParam("entity_data")
	case p.RulesetName == "":
		return missingParam("ruleset_name")
	}
	return nil
}

func (s *Server) handleValidate(ctx context.Context, raw json.RawMessage) (any, *Error) {
	var p validateParams
	if rpcErr := decodeParams(raw, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := p.check(); rpcErr != nil {
		return nil, rpcErr
	}
	results, err := s.svc.Validate(ctx, p.EntityType, p.EntityData, p.RulesetName)
	if err != nil {
		return nil, toError(err)
	}
	return results, nil
}

func (s *Server) handleDiscoverRules(raw json.RawMessage) (any, *Error) {
	var p validateParams
	if rpcErr := decodeParams(raw, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if rpcErr := p.check(); rpcErr != nil {
		return nil, rpcErr
	}
	infos, err := s.svc.DiscoverRules(p.EntityType, p.EntityData, p.RulesetName)
	if err != nil {
		return nil, toError(err)
	}
	return infos, nil
}

type batchParams struct {
	Entities    []entity.Data `json:"entities"`
	IDFields    []string      `json:"id_fields"`
	RulesetName string        `json:"ruleset_name"`
}

func (s *Server) handleBatchValidate(ctx context.Context, raw json.RawMessage) (any, *Error) {
	var p batchParams
	if rpcErr := decodeParams(raw, &p); rpcErr != nil {
		return nil, rpcErr
	}
	switch {
	case len(p.Entities) == 0:
		return nil, missingParam("entities")
	case len(p.IDFields) == 0:
		return nil, missingParam("id_fields")
	case p.RulesetName == "":
		return nil, missingParam("ruleset_name")
	}
	results, err := s.svc.ValidateBatch(ctx, p.Entities, p.IDFields, p.RulesetName)
	if err != nil {
		return nil, toError(err)
	}
	return results, nil
}

type batchFileParams struct {
	FileURI     string   `json:"file_uri"`
	EntityTypes []string `json:"entity_types"`
	IDFields    []string `json:"id_fields"`
	RulesetName string   `json:"ruleset_name"`
}

func (s *Server) handleBatchFileValidate(ctx context.Context, raw json.RawMessage) (any, *Error) {
	var p batchFileParams
	if rpcErr := decodeParams(raw, &p); rpcErr != nil {
		return nil, rpcErr
	}
	switch {
	case p.FileURI == "":
		return nil, missingParam("file_uri")
	case len(p.IDFields) == 0:
		return nil, missingParam("id_fields")
	case p.RulesetName == "":
		return nil, missingParam("ruleset_name")
	}
	results, err := s.svc.ValidateBatchFile(ctx, p.FileURI, p.IDFields, p.RulesetName)
	if err != nil {
		return nil, toError(err)
	}
	return results, nil
}

func (s *Server) handleReload() (any, *Error) {
	if err := s.svc.Reload(); err != nil {
		return nil, toError(err)
	}
	return map[string]any{"status": "ok", "message": "Logic reloaded successfully"}, nil
}

func decodeParams(raw json.RawMessage, dst any) *Error {
	if len(raw) == 0 {
		return &Error{Code: CodeInvalidParams, Message: "Params must be an object"}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("Invalid params: %v", err)}
	}
	return nil
}

func missingParam(name string) *Error {
	return &Error{Code: CodeInvalidParams, Message: "Missing required parameter: " + name}
}

// toError classifies service errors: routing and entity identification
// problems are validation errors, everything else is internal.
func toError(err error) *Error {
	var resolution *schemaver.ResolutionError
	if errors.As(err, &resolution) || errors.Is(err, batch.ErrEntityType) {
		return &Error{Code: CodeValidation, Message: err.Error()}
	}
	return &Error{Code: CodeInternal, Message: fmt.Sprintf("Internal error: %v", err)}
}

func errorResponse(id json.RawMessage, code int, message string) Response {
	return Response{JSONRPC: "2.0", ID: id, Error: &Error{Code: code, Message: message}}
}
