// Package mcp implements the stdio MCP server that fronts the facade's
// five HTTP operations (spec.md §6). Grounded on the donor's
// internal/mcp/server.go JSON-RPC-over-stdio loop, retargeted at the new
// /recall, /store, /forget, /checkpoint, /prune HTTP surface.
package mcp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const protocolVersion = "2024-11-05"

// Server implements an MCP stdio server that delegates to the HTTP memory server.
type Server struct {
	serverURL string
	apiKey    string
	client    *http.Client
}

func NewServer(serverURL, apiKey string) *Server {
	return &Server{
		serverURL: strings.TrimRight(serverURL, "/"),
		apiKey:    apiKey,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Run starts the stdio event loop. Blocks until stdin is closed.
func (s *Server) Run() error {
	scanner := bufio.NewScanner(os.Stdin)
	buf := make([]byte, 0, 1024*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeError(nil, -32700, "parse error: "+err.Error())
			continue
		}

		resp := s.handleRequest(&req)
		if resp != nil {
			s.writeResponse(resp)
		}
	}

	return scanner.Err()
}

func (s *Server) handleRequest(req *Request) *Response {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "initialized":
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
	case "ping":
		return &Response{JSONRPC: "2.0", ID: req.ID, Result: map[string]string{}}
	default:
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &RPCError{Code: -32601, Message: "method not found: " + req.Method},
		}
	}
}

func (s *Server) handleInitialize(req *Request) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: InitializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities:    ServerCapabilities{Tools: &ToolCapabilities{}},
			ServerInfo:      ServerInfo{Name: "total-reclaw-memory", Version: "1.0.0"},
		},
	}
}

func (s *Server) handleToolsList(req *Request) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  ToolsListResult{Tools: ToolDefinitions()},
	}
}

func (s *Server) handleToolsCall(req *Request) *Response {
	paramsBytes, err := json.Marshal(req.Params)
	if err != nil {
		return s.errorResponse(req.ID, -32602, "invalid params")
	}

	var params CallToolParams
	if err := json.Unmarshal(paramsBytes, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "invalid params: "+err.Error())
	}

	result, isError := s.dispatchTool(params.Name, params.Arguments)

	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: CallToolResult{
			Content: []ContentBlock{{Type: "text", Text: result}},
			IsError: isError,
		},
	}
}

func (s *Server) dispatchTool(name string, args map[string]interface{}) (string, bool) {
	switch name {
	case "memory_recall":
		return s.httpPost("/recall", map[string]interface{}{
			"query":  args["query"],
			"limit":  getFloat(args, "limit", 5),
			"entity": args["entity"],
		})
	case "memory_store":
		return s.httpPost("/store", map[string]interface{}{
			"text":       args["text"],
			"importance": getFloat(args, "importance", 0.7),
			"category":   args["category"],
			"entity":     args["entity"],
			"key":        args["key"],
			"value":      args["value"],
			"decayClass": args["decayClass"],
		})
	case "memory_forget":
		return s.httpPost("/forget", map[string]interface{}{
			"memoryId": args["memoryId"],
			"query":    args["query"],
		})
	case "memory_checkpoint":
		action, _ := args["action"].(string)
		if action == "restore" {
			return s.httpGet("/checkpoint")
		}
		return s.httpPost("/checkpoint", map[string]interface{}{
			"intent":          args["intent"],
			"state":           args["state"],
			"expectedOutcome": args["expectedOutcome"],
			"workingFiles":    args["workingFiles"],
		})
	case "memory_prune":
		return s.httpPost("/prune", map[string]interface{}{
			"mode": getStringDefault(args, "mode", "both"),
		})
	default:
		return fmt.Sprintf("unknown tool: %s", name), true
	}
}

// --- HTTP helpers ---

func (s *Server) httpPost(path string, body interface{}) (string, bool) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Sprintf("marshal error: %s", err), true
	}
	req, err := http.NewRequest(http.MethodPost, s.serverURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Sprintf("request error: %s", err), true
	}
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}

func (s *Server) httpGet(path string) (string, bool) {
	req, err := http.NewRequest(http.MethodGet, s.serverURL+path, nil)
	if err != nil {
		return fmt.Sprintf("request error: %s", err), true
	}
	return s.do(req)
}

func (s *Server) do(req *http.Request) (string, bool) {
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Sprintf("HTTP error: %s", err), true
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Sprintf("read error: %s", err), true
	}

	if resp.StatusCode >= 400 {
		return string(respBody), true
	}
	return string(respBody), false
}

// --- Response helpers ---

func (s *Server) writeResponse(resp *Response) {
	data, _ := json.Marshal(resp)
	fmt.Fprintf(os.Stdout, "%s\n", data)
}

func (s *Server) writeError(id interface{}, code int, message string) {
	s.writeResponse(&Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message}})
}

func (s *Server) errorResponse(id interface{}, code int, message string) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message}}
}

// --- Argument helpers ---

func getFloat(args map[string]interface{}, key string, fallback float64) float64 {
	if v, ok := args[key]; ok {
		switch val := v.(type) {
		case float64:
			return val
		case int:
			return float64(val)
		}
	}
	return fallback
}

func getStringDefault(args map[string]interface{}, key, fallback string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
