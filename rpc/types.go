// Package rpc exposes ledger state via a JSON-RPC 2.0 HTTP endpoint.
package rpc

import (
	"encoding/json"

	"github.com/tolelom/purgeledger/core"
)

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a JSON-RPC 2.0 response envelope.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// Error represents a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Standard JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeUnauthorized   = -32000
)

// Ledger error codes, one per core.ErrorClass.
const (
	CodePrecondition = -32001
	CodeCapacity     = -32002
	CodeSettlement   = -32003
	CodeNotFound     = -32004
)

// codeFor maps err onto the JSON-RPC code of its error class.
func codeFor(err error) int {
	switch core.Classify(err) {
	case core.ClassAuthorization:
		return CodeUnauthorized
	case core.ClassPrecondition:
		return CodePrecondition
	case core.ClassCapacity:
		return CodeCapacity
	case core.ClassSettlement:
		return CodeSettlement
	case core.ClassNotFound:
		return CodeNotFound
	default:
		return CodeInternalError
	}
}

func errResponse(id any, code int, msg string) Response {
	return Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &Error{Code: code, Message: msg},
	}
}

func okResponse(id, result any) Response {
	return Response{JSONRPC: "2.0", ID: id, Result: result}
}
