package api

import (
	"github.com/die-net/relaypost/internal/audit"
	"github.com/die-net/relaypost/internal/probe"
)

// SuccessResponse is returned with 201 Created.
type SuccessResponse struct {
	Status        string         `json:"status"`
	TweetURL      string         `json:"tweet_url"`
	TweetID       string         `json:"tweet_id"`
	RequestAudit  audit.Record   `json:"request_audit"`
	ResponseAudit map[string]any `json:"response_audit"`
}

// ErrorResponse is returned for every non-2xx answer. Received is the
// redacted echo of a rejected request body.
type ErrorResponse struct {
	Status          string         `json:"status"`
	Message         string         `json:"message"`
	ErrorClass      string         `json:"error_class,omitempty"`
	RequestAudit    *audit.Record  `json:"request_audit,omitempty"`
	ResponseAudit   map[string]any `json:"response_audit,omitempty"`
	ProxyDiagnostic *probe.Result  `json:"proxy_diagnostic,omitempty"`
	Received        map[string]any `json:"received,omitempty"`
}

// AuditResponse lists persisted attempts, newest first.
type AuditResponse struct {
	Entries []audit.Entry `json:"entries"`
}

type docEndpoint struct {
	Path        string `json:"path"`
	Method      string `json:"method"`
	Description string `json:"description"`
	RequestBody any    `json:"request_body,omitempty"`
	Response    any    `json:"response,omitempty"`
}

type docs struct {
	Name        string        `json:"name"`
	Version     string        `json:"version"`
	Description string        `json:"description"`
	Endpoints   []docEndpoint `json:"endpoints"`
}

const (
	statusSuccess = "success"
	statusError   = "error"
)
