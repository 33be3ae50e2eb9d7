package post

import (
	"github.com/die-net/relaypost/internal/audit"
	"github.com/die-net/relaypost/internal/model"
	"github.com/die-net/relaypost/internal/probe"
)

// State is a step of the attempt state machine.
type State int

const (
	Init State = iota
	ProxyValidated
	TransportReady
	MediaUploading
	Posting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case ProxyValidated:
		return "proxy_validated"
	case TransportReady:
		return "transport_ready"
	case MediaUploading:
		return "media_uploading"
	case Posting:
		return "posting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Success is a published post.
type Success struct {
	PostID        string
	PostURL       string
	ResponseAudit map[string]any
}

// Failure is a classified failed attempt. ProxyDiagnostic is set whenever a
// probe result explains or enriches the failure.
type Failure struct {
	Message         string
	Class           model.ErrorClass
	ProxyDiagnostic *probe.Result
	FailedIn        State
	ResponseAudit   map[string]any
}

// Outcome is the result of Run. Exactly one of Success and Failure is set.
type Outcome struct {
	AttemptID    string
	RequestAudit audit.Record
	Success      *Success
	Failure      *Failure
}

// OK reports whether the attempt succeeded.
func (o Outcome) OK() bool {
	return o.Success != nil
}

// Class returns the failure class, or ClassNone on success.
func (o Outcome) Class() model.ErrorClass {
	if o.Failure == nil {
		return model.ClassNone
	}
	return o.Failure.Class
}
