package post

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/die-net/relaypost/internal/audit"
	"github.com/die-net/relaypost/internal/egress"
	"github.com/die-net/relaypost/internal/metrics"
	"github.com/die-net/relaypost/internal/model"
	"github.com/die-net/relaypost/internal/platform"
	"github.com/die-net/relaypost/internal/probe"
	"github.com/die-net/relaypost/internal/proxyspec"
)

// Prober checks proxy connectivity. See probe.Prober.
type Prober interface {
	Probe(ctx context.Context, spec proxyspec.Spec, targetHost string, targetPort uint16, timeout time.Duration) probe.Result
}

// TransportBuilder builds the per-attempt HTTP client. See egress.Factory.
type TransportBuilder interface {
	Build(spec proxyspec.Spec, pr probe.Result) (*egress.Transport, error)
}

// Publisher performs the platform calls. See platform.Client.
type Publisher interface {
	UploadMedia(ctx context.Context, hc *http.Client, creds model.Credentials, image []byte) (string, error)
	CreatePost(ctx context.Context, hc *http.Client, creds model.Credentials, text string, mediaIDs []string) (string, error)
}

// Recorder persists finished attempts. See audit.Store.
type Recorder interface {
	Save(ctx context.Context, e audit.Entry) error
}

// Options configure an Orchestrator.
type Options struct {
	// Domain is used in canonical post URLs.
	Domain string
	// APIHost and APIPort are the probe target.
	APIHost      string
	APIPort      uint16
	ProbeTimeout time.Duration
	// Recorder is optional.
	Recorder Recorder
	Verbose  bool
}

// Orchestrator runs posting attempts. It is safe for concurrent use; no
// attempt state is shared between calls to Run.
type Orchestrator struct {
	prober    Prober
	transport TransportBuilder
	publisher Publisher
	opts      Options
}

// New returns an Orchestrator.
func New(prober Prober, transport TransportBuilder, publisher Publisher, opts Options) *Orchestrator {
	if opts.Domain == "" {
		opts.Domain = "twitter.com"
	}
	if opts.APIHost == "" {
		opts.APIHost = "api.twitter.com"
	}
	if opts.APIPort == 0 {
		opts.APIPort = 443
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = probe.DefaultTimeout
	}
	return &Orchestrator{prober: prober, transport: transport, publisher: publisher, opts: opts}
}

// PostURL is the canonical URL of post id.
func (o *Orchestrator) PostURL(id string) string {
	return fmt.Sprintf("https://%s/user/status/%s", o.opts.Domain, id)
}

// Run processes one attempt. It never returns an unclassified error: every
// failure becomes a Failure outcome.
func (o *Orchestrator) Run(ctx context.Context, a model.Attempt) Outcome {
	start := time.Now()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	r := &run{o: o, a: a, secrets: audit.Secrets(a)}
	out := r.execute(ctx)
	out.AttemptID = a.ID
	out.RequestAudit = audit.BuildRequest(a)

	metrics.ObserveAttempt(start, out.OK(), out.Class().String())
	if o.opts.Verbose {
		log.Printf("post: attempt=%s ok=%t class=%s duration=%s", a.ID, out.OK(), out.Class(), time.Since(start).Round(time.Millisecond))
	}
	o.record(ctx, out)

	return out
}

func (o *Orchestrator) record(ctx context.Context, out Outcome) {
	if o.opts.Recorder == nil {
		return
	}
	e := audit.Entry{
		AttemptID:  out.AttemptID,
		CreatedAt:  time.Now(),
		OK:         out.OK(),
		ErrorClass: out.Class().String(),
		Request:    out.RequestAudit,
	}
	if out.Success != nil {
		e.Response = out.Success.ResponseAudit
	} else {
		e.Response = out.Failure.ResponseAudit
	}
	if err := o.opts.Recorder.Save(context.WithoutCancel(ctx), e); err != nil {
		log.Printf("post: audit store: %v", err)
	}
}

// run holds the state of one attempt.
type run struct {
	o       *Orchestrator
	a       model.Attempt
	secrets []string
	state   State
	spec    proxyspec.Spec
}

func (r *run) enter(s State) {
	r.state = s
	if r.o.opts.Verbose {
		log.Printf("post: attempt=%s state=%s proxy=%s has_auth=%t", r.a.ID, s, r.spec, r.spec.HasAuth())
	}
}

func (r *run) execute(ctx context.Context) Outcome {
	r.enter(Init)

	spec, err := proxyspec.Parse(r.a.Proxy)
	if err != nil {
		return r.fail(model.ClassParse, err.Error(), err.Error(), nil)
	}
	r.spec = spec

	pr := probe.Result{OK: true}
	if !spec.IsNone() {
		pr = r.probe(ctx)
		if !pr.OK {
			return r.fail(pr.Class, pr.Message, pr.Message, &pr)
		}
	}
	r.enter(ProxyValidated)

	tr, err := r.o.transport.Build(spec, pr)
	if err != nil {
		class := model.ClassUnknown
		var be *egress.BuildError
		if errors.As(err, &be) {
			class = be.Class
		}
		return r.fail(class, err.Error(), err.Error(), nil)
	}
	defer tr.Close()
	r.enter(TransportReady)

	var mediaIDs []string
	if r.a.HasImage() {
		r.enter(MediaUploading)
		if !spec.IsNone() {
			if pr := r.probe(ctx); !pr.OK {
				return r.fail(pr.Class, pr.Message, pr.Message, &pr)
			}
		}

		id, err := r.o.publisher.UploadMedia(ctx, tr.Client, r.a.Credentials, r.a.Image)
		if err != nil {
			msg := "failed to upload image: " + err.Error()
			return r.fail(model.ClassMediaUpload, msg, msg, nil)
		}
		mediaIDs = []string{id}
	}

	r.enter(Posting)
	id, err := r.o.publisher.CreatePost(ctx, tr.Client, r.a.Credentials, r.a.Text, mediaIDs)
	if err != nil {
		return r.postFailed(ctx, err)
	}

	r.enter(Succeeded)
	return Outcome{Success: &Success{
		PostID:        id,
		PostURL:       r.o.PostURL(id),
		ResponseAudit: audit.BuildResponse(id, mediaIDs),
	}}
}

// postFailed classifies a create-post error. When the message looks like a
// proxy problem the proxy is probed once more; a failing re-probe replaces
// the surfaced message but never the class, and the original message stays
// in the response audit.
func (r *run) postFailed(ctx context.Context, err error) Outcome {
	class := classifyPost(err)
	upstream := err.Error()
	surfaced := upstream

	var diag *probe.Result
	if !r.spec.IsNone() && proxyRelated(upstream) {
		pr := r.probe(ctx)
		diag = &pr
		if !pr.OK {
			surfaced = pr.Message
		}
	}
	return r.fail(class, surfaced, upstream, diag)
}

func (r *run) probe(ctx context.Context) probe.Result {
	return r.o.prober.Probe(ctx, r.spec, r.o.opts.APIHost, r.o.opts.APIPort, r.o.opts.ProbeTimeout)
}

func (r *run) fail(class model.ErrorClass, surfaced, upstream string, diag *probe.Result) Outcome {
	failedIn := r.state
	r.enter(Failed)

	if diag != nil {
		d := *diag
		d.Message = audit.Scrub(d.Message, r.secrets...)
		diag = &d
	}
	return Outcome{Failure: &Failure{
		Message:         audit.Scrub(surfaced, r.secrets...),
		Class:           class,
		ProxyDiagnostic: diag,
		FailedIn:        failedIn,
		ResponseAudit:   audit.BuildFailure(failedIn.String(), audit.Scrub(upstream, r.secrets...)),
	}}
}

func classifyPost(err error) model.ErrorClass {
	if probe.IsTimeout(err) {
		return model.ClassTimeout
	}
	var se *platform.StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return model.ClassAuth
		}
		return model.ClassUpstream
	}
	if errors.Is(err, platform.ErrMissingID) {
		return model.ClassInvalidResponse
	}
	return model.ClassUpstream
}

func proxyRelated(msg string) bool {
	msg = strings.ToLower(msg)
	for _, kw := range []string{"proxy", "socket", "connect"} {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}
