package probe

import (
	"context"
	"log"
	"net"
	"strconv"
	"time"

	"github.com/die-net/relaypost/internal/dialer"
	"github.com/die-net/relaypost/internal/metrics"
	"github.com/die-net/relaypost/internal/model"
	"github.com/die-net/relaypost/internal/proxyspec"
)

// DefaultTimeout bounds a probe when the caller passes zero.
const DefaultTimeout = 5 * time.Second

// Result is the outcome of one probe. It is produced fresh on every call.
type Result struct {
	OK      bool             `json:"ok"`
	Class   model.ErrorClass `json:"error_class"`
	Message string           `json:"message"`
}

// DialerFunc builds the dialer a probe goes through.
type DialerFunc func(dialer.Config, proxyspec.Spec) (dialer.Dialer, error)

// Prober runs connectivity probes.
type Prober struct {
	cfg       dialer.Config
	newDialer DialerFunc
	verbose   bool
}

// New returns a Prober using dialer.New.
func New(cfg dialer.Config, verbose bool) *Prober {
	return NewWithDialer(cfg, dialer.New, verbose)
}

// NewWithDialer returns a Prober that obtains dialers from fn.
func NewWithDialer(cfg dialer.Config, fn DialerFunc, verbose bool) *Prober {
	return &Prober{cfg: cfg, newDialer: fn, verbose: verbose}
}

// Probe opens a tunnel through spec to targetHost:targetPort and closes it.
// A None spec succeeds without any network activity.
func (p *Prober) Probe(ctx context.Context, spec proxyspec.Spec, targetHost string, targetPort uint16, timeout time.Duration) Result {
	if spec.IsNone() {
		return Result{OK: true}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	res := p.probe(ctx, spec, net.JoinHostPort(targetHost, strconv.Itoa(int(targetPort))), timeout)
	metrics.IncProbe(res.Class.String())
	if p.verbose {
		log.Printf("probe: %s has_auth=%t ok=%t class=%s", spec, spec.HasAuth(), res.OK, res.Class)
	}
	return res
}

func (p *Prober) probe(ctx context.Context, spec proxyspec.Spec, target string, timeout time.Duration) Result {
	d, err := p.newDialer(p.cfg, spec)
	if err != nil {
		return Result{Class: model.ClassParse, Message: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	conn, err := d.DialContext(ctx, "tcp", target)
	if err != nil {
		class := Classify(err)
		if class == model.ClassUnknown && time.Since(start) >= timeout {
			class = model.ClassTimeout
		}
		return Result{Class: class, Message: describe(class, spec, target, err)}
	}
	_ = conn.Close()

	return Result{OK: true}
}
