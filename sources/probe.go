package sources

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Probe is the result of one liveness check of a catalog URL. It records
// reachability metadata only: no event data is parsed or stored, the page
// body is read just far enough to find a title.
type Probe struct {
	Host       string
	URL        string
	FinalURL   string
	StatusCode int
	Title      string
	Latency    time.Duration
	CheckedAt  time.Time
	Err        string
}

func (p Probe) OK() bool {
	return p.Err == "" && p.StatusCode >= 200 && p.StatusCode < 400
}

func (p Probe) String() string {
	if p.Err != "" {
		return fmt.Sprintf("<[%s] error: %s>", p.Host, p.Err)
	}
	return fmt.Sprintf("<[%s] %d %s//%s>", p.Host, p.StatusCode, p.Latency.Round(time.Millisecond), p.Title)
}

// titleLimit caps how much of a page body gets read looking for <title>.
const titleLimit = 256 * 1024

const (
	defaultTimeout   = 10 * time.Second
	defaultRate      = 2.0
	defaultUserAgent = "locate918-roadmap (+https://github.com/locate918/roadmap)"
)

type LoggerFn func(string, ...interface{})

type Prober struct {
	client    *http.Client
	limiter   *rate.Limiter
	timeout   time.Duration
	userAgent string
	infoFn    LoggerFn
	errFn     LoggerFn
}

type ProberOption func(*Prober)

func WithTimeout(d time.Duration) ProberOption {
	return func(p *Prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithRate caps request starts at r per second across all workers.
func WithRate(r float64) ProberOption {
	return func(p *Prober) {
		if r > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(r), 1)
		}
	}
}

func WithUserAgent(ua string) ProberOption {
	return func(p *Prober) {
		if ua != "" {
			p.userAgent = ua
		}
	}
}

func WithClient(cl *http.Client) ProberOption {
	return func(p *Prober) {
		if cl != nil {
			p.client = cl
		}
	}
}

func WithLogger(infoFn, errFn LoggerFn) ProberOption {
	return func(p *Prober) {
		if infoFn != nil {
			p.infoFn = infoFn
		}
		if errFn != nil {
			p.errFn = errFn
		}
	}
}

func NewProber(opts ...ProberOption) *Prober {
	p := &Prober{
		timeout:   defaultTimeout,
		limiter:   rate.NewLimiter(rate.Limit(defaultRate), 1),
		userAgent: defaultUserAgent,
		infoFn:    func(string, ...interface{}) {},
		errFn:     func(string, ...interface{}) {},
	}
	for _, o := range opts {
		o(p)
	}
	if p.client == nil {
		p.client = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 2,
				DialContext: (&net.Dialer{
					Timeout: 2500 * time.Millisecond,
				}).DialContext,
				TLSHandshakeTimeout: 2500 * time.Millisecond,
			},
		}
	}
	return p
}

// Check probes every catalog URL with at most jobs requests in flight and
// returns one Probe per source, in catalog order. Network failures land in
// Probe.Err with the probe still returned, so a flaky source never aborts
// the run.
func (p *Prober) Check(ctx context.Context, catalog Catalog, jobs int) []Probe {
	if jobs < 1 {
		jobs = 1
	}
	probes := make([]Probe, len(catalog))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, src := range catalog {
		g.Go(func() error {
			if err := p.limiter.Wait(gctx); err != nil {
				probes[i] = Probe{Host: src.Host(), URL: src.URL, CheckedAt: time.Now().UTC(), Err: err.Error()}
				return nil
			}
			probes[i] = p.checkOne(gctx, src)
			if probes[i].Err != "" {
				p.errFn("[%s] %s", probes[i].Host, probes[i].Err)
			} else {
				p.infoFn("[%s] %d in %s", probes[i].Host, probes[i].StatusCode, probes[i].Latency.Round(time.Millisecond))
			}
			return nil
		})
	}
	g.Wait()
	return probes
}

func (p *Prober) checkOne(ctx context.Context, src Source) Probe {
	pr := Probe{
		Host:      src.Host(),
		URL:       src.URL,
		CheckedAt: time.Now().UTC(),
	}

	rctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(rctx, http.MethodGet, src.URL, nil)
	if err != nil {
		pr.Err = err.Error()
		return pr
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "text/html")

	start := time.Now()
	res, err := p.client.Do(req)
	pr.Latency = time.Since(start)
	if err != nil {
		pr.Err = err.Error()
		return pr
	}
	defer res.Body.Close()

	pr.StatusCode = res.StatusCode
	if res.Request != nil && res.Request.URL != nil {
		pr.FinalURL = res.Request.URL.String()
	}
	pr.Title = pageTitle(res)
	return pr
}

func pageTitle(res *http.Response) string {
	mt, _, err := mime.ParseMediaType(res.Header.Get("Content-Type"))
	if err != nil || mt != "text/html" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(io.LimitReader(res.Body, titleLimit))
	if err != nil {
		return ""
	}
	title := doc.Find("head title").First().Text()
	return strings.Join(strings.Fields(title), " ")
}
