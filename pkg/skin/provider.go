package skin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/jellydator/ttlcache/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"go.minekube.com/bridge/pkg/internal/cachutil"
	"go.minekube.com/bridge/pkg/internal/future"
	"go.minekube.com/bridge/pkg/util/uuid"
	"go.minekube.com/bridge/pkg/version"
)

const (
	DefaultSessionServerURL = "https://sessionserver.mojang.com/session/minecraft/profile/"
	DefaultProfileAPIURL    = "https://api.mojang.com/users/profiles/minecraft/"
	DefaultCacheTTL         = 10 * time.Minute
	DefaultErrorTTL         = time.Minute

	// requestTimeout bounds waiting for the rate limiter and the request.
	requestTimeout = 30 * time.Second
)

// ErrNotFound is returned for unknown profiles and profiles without textures.
var ErrNotFound = errors.New("profile not found")

// Lookup resolves textures. Completed lookups never block.
type Lookup interface {
	// ByUUID resolves the textures of the profile with id.
	ByUUID(id uuid.UUID) *future.Future[future.Outcome[Textures]]
	// ByName resolves the textures of the profile named username.
	ByName(username string) *future.Future[future.Outcome[Textures]]
}

// Options are the options of a Provider.
type Options struct {
	SessionServerURL string        // Profile endpoint, the undashed uuid is appended.
	ProfileAPIURL    string        // Name to uuid endpoint, the name is appended.
	Client           *http.Client  // Client to send requests with.
	CacheTTL         time.Duration // How long resolved textures are cached.
	ErrorTTL         time.Duration // How long failed lookups are cached.
	// RateLimit of requests to the Mojang APIs.
	// Zero means no limit.
	RateLimit rate.Limit
	Burst     int
	Logger    logr.Logger
}

// Provider is a Lookup against the Mojang APIs with
// a cache shared by all sessions.
type Provider struct {
	sessionServer, profileAPI string
	cli                       *http.Client
	limiter                   *rate.Limiter
	log                       logr.Logger

	textures       *ttlcache.Cache[string, cachutil.Result[Textures]]
	texturesLoader *cachutil.SuppressedLoader[Textures]
	ids            *ttlcache.Cache[string, cachutil.Result[uuid.UUID]]
	idsLoader      *cachutil.SuppressedLoader[uuid.UUID]
}

var _ Lookup = (*Provider)(nil)

// NewProvider returns a new Provider.
// Start must be called to evict expired cache entries.
func NewProvider(opts Options) *Provider {
	p := &Provider{
		sessionServer: withDefault(opts.SessionServerURL, DefaultSessionServerURL),
		profileAPI:    withDefault(opts.ProfileAPIURL, DefaultProfileAPIURL),
		log:           opts.Logger.WithName("skin"),
		limiter:       rate.NewLimiter(rate.Inf, 0),
	}
	if opts.RateLimit > 0 {
		p.limiter = rate.NewLimiter(opts.RateLimit, max(opts.Burst, 1))
	}
	// The client is copied, the caller's transport stays untouched.
	cli := http.Client{Timeout: 10 * time.Second}
	if opts.Client != nil {
		cli = *opts.Client
	}
	cli.Transport = otelhttp.NewTransport(withHeader(cli.Transport, version.UserAgentHeader()))
	p.cli = &cli

	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	errTTL := opts.ErrorTTL
	if errTTL <= 0 {
		errTTL = DefaultErrorTTL
	}
	p.textures = ttlcache.New[string, cachutil.Result[Textures]](
		ttlcache.WithDisableTouchOnHit[string, cachutil.Result[Textures]](),
	)
	p.texturesLoader = &cachutil.SuppressedLoader[Textures]{Fn: p.requestTextures, TTL: ttl, ErrTTL: errTTL}
	p.ids = ttlcache.New[string, cachutil.Result[uuid.UUID]](
		ttlcache.WithDisableTouchOnHit[string, cachutil.Result[uuid.UUID]](),
	)
	p.idsLoader = &cachutil.SuppressedLoader[uuid.UUID]{Fn: p.requestID, TTL: ttl, ErrTTL: errTTL}
	return p
}

func withDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Start evicts expired cache entries until ctx is canceled.
func (p *Provider) Start(ctx context.Context) {
	go p.ids.Start()
	go p.textures.Start()
	<-ctx.Done()
	p.ids.Stop()
	p.textures.Stop()
}

// ByUUID implements Lookup.
// Only version 4 (online mode) ids are known by the session server,
// the textures of other ids resolve as not found.
func (p *Provider) ByUUID(id uuid.UUID) *future.Future[future.Outcome[Textures]] {
	if id.Version() != 4 {
		return future.Completed(future.Unresolved[Textures](fmt.Errorf("%w: %s is no online mode id", ErrNotFound, id)))
	}
	return p.texturesOf(id.Undashed())
}

// ByName implements Lookup.
func (p *Provider) ByName(username string) *future.Future[future.Outcome[Textures]] {
	key := strings.ToLower(username)
	if item := p.ids.Get(key); item != nil {
		r := item.Value()
		if r.Err != nil {
			return future.Completed(future.Unresolved[Textures](r.Err))
		}
		return p.texturesOf(r.Value.Undashed())
	}
	return future.ThenCompose(future.Attempt(func() (uuid.UUID, error) {
		r := p.ids.Get(key, p.idsLoader.Option()).Value()
		return r.Value, r.Err
	}), func(o future.Outcome[uuid.UUID]) *future.Future[future.Outcome[Textures]] {
		if !o.Ok() {
			return future.Completed(future.Unresolved[Textures](o.Err))
		}
		return p.texturesOf(o.Value.Undashed())
	})
}

func (p *Provider) texturesOf(undashed string) *future.Future[future.Outcome[Textures]] {
	// fast path: completed cache hit
	if item := p.textures.Get(undashed); item != nil {
		return future.Completed(outcome(item.Value()))
	}
	// slow path: concurrent lookups of the same profile share one request
	return future.ThenApply(future.Attempt(func() (cachutil.Result[Textures], error) {
		return p.textures.Get(undashed, p.texturesLoader.Option()).Value(), nil
	}), func(o future.Outcome[cachutil.Result[Textures]]) future.Outcome[Textures] {
		if !o.Ok() {
			return future.Unresolved[Textures](o.Err)
		}
		return outcome(o.Value)
	})
}

func outcome(r cachutil.Result[Textures]) future.Outcome[Textures] {
	if r.Err != nil {
		return future.Unresolved[Textures](r.Err)
	}
	return future.Resolved(r.Value)
}

type profileJSON struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Properties []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"properties"`
}

func (p *Provider) requestTextures(undashed string) (Textures, error) {
	var profile profileJSON
	if err := p.getJSON(p.sessionServer+url.PathEscape(undashed), &profile); err != nil {
		return Textures{}, err
	}
	for _, prop := range profile.Properties {
		if prop.Name == "textures" {
			return Decode(prop.Value)
		}
	}
	if len(profile.Properties) != 0 {
		return Decode(profile.Properties[0].Value)
	}
	return Textures{}, fmt.Errorf("%w: %s has no properties", ErrNotFound, undashed)
}

func (p *Provider) requestID(name string) (uuid.UUID, error) {
	var profile profileJSON
	if err := p.getJSON(p.profileAPI+url.PathEscape(name), &profile); err != nil {
		return uuid.Nil, err
	}
	if profile.ID == "" {
		return uuid.Nil, fmt.Errorf("%w: no id for %s", ErrNotFound, name)
	}
	return uuid.Parse(profile.ID)
}

func (p *Provider) getJSON(u string, v any) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limited: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	log := p.log.V(1).WithValues("url", u)
	start := time.Now()
	resp, err := p.cli.Do(req)
	if err != nil {
		return fmt.Errorf("error requesting Mojang API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}
	log.Info("requested profile", "statusCode", resp.StatusCode, "time", time.Since(start).String())

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent, http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("got unexpected status code (%d) from Mojang API", resp.StatusCode)
	}
	if len(body) == 0 {
		return ErrNotFound
	}
	if err = json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("error unmarshal profile: %w", err)
	}
	return nil
}

func withHeader(rt http.RoundTripper, header http.Header) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	return headerRoundTripper{Header: header, rt: rt}
}

type headerRoundTripper struct {
	http.Header
	rt http.RoundTripper
}

func (h headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range h.Header {
		req.Header[k] = v
	}
	return h.rt.RoundTrip(req)
}
