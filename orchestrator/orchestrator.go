// Package orchestrator implements the gateway's single request pipeline: one
// state machine per inbound call, tying authentication, policy evaluation,
// rate limiting, the cache/breaker/retry/timeout stack, adapter dispatch,
// response filtering, and audit/metrics recording into one ordered sequence.
package orchestrator

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/byteness/toolgateway/adapters"
	"github.com/byteness/toolgateway/gatewayerr"
	"github.com/byteness/toolgateway/logging"
	"github.com/byteness/toolgateway/observability"
	"github.com/byteness/toolgateway/policy"
	"github.com/byteness/toolgateway/ratelimit"
	"github.com/byteness/toolgateway/resilience"
	"github.com/byteness/toolgateway/store"
	"github.com/byteness/toolgateway/token"
	"github.com/byteness/toolgateway/vault"
)

// State is one stage of the per-request pipeline.
type State string

const (
	StateReceived           State = "RECEIVED"
	StateAuthenticated      State = "AUTHENTICATED"
	StatePolicyAllowed      State = "POLICY_ALLOWED"
	StateRateLimitConsumed  State = "RATE_LIMIT_CONSUMED"
	StateCacheChecked       State = "CACHE_CHECKED"
	StateAdapterInvoked     State = "ADAPTER_INVOKED"
	StateFiltered           State = "FILTERED"
	StateResponded          State = "RESPONDED"
	StateFailed             State = "FAILED"
)

// Request is everything the orchestrator needs to process one call.
type Request struct {
	OpaqueToken  string
	TokenID      string
	ProofPayload []byte
	Tool         string
	Action       string
	Params       map[string]any
	CallerIntent string
}

// Response is the result of a successfully completed pipeline run.
type Response struct {
	CorrelationID string
	StatusCode    int
	Body          any
	Headers       map[string]string
}

// Orchestrator wires every gateway subsystem into one request pipeline.
type Orchestrator struct {
	tokens    *token.Service
	policies  *policy.Resolver
	agents    store.AgentStore
	quotas    store.QuotaStore
	limiter   *ratelimit.Service
	vault     *vault.Vault
	registry  *adapters.Registry
	breakers  *resilience.BreakerRegistry
	cache     *resilience.ResponseCache
	retryCfg  resilience.RetryConfig
	timeouts  map[string]time.Duration
	metrics   *observability.Metrics
	logger    logging.Logger
	audit     store.AuditStore
	instance  string

	draining      atomic.Bool
	drainDeadline time.Duration
}

// Config bundles every collaborator an Orchestrator needs.
type Config struct {
	Tokens        *token.Service
	Policies      *policy.Resolver
	Agents        store.AgentStore
	Quotas        store.QuotaStore
	Limiter       *ratelimit.Service
	Vault         *vault.Vault
	Registry      *adapters.Registry
	Breakers      *resilience.BreakerRegistry
	Cache         *resilience.ResponseCache
	RetryConfig   resilience.RetryConfig
	Timeouts      map[string]time.Duration
	Metrics       *observability.Metrics
	Logger        logging.Logger
	Audit         store.AuditStore
	InstanceID    string
	DrainDeadline time.Duration
}

// New builds an Orchestrator from cfg, filling in the same defaults the
// underlying subsystems already apply when left zero-valued.
func New(cfg Config) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	if cfg.DrainDeadline <= 0 {
		cfg.DrainDeadline = 30 * time.Second
	}
	if cfg.Timeouts == nil {
		cfg.Timeouts = map[string]time.Duration{}
	}
	o := &Orchestrator{
		tokens:        cfg.Tokens,
		policies:      cfg.Policies,
		agents:        cfg.Agents,
		quotas:        cfg.Quotas,
		limiter:       cfg.Limiter,
		vault:         cfg.Vault,
		registry:      cfg.Registry,
		breakers:      cfg.Breakers,
		cache:         cfg.Cache,
		retryCfg:      cfg.RetryConfig,
		timeouts:      cfg.Timeouts,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
		audit:         cfg.Audit,
		instance:      cfg.InstanceID,
		drainDeadline: cfg.DrainDeadline,
	}
	return o
}

// Drain flips the draining flag; subsequent Handle calls are rejected with
// SERVICE_UNAVAILABLE until Undrain is called. The caller is responsible for
// waiting up to DrainDeadline for in-flight requests to finish before forced
// cancellation.
func (o *Orchestrator) Drain() { o.draining.Store(true) }

// Undrain clears the draining flag.
func (o *Orchestrator) Undrain() { o.draining.Store(false) }

// Draining reports the current drain state.
func (o *Orchestrator) Draining() bool { return o.draining.Load() }

// DrainDeadline returns the configured grace period for in-flight requests.
func (o *Orchestrator) DrainDeadline() time.Duration { return o.drainDeadline }

func (o *Orchestrator) timeoutFor(tool string) time.Duration {
	if d, ok := o.timeouts[tool]; ok && d > 0 {
		return d
	}
	return resilience.DefaultTimeout
}

// Handle runs the full pipeline for req and returns the response or a typed
// gatewayerr.Error. Every terminal transition writes one audit entry and
// updates metrics before returning.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (Response, error) {
	correlationID := uuid.NewString()
	start := time.Now()
	state := StateReceived

	if o.draining.Load() {
		err := gatewayerr.New(gatewayerr.ServiceUnavailable, "gateway is draining")
		o.finish(ctx, correlationID, "", req, state, start, err)
		return Response{}, err
	}

	o.metrics.IncrementActiveConnections()
	defer o.metrics.DecrementActiveConnections()

	claims, err := o.tokens.Validate(ctx, req.OpaqueToken, req.TokenID, req.ProofPayload)
	if err != nil {
		o.recordTokenValidation(err)
		o.finish(ctx, correlationID, "", req, state, start, err)
		return Response{}, err
	}
	o.metrics.RecordTokenValidation("ok")
	state = StateAuthenticated

	agentID := claims.Payload.AgentID
	agentRecord, err := o.agents.GetAgent(ctx, agentID)
	if err != nil {
		o.finish(ctx, correlationID, agentID, req, state, start, err)
		return Response{}, err
	}
	spec, err := o.policies.Resolve(ctx, agentID, agentRecord.Role)
	if err != nil {
		o.finish(ctx, correlationID, agentID, req, state, start, err)
		return Response{}, err
	}

	decision, err := policy.Evaluate(ctx, spec, agentID, policy.Request{
		Tool:         req.Tool,
		Action:       req.Action,
		Params:       req.Params,
		CallerIntent: req.CallerIntent,
		Now:          time.Now().UTC(),
	}, o.quotas)
	if err != nil {
		o.finish(ctx, correlationID, agentID, req, state, start, err)
		return Response{}, err
	}
	if !decision.Allowed {
		o.metrics.RecordPolicyDenial(string(decision.Reason))
		denyErr := gatewayerr.New(gatewayerr.PolicyDenied, "policy denied request").
			WithDetail("reason", string(decision.Reason)).WithDetail("detail", decision.Detail)
		o.finishWithDecision(ctx, correlationID, agentID, req, state, start, denyErr, string(decision.Reason))
		return Response{}, denyErr
	}
	state = StatePolicyAllowed

	if err := o.limiter.Consume(ctx, agentID); err != nil {
		if ge, ok := gatewayerr.As(err); ok && ge.Kind() == gatewayerr.RateLimited {
			o.metrics.RecordRateLimited(agentID)
		}
		o.finish(ctx, correlationID, agentID, req, state, start, err)
		return Response{}, err
	}
	state = StateRateLimitConsumed

	a, ok := o.registry.Lookup(req.Tool, req.Action)
	if !ok {
		err := gatewayerr.New(gatewayerr.BadRequest, "unknown tool or action").
			WithDetail("tool", req.Tool).WithDetail("action", req.Action)
		o.finish(ctx, correlationID, agentID, req, state, start, err)
		return Response{}, err
	}

	var cacheKey string
	cacheable := a.Cacheable(req.Action)
	if cacheable {
		key, err := resilience.Key(req.Tool, req.Action, req.Params)
		if err == nil {
			cacheKey = key
			if cached, hit := o.cache.Get(cacheKey); hit {
				o.metrics.RecordCacheHit()
				state = StateCacheChecked
				return o.respond(ctx, correlationID, agentID, req, state, start, cached, spec, string(decision.Reason), claims)
			}
		}
	}
	state = StateCacheChecked

	creds := ""
	if a.NeedsCredential(req.Action) {
		secret, _, err := o.vault.GetActive(ctx, req.Tool)
		if err != nil {
			o.finish(ctx, correlationID, agentID, req, state, start, err)
			return Response{}, err
		}
		creds = secret
	}

	result, err := o.invokeWithResilience(ctx, req, creds)
	if err != nil {
		o.finish(ctx, correlationID, agentID, req, state, start, err)
		return Response{}, err
	}
	state = StateAdapterInvoked

	if cacheable && cacheKey != "" {
		o.cache.Put(cacheKey, result.Body)
	}

	return o.respond(ctx, correlationID, agentID, req, state, start, result.Body, spec, string(decision.Reason), claims)
}

func (o *Orchestrator) respond(ctx context.Context, correlationID, agentID string, req Request, state State, start time.Time, body any, spec policy.Spec, policyDecision string, claims token.Claims) (Response, error) {
	filtered := policy.ApplyResponseFilters(spec.ResponseFilters, asMap(body))
	state = StateFiltered

	headers := map[string]string{"X-Correlation-Id": correlationID}
	now := time.Now().UTC()
	headers["X-Token-Expires-At"] = claims.Payload.ExpiresAt.Format(time.RFC3339)
	if token.RotationRecommended(claims.Payload.ExpiresAt, now) {
		headers["X-Token-Rotation-Recommended"] = "true"
	}

	resp := Response{CorrelationID: correlationID, StatusCode: 200, Body: filtered, Headers: headers}
	state = StateResponded
	o.recordSuccess(ctx, correlationID, agentID, req, start, policyDecision)
	return resp, nil
}

func asMap(body any) map[string]any {
	if m, ok := body.(map[string]any); ok {
		return m
	}
	return map[string]any{"result": body}
}

// invokeWithResilience applies the fixed Breaker -> Retry -> Adapter(timeout)
// wrapping order around one adapter call: Breaker -> Retry -> Adapter(with timeout);
// the cache check already happened in Handle.
func (o *Orchestrator) invokeWithResilience(ctx context.Context, req Request, creds string) (adapters.Result, error) {
	var result adapters.Result
	attempt := 0

	breakerErr := o.breakers.Execute(req.Tool, func() error {
		return resilience.Retry(ctx, o.retryCfg, func() error {
			attempt++
			invokeErr := resilience.WithTimeout(ctx, o.timeoutFor(req.Tool), func(timeoutCtx context.Context) error {
				res, err := o.registry.Invoke(timeoutCtx, req.Tool, req.Action, req.Params, creds)
				if err != nil {
					return err
				}
				result = res
				return nil
			})
			if invokeErr != nil && attempt > 1 {
				o.metrics.RecordRetry(req.Tool, req.Action, string(gatewayerr.KindOf(invokeErr)))
			}
			return invokeErr
		})
	})
	if breakerErr != nil {
		if ge, ok := gatewayerr.As(breakerErr); ok && ge.Kind() == gatewayerr.BreakerOpen {
			o.metrics.RecordBreakerFastfail(req.Tool)
		}
		return adapters.Result{}, breakerErr
	}
	return result, nil
}

func (o *Orchestrator) recordTokenValidation(err error) {
	kind := gatewayerr.KindOf(err)
	switch kind {
	case gatewayerr.TokenExpired:
		o.metrics.RecordTokenExpiration()
		o.metrics.RecordTokenValidation("expired")
	case gatewayerr.TokenFormat:
		o.metrics.RecordTokenValidation("format")
	case gatewayerr.TokenSignature:
		o.metrics.RecordTokenValidation("signature")
	case gatewayerr.TokenProvenance:
		o.metrics.RecordTokenValidation("provenance")
	case gatewayerr.TokenAgentInactive:
		o.metrics.RecordTokenValidation("agent_inactive")
	default:
		o.metrics.RecordTokenValidation("error")
	}
}

func (o *Orchestrator) recordSuccess(ctx context.Context, correlationID, agentID string, req Request, start time.Time, policyDecision string) {
	duration := time.Since(start)
	o.metrics.RecordRequest(req.Tool, req.Action, "200", duration)
	o.writeAudit(ctx, correlationID, agentID, req, "", 200, true, duration, policyDecision)
}

func (o *Orchestrator) finish(ctx context.Context, correlationID, agentID string, req Request, state State, start time.Time, err error) {
	o.finishWithDecision(ctx, correlationID, agentID, req, state, start, err, "")
}

func (o *Orchestrator) finishWithDecision(ctx context.Context, correlationID, agentID string, req Request, state State, start time.Time, err error, policyDecision string) {
	kind := gatewayerr.KindOf(err)
	duration := time.Since(start)
	o.metrics.RecordRequest(req.Tool, req.Action, string(kind), duration)
	o.writeAudit(ctx, correlationID, agentID, req, string(kind), kind.StatusCode(), false, duration, policyDecision)
}

func (o *Orchestrator) writeAudit(ctx context.Context, correlationID, agentID string, req Request, errorKind string, statusCode int, success bool, duration time.Duration, policyDecision string) {
	now := time.Now().UTC()
	entry := logging.AuditLogEntry{
		CorrelationID:  correlationID,
		AgentID:        agentID,
		Tool:           req.Tool,
		Action:         req.Action,
		StatusCode:     statusCode,
		Success:        success,
		DurationMS:     duration.Milliseconds(),
		ErrorKind:      errorKind,
		PolicyDecision: policyDecision,
		InstanceID:     o.instance,
		Timestamp:      now.Format(time.RFC3339Nano),
	}
	o.logger.LogAudit(entry)

	if o.audit == nil {
		return
	}
	_ = o.audit.AppendAudit(ctx, store.AuditRecord{
		CorrelationID:  correlationID,
		AgentID:        agentID,
		Tool:           req.Tool,
		Action:         req.Action,
		StatusCode:     statusCode,
		Success:        success,
		DurationMS:     duration.Milliseconds(),
		ErrorKind:      errorKind,
		PolicyDecision: policyDecision,
		InstanceID:     o.instance,
		Timestamp:      now,
	})
}
