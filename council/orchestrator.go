package council

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/arbiterlabs/council/internal/metrics"
	"github.com/arbiterlabs/council/llm"
	"github.com/arbiterlabs/council/llm/tokenizer"
	"github.com/arbiterlabs/council/persona"
	"github.com/arbiterlabs/council/types"
)

// Config controls orchestrator behavior.
type Config struct {
	// AdvisoryBudget is the soft per-persona answer target, rendered into
	// each Phase-1 instruction. Zero disables the guideline.
	AdvisoryBudget int `json:"advisory_budget" yaml:"advisory_budget"`

	// SynthesisBudget is the hard Phase-2 output ceiling. It is deliberately
	// much larger than the advisory target: council perspectives are
	// priority-1 synthesis input and must not be truncated.
	SynthesisBudget int `json:"synthesis_budget" yaml:"synthesis_budget"`

	// Concurrency caps in-flight Phase-1 branches. Zero means unlimited.
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// Model overrides the provider default for all calls; individual
	// personas may override it again.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		AdvisoryBudget:  1024,
		SynthesisBudget: 8192,
		Concurrency:     0,
	}
}

// Request describes one consultation.
type Request struct {
	// Question is the user's question, sent verbatim to every persona.
	Question string

	// History is prior conversation carried into each completion call.
	History []types.Message

	// Lead names the synthesizing persona. Nil selects the roster's first
	// persona. Captured at call time, never looked up ambiently.
	Lead *persona.Descriptor

	// Sink receives progress events. Nil is tolerated.
	Sink EventSink
}

// Perspective is one persona's contribution. Exactly one exists per
// registered persona per run, index-aligned with roster order.
type Perspective struct {
	PersonaID string        `json:"persona_id"`
	Name      string        `json:"name"`
	Role      string        `json:"role"`
	Focus     string        `json:"focus,omitempty"`
	Succeeded bool          `json:"succeeded"`
	Answer    string        `json:"answer"`
	Reasoning string        `json:"reasoning,omitempty"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Result is the outcome of one consultation. Synthesis is non-empty iff
// Succeeded. Perspectives survive a synthesis failure so callers keep the
// partial value of a round whose last step broke.
type Result struct {
	RunID        string           `json:"run_id"`
	Succeeded    bool             `json:"succeeded"`
	Synthesis    string           `json:"synthesis,omitempty"`
	Perspectives []Perspective    `json:"perspectives"`
	LeadName     string           `json:"lead_name,omitempty"`
	Reasoning    string           `json:"reasoning,omitempty"`
	Err          error            `json:"-"`
	Usage        types.TokenUsage `json:"usage"`
	Duration     time.Duration    `json:"duration"`
}

// Orchestrator runs council consultations against a completion service.
type Orchestrator struct {
	svc      llm.CompletionService
	registry *persona.Registry
	composer *persona.Composer
	cfg      Config
	logger   *zap.Logger
	metrics  *metrics.Collector
	counter  tokenizer.Tokenizer
	tracer   trace.Tracer
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithMetrics attaches a metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *Orchestrator) { o.metrics = c }
}

// WithTokenizer replaces the prompt-size estimator.
func WithTokenizer(t tokenizer.Tokenizer) Option {
	return func(o *Orchestrator) { o.counter = t }
}

// New creates an Orchestrator. The registry is injected, not global: two
// orchestrators with different rosters can coexist in one process.
func New(svc llm.CompletionService, registry *persona.Registry, cfg Config, logger *zap.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		svc:      svc,
		registry: registry,
		composer: persona.NewComposer(),
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "council_orchestrator")),
		counter:  tokenizer.NewEstimatorTokenizer(),
		tracer:   otel.Tracer("github.com/arbiterlabs/council/council"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one consultation. It never returns an error: every failure
// mode is folded into the Result, and the method never panics on persona or
// transport misbehavior.
func (o *Orchestrator) Run(ctx context.Context, req *Request) *Result {
	start := time.Now()
	res := &Result{RunID: uuid.NewString()}

	defer func() {
		res.Duration = time.Since(start)
		status := "success"
		if !res.Succeeded {
			status = "failed"
		}
		if o.metrics != nil {
			o.metrics.RecordRun(status, res.Duration)
		}
		o.logger.Info("council run finished",
			zap.String("run_id", res.RunID),
			zap.String("status", status),
			zap.Duration("duration", res.Duration),
		)
	}()

	ctx, span := o.tracer.Start(ctx, "council.Run")
	defer span.End()
	span.SetAttributes(attribute.String("council.run_id", res.RunID))

	// INIT: reject before any completion call.
	if req == nil || strings.TrimSpace(req.Question) == "" {
		res.Err = types.NewError(types.ErrInvalidRequest, "question must not be empty")
		return res
	}
	roster := o.registry.All()
	if len(roster) == 0 {
		res.Err = types.NewError(types.ErrInvalidRequest, "council roster is empty")
		return res
	}

	lead := roster[0]
	if req.Lead != nil {
		lead = *req.Lead
	}
	res.LeadName = lead.Name

	o.logger.Info("convening council",
		zap.String("run_id", res.RunID),
		zap.Int("personas", len(roster)),
		zap.String("lead", lead.Name),
	)
	emitPhaseStarted(req.Sink, res.RunID, PhaseConvening)

	// FAN_OUT: one branch per persona, all-settled. Each branch owns exactly
	// one slot of each slice, so the join needs no locks and the result order
	// is the roster order no matter how completion times interleave.
	perspectives := make([]Perspective, len(roster))
	usages := make([]types.TokenUsage, len(roster))

	g := &errgroup.Group{}
	if o.cfg.Concurrency > 0 {
		g.SetLimit(o.cfg.Concurrency)
	}
	for i, d := range roster {
		i, d := i, d
		g.Go(func() error {
			p, usage := o.consult(ctx, req, d)
			perspectives[i] = p
			usages[i] = usage
			emitPersonaResolved(req.Sink, res.RunID, p)
			if o.metrics != nil {
				o.metrics.RecordPersonaOutcome(d.ID, p.Succeeded)
			}
			return nil
		})
	}
	_ = g.Wait() // branches always return nil: all-settled by construction

	responded := 0
	for _, p := range perspectives {
		if p.Succeeded {
			responded++
		}
	}
	for _, u := range usages {
		res.Usage.Add(u)
	}
	emitPhaseCompleted(req.Sink, res.RunID, PhaseConvening, responded > 0)

	// AGGREGATE
	if responded == 0 {
		res.Err = types.NewError(types.ErrCouncilExhausted, "all council members failed to respond")
		o.logger.Warn("council exhausted", zap.String("run_id", res.RunID))
		return res
	}
	res.Perspectives = perspectives

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	o.logger.Info("council responded",
		zap.String("run_id", res.RunID),
		zap.Int("responded", responded),
		zap.Int("total", len(roster)),
	)

	// SYNTHESIS
	emitPhaseStarted(req.Sink, res.RunID, PhaseSynthesizing)
	synthesis, usage, err := o.synthesize(ctx, req, lead, perspectives)
	emitPhaseCompleted(req.Sink, res.RunID, PhaseSynthesizing, err == nil)
	res.Usage.Add(usage)
	if err != nil {
		// Perspectives stay on the result: the round's partial value is not
		// discarded because its last step broke.
		res.Err = types.NewError(types.ErrSynthesisFailure, "lead persona failed to synthesize").WithCause(err)
		o.logger.Warn("synthesis failed", zap.String("run_id", res.RunID), zap.Error(err))
		return res
	}

	res.Succeeded = true
	res.Synthesis = synthesis.Content
	res.Reasoning = synthesis.Reasoning
	return res
}

// consult runs one Phase-1 branch. It never fails the run: errors become a
// failed Perspective carrying a human-readable placeholder answer.
func (o *Orchestrator) consult(ctx context.Context, req *Request, d persona.Descriptor) (p Perspective, usage types.TokenUsage) {
	p = Perspective{
		PersonaID: d.ID,
		Name:      d.Name,
		Role:      d.Role,
		Focus:     d.Focus,
	}
	start := time.Now()
	defer func() { p.Elapsed = time.Since(start) }()

	advisory := types.Unbounded()
	if o.cfg.AdvisoryBudget > 0 {
		advisory = types.Advisory(o.cfg.AdvisoryBudget)
	}
	system, err := o.composer.Compose(d, advisory)
	if err != nil {
		p.Answer = fmt.Sprintf("no response from %s: %v", d.Name, err)
		return p, types.TokenUsage{}
	}

	messages := make([]types.Message, 0, len(req.History)+1)
	messages = append(messages, req.History...)
	messages = append(messages, types.NewUserMessage(o.branchPrompt(req.Question, d)))

	callStart := time.Now()
	resp, err := o.svc.Complete(ctx, &llm.CompletionRequest{
		TraceID:  uuid.NewString(),
		Model:    o.modelFor(d),
		System:   system,
		Messages: messages,
		Budget:   types.Unbounded(),
	})
	if o.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		o.metrics.RecordLLMRequest(o.svc.Name(), status, time.Since(callStart))
	}
	if err != nil {
		p.Answer = fmt.Sprintf("no response from %s: %v", d.Name, err)
		o.logger.Warn("persona failed",
			zap.String("persona", d.ID),
			zap.Error(err),
		)
		return p, types.TokenUsage{}
	}

	p.Succeeded = true
	p.Answer = resp.Content
	p.Reasoning = resp.Reasoning
	if o.metrics != nil {
		o.metrics.RecordTokens(o.svc.Name(), resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}
	return p, resp.Usage
}

// branchPrompt frames the verbatim question through the persona's role and
// focus. The question text itself is never rephrased.
func (o *Orchestrator) branchPrompt(question string, d persona.Descriptor) string {
	var b strings.Builder
	b.WriteString("Give your independent perspective")
	if d.Role != "" {
		fmt.Fprintf(&b, " as %s", d.Role)
	}
	if d.Focus != "" {
		fmt.Fprintf(&b, ", with particular attention to %s", d.Focus)
	}
	b.WriteString(", on the following question.\n\n")
	b.WriteString(question)
	return b.String()
}

// synthesize runs Phase 2: one call to the lead persona with every
// perspective in the prompt and a hard output ceiling.
func (o *Orchestrator) synthesize(ctx context.Context, req *Request, lead persona.Descriptor, perspectives []Perspective) (*llm.CompletionResponse, types.TokenUsage, error) {
	// The lead gets no advisory limit: its ceiling is enforced structurally.
	system, err := o.composer.Compose(lead, types.Unbounded())
	if err != nil {
		return nil, types.TokenUsage{}, err
	}

	prompt := buildSynthesisPrompt(req.Question, perspectives)
	if n, err := o.counter.CountTokens(prompt); err == nil {
		o.logger.Debug("synthesis prompt built",
			zap.Int("estimated_tokens", n),
			zap.Int("perspectives", len(perspectives)),
		)
	}

	messages := make([]types.Message, 0, len(req.History)+1)
	messages = append(messages, req.History...)
	messages = append(messages, types.NewUserMessage(prompt))

	callStart := time.Now()
	resp, err := o.svc.Complete(ctx, &llm.CompletionRequest{
		TraceID:  uuid.NewString(),
		Model:    o.modelFor(lead),
		System:   system,
		Messages: messages,
		Budget:   types.Enforced(o.cfg.SynthesisBudget),
	})
	if o.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		o.metrics.RecordLLMRequest(o.svc.Name(), status, time.Since(callStart))
	}
	if err != nil {
		return nil, types.TokenUsage{}, err
	}
	if o.metrics != nil {
		o.metrics.RecordTokens(o.svc.Name(), resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}
	return resp, resp.Usage, nil
}

func (o *Orchestrator) modelFor(d persona.Descriptor) string {
	if d.Model != "" {
		return d.Model
	}
	return o.cfg.Model
}

// buildSynthesisPrompt assembles the Phase-2 prompt: the original question
// plus every perspective, failures included, each labeled with name, role,
// and a status marker behind a visible separator.
func buildSynthesisPrompt(question string, perspectives []Perspective) string {
	var b strings.Builder
	b.WriteString("The council was asked:\n\n")
	b.WriteString(question)
	b.WriteString("\n\nEach member's perspective follows.\n")

	for _, p := range perspectives {
		status := "responded"
		if !p.Succeeded {
			status = "no response"
		}
		fmt.Fprintf(&b, "\n--- %s (%s) [%s] ---\n", p.Name, p.Role, status)
		b.WriteString(p.Answer)
		b.WriteString("\n")
	}

	b.WriteString("\nSynthesize these perspectives into one authoritative answer to the original question. ")
	b.WriteString("Weigh agreements and disagreements explicitly; note where a member could not respond.")
	return b.String()
}

func emitPhaseStarted(sink EventSink, runID string, phase Phase) {
	if sink != nil {
		sink.PhaseStarted(PhaseStartedEvent{RunID: runID, Phase: phase})
	}
}

func emitPersonaResolved(sink EventSink, runID string, p Perspective) {
	if sink != nil {
		sink.PersonaResolved(PersonaResolvedEvent{
			RunID:     runID,
			PersonaID: p.PersonaID,
			Name:      p.Name,
			Succeeded: p.Succeeded,
			Elapsed:   p.Elapsed,
		})
	}
}

func emitPhaseCompleted(sink EventSink, runID string, phase Phase, succeeded bool) {
	if sink != nil {
		sink.PhaseCompleted(PhaseCompletedEvent{RunID: runID, Phase: phase, Succeeded: succeeded})
	}
}
