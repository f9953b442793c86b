package pandora

import (
	"context"
	"log/slog"
	"maps"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pandora/trace"
	"github.com/sourcegraph/conc/iter"
)

const (
	// DefaultMaxRounds is the number of tool rounds before the loop forces a final answer.
	DefaultMaxRounds = 10

	// DefaultTraceResultLimit is the number of runes of a tool result kept in Step.Result.
	DefaultTraceResultLimit = 4000

	truncatedSuffix = "...(truncated)"
)

// Agent drives the reasoning/tool loop for user queries. An Agent is immutable after New and
// safe for concurrent Run calls; every Run owns its conversation and trace.
type Agent struct {
	llm      LLMClient
	executor *Executor

	config
}

type config struct {
	maxRounds        int
	systemPrompt     string
	llmTimeout       time.Duration
	traceResultLimit int

	messageHook      MessageHook
	toolRequestHook  ToolRequestHook
	toolResponseHook ToolResponseHook

	tracer trace.Handler
	logger *slog.Logger
}

// Option configures an Agent.
type Option func(*config)

// WithMaxRounds sets the round budget. Values below 1 are ignored.
func WithMaxRounds(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxRounds = n
		}
	}
}

// WithSystemPrompt replaces DefaultSystemPrompt.
func WithSystemPrompt(prompt string) Option {
	return func(c *config) {
		c.systemPrompt = prompt
	}
}

// WithLLMTimeout bounds every reasoning engine call. A timeout is handled like any other
// adapter failure.
func WithLLMTimeout(d time.Duration) Option {
	return func(c *config) {
		c.llmTimeout = d
	}
}

// WithTraceResultLimit sets how many runes of each tool result are kept in the returned trace.
// Zero or a negative value disables truncation. The conversation always gets the full text.
func WithTraceResultLimit(n int) Option {
	return func(c *config) {
		c.traceResultLimit = n
	}
}

func WithMessageHook(hook MessageHook) Option {
	return func(c *config) {
		c.messageHook = hook
	}
}

func WithToolRequestHook(hook ToolRequestHook) Option {
	return func(c *config) {
		c.toolRequestHook = hook
	}
}

func WithToolResponseHook(hook ToolResponseHook) Option {
	return func(c *config) {
		c.toolResponseHook = hook
	}
}

// WithTrace emits run, LLM call and tool execution spans to h.
func WithTrace(h trace.Handler) Option {
	return func(c *config) {
		c.tracer = h
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// New creates an Agent that reasons with llmClient and runs tools through executor.
func New(llmClient LLMClient, executor *Executor, options ...Option) *Agent {
	x := &Agent{
		llm:      llmClient,
		executor: executor,
		config: config{
			maxRounds:        DefaultMaxRounds,
			systemPrompt:     DefaultSystemPrompt,
			traceResultLimit: DefaultTraceResultLimit,
			messageHook:      defaultMessageHook,
			toolRequestHook:  defaultToolRequestHook,
			toolResponseHook: defaultToolResponseHook,
			logger:           defaultLogger,
		},
	}

	for _, opt := range options {
		opt(&x.config)
	}

	x.logger.Info("pandora agent created",
		"max_rounds", x.maxRounds,
		"llm_timeout", x.llmTimeout,
		"trace_result_limit", x.traceResultLimit,
		"tools", executor.Registry().Names(),
		"has_tracer", x.tracer != nil,
	)

	return x
}

// Step is one tool execution of a run. Steps are appended in call request order and never
// modified afterwards.
type Step struct {
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args"`
	Result string         `json:"result"`
}

// Result is the outcome of Run.
type Result struct {
	Answer string `json:"answer"`
	Trace  []Step `json:"trace"`
	Rounds int    `json:"rounds"`
}

// RunOption configures a single Run.
type RunOption func(*runConfig)

type runConfig struct {
	contextHint string
}

// WithContextHint tells the engine which ticker the user is looking at.
func WithContextHint(hint string) RunOption {
	return func(c *runConfig) {
		c.contextHint = hint
	}
}

// Run answers query. The answer is never empty: reasoning engine failures and an exhausted
// round budget produce degraded answers instead of errors. The only error is ErrEmptyQuery.
func (x *Agent) Run(ctx context.Context, query string, options ...RunOption) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, goerr.Wrap(ErrEmptyQuery, "query must not be blank")
	}

	var rc runConfig
	for _, opt := range options {
		opt(&rc)
	}

	logger := x.logger.With("run_id", uuid.New().String())
	ctx = ctxWithLogger(ctx, logger)

	if x.tracer != nil {
		ctx = x.tracer.StartRun(ctx, query)
	}

	run := &loopRun{
		agent:  x,
		query:  query,
		hint:   rc.contextHint,
		specs:  x.executor.Registry().Specs(),
		steps:  []Step{},
		logger: logger,
	}

	for st := stateSeeded; st != stateDone; {
		next := run.step(ctx, st)
		logger.Debug("state transition", "from", st.String(), "to", next.String(), "round", run.round)
		st = next
	}

	if x.tracer != nil {
		x.tracer.EndRun(ctx, run.answer, nil)
		if err := x.tracer.Finish(ctx); err != nil {
			logger.Warn("failed to finish trace", "error", err)
		}
	}

	logger.Info("run completed", "rounds", run.round, "steps", len(run.steps))

	return &Result{
		Answer: run.answer,
		Trace:  run.steps,
		Rounds: run.round,
	}, nil
}

type state int

const (
	stateSeeded state = iota
	stateReasoning
	stateDispatching
	stateForcedFinalize
	stateDone
)

func (s state) String() string {
	switch s {
	case stateSeeded:
		return "seeded"
	case stateReasoning:
		return "reasoning"
	case stateDispatching:
		return "dispatching"
	case stateForcedFinalize:
		return "forced_finalize"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// loopRun is the state of one query. It is confined to the goroutine calling Run, except
// for the tool fan-out inside dispatch, which only reads it.
type loopRun struct {
	agent *Agent
	query string
	hint  string
	specs []ToolSpec

	conv    *Conversation
	pending []*FunctionCall
	steps   []Step
	results []string
	round   int
	answer  string

	logger *slog.Logger
}

func (r *loopRun) step(ctx context.Context, st state) state {
	switch st {
	case stateSeeded:
		r.conv = NewConversation(buildSystemPrompt(r.agent.systemPrompt, r.hint), r.query)
		return stateReasoning
	case stateReasoning:
		return r.reason(ctx)
	case stateDispatching:
		return r.dispatch(ctx)
	case stateForcedFinalize:
		return r.finalize(ctx)
	default:
		return stateDone
	}
}

func (r *loopRun) reason(ctx context.Context) state {
	reply, err := r.agent.generate(ctx, r.conv.Messages(), r.specs, r.round)
	if err != nil {
		r.logger.Error("reasoning engine failed", "error", err, "round", r.round)
		r.answer = ApologyAnswer
		return stateDone
	}

	r.conv.AppendReply(reply)

	switch v := reply.(type) {
	case *ToolCallReply:
		if len(v.Calls) == 0 {
			r.agent.onMessage(ctx, v.Text)
			r.answer = r.finalText(v.Text)
			return stateDone
		}
		if v.Text != "" {
			r.agent.onMessage(ctx, v.Text)
		}
		r.pending = v.Calls
		return stateDispatching

	case *TextReply:
		r.agent.onMessage(ctx, v.Text)
		r.answer = r.finalText(v.Text)
		return stateDone

	default:
		r.logger.Error("unexpected reply type", "reply", reply)
		r.answer = ApologyAnswer
		return stateDone
	}
}

func (r *loopRun) dispatch(ctx context.Context) state {
	calls := r.pending
	r.pending = nil

	mapper := iter.Mapper[*FunctionCall, ToolResult]{MaxGoroutines: max(len(calls), 1)}
	results := mapper.Map(calls, func(call **FunctionCall) ToolResult {
		return r.agent.execute(ctx, **call)
	})

	messages := make([]ToolMessage, len(calls))
	for i, call := range calls {
		r.steps = append(r.steps, Step{
			Tool:   call.Name,
			Args:   call.Arguments,
			Result: truncate(results[i].Text, r.agent.traceResultLimit),
		})
		r.results = append(r.results, results[i].Text)
		messages[i] = ToolMessage{
			CallID:  call.ID,
			Name:    call.Name,
			Content: results[i].Text,
			IsError: results[i].Failed,
		}
	}

	if err := r.conv.AppendToolResults(messages); err != nil {
		// Results are built from the pending calls, so this is a programming error.
		r.logger.Error("failed to append tool results", "error", err)
		r.answer = fallbackAnswer(r.results)
		return stateDone
	}

	r.round++
	if r.round < r.agent.maxRounds {
		return stateReasoning
	}
	return stateForcedFinalize
}

func (r *loopRun) finalize(ctx context.Context) state {
	r.logger.Info("round budget exhausted, forcing final answer", "rounds", r.round)
	if r.agent.tracer != nil {
		r.agent.tracer.AddEvent(ctx, "forced_finalize", map[string]any{"rounds": r.round})
	}

	r.conv.AppendUser(ForceFinalizePrompt)

	reply, err := r.agent.generate(ctx, r.conv.Messages(), nil, r.round)
	if err != nil {
		r.logger.Warn("forced summarization failed, falling back to gathered results", "error", err)
		r.answer = fallbackAnswer(r.results)
		return stateDone
	}

	var text string
	switch v := reply.(type) {
	case *TextReply:
		text = v.Text
	case *ToolCallReply:
		r.logger.Warn("reasoning engine requested tools without declared tools", "calls", len(v.Calls))
		text = v.Text
	}

	r.conv.AppendReply(&TextReply{Text: text})
	r.agent.onMessage(ctx, text)
	r.answer = r.finalText(text)
	return stateDone
}

// finalText guards against blank answers from the engine.
func (r *loopRun) finalText(text string) string {
	if strings.TrimSpace(text) != "" {
		return text
	}
	r.logger.Warn("reasoning engine returned an empty answer")
	return fallbackAnswer(r.results)
}

func (x *Agent) generate(ctx context.Context, messages []Message, tools []ToolSpec, round int) (Reply, error) {
	if x.llmTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.llmTimeout)
		defer cancel()
	}

	if x.tracer != nil {
		ctx = x.tracer.StartLLMCall(ctx, round)
	}

	reply, err := x.llm.Generate(ctx, messages, tools)
	if err == nil && reply == nil {
		err = goerr.New("reasoning engine returned no reply")
	}

	if x.tracer != nil {
		x.tracer.EndLLMCall(ctx, llmCallData(round, messages, tools, reply), err)
	}

	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate reply", goerr.V("round", round))
	}
	return reply, nil
}

func (x *Agent) execute(ctx context.Context, call FunctionCall) ToolResult {
	observe(ctx, "tool_request", func() { x.toolRequestHook(ctx, call) })

	toolCtx := ctx
	if x.tracer != nil {
		toolCtx = x.tracer.StartToolExec(ctx, call.Name, call.Arguments)
	}

	// Tools get their own copy so the recorded arguments stay as requested.
	result := x.executor.Execute(toolCtx, call.Name, maps.Clone(call.Arguments))

	if x.tracer != nil {
		x.tracer.EndToolExec(toolCtx, result.Text, result.Failed)
	}

	observe(ctx, "tool_response", func() { x.toolResponseHook(ctx, call, result) })
	return result
}

func (x *Agent) onMessage(ctx context.Context, msg string) {
	observe(ctx, "message", func() { x.messageHook(ctx, msg) })
}

func truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + truncatedSuffix
}

func llmCallData(round int, messages []Message, tools []ToolSpec, reply Reply) *trace.LLMCallData {
	data := &trace.LLMCallData{
		Round:   round,
		Request: &trace.LLMRequest{},
	}

	for _, msg := range messages {
		tm := trace.Message{Role: string(msg.Role())}
		switch v := msg.(type) {
		case SystemMessage:
			tm.Content = v.Text
		case UserMessage:
			tm.Content = v.Text
		case AssistantMessage:
			tm.Content = v.Text
		case ToolMessage:
			tm.Content = v.Content
		}
		data.Request.Messages = append(data.Request.Messages, tm)
	}
	for _, tool := range tools {
		data.Request.Tools = append(data.Request.Tools, tool.Name)
	}

	if reply == nil {
		return data
	}

	usage := reply.TokenUsage()
	data.InputTokens = usage.InputTokens
	data.OutputTokens = usage.OutputTokens

	switch v := reply.(type) {
	case *TextReply:
		data.Response = &trace.LLMResponse{Text: v.Text}
	case *ToolCallReply:
		resp := &trace.LLMResponse{Text: v.Text}
		for _, call := range v.Calls {
			resp.FunctionCalls = append(resp.FunctionCalls, &trace.FunctionCall{
				ID:        call.ID,
				Name:      call.Name,
				Arguments: call.Arguments,
			})
		}
		data.Response = resp
	}
	return data
}
