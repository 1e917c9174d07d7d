package sentiment

import (
	"context"
	"fmt"
	"strings"

	"github.com/swingdesk/swingdesk/config"
	"github.com/swingdesk/swingdesk/llm"
	"github.com/swingdesk/swingdesk/logger"
	"github.com/swingdesk/swingdesk/tools"
)

// Verdict is the terminal outcome of one collection run.
type Verdict string

const (
	// VerdictSatisfied means the sufficiency policy was met.
	VerdictSatisfied Verdict = "satisfied"
	// VerdictExhausted means the escalation ladder and source list ran out
	// first. The collected evidence is still usable, flagged low-confidence.
	VerdictExhausted Verdict = "exhausted"
)

// Policy is the sufficiency rule set: how much evidence is enough and which
// lookback windows may be tried, narrowest first.
type Policy struct {
	MinEvidence int
	MinSources  int
	LadderDays  []int
}

// PolicyFromConfig builds the policy from service configuration.
func PolicyFromConfig(cfg config.SentimentConfig) Policy {
	return Policy{
		MinEvidence: cfg.MinEvidence,
		MinSources:  cfg.MinSources,
		LadderDays:  cfg.LookbackLadderDays,
	}
}

// SufficiencyState is the accumulated state of one collection run. It lives
// for exactly one Collect call and is never shared or persisted.
type SufficiencyState struct {
	symbol   string
	company  string
	articles []Article

	days      int
	ladderIdx int
	round     int

	// triedInScope marks tools already invoked (or skipped as unavailable)
	// at the current lookback window. Reset on every scope expansion.
	triedInScope map[string]bool
	// preferred is the reasoner's requested tool order for the next round.
	preferred []string
}

// sufficiencyVerdict is the structured response of the reasoning step.
type sufficiencyVerdict struct {
	Sufficient bool   `json:"sufficient"`
	Reasoning  string `json:"reasoning"`
	Plan       struct {
		Action      string   `json:"action"`
		ToolsToCall []string `json:"tools_to_call"`
		Parameters  struct {
			Days       int `json:"days"`
			MaxResults int `json:"max_results"`
		} `json:"parameters"`
	} `json:"plan"`
}

// Collector runs the adaptive collection loop: select a source, fetch,
// evaluate sufficiency, expand scope, until satisfied or exhausted.
type Collector struct {
	registry *tools.Registry
	reason   llm.Client
	policy   Policy
	log      *logger.Logger
}

// NewCollector creates a Collector over the registered evidence sources.
func NewCollector(registry *tools.Registry, reason llm.Client, policy Policy, log *logger.Logger) *Collector {
	return &Collector{
		registry: registry,
		reason:   reason,
		policy:   policy,
		log:      log.WithComponent("sentiment.collector"),
	}
}

// Collect gathers evidence for one symbol. It always terminates: the round
// count is hard-capped by ladder length times tool count, independent of
// what the sources or the reasoner return.
func (c *Collector) Collect(ctx context.Context, symbol, company string) ([]Article, Verdict) {
	st := &SufficiencyState{
		symbol:       symbol,
		company:      company,
		days:         c.policy.LadderDays[0],
		triedInScope: make(map[string]bool),
	}

	maxRounds := len(c.policy.LadderDays) * len(c.registry.List())
	for st.round = 1; st.round <= maxRounds; st.round++ {
		if ctx.Err() != nil {
			break
		}

		name, ok := c.selectTool(st)
		if !ok {
			// Every source tried at this scope; widen or give up.
			if !c.expand(st, 0) {
				break
			}
			continue
		}

		c.fetch(ctx, st, name)

		verdict := c.evaluate(ctx, st)
		if verdict.Sufficient {
			c.log.Info("evidence sufficient", logger.Fields(
				logger.FieldSymbol, symbol,
				"articles", len(st.articles),
				"rounds", st.round,
			))
			return st.articles, VerdictSatisfied
		}

		st.preferred = verdict.Plan.ToolsToCall
		if days := verdict.Plan.Parameters.Days; days > st.days {
			c.expand(st, days)
		}
	}

	c.log.Warn("evidence collection exhausted", logger.Fields(
		logger.FieldSymbol, symbol,
		"articles", len(st.articles),
		"rounds", st.round,
	))
	return st.articles, VerdictExhausted
}

// selectTool picks the next source in ordered preference: the reasoner's
// requested tools first, then registration order. Tools already tried at
// this scope are skipped; unavailable tools are skipped with a logged
// degradation and count as tried.
func (c *Collector) selectTool(st *SufficiencyState) (string, bool) {
	candidates := make([]string, 0, len(st.preferred)+4)
	candidates = append(candidates, st.preferred...)
	for _, d := range c.registry.List() {
		candidates = append(candidates, d.Name)
	}

	for _, name := range candidates {
		if st.triedInScope[name] {
			continue
		}
		t, ok := c.registry.Get(name)
		if !ok {
			// The reasoner may hallucinate a tool name.
			st.triedInScope[name] = true
			continue
		}
		st.triedInScope[name] = true
		if t.Unavailable {
			c.log.Warn("tool unavailable, degrading to next source", logger.Fields(
				logger.FieldTool, name,
				logger.FieldSymbol, st.symbol,
			))
			continue
		}
		return name, true
	}
	return "", false
}

// fetch invokes one source and merges its items into the evidence, dropping
// duplicate titles. Fetch failures degrade to an empty round.
func (c *Collector) fetch(ctx context.Context, st *SufficiencyState, name string) {
	result, err := c.registry.Call(ctx, name, tools.Args{
		"symbol":       st.symbol,
		"company_name": st.company,
		"days":         st.days,
	})
	if err != nil {
		c.log.Warn("fetch round failed", logger.Fields(
			logger.FieldTool, name,
			logger.FieldSymbol, st.symbol,
			logger.FieldError, err.Error(),
		))
		return
	}

	articles, ok := result.([]Article)
	if !ok {
		c.log.Warn("tool returned unexpected type", logger.Fields(logger.FieldTool, name))
		return
	}
	st.articles = dedupe(append(st.articles, articles...))

	c.log.Debug("fetch round complete", logger.Fields(
		logger.FieldTool, name,
		logger.FieldSymbol, st.symbol,
		"days", st.days,
		"total", len(st.articles),
	))
}

// expand widens the lookback window to the next ladder rung, or to the
// narrowest rung covering the suggested window, and resets the per-scope
// tried set. Returns false when the ladder is already exhausted.
func (c *Collector) expand(st *SufficiencyState, suggestedDays int) bool {
	next := st.ladderIdx + 1
	if suggestedDays > 0 {
		for next < len(c.policy.LadderDays) && c.policy.LadderDays[next] < suggestedDays {
			next++
		}
		if next >= len(c.policy.LadderDays) {
			next = len(c.policy.LadderDays) - 1
		}
	}
	if next <= st.ladderIdx || next >= len(c.policy.LadderDays) {
		if st.ladderIdx+1 >= len(c.policy.LadderDays) {
			return false
		}
		next = st.ladderIdx + 1
	}

	st.ladderIdx = next
	st.days = c.policy.LadderDays[next]
	st.triedInScope = make(map[string]bool)

	c.log.Info("expanding search window", logger.Fields(
		logger.FieldSymbol, st.symbol,
		"days", st.days,
	))
	return true
}

// evaluate asks the reasoning model whether the accumulated evidence is
// adequate. A model failure or unparsable response falls back to the plain
// count-and-diversity policy so the loop never stalls on the model.
func (c *Collector) evaluate(ctx context.Context, st *SufficiencyState) sufficiencyVerdict {
	var verdict sufficiencyVerdict
	err := llm.CompleteStructured(ctx, c.reason, sufficiencySystemPrompt, c.sufficiencyPrompt(st), &verdict)
	if err == nil {
		c.log.Debug("sufficiency verdict", logger.Fields(
			logger.FieldSymbol, st.symbol,
			"sufficient", verdict.Sufficient,
			"action", verdict.Plan.Action,
		))
		return verdict
	}

	c.log.Warn("reasoning failed, using fallback policy", logger.Fields(
		logger.FieldSymbol, st.symbol,
		logger.FieldError, err.Error(),
	))
	return c.fallbackVerdict(st)
}

// fallbackVerdict applies the mechanical policy: enough items from enough
// distinct sources.
func (c *Collector) fallbackVerdict(st *SufficiencyState) sufficiencyVerdict {
	var verdict sufficiencyVerdict
	verdict.Sufficient = len(st.articles) >= c.policy.MinEvidence &&
		countSources(st.articles) >= c.policy.MinSources
	if verdict.Sufficient {
		verdict.Reasoning = fmt.Sprintf("%d articles meets threshold", len(st.articles))
		verdict.Plan.Action = "proceed"
		return verdict
	}
	verdict.Reasoning = fmt.Sprintf("%d articles below threshold", len(st.articles))
	verdict.Plan.Action = "expand_search"
	verdict.Plan.Parameters.Days = st.days * 3
	if verdict.Plan.Parameters.Days > 180 {
		verdict.Plan.Parameters.Days = 180
	}
	return verdict
}

const sufficiencySystemPrompt = `You are a senior financial sentiment analyst working on a risk-sensitive trading system.

Your job is NOT to be optimistic.
Your job is to PREVENT decisions based on weak, biased, or insufficient data.

Principles you MUST follow:
1. Financial sentiment analysis requires BROAD and DIVERSE data.
2. Small sample sizes are EXTREMELY risky and often misleading.
3. If there are fewer than 2x the minimum threshold, generally assume data is INSUFFICIENT.
4. If articles are concentrated in a short time window, assume EVENT BIAS.
5. If data comes from a single source type, assume SOURCE BIAS.
6. When in doubt, ALWAYS choose to gather more data.

Respond STRICTLY in JSON with this structure:
{
  "sufficient": true,
  "reasoning": "concise explanation focused on data adequacy, bias risk, and coverage quality",
  "plan": {
    "action": "proceed | expand_search | use_alternative | check_social_media | combine_sources",
    "tools_to_call": ["tool_name"],
    "parameters": {"days": 90, "max_results": 50}
  }
}`

// sufficiencyPrompt renders the evidence situation plus the available tool
// catalog so the model can plan the next round.
func (c *Collector) sufficiencyPrompt(st *SufficiencyState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Context:\n")
	fmt.Fprintf(&b, "- Company: %s (%s)\n", st.company, st.symbol)
	fmt.Fprintf(&b, "- Articles available: %d\n", len(st.articles))
	fmt.Fprintf(&b, "- Distinct sources: %d\n", countSources(st.articles))
	fmt.Fprintf(&b, "- Time coverage: last %d days\n", st.days)
	fmt.Fprintf(&b, "- Minimum threshold: %d articles from %d sources\n\n", c.policy.MinEvidence, c.policy.MinSources)

	b.WriteString("Available tools:\n")
	for _, d := range c.registry.List() {
		fmt.Fprintf(&b, "- %s: %s\n", d.Name, d.Description)
	}
	return b.String()
}
