package retriever

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"go-mas/internal/agents/retriever/handler"
	"go-mas/internal/agents/worker"
	"go-mas/internal/services/search"
	"go-mas/pkg/blackboard"
	"go-mas/pkg/data"
	"go-mas/pkg/logger"
	"go-mas/pkg/memory/buffer"
	"go-mas/pkg/models"
)

const (
	Name = "retriever"

	// SufficiencyThreshold is the number of relevant results that ends the rounds early.
	SufficiencyThreshold = 3
	// MaxSearchRounds caps the search attempts of one invocation.
	MaxSearchRounds = 3
)

var ErrNoPlan = errors.New("retriever: plan is missing")

// Relevance decides whether a result matches any of the search terms.
type Relevance func(r models.SearchResult, terms []string) bool

type Retriever struct {
	handler    *handler.Handler
	searcher   search.Searcher
	maxResults int
	relevant   Relevance
}

type Option func(*Retriever)

// WithRelevance replaces the default term-overlap relevance check.
func WithRelevance(fn Relevance) Option {
	return func(r *Retriever) {
		if fn != nil {
			r.relevant = fn
		}
	}
}

func New(llm handler.Generator, searcher search.Searcher, maxResults int, opts ...Option) *Retriever {
	r := &Retriever{
		handler:    handler.New(llm),
		searcher:   searcher,
		maxResults: maxResults,
		relevant:   TermOverlap,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Retriever) Name() string {
	return Name
}

// round is what one search attempt did.
type round struct {
	Keywords []string `json:"keywords"`
	Results  int      `json:"results"`
	Relevant int      `json:"relevant"`
	Error    string   `json:"error,omitempty"`
}

type proposal struct {
	Keywords []string `json:"keywords"`
	Strategy string   `json:"strategy"`
	Reason   string   `json:"reason"`
}

func (r *Retriever) Invoke(ctx context.Context, board *blackboard.Store, inv worker.Invocation) worker.Outcome {
	l := log.With().Str(logger.AgentNameField, Name).Logger()
	budget := worker.NewBudget(inv.MaxRounds)
	transcript := buffer.Memories{}

	raw := board.Read(blackboard.PlanTopic, nil)
	if raw == nil {
		return worker.Fail(0, transcript, ErrNoPlan)
	}
	var plan models.PlanDocument
	if err := blackboard.Decode(raw, &plan); err != nil {
		return worker.Fail(0, transcript, fmt.Errorf("retriever: decode plan: %w", err))
	}

	keywords := clean(plan.SearchKeywords)
	if len(keywords) == 0 {
		keywords = clean([]string{plan.Query})
	}
	// one round for the search itself and one kept back for the write
	if budget.Remaining() < 2 || len(keywords) == 0 {
		return worker.Fail(0, transcript, fmt.Errorf("retriever: %w", worker.ErrRoundsExhausted))
	}

	var (
		rounds     []round
		tried      [][]string
		used       []string
		results    []models.SearchResult
		seen       = map[string]bool{}
		relevant   int
		allErrored = true
	)
	queryTerms := Terms(plan.Query)

	for n := 1; n <= MaxSearchRounds; n++ {
		if err := ctx.Err(); err != nil {
			return worker.Fail(budget.Used(), transcript, err)
		}
		_ = budget.Take()

		query := strings.Join(keywords, " ")
		found, err := r.searcher.Search(ctx, query, r.maxResults)
		tried = append(tried, keywords)
		used = appendUnique(used, keywords...)
		cur := round{Keywords: keywords}
		if err != nil {
			cur.Error = err.Error()
			l.Warn().Err(err).Int(logger.RoundField, n).Msg("search failed")
		} else {
			allErrored = false
			terms := append(Terms(query), queryTerms...)
			for _, res := range found {
				key := res.URL
				if key == "" {
					key = res.Title + "\x00" + res.Snippet
				}
				if seen[key] {
					continue
				}
				seen[key] = true
				results = append(results, res)
				cur.Results++
				if r.relevant(res, terms) {
					cur.Relevant++
				}
			}
			relevant += cur.Relevant
		}
		rounds = append(rounds, cur)
		transcript.Add(buffer.Memory{Question: "web_search " + query, Answer: observe(cur)})
		l.Info().Int(logger.RoundField, n).Int("relevant", relevant).Msg("search round done")

		if relevant >= SufficiencyThreshold || n == MaxSearchRounds {
			break
		}
		// a new round needs one round to diversify, one to search and one to write
		if budget.Remaining() < 3 {
			break
		}
		_ = budget.Take()
		next, ok := r.diversify(ctx, plan, keywords, tried, rounds, &transcript)
		if !ok {
			l.Info().Int(logger.RoundField, n).Msg("no new keywords left to try")
			break
		}
		keywords = next
	}

	doc := models.RetrievalDocument{
		Query:          plan.Query,
		SearchKeywords: used,
		Results:        results,
		Status:         status(allErrored, results),
		Rounds:         len(rounds),
		Metadata: map[string]any{
			"api_limitations":  "the search backend may return few results; rounds diversify keywords",
			"retrieval_note":   fmt.Sprintf("%d relevant results over %d rounds", relevant, len(rounds)),
			"relevant_results": relevant,
			"rounds":           rounds,
		},
	}
	if results == nil {
		doc.Results = []models.SearchResult{}
	}
	if err := budget.Take(); err != nil {
		return worker.Fail(budget.Used(), transcript, fmt.Errorf("retriever: %w", err))
	}
	board.Write(blackboard.RetrievalTopic, doc, false)
	l.Info().Str("status", string(doc.Status)).Int("rounds", doc.Rounds).Msg("retrieval written")
	return worker.Complete(budget.Used(), transcript)
}

// diversify picks the next keyword set: the model's proposal first, then
// deterministic variants. It reports false when every candidate was already tried.
func (r *Retriever) diversify(ctx context.Context, plan models.PlanDocument, current []string, tried [][]string, rounds []round, transcript *buffer.Memories) ([]string, bool) {
	previous, _ := json.Marshal(rounds)
	candidates := [][]string{}

	hRes := r.handler.Diversify(ctx, plan.Query, string(previous))
	if hRes.Error != nil {
		log.Warn().Str(logger.AgentNameField, Name).Err(hRes.Error).Msg("keyword proposal failed, using fallbacks")
		transcript.Add(buffer.Memory{Question: "diversify", Answer: "error: " + hRes.Error.Error()})
	} else {
		transcript.Add(buffer.Memory{Question: hRes.Question, Answer: hRes.Answer})
		if match, err := data.SanitizeAnswer(hRes.Answer); err == nil {
			var p proposal
			if err := json.Unmarshal([]byte(match), &p); err == nil {
				candidates = append(candidates, clean(p.Keywords))
			}
		}
	}
	candidates = append(candidates,
		split(current),
		broader(current),
		narrower(current, plan.Query),
		Terms(plan.Query),
	)

	for _, c := range candidates {
		if len(c) == 0 || triedBefore(tried, c) {
			continue
		}
		return c, true
	}
	return nil, false
}

func status(allErrored bool, results []models.SearchResult) models.RetrievalStatus {
	switch {
	case allErrored:
		return models.RetrievalError
	case len(results) == 0:
		return models.RetrievalNoResults
	default:
		return models.RetrievalSuccess
	}
}

func observe(r round) string {
	if r.Error != "" {
		return "error: " + r.Error
	}
	return fmt.Sprintf("%d new results, %d relevant", r.Results, r.Relevant)
}

func triedBefore(tried [][]string, c []string) bool {
	k := setKey(c)
	for _, t := range tried {
		if setKey(t) == k {
			return true
		}
	}
	return false
}

func setKey(keywords []string) string {
	norm := make([]string, 0, len(keywords))
	for _, k := range keywords {
		norm = appendUnique(norm, strings.ToLower(strings.TrimSpace(k)))
	}
	sort.Strings(norm)
	return strings.Join(norm, "\x00")
}

func clean(keywords []string) []string {
	res := []string{}
	for _, k := range keywords {
		k = strings.Join(strings.Fields(k), " ")
		if k != "" {
			res = appendUnique(res, k)
		}
	}
	return res
}

func appendUnique(list []string, items ...string) []string {
	for _, item := range items {
		dup := false
		for _, have := range list {
			if strings.EqualFold(have, item) {
				dup = true
				break
			}
		}
		if !dup {
			list = append(list, item)
		}
	}
	return list
}

// split breaks phrases into single words.
func split(keywords []string) []string {
	res := []string{}
	for _, k := range keywords {
		res = appendUnique(res, strings.Fields(k)...)
	}
	return res
}

// broader drops the last, most specific keyword or word.
func broader(keywords []string) []string {
	if len(keywords) > 1 {
		return append([]string{}, keywords[:len(keywords)-1]...)
	}
	words := split(keywords)
	if len(words) > 1 {
		return []string{strings.Join(words[:len(words)-1], " ")}
	}
	return nil
}

// narrower adds the first query term the keywords do not mention yet.
func narrower(keywords []string, query string) []string {
	joined := strings.ToLower(strings.Join(keywords, " "))
	for _, t := range Terms(query) {
		if !strings.Contains(joined, t) {
			return append(append([]string{}, keywords...), t)
		}
	}
	return nil
}
