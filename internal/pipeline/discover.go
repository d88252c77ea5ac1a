package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/voxcart/voxcart/internal/model"
	"github.com/voxcart/voxcart/pkg/exa"
	"github.com/voxcart/voxcart/pkg/openai"
)

const discoverSystemPrompt = `You rank Amazon product search results. Given web search results for a shopping request, select the %d to %d most relevant purchasable Amazon products. Respond with ONLY a JSON array of objects, each with a single "asin" field holding the product's ASIN, e.g. [{"asin":"B0BTYCRJSS"},{"asin":"B0BTR9GYD3"}]. Extract ASINs from amazon.com/dp/ URLs in the results. Do not invent ASINs. Do not include any other fields or text.`

// DiscoveryOptions bounds the candidate set.
type DiscoveryOptions struct {
	MinCandidates int
	MaxCandidates int
	NumResults    int
}

func (o DiscoveryOptions) withDefaults() DiscoveryOptions {
	if o.MinCandidates <= 0 {
		o.MinCandidates = 4
	}
	if o.MaxCandidates <= 0 {
		o.MaxCandidates = 10
	}
	if o.NumResults <= 0 {
		o.NumResults = 5
	}
	return o
}

// Discover retrieves candidate marketplace identifiers for an intent: a
// neural web search over the intent terms, then a ranking LLM call over the
// results constrained to a strict JSON contract. An empty candidate set is a
// legitimate no-results outcome, not an error.
func Discover(ctx context.Context, search exa.Client, llm openai.Client, intent model.Intent, budget *model.BudgetRange, opts DiscoveryOptions) (model.CandidateSet, error) {
	opts = opts.withDefaults()

	query := buildSearchQuery(intent, budget)
	results, err := search.Search(ctx, query, exa.WithNumResults(opts.NumResults))
	if err != nil {
		return nil, eris.Wrap(err, "discover: search")
	}
	if len(results.Results) == 0 {
		zap.L().Info("discover: search returned no documents", zap.String("query", query))
		return model.CandidateSet{}, nil
	}

	resp, err := llm.ChatCompletion(ctx, openai.ChatCompletionRequest{
		Messages: []openai.Message{
			{Role: "system", Content: fmt.Sprintf(discoverSystemPrompt, opts.MinCandidates, opts.MaxCandidates)},
			{Role: "user", Content: formatSearchResults(query, results.Results)},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "discover: rank")
	}

	candidates, err := parseCandidates(resp.Text(), opts.MaxCandidates)
	if err != nil {
		return nil, err
	}

	zap.L().Info("discover: candidates selected",
		zap.String("query", query),
		zap.Int("count", len(candidates)),
	)
	return candidates, nil
}

// buildSearchQuery joins the intent terms into one marketplace-scoped search
// query, appending the budget window when set.
func buildSearchQuery(intent model.Intent, budget *model.BudgetRange) string {
	query := "best " + intent.Joined() + " site:amazon.com"
	if budget != nil {
		switch {
		case budget.Lower > 0 && budget.Upper > 0:
			query += fmt.Sprintf(" between $%.0f and $%.0f", budget.Lower, budget.Upper)
		case budget.Upper > 0:
			query += fmt.Sprintf(" under $%.0f", budget.Upper)
		case budget.Lower > 0:
			query += fmt.Sprintf(" over $%.0f", budget.Lower)
		}
	}
	return query
}

func formatSearchResults(query string, results []exa.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Shopping request: %s\n\nSearch results:\n", query)
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n%s\n", i+1, r.Title, r.URL)
		if r.Text != "" {
			text := r.Text
			if len(text) > 1500 {
				text = text[:1500]
			}
			fmt.Fprintf(&b, "%s\n", text)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// parseCandidates validates the ranking model's output against the contract:
// a JSON array of objects each carrying an identifier field. Entries missing
// the field are dropped; a non-array payload aborts the turn.
func parseCandidates(text string, maxCandidates int) (model.CandidateSet, error) {
	raw := cleanJSON(text)

	var entries []any
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, eris.Wrapf(ErrDiscoveryFormat, "discover: %s", raw)
	}

	candidates := make(model.CandidateSet, 0, len(entries))
	for _, entry := range entries {
		obj, ok := entry.(map[string]any)
		if !ok {
			zap.L().Debug("discover: dropping non-object entry")
			continue
		}
		asin, ok := obj["asin"].(string)
		if !ok || asin == "" {
			zap.L().Debug("discover: dropping entry without identifier")
			continue
		}
		candidates = append(candidates, asin)
		if len(candidates) >= maxCandidates {
			break
		}
	}
	return candidates, nil
}
