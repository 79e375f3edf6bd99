package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rookhq/rook/internal/llm"
)

// ErrNoViableDrafts is returned when a merge is requested over an empty
// draft set. The run loop translates it into a failed run.
var ErrNoViableDrafts = errors.New("orchestrator: no viable drafts to merge")

// Merger collapses a set of successful drafts into a single text. Zero
// drafts is an error, one draft passes through untouched, and two or more
// trigger one additional model call over the concatenated candidates.
type Merger struct {
	exec       llm.CallExecutor
	maxTokens  int64
	maxRetries int
}

// NewMerger creates a Merger using the combining call's executor.
func NewMerger(exec llm.CallExecutor, maxTokens int64, maxRetries int) *Merger {
	return &Merger{exec: exec, maxTokens: maxTokens, maxRetries: maxRetries}
}

// Merge reduces the drafts to one text. The identity case returns the
// single draft verbatim so a lone good draft is never reworded. The
// returned CallResult carries the credential and attempt count of the
// merge call itself; for the identity case it mirrors the input result.
func (m *Merger) Merge(ctx context.Context, scenarioID string, drafts []llm.CallResult) (llm.CallResult, error) {
	switch len(drafts) {
	case 0:
		return llm.CallResult{}, ErrNoViableDrafts
	case 1:
		return drafts[0], nil
	}

	texts := make([]string, len(drafts))
	for i, d := range drafts {
		texts[i] = d.Text
	}

	req := llm.CallRequest{
		ScenarioID: scenarioID,
		System:     mergeSystemPrompt,
		Prompt:     buildMergePrompt(texts),
		MaxTokens:  m.maxTokens,
		MaxRetries: m.maxRetries,
	}
	res := m.exec.Execute(ctx, req)
	if !res.OK() {
		return res, fmt.Errorf("merge call failed: %s", res.Failure.Kind)
	}
	return res, nil
}

func buildMergePrompt(texts []string) string {
	var b strings.Builder
	b.WriteString("Combine the following email drafts into one final client email. ")
	b.WriteString("Keep the strongest subject line and the clearest body. ")
	b.WriteString("Return only the final email text, subject on the first line.\n")
	for i, t := range texts {
		fmt.Fprintf(&b, "\n--- Draft %d ---\n%s\n", i+1, t)
	}
	return b.String()
}
