// Token usage accounting
package llm

// Usage represents token usage information for one completion turn or an
// aggregate over several turns. All counts are non-negative; missing wire
// fields are decoded as zero, never null-propagated.
type Usage struct {
	InputTokens      int `json:"input_tokens"`
	OutputTokens     int `json:"output_tokens"`
	CacheReadTokens  int `json:"cache_read_tokens,omitempty"`
	CacheWriteTokens int `json:"cache_write_tokens,omitempty"`
	ThinkingTokens   int `json:"thinking_tokens,omitempty"`
}

// Add returns the element-wise sum of two usage values. Usage forms a
// monoid under Add with the zero value as identity, which is what the tool
// loop relies on when aggregating per-turn usage.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:      u.InputTokens + other.InputTokens,
		OutputTokens:     u.OutputTokens + other.OutputTokens,
		CacheReadTokens:  u.CacheReadTokens + other.CacheReadTokens,
		CacheWriteTokens: u.CacheWriteTokens + other.CacheWriteTokens,
		ThinkingTokens:   u.ThinkingTokens + other.ThinkingTokens,
	}
}

// Total returns input + output + thinking tokens. Cache tokens are
// excluded: providers report them as an overlapping subset of input/output
// billing, so adding them here would double count.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens + u.ThinkingTokens
}

// IsZero reports whether no tokens have been recorded.
func (u Usage) IsZero() bool {
	return u == Usage{}
}
