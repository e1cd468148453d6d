package digest

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func pi(title, url string) PayloadItem {
	return PayloadItem{Title: title, URL: url}
}

func withKind(it PayloadItem, kind, action string, conf float64) PayloadItem {
	it.Kind = kind
	it.Intent = Intent{Action: action, Confidence: conf}
	return it
}

func movieItems(n int) []PayloadItem {
	out := make([]PayloadItem, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, withKind(pi(fmt.Sprintf("Movie trailer %02d", i), fmt.Sprintf("https://example.com/t/%d", i)), "misc", "", 0))
	}
	return out
}

func mustState(t *testing.T, p *Payload, opts Options) *State {
	t.Helper()
	s, err := BuildState(p, opts)
	require.NoError(t, err)
	return s
}

func keys(items []*Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.URL
	}
	return out
}
