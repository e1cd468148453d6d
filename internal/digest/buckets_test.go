package digest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/tabdigest/internal/taxonomy"
)

func TestQuickWins_OverflowToBacklog(t *testing.T) {
	s := mustState(t, &Payload{Items: movieItems(20)}, Options{})

	assert.Len(t, s.Buckets[taxonomy.BucketQuick], 15)
	assert.Len(t, s.Buckets[taxonomy.BucketBacklog], 5)
	assert.Equal(t, 0, s.Dropped)
	assert.Len(t, s.Items, 20)

	for _, it := range s.Buckets[taxonomy.BucketQuick] {
		assert.Equal(t, QuickLeisure, it.QuickCat)
		assert.Equal(t, ReasonLeisureKeyword, it.QuickWhy)
	}
	assert.Equal(t, "https://example.com/t/16", s.Buckets[taxonomy.BucketBacklog][0].URL)
}

func TestQuickWins_OverflowDropped(t *testing.T) {
	s := mustState(t, &Payload{Items: movieItems(20)}, Options{
		Override: []byte(`{"quickWinsOverflowToBacklog": false}`),
	})

	assert.Len(t, s.Buckets[taxonomy.BucketQuick], 15)
	assert.Empty(t, s.Buckets[taxonomy.BucketBacklog])
	assert.Equal(t, 5, s.Dropped)
	assert.Len(t, s.Items, 15)
}

func TestQuickWins_Disabled(t *testing.T) {
	s := mustState(t, &Payload{Items: movieItems(3)}, Options{
		Override: []byte(`{"includeQuickWins": false}`),
	})

	assert.Empty(t, s.Buckets[taxonomy.BucketQuick])
	assert.Len(t, s.Buckets[taxonomy.BucketBacklog], 3)

	md, err := s.Markdown()
	require.NoError(t, err)
	assert.NotContains(t, md, sectionTitles[taxonomy.BucketQuick])
	assert.Contains(t, md, "## "+sectionTitles[taxonomy.BucketBacklog])
}

func TestQuickWins_MiniCategories(t *testing.T) {
	s := mustState(t, &Payload{Items: []PayloadItem{
		withKind(pi("Kindle", "https://www.amazon.com/dp/B0"), "misc", "", 0),
		withKind(pi("Offers", "https://shop.example/deals"), "misc", "", 0),
		withKind(pi("Random", "https://random.example/page"), "misc", "", 0),
	}}, Options{})

	quick := s.Buckets[taxonomy.BucketQuick]
	require.Len(t, quick, 2)
	why := map[string]string{}
	for _, it := range quick {
		assert.Equal(t, QuickShopping, it.QuickCat)
		why[it.Title] = it.QuickWhy
	}
	assert.Equal(t, ReasonShoppingDomain, why["Kindle"])
	assert.Equal(t, ReasonShoppingKeyword, why["Offers"])

	backlog := s.Buckets[taxonomy.BucketBacklog]
	require.Len(t, backlog, 1)
	assert.Equal(t, "Random", backlog[0].Title)
	assert.Equal(t, ReasonFallbackMisc, backlog[0].QuickWhy)
}

func TestBucketFor(t *testing.T) {
	tests := []struct {
		name string
		item PayloadItem
		want taxonomy.Bucket
	}{
		{"login page", pi("Login", "https://example.com/login"), taxonomy.BucketAdmin},
		{"provided auth", withKind(pi("Account", "https://example.com/me"), "auth", "", 0), taxonomy.BucketAdmin},
		{"admin beats provided docs", withKind(pi("Sign in", "https://example.com/login"), "docs", "read", 0.9), taxonomy.BucketAdmin},
		{"chat", pi("Chat", "https://chatgpt.com/c/1"), taxonomy.BucketAdmin},
		{"video", pi("Talk", "https://www.youtube.com/watch?v=1"), taxonomy.BucketMedia},
		{"repo", pi("golang/go", "https://github.com/golang/go"), taxonomy.BucketRepos},
		{"trello board", pi("Board", "https://trello.com/b/abc/board"), taxonomy.BucketProjects},
		{"notion without hint", pi("Team wiki", "https://www.notion.so/Team-wiki-123"), taxonomy.BucketDocs},
		{"notion with hint", pi("Sprint planning", "https://www.notion.so/Sprint-planning-456"), taxonomy.BucketProjects},
		{"drive folder", pi("Shared", "https://drive.google.com/drive/folders/1"), taxonomy.BucketProjects},
		{"console", pi("EC2", "https://console.aws.amazon.com/ec2"), taxonomy.BucketTools},
		{"provided tool", withKind(pi("Calc", "https://calc.example"), "tool", "", 0), taxonomy.BucketTools},
		{"docs site", pi("Python", "https://docs.python.org/3/"), taxonomy.BucketDocs},
		{"plain article", pi("Essay", "https://essays.example/on-things"), taxonomy.BucketDocs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mustState(t, &Payload{Items: []PayloadItem{tt.item}}, Options{
				Override: []byte(`{"highPriorityLimit": 0}`),
			})
			require.Len(t, s.Items, 1)
			assert.Equal(t, tt.want, s.Items[0].Bucket)
		})
	}
}

func TestCoverage_MixedPayload(t *testing.T) {
	items := []PayloadItem{
		pi("Login", "https://example.com/login"),
		pi("Local", "http://localhost:8080"),
		pi("Settings", "chrome://settings"),
		withKind(pi("Data model", "https://docs.python.org/3/reference/datamodel.html"), "docs", "reference", 0.9),
		pi("golang/go", "https://github.com/golang/go"),
		pi("Talk", "https://www.youtube.com/watch?v=1"),
		pi("Board", "https://trello.com/b/abc/board"),
		pi("EC2", "https://console.aws.amazon.com/ec2"),
		withKind(pi("Kindle", "https://www.amazon.com/dp/B0"), "misc", "", 0),
		withKind(pi("Random", "https://random.example/page"), "misc", "", 0),
		pi("Essay", "https://essays.example/on-things"),
		pi("Essay again", "https://essays.example/on-things?utm_source=x"),
	}
	s := mustState(t, &Payload{Items: items}, Options{})

	assert.Equal(t, 1, s.Deduped)
	assert.Equal(t, len(s.Items), s.Buckets.Len())
	assert.Len(t, s.Buckets, len(taxonomy.SectionOrder))

	seen := map[string]int{}
	for name, bucket := range s.Buckets {
		for _, it := range bucket {
			seen[it.Key]++
			assert.Equal(t, name, it.Bucket)
			if it.DomainCategory.IsAdmin() {
				assert.Equal(t, taxonomy.BucketAdmin, name, it.URL)
			}
		}
	}
	for _, it := range s.Items {
		assert.Equal(t, 1, seen[it.Key], it.URL)
	}
	assert.Len(t, s.Buckets[taxonomy.BucketAdmin], 3)
}
