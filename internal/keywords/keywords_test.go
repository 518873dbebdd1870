package keywords_test

import (
	"testing"

	"github.com/jonesrussell/north-cloud/link-aggregator/internal/keywords"
	"github.com/stretchr/testify/assert"
)

func TestMatcher(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		words []string
		text  string
		want  bool
	}{
		{name: "word inside other word", words: []string{"design"}, text: "foofoodesignedfoo", want: false},
		{name: "standalone word", words: []string{"bar"}, text: "something bar something", want: true},
		{name: "case insensitive", words: []string{"Crypto"}, text: "why CRYPTO matters", want: true},
		{name: "url path segment", words: []string{"video"}, text: "https://example.com/video/123", want: true},
		{name: "non-word edges", words: []string{"c++"}, text: "learning c++ today", want: true},
		{name: "regex metacharacters quoted", words: []string{"a.b"}, text: "axb", want: false},
		{name: "blank words ignored", words: []string{"", "  "}, text: "anything", want: false},
		{name: "empty text", words: []string{"go"}, text: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, keywords.NewMatcher(tt.words).Match(tt.text))
		})
	}
}

func TestNilMatcher(t *testing.T) {
	t.Parallel()

	var m *keywords.Matcher
	assert.False(t, m.Match("text"))
}

func TestRules_MatchInDeclarationOrder(t *testing.T) {
	t.Parallel()

	rules := keywords.CompileCategories([]keywords.Category{
		{Name: "Video", Keywords: []string{"video", "youtube"}},
		{Name: "Empty"},
		{Name: "Foo", Keywords: []string{"foo"}},
		{Name: "Bar", Keywords: []string{"bar"}},
	})

	assert.Len(t, rules, 3)
	assert.Equal(t, []string{"Video", "Bar"}, rules.Match("bar youtube"))
	assert.Nil(t, rules.Match("nothing here"))
}
