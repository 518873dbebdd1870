package keywords

// Category is a configured category name with its keywords.
type Category struct {
	Name     string   `mapstructure:"name"`
	Keywords []string `mapstructure:"keywords"`
}

// Rule is a compiled category.
type Rule struct {
	Name    string
	matcher *Matcher
}

// Rules are evaluated in declaration order.
type Rules []Rule

// CompileCategories builds Rules once for the lifetime of a run. Categories
// without a name or keywords are dropped.
func CompileCategories(categories []Category) Rules {
	rules := make(Rules, 0, len(categories))
	for _, c := range categories {
		m := NewMatcher(c.Keywords)
		if c.Name == "" || m.re == nil {
			continue
		}
		rules = append(rules, Rule{Name: c.Name, matcher: m})
	}
	return rules
}

// Match returns the names of every rule matching text, in rule order.
func (rs Rules) Match(text string) []string {
	var names []string
	for _, r := range rs {
		if r.matcher.Match(text) {
			names = append(names, r.Name)
		}
	}
	return names
}
