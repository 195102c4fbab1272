package style

// FilterConfig selects relations by their tags
type FilterConfig struct {
	// Include lists tag keys and accepted values; any match passes.
	// An empty value list accepts any value, "*" as well.
	Include map[string][]string `yaml:"include,omitempty"`
	// Exclude is applied after Include
	Exclude map[string][]string `yaml:"exclude,omitempty"`
	// RequireAny needs at least one of these keys present
	RequireAny []string `yaml:"require_any,omitempty"`
}

// Filter matches tags against a FilterConfig
type Filter struct {
	cfg *FilterConfig
}

// NewFilter creates a filter from configuration
func NewFilter(cfg *FilterConfig) *Filter {
	if cfg == nil {
		return &Filter{cfg: &FilterConfig{}}
	}
	return &Filter{cfg: cfg}
}

// Match reports whether the tags pass every configured condition
func (f *Filter) Match(tags map[string]string) bool {
	if len(f.cfg.RequireAny) > 0 {
		found := false
		for _, key := range f.cfg.RequireAny {
			if _, ok := tags[key]; ok {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(f.cfg.Include) > 0 {
		matched := false
		for key, values := range f.cfg.Include {
			if v, ok := tags[key]; ok && valueListed(values, v) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	for key, values := range f.cfg.Exclude {
		if v, ok := tags[key]; ok && valueListed(values, v) {
			return false
		}
	}

	return true
}

// HasFilter returns true if any condition is configured
func (f *Filter) HasFilter() bool {
	return len(f.cfg.Include) > 0 || len(f.cfg.Exclude) > 0 || len(f.cfg.RequireAny) > 0
}

func valueListed(values []string, v string) bool {
	if len(values) == 0 {
		return true
	}
	for _, want := range values {
		if want == v || want == "*" {
			return true
		}
	}
	return false
}
