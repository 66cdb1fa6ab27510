package sites

import "strings"

// Selection is the outcome of resolving a selector. A nil Site means no site
// was selected, which is different from selecting a site.
type Selection struct {
	Selector string `json:"selector,omitempty"`
	Site     *Site  `json:"site,omitempty"`
}

// Selected reports whether a specific site was chosen.
func (s Selection) Selected() bool { return s.Site != nil }

// Dir returns the selected directory, or "" when nothing is selected.
func (s Selection) Dir() string {
	if s.Site == nil {
		return ""
	}
	return s.Site.Dir
}

// Resolve maps a selector (empty, a directory name or a site URL) to a site.
// Once a selector is given there is no fallback: it resolves or it fails.
func (r *Registry) Resolve(selector string) (Selection, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return Selection{}, nil
	}
	if !r.Multisite() {
		return Selection{}, ErrNotMultisite
	}

	dirMatch, hasDir := r.Lookup(selector)

	var urlMatch *Site
	if owner, ok := r.urlToDir[normalizeURL(selector)]; ok {
		urlMatch, _ = r.Lookup(owner)
	}

	switch {
	case hasDir && urlMatch != nil && urlMatch.Dir != dirMatch.Dir:
		return Selection{}, &AmbiguousSelectorError{
			Selector:   selector,
			Candidates: []string{dirMatch.Dir, urlMatch.Dir},
		}
	case hasDir:
		return Selection{Selector: selector, Site: dirMatch}, nil
	case urlMatch != nil:
		return Selection{Selector: selector, Site: urlMatch}, nil
	}

	return Selection{}, &UnknownSiteError{Selector: selector, Known: r.dirs()}
}

func (r *Registry) dirs() []string {
	out := make([]string, 0, len(r.sites))
	for _, s := range r.sites {
		out = append(out, s.Dir)
	}
	return out
}
