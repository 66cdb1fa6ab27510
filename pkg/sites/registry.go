// Package sites loads the multisite registry of a Backdrop installation and
// resolves the --site selector against it.
package sites

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/supreme-majesty/backdrop-console/pkg/util"
)

// Site is one site directory under <root>/sites.
type Site struct {
	Dir          string   `json:"directory"`
	URLs         []string `json:"urls,omitempty"`
	Path         string   `json:"path"`
	SettingsFile string   `json:"settings_file,omitempty"`
}

// Registry is the read-only set of sites known to an installation.
type Registry struct {
	root      string
	sites     []Site
	byDir     map[string]int
	urlToDir  map[string]string
	mappedURL int
}

var sitesEntryPattern = regexp.MustCompile(`\$sites\[\s*['"]([^'"]+)['"]\s*\]\s*=\s*['"]([^'"]+)['"]\s*;`)

// Load builds the registry from sites/sites.php, the site directories that
// carry a settings.php, and extra URLs supplied by project config.
func Load(root string, extra map[string][]string) (*Registry, error) {
	r := &Registry{
		root:     root,
		byDir:    make(map[string]int),
		urlToDir: make(map[string]string),
	}
	sitesDir := filepath.Join(root, "sites")

	// 1. Directories with their own settings.php
	entries, err := os.ReadDir(sitesDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", sitesDir, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		settings := filepath.Join(sitesDir, e.Name(), "settings.php")
		if !util.Exists(settings) {
			continue
		}
		r.addDir(e.Name())
	}

	// 2. sites.php mapping
	mapping, err := parseSitesPHP(filepath.Join(sitesDir, "sites.php"))
	if err != nil {
		return nil, err
	}
	for _, m := range mapping {
		if !util.IsDir(filepath.Join(sitesDir, m.dir)) {
			return nil, &MissingSiteDirectoryError{URL: m.url, Dir: m.dir}
		}
		if err := r.addURL(m.url, m.dir); err != nil {
			return nil, err
		}
		r.mappedURL++
	}

	// 3. Project config additions
	dirs := make([]string, 0, len(extra))
	for dir := range extra {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	for _, dir := range dirs {
		if !util.IsDir(filepath.Join(sitesDir, dir)) {
			return nil, &MissingSiteDirectoryError{Dir: dir}
		}
		for _, u := range extra[dir] {
			if err := r.addURL(u, dir); err != nil {
				return nil, err
			}
		}
	}

	sort.Slice(r.sites, func(i, j int) bool { return r.sites[i].Dir < r.sites[j].Dir })
	for i, s := range r.sites {
		r.byDir[s.Dir] = i
	}
	return r, nil
}

type sitesEntry struct {
	url string
	dir string
}

func parseSitesPHP(path string) ([]sitesEntry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sites.php: %w", err)
	}

	var out []sitesEntry
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		// Commented-out examples are common in the shipped sites.php.
		if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "*") {
			continue
		}
		for _, m := range sitesEntryPattern.FindAllStringSubmatch(trimmed, -1) {
			out = append(out, sitesEntry{url: m[1], dir: m[2]})
		}
	}
	return out, nil
}

func (r *Registry) addDir(dir string) int {
	if i, ok := r.byDir[dir]; ok {
		return i
	}
	path := filepath.Join(r.root, "sites", dir)
	site := Site{Dir: dir, Path: path}
	if settings := filepath.Join(path, "settings.php"); util.Exists(settings) {
		site.SettingsFile = settings
	}
	r.sites = append(r.sites, site)
	r.byDir[dir] = len(r.sites) - 1
	return len(r.sites) - 1
}

func (r *Registry) addURL(url, dir string) error {
	key := normalizeURL(url)
	if owner, ok := r.urlToDir[key]; ok {
		if owner == dir {
			return nil
		}
		return fmt.Errorf("url %q is mapped to both %q and %q", url, owner, dir)
	}
	r.urlToDir[key] = dir
	i := r.addDir(dir)
	r.sites[i].URLs = append(r.sites[i].URLs, url)
	return nil
}

// normalizeURL strips a scheme and trailing slash so "https://a.test/" and
// "a.test" name the same site. It never rewrites the host itself.
func normalizeURL(s string) string {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	for _, scheme := range []string{"https://", "http://"} {
		if strings.HasPrefix(lower, scheme) {
			s = s[len(scheme):]
			break
		}
	}
	return strings.ToLower(strings.TrimRight(s, "/"))
}

// Root returns the installation root the registry was loaded from.
func (r *Registry) Root() string { return r.root }

// Sites returns the sites ordered by directory name.
func (r *Registry) Sites() []Site {
	out := make([]Site, len(r.sites))
	copy(out, r.sites)
	return out
}

// Lookup returns the site stored under dir.
func (r *Registry) Lookup(dir string) (*Site, bool) {
	i, ok := r.byDir[dir]
	if !ok {
		return nil, false
	}
	s := r.sites[i]
	return &s, true
}

// Multisite reports whether the installation serves more than one site.
func (r *Registry) Multisite() bool {
	return r.mappedURL > 0 || len(r.sites) > 1
}
