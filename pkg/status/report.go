// Package status assembles the typed report printed by `b status` and renders
// it as a table or JSON.
package status

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/supreme-majesty/backdrop-console/pkg/services"
	"github.com/supreme-majesty/backdrop-console/pkg/sites"
)

// Field keys, stable across text and JSON output.
const (
	KeyVersion      = "backdrop_version"
	KeyRoot         = "backdrop_root"
	KeySiteType     = "site_type"
	KeySiteDir      = "site_directory"
	KeySiteURLs     = "site_urls"
	KeySettingsFile = "settings_file"
	KeyDBDriver     = "database_driver"
	KeyDBHost       = "database_host"
	KeyDBName       = "database_name"
	KeyDBConnection = "database_connection"
	KeyPHPVersion   = "php_version"
	KeyWebServer    = "web_server"
)

const (
	SiteTypeMultisite  = "Multisite"
	SiteTypeSingleSite = "Single site"
)

// Field is one labelled row of the report.
type Field struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// Report is the structured result of `status`.
type Report struct {
	Fields []Field `json:"fields"`
}

// Input carries the facts collected for one invocation.
type Input struct {
	Version      string
	Root         string
	Multisite    bool
	Selection    sites.Selection
	SettingsFile string
	Database     services.ConnectionConfig
	Probe        *services.ProbeResult
	PHPVersion   string
	WebServer    string
}

// Build assembles a report. It does no I/O.
func Build(in Input) *Report {
	r := &Report{}
	r.add(KeyVersion, "Backdrop CMS version", in.Version)
	r.add(KeyRoot, "Backdrop root", in.Root)

	siteType := SiteTypeSingleSite
	if in.Multisite {
		siteType = SiteTypeMultisite
	}
	r.add(KeySiteType, "Site type", siteType)

	if site := in.Selection.Site; site != nil {
		r.add(KeySiteDir, "Site directory", site.Dir)
		if len(site.URLs) > 0 {
			r.add(KeySiteURLs, "Site URL", strings.Join(site.URLs, ", "))
		}
	}

	// An unselected multisite has no single settings.php that applies.
	if in.Multisite && !in.Selection.Selected() {
		r.addRuntime(in)
		return r
	}

	r.add(KeySettingsFile, "Settings file", in.SettingsFile)
	if in.Database.Name != "" {
		driver := in.Database.Driver
		if driver == "" {
			driver = "mysql"
		}
		r.add(KeyDBDriver, "Database driver", driver)
		r.add(KeyDBHost, "Database host", in.Database.Address())
		r.add(KeyDBName, "Database name", in.Database.Name)
	}
	if in.Probe != nil {
		r.add(KeyDBConnection, "Database connection", in.Probe.String())
	}

	r.addRuntime(in)
	return r
}

func (r *Report) addRuntime(in Input) {
	r.add(KeyPHPVersion, "PHP version", in.PHPVersion)
	r.add(KeyWebServer, "Web server", in.WebServer)
}

func (r *Report) add(key, label, value string) {
	if value == "" {
		return
	}
	r.Fields = append(r.Fields, Field{Key: key, Label: label, Value: value})
}

// Get returns the value stored under key.
func (r *Report) Get(key string) (string, bool) {
	for _, f := range r.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Render writes the report as an aligned two-column table.
func (r *Report) Render(w io.Writer) error {
	width := 0
	for _, f := range r.Fields {
		if len(f.Label) > width {
			width = len(f.Label)
		}
	}
	for _, f := range r.Fields {
		if _, err := fmt.Fprintf(w, "  %-*s   %s\n", width, f.Label, f.Value); err != nil {
			return err
		}
	}
	return nil
}

// RenderJSON writes the report as a key/value JSON object.
func (r *Report) RenderJSON(w io.Writer) error {
	out := make(map[string]string, len(r.Fields))
	for _, f := range r.Fields {
		out[f.Key] = f.Value
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
