package status

import (
	"bytes"
	"encoding/json"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supreme-majesty/backdrop-console/pkg/services"
	"github.com/supreme-majesty/backdrop-console/pkg/sites"
)

func render(t *testing.T, r *Report) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf))
	return buf.String()
}

func TestBuild_MultisiteUnselected(t *testing.T) {
	r := Build(Input{
		Version:    "1.27.1",
		Root:       "/app",
		Multisite:  true,
		PHPVersion: "8.2.12",
	})

	siteType, ok := r.Get(KeySiteType)
	require.True(t, ok)
	assert.Equal(t, SiteTypeMultisite, siteType)

	_, ok = r.Get(KeySiteDir)
	assert.False(t, ok, "no site directory when nothing is selected")
	_, ok = r.Get(KeySettingsFile)
	assert.False(t, ok)

	out := render(t, r)
	assert.Regexp(t, regexp.MustCompile(`Site type +Multisite`), out)
	assert.NotRegexp(t, regexp.MustCompile(`Site directory +multisite`), out)
	assert.NotContains(t, out, "Site directory")
}

func TestBuild_MultisiteSelected(t *testing.T) {
	probe := services.ProbeResult{State: services.ProbeFailed, Error: "connection refused"}
	r := Build(Input{
		Version:   "1.27.1",
		Root:      "/app",
		Multisite: true,
		Selection: sites.Selection{
			Selector: "multi-2.lndo.site",
			Site:     &sites.Site{Dir: "multi_two", URLs: []string{"multi-2.lndo.site"}},
		},
		SettingsFile: "/app/sites/multi_two/settings.php",
		Database:     services.ConnectionConfig{Host: "database", Name: "multi_two"},
		Probe:        &probe,
	})

	out := render(t, r)
	assert.Regexp(t, `Site type +Multisite`, out)
	assert.Regexp(t, `Site directory +multi_two`, out)
	assert.Regexp(t, `Site URL +multi-2\.lndo\.site`, out)
	assert.Regexp(t, `Database host +database:3306`, out)
	assert.Regexp(t, `Database connection +Failed: connection refused`, out)
}

func TestBuild_SingleSite(t *testing.T) {
	r := Build(Input{
		Version:      "1.27.1",
		Root:         "/app",
		SettingsFile: "/app/settings.php",
	})

	v, _ := r.Get(KeySiteType)
	assert.Equal(t, SiteTypeSingleSite, v)
	v, _ = r.Get(KeySettingsFile)
	assert.Equal(t, "/app/settings.php", v)
	_, ok := r.Get(KeyDBName)
	assert.False(t, ok)
}

func TestRender_AlignsValues(t *testing.T) {
	r := &Report{Fields: []Field{
		{Key: "a", Label: "Site type", Value: "Multisite"},
		{Key: "b", Label: "Backdrop CMS version", Value: "1.27.1"},
	}}

	out := render(t, r)
	assert.Equal(t, "  Site type              Multisite\n  Backdrop CMS version   1.27.1\n", out)
}

func TestRenderJSON(t *testing.T) {
	r := Build(Input{Version: "1.27.1", Root: "/app", Multisite: true})

	var buf bytes.Buffer
	require.NoError(t, r.RenderJSON(&buf))

	var got map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "Multisite", got[KeySiteType])
	assert.Equal(t, "1.27.1", got[KeyVersion])
	_, hasDir := got[KeySiteDir]
	assert.False(t, hasDir)
}
