package sites

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotMultisite is returned when --site is used on a single-site installation.
var ErrNotMultisite = errors.New("the --site option is only available on multisite installations")

// UnknownSiteError means the selector matched no directory and no URL.
type UnknownSiteError struct {
	Selector string
	Known    []string
}

func (e *UnknownSiteError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("unknown site %q", e.Selector)
	}
	return fmt.Sprintf("unknown site %q (available: %s)", e.Selector, strings.Join(e.Known, ", "))
}

// AmbiguousSelectorError means the selector names one site by directory and
// another by URL.
type AmbiguousSelectorError struct {
	Selector   string
	Candidates []string
}

func (e *AmbiguousSelectorError) Error() string {
	return fmt.Sprintf("site selector %q is ambiguous: matches %s", e.Selector, strings.Join(e.Candidates, " and "))
}

// MissingSiteDirectoryError means sites.php or .b.yaml points at a directory
// that does not exist.
type MissingSiteDirectoryError struct {
	URL string
	Dir string
}

func (e *MissingSiteDirectoryError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("site directory %q does not exist", e.Dir)
	}
	return fmt.Sprintf("sites.php maps %q to missing directory %q", e.URL, e.Dir)
}
