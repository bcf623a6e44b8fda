// Package registry resolves package names to their latest published
// version on crates.io.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/autodd/autodd/internal/safeio"
	"github.com/autodd/autodd/internal/workspace"
)

const DefaultBaseURL = "https://crates.io/api/v1"

var (
	ErrNotFound      = errors.New("package not found in registry")
	ErrNetwork       = errors.New("registry request failed")
	ErrNoVersions    = errors.New("no usable versions published")
	ErrInternalCrate = errors.New("internal workspace package")
)

// Client queries the registry for the newest usable release of a package.
// Yanked releases and versions that do not parse as semver are ignored.
//
// Hyphenated names get a workspace check first: a package declared inside
// the surrounding workspace is internal and never resolved remotely.
type Client struct {
	BaseURL     string
	HTTPClient  *http.Client
	ProjectRoot string
	UserAgent   string
}

func NewClient(projectRoot string) *Client {
	return &Client{
		BaseURL:     DefaultBaseURL,
		HTTPClient:  &http.Client{Timeout: 30 * time.Second},
		ProjectRoot: projectRoot,
		UserAgent:   "autodd (https://github.com/autodd/autodd)",
	}
}

type versionsResponse struct {
	Versions []struct {
		Num    string `json:"num"`
		Yanked bool   `json:"yanked"`
	} `json:"versions"`
}

// ResolveLatest returns the highest non-yanked release as
// "major.minor.patch", with any pre-release or build metadata dropped.
func (c *Client) ResolveLatest(ctx context.Context, name string) (string, error) {
	if c.isInternalPackage(name) {
		return "", fmt.Errorf("%w: %s", ErrInternalCrate, name)
	}

	url := fmt.Sprintf("%s/crates/%s/versions", c.BaseURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNetwork, name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%w: %s: unexpected status %d", ErrNetwork, name, resp.StatusCode)
	}

	var payload versionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNetwork, name, err)
	}

	var latest *semver.Version
	for _, v := range payload.Versions {
		if v.Yanked {
			continue
		}
		parsed, parseErr := semver.StrictNewVersion(v.Num)
		if parseErr != nil {
			continue
		}
		if latest == nil || parsed.GreaterThan(latest) {
			latest = parsed
		}
	}
	if latest == nil {
		return "", fmt.Errorf("%w: %s", ErrNoVersions, name)
	}

	return fmt.Sprintf("%d.%d.%d", latest.Major(), latest.Minor(), latest.Patch()), nil
}

// isInternalPackage reports whether a hyphenated name is declared in the
// surrounding workspace's root manifest. Only hyphenated names are checked
// because those are the ones whose import spelling diverges from the
// registry spelling, the usual marker of a sibling workspace member.
func (c *Client) isInternalPackage(name string) bool {
	if c.ProjectRoot == "" || !strings.Contains(name, "-") {
		return false
	}

	root, err := workspace.FindRoot(c.ProjectRoot)
	if err != nil {
		return false
	}
	content, err := safeio.ReadFileUnder(root, workspace.ManifestPath(root))
	if err != nil {
		return false
	}

	normalized := strings.ReplaceAll(name, "-", "_")
	text := string(content)
	return strings.Contains(text, fmt.Sprintf("name = %q", name)) ||
		strings.Contains(text, fmt.Sprintf("name = %q", normalized))
}
