package portal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

var (
	// ErrModNotFound indicates the portal has no mod by that name.
	ErrModNotFound = errors.New("mod not found")

	// ErrAuth indicates the portal rejected the supplied credentials.
	ErrAuth = errors.New("authentication failed")
)

// InfoJSON is the metadata a release declares about itself. The same
// structure is embedded in every mod archive as info.json.
type InfoJSON struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Dependencies []string `json:"dependencies"`
}

// Release is one published, downloadable version of a mod.
type Release struct {
	Version     string   `json:"version"`
	GameVersion string   `json:"game_version"`
	DownloadURL string   `json:"download_url"`
	FileName    string   `json:"file_name"`
	FileSize    int64    `json:"file_size"`
	InfoJSON    InfoJSON `json:"info_json"`
}

// Mod is a portal catalog entry. Releases come back in portal order,
// newest first; callers rely on that ordering and must not re-sort.
type Mod struct {
	Name     string    `json:"name"`
	Title    string    `json:"title"`
	Owner    string    `json:"owner"`
	Summary  string    `json:"summary"`
	Releases []Release `json:"releases"`
}

// SearchResult is one row of a portal search page.
type SearchResult struct {
	Name    string `json:"name"`
	Title   string `json:"title"`
	Owner   string `json:"owner"`
	Summary string `json:"summary"`
}

// Client talks to the remote mod portal. Metadata is fetched fresh per
// query and never cached across runs.
type Client struct {
	baseURL string
	authURL string
	client  *http.Client
}

const defaultAuthURL = "https://auth.factorio.com"

// NewClient creates a portal client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		authURL: defaultAuthURL,
		client:  &http.Client{},
	}
}

// NewClientWithAuth creates a portal client with a non-default auth endpoint.
func NewClientWithAuth(baseURL, authURL string) *Client {
	c := NewClient(baseURL)
	c.authURL = strings.TrimSuffix(authURL, "/")
	return c
}

// BaseURL returns the configured portal base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetMod fetches the full release list for a named mod.
func (c *Client) GetMod(name string) (*Mod, error) {
	apiURL := fmt.Sprintf("%s/api/mods/%s", c.baseURL, url.PathEscape(name))

	resp, err := c.client.Get(apiURL)
	if err != nil {
		return nil, fmt.Errorf("querying portal: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrModNotFound, name)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("portal API error: HTTP %d", resp.StatusCode)
	}

	var mod Mod
	if err := json.NewDecoder(resp.Body).Decode(&mod); err != nil {
		return nil, fmt.Errorf("parsing portal response: %w", err)
	}
	return &mod, nil
}

// Search queries the portal for mods matching query. limit caps the page
// size; zero means the portal default.
func (c *Client) Search(query string, limit int) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	if limit > 0 {
		params.Set("page_size", fmt.Sprintf("%d", limit))
	}
	apiURL := fmt.Sprintf("%s/api/mods?%s", c.baseURL, params.Encode())

	resp, err := c.client.Get(apiURL)
	if err != nil {
		return nil, fmt.Errorf("querying portal: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("portal API error: HTTP %d", resp.StatusCode)
	}

	var page struct {
		Results []SearchResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("parsing portal response: %w", err)
	}
	return page.Results, nil
}

// Login exchanges a username and password for a download token.
func (c *Client) Login(username, password string) (string, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	resp, err := c.client.PostForm(c.authURL+"/api-login", form)
	if err != nil {
		return "", fmt.Errorf("contacting auth service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading auth response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var msg struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &msg) == nil && msg.Message != "" {
			return "", fmt.Errorf("%w: %s", ErrAuth, msg.Message)
		}
		return "", fmt.Errorf("%w: HTTP %d", ErrAuth, resp.StatusCode)
	}

	// The auth service answers with a one-element JSON array.
	var tokens []string
	if err := json.Unmarshal(body, &tokens); err != nil || len(tokens) == 0 {
		return "", fmt.Errorf("%w: unexpected auth response", ErrAuth)
	}
	return tokens[0], nil
}

// Fetch downloads raw bytes from a portal URL. A relative URL (the usual
// shape of Release.DownloadURL) is resolved against the portal base.
func (c *Client) Fetch(rawURL string, params url.Values) ([]byte, error) {
	u, err := c.resolveURL(rawURL)
	if err != nil {
		return nil, err
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}

	resp, err := c.client.Get(u.String())
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading %s: HTTP %d", u, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", u, err)
	}
	return data, nil
}

func (c *Client) resolveURL(rawURL string) (*url.URL, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("bad portal URL %q: %w", c.baseURL, err)
	}
	ref, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("bad download URL %q: %w", rawURL, err)
	}
	return base.ResolveReference(ref), nil
}
