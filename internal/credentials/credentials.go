package credentials

import (
	"encoding/json"
	"fmt"
	"os"
)

// Credentials is a portal username and its download token.
type Credentials struct {
	Username string
	Token    string
}

// Provider yields credentials usable for authenticated downloads.
// The CLI wires an interactive terminal provider; tests inject a Static one.
type Provider interface {
	Credentials() (Credentials, error)
}

// Static is a Provider returning fixed credentials.
type Static Credentials

func (s Static) Credentials() (Credentials, error) {
	return Credentials(s), nil
}

const (
	usernameKey = "service-username"
	tokenKey    = "service-token"
)

// Store persists credentials inside the game's player-data.json. The file
// holds unrelated game state, so unknown keys are read and written back
// untouched.
type Store struct {
	path string
}

// NewStore creates a store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Lookup returns the persisted credentials, if any.
func (s *Store) Lookup() (Credentials, bool, error) {
	doc, err := s.read()
	if err != nil {
		return Credentials{}, false, err
	}
	username, _ := doc[usernameKey].(string)
	token, _ := doc[tokenKey].(string)
	if username == "" || token == "" {
		return Credentials{}, false, nil
	}
	return Credentials{Username: username, Token: token}, true, nil
}

// Save writes the credentials, preserving every other key in the file.
func (s *Store) Save(creds Credentials) error {
	doc, err := s.read()
	if err != nil {
		return err
	}
	doc[usernameKey] = creds.Username
	doc[tokenKey] = creds.Token

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding player data: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing player data: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing player data: %w", err)
	}
	return nil
}

func (s *Store) read() (map[string]any, error) {
	doc := map[string]any{}
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading player data: %w", err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing player data: %w", err)
	}
	return doc, nil
}
