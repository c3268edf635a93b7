package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"beatmeta/internal/beatport"
)

const (
	tokenFileMode = 0o600
	tokenDirMode  = 0o700
)

// ErrCorruptToken marks a token file that exists but cannot be decoded.
var ErrCorruptToken = errors.New("corrupt token file")

// TokenFile persists the session token as a flat JSON object.
type TokenFile struct {
	Path string
}

func NewTokenFile(path string) *TokenFile {
	return &TokenFile{Path: path}
}

// Load reads the stored token. A missing file returns an error matching
// os.ErrNotExist; undecodable content returns an error matching ErrCorruptToken.
func (f *TokenFile) Load() (*beatport.Token, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}

	token, err := beatport.DecodeToken(data)
	if err != nil {
		return nil, fmt.Errorf("%w at %s: %w", ErrCorruptToken, f.Path, err)
	}
	return token, nil
}

// Save writes the token, creating the parent directory when needed.
func (f *TokenFile) Save(token *beatport.Token) error {
	if token == nil {
		return errors.New("no token to save")
	}

	data, err := json.Marshal(token.Encode())
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.Path), tokenDirMode); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	if err := os.WriteFile(f.Path, data, tokenFileMode); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}
