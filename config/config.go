package config

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/sethvargo/go-envconfig"

	"library-lending/library"
)

// Borrow modes accepted in LIBRARY_BORROW_MODE.
const (
	BorrowModeSession = "session"
	BorrowModeLegacy  = "legacy"
)

type Config struct {
	UserFile   string `env:"LIBRARY_USER_FILE,   default=users.json"`
	CatalogDB  string `env:"LIBRARY_CATALOG_DB,  default=library.db"`
	BorrowMode string `env:"LIBRARY_BORROW_MODE, default=session"`
	LogLevel   string `env:"LOG_LEVEL,           default=info"`
	LogPretty  bool   `env:"LOG_PRETTY,          default=true"`

	Cipher CipherConfig
}

// CipherConfig selects the user file key. Passphrase wins over the hex key;
// with neither set the built-in key is used.
type CipherConfig struct {
	KeyHex     string `env:"LIBRARY_CIPHER_KEY"`
	IVHex      string `env:"LIBRARY_CIPHER_IV"`
	Passphrase string `env:"LIBRARY_PASSPHRASE"`
	Salt       string `env:"LIBRARY_PASSPHRASE_SALT, default=library-lending"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.BorrowMode != BorrowModeSession && cfg.BorrowMode != BorrowModeLegacy {
		return nil, fmt.Errorf("load config: unknown borrow mode %q", cfg.BorrowMode)
	}
	return &cfg, nil
}

// NewCipher builds the user file cipher described by c.
func (c CipherConfig) NewCipher() (*library.Cipher, error) {
	key := []byte(library.DefaultKey)
	iv := []byte(library.DefaultIV)

	switch {
	case c.Passphrase != "":
		key = library.DeriveKey(c.Passphrase, c.Salt)
	case c.KeyHex != "":
		k, err := hex.DecodeString(c.KeyHex)
		if err != nil {
			return nil, fmt.Errorf("decode LIBRARY_CIPHER_KEY: %w", err)
		}
		key = k
	}
	if c.IVHex != "" {
		v, err := hex.DecodeString(c.IVHex)
		if err != nil {
			return nil, fmt.Errorf("decode LIBRARY_CIPHER_IV: %w", err)
		}
		iv = v
	}
	return library.NewCipher(key, iv)
}
