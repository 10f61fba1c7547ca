// Package ceremonykey generates the HMAC secret that signs ceremony-binding
// cookies, formatted as an env assignment ready for deployment config.
package ceremonykey

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
)

// Secrets shorter than this cannot key HMAC-SHA256 safely, matching the
// minimum the web signer enforces.
const minSecretBytes = 16

// Config holds configuration for ceremony secret generation.
type Config struct {
	Bytes int
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{Bytes: 32}
	fs.IntVar(&cfg.Bytes, "bytes", cfg.Bytes, "number of random bytes (default: 32)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run generates the secret and writes it to out.
func Run(cfg Config, out io.Writer, reader io.Reader) error {
	if cfg.Bytes < minSecretBytes {
		return fmt.Errorf("bytes must be at least %d", minSecretBytes)
	}
	if out == nil {
		return errors.New("output is required")
	}
	if reader == nil {
		reader = rand.Reader
	}

	buf := make([]byte, cfg.Bytes)
	if _, err := io.ReadFull(reader, buf); err != nil {
		return fmt.Errorf("generate random bytes: %w", err)
	}
	_, err := fmt.Fprintf(out, "APPLYWIZE_CEREMONY_SECRET=%s\n", hex.EncodeToString(buf))
	return err
}
