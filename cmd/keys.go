package cmd

import (
	"encoding/base64"
	"fmt"

	"github.com/gorilla/securecookie"
	"github.com/spf13/cobra"

	"github.com/example/tablebot/internal/config"
)

const hashKeySize = 32

func newKeysCmd() *cobra.Command {
	var blockSize int

	c := &cobra.Command{
		Use:   "keys",
		Short: "Generate COOKIE_HASH_KEY and COOKIE_BLOCK_KEY values for the web chat session cookie (base64)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if blockSize <= 0 {
				return fmt.Errorf("--block-size must be 16, 24 or 32")
			}
			cfg := config.Config{
				CookieHashKey:  securecookie.GenerateRandomKey(hashKeySize),
				CookieBlockKey: securecookie.GenerateRandomKey(blockSize),
			}
			if cfg.CookieHashKey == nil || cfg.CookieBlockKey == nil {
				return fmt.Errorf("generate cookie keys: random source unavailable")
			}
			if err := cfg.RequireCookieKeys(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "export COOKIE_HASH_KEY=%s\n", base64.StdEncoding.EncodeToString(cfg.CookieHashKey))
			fmt.Fprintf(out, "export COOKIE_BLOCK_KEY=%s\n", base64.StdEncoding.EncodeToString(cfg.CookieBlockKey))
			return nil
		},
	}

	c.Flags().IntVar(&blockSize, "block-size", 32, "block key size in bytes: 16, 24 or 32 (AES-128/192/256)")
	return c
}
