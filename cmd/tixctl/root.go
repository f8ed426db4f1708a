package main

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kirinyoku/tix-ledger/internal/client"
	"github.com/kirinyoku/tix-ledger/internal/identity"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	flagServer  = "server"
	flagKey     = "key"
	flagTimeout = "timeout"
)

// cli carries what every subcommand needs: settings resolved through viper
// (flags first, then TIXCTL_* environment variables).
type cli struct {
	v *viper.Viper
}

func NewRootCommand() *cobra.Command {
	c := &cli{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "tixctl",
		Short: "Command-line client for the tixledger API",
		Long: `tixctl signs ledger transactions with a local Ed25519 key and submits them
to a tixledger server. It also reads catalog, event and ticket records.

EXAMPLES:
  tixctl keygen
  tixctl initialize
  tixctl create-event --title "Launch" --max 100 --price 2500
  tixctl buy-ticket 0
  tixctl use-ticket 0
  tixctl show event 0`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String(flagServer, "http://localhost:8080", "ledger API base URL")
	rootCmd.PersistentFlags().String(flagKey, "tixctl.key", "path to the signing key file")
	rootCmd.PersistentFlags().Duration(flagTimeout, 10*time.Second, "request timeout")

	_ = c.v.BindPFlags(rootCmd.PersistentFlags())
	c.v.SetEnvPrefix("TIXCTL")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	rootCmd.AddCommand(newKeygenCommand(c))
	rootCmd.AddCommand(newInitializeCommand(c))
	rootCmd.AddCommand(newCreateEventCommand(c))
	rootCmd.AddCommand(newBuyTicketCommand(c))
	rootCmd.AddCommand(newUseTicketCommand(c))
	rootCmd.AddCommand(newShowCommand(c))

	return rootCmd
}

func (c *cli) client() (*client.Client, error) {
	return client.New(c.v.GetString(flagServer), c.v.GetDuration(flagTimeout))
}

func (c *cli) signingKey() (ed25519.PrivateKey, error) {
	path := c.v.GetString(flagKey)
	private, err := identity.LoadKeypair(path)
	if err != nil {
		return nil, fmt.Errorf("%w (run `tixctl keygen` first)", err)
	}
	return private, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
