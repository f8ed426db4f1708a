package main

import (
	"crypto/ed25519"

	"github.com/kirinyoku/tix-ledger/internal/domain"
	"github.com/kirinyoku/tix-ledger/internal/identity"
	"github.com/spf13/cobra"
)

func newShowCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Read catalog, event and ticket records",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "catalog",
		Short: "Show the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := c.client()
			if err != nil {
				return err
			}
			v, err := api.Catalog(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), v)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "event EVENT_ID",
		Short: "Show an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEventID(args[0])
			if err != nil {
				return err
			}
			api, err := c.client()
			if err != nil {
				return err
			}
			v, err := api.Event(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), v)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "ticket EVENT_ID [OWNER]",
		Short: "Show a ticket; OWNER defaults to the signing key",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEventID(args[0])
			if err != nil {
				return err
			}

			var owner domain.Key
			if len(args) == 2 {
				if owner, err = domain.ParseKey(args[1]); err != nil {
					return err
				}
			} else {
				private, err := c.signingKey()
				if err != nil {
					return err
				}
				if owner, err = identity.KeyOf(private.Public().(ed25519.PublicKey)); err != nil {
					return err
				}
			}

			api, err := c.client()
			if err != nil {
				return err
			}
			v, err := api.Ticket(cmd.Context(), id, owner)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), v)
		},
	})

	return cmd
}
