package main

import (
	"crypto/ed25519"
	"fmt"
	"strconv"
	"time"

	"github.com/kirinyoku/tix-ledger/internal/domain"
	"github.com/kirinyoku/tix-ledger/internal/identity"
	"github.com/spf13/cobra"
)

func newKeygenCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Create the signing key if missing and print its public key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.v.GetString(flagKey)
			private, created, err := identity.LoadOrGenerateKeypair(path)
			if err != nil {
				return err
			}

			key, err := identity.KeyOf(private.Public().(ed25519.PublicKey))
			if err != nil {
				return err
			}

			if created {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", path)
			}
			fmt.Fprintln(cmd.OutOrStdout(), key.String())
			return nil
		},
	}
}

func newInitializeCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "initialize",
		Short: "Create the catalog with this key as its authority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.submit(cmd, domain.Instruction{Op: domain.OpInitialize})
		},
	}
	addNonceFlag(cmd)
	return cmd
}

func newCreateEventCommand(c *cli) *cobra.Command {
	var (
		title           string
		description     string
		maxParticipants uint32
		price           uint64
	)

	cmd := &cobra.Command{
		Use:   "create-event",
		Short: "Create an event organized by this key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.submit(cmd, domain.Instruction{
				Op:              domain.OpCreateEvent,
				Title:           title,
				Description:     description,
				MaxParticipants: maxParticipants,
				TicketPrice:     price,
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "event title (max 100 bytes)")
	cmd.Flags().StringVar(&description, "description", "", "event description (max 500 bytes)")
	cmd.Flags().Uint32Var(&maxParticipants, "max", 0, "maximum participants")
	cmd.Flags().Uint64Var(&price, "price", 0, "ticket price in the smallest currency unit")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("max")
	addNonceFlag(cmd)

	return cmd
}

func newBuyTicketCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buy-ticket EVENT_ID",
		Short: "Buy a ticket for an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEventID(args[0])
			if err != nil {
				return err
			}
			return c.submit(cmd, domain.Instruction{Op: domain.OpBuyTicket, EventID: id})
		},
	}
	addNonceFlag(cmd)
	return cmd
}

func newUseTicketCommand(c *cli) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "use-ticket EVENT_ID",
		Short: "Redeem a ticket; only its owner can",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEventID(args[0])
			if err != nil {
				return err
			}

			instr := domain.Instruction{Op: domain.OpUseTicket, EventID: id}
			if owner != "" {
				if instr.Owner, err = domain.ParseKey(owner); err != nil {
					return err
				}
			}
			return c.submit(cmd, instr)
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "ticket owner key (defaults to the signing key)")
	addNonceFlag(cmd)

	return cmd
}

func addNonceFlag(cmd *cobra.Command) {
	cmd.Flags().Uint64("nonce", 0, "instruction nonce (defaults to the current time)")
}

func (c *cli) submit(cmd *cobra.Command, instr domain.Instruction) error {
	private, err := c.signingKey()
	if err != nil {
		return err
	}

	api, err := c.client()
	if err != nil {
		return err
	}

	instr.Nonce, _ = cmd.Flags().GetUint64("nonce")
	if instr.Nonce == 0 {
		instr.Nonce = uint64(time.Now().UnixNano())
	}

	receipt, err := api.SignAndSubmit(cmd.Context(), private, instr)
	if err != nil {
		return err
	}

	if receipt.Replayed {
		fmt.Fprintln(cmd.ErrOrStderr(), "transaction was already applied; showing the stored result")
	}
	return printJSON(cmd.OutOrStdout(), receipt)
}

func parseEventID(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid event id %q", s)
	}
	return uint32(v), nil
}
