package commands

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
)

func sendCmd() *cobra.Command {
	var literal bool

	cmd := &cobra.Command{
		Use:   "send <name|hex>",
		Short: "Transmit a stored or literal code",
		Long: "Replays a capture through the target RM device. The argument " +
			"is a stored code name, or raw hex bytes with --hex.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := resolveCode(args[0], literal)
			if err != nil {
				return err
			}

			dev, err := authTarget(cmd)
			if err != nil {
				return err
			}
			defer dev.Close()

			return dev.SendData(cmd.Context(), data)
		},
	}

	cmd.Flags().BoolVar(&literal, "hex", false, "treat the argument as hex bytes")

	return cmd
}

// resolveCode loads the named capture from the store, or decodes the
// literal hex argument.
func resolveCode(arg string, literal bool) ([]byte, error) {
	if literal {
		data, err := hex.DecodeString(arg)
		if err != nil {
			return nil, fmt.Errorf("decode hex code: %w", err)
		}
		return data, nil
	}

	store, err := OpenCodeStore(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	rec, err := store.Get(arg)
	if err != nil {
		return nil, err
	}
	return rec.Data, nil
}

func codesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codes",
		Short: "Manage stored captures",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored captures",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			store, err := OpenCodeStore(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.List()
			if err != nil {
				return err
			}
			out, err := formatCodes(records, outputFormat)
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a stored capture",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			store, err := OpenCodeStore(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			if _, err := store.Get(args[0]); err != nil {
				return err
			}
			return store.Delete(args[0])
		},
	})

	return cmd
}
