package cmd

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/ArowuTest/etherlotto-backend/pkg/randomness"
	"github.com/spf13/cobra"
)

func newSeedCmd() *cobra.Command {
	var (
		size   int
		verify string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate a hash-chain seed and its public commitment",
		Long: "Generate a hash-chain seed and its public commitment.\n" +
			"Publish the commitment before the first draw; reveal the seed later so anyone can replay the outcomes\n" +
			"from each receipt's tickets digest. A revealed seed no longer hides later rounds, so start a new seed\n" +
			"and commitment for every reveal period.\n" +
			"With --verify, check a revealed seed against a commitment instead.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if verify != "" {
				if len(args) != 1 {
					return fmt.Errorf("--verify needs the revealed seed as argument")
				}
				seed, err := hex.DecodeString(args[0])
				if err != nil {
					return fmt.Errorf("seed is not hex: %w", err)
				}
				if !randomness.VerifyCommitment(seed, verify) {
					return fmt.Errorf("seed does not match commitment")
				}
				fmt.Fprintln(out, "ok")
				return nil
			}

			if size < 16 {
				return fmt.Errorf("seed must be at least 16 bytes, got %d", size)
			}
			seed := make([]byte, size)
			if _, err := rand.Read(seed); err != nil {
				return err
			}
			fmt.Fprintf(out, "seed:       %s\n", hex.EncodeToString(seed))
			fmt.Fprintf(out, "commitment: %s\n", randomness.Commit(seed))
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "bytes", 32, "seed length in bytes")
	cmd.Flags().StringVar(&verify, "verify", "", "commitment to check a revealed seed against")
	return cmd
}
