package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := bootstrap(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	db, _, err := openStore(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	closeStore(db)
	fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", cfg.DB.Driver)
	return nil
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert demo users and requests into empty tables",
	Long: `Insert the demo users and requests. Tables that already hold rows are
left untouched, so running seed twice is harmless.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := bootstrap(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	db, res, err := openStore(cmd.Context(), cfg, true)
	if err != nil {
		return err
	}
	closeStore(db)
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d users, %d requests\n", res.Users, res.Requests)
	return nil
}
