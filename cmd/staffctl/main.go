// Command staffctl manages the employee directory from the terminal. It
// works on the same slot as the server, so stop the server first when
// using the file or sqlite driver.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/staffdir/internal/config"
	"github.com/JonMunkholm/staffdir/internal/core"
	"github.com/JonMunkholm/staffdir/internal/logging"
	"github.com/JonMunkholm/staffdir/internal/remote"
	"github.com/JonMunkholm/staffdir/internal/slot"
)

func main() {
	_ = godotenv.Overload()

	if err := newRootCmd(os.Getenv, os.Stderr).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app is the state shared by subcommands once the store is open.
type app struct {
	cfg   *config.Config
	slot  slot.Slot
	store *core.Store
	dates core.DateFormatter
}

// newRootCmd wires the command tree. Logs go to logOut so exported data on
// stdout stays clean.
func newRootCmd(getenv config.Getenv, logOut io.Writer) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "staffctl",
		Short:         "Manage the employee directory",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context(), getenv, logOut)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	root.AddCommand(
		newListCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newDeleteCmd(a),
		newResetCmd(a),
	)
	return root
}

func (a *app) open(ctx context.Context, getenv config.Getenv, logOut io.Writer) error {
	cfg, err := config.LoadFrom(getenv)
	if err != nil {
		return err
	}
	slog.SetDefault(logging.New(logOut, cfg.Logging.Level, cfg.Logging.Format))

	s, err := slot.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open %s slot: %w", cfg.Storage.Driver, err)
	}

	api := remote.NewSimulator(remote.Options{
		FailureRate: cfg.API.FailureRate,
		Delay:       cfg.API.Delay,
		Seed:        uint64(cfg.API.RandomSeed),
	})
	store := core.NewStore(s, api, core.StoreOptions{
		SlotKey:     cfg.Storage.SlotKey,
		SeedLocator: cfg.API.SeedURL,
	})
	if err := store.Load(ctx); err != nil {
		_ = s.Close()
		return fmt.Errorf("%s: %w", core.FormatUserError(err), err)
	}

	a.cfg, a.slot, a.store = cfg, s, store
	return nil
}

func (a *app) close() error {
	if a.slot == nil {
		return nil
	}
	return a.slot.Close()
}
