// Package destinations implements the command-line interface for managing
// delivery destinations and their tracked keywords.
package destinations

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Rierra/fblstner/internal/config"
	"github.com/Rierra/fblstner/internal/registry"
	"github.com/Rierra/fblstner/internal/store"
)

// Command returns the destinations command tree.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "destinations",
		Short: "Manage delivery destinations and their keywords",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(
		listCommand(),
		addCommand(),
		removeCommand(),
		setEnabledCommand("enable", true),
		setEnabledCommand("disable", false),
		addKeywordCommand(),
		removeKeywordCommand(),
	)
	return cmd
}

func listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all destinations",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, _, _, err := loadState()
			if err != nil {
				return err
			}
			renderTable(reg.List())
			return nil
		},
	}
}

func addCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <id> <name>",
		Short: "Register a new destination",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(func(reg *registry.Registry) error {
				return reg.Add(args[0], args[1])
			})
		},
	}
}

func removeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a destination",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(func(reg *registry.Registry) error {
				return reg.Remove(args[0])
			})
		},
	}
}

func setEnabledCommand(use string, enabled bool) *cobra.Command {
	short := "Enable a destination"
	if !enabled {
		short = "Disable a destination without removing it"
	}
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(func(reg *registry.Registry) error {
				return reg.SetEnabled(args[0], enabled)
			})
		},
	}
}

func addKeywordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add-keyword <id> <keyword>",
		Short: "Track a keyword for a destination",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(func(reg *registry.Registry) error {
				return reg.AddKeyword(args[0], args[1])
			})
		},
	}
}

func removeKeywordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-keyword <id> <keyword>",
		Short: "Stop tracking a keyword for a destination",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(func(reg *registry.Registry) error {
				return reg.RemoveKeyword(args[0], args[1])
			})
		},
	}
}

// loadState reads the snapshot into a fresh registry, returning the file
// store and raw snapshot so mutations can be written back with the
// initialization state intact.
func loadState() (*registry.Registry, *store.Snapshot, *store.FileStore, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	snapshots := store.NewFileStore(filepath.Join(cfg.Storage.DataDir, cfg.Storage.SnapshotFile))
	snap, err := snapshots.Load()
	if err != nil {
		return nil, nil, nil, err
	}

	reg := registry.New()
	snap.ApplyToRegistry(reg)
	return reg, snap, snapshots, nil
}

// mutate applies fn to the persisted registry and writes the snapshot back.
func mutate(fn func(reg *registry.Registry) error) error {
	reg, snap, snapshots, err := loadState()
	if err != nil {
		return err
	}

	if err := fn(reg); err != nil {
		return err
	}

	return snapshots.Save(store.FromRegistry(reg, snap.Initialized))
}

// renderTable displays destinations in a formatted table.
func renderTable(destinations []registry.Destination) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"ID", "Name", "Enabled", "Keywords"})
	for _, dest := range destinations {
		t.AppendRow(table.Row{
			dest.ID,
			dest.Name,
			dest.Enabled,
			strings.Join(dest.Keywords, ", "),
		})
	}
	t.Render()
}
