package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/beehive-org/beehive/internal/beehive/domain"
	"github.com/beehive-org/beehive/internal/supervisor"
)

var injectRolesAll bool

var injectRolesCmd = &cobra.Command{
	Use:   "inject-roles [bee]",
	Short: "Re-inject role documents without restarting the hive",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInjectRoles,
}

func init() {
	injectRolesCmd.Flags().BoolVar(&injectRolesAll, "all", false, "inject every bee's role document")
	rootCmd.AddCommand(injectRolesCmd)
}

func runInjectRoles(cmd *cobra.Command, args []string) error {
	if !injectRolesAll && len(args) == 0 {
		return exitErr(ExitError, fmt.Errorf("specify a bee or pass --all"))
	}

	h, err := hiveFromFlags()
	if err != nil {
		return err
	}
	defer h.Close()

	docs, err := loadRoleDocs(h.cfg)
	if err != nil {
		return exitErr(ExitError, fmt.Errorf("loading role documents: %w", err))
	}

	if !injectRolesAll {
		bee, err := beeArg(args[0])
		if err != nil {
			return exitErr(ExitError, err)
		}
		filtered := make([]supervisor.RoleDoc, 0, 1)
		for _, d := range docs {
			if d.Bee == bee {
				filtered = append(filtered, d)
			}
		}
		if len(filtered) == 0 {
			return exitErr(ExitError, fmt.Errorf("no role document found for %s", bee))
		}
		docs = filtered
	}

	if err := h.supervisor.Init(cmd.Context(), docs); err != nil {
		return exitErr(ExitError, err)
	}

	names := make([]domain.BeeName, 0, len(docs))
	for _, d := range docs {
		names = append(names, d.Bee)
	}
	fmt.Printf("injected roles: %v\n", names)
	return nil
}
