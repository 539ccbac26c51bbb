package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/smazurov/rpirtspd/internal/mounts"
	"github.com/smazurov/rpirtspd/internal/params"
	"github.com/smazurov/rpirtspd/internal/pipeline"
	"github.com/spf13/cobra"
)

// CreateValidateCmd creates the validate command. settings is called after
// the configuration file has been loaded.
func CreateValidateCmd(settings func() mounts.Settings) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Print and test-parse the mount descriptions",
		Long: `Builds the launch description of every mount point from the current configuration, ` +
			`parses each one and checks that the capture sources exist. Exits non-zero on failure.`,
		Run: func(_ *cobra.Command, _ []string) {
			s := settings()
			if err := Validate(os.Stdout, s, quiet); err != nil {
				fmt.Fprintf(os.Stderr, "Validation failed:\n%v\n", err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only report the result")
	return cmd
}

// Validate writes every mount and its configurable stages to w, then probes
// the descriptions.
func Validate(w io.Writer, s mounts.Settings, quiet bool) error {
	list := mounts.Build(s)
	if !quiet {
		for _, mt := range list {
			fmt.Fprintf(w, "%s (%s)\n  %s\n", mt.Path, mt.Label, mt.Description)
			inst, err := pipeline.Parse(mt.Description)
			if err != nil {
				continue
			}
			if mt.Configurable {
				for _, role := range inst.Roles() {
					fmt.Fprintf(w, "  %-14s %s\n", role, role.StageName())
				}
			}
			inst.Close()
		}
	}

	if err := mounts.Probe(s, list); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d mount points OK, %d roles configurable\n", len(list), len(params.Roles()))
	return nil
}
