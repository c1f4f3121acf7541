// Copyright 2024 LatentFS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"vmount/internal/config"
	"vmount/internal/mounts"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that every declared mount can be applied",
	Long: `Builds the table from the declaration and --mount flags and reports the
outcome of every mount in order.

Returns exit code 0 if ALL mounts were applied, non-zero otherwise.
Use -q/--quiet to suppress output (useful in scripts).`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

var checkQuiet bool

func init() {
	checkCmd.Flags().BoolVarP(&checkQuiet, "quiet", "q", false, "Suppress output, only set exit code")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ok := color.New(color.FgGreen).SprintFunc()
	rejected := color.New(color.FgRed, color.Bold).SprintFunc()
	out := cmd.OutOrStdout()

	if !checkQuiet {
		fmt.Fprintf(out, "Base: %s\n", tableConfig.Base)
	}

	table := mounts.New(tableConfig.Base)
	failed := 0
	tableConfig.Apply(table, func(decl config.MountDecl, err error) {
		if err != nil {
			failed++
		}
		if checkQuiet {
			return
		}
		if err != nil {
			fmt.Fprintf(out, "%s %s -> %s: %v\n", rejected("REJECTED"), decl.Virtual, decl.Target, err)
			return
		}
		fmt.Fprintf(out, "%s       %s -> %s\n", ok("OK"), decl.Virtual, decl.Target)
	})

	total := len(tableConfig.Mounts)
	if !checkQuiet {
		fmt.Fprintf(out, "%d of %d mounts applied\n", total-failed, total)
	}
	if failed > 0 {
		return fmt.Errorf("%d mount(s) rejected", failed)
	}
	return nil
}
