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

	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <virtual-path>...",
	Short: "Resolve virtual paths to target paths",
	Long: `Resolves each virtual path through its deepest mount point.

Returns a non-zero exit code if any path is outside the virtual namespace
(a path must be "/" or start with "/").

Examples:
  vmount resolve /work/kunde1/documents/contract.pdf
  vmount resolve / /work /work/other`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	table, err := buildTable(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, arg := range args {
		target, ok := table.Resolve(virtualArg(arg))
		if !ok {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: outside the virtual namespace\n", arg)
			failed++
			continue
		}
		fmt.Fprintf(out, "%s -> %s\n", arg, target)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d paths could not be resolved", failed, len(args))
	}
	return nil
}
