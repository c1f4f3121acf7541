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

var reverseCmd = &cobra.Command{
	Use:   "reverse <target-path>...",
	Short: "Find every virtual path for target paths",
	Long: `Lists every virtual path under which a target path is visible.

A target mounted under several virtual paths (an alias) is listed once per
virtual path. Targets outside every mount print "not mounted".

Examples:
  vmount reverse /documents/contract.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReverse,
}

func init() {
	rootCmd.AddCommand(reverseCmd)
}

func runReverse(cmd *cobra.Command, args []string) error {
	table, err := buildTable(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, target := range args {
		paths := table.ReverseResolve(target)
		if len(paths) == 0 {
			fmt.Fprintf(out, "%s: not mounted\n", target)
			continue
		}
		for _, p := range paths {
			fmt.Fprintf(out, "%s -> %s\n", displayVirtual(p), target)
		}
	}
	return nil
}
