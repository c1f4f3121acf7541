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

var unmountCmd = &cobra.Command{
	Use:     "unmount <path>",
	Aliases: []string{"umount"},
	Short:   "Simulate unmounting and show orphaned targets",
	Long: `Unmounts a virtual path and every mount below it, then prints the targets
that are no longer reachable through any virtual path and the remaining table.

With --absolute the argument is a target path and every virtual path mounted on
it is unmounted. Use --all to unmount everything but the root.

The declaration file is not modified.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUnmount,
}

var (
	unmountAll      bool
	unmountAbsolute bool
)

func init() {
	unmountCmd.Flags().BoolVarP(&unmountAll, "all", "a", false, "Unmount all mount points except the root")
	unmountCmd.Flags().BoolVar(&unmountAbsolute, "absolute", false, "Treat the argument as a target path")
	rootCmd.AddCommand(unmountCmd)
}

func runUnmount(cmd *cobra.Command, args []string) error {
	if !unmountAll && len(args) == 0 {
		return fmt.Errorf("path required (or use --all)")
	}

	table, err := buildTable(cmd)
	if err != nil {
		return err
	}

	var orphans []string
	collect := func(target string) {
		orphans = append(orphans, target)
	}

	var n int
	switch {
	case unmountAll:
		n = table.UnmountIn("", collect)
	case unmountAbsolute:
		n = table.UnmountAbsolute(args[0], collect)
	default:
		n = table.UnmountIn(virtualArg(args[0]), collect)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Unmounted %d mount point(s)\n", n)
	for _, target := range orphans {
		fmt.Fprintf(out, "Orphaned: %s\n", target)
	}
	fmt.Fprintf(out, "Remaining mount points (%d):\n", table.Len())
	printMountPoints(out, table.MountPoints())
	return nil
}
