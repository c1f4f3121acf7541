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

	"vmount/internal/mounts"
)

var lsCmd = &cobra.Command{
	Use:   "ls [virtual-path]",
	Short: "List mount points",
	Long: `Lists the mount point at the virtual path, if any, and every mount point
below it, with their declared targets. Without a path the whole table is listed.

Use --below to leave out the mount point at the path itself.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLs,
}

var lsBelow bool

func init() {
	lsCmd.Flags().BoolVarP(&lsBelow, "below", "b", false, "Only list mount points strictly below the path")
	rootCmd.AddCommand(lsCmd)
}

func runLs(cmd *cobra.Command, args []string) error {
	table, err := buildTable(cmd)
	if err != nil {
		return err
	}

	virtualPath := ""
	if len(args) > 0 {
		virtualPath = virtualArg(args[0])
	}

	out := cmd.OutOrStdout()
	var points []mounts.MountPoint
	if lsBelow {
		points = table.MountPointsBelow(virtualPath)
	} else {
		points = table.MountPointsIn(virtualPath)
	}
	if len(points) == 0 {
		fmt.Fprintf(out, "No mount points in %s\n", displayVirtual(virtualPath))
		return nil
	}

	fmt.Fprintf(out, "Mount points (%d):\n", len(points))
	printMountPoints(out, points)
	return nil
}
