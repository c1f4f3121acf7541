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
	"os"

	"github.com/spf13/cobra"

	"vmount/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a table declaration file",
	Long: `Writes the effective declaration (the loaded file or the built-in default,
plus --base and --mount flags) to --config or $VMOUNT_CONFIG_DIR/mounts.yaml.

An existing file is left untouched unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var initForce bool

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing declaration file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.DeclarationPath()
	}

	out := cmd.OutOrStdout()
	if _, err := os.Stat(path); err == nil && !initForce {
		fmt.Fprintf(out, "%s already exists (not modified)\n", path)
		return nil
	}

	if _, err := tableConfig.BuildTable(); err != nil {
		return fmt.Errorf("declaration has rejected mounts, not writing it:\n%w", err)
	}
	if err := config.SaveTableConfig(path, tableConfig); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(out, "Wrote %s (%d mounts)\n", path, len(tableConfig.Mounts))
	return nil
}
