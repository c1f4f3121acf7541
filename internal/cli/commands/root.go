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
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vmount/internal/cache"
	"vmount/internal/config"
	"vmount/internal/mounts"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// SetVersion sets the version info for --version flag
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

// getVersionString returns the version string with build info
func getVersionString() string {
	buildDate := formatBuildDate(date)
	if strings.HasSuffix(version, "-dev") {
		// Dev build: include epoch and commit for troubleshooting
		return fmt.Sprintf("%s (%s, epoch: %s, commit: %s)", version, buildDate, date, commit)
	}
	return fmt.Sprintf("%s (%s)", version, buildDate)
}

// formatBuildDate converts epoch timestamp to readable date
func formatBuildDate(epoch string) string {
	ts, err := strconv.ParseInt(epoch, 10, 64)
	if err != nil {
		return epoch
	}
	return time.Unix(ts, 0).UTC().Format("2006-01-02")
}

var (
	configPath   string
	baseOverride string
	mountFlags   []string
	logLevel     string

	// tableConfig is the effective declaration, set before any command runs
	tableConfig *config.TableConfig
)

var rootCmd = &cobra.Command{
	Use:   "vmount",
	Short: "Inspect a virtual mount table",
	Long: `Builds a virtual mount table from a declaration file and --mount flags,
then resolves paths in either direction, lists mounts and simulates unmounts.

The table lives only for the duration of a command; nothing is mounted on the
host and no target path is ever opened.

Examples:
  vmount --base /root -m /work=/virtual/work resolve /work/a.txt
  vmount -c mounts.yaml reverse /documents/report.pdf
  vmount -c mounts.yaml unmount /work`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for help commands
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		cfg, err := loadDeclaration()
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		config.SetupLogging(cfg.LogLevel)
		tableConfig = cfg
		return nil
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetVersionTemplate("vmount version {{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Table declaration file (default: $VMOUNT_CONFIG_DIR/mounts.yaml)")
	flags.StringVar(&baseOverride, "base", "", "Target mounted at the virtual root (overrides the declaration)")
	flags.StringArrayVarP(&mountFlags, "mount", "m", nil, "Additional mount as VIRTUAL=TARGET (repeatable)")
	flags.StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, off")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// loadDeclaration reads the declaration file and applies flag overrides
func loadDeclaration() (*config.TableConfig, error) {
	var cfg *config.TableConfig
	var err error
	if configPath != "" {
		cfg, err = config.LoadTableConfigFromPath(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", configPath, err)
		}
		if cfg == nil {
			return nil, fmt.Errorf("declaration not found: %s", configPath)
		}
	} else {
		cfg, err = config.LoadTableConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load declaration: %w", err)
		}
	}

	if baseOverride != "" {
		cfg.Base = baseOverride
	}
	for _, m := range mountFlags {
		decl, err := config.ParseMountDecl(m)
		if err != nil {
			return nil, err
		}
		cfg.Mounts = append(cfg.Mounts, decl)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid declaration:\n%w", err)
	}
	return cfg, nil
}

// buildTable builds the table for a command. Rejected mounts are reported
// as a warning; the command runs against the mounts that succeeded.
func buildTable(cmd *cobra.Command) (*mounts.SyncTable, error) {
	table, err := tableConfig.BuildTable()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: some mounts were rejected (see 'vmount check'):\n%v\n", err)
	}
	resolveCache, err := cache.NewResolveCache(tableConfig.CacheSize)
	if err != nil {
		return nil, err
	}
	return mounts.NewSyncTable(table, resolveCache), nil
}

// virtualArg maps the user-facing root "/" to the table's root ""
func virtualArg(arg string) string {
	if arg == "/" {
		return ""
	}
	return arg
}

// displayVirtual is the inverse of virtualArg
func displayVirtual(virtualPath string) string {
	if virtualPath == "" {
		return "/"
	}
	return virtualPath
}

func printMountPoints(w io.Writer, points []mounts.MountPoint) {
	for _, mp := range points {
		fmt.Fprintf(w, "  %s -> %s\n", displayVirtual(mp.VirtualPath), mp.Target)
	}
}
