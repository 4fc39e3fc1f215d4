// Package cli provides configuration management commands.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/megacloud/megacloud-cli/internal/config"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage megacloud configuration",
		Long: `Configuration management commands for megacloud.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  set   - Change one setting
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigSetCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// configPath returns the --config path or the default location.
func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.DefaultConfigPath()
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup for megacloud.

The configuration is saved to ~/.config/megacloud/config.ini.
Use --force to overwrite an existing configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !force {
				if _, err := os.Stat(path); err == nil {
					fmt.Fprintf(out, "Configuration already exists at: %s\n", path)
					fmt.Fprintln(out, "Use --force to overwrite or run 'config show' to view current config.")
					return nil
				}
			}

			cfg, err := runConfigWizard(stdinFor(cmd), out, config.New())
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if err := config.Save(cfg, path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			GetLogger().Info().Str("path", path).Msg("Configuration saved")
			fmt.Fprintln(out)
			fmt.Fprintf(out, "✓ Configuration saved to: %s\n", path)
			fmt.Fprintln(out, "Sign in with: megacloud login")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")

	return cmd
}

// runConfigWizard prompts for each setting, offering cfg's values as defaults.
func runConfigWizard(in *bufio.Reader, out io.Writer, cfg *config.Config) (*config.Config, error) {
	fmt.Fprintln(out, "MegaCloud Configuration Setup")
	fmt.Fprintln(out, "=============================")
	fmt.Fprintln(out)

	cfg.BaseURL = readDefault(in, out, "Server URL", cfg.BaseURL)
	cfg.DownloadDir = readDefault(in, out, "Download directory", cfg.DownloadDir)

	fmt.Fprintln(out)
	proxy := strings.ToLower(readDefault(in, out, "Configure proxy? [y/N]", ""))
	if proxy == "y" || proxy == "yes" {
		fmt.Fprintln(out, "Proxy modes: no-proxy, system, basic, ntlm")
		cfg.ProxyMode = readDefault(in, out, "Proxy mode", "system")
		if mode := strings.ToLower(cfg.ProxyMode); mode == "basic" || mode == "ntlm" {
			cfg.ProxyHost = readDefault(in, out, "Proxy host", cfg.ProxyHost)
			port := readDefault(in, out, "Proxy port", strconv.Itoa(cfg.ProxyPort))
			if v, err := strconv.Atoi(port); err == nil && v > 0 {
				cfg.ProxyPort = v
			}
			cfg.ProxyUser = readDefault(in, out, "Proxy user", cfg.ProxyUser)
		}
	} else {
		cfg.ProxyMode = "no-proxy"
	}

	fmt.Fprintln(out)
	desktop := strings.ToLower(readDefault(in, out, "Desktop notifications? [y/N]", ""))
	cfg.DesktopNotify = desktop == "y" || desktop == "yes"

	return cfg, nil
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the current configuration settings.

This command shows the merged configuration from:
  1. Configuration file (~/.config/megacloud/config.ini)
  2. Environment variables (MEGACLOUD_BASE_URL, MEGACLOUD_DOWNLOAD_DIR, MEGACLOUD_LOG_LEVEL)
  3. Command-line flags (--base-url)

Priority: flags > environment > config file > defaults`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg.ApplyEnv()
			if baseURL != "" {
				cfg.BaseURL = baseURL
			}

			printConfig(cmd.OutOrStdout(), cfg, path)
			return nil
		},
	}
}

func printConfig(out io.Writer, cfg *config.Config, path string) {
	fmt.Fprintln(out, "Current Configuration")
	fmt.Fprintln(out, "=====================")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Server:")
	fmt.Fprintf(out, "  Base URL: %s\n", cfg.BaseURL)
	if cfg.TimeoutSeconds > 0 {
		fmt.Fprintf(out, "  Timeout:  %ds\n", cfg.TimeoutSeconds)
	} else {
		fmt.Fprintln(out, "  Timeout:  none")
	}
	if cfg.RequestsPerSecond > 0 {
		fmt.Fprintf(out, "  Rate:     %d req/s\n", cfg.RequestsPerSecond)
	} else {
		fmt.Fprintln(out, "  Rate:     unlimited")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Proxy:")
	fmt.Fprintf(out, "  Mode: %s\n", cfg.ProxyMode)
	if cfg.ProxyHost != "" {
		fmt.Fprintf(out, "  Host: %s\n", cfg.ProxyHost)
		fmt.Fprintf(out, "  Port: %d\n", cfg.ProxyPort)
	}
	if cfg.ProxyUser != "" {
		fmt.Fprintf(out, "  User: %s\n", cfg.ProxyUser)
	}
	if cfg.NoProxy != "" {
		fmt.Fprintf(out, "  Bypass: %s\n", cfg.NoProxy)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Transfers:")
	fmt.Fprintf(out, "  Download directory: %s\n", cfg.DownloadDir)
	fmt.Fprintf(out, "  Cleanup grace:      %ds\n", cfg.CleanupGraceSeconds)
	fmt.Fprintf(out, "  Retries:            %d\n", cfg.RetryMax)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Logging:")
	fmt.Fprintf(out, "  Level: %s\n", cfg.LogLevel)
	if cfg.LogFile != "" {
		fmt.Fprintf(out, "  File:  %s\n", cfg.LogFile)
	}
	fmt.Fprintf(out, "  Desktop notifications: %t\n", cfg.DesktopNotify)
	fmt.Fprintln(out)

	fmt.Fprintf(out, "Configuration file: %s\n", path)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintln(out, "  (file does not exist - using defaults)")
	}
}

// configSetters maps "section.key" names to their setters.
var configSetters = map[string]func(cfg *config.Config, value string) error{
	"server.base_url":                stringSetter(func(cfg *config.Config, v string) { cfg.BaseURL = v }),
	"server.timeout_seconds":         intSetter(func(cfg *config.Config, n int) { cfg.TimeoutSeconds = n }),
	"server.requests_per_second":     intSetter(func(cfg *config.Config, n int) { cfg.RequestsPerSecond = n }),
	"proxy.mode":                     stringSetter(func(cfg *config.Config, v string) { cfg.ProxyMode = strings.ToLower(v) }),
	"proxy.host":                     stringSetter(func(cfg *config.Config, v string) { cfg.ProxyHost = v }),
	"proxy.port":                     intSetter(func(cfg *config.Config, n int) { cfg.ProxyPort = n }),
	"proxy.user":                     stringSetter(func(cfg *config.Config, v string) { cfg.ProxyUser = v }),
	"proxy.no_proxy":                 stringSetter(func(cfg *config.Config, v string) { cfg.NoProxy = v }),
	"proxy.warmup":                   boolSetter(func(cfg *config.Config, b bool) { cfg.ProxyWarmup = b }),
	"transfer.download_dir":          stringSetter(func(cfg *config.Config, v string) { cfg.DownloadDir = v }),
	"transfer.cleanup_grace_seconds": intSetter(func(cfg *config.Config, n int) { cfg.CleanupGraceSeconds = n }),
	"transfer.retry_max":             intSetter(func(cfg *config.Config, n int) { cfg.RetryMax = n }),
	"logging.file":                   stringSetter(func(cfg *config.Config, v string) { cfg.LogFile = v }),
	"logging.level":                  stringSetter(func(cfg *config.Config, v string) { cfg.LogLevel = strings.ToLower(v) }),
	"logging.desktop_notify":         boolSetter(func(cfg *config.Config, b bool) { cfg.DesktopNotify = b }),
}

func stringSetter(set func(*config.Config, string)) func(*config.Config, string) error {
	return func(cfg *config.Config, v string) error {
		set(cfg, v)
		return nil
	}
}

func intSetter(set func(*config.Config, int)) func(*config.Config, string) error {
	return func(cfg *config.Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%q is not a number", v)
		}
		set(cfg, n)
		return nil
	}
}

func boolSetter(set func(*config.Config, bool)) func(*config.Config, string) error {
	return func(cfg *config.Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%q is not true or false", v)
		}
		set(cfg, b)
		return nil
	}
}

func configKeys() []string {
	keys := make([]string, 0, len(configSetters))
	for k := range configSetters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// setConfigValue applies one key=value change to cfg and validates the result.
func setConfigValue(cfg *config.Config, key, value string) error {
	set, ok := configSetters[strings.ToLower(key)]
	if !ok {
		return fmt.Errorf("unknown setting %q (known: %s)", key, strings.Join(configKeys(), ", "))
	}
	if err := set(cfg, strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return cfg.Validate()
}

// newConfigSetCmd creates the 'config set' command.
func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <section.key> <value>",
		Short: "Change one setting",
		Long: `Change one setting in the configuration file.

Examples:
  megacloud config set server.base_url https://files.example.com
  megacloud config set transfer.cleanup_grace_seconds 30
  megacloud config set logging.desktop_notify true`,
		Args: cobra.ExactArgs(2),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return configKeys(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if err := setConfigValue(cfg, args[0], args[1]); err != nil {
				return err
			}
			if err := config.Save(cfg, path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s = %s\n", args[0], args[1])
			return nil
		},
	}
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Long:  `Display the path to the configuration file.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path, err := configPath()
			if err != nil {
				return err
			}
			if cfgFile == "" {
				fmt.Fprintln(out, "Default configuration path:")
			} else {
				fmt.Fprintln(out, "Configuration path (from --config flag):")
			}

			fmt.Fprintf(out, "  %s\n", path)
			fmt.Fprintln(out)

			if fileInfo, err := os.Stat(path); err == nil {
				fmt.Fprintln(out, "Status: ✓ File exists")
				fmt.Fprintf(out, "Size:   %d bytes\n", fileInfo.Size())
				fmt.Fprintf(out, "Modified: %s\n", fileInfo.ModTime().Format("2006-01-02 15:04:05"))
			} else {
				fmt.Fprintln(out, "Status: File does not exist")
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Create a configuration file with: megacloud config init")
			}

			if sessionPath, err := config.SessionFilePath(); err == nil {
				fmt.Fprintf(out, "Session file: %s\n", sessionPath)
			}
			return nil
		},
	}
}
