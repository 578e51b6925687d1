package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/clouddrive/drive/internal/config"
	"github.com/clouddrive/drive/internal/http"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage drive configuration",
		Long: `Configuration management commands for drive.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// configPath returns --config or the default location.
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
		Long: `Interactive configuration setup for drive.

The configuration is saved to ~/.config/clouddrive/config unless --config
is given. Use --force to overwrite an existing file.`,
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
					fmt.Fprintln(out, "Use --force to overwrite or run 'drive config show' to view it.")
					return nil
				}
			}

			cfg, err := runConfigWizard(bufio.NewReader(cmd.InOrStdin()), out)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if err := config.Save(cfg, path); err != nil {
				return err
			}

			GetLogger().Debug().Str("path", path).Msg("Configuration saved")
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Configuration saved to: %s\n", path)
			fmt.Fprintln(out, `Sign in with: drive login`)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")
	return cmd
}

// runConfigWizard asks for each setting, keeping the default on an empty answer.
func runConfigWizard(reader *bufio.Reader, out io.Writer) (*config.Config, error) {
	cfg := config.NewConfig()

	ask := func(label, def string) string {
		if def != "" {
			fmt.Fprintf(out, "%s [%s]: ", label, def)
		} else {
			fmt.Fprintf(out, "%s: ", label)
		}
		input, _ := reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input == "" {
			return def
		}
		return input
	}
	askSeconds := func(label string, def time.Duration) time.Duration {
		v := ask(label, strconv.Itoa(int(def/time.Second)))
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
		return def
	}

	fmt.Fprintln(out, "Cloud Drive Configuration Setup")
	fmt.Fprintln(out, "===============================")
	fmt.Fprintln(out)

	cfg.APIURL = ask("API URL", cfg.APIURL)
	cfg.RequestTimeout = askSeconds("Request timeout (seconds)", cfg.RequestTimeout)
	cfg.MutationTimeout = askSeconds("Change timeout (seconds)", cfg.MutationTimeout)
	cfg.Collation = ask("Sort language", cfg.Collation)

	strict := strings.ToLower(ask("Require typing the name to delete? [y/N]", ""))
	cfg.ConfirmDeleteByName = strict == "y" || strict == "yes"

	fmt.Fprintln(out)
	proxy := strings.ToLower(ask("Configure proxy? [y/N]", ""))
	if proxy == "y" || proxy == "yes" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Proxy Configuration")
		fmt.Fprintln(out, "-------------------")
		fmt.Fprintln(out, "Proxy modes: no-proxy, system, basic, ntlm")
		cfg.ProxyMode = ask("Proxy mode", "system")
		if cfg.ProxyMode == "basic" || cfg.ProxyMode == "ntlm" {
			cfg.ProxyHost = ask("Proxy host", "")
			if port, err := strconv.Atoi(ask("Proxy port", "8080")); err == nil {
				cfg.ProxyPort = port
			}
			cfg.ProxyUser = ask("Proxy user (optional)", "")
		}
		cfg.NoProxy = ask("Bypass proxy for (comma separated, optional)", "")
	}

	fmt.Fprintln(out)
	cfg.LogLevel = ask("Log level", cfg.LogLevel)
	cfg.LogFile = ask(`Log file ("auto" for the default location, empty for none)`, "")

	return cfg, nil
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the effective configuration: file values with environment
and flag overrides applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			profile, _ := cfg.ResolvedProfilePath()

			fmt.Fprintln(out, "Current Configuration")
			fmt.Fprintln(out, "=====================")
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Drive:")
			fmt.Fprintf(out, "  API URL:          %s\n", cfg.APIURL)
			fmt.Fprintf(out, "  Request timeout:  %s\n", cfg.RequestTimeout)
			fmt.Fprintf(out, "  Change timeout:   %s\n", cfg.MutationTimeout)
			fmt.Fprintf(out, "  Sort language:    %s\n", cfg.Collation)
			fmt.Fprintf(out, "  Strict delete:    %t\n", cfg.ConfirmDeleteByName)
			fmt.Fprintf(out, "  Profile:          %s\n", profile)
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Proxy:")
			fmt.Fprintf(out, "  Mode:             %s\n", cfg.ProxyMode)
			if cfg.ProxyHost != "" {
				fmt.Fprintf(out, "  Host:             %s:%d\n", cfg.ProxyHost, cfg.ProxyPort)
			}
			if cfg.ProxyUser != "" {
				fmt.Fprintf(out, "  User:             %s\n", cfg.ProxyUser)
			}
			if http.NeedsProxyPassword(cfg) {
				fmt.Fprintln(out, "  Password:         <not set>")
			}
			if cfg.NoProxy != "" {
				fmt.Fprintf(out, "  Bypass:           %s\n", cfg.NoProxy)
			}
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Logging:")
			fmt.Fprintf(out, "  Level:            %s\n", cfg.LogLevel)
			logFile, _ := cfg.ResolvedLogFile()
			if logFile == "" {
				logFile = "(console only)"
			}
			fmt.Fprintf(out, "  File:             %s\n", logFile)
			fmt.Fprintln(out)

			fmt.Fprintf(out, "Configuration file: %s\n", path)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Fprintln(out, "  (file does not exist - using defaults)")
			}
			return nil
		},
	}
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}
