// Command celerix-prefs is a command line client for celerix-prefsd.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/celerix-dev/celerix-prefs/internal/vault"
	"github.com/celerix-dev/celerix-prefs/pkg/sdk"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cli holds the connection settings shared by every subcommand.
type cli struct {
	v     *viper.Viper
	store sdk.PrefsStore
}

func newRootCommand() *cobra.Command {
	c := &cli{v: viper.New()}
	c.v.SetEnvPrefix("CELERIX_PREFS")
	c.v.AutomaticEnv()
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	cmd := &cobra.Command{
		Use:           "celerix-prefs",
		Short:         "Command line client for the Celerix preference service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.connect()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if c.store == nil {
				return nil
			}
			return c.store.Close()
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("addr", "localhost:7001", "address of the daemon's line protocol")
	flags.String("tenant", "", "tenant to act as")
	flags.String("token", "", "access token, when the daemon requires one")
	flags.Bool("disable-tls", false, "connect without TLS")
	flags.String("data-dir", "", "use an embedded store in this directory instead of a daemon")
	for _, name := range []string{"addr", "tenant", "token", "disable-tls", "data-dir"} {
		if err := c.v.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	cmd.AddCommand(
		c.getCommand(),
		c.setCommand(),
		c.delCommand(),
		c.lsCommand(),
		c.categoryCommand(),
		c.vaultCommand(),
		c.pingCommand(),
	)
	return cmd
}

func (c *cli) connect() error {
	tenant := c.v.GetString("tenant")
	if tenant == "" {
		return fmt.Errorf("a tenant is required (--tenant or CELERIX_PREFS_TENANT)")
	}

	if dir := c.v.GetString("data-dir"); dir != "" {
		s, err := sdk.Open(dir, tenant, nil)
		if err != nil {
			return err
		}
		c.store = s
		return nil
	}

	addr := c.v.GetString("addr")
	s, err := sdk.Connect(addr, tenant, c.v.GetString("token"), sdk.WithTLS(!c.v.GetBool("disable-tls")))
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	c.store = s
	return nil
}

// splitRoute turns "devices/abc/password" into category, identifier and
// path.
func splitRoute(route string) (category, identifier string, path []string) {
	var segs []string
	for _, s := range strings.Split(route, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	if len(segs) > 0 {
		category, segs = segs[0], segs[1:]
	}
	if len(segs) > 0 {
		identifier, segs = segs[0], segs[1:]
	}
	return category, identifier, segs
}

// parseValue reads arg as JSON, falling back to a plain string.
func parseValue(arg string) any {
	var val any
	if err := json.Unmarshal([]byte(arg), &val); err != nil {
		return arg
	}
	return val
}

func printJSON(w io.Writer, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(w, v)
		return
	}
	fmt.Fprintln(w, string(data))
}

func (c *cli) getCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <category>/<identifier>[/path...]",
		Short: "Print a document or the value at a path inside it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, id, path := splitRoute(args[0])
			val, err := c.store.Get(category, id, path...)
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), val)
			return nil
		},
	}
}

func (c *cli) setCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <category>/<identifier>[/path...] <value>",
		Short: "Write a value; without a path the value's keys are merged into the document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, id, path := splitRoute(args[0])
			if err := c.store.Set(category, id, parseValue(args[1]), path...); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
}

func (c *cli) delCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "del <category>/<identifier>[/path...]",
		Short: "Delete a document or the value at a path inside it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, id, path := splitRoute(args[0])
			if err := c.store.Delete(category, id, path...); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
}

func (c *cli) lsCommand() *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "ls [category]",
		Short: "List categories, or the identifiers in a category",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var list []string
			var err error
			if len(args) == 0 {
				list, err = c.store.Categories()
			} else {
				var f map[string]any
				if filter != "" {
					if err := json.Unmarshal([]byte(filter), &f); err != nil {
						return fmt.Errorf("filter must be a JSON object: %w", err)
					}
				}
				list, err = c.store.List(args[0], f)
			}
			if err != nil {
				return err
			}
			for _, name := range list {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", `keep documents containing this JSON object, e.g. '{"os":"linux"}'`)
	return cmd
}

func (c *cli) categoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Create or drop categories",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "create <name>",
			Short: "Create an empty category",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.store.CreateCategory(args[0])
			},
		},
		&cobra.Command{
			Use:   "drop <name>",
			Short: "Drop a category and every document in it",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.store.DropCategory(args[0])
			},
		},
		&cobra.Command{
			Use:   "drop-all",
			Short: "Drop every category of the tenant",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.store.DropAll()
			},
		},
	)
	return cmd
}

func (c *cli) vaultCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Read and write values encrypted on this machine",
	}
	cmd.PersistentFlags().String("vault-key", "", "passphrase the vault key is derived from")
	if err := c.v.BindPFlag("vault-key", cmd.PersistentFlags().Lookup("vault-key")); err != nil {
		panic(err)
	}

	scope := func(route string) (*sdk.VaultScope, string, []string, error) {
		pass := c.v.GetString("vault-key")
		if pass == "" {
			return nil, "", nil, fmt.Errorf("a vault key is required (--vault-key or CELERIX_PREFS_VAULT_KEY)")
		}
		category, id, path := splitRoute(route)
		return c.store.Category(category).Vault(vault.DeriveKey(pass)), id, path, nil
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <category>/<identifier>[/path...]",
			Short: "Print a decrypted value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, id, path, err := scope(args[0])
				if err != nil {
					return err
				}
				plain, err := v.Get(id, path...)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), plain)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <category>/<identifier>[/path...] <plaintext>",
			Short: "Encrypt and store a value",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, id, path, err := scope(args[0])
				if err != nil {
					return err
				}
				if err := v.Set(id, args[1], path...); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "OK")
				return nil
			},
		},
	)
	return cmd
}

func (c *cli) pingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the daemon answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, ok := c.store.(*sdk.Client)
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "PONG (embedded)")
				return nil
			}
			if err := client.Ping(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "PONG")
			return nil
		},
	}
}
