package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/chatty/internal/config"
	"github.com/zhouzirui/chatty/internal/export"
	"github.com/zhouzirui/chatty/internal/session"
	"github.com/zhouzirui/chatty/internal/transport"
)

func newTokenCmd(d deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the app token kept for this login session",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <token>",
			Short: "Store the token sent as X-APP-TOKEN",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := d.creds.Set(session.TokenKey, args[0]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Token saved for this session.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Forget the stored token",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := d.creds.Delete(session.TokenKey); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Token cleared.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Show whether a token is stored",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				token, err := d.creds.Get(session.TokenKey)
				if err != nil {
					return err
				}
				if token == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "No token set.")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Token set: %s\n", maskToken(token))
				return nil
			},
		},
	)
	return cmd
}

func newDownloadCmd(opts *rootOptions, d deps) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Save the backend's conversation archive locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			client, err := newTransport(cfg)
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.ExportDir
			}
			path, err := export.Download(cmd.Context(), client, export.NewDirSaver(d.fs, dir))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Downloaded conversation archive to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "target directory (defaults to export_dir)")
	return cmd
}

func newPersonasCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "personas",
		Short: "List the persona presets the backend offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			client, err := newTransport(cfg)
			if err != nil {
				return err
			}
			personas, err := client.ListPersonas(cmd.Context())
			if err != nil {
				return err
			}
			for _, p := range personas {
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s - %s\n", p.ID, p.Name, p.Title)
			}
			return nil
		},
	}
}

func newTransport(cfg *config.ClientConfig, opts ...transport.Option) (*transport.HTTPClient, error) {
	if cfg.Timeout > 0 {
		opts = append(opts, transport.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}
	return transport.New(cfg.Endpoint, opts...)
}

func maskToken(token string) string {
	runes := []rune(token)
	if len(runes) <= 4 {
		return "****"
	}
	return "****" + string(runes[len(runes)-4:])
}
