package main

import (
	"fmt"
	"io"
	"os"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zhouzirui/chatty/internal/config"
	"github.com/zhouzirui/chatty/internal/credential"
)

// deps are the process resources commands share. Tests swap them for
// in-memory versions.
type deps struct {
	fs    afero.Fs
	creds credential.Store
}

func defaultDeps() deps {
	var creds credential.Store = credential.NewMemoryStore()
	if xdg.RuntimeDir != "" {
		creds = credential.NewSessionStore()
	}
	return deps{fs: afero.NewOsFs(), creds: creds}
}

type rootOptions struct {
	v          *viper.Viper
	configFile string
}

func (o *rootOptions) load() (*config.ClientConfig, error) {
	return config.LoadClient(o.v, o.configFile)
}

func newRootCmd(d deps) *cobra.Command {
	opts := &rootOptions{v: config.NewClientViper()}

	cmd := &cobra.Command{
		Use:   "chatty",
		Short: "Chat with the Chatty backend from your terminal",
		Long: "chatty opens an interactive conversation with a Chatty backend.\n" +
			"Type a message and press Enter; lines starting with / are commands (try /help).",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
			log.Logger = logger
			a, err := newApp(cfg, cmd.OutOrStdout(), d, logger)
			if err != nil {
				return err
			}
			return a.run(cmd.Context(), cmd.InOrStdin())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", fmt.Sprintf("config file (default %s)", config.DefaultClientConfigFile()))
	flags.String("endpoint", "", "backend base URL")
	flags.String("persona", "", "persona preset ID or literal system prompt")
	flags.String("model", "", "model to request (backend default when empty)")
	flags.Duration("reveal-delay", 0, "delay between revealed characters")
	flags.Duration("timeout", 0, "request timeout")
	flags.String("export-dir", "", "directory for /export and /download")
	flags.String("theme", "", "color theme: dark or light")
	flags.String("log-level", "", "log level written to stderr")

	for key, flag := range map[string]string{
		config.KeyEndpoint:    "endpoint",
		config.KeyPersona:     "persona",
		config.KeyModel:       "model",
		config.KeyRevealDelay: "reveal-delay",
		config.KeyTimeout:     "timeout",
		config.KeyExportDir:   "export-dir",
		config.KeyTheme:       "theme",
		config.KeyLogLevel:    "log-level",
	} {
		_ = opts.v.BindPFlag(key, flags.Lookup(flag))
	}

	cmd.AddCommand(
		newTokenCmd(d),
		newDownloadCmd(opts, d),
		newPersonasCmd(opts),
	)
	return cmd
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.WarnLevel
	}
	if w == nil {
		w = os.Stderr
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger().
		Level(lvl)
}
