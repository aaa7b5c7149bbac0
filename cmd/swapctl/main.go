// Command swapctl is a terminal client for the SkillSwap API.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AnshRaj112/skillswap-backend/internal/client"
	"github.com/AnshRaj112/skillswap-backend/internal/config"
	"github.com/AnshRaj112/skillswap-backend/internal/logging"
)

var (
	apiURL  string
	homeDir string
	verbose bool

	env *app
)

var rootCmd = &cobra.Command{
	Use:           "swapctl",
	Short:         "Terminal client for SkillSwap",
	Long:          "Terminal client for SkillSwap. Sign in, browse people by skill and chat with them.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		env = a
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if env != nil {
			_ = env.logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "API base url (default $SKILLSWAP_API_URL)")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "state directory (default $SKILLSWAP_HOME or ~/.skillswap)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log requests and session changes")

	rootCmd.AddCommand(registerCmd, loginCmd, federatedLoginCmd, whoamiCmd, logoutCmd)
	rootCmd.AddCommand(usersCmd, userCmd, profileCmd)
	rootCmd.AddCommand(chatsCmd, chatCmd)
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type app struct {
	cfg      *config.ClientConfig
	logger   *zap.Logger
	api      *client.Client
	creds    *client.FileCredentialStore
	provider *client.FileProvider
}

func newApp() (*app, error) {
	cfg, err := config.LoadClient()
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.APIURL = apiURL
	}
	if homeDir != "" {
		cfg.Home = homeDir
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	logger, err := logging.New(cfg.LogLevel, false)
	if err != nil {
		return nil, err
	}
	api, err := client.New(cfg.APIURL, client.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:      cfg,
		logger:   logger,
		api:      api,
		creds:    client.NewFileCredentialStore(cfg.Home),
		provider: client.NewFileProvider(cfg.Home),
	}, nil
}
