package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AnshRaj112/skillswap-backend/internal/client"
	"github.com/AnshRaj112/skillswap-backend/internal/reconciler"
)

var (
	authName     string
	authEmail    string
	authPassword string

	fedUID   string
	fedName  string
	fedPhoto string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an email and password account and sign in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := passwordFrom(cmd)
		if err != nil {
			return err
		}
		res, err := env.api.Register(cmd.Context(), authName, authEmail, password)
		if err != nil {
			return err
		}
		return adopt(cmd, res)
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with email and password",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := passwordFrom(cmd)
		if err != nil {
			return err
		}
		res, err := env.api.Login(cmd.Context(), authEmail, password)
		if err != nil {
			return err
		}
		return adopt(cmd, res)
	},
}

var federatedLoginCmd = &cobra.Command{
	Use:   "federated-login",
	Short: "Sign in with an identity provider session",
	Long: "Records the identity provider session given by the flags, exchanges it for " +
		"a SkillSwap credential and signs in. The account is linked by provider uid, " +
		"then by email, and created when neither matches.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pu := reconciler.ProviderUser{
			UID:         fedUID,
			Email:       authEmail,
			DisplayName: fedName,
			PhotoURL:    fedPhoto,
		}
		if err := env.provider.SignIn(pu); err != nil {
			return err
		}
		res, err := env.api.FederatedLogin(cmd.Context(), pu)
		if err != nil {
			return err
		}
		return adopt(cmd, res)
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Print the signed-in user",
	Long: "Validates the stored credential against the API and reconciles it with the " +
		"identity provider session. An expired credential is discarded.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := env.startSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.stop()

		sess, err := s.Session(cmd.Context())
		if err != nil {
			return err
		}
		if !sess.Authenticated() {
			return errNotSignedIn
		}
		printIdentity(cmd.OutOrStdout(), sess.CurrentUser)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and revoke the stored credential",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if token, err := env.creds.Load(); err == nil && token != "" {
			if err := env.api.Logout(ctx, token); err != nil {
				env.logger.Info("credential revocation failed", zap.Error(err))
			}
		}

		s, err := env.startSession(ctx)
		if err != nil {
			return err
		}
		defer s.stop()
		if err := s.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{registerCmd, loginCmd} {
		c.Flags().StringVar(&authEmail, "email", "", "account email")
		c.Flags().StringVar(&authPassword, "password", "", "password (read from stdin when empty)")
		_ = c.MarkFlagRequired("email")
	}
	registerCmd.Flags().StringVar(&authName, "name", "", "display name")

	federatedLoginCmd.Flags().StringVar(&fedUID, "uid", "", "identity provider uid")
	federatedLoginCmd.Flags().StringVar(&authEmail, "email", "", "email asserted by the provider")
	federatedLoginCmd.Flags().StringVar(&fedName, "name", "", "display name asserted by the provider")
	federatedLoginCmd.Flags().StringVar(&fedPhoto, "photo", "", "photo url asserted by the provider")
	_ = federatedLoginCmd.MarkFlagRequired("uid")
	_ = federatedLoginCmd.MarkFlagRequired("email")
}

// adopt stores the returned credential and installs the profile.
func adopt(cmd *cobra.Command, res *client.AuthResult) error {
	ctx := cmd.Context()
	s, err := env.startSession(ctx)
	if err != nil {
		return err
	}
	defer s.stop()

	id, err := s.LoginWithCredential(ctx, res.Token)
	if err != nil {
		return fmt.Errorf("validate new credential: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s <%s>\n", id.Name, id.Email)
	return nil
}

func passwordFrom(cmd *cobra.Command) (string, error) {
	if authPassword != "" {
		return authPassword, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func printIdentity(w io.Writer, id *reconciler.Identity) {
	fmt.Fprintf(w, "ID:      %s\n", id.ID)
	if id.ProviderID != "" {
		fmt.Fprintf(w, "Chat ID: %s\n", id.ChatID())
	}
	fmt.Fprintf(w, "Name:    %s\n", id.Name)
	fmt.Fprintf(w, "Email:   %s\n", id.Email)
	if len(id.TeachSkills) > 0 {
		fmt.Fprintf(w, "Teaches: %s\n", strings.Join(id.TeachSkills, ", "))
	}
	if len(id.LearnSkills) > 0 {
		fmt.Fprintf(w, "Learns:  %s\n", strings.Join(id.LearnSkills, ", "))
	}
	if id.Bio != "" {
		fmt.Fprintf(w, "Bio:     %s\n", id.Bio)
	}
	if !id.Authoritative() {
		fmt.Fprintln(w, "(identity provider profile, not yet confirmed by the API)")
	}
}
