package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AnshRaj112/skillswap-backend/internal/client"
	"github.com/AnshRaj112/skillswap-backend/internal/models"
)

var (
	searchMode  string
	searchLimit int
	byProvider  bool

	profileName  string
	profileBio   string
	profileTeach []string
	profileLearn []string
	profilePhoto string
)

var usersCmd = &cobra.Command{
	Use:   "users [query]",
	Short: "List people, optionally searching by name or skill",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := client.UserSearch{Mode: searchMode, Limit: searchLimit}
		if len(args) == 1 {
			s.Query = args[0]
		}
		users, err := env.api.ListUsers(cmd.Context(), s)
		if err != nil {
			return err
		}
		printUsers(cmd.OutOrStdout(), users)
		return nil
	},
}

var userCmd = &cobra.Command{
	Use:   "user <id>",
	Short: "Show one profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			u   *models.User
			err error
		)
		if byProvider {
			u, err = env.api.GetUserByProviderID(cmd.Context(), args[0])
		} else {
			u, err = env.api.GetUser(cmd.Context(), args[0])
		}
		if err != nil {
			return err
		}
		printIdentity(cmd.OutOrStdout(), client.IdentityFromUser(u))
		return nil
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or update your profile",
	Long: "Without flags prints your profile. Only the fields given as flags are changed; " +
		"--photo uploads an image file.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := env.startSession(ctx)
		if err != nil {
			return err
		}
		defer s.stop()

		me, token, err := env.currentUser(ctx, s)
		if err != nil {
			return err
		}

		var upd models.ProfileUpdate
		flags := cmd.Flags()
		if flags.Changed("name") {
			upd.Name = &profileName
		}
		if flags.Changed("bio") {
			upd.Bio = &profileBio
		}
		if flags.Changed("teach") {
			upd.TeachSkills = &profileTeach
		}
		if flags.Changed("learn") {
			upd.LearnSkills = &profileLearn
		}
		changed := upd != models.ProfileUpdate{}

		var u *models.User
		if changed {
			if u, err = env.api.UpdateProfile(ctx, token, upd); err != nil {
				return err
			}
		}
		if profilePhoto != "" {
			data, err := os.ReadFile(profilePhoto)
			if err != nil {
				return err
			}
			if u, err = env.api.UploadPhoto(ctx, token, profilePhoto, data); err != nil {
				return err
			}
		}

		if u != nil {
			me = client.IdentityFromUser(u)
			if err := s.AdoptAuthoritativeProfile(ctx, me); err != nil {
				return err
			}
		}
		printIdentity(cmd.OutOrStdout(), me)
		return nil
	},
}

func init() {
	usersCmd.Flags().StringVar(&searchMode, "mode", "", "match the query against skills: teach or learn")
	usersCmd.Flags().IntVar(&searchLimit, "limit", 0, "maximum number of results")

	userCmd.Flags().BoolVar(&byProvider, "provider", false, "look up by identity provider uid")

	profileCmd.Flags().StringVar(&profileName, "name", "", "display name")
	profileCmd.Flags().StringVar(&profileBio, "bio", "", "short bio")
	profileCmd.Flags().StringSliceVar(&profileTeach, "teach", nil, "skills you teach, comma separated")
	profileCmd.Flags().StringSliceVar(&profileLearn, "learn", nil, "skills you want to learn, comma separated")
	profileCmd.Flags().StringVar(&profilePhoto, "photo", "", "image file to upload as profile photo")
}

func printUsers(w io.Writer, users []*models.User) {
	if len(users) == 0 {
		fmt.Fprintln(w, "No users found")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHAT ID\tNAME\tTEACHES\tLEARNS\tRATING")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.1f\n",
			u.ChatID(), u.Name,
			strings.Join(u.TeachSkills, ", "),
			strings.Join(u.LearnSkills, ", "),
			u.Rating)
	}
	tw.Flush()
}
