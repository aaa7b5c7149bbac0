package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/AnshRaj112/skillswap-backend/internal/channel"
	"github.com/AnshRaj112/skillswap-backend/internal/client"
	"github.com/AnshRaj112/skillswap-backend/internal/models"
)

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "List your conversations, most recent first",
	Args:  cobra.NoArgs,
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

		channels, err := env.api.Channels(ctx, token)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(channels) == 0 {
			fmt.Fprintln(w, "No conversations yet")
			return nil
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "WITH\tMESSAGES\tLAST ACTIVITY")
		for _, c := range channels {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", peerOf(c.ID, me.ChatID()), c.Seq, c.LastUpdated.Local().Format(time.DateTime))
		}
		return tw.Flush()
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat <peer-chat-id>",
	Short: "Open a live conversation",
	Long: "Opens the conversation with the given user and prints messages as they " +
		"arrive. Each line read from stdin is sent; an empty line retries a failed " +
		"send. End with Ctrl-D or /quit.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, err := env.startSession(ctx)
		if err != nil {
			return err
		}
		defer s.stop()
		me, token, err := env.currentUser(ctx, s)
		if err != nil {
			return err
		}

		out := &transcript{w: cmd.OutOrStdout(), me: me.ChatID()}
		var view *client.ChatView
		view = client.NewChatView(me.ChatID(),
			client.NewChats(env.api, client.NewWSTransport(env.api), token),
			client.WithViewLogger(env.logger),
			client.OnChange(func() { out.render(view.Messages()) }))
		if err := view.Open(ctx, args[0]); err != nil {
			return err
		}
		defer view.Close()
		out.printf("Chatting with %s in %s\n", args[0], view.ChannelID())

		lines := make(chan string)
		go func() {
			defer close(lines)
			sc := bufio.NewScanner(cmd.InOrStdin())
			for sc.Scan() {
				select {
				case lines <- sc.Text():
				case <-ctx.Done():
					return
				}
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok || strings.TrimSpace(line) == "/quit" {
					return nil
				}
				if strings.TrimSpace(line) != "" {
					view.SetDraft(line)
				}
				if err := view.Send(ctx); err != nil {
					out.printf("! not sent (%v); press Enter to retry\n", err)
				}
			}
		}
	},
}

// transcript prints each message once, in sequence order.
type transcript struct {
	mu      sync.Mutex
	w       io.Writer
	me      string
	lastSeq int64
}

func (t *transcript) render(msgs []*models.ChatMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, m := range msgs {
		if m.Seq <= t.lastSeq {
			continue
		}
		t.lastSeq = m.Seq
		who := m.SenderName
		if m.SenderID == t.me {
			who = "you"
		}
		fmt.Fprintf(t.w, "[%s] %s: %s\n", m.CreatedAt.Local().Format(time.Kitchen), who, m.Text)
	}
}

func (t *transcript) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, format, args...)
}

func peerOf(channelID, me string) string {
	a, b, err := channel.Participants(channelID)
	if err != nil {
		return channelID
	}
	if a == me {
		return b
	}
	return a
}
