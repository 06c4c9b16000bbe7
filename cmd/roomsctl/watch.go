package main

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/noah-isme/studyrooms-api/internal/dto"
	"github.com/noah-isme/studyrooms-api/pkg/client"
)

var watchCmd = &cobra.Command{
	Use:   "watch <roomId>",
	Short: "Stream realtime activity for a room until interrupted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		if s.api.Token() == "" {
			return errors.New("not logged in")
		}

		out := cmd.OutOrStdout()
		store := client.NewConnectionStore()
		rt := client.NewRealtimeClient(settings.GetString("ws-url"), s.api.Token, store,
			client.WithRealtimeLogger(logger),
			client.WithEventHandler(func(event dto.RealtimeEvent) {
				printEvent(out, event)
			}),
		)

		var connected atomic.Bool
		unsubscribe := store.Subscribe(func(state client.ConnectionState) {
			was := connected.Swap(state.IsConnected)
			switch {
			case state.IsConnected && !was:
				logger.Info().Msg("connected")
			case !state.IsConnected && was:
				logger.Warn().Str("error", state.Error).Msg("disconnected")
			}
		})
		defer unsubscribe()

		if err := rt.Connect(cmd.Context()); err != nil {
			return fmt.Errorf("connect realtime: %w", err)
		}
		defer rt.Close()

		if !rt.JoinRoom(args[0]) {
			return errors.New("connection dropped before joining the room")
		}

		<-cmd.Context().Done()
		return nil
	},
}

func printEvent(out io.Writer, event dto.RealtimeEvent) {
	at := event.Timestamp.Local().Format("15:04:05")
	switch event.Type {
	case dto.EventOnlineUsers:
		names := make([]string, 0, len(event.Users))
		for _, user := range event.Users {
			names = append(names, user.Name)
		}
		fmt.Fprintf(out, "%s online: %v\n", at, names)
	case dto.EventUserTyping:
		if event.IsTyping != nil && *event.IsTyping {
			fmt.Fprintf(out, "%s %s is typing\n", at, event.UserName)
		}
	case dto.EventNewPost:
		fmt.Fprintf(out, "%s new post: %s\n", at, event.Title)
	case dto.EventNewDoubt:
		fmt.Fprintf(out, "%s new doubt: %s\n", at, event.Title)
	case dto.EventNewComment:
		fmt.Fprintf(out, "%s new comment on: %s\n", at, event.PostTitle)
	default:
		fmt.Fprintf(out, "%s %s\n", at, event.Type)
	}
}
