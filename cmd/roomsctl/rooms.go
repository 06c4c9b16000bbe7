package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/studyrooms-api/internal/dto"
	"github.com/noah-isme/studyrooms-api/pkg/client"
)

var (
	roomsCmd = &cobra.Command{
		Use:   "rooms",
		Short: "List, create, join and leave rooms",
	}

	roomsListCmd = &cobra.Command{
		Use:   "list [query]",
		Short: "List rooms you can see, optionally filtered",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			opts := listOptions(cmd)
			var page client.Page[dto.RoomResponse]
			if len(args) == 1 {
				page, err = s.api.SearchRooms(cmd.Context(), args[0], opts)
			} else {
				page, err = s.api.ListRooms(cmd.Context(), opts)
			}
			if err != nil {
				return err
			}
			for _, room := range page.Items {
				visibility := "public"
				if room.IsPrivate {
					visibility = "private"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-24s %-7s members=%d %s\n", room.ID, room.Name, visibility, room.MemberCount, strings.Join(room.Tags, ","))
			}
			printPageFooter(cmd, page.Page, page.Limit, page.Total)
			return nil
		},
	}

	roomsCreateCmd = &cobra.Command{
		Use:   "create <name>",
		Short: "Create a room; you become its owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			description, _ := cmd.Flags().GetString("description")
			inviteCode, _ := cmd.Flags().GetString("invite-code")
			tags, _ := cmd.Flags().GetStringSlice("tag")

			room, err := s.api.CreateRoom(cmd.Context(), dto.CreateRoomRequest{
				Name:        args[0],
				Description: description,
				IsPrivate:   inviteCode != "",
				InviteCode:  inviteCode,
				Tags:        tags,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created room %s (%s)\n", room.Name, room.ID)
			return nil
		},
	}

	roomsJoinCmd = &cobra.Command{
		Use:   "join <roomId|inviteCode>",
		Short: "Join a public room by id, or a private room with --code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			byCode, _ := cmd.Flags().GetBool("code")

			var room dto.RoomResponse
			if byCode {
				room, err = s.api.JoinRoomByCode(cmd.Context(), args[0])
			} else {
				room, err = s.api.JoinRoom(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "joined %s (%d members)\n", room.Name, room.MemberCount)
			return nil
		},
	}

	roomsLeaveCmd = &cobra.Command{
		Use:   "leave <roomId>",
		Short: "Leave a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			if err := s.api.LeaveRoom(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "left room")
			return nil
		},
	}

	roomsMembersCmd = &cobra.Command{
		Use:   "members <roomId>",
		Short: "List the members of a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			members, err := s.api.RoomMembers(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, member := range members {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", member.ID, member.Name)
			}
			return nil
		},
	}
)

func init() {
	roomsCreateCmd.Flags().String("description", "", "room description")
	roomsCreateCmd.Flags().String("invite-code", "", "make the room private with this invite code")
	roomsCreateCmd.Flags().StringSlice("tag", nil, "tag to attach (repeatable)")
	roomsJoinCmd.Flags().Bool("code", false, "treat the argument as an invite code")

	addListFlags(roomsListCmd)
	roomsCmd.AddCommand(roomsListCmd, roomsCreateCmd, roomsJoinCmd, roomsLeaveCmd, roomsMembersCmd)
}

func addListFlags(cmd *cobra.Command) {
	cmd.Flags().Int("page", 0, "page number")
	cmd.Flags().Int("limit", 0, "page size (max 100)")
}

func listOptions(cmd *cobra.Command) client.ListOptions {
	page, _ := cmd.Flags().GetInt("page")
	limit, _ := cmd.Flags().GetInt("limit")
	return client.ListOptions{Page: page, Limit: limit}
}

func printPageFooter(cmd *cobra.Command, page, limit int, total int64) {
	fmt.Fprintf(cmd.OutOrStdout(), "-- page %d (limit %d), %d total\n", page, limit, total)
}
