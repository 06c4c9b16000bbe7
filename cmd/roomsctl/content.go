package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/studyrooms-api/internal/dto"
)

var (
	postsCmd = &cobra.Command{
		Use:   "posts",
		Short: "Read and write room posts",
	}

	postsListCmd = &cobra.Command{
		Use:   "list <roomId>",
		Short: "List posts in a room, pinned first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			opts := listOptions(cmd)
			opts.Query, _ = cmd.Flags().GetString("query")
			opts.Type, _ = cmd.Flags().GetString("type")

			page, err := s.api.ListPosts(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			for _, post := range page.Items {
				pin := " "
				if post.IsPinned {
					pin = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s  [%s] %s by %s (likes=%d comments=%d)\n", pin, post.ID, post.Type, post.Title, post.Author.Name, post.Likes, post.Comments)
			}
			printPageFooter(cmd, page.Page, page.Limit, page.Total)
			return nil
		},
	}

	postsCreateCmd = &cobra.Command{
		Use:   "create <roomId> <title> <content>",
		Short: "Publish a post in a room",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			postType, _ := cmd.Flags().GetString("type")
			tags, _ := cmd.Flags().GetStringSlice("tag")

			post, err := s.api.CreatePost(cmd.Context(), args[0], dto.CreatePostRequest{
				Title:   args[1],
				Content: args[2],
				Type:    postType,
				Tags:    tags,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created post %s\n", post.ID)
			return nil
		},
	}

	doubtsCmd = &cobra.Command{
		Use:   "doubts",
		Short: "Ask, close and reopen doubts",
	}

	doubtsListCmd = &cobra.Command{
		Use:   "list <roomId>",
		Short: "List doubts in a room, open and urgent first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			opts := listOptions(cmd)
			opts.Query, _ = cmd.Flags().GetString("query")
			opts.Status, _ = cmd.Flags().GetString("status")

			page, err := s.api.ListDoubts(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			for _, doubt := range page.Items {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-6s %s by %s (comments=%d)\n", doubt.ID, doubtStatus(doubt), doubt.Title, doubt.Author.Name, doubt.Comments)
			}
			printPageFooter(cmd, page.Page, page.Limit, page.Total)
			return nil
		},
	}

	doubtsCreateCmd = &cobra.Command{
		Use:   "create <roomId> <title> <description>",
		Short: "Ask a doubt in a room",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			urgent, _ := cmd.Flags().GetBool("urgent")
			tags, _ := cmd.Flags().GetStringSlice("tag")

			doubt, err := s.api.CreateDoubt(cmd.Context(), args[0], dto.CreateDoubtRequest{
				Title:       args[1],
				Description: args[2],
				Tags:        tags,
				IsUrgent:    urgent,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created doubt %s\n", doubt.ID)
			return nil
		},
	}

	doubtsCloseCmd = &cobra.Command{
		Use:   "close <doubtId>",
		Short: "Close a doubt (author or room moderator)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			doubt, err := s.api.CloseDoubt(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is %s\n", doubt.ID, doubtStatus(doubt))
			return nil
		},
	}

	doubtsReopenCmd = &cobra.Command{
		Use:   "reopen <doubtId>",
		Short: "Reopen a closed doubt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			doubt, err := s.api.ReopenDoubt(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is %s\n", doubt.ID, doubtStatus(doubt))
			return nil
		},
	}
)

func init() {
	addListFlags(postsListCmd)
	postsListCmd.Flags().String("query", "", "search title, content and tags")
	postsListCmd.Flags().String("type", "", "note, topic or announcement")
	postsCreateCmd.Flags().String("type", "note", "note, topic or announcement")
	postsCreateCmd.Flags().StringSlice("tag", nil, "tag to attach (repeatable)")
	postsCmd.AddCommand(postsListCmd, postsCreateCmd)

	addListFlags(doubtsListCmd)
	doubtsListCmd.Flags().String("query", "", "search title, description and tags")
	doubtsListCmd.Flags().String("status", "", "open or closed")
	doubtsCreateCmd.Flags().Bool("urgent", false, "flag the doubt as urgent")
	doubtsCreateCmd.Flags().StringSlice("tag", nil, "tag to attach (repeatable)")
	doubtsCmd.AddCommand(doubtsListCmd, doubtsCreateCmd, doubtsCloseCmd, doubtsReopenCmd)
}

func doubtStatus(doubt dto.DoubtResponse) string {
	switch {
	case doubt.IsClosed:
		return "closed"
	case doubt.IsUrgent:
		return "urgent"
	default:
		return "open"
	}
}
