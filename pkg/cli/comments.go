package cli

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"time"
)

func newCommentsCommand() *Command {
	cmd := &Command{
		Name:        "comments",
		Description: "Read and write page comments",
		Flags:       flag.NewFlagSet("comments", flag.ExitOnError),
		Run:         runComments,
	}

	cmd.Flags.String("action", "list", "Action: list, create, update, delete, history")
	cmd.Flags.Int64("page", 0, "Page ID (list, create)")
	cmd.Flags.Int64("id", 0, "Comment ID (update, delete, history)")
	cmd.Flags.String("content", "", "Comment text (create, update)")

	return cmd
}

func runComments(args []string) error {
	cmd := newCommentsCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	action := cmd.Flags.Lookup("action").Value.String()
	pageID, _ := strconv.ParseInt(cmd.Flags.Lookup("page").Value.String(), 10, 64)
	id, _ := strconv.ParseInt(cmd.Flags.Lookup("id").Value.String(), 10, 64)
	content := cmd.Flags.Lookup("content").Value.String()

	env, err := newAppEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := context.Background()
	if err := env.requireAuth(ctx); err != nil {
		return err
	}

	switch action {
	case "list":
		if pageID == 0 {
			return fmt.Errorf("page is required")
		}
		comments, err := env.client.Comments(ctx, pageID)
		if err != nil {
			return err
		}
		for _, c := range comments {
			fmt.Printf("#%d [%s] %s: %s\n",
				c.ID, c.CreatedAt.Format(time.RFC3339), c.AuthorName, c.Content)
		}
		return nil

	case "create":
		if pageID == 0 || content == "" {
			return fmt.Errorf("page and content are required")
		}
		created, err := env.client.CreateComment(ctx, pageID, content)
		if err != nil {
			return err
		}
		fmt.Printf("Created comment %d\n", created.ID)
		return nil

	case "update":
		if id == 0 || content == "" {
			return fmt.Errorf("id and content are required")
		}
		updated, err := env.client.UpdateComment(ctx, id, content)
		if err != nil {
			return err
		}
		fmt.Printf("Updated comment %d\n", updated.ID)
		return nil

	case "delete":
		if id == 0 {
			return fmt.Errorf("id is required")
		}
		if err := env.client.DeleteComment(ctx, id); err != nil {
			return err
		}
		fmt.Printf("Deleted comment %d\n", id)
		return nil

	case "history":
		if id == 0 {
			return fmt.Errorf("id is required")
		}
		history, err := env.client.CommentHistory(ctx, id)
		if err != nil {
			return err
		}
		for _, h := range history {
			line := fmt.Sprintf("[%s] %s by %s",
				h.Timestamp.Format(time.RFC3339), h.Action, h.ActorName)
			if h.OldContent != nil {
				line += fmt.Sprintf(" old=%q", *h.OldContent)
			}
			if h.NewContent != nil {
				line += fmt.Sprintf(" new=%q", *h.NewContent)
			}
			fmt.Println(line)
		}
		return nil

	default:
		return fmt.Errorf("unknown action: %s", action)
	}
}
