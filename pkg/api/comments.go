package api

import (
	"context"
	"fmt"
)

// Comments lists a page's comments, newest first
func (c *Client) Comments(ctx context.Context, pageID int64) ([]Comment, error) {
	var comments []Comment
	path := fmt.Sprintf("/pages/%d/comments", pageID)
	if err := c.do(ctx, "GET", path, nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// CreateComment posts a new comment on a page
func (c *Client) CreateComment(ctx context.Context, pageID int64, content string) (*Comment, error) {
	body := map[string]string{"content": content}
	var created Comment
	path := fmt.Sprintf("/pages/%d/comments", pageID)
	if err := c.do(ctx, "POST", path, body, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateComment rewrites a comment's content. The backend records the old
// content in the comment's history.
func (c *Client) UpdateComment(ctx context.Context, id int64, content string) (*Comment, error) {
	body := map[string]string{"content": content}
	var updated Comment
	if err := c.do(ctx, "PUT", fmt.Sprintf("/comments/%d", id), body, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteComment removes a comment; its history survives the deletion
func (c *Client) DeleteComment(ctx context.Context, id int64) error {
	return c.do(ctx, "DELETE", fmt.Sprintf("/comments/%d", id), nil, nil)
}

// CommentHistory lists a comment's modification records, oldest first
func (c *Client) CommentHistory(ctx context.Context, id int64) ([]HistoryEntry, error) {
	var history []HistoryEntry
	path := fmt.Sprintf("/comments/%d/history", id)
	if err := c.do(ctx, "GET", path, nil, &history); err != nil {
		return nil, err
	}
	return history, nil
}
