package merge

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/histore/internal/graph"
	"github.com/roach88/histore/internal/record"
)

// Content fields the merge reads and rewrites.
const (
	fieldChatID           = "chat_id"
	fieldChatName         = "chat_name"
	fieldParentChatNodeID = "parent_chat_node_id"
)

// ChatNode returns the newest chat node with the given chat id on the path
// ending at at. Returns found=false if there is none.
func (e *Engine) ChatNode(ctx context.Context, owner, project, chatID, at string) (record.Node, bool, error) {
	chats, err := e.history.GetPath(ctx, owner, project, at, graph.PathOptions{Types: []string{record.TypeChat}})
	if err != nil {
		return record.Node{}, false, fmt.Errorf("chat node: %w", err)
	}
	for _, n := range chats {
		if id, _ := n.Content.Str(fieldChatID); id == chatID {
			return n, true, nil
		}
	}
	return record.Node{}, false, nil
}

// MessageNodes returns the messages of a chat on the path ending at at,
// oldest first. A chat whose chat node names a parent_chat_node_id
// continues another chat from that message, so its history includes the
// parent chat's messages up to and including that point.
//
// Returns nil if the chat does not exist on the path.
func (e *Engine) MessageNodes(ctx context.Context, owner, project, chatID, at string) ([]record.Node, error) {
	if _, ok, err := e.ChatNode(ctx, owner, project, chatID, at); err != nil || !ok {
		return nil, err
	}

	path, err := e.history.GetPath(ctx, owner, project, at, graph.PathOptions{
		Types: []string{record.TypeMessage, record.TypeChat},
	})
	if err != nil {
		return nil, fmt.Errorf("message nodes: %w", err)
	}

	var messages []record.Node
	var resumeAt string // parent_chat_node_id being searched for
	for _, n := range path {
		if resumeAt != "" {
			if n.ID != resumeAt {
				continue
			}
			resumeAt = ""
			chatID, _ = n.Content.Str(fieldChatID)
		}

		id, _ := n.Content.Str(fieldChatID)
		if id != chatID {
			continue
		}
		switch n.Type {
		case record.TypeChat:
			parent, ok := n.Content.Str(fieldParentChatNodeID)
			if !ok || parent == "" {
				slices.Reverse(messages)
				return messages, nil
			}
			resumeAt = parent
		case record.TypeMessage:
			messages = append(messages, n)
		}
	}
	slices.Reverse(messages)
	return messages, nil
}

// LastMessageNode returns the newest message of a chat on the path ending
// at at. Returns found=false if the chat has no messages there.
func (e *Engine) LastMessageNode(ctx context.Context, owner, project, chatID, at string) (record.Node, bool, error) {
	messages, err := e.MessageNodes(ctx, owner, project, chatID, at)
	if err != nil || len(messages) == 0 {
		return record.Node{}, false, err
	}
	return messages[len(messages)-1], true, nil
}
