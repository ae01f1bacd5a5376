package merge

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/histore/internal/graph"
	"github.com/roach88/histore/internal/record"
)

// step is one queued replay write.
type step struct {
	draft      record.Draft
	originalID string // empty for a synthesized continuation chat
}

// plan queues the replay of every head after the ancestor, oldest first,
// heads in the given order.
//
// A chat whose messages were already replayed from an earlier head is
// split: a continuation chat named after the original is queued before the
// first message and the rest of this head's messages move to it.
func (e *Engine) plan(ctx context.Context, owner, project, ancestor string, heads []string) ([]step, error) {
	var steps []step
	merged := make(map[string]bool) // chat ids replayed by earlier heads

	for _, head := range heads {
		path, err := e.history.GetPath(ctx, owner, project, head, graph.PathOptions{RootID: ancestor})
		if err != nil {
			return nil, fmt.Errorf("merge plan: %w", err)
		}
		slices.Reverse(path)

		remap := make(map[string]string) // chat id -> chat id used by this head
		for _, n := range path {
			content := n.Content.Clone()

			if chatID, ok := content.Str(fieldChatID); ok && n.Type == record.TypeMessage {
				target, seen := remap[chatID]
				if !seen {
					target = chatID
					if merged[chatID] {
						cont, err := e.continuation(ctx, owner, project, chatID, ancestor)
						if err != nil {
							return nil, err
						}
						steps = append(steps, cont)
						target, _ = cont.draft.Content.Str(fieldChatID)
					}
					remap[chatID] = target
				}
				content[fieldChatID] = record.String(target)
			}

			steps = append(steps, step{
				draft: record.Draft{
					Type:    n.Type,
					Author:  n.Author,
					Content: content,
				},
				originalID: n.ID,
			})
		}

		for chatID := range remap {
			merged[chatID] = true
		}
	}
	return steps, nil
}

// continuation builds a chat that continues chatID from its last message at
// or before the ancestor, or from the chat node itself if it has none.
func (e *Engine) continuation(ctx context.Context, owner, project, chatID, ancestor string) (step, error) {
	chat, ok, err := e.ChatNode(ctx, owner, project, chatID, ancestor)
	if err != nil {
		return step{}, err
	}
	if !ok {
		return step{}, fmt.Errorf("merge plan: chat %s has no chat node at or before %s: %w", chatID, ancestor, graph.ErrNodeNotFound)
	}

	parentID := chat.ID
	last, ok, err := e.LastMessageNode(ctx, owner, project, chatID, ancestor)
	if err != nil {
		return step{}, err
	}
	if ok {
		parentID = last.ID
	}

	name, _ := chat.Content.Str(fieldChatName)
	return step{draft: record.Draft{
		Type:   record.TypeChat,
		Author: chat.Author,
		Content: record.Object{
			fieldChatID:           record.String(e.ids.NewID()),
			fieldChatName:         record.String(name + "."),
			fieldParentChatNodeID: record.String(parentID),
		},
	}}, nil
}

// commit writes the queued steps silently as one chain starting at the
// ancestor. Returns the id of the last write and the provenance map from
// each written id to its original (null for synthesized nodes).
func (e *Engine) commit(ctx context.Context, owner, project, ancestor string, steps []step) (string, record.Object, error) {
	last := ancestor
	rewritten := make(map[string]string) // original message id -> replayed id
	provenance := make(record.Object, len(steps))

	for _, s := range steps {
		d := s.draft
		d.ParentRef = last
		if d.Type == record.TypeChat {
			if parent, ok := d.Content.Str(fieldParentChatNodeID); ok {
				if replayed, ok := rewritten[parent]; ok {
					d.Content[fieldParentChatNodeID] = record.String(replayed)
				}
			}
		}

		_, id, err := e.history.AddNode(ctx, owner, project, d, true)
		if err != nil {
			return "", nil, fmt.Errorf("merge replay: %w", err)
		}
		last = id

		if s.originalID == "" {
			provenance[id] = record.Null{}
			continue
		}
		provenance[id] = record.String(s.originalID)
		if d.Type == record.TypeMessage {
			rewritten[s.originalID] = id
		}
	}
	return last, provenance, nil
}
