package community

import (
	"fmt"
	"sync"

	"github.com/anonto42/motorhub/backend/internal/models"
	"github.com/anonto42/motorhub/backend/internal/textutil"
)

const (
	// CollapseThreshold is how many replies a collapsed thread shows.
	CollapseThreshold = 3
	// UnavailablePreview stands in for a quote whose target cannot be found.
	UnavailablePreview = "Message unavailable"

	labelOwn    = "You"
	labelMember = "Member"
)

// ReplyView is one reply as a particular viewer sees it.
type ReplyView struct {
	models.Reply
	QuotedAuthor  string `json:"quotedAuthor,omitempty"`
	QuotedPreview string `json:"quotedPreview"`
	IsOwn         bool   `json:"isOwn"`
	AuthorLabel   string `json:"authorLabel"`
	CanDelete     bool   `json:"canDelete"`
}

// Thread is a message with its flat reply list as a particular viewer sees it.
type Thread struct {
	Message      models.Message `json:"message"`
	IsOwn        bool           `json:"isOwn"`
	AuthorLabel  string         `json:"authorLabel"`
	CanDelete    bool           `json:"canDelete"`
	Replies      []ReplyView    `json:"replies"`
	HiddenCount  int            `json:"hiddenCount"`
	TotalReplies int            `json:"totalReplies"`
	Expanded     bool           `json:"expanded"`
	ToggleLabel  string         `json:"toggleLabel,omitempty"`
}

// Assemble joins messages with their replies for viewerID. Messages come out
// oldest first, replies keep the order they were given in, and replies whose
// message is not loaded are left out. expanded lists the threads the viewer
// opened past the collapse threshold.
func Assemble(messages []models.Message, replies []models.Reply, viewerID string, expanded map[string]bool) []Thread {
	ordered := SortMessagesOldestFirst(messages)

	roots := make(map[string]models.Message, len(ordered))
	for _, m := range ordered {
		roots[m.ID] = m
	}
	loaded := make(map[string]models.Reply, len(replies))
	byParent := make(map[string][]models.Reply)
	for _, r := range replies {
		loaded[r.ID] = r
		if _, ok := roots[r.ParentID]; ok {
			byParent[r.ParentID] = append(byParent[r.ParentID], r)
		}
	}

	threads := make([]Thread, 0, len(ordered))
	for _, m := range ordered {
		own := viewerID != "" && m.AuthorID == viewerID
		t := Thread{
			Message:     m,
			IsOwn:       own,
			AuthorLabel: authorLabel(own),
			CanDelete:   own,
			Expanded:    expanded[m.ID],
		}

		all := byParent[m.ID]
		t.TotalReplies = len(all)
		visible := all
		if len(all) > CollapseThreshold && !t.Expanded {
			visible = all[:CollapseThreshold]
			t.HiddenCount = len(all) - CollapseThreshold
		}
		t.ToggleLabel = ToggleLabel(len(all), t.Expanded)

		t.Replies = make([]ReplyView, 0, len(visible))
		for _, r := range visible {
			t.Replies = append(t.Replies, replyView(r, viewerID, roots, loaded))
		}
		threads = append(threads, t)
	}
	return threads
}

// ToggleLabel is the expand/collapse affordance for a thread with total
// replies, or "" when the thread never collapses.
func ToggleLabel(total int, expanded bool) string {
	if total <= CollapseThreshold {
		return ""
	}
	hidden := total - CollapseThreshold
	if expanded {
		return fmt.Sprintf("Hide %d %s", hidden, pluralReply(hidden))
	}
	return fmt.Sprintf("Show %d more %s", hidden, pluralReply(hidden))
}

// ResolveQuote returns who and what a reply is quoting. The preview is never
// empty.
func ResolveQuote(r models.Reply, roots map[string]models.Message, loaded map[string]models.Reply) (author, preview string) {
	if r.ReplyToPreview != "" {
		return r.ReplyToAuthorName, r.ReplyToPreview
	}
	if r.ReplyToID != "" {
		if target, ok := loaded[r.ReplyToID]; ok && target.Body != "" {
			return target.AuthorName, textutil.Preview(target.Body)
		}
		return r.ReplyToAuthorName, UnavailablePreview
	}
	if root, ok := roots[r.ParentID]; ok && root.Body != "" {
		return root.AuthorName, textutil.Preview(root.Body)
	}
	return "", UnavailablePreview
}

func replyView(r models.Reply, viewerID string, roots map[string]models.Message, loaded map[string]models.Reply) ReplyView {
	own := viewerID != "" && r.AuthorID == viewerID
	author, preview := ResolveQuote(r, roots, loaded)
	return ReplyView{
		Reply:         r,
		QuotedAuthor:  author,
		QuotedPreview: preview,
		IsOwn:         own,
		AuthorLabel:   authorLabel(own),
		CanDelete:     own,
	}
}

func authorLabel(own bool) string {
	if own {
		return labelOwn
	}
	return labelMember
}

func pluralReply(n int) string {
	if n == 1 {
		return "reply"
	}
	return "replies"
}

// ThreadView holds one viewer's expand/collapse choices. It is never
// persisted.
type ThreadView struct {
	viewerID string

	mu       sync.Mutex
	expanded map[string]bool
}

// NewThreadView creates a ThreadView with every thread collapsed.
func NewThreadView(viewerID string) *ThreadView {
	return &ThreadView{viewerID: viewerID, expanded: make(map[string]bool)}
}

// Toggle flips messageID between collapsed and expanded and reports the new
// state.
func (v *ThreadView) Toggle(messageID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.expanded[messageID] = !v.expanded[messageID]
	if !v.expanded[messageID] {
		delete(v.expanded, messageID)
		return false
	}
	return true
}

// Assemble renders messages and replies for this viewer.
func (v *ThreadView) Assemble(messages []models.Message, replies []models.Reply) []Thread {
	v.mu.Lock()
	expanded := make(map[string]bool, len(v.expanded))
	for id, open := range v.expanded {
		expanded[id] = open
	}
	v.mu.Unlock()
	return Assemble(messages, replies, v.viewerID, expanded)
}
