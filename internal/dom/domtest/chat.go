package domtest

import (
	"github.com/blockedby/chat-observer/internal/dom"
)

// GroupSpec describes one rendered message group.
type GroupSpec struct {
	ConversationID string
	MessageID      string
	Sender         string
	Body           string
	Timestamp      string
	DisplayTime    string

	NoSender bool
	NoBody   bool
	NoAvatar bool
	// ServiceOnly renders a group holding only a system notice.
	ServiceOnly bool
}

// Group is a built message group with handles to its interesting parts.
type Group struct {
	Root    *Node
	Message *Node
	Avatar  *Node
}

// NewGroup renders gs using the selectors the extractor will query with.
func NewGroup(sel dom.Selectors, gs GroupSpec) *Group {
	g := &Group{Root: NewNode("group:" + gs.ConversationID + "/" + gs.MessageID)}
	if gs.ServiceOnly {
		return g
	}

	msg := NewNode("message")
	if gs.ConversationID != "" {
		msg.WithAttr(sel.ConversationAttr, gs.ConversationID)
	}
	if gs.MessageID != "" {
		msg.WithAttr(sel.MessageAttr, gs.MessageID)
	}
	if gs.Timestamp != "" {
		msg.WithAttr(sel.TimestampAttr, gs.Timestamp)
	}
	if !gs.NoSender {
		msg.WithChild(sel.SenderName, NewNode("sender").WithText(gs.Sender))
	}
	if !gs.NoBody {
		msg.WithChild(sel.Body, NewNode("body").WithText(gs.Body))
	}
	if gs.DisplayTime != "" {
		msg.WithChild(sel.TimeElement, NewNode("time").WithAttr(sel.DisplayTimeAttr, gs.DisplayTime))
	}
	g.Message = msg
	g.Root.WithChild(sel.Message, msg)

	if !gs.NoAvatar {
		g.Avatar = NewNode("avatar")
		g.Root.WithChild(sel.Avatar, g.Avatar)
	}
	return g
}

// WireProfilePanel makes a click on avatar behave like the host client:
// the address changes to profileURL and a close affordance appears.
// Clicking the close affordance restores home and removes it.
// Both clicks are recorded in the document journal.
func WireProfilePanel(doc *Document, sel dom.Selectors, avatar *Node, label, profileURL, home string) {
	closeBtn := NewNode("close")
	closeBtn.OnClick = func() error {
		doc.Record("close:" + label)
		doc.Remove(sel.ClosePanel)
		doc.SetURL(home)
		return nil
	}
	avatar.OnClick = func() error {
		doc.Record("open:" + label)
		doc.SetURL(profileURL)
		doc.Set(sel.ClosePanel, closeBtn)
		return nil
	}
}
