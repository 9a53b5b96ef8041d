package commands

import (
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/tallybot/internal/approval"
	"github.com/susu3304/tallybot/internal/entity"
	"github.com/susu3304/tallybot/internal/ledger"
)

// Deps are the collaborators every handler needs.
type Deps struct {
	Engine *ledger.Engine
	Coord  *approval.Coordinator
	Boards *Boards
}

type messageRef struct {
	channelID string
	messageID string
}

// Boards remembers which channel message shows each entity so that changes
// made elsewhere (a guardian DM, /redeem, /close) can be reflected there.
// It is in-memory only; after a restart a board refreshes on its next click.
type Boards struct {
	mu   sync.RWMutex
	refs map[string]messageRef
}

func NewBoards() *Boards {
	return &Boards{refs: make(map[string]messageRef)}
}

func (b *Boards) Track(entityID, channelID, messageID string) {
	if channelID == "" || messageID == "" {
		return
	}
	b.mu.Lock()
	b.refs[entityID] = messageRef{channelID: channelID, messageID: messageID}
	b.mu.Unlock()
}

func (b *Boards) lookup(entityID string) (messageRef, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ref, ok := b.refs[entityID]
	return ref, ok
}

type boardSession interface {
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Refresh re-renders the tracked board for e, if there is one.
func (b *Boards) Refresh(s boardSession, e entity.Entity, now time.Time) {
	if b == nil {
		return
	}
	ref, ok := b.lookup(e.ID)
	if !ok {
		return
	}
	content, components := RenderEntity(e, now)
	edit := discordgo.NewMessageEdit(ref.channelID, ref.messageID).SetContent(content)
	edit.Components = components
	if _, err := s.ChannelMessageEditComplex(edit); err != nil {
		slog.Warn("refresh board", "entity_id", e.ID, "channel_id", ref.channelID, "error", err)
	}
}
