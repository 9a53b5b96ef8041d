package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/tallybot/internal/entity"
	"github.com/susu3304/tallybot/internal/projection"
)

const messageLimit = 2000

var listKinds = []entity.Kind{entity.KindPoll, entity.KindWagerPool, entity.KindCoupon, entity.KindClaimPool}

// HandleList serves /list: every open entity, optionally of one kind.
func HandleList(s *discordgo.Session, i *discordgo.InteractionCreate, deps Deps) {
	kinds := listKinds
	if k := stringOr(i.ApplicationCommandData().Options, "kind"); k != "" {
		kinds = []entity.Kind{entity.Kind(k)}
	}

	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()
	now := deps.Engine.Clock().Now()

	var entries []string
	for _, kind := range kinds {
		list, err := deps.Engine.List(ctx, kind)
		if err != nil {
			respondError(s, i, err)
			return
		}
		for _, e := range list {
			if e.Closed {
				continue
			}
			entries = append(entries, listEntry(projection.ProjectWith(printer, e, now)))
		}
	}
	if len(entries) == 0 {
		respondText(s, i, "開催中のものはありません。")
		return
	}

	chunks := chunkLines(entries, messageLimit)
	respondText(s, i, chunks[0])
	for _, c := range chunks[1:] {
		if _, err := s.ChannelMessageSend(i.ChannelID, c); err != nil {
			respondError(s, i, err)
			return
		}
	}
}

func listEntry(sum projection.Summary) string {
	title := sum.Title
	if title == "" {
		title = kindLabel(sum.Kind)
	}
	return fmt.Sprintf("%s %s (%s) `%s`", kindIcon(sum.Kind), title, sum.Headline, sum.EntityID)
}

// chunkLines joins entries with newlines into messages no longer than limit
// bytes. An entry longer than limit gets a message of its own.
func chunkLines(entries []string, limit int) []string {
	var out []string
	var buffer strings.Builder
	for _, entry := range entries {
		if buffer.Len() > 0 && buffer.Len()+len(entry)+1 > limit {
			out = append(out, buffer.String())
			buffer.Reset()
		}
		if buffer.Len() > 0 {
			buffer.WriteString("\n")
		}
		buffer.WriteString(entry)
	}
	if buffer.Len() > 0 {
		out = append(out, buffer.String())
	}
	return out
}
