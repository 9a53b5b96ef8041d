package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/tallybot/internal/approval"
	"github.com/susu3304/tallybot/internal/entity"
	"github.com/susu3304/tallybot/internal/ledger"
)

// HandleComponent serves button clicks on boards and guardian DMs.
func HandleComponent(s *discordgo.Session, i *discordgo.InteractionCreate, deps Deps) {
	id, err := ParseCustomID(i.MessageComponentData().CustomID)
	if err != nil {
		slog.Warn("ignored component", "custom_id", i.MessageComponentData().CustomID, "error", err)
		return
	}
	actor := interactionUserID(i)

	if id.Action == idWager {
		openWagerModal(s, i, id)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()

	switch id.Action {
	case idVote:
		e, err := deps.Engine.Apply(ctx, ledger.CastVote{EntityID: id.Target, ActorID: actor, ChoiceID: id.Arg})
		if err != nil {
			respondError(s, i, err)
			return
		}
		respondUpdate(s, i, e, deps)
	case idRetract:
		e, err := deps.Engine.Apply(ctx, ledger.RetractVote{EntityID: id.Target, ActorID: actor})
		if err != nil {
			respondError(s, i, err)
			return
		}
		respondUpdate(s, i, e, deps)
	case idClaim:
		res, err := deps.Coord.RequestClaim(ctx, id.Target, actor, [2]string{})
		if err != nil && res.Request == nil {
			respondError(s, i, err)
			return
		}
		// A failed dispatch leaves the request pending; the reminder retries it.
		respondUpdate(s, i, res.Snapshot, deps)
	case idApprove, idDeny:
		resolve(ctx, s, i, deps, id, actor)
	default:
		respondEphemeral(s, i, "このボタンは使えません")
	}
}

func resolve(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, deps Deps, id ComponentID, actor string) {
	decision := approval.Approve
	if id.Action == idDeny {
		decision = approval.Deny
	}
	res, err := deps.Coord.Resolve(ctx, id.Target, actor, decision)
	if err != nil {
		respondError(s, i, err)
		return
	}
	respond(s, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    resolutionText(res),
			Components: []discordgo.MessageComponent{},
		},
	})
	deps.Boards.Refresh(s, res.Snapshot, deps.Engine.Clock().Now())
}

func resolutionText(res approval.Resolution) string {
	req := res.Request
	switch res.Outcome {
	case approval.OutcomeApproved:
		return fmt.Sprintf("✅ <@%s> の申請を承認しました", req.RequesterID)
	case approval.OutcomeDenied:
		return fmt.Sprintf("❌ <@%s> の申請を却下しました", req.RequesterID)
	}
	verb := "承認"
	if req.Status == entity.RequestDenied {
		verb = "却下"
	}
	return fmt.Sprintf("⌛ この申請は既に <@%s> が%s済みです", res.DecidedBy, verb)
}

func openWagerModal(s *discordgo.Session, i *discordgo.InteractionCreate, id ComponentID) {
	respond(s, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: WagerAmountID(id.Target, id.Arg),
			Title:    "賭け金を入力",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:    amountInputID,
							Label:       "金額",
							Style:       discordgo.TextInputShort,
							Placeholder: "例: 500",
							Required:    true,
							MaxLength:   12,
						},
					},
				},
			},
		},
	})
}

// HandleModalSubmit serves the wager amount modal.
func HandleModalSubmit(s *discordgo.Session, i *discordgo.InteractionCreate, deps Deps) {
	data := i.ModalSubmitData()
	id, err := ParseCustomID(data.CustomID)
	if err != nil || id.Action != idWagerAmount {
		slog.Warn("ignored modal", "custom_id", data.CustomID)
		return
	}

	amount, err := parseAmount(modalValue(data.Components, amountInputID))
	if err != nil {
		respondError(s, i, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()
	e, err := deps.Engine.Apply(ctx, ledger.PlaceWager{
		EntityID: id.Target,
		ActorID:  interactionUserID(i),
		SideID:   id.Arg,
		Amount:   amount,
	})
	if err != nil {
		respondError(s, i, err)
		return
	}
	respondUpdate(s, i, e, deps)
}

func modalValue(components []discordgo.MessageComponent, inputID string) string {
	for _, component := range components {
		if row, ok := component.(*discordgo.ActionsRow); ok {
			for _, c := range row.Components {
				if input, ok := c.(*discordgo.TextInput); ok && input.CustomID == inputID {
					return input.Value
				}
			}
		}
	}
	return ""
}

// parseAmount accepts digits with optional grouping commas.
func parseAmount(s string) (int64, error) {
	s = strings.NewReplacer(",", "", "，", "", " ", "").Replace(strings.TrimSpace(s))
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, entity.Invalid("金額 %q を数値として読めません", s)
	}
	if n <= 0 {
		return 0, entity.ErrInvalidAmount
	}
	return n, nil
}
