package commands

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/tallybot/internal/entity"
	"github.com/susu3304/tallybot/internal/serializer"
)

func respondText(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	respond(s, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
}

func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	respond(s, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

// respondEntity posts a new message showing e.
func respondEntity(s *discordgo.Session, i *discordgo.InteractionCreate, e entity.Entity, deps Deps) {
	content, components := RenderEntity(e, deps.Engine.Clock().Now())
	respond(s, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content, Components: components},
	})
	if deps.Boards == nil {
		return
	}
	// The original response is the board message for e.
	if msg, err := s.InteractionResponse(i.Interaction); err == nil {
		deps.Boards.Track(e.ID, msg.ChannelID, msg.ID)
	} else {
		slog.Warn("fetch interaction response", "entity_id", e.ID, "error", err)
	}
}

// respondUpdate re-renders the message the component belongs to.
func respondUpdate(s *discordgo.Session, i *discordgo.InteractionCreate, e entity.Entity, deps Deps) {
	content, components := RenderEntity(e, deps.Engine.Clock().Now())
	respond(s, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{Content: content, Components: components},
	})
	if deps.Boards != nil && i.Message != nil {
		deps.Boards.Track(e.ID, i.ChannelID, i.Message.ID)
	}
}

func respondError(s *discordgo.Session, i *discordgo.InteractionCreate, err error) {
	if !entity.IsDomain(err) {
		slog.Error("interaction failed", "interaction_id", i.ID, "error", err)
	}
	respondEphemeral(s, i, errorText(err))
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, resp *discordgo.InteractionResponse) {
	if err := s.InteractionRespond(i.Interaction, resp); err != nil {
		slog.Error("interaction respond", "interaction_id", i.ID, "error", err)
	}
}

var errorTexts = []struct {
	err  error
	text string
}{
	{entity.ErrNotFound, "対象が見つかりませんでした"},
	{entity.ErrUnknownChoice, "その選択肢は存在しません"},
	{entity.ErrInvalidAmount, "金額は1以上、上限以下の整数で指定してください"},
	{entity.ErrAlreadyWagered, "既に賭けています"},
	{entity.ErrExpired, "このクーポンは期限切れです"},
	{entity.ErrAlreadyRedeemed, "このクーポンは既に使用済みです"},
	{entity.ErrExhausted, "申請枠が埋まっています"},
	{entity.ErrAlreadyResolved, "この申請は既に処理されています"},
	{entity.ErrAlreadyClaimed, "既に申請済みです"},
	{entity.ErrClosed, "締め切られています"},
	{entity.ErrDuplicate, "同じコードが既に登録されています"},
	{entity.ErrSelfGuardian, "自分の申請の承認者にはなれません"},
	{entity.ErrInvalidGuardians, "承認者は異なる2人を指定してください"},
	{entity.ErrNotGuardian, "この申請の承認者ではありません"},
	{entity.ErrNotPermitted, "作成者のみ操作できます"},
	{entity.ErrKindMismatch, "この対象には使えない操作です"},
	{serializer.ErrShuttingDown, "メンテナンス中です。しばらくしてから再度お試しください"},
	{context.DeadlineExceeded, "混み合っています。もう一度お試しください"},
}

// errorText turns an engine error into a message for the acting user.
func errorText(err error) string {
	for _, e := range errorTexts {
		if errors.Is(err, e.err) {
			return e.text
		}
	}
	if errors.Is(err, entity.ErrInvalidAction) {
		return "入力が不正です: " + err.Error()
	}
	return "処理に失敗しました"
}

// interactionUserID is the acting user for guild and DM interactions alike.
func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func getIntOption(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) *int64 {
	for _, o := range opts {
		if o.Name == name {
			v := o.IntValue()
			return &v
		}
	}
	return nil
}

func getStringOption(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) *string {
	for _, o := range opts {
		if o.Name == name {
			v := o.StringValue()
			return &v
		}
	}
	return nil
}

// getUserOption reads the raw user id; no session is needed for that.
func getUserOption(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, o := range opts {
		if o.Name != name {
			continue
		}
		if id, ok := o.Value.(string); ok {
			return id
		}
	}
	return ""
}

func boolPtr(b bool) *bool {
	return &b
}

func floatPtr(f float64) *float64 {
	return &f
}
