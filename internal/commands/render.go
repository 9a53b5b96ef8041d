package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/tallybot/internal/entity"
	"github.com/susu3304/tallybot/internal/projection"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Discord allows five buttons per row and five rows per message.
const (
	buttonsPerRow = 5
	maxRows       = 5
)

// RenderContent builds the message body for an entity summary.
func RenderContent(sum projection.Summary) string {
	var b strings.Builder
	b.WriteString(kindIcon(sum.Kind))
	b.WriteString(" **")
	if sum.Title != "" {
		b.WriteString(sum.Title)
	} else {
		b.WriteString(kindLabel(sum.Kind))
	}
	b.WriteString("**")
	if sum.Closed {
		b.WriteString(" (締め切り)")
	}
	b.WriteString("\n")

	for _, r := range sum.Rows {
		fmt.Fprintf(&b, "%s `%s` %3d%% %s\n", r.Label, r.Bar, r.Percent, rowValue(sum.Kind, r))
	}

	switch sum.Kind {
	case entity.KindPoll:
		fmt.Fprintf(&b, "合計 %d票", sum.TotalCount)
	case entity.KindWagerPool:
		fmt.Fprintf(&b, "合計 %s (%d人)", groupDigits(sum.TotalAmount), sum.TotalCount)
	case entity.KindCoupon:
		if sum.ExpiresAt != nil {
			fmt.Fprintf(&b, "有効期限 <t:%d:f>", sum.ExpiresAt.Unix())
		}
		if sum.Expired {
			b.WriteString(" (期限切れ)")
		}
	case entity.KindClaimPool:
		fmt.Fprintf(&b, "残り %d / %d", sum.Remaining, sum.Capacity)
	}
	fmt.Fprintf(&b, "\n-# id: %s", sum.EntityID)
	return b.String()
}

func rowValue(kind entity.Kind, r projection.Row) string {
	switch kind {
	case entity.KindWagerPool:
		return fmt.Sprintf("%s (%d人)", r.Display, r.Count)
	case entity.KindCoupon:
		return fmt.Sprintf("価格 %s / 利用 %d回", r.Display, r.Count)
	}
	return fmt.Sprintf("(%s)", r.Display)
}

// RenderComponents returns the buttons for an entity. Closed entities and
// coupons have none; coupons are redeemed with /redeem.
func RenderComponents(e entity.Entity) []discordgo.MessageComponent {
	if e.Closed {
		return []discordgo.MessageComponent{}
	}
	var buttons []discordgo.MessageComponent
	switch {
	case e.Poll != nil:
		for _, c := range e.Poll.Choices {
			buttons = append(buttons, discordgo.Button{
				Label:    c.Label,
				Style:    discordgo.PrimaryButton,
				CustomID: VoteID(e.ID, c.ID),
			})
		}
		buttons = append(buttons, discordgo.Button{
			Label:    "投票を取り消す",
			Style:    discordgo.SecondaryButton,
			CustomID: RetractID(e.ID),
		})
	case e.WagerPool != nil:
		for _, s := range e.WagerPool.Sides {
			buttons = append(buttons, discordgo.Button{
				Label:    s.Label + " に賭ける",
				Style:    discordgo.SuccessButton,
				CustomID: WagerID(e.ID, s.ID),
			})
		}
	case e.ClaimPool != nil:
		buttons = append(buttons, discordgo.Button{
			Label:    "申請する",
			Style:    discordgo.PrimaryButton,
			CustomID: ClaimID(e.ID),
			Disabled: e.ClaimPool.Remaining() <= 0,
		})
	}
	return rows(buttons)
}

func rows(buttons []discordgo.MessageComponent) []discordgo.MessageComponent {
	out := []discordgo.MessageComponent{}
	for len(buttons) > 0 && len(out) < maxRows {
		n := min(buttonsPerRow, len(buttons))
		out = append(out, discordgo.ActionsRow{Components: buttons[:n]})
		buttons = buttons[n:]
	}
	return out
}

// RenderRequest builds the guardian notification for a pending claim.
func RenderRequest(req entity.PendingRequest, poolTitle string) *discordgo.MessageSend {
	title := poolTitle
	if title == "" {
		title = req.PoolID
	}
	return &discordgo.MessageSend{
		Content: fmt.Sprintf("🙋 <@%s> が **%s** への申請を出しました。承認しますか？\n-# request: %s", req.RequesterID, title, req.ID),
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "承認", Style: discordgo.SuccessButton, CustomID: ApproveID(req.ID)},
				discordgo.Button{Label: "却下", Style: discordgo.DangerButton, CustomID: DenyID(req.ID)},
			}},
		},
	}
}

func kindIcon(k entity.Kind) string {
	switch k {
	case entity.KindPoll:
		return "📊"
	case entity.KindWagerPool:
		return "🎲"
	case entity.KindCoupon:
		return "🎟️"
	case entity.KindClaimPool:
		return "📦"
	}
	return "•"
}

func kindLabel(k entity.Kind) string {
	switch k {
	case entity.KindPoll:
		return "投票"
	case entity.KindWagerPool:
		return "賭け"
	case entity.KindCoupon:
		return "クーポン"
	case entity.KindClaimPool:
		return "申請枠"
	}
	return string(k)
}

func groupDigits(n int64) string {
	return printer.Sprintf("%d", n)
}

var printer = message.NewPrinter(language.Japanese)

// RenderEntity projects e and renders both the body and its buttons.
func RenderEntity(e entity.Entity, now time.Time) (string, []discordgo.MessageComponent) {
	return RenderContent(projection.ProjectWith(printer, e, now)), RenderComponents(e)
}
