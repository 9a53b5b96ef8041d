package commands

import (
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/tallybot/internal/entity"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func poll() entity.Entity {
	return entity.Entity{
		ID:      "p1",
		Kind:    entity.KindPoll,
		Version: 3,
		Title:   "Lunch",
		Poll: &entity.Poll{Choices: []entity.Choice{
			{ID: "1", Label: "Ramen", Voters: []string{"u1", "u2", "u3"}},
			{ID: "2", Label: "Sushi", Voters: []string{"u4"}},
		}},
	}
}

func buttons(t *testing.T, components []discordgo.MessageComponent) []discordgo.Button {
	t.Helper()
	var out []discordgo.Button
	for _, c := range components {
		row, ok := c.(discordgo.ActionsRow)
		if !ok {
			t.Fatalf("component %T is not an actions row", c)
		}
		if len(row.Components) > buttonsPerRow {
			t.Fatalf("row has %d buttons", len(row.Components))
		}
		for _, b := range row.Components {
			out = append(out, b.(discordgo.Button))
		}
	}
	return out
}

func TestRenderPoll(t *testing.T) {
	content, components := RenderEntity(poll(), now)

	for _, want := range []string{"📊 **Lunch**", "Ramen `████████░░`  75% (3)", "Sushi `███░░░░░░░`  25% (1)", "合計 4票", "id: p1"} {
		if !strings.Contains(content, want) {
			t.Errorf("content missing %q:\n%s", want, content)
		}
	}

	got := buttons(t, components)
	if len(got) != 3 {
		t.Fatalf("buttons = %d, want 3", len(got))
	}
	if got[0].CustomID != "vote:p1:1" || got[1].CustomID != "vote:p1:2" || got[2].CustomID != "retract:p1" {
		t.Errorf("custom ids = %q %q %q", got[0].CustomID, got[1].CustomID, got[2].CustomID)
	}
}

func TestRenderManyChoicesSplitsRows(t *testing.T) {
	e := poll()
	e.Poll.Choices = nil
	for n := 0; n < maxChoices; n++ {
		e.Poll.Choices = append(e.Poll.Choices, entity.Choice{ID: string(rune('a' + n)), Label: "x"})
	}
	components := RenderComponents(e)
	if len(components) != maxRows {
		t.Fatalf("rows = %d, want %d", len(components), maxRows)
	}
	if got := len(buttons(t, components)); got != maxChoices+1 {
		t.Fatalf("buttons = %d, want %d", got, maxChoices+1)
	}
}

func TestRenderWagerGroupsDigits(t *testing.T) {
	e := entity.Entity{
		ID:   "w1",
		Kind: entity.KindWagerPool,
		WagerPool: &entity.WagerPool{Sides: [2]entity.Side{
			{ID: "a", Label: "Red", Wagers: []entity.Wager{{ActorID: "u1", Amount: 1500}}},
			{ID: "b", Label: "Blue", Wagers: []entity.Wager{{ActorID: "u2", Amount: 500}}},
		}},
	}
	content, components := RenderEntity(e, now)
	if !strings.Contains(content, "1,500 (1人)") || !strings.Contains(content, "合計 2,000 (2人)") {
		t.Errorf("content = %s", content)
	}
	got := buttons(t, components)
	if len(got) != 2 || got[0].CustomID != "wager:w1:a" || got[1].CustomID != "wager:w1:b" {
		t.Errorf("buttons = %+v", got)
	}
}

func TestRenderClosedHasNoButtons(t *testing.T) {
	e := poll()
	e.Closed = true
	content, components := RenderEntity(e, now)
	if len(components) != 0 {
		t.Errorf("closed entity has %d rows", len(components))
	}
	if !strings.Contains(content, "締め切り") {
		t.Errorf("content = %s", content)
	}
}

func TestRenderFullClaimPoolDisablesButton(t *testing.T) {
	e := entity.Entity{
		ID:   "c1",
		Kind: entity.KindClaimPool,
		ClaimPool: &entity.ClaimPool{
			Capacity:  1,
			ClaimedBy: []string{"u1"},
			Guardians: [2]string{"g1", "g2"},
		},
	}
	content, components := RenderEntity(e, now)
	got := buttons(t, components)
	if len(got) != 1 || !got[0].Disabled || got[0].CustomID != "claim:c1" {
		t.Errorf("buttons = %+v", got)
	}
	if !strings.Contains(content, "残り 0 / 1") {
		t.Errorf("content = %s", content)
	}
}

func TestRenderCoupon(t *testing.T) {
	e := entity.Entity{
		ID:   "k1",
		Kind: entity.KindCoupon,
		Coupon: &entity.Coupon{
			Code:            "SAVE",
			DiscountPercent: 33,
			BasePrice:       999,
			ExpiresAt:       now.Add(-time.Minute),
		},
	}
	content, components := RenderEntity(e, now)
	if len(components) != 0 {
		t.Errorf("coupon has %d rows", len(components))
	}
	for _, want := range []string{"価格 670", "期限切れ"} {
		if !strings.Contains(content, want) {
			t.Errorf("content missing %q:\n%s", want, content)
		}
	}
}

func TestRenderRequest(t *testing.T) {
	msg := RenderRequest(entity.PendingRequest{ID: "r1", PoolID: "c1", RequesterID: "u1"}, "Tickets")
	if !strings.Contains(msg.Content, "<@u1>") || !strings.Contains(msg.Content, "Tickets") {
		t.Errorf("content = %s", msg.Content)
	}
	got := buttons(t, msg.Components)
	if len(got) != 2 || got[0].CustomID != "approve:r1" || got[1].CustomID != "deny:r1" {
		t.Errorf("buttons = %+v", got)
	}
}
