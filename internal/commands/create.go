package commands

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/tallybot/internal/entity"
	"github.com/susu3304/tallybot/internal/ledger"
)

const (
	interactionTimeout = 2500 * time.Millisecond
	defaultCouponHours = 24
)

// HandleCreate serves /poll, /wager, /coupon and /claimpool.
func HandleCreate(s *discordgo.Session, i *discordgo.InteractionCreate, deps Deps) {
	data := i.ApplicationCommandData()
	spec, err := specFor(data.Name, data.Options, deps.Engine.Clock().Now())
	if err != nil {
		respondError(s, i, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()
	e, err := deps.Engine.Create(ctx, interactionUserID(i), spec)
	if err != nil {
		respondError(s, i, err)
		return
	}
	respondEntity(s, i, e, deps)
}

func specFor(name string, opts []*discordgo.ApplicationCommandInteractionDataOption, now time.Time) (ledger.Spec, error) {
	switch name {
	case "poll":
		return pollSpec(opts)
	case "wager":
		return wagerSpec(opts)
	case "coupon":
		return couponSpec(opts, now)
	case "claimpool":
		return claimPoolSpec(opts)
	}
	return nil, entity.Invalid("unknown command %q", name)
}

func pollSpec(opts []*discordgo.ApplicationCommandInteractionDataOption) (ledger.Spec, error) {
	labels := splitChoices(stringOr(opts, "choices"))
	if len(labels) > maxChoices {
		return nil, entity.Invalid("選択肢は%d個までです", maxChoices)
	}
	choices := make([]ledger.Option, len(labels))
	for n, l := range labels {
		choices[n] = ledger.Option{ID: strconv.Itoa(n + 1), Label: l}
	}
	return ledger.NewPoll{Title: stringOr(opts, "title"), Choices: choices}, nil
}

func wagerSpec(opts []*discordgo.ApplicationCommandInteractionDataOption) (ledger.Spec, error) {
	return ledger.NewWagerPool{
		Title: stringOr(opts, "title"),
		Sides: [2]ledger.Option{
			{ID: "a", Label: stringOr(opts, "side_a")},
			{ID: "b", Label: stringOr(opts, "side_b")},
		},
	}, nil
}

func couponSpec(opts []*discordgo.ApplicationCommandInteractionDataOption, now time.Time) (ledger.Spec, error) {
	hours := int64(defaultCouponHours)
	if h := getIntOption(opts, "hours"); h != nil {
		hours = *h
	}
	var discount, price int64
	if d := getIntOption(opts, "discount"); d != nil {
		discount = *d
	}
	if p := getIntOption(opts, "price"); p != nil {
		price = *p
	}
	return ledger.NewCoupon{
		Title:           stringOr(opts, "title"),
		Code:            stringOr(opts, "code"),
		DiscountPercent: int(discount),
		BasePrice:       price,
		ExpiresAt:       now.Add(time.Duration(hours) * time.Hour),
	}, nil
}

func claimPoolSpec(opts []*discordgo.ApplicationCommandInteractionDataOption) (ledger.Spec, error) {
	var capacity int64
	if c := getIntOption(opts, "capacity"); c != nil {
		capacity = *c
	}
	return ledger.NewClaimPool{
		Title:     stringOr(opts, "title"),
		Capacity:  int(capacity),
		Guardians: [2]string{getUserOption(opts, "guardian1"), getUserOption(opts, "guardian2")},
	}, nil
}

// splitChoices accepts ASCII and Japanese commas.
func splitChoices(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '、' || r == '，' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func stringOr(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if v := getStringOption(opts, name); v != nil {
		return strings.TrimSpace(*v)
	}
	return ""
}
