package commands

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/tallybot/internal/entity"
	"github.com/susu3304/tallybot/internal/ledger"
)

// HandleRedeem serves /redeem.
func HandleRedeem(s *discordgo.Session, i *discordgo.InteractionCreate, deps Deps) {
	opts := i.ApplicationCommandData().Options
	code := stringOr(opts, "code")
	var price int64
	if p := getIntOption(opts, "price"); p != nil {
		price = *p
	}

	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()
	coupon, err := findCoupon(ctx, deps.Engine, code)
	if err != nil {
		respondError(s, i, err)
		return
	}
	res, err := deps.Engine.Do(ctx, ledger.RedeemCoupon{EntityID: coupon.ID, ActorID: interactionUserID(i), BasePrice: price})
	if err != nil {
		respondError(s, i, err)
		return
	}
	respondEphemeral(s, i, fmt.Sprintf("クーポン %s を使用しました。お支払い金額: %s", res.Snapshot.Coupon.Code, groupDigits(res.FinalPrice)))
	deps.Boards.Refresh(s, res.Snapshot, deps.Engine.Clock().Now())
}

// HandleClose serves /close.
func HandleClose(s *discordgo.Session, i *discordgo.InteractionCreate, deps Deps) {
	id := stringOr(i.ApplicationCommandData().Options, "id")

	ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
	defer cancel()
	e, err := deps.Engine.Apply(ctx, ledger.CloseEntity{EntityID: id, ActorID: interactionUserID(i)})
	if err != nil {
		respondError(s, i, err)
		return
	}
	respondEphemeral(s, i, fmt.Sprintf("%s を締め切りました", e.Title))
	deps.Boards.Refresh(s, e, deps.Engine.Clock().Now())
}

func findCoupon(ctx context.Context, engine *ledger.Engine, code string) (entity.Entity, error) {
	want := entity.NormalizeCode(code)
	if want == "" {
		return entity.Entity{}, entity.Invalid("コードを指定してください")
	}
	coupons, err := engine.List(ctx, entity.KindCoupon)
	if err != nil {
		return entity.Entity{}, err
	}
	for _, c := range coupons {
		if entity.CouponCode(c) == want {
			return c, nil
		}
	}
	return entity.Entity{}, fmt.Errorf("coupon %s: %w", want, entity.ErrNotFound)
}
