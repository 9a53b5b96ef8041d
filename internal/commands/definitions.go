package commands

import "github.com/bwmarrin/discordgo"

// maxChoices leaves room for the retract button in a 25-button message.
const maxChoices = 24

func GetCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:         "poll",
			Description:  "投票を作成します",
			DMPermission: boolPtr(false),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "title",
					Description: "タイトル",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "choices",
					Description: "選択肢（カンマ区切り、2〜24個）",
					Required:    true,
				},
			},
		},
		{
			Name:         "wager",
			Description:  "2択の賭けを作成します",
			DMPermission: boolPtr(false),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "title",
					Description: "タイトル",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "side_a",
					Description: "選択肢A",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "side_b",
					Description: "選択肢B",
					Required:    true,
				},
			},
		},
		{
			Name:         "coupon",
			Description:  "クーポンを発行します",
			DMPermission: boolPtr(false),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "code",
					Description: "クーポンコード",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "discount",
					Description: "割引率（%）",
					Required:    true,
					MinValue:    floatPtr(1),
					MaxValue:    100,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "price",
					Description: "基準価格",
					Required:    true,
					MinValue:    floatPtr(0),
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "hours",
					Description: "有効期間（時間、既定24）",
					MinValue:    floatPtr(1),
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "title",
					Description: "タイトル",
				},
			},
		},
		{
			Name:         "claimpool",
			Description:  "承認制の申請枠を作成します",
			DMPermission: boolPtr(false),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "title",
					Description: "タイトル",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "capacity",
					Description: "枠数",
					Required:    true,
					MinValue:    floatPtr(1),
				},
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "guardian1",
					Description: "承認者1",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "guardian2",
					Description: "承認者2",
					Required:    true,
				},
			},
		},
		{
			Name:         "redeem",
			Description:  "クーポンを使用します",
			DMPermission: boolPtr(false),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "code",
					Description: "クーポンコード",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "price",
					Description: "価格（省略時は基準価格）",
					MinValue:    floatPtr(1),
				},
			},
		},
		{
			Name:         "list",
			Description:  "開催中の投票・賭け・クーポン・申請枠を表示します",
			DMPermission: boolPtr(false),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "kind",
					Description: "種類で絞り込み",
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "投票", Value: "poll"},
						{Name: "賭け", Value: "wager_pool"},
						{Name: "クーポン", Value: "coupon"},
						{Name: "申請枠", Value: "claim_pool"},
					},
				},
			},
		},
		{
			Name:         "close",
			Description:  "作成したものを締め切ります",
			DMPermission: boolPtr(false),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "id",
					Description: "メッセージ下部に表示されている id",
					Required:    true,
				},
			},
		},
	}
}
