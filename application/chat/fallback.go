package chat

import "strings"

type fallbackBranch struct {
	keywords []string
	text     string
}

// Branches are checked in order; the first keyword hit wins.
var fallbackBranches = []fallbackBranch{
	{
		keywords: []string{"jazz", "paris"},
		text: "Ah, a taste for something smooth! For jazz with a Parisian touch, start with TSF Jazz, " +
			"broadcasting classic and modern jazz straight from Paris around the clock. " +
			"FIP is another Paris favourite that mixes jazz with soul, world and electronic music in beautifully curated sets.\n\n" +
			"RECOMMENDED_STATIONS: TSF Jazz, FIP",
	},
	{
		keywords: []string{"classical", "opera", "piano"},
		text: "Time to sit back and let the orchestra take over. Classic FM plays the best-loved classical pieces " +
			"with friendly presenters, and BBC Radio 3 goes deeper with full concerts, opera and live performances.\n\n" +
			"RECOMMENDED_STATIONS: Classic FM, BBC Radio 3",
	},
	{
		keywords: []string{"morning", "wake", "upbeat", "energetic"},
		text: "Let's get you moving! BBC Radio 1 keeps the energy high with the latest hits, " +
			"and KEXP 90.3 FM brings fresh, upbeat discoveries from Seattle to kick-start your day.\n\n" +
			"RECOMMENDED_STATIONS: BBC Radio 1, KEXP 90.3 FM",
	},
	{
		keywords: []string{"night", "sleep", "relax", "chill", "study", "lofi"},
		text: "Slow it down and breathe. SomaFM Groove Salad serves up ambient downtempo beats perfect for focus or winding down, " +
			"and Radio Paradise mixes mellow tracks that never get in the way.\n\n" +
			"RECOMMENDED_STATIONS: SomaFM Groove Salad, Radio Paradise",
	},
	{
		keywords: []string{"rock", "metal", "punk", "indie"},
		text: "Turn it up! KEXP 90.3 FM is legendary for indie and alternative rock with great live sessions, " +
			"and Radio Paradise blends rock classics with new guitar music you have not heard yet.\n\n" +
			"RECOMMENDED_STATIONS: KEXP 90.3 FM, Radio Paradise",
	},
	{
		keywords: []string{"news", "talk", "podcast"},
		text: "For great talk and up-to-the-minute news, NPR News covers stories from across the US and the world, " +
			"and BBC World Service brings global reporting and documentaries around the clock.\n\n" +
			"RECOMMENDED_STATIONS: NPR News, BBC World Service",
	},
}

const defaultFallback = "Our AI DJ is taking a short break, but here are some crowd favourites to get you started! " +
	"BBC Radio 1 plays the biggest hits, KEXP 90.3 FM is a treasure trove of new music, " +
	"and Radio Paradise mixes genres into one eclectic, ad-free stream.\n\n" +
	"RECOMMENDED_STATIONS: BBC Radio 1, KEXP 90.3 FM, Radio Paradise"

// Fallback picks a canned recommendation for prompt.
func Fallback(prompt string) string {
	lower := strings.ToLower(prompt)
	for _, branch := range fallbackBranches {
		for _, keyword := range branch.keywords {
			if strings.Contains(lower, keyword) {
				return branch.text
			}
		}
	}
	return defaultFallback
}
