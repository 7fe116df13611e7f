package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/richardiffusion/mrga/domain/station"

	"github.com/sirupsen/logrus"
)

const promptTemplate = `You are a friendly radio DJ helping people discover radio stations.

Here are all available stations:
%s

User request: "%s"

Based on the user's request, recommend 3-5 relevant stations from the list above. Be conversational, fun, and explain why each station matches their request. Format your response naturally as if chatting with a friend.

Then, at the end of your message, add a line "RECOMMENDED_STATIONS:" followed by the exact station names you recommended (exactly matching the names in the list).

Example format:
"Your message here...

RECOMMENDED_STATIONS: BBC Radio 1, KEXP 90.3 FM, Radio Paradise"`

// PromptBuilder renders the user message: the station list, the request and
// the answer format.
type PromptBuilder struct {
	stations station.Lister
}

func NewPromptBuilder(stations station.Lister) *PromptBuilder {
	return &PromptBuilder{stations: stations}
}

// Build never fails. Without a catalog, or when listing fails, the prompt
// goes out with an empty station list.
func (b *PromptBuilder) Build(ctx context.Context, userPrompt string) string {
	var stations []station.Station
	if b.stations != nil {
		list, err := b.stations.List(ctx)
		if err != nil {
			logrus.WithError(err).Warn("Failed to list stations for prompt context")
		} else {
			stations = list
		}
	}
	return fmt.Sprintf(promptTemplate, StationContext(stations), userPrompt)
}

// StationContext formats one line per station.
func StationContext(stations []station.Station) string {
	lines := make([]string, 0, len(stations))
	for _, s := range stations {
		lines = append(lines, StationLine(s))
	}
	return strings.Join(lines, "\n")
}

// StationLine renders "Name - Genre from City, Country (Language) - Description [Tags: a, b]".
func StationLine(s station.Station) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s - %s from %s, %s (%s) - %s", s.Name, s.Genre, s.City, s.Country, s.Language, s.Description)
	if len(s.Tags) > 0 {
		fmt.Fprintf(&b, " [Tags: %s]", strings.Join(s.Tags, ", "))
	}
	return b.String()
}
