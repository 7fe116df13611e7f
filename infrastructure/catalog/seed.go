package catalog

import "github.com/richardiffusion/mrga/domain/station"

// DefaultStations is the built-in catalog used when no data file can be
// read and to seed an empty stations table.
func DefaultStations() []station.Station {
	return []station.Station{
		{
			ID:          1,
			Name:        "BBC Radio 1",
			Description: "The world's most famous radio station playing the latest hits",
			Country:     "UK",
			City:        "London",
			Genre:       "Pop",
			Language:    "English",
			StreamURL:   "https://stream.live.vc.bbcmedia.co.uk/bbc_radio_one",
			Website:     "https://www.bbc.co.uk/sounds/play/live:bbc_radio_one",
			ImageURL:    "https://static.bbc.co.uk/radio/station/images/base/64/c5/bbc_radio_one.png",
			Frequency:   "97-99 FM",
			Tags:        []string{"pop", "hits", "chart", "new music"},
		},
		{
			ID:          2,
			Name:        "KEXP 90.3 FM",
			Description: "Listener-supported Seattle station famous for indie discoveries and live sessions",
			Country:     "USA",
			City:        "Seattle",
			Genre:       "Indie",
			Language:    "English",
			StreamURL:   "https://kexp-mp3-128.streamguys1.com/kexp128.mp3",
			Website:     "https://www.kexp.org",
			Frequency:   "90.3 FM",
			Tags:        []string{"indie", "alternative", "rock", "live sessions"},
		},
		{
			ID:          3,
			Name:        "Radio Paradise",
			Description: "Eclectic, listener-supported mix of rock, world and electronic music without ads",
			Country:     "USA",
			City:        "Paradise",
			Genre:       "Eclectic",
			Language:    "English",
			StreamURL:   "https://stream.radioparadise.com/mp3-192",
			Website:     "https://radioparadise.com",
			Tags:        []string{"eclectic", "rock", "ad-free", "mellow"},
		},
		{
			ID:          4,
			Name:        "TSF Jazz",
			Description: "Jazz around the clock from the heart of Paris",
			Country:     "France",
			City:        "Paris",
			Genre:       "Jazz",
			Language:    "French",
			StreamURL:   "https://tsfjazz.ice.infomaniak.ch/tsfjazz-high.mp3",
			Website:     "https://www.tsfjazz.com",
			Frequency:   "89.9 FM",
			Tags:        []string{"jazz", "paris", "swing", "soul"},
		},
		{
			ID:          5,
			Name:        "FIP",
			Description: "Radio France's curated blend of jazz, soul, world and electronic music",
			Country:     "France",
			City:        "Paris",
			Genre:       "Eclectic",
			Language:    "French",
			StreamURL:   "https://icecast.radiofrance.fr/fip-hifi.aac",
			Website:     "https://www.radiofrance.fr/fip",
			Frequency:   "105.1 FM",
			Tags:        []string{"jazz", "world", "eclectic", "paris"},
		},
		{
			ID:          6,
			Name:        "Classic FM",
			Description: "The UK's favourite classical music station",
			Country:     "UK",
			City:        "London",
			Genre:       "Classical",
			Language:    "English",
			StreamURL:   "https://media-ice.musicradio.com/ClassicFMMP3",
			Website:     "https://www.classicfm.com",
			Frequency:   "100-102 FM",
			Tags:        []string{"classical", "orchestra", "piano"},
		},
		{
			ID:          7,
			Name:        "BBC Radio 3",
			Description: "Classical music, opera, jazz and live concerts",
			Country:     "UK",
			City:        "London",
			Genre:       "Classical",
			Language:    "English",
			StreamURL:   "https://stream.live.vc.bbcmedia.co.uk/bbc_radio_three",
			Website:     "https://www.bbc.co.uk/sounds/play/live:bbc_radio_three",
			Frequency:   "90-93 FM",
			Tags:        []string{"classical", "opera", "concerts"},
		},
		{
			ID:          8,
			Name:        "SomaFM Groove Salad",
			Description: "A nicely chilled plate of ambient and downtempo beats",
			Country:     "USA",
			City:        "San Francisco",
			Genre:       "Ambient",
			Language:    "English",
			StreamURL:   "https://ice1.somafm.com/groovesalad-128-mp3",
			Website:     "https://somafm.com/groovesalad/",
			Tags:        []string{"chill", "ambient", "downtempo", "study"},
		},
		{
			ID:          9,
			Name:        "NPR News",
			Description: "National Public Radio news and talk programming",
			Country:     "USA",
			City:        "Washington",
			Genre:       "News",
			Language:    "English",
			StreamURL:   "https://npr-ice.streamguys1.com/live.mp3",
			Website:     "https://www.npr.org",
			Tags:        []string{"news", "talk", "podcast"},
		},
		{
			ID:          10,
			Name:        "BBC World Service",
			Description: "International news, analysis and documentaries",
			Country:     "UK",
			City:        "London",
			Genre:       "News",
			Language:    "English",
			StreamURL:   "https://stream.live.vc.bbcmedia.co.uk/bbc_world_service",
			Website:     "https://www.bbc.co.uk/worldserviceradio",
			Tags:        []string{"news", "world", "documentary"},
		},
	}
}
