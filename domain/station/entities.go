package station

import "time"

// Station is one entry of the radio catalog.
type Station struct {
	ID            int       `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name          string    `gorm:"type:varchar(255);not null;index" json:"name"`
	Description   string    `gorm:"type:text" json:"description"`
	Country       string    `gorm:"type:varchar(100);not null;index" json:"country"`
	City          string    `gorm:"type:varchar(100)" json:"city"`
	Genre         string    `gorm:"type:varchar(100);not null;index" json:"genre"`
	Language      string    `gorm:"type:varchar(100);not null" json:"language"`
	StreamURL     string    `gorm:"type:text;not null" json:"stream_url"`
	Website       string    `gorm:"type:text" json:"website"`
	ImageURL      string    `gorm:"type:text" json:"image_url"`
	Frequency     string    `gorm:"type:varchar(100)" json:"frequency"`
	Tags          []string  `gorm:"serializer:json" json:"tags"`
	IsAIGenerated bool      `gorm:"default:false" json:"is_ai_generated"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"-"`
}

func (Station) TableName() string {
	return "stations"
}

// Clone returns a copy that shares no slices with s.
func (s Station) Clone() Station {
	if s.Tags != nil {
		s.Tags = append(make([]string, 0, len(s.Tags)), s.Tags...)
	}
	return s
}

// NewStation is the payload for creating a station.
type NewStation struct {
	Name          string   `json:"name" binding:"required"`
	Description   string   `json:"description"`
	Country       string   `json:"country" binding:"required"`
	City          string   `json:"city"`
	Genre         string   `json:"genre" binding:"required"`
	Language      string   `json:"language" binding:"required"`
	StreamURL     string   `json:"stream_url" binding:"required"`
	Website       string   `json:"website"`
	ImageURL      string   `json:"image_url"`
	Frequency     string   `json:"frequency"`
	Tags          []string `json:"tags"`
	IsAIGenerated bool     `json:"is_ai_generated"`
}

// Station builds a catalog entry with the given id. Tags default to an
// empty list rather than null.
func (n NewStation) Station(id int) Station {
	tags := append([]string{}, n.Tags...)
	return Station{
		ID:            id,
		Name:          n.Name,
		Description:   n.Description,
		Country:       n.Country,
		City:          n.City,
		Genre:         n.Genre,
		Language:      n.Language,
		StreamURL:     n.StreamURL,
		Website:       n.Website,
		ImageURL:      n.ImageURL,
		Frequency:     n.Frequency,
		Tags:          tags,
		IsAIGenerated: n.IsAIGenerated,
	}
}

// Patch is a partial update; nil fields are left untouched.
type Patch struct {
	Name          *string   `json:"name"`
	Description   *string   `json:"description"`
	Country       *string   `json:"country"`
	City          *string   `json:"city"`
	Genre         *string   `json:"genre"`
	Language      *string   `json:"language"`
	StreamURL     *string   `json:"stream_url"`
	Website       *string   `json:"website"`
	ImageURL      *string   `json:"image_url"`
	Frequency     *string   `json:"frequency"`
	Tags          *[]string `json:"tags"`
	IsAIGenerated *bool     `json:"is_ai_generated"`
}

// Apply writes the set fields of p onto s. The id is never changed.
func (p Patch) Apply(s *Station) {
	setString(&s.Name, p.Name)
	setString(&s.Description, p.Description)
	setString(&s.Country, p.Country)
	setString(&s.City, p.City)
	setString(&s.Genre, p.Genre)
	setString(&s.Language, p.Language)
	setString(&s.StreamURL, p.StreamURL)
	setString(&s.Website, p.Website)
	setString(&s.ImageURL, p.ImageURL)
	setString(&s.Frequency, p.Frequency)
	if p.Tags != nil {
		s.Tags = append([]string{}, (*p.Tags)...)
	}
	if p.IsAIGenerated != nil {
		s.IsAIGenerated = *p.IsAIGenerated
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// Filter narrows a catalog search. "all" or an empty value disables a
// facet filter.
type Filter struct {
	Query   string `form:"q"`
	Genre   string `form:"genre"`
	Country string `form:"country"`
}
