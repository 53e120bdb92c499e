package content

import "time"

// Identity carries the content API's id. Some endpoints only send Mongo-style
// "_id"; normalizeID copies it into ID.
type Identity struct {
	ID    string `json:"id"`
	RawID string `json:"_id,omitempty"`
}

func (i *Identity) normalizeID() {
	if i.ID == "" {
		i.ID = i.RawID
	}
	i.RawID = ""
}

type normalizer interface {
	normalizeID()
}

// Review is a vehicle review.
type Review struct {
	Identity
	Title       string    `json:"title"`
	Slug        string    `json:"slug,omitempty"`
	Make        string    `json:"make,omitempty"`
	Model       string    `json:"model,omitempty"`
	Year        int       `json:"year,omitempty"`
	Rating      float64   `json:"rating,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	Body        string    `json:"body,omitempty"`
	Pros        []string  `json:"pros,omitempty"`
	Cons        []string  `json:"cons,omitempty"`
	Images      []string  `json:"images,omitempty"`
	Author      string    `json:"author,omitempty"`
	PublishedAt time.Time `json:"publishedAt,omitempty"`
}

// Article is an editorial feature.
type Article struct {
	Identity
	Title       string    `json:"title"`
	Slug        string    `json:"slug,omitempty"`
	Excerpt     string    `json:"excerpt,omitempty"`
	Body        string    `json:"body,omitempty"`
	Category    string    `json:"category,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	CoverImage  string    `json:"coverImage,omitempty"`
	Author      string    `json:"author,omitempty"`
	PublishedAt time.Time `json:"publishedAt,omitempty"`
}

// News is a short news item.
type News struct {
	Identity
	Title       string    `json:"title"`
	Summary     string    `json:"summary,omitempty"`
	Body        string    `json:"body,omitempty"`
	Source      string    `json:"source,omitempty"`
	Image       string    `json:"image,omitempty"`
	PublishedAt time.Time `json:"publishedAt,omitempty"`
}

// SearchResult is one hit from either search endpoint.
type SearchResult struct {
	Identity
	Type    string  `json:"type,omitempty"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet,omitempty"`
	URL     string  `json:"url,omitempty"`
	Score   float64 `json:"score,omitempty"`
}
