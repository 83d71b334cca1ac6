package models

// WaterNewsArticle is a normalized RSS/Atom item.
type WaterNewsArticle struct {
	Title   string  `json:"title"`
	Link    string  `json:"link"`
	Date    *string `json:"date"`
	Summary string  `json:"summary"`
	Source  string  `json:"source"`
	Image   *string `json:"image"`
}
