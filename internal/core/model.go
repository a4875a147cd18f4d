package core

import "time"

// Project groups styles and, through them, prompts.
type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Style is a template with named placeholders. One placeholder holds the
// completion and one is used as the search preview.
type Style struct {
	ID            int64     `json:"id"`
	IDText        string    `json:"id_text"`
	Template      string    `json:"template"`
	CompletionKey string    `json:"completion_key"`
	PreviewKey    string    `json:"preview_key"`
	ProjectID     int64     `json:"project_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// StyleKey is a placeholder name declared for a style.
type StyleKey struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	StyleID int64  `json:"style_id"`
}

// Prompt is one instantiation of a style.
type Prompt struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	StyleID   int64     `json:"style_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PromptValue holds the filled-in text of one style key for a prompt.
type PromptValue struct {
	ID       int64  `json:"id"`
	PromptID int64  `json:"prompt_id"`
	Key      string `json:"key"`
	Value    string `json:"value"`
}

// Example is a completion attached to a prompt.
type Example struct {
	ID         int64     `json:"id"`
	PromptID   int64     `json:"prompt_id"`
	Completion string    `json:"completion"`
	Tags       []string  `json:"tags,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Tag is attached to either a prompt or an example, never both.
type Tag struct {
	ID        int64  `json:"id"`
	Value     string `json:"value"`
	PromptID  *int64 `json:"prompt_id,omitempty"`
	ExampleID *int64 `json:"example_id,omitempty"`
}

// Export records a finished export artifact.
type Export struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
}

// SearchFilter selects prompts for search and export.
// Zero values mean "no filter" for every field.
type SearchFilter struct {
	Content   string   `json:"content,omitempty"`
	Example   string   `json:"example,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	ProjectID int64    `json:"project_id,omitempty"`
	StyleID   int64    `json:"style_id,omitempty"`
	Limit     int      `json:"limit,omitempty"`
	Offset    int      `json:"offset,omitempty"`
}

// SearchResult is one prompt row of a search page.
type SearchResult struct {
	Prompt       Prompt   `json:"prompt"`
	PreviewKey   string   `json:"preview_key"`
	PreviewValue string   `json:"preview_value"`
	Tags         []string `json:"tags"`
	Row          Row      `json:"-"`
}

// SearchPage is a page of search results plus the total match count.
type SearchPage struct {
	Results []SearchResult `json:"results"`
	Total   int            `json:"total"`
}

// ExportCandidate is a prompt selected for export along with its style's
// template and completion key.
type ExportCandidate struct {
	Prompt        Prompt `json:"prompt"`
	Template      string `json:"template"`
	CompletionKey string `json:"completion_key"`
}
