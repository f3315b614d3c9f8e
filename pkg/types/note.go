package types

import (
	"strings"
	"time"
)

// Note is a free-form knowledge unit written by the agent
type Note struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Subsystem    string    `json:"subsystem"`
	Category     string    `json:"category"`
	Summary      string    `json:"summary"`
	Content      string    `json:"content"`
	SourceFiles  []string  `json:"source_files"`
	Tags         []string  `json:"tags"`
	RelatedNotes []int64   `json:"related_entries"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// DecodeErrors names stored fields that could not be decoded on read
	DecodeErrors []string `json:"decode_errors,omitempty"`
}

// Validate checks required fields and closed vocabularies
func (n *Note) Validate() error {
	if strings.TrimSpace(n.Title) == "" {
		return required("title")
	}
	if !ValidSubsystem(n.Subsystem) {
		return notInVocab("subsystem", n.Subsystem, Subsystems)
	}
	if !ValidCategory(n.Category) {
		return notInVocab("category", n.Category, Categories)
	}
	return nil
}

// NoteUpdate is a partial Note update. Nil fields are left unchanged.
type NoteUpdate struct {
	Title        *string   `json:"title,omitempty"`
	Subsystem    *string   `json:"subsystem,omitempty"`
	Category     *string   `json:"category,omitempty"`
	Summary      *string   `json:"summary,omitempty"`
	Content      *string   `json:"content,omitempty"`
	SourceFiles  *[]string `json:"source_files,omitempty"`
	Tags         *[]string `json:"tags,omitempty"`
	RelatedNotes *[]int64  `json:"related_entries,omitempty"`
}

// Empty reports whether the update changes nothing
func (u *NoteUpdate) Empty() bool {
	return u.Title == nil && u.Subsystem == nil && u.Category == nil &&
		u.Summary == nil && u.Content == nil && u.SourceFiles == nil &&
		u.Tags == nil && u.RelatedNotes == nil
}

// Validate checks the supplied fields only
func (u *NoteUpdate) Validate() error {
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		return required("title")
	}
	if u.Subsystem != nil && !ValidSubsystem(*u.Subsystem) {
		return notInVocab("subsystem", *u.Subsystem, Subsystems)
	}
	if u.Category != nil && !ValidCategory(*u.Category) {
		return notInVocab("category", *u.Category, Categories)
	}
	return nil
}

// Apply copies the supplied fields onto n
func (u *NoteUpdate) Apply(n *Note) {
	if u.Title != nil {
		n.Title = strings.TrimSpace(*u.Title)
	}
	if u.Subsystem != nil {
		n.Subsystem = *u.Subsystem
	}
	if u.Category != nil {
		n.Category = *u.Category
	}
	if u.Summary != nil {
		n.Summary = *u.Summary
	}
	if u.Content != nil {
		n.Content = *u.Content
	}
	if u.SourceFiles != nil {
		n.SourceFiles = *u.SourceFiles
	}
	if u.Tags != nil {
		n.Tags = *u.Tags
	}
	if u.RelatedNotes != nil {
		n.RelatedNotes = *u.RelatedNotes
	}
}

// NoteRef is the short form of a Note linked from an entity
type NoteRef struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}
