// Package domain defines the article model, the block-based content format
// and the editorial workflow state machine.
package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	apperrors "github.com/meridianpress/meridian/internal/platform/errors"
	"github.com/meridianpress/meridian/internal/platform/i18n"
)

// Status is the editorial workflow state of an article.
type Status string

const (
	// StatusDraft is private to the author and editors.
	StatusDraft Status = "draft"
	// StatusPending awaits editorial review.
	StatusPending Status = "pending"
	// StatusPublished is publicly readable.
	StatusPublished Status = "published"
	// StatusRejected was returned to the author with a review note.
	StatusRejected Status = "rejected"
	// StatusArchived is withdrawn from public reading.
	StatusArchived Status = "archived"
)

// ParseStatus converts a wire value into a Status.
func ParseStatus(value string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case StatusDraft:
		return StatusDraft, true
	case StatusPending:
		return StatusPending, true
	case StatusPublished:
		return StatusPublished, true
	case StatusRejected:
		return StatusRejected, true
	case StatusArchived:
		return StatusArchived, true
	}
	return "", false
}

// transitions holds the allowed workflow edges.
var transitions = map[Status][]Status{
	StatusDraft:     {StatusPending},
	StatusPending:   {StatusPublished, StatusRejected},
	StatusRejected:  {StatusDraft},
	StatusPublished: {StatusArchived},
	StatusArchived:  {},
}

// CanTransition reports whether the workflow allows moving from s to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition validates a workflow move and returns a typed error when the
// edge does not exist.
func (s Status) Transition(next Status) error {
	if !s.CanTransition(next) {
		return apperrors.WithMetadata(
			apperrors.CodeArticleInvalidStatusTransition,
			fmt.Sprintf("cannot move article from %s to %s", s, next),
			map[string]string{"From": string(s), "To": string(next)},
		)
	}
	return nil
}

// BlockType identifies one kind of content block.
type BlockType string

const (
	BlockParagraph BlockType = "paragraph"
	BlockHeading   BlockType = "heading"
	BlockImage     BlockType = "image"
	BlockQuote     BlockType = "quote"
	BlockList      BlockType = "list"
	BlockEmbed     BlockType = "embed"
	BlockCode      BlockType = "code"
)

// Block is one unit of article content. Data is a type-specific JSON
// document validated by Validate.
type Block struct {
	Type BlockType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

type paragraphData struct {
	Text string `json:"text"`
}

type headingData struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

type imageData struct {
	URL     string `json:"url"`
	Caption string `json:"caption"`
	Alt     string `json:"alt"`
}

type quoteData struct {
	Text        string `json:"text"`
	Attribution string `json:"attribution"`
}

type listData struct {
	Ordered bool     `json:"ordered"`
	Items   []string `json:"items"`
}

type embedData struct {
	URL      string `json:"url"`
	Provider string `json:"provider"`
}

type codeData struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

func invalidBlock(index int, reason string) error {
	return apperrors.WithMetadata(
		apperrors.CodeArticleInvalidBlock,
		fmt.Sprintf("block %d: %s", index, reason),
		map[string]string{"Index": fmt.Sprintf("%d", index), "Reason": reason},
	)
}

// Validate checks the block's type-specific payload.
func (b Block) Validate(index int) error {
	switch b.Type {
	case BlockParagraph:
		var data paragraphData
		if err := json.Unmarshal(b.Data, &data); err != nil {
			return invalidBlock(index, "paragraph data malformed")
		}
		if strings.TrimSpace(data.Text) == "" {
			return invalidBlock(index, "paragraph text empty")
		}
	case BlockHeading:
		var data headingData
		if err := json.Unmarshal(b.Data, &data); err != nil {
			return invalidBlock(index, "heading data malformed")
		}
		if data.Level < 1 || data.Level > 6 {
			return invalidBlock(index, "heading level out of range")
		}
		if strings.TrimSpace(data.Text) == "" {
			return invalidBlock(index, "heading text empty")
		}
	case BlockImage:
		var data imageData
		if err := json.Unmarshal(b.Data, &data); err != nil {
			return invalidBlock(index, "image data malformed")
		}
		if strings.TrimSpace(data.URL) == "" {
			return invalidBlock(index, "image url empty")
		}
	case BlockQuote:
		var data quoteData
		if err := json.Unmarshal(b.Data, &data); err != nil {
			return invalidBlock(index, "quote data malformed")
		}
		if strings.TrimSpace(data.Text) == "" {
			return invalidBlock(index, "quote text empty")
		}
	case BlockList:
		var data listData
		if err := json.Unmarshal(b.Data, &data); err != nil {
			return invalidBlock(index, "list data malformed")
		}
		if len(data.Items) == 0 {
			return invalidBlock(index, "list has no items")
		}
	case BlockEmbed:
		var data embedData
		if err := json.Unmarshal(b.Data, &data); err != nil {
			return invalidBlock(index, "embed data malformed")
		}
		if strings.TrimSpace(data.URL) == "" {
			return invalidBlock(index, "embed url empty")
		}
	case BlockCode:
		var data codeData
		if err := json.Unmarshal(b.Data, &data); err != nil {
			return invalidBlock(index, "code data malformed")
		}
		if data.Code == "" {
			return invalidBlock(index, "code empty")
		}
	default:
		return invalidBlock(index, "unknown block type "+string(b.Type))
	}
	return nil
}

// PlainText extracts the searchable text carried by the block. Image and
// embed blocks contribute captions only.
func (b Block) PlainText() string {
	switch b.Type {
	case BlockParagraph:
		var data paragraphData
		if json.Unmarshal(b.Data, &data) == nil {
			return data.Text
		}
	case BlockHeading:
		var data headingData
		if json.Unmarshal(b.Data, &data) == nil {
			return data.Text
		}
	case BlockQuote:
		var data quoteData
		if json.Unmarshal(b.Data, &data) == nil {
			return data.Text
		}
	case BlockList:
		var data listData
		if json.Unmarshal(b.Data, &data) == nil {
			return strings.Join(data.Items, " ")
		}
	case BlockImage:
		var data imageData
		if json.Unmarshal(b.Data, &data) == nil {
			return data.Caption
		}
	}
	return ""
}

// Article is one piece of content in one language.
type Article struct {
	ID                 string
	Slug               string
	Language           string
	TranslationGroupID string
	Title              string
	Summary            string
	Blocks             []Block
	AuthorID           string
	CategoryID         string
	TagIDs             []string
	Premium            bool
	Status             Status
	ReviewNote         string
	PublishedAt        time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Validate checks invariants that hold for every stored article.
func (a Article) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return apperrors.New(apperrors.CodeArticleTitleEmpty, "title is required")
	}
	if _, ok := i18n.ParseTag(a.Language); !ok {
		return apperrors.WithMetadata(
			apperrors.CodeArticleInvalidLanguage,
			"unsupported language",
			map[string]string{"Language": a.Language},
		)
	}
	for index, block := range a.Blocks {
		if err := block.Validate(index); err != nil {
			return err
		}
	}
	return nil
}

// ValidateForSubmit checks the stricter invariants required to enter review.
func (a Article) ValidateForSubmit() error {
	if err := a.Validate(); err != nil {
		return err
	}
	if len(a.Blocks) == 0 {
		return apperrors.New(apperrors.CodeArticleBlocksEmpty, "article has no content blocks")
	}
	return nil
}

// ValidateForPublish checks invariants required to go public.
func (a Article) ValidateForPublish() error {
	if err := a.ValidateForSubmit(); err != nil {
		return err
	}
	if strings.TrimSpace(a.CategoryID) == "" {
		return apperrors.New(apperrors.CodeArticleCategoryMissing, "article has no category")
	}
	return nil
}

// PlainText joins the searchable text of all blocks.
func (a Article) PlainText() string {
	parts := make([]string, 0, len(a.Blocks))
	for _, block := range a.Blocks {
		if text := strings.TrimSpace(block.PlainText()); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL slug from a title. Characters outside a-z0-9 are
// collapsed into single hyphens.
func Slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = slugStrip.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "untitled"
	}
	if len(slug) > 80 {
		slug = strings.Trim(slug[:80], "-")
	}
	return slug
}
