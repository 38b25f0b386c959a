package uploader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/intraylabs/intray/internal/ai"
)

const (
	defaultNotionBaseURL = "https://api.notion.com"
	notionVersion        = "2022-06-28"
	notionTimeout        = 30 * time.Second

	// how long a detected database schema stays cached
	notionSchemaTTL = time.Hour

	notionTitleLimit = 100
)

// Notion creates pages in the user's Notion database.
type Notion struct {
	client *resty.Client

	mu     sync.Mutex
	schema map[string]notionSchema
}

// NotionConfig controls the Notion uploader. Zero value selects the public
// Notion endpoint.
type NotionConfig struct {
	BaseURL string
}

func NewNotion(cfg NotionConfig) *Notion {
	base := cfg.BaseURL
	if base == "" {
		base = defaultNotionBaseURL
	}
	client := resty.New().
		SetBaseURL(base).
		SetHeader("Content-Type", "application/json").
		SetHeader("Notion-Version", notionVersion).
		SetTimeout(notionTimeout)
	return &Notion{client: client, schema: make(map[string]notionSchema)}
}

// notionSchema records which property names a database uses for the page
// title and category select. Property names are user-defined, so they are
// detected once per database and cached.
type notionSchema struct {
	titleProp    string
	categoryProp string
	fetched      time.Time
}

type notionText struct {
	Type string         `json:"type"`
	Text notionTextBody `json:"text"`
}

type notionTextBody struct {
	Content string `json:"content"`
}

func richText(content string) []notionText {
	return []notionText{{Type: "text", Text: notionTextBody{Content: content}}}
}

type notionRichText struct {
	RichText []notionText `json:"rich_text"`
}

type notionBlock struct {
	Object    string          `json:"object"`
	Type      string          `json:"type"`
	Heading3  *notionRichText `json:"heading_3,omitempty"`
	Paragraph *notionRichText `json:"paragraph,omitempty"`
}

func headingBlock(text string) notionBlock {
	return notionBlock{Object: "block", Type: "heading_3", Heading3: &notionRichText{RichText: richText(text)}}
}

func paragraphBlock(text string) notionBlock {
	return notionBlock{Object: "block", Type: "paragraph", Paragraph: &notionRichText{RichText: richText(text)}}
}

type notionParent struct {
	DatabaseID string `json:"database_id"`
}

type notionTitleProperty struct {
	Title []notionText `json:"title"`
}

type notionSelectProperty struct {
	Select notionSelectValue `json:"select"`
}

type notionSelectValue struct {
	Name string `json:"name"`
}

type notionPageRequest struct {
	Parent     notionParent           `json:"parent"`
	Properties map[string]interface{} `json:"properties"`
	Children   []notionBlock          `json:"children,omitempty"`
}

type notionPageResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type notionDatabase struct {
	Properties map[string]struct {
		Type string `json:"type"`
	} `json:"properties"`
}

type notionOutcome struct {
	Type   string `json:"type"`
	PageID string `json:"pageId"`
	URL    string `json:"url"`
}

// Upload creates one page under the connection's database. The database must
// have a title property; a Category select property is added when missing.
func (n *Notion) Upload(ctx context.Context, creds Credentials, req Request) (json.RawMessage, error) {
	if creds.Token == "" {
		return nil, errors.New("notion token required for memo upload")
	}
	if creds.TargetID == "" {
		return nil, errors.New("notion database id required for memo upload")
	}

	schema, err := n.databaseSchema(ctx, creds)
	if err != nil {
		return nil, err
	}

	res := req.Result
	title := res.Summary
	if title == "" {
		title = truncateRunes(req.SourceText, notionTitleLimit)
	}
	category := res.Category
	if category == "" {
		category = ai.DefaultMemoCategory
	}

	page := notionPageRequest{
		Parent: notionParent{DatabaseID: creds.TargetID},
		Properties: map[string]interface{}{
			schema.titleProp:    notionTitleProperty{Title: richText(title)},
			schema.categoryProp: notionSelectProperty{Select: notionSelectValue{Name: category}},
		},
		Children: pageBlocks(req),
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetAuthToken(creds.Token).
		SetBody(&page).
		Post("/v1/pages")
	if err != nil {
		return nil, fmt.Errorf("notion page create: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("notion page create returned status %d: %s", resp.StatusCode(), resp.String())
	}
	var created notionPageResponse
	if err := json.Unmarshal(resp.Body(), &created); err != nil {
		return nil, fmt.Errorf("decode notion response: %w", err)
	}
	if created.ID == "" || created.URL == "" {
		return nil, errors.New("notion page creation returned no id or url")
	}
	return json.Marshal(notionOutcome{Type: "notion", PageID: created.ID, URL: created.URL})
}

// pageBlocks builds the page body: the analysis content, then the captured
// text when it differs, with a plain fallback so pages are never empty.
func pageBlocks(req Request) []notionBlock {
	var blocks []notionBlock

	content := firstNonEmpty(req.Result.Content, req.Result.Body)
	if content != "" {
		blocks = append(blocks, headingBlock("Analysis"), paragraphBlock(content))
	}
	if req.SourceText != "" && req.SourceText != content {
		blocks = append(blocks, headingBlock("Original note"), paragraphBlock(req.SourceText))
	}
	if len(blocks) == 0 {
		blocks = append(blocks, paragraphBlock("(no content)"))
	}
	return blocks
}

// databaseSchema detects the database's title and category property names,
// creating the Category select property when the database has none.
func (n *Notion) databaseSchema(ctx context.Context, creds Credentials) (notionSchema, error) {
	n.mu.Lock()
	if s, ok := n.schema[creds.TargetID]; ok && time.Since(s.fetched) < notionSchemaTTL {
		n.mu.Unlock()
		return s, nil
	}
	n.mu.Unlock()

	resp, err := n.client.R().
		SetContext(ctx).
		SetAuthToken(creds.Token).
		Get("/v1/databases/" + creds.TargetID)
	if err != nil {
		return notionSchema{}, fmt.Errorf("notion database retrieve: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return notionSchema{}, fmt.Errorf("notion database retrieve returned status %d: %s", resp.StatusCode(), resp.String())
	}
	var db notionDatabase
	if err := json.Unmarshal(resp.Body(), &db); err != nil {
		return notionSchema{}, fmt.Errorf("decode notion database: %w", err)
	}

	schema := notionSchema{fetched: time.Now()}
	for name, prop := range db.Properties {
		switch prop.Type {
		case "title":
			schema.titleProp = name
		case "select":
			if name == "Category" {
				schema.categoryProp = name
			}
		}
	}
	if schema.titleProp == "" {
		return notionSchema{}, errors.New("notion database has no title property")
	}
	if schema.categoryProp == "" {
		if err := n.addCategoryProperty(ctx, creds); err != nil {
			return notionSchema{}, err
		}
		schema.categoryProp = "Category"
	}

	n.mu.Lock()
	n.schema[creds.TargetID] = schema
	n.mu.Unlock()
	return schema, nil
}

func (n *Notion) addCategoryProperty(ctx context.Context, creds Credentials) error {
	body := map[string]interface{}{
		"properties": map[string]interface{}{
			"Category": map[string]interface{}{
				"select": map[string]interface{}{
					"options": []map[string]string{
						{"name": "Ideas", "color": "blue"},
						{"name": "Tasks", "color": "green"},
						{"name": "Memo", "color": "yellow"},
						{"name": "Schedule", "color": "red"},
						{"name": "Other", "color": "gray"},
					},
				},
			},
		},
	}
	resp, err := n.client.R().
		SetContext(ctx).
		SetAuthToken(creds.Token).
		SetBody(body).
		Patch("/v1/databases/" + creds.TargetID)
	if err != nil {
		return fmt.Errorf("notion add category property: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("notion add category property returned status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
