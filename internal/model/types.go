package model

import (
	"encoding/json"
	"time"
)

// RecordStatus tracks a capture through its lifecycle.
// COMPLETED and CANCELED are terminal.
type RecordStatus string

const (
	StatusPending   RecordStatus = "PENDING"
	StatusAnalyzed  RecordStatus = "ANALYZED"
	StatusCompleted RecordStatus = "COMPLETED"
	StatusCanceled  RecordStatus = "CANCELED"
)

// InputType identifies what kind of content a capture carries.
type InputType string

const (
	InputText  InputType = "text"
	InputImage InputType = "image"
	InputPDF   InputType = "pdf"
)

// Record is one capture and everything derived from it.
// Result holds the analysis payload once analyzed, or a failure diagnostic
// while the record is still PENDING. FinalResult is the user-confirmed
// payload saved at upload time; the original Result is never overwritten.
type Record struct {
	RecordID       string          `json:"recordId"`
	UserID         string          `json:"userId"`
	InputType      InputType       `json:"inputType"`
	Text           string          `json:"text,omitempty"`
	Status         RecordStatus    `json:"status"`
	Result         json.RawMessage `json:"result,omitempty"`
	FinalResult    json.RawMessage `json:"finalResult,omitempty"`
	CreationTime   time.Time       `json:"creationTime"`
	UpdateTime     time.Time       `json:"updateTime"`
	CompletionTime *time.Time      `json:"completionTime,omitempty"`
	DeletionTime   *time.Time      `json:"deletionTime,omitempty"`
}

// Category is a per-user label offered to the classifier as vocabulary.
type Category struct {
	CategoryID   string    `json:"categoryId"`
	UserID       string    `json:"userId"`
	Kind         string    `json:"kind"`
	Name         string    `json:"name"`
	CreationTime time.Time `json:"creationTime"`
}

// Connection stores a provider credential for upload targets.
// TargetID is provider-specific: the Notion database ID or a Google
// calendar ID. AccessToken is never serialized.
type Connection struct {
	UserID       string    `json:"userId"`
	Provider     string    `json:"provider"`
	AccessToken  string    `json:"-"`
	TargetID     string    `json:"targetId,omitempty"`
	CreationTime time.Time `json:"creationTime"`
	UpdateTime   time.Time `json:"updateTime"`
}

// Providers recognized by the connections API.
const (
	ProviderGoogle = "google"
	ProviderNotion = "notion"
)

// RecordUpdate carries the mutable fields of a record. Nil pointers mean
// "leave unchanged"; Result/FinalResult replace the stored value wholesale.
type RecordUpdate struct {
	Text           *string
	Status         *RecordStatus
	Result         json.RawMessage
	FinalResult    json.RawMessage
	CompletionTime *time.Time
	DeletionTime   *time.Time
}

// RecordFilter narrows record listings.
type RecordFilter struct {
	Status         RecordStatus
	IncludeDeleted bool
	Limit          int
}
