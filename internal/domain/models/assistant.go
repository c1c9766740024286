package models

import "time"

// AssistantQuery is a free-text question sent to the farm assistant.
type AssistantQuery struct {
	QueryText string `json:"queryText"`
}

// AssistantAnswer is the assistant's reply.
type AssistantAnswer struct {
	Query     string    `json:"query"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}
