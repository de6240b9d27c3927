package model

import "time"

// FileDescriptor describes a file the client intends to upload.
type FileDescriptor struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type"`
}

func (f FileDescriptor) GetFilename() string {
	return f.Filename
}

type SignedURLEntry struct {
	VideoID   string `json:"video_id"`
	SignedURL string `json:"signed_url"`
}

// ProcessingOptions are the user's choices shared by every video in a batch.
type ProcessingOptions struct {
	SummaryType        string `json:"summary_type"`
	AudienceContext    string `json:"audience_context"`
	CustomPrompt       string `json:"custom_prompt"`
	OutputFormat       string `json:"output_format"`
	DetailLevel        string `json:"detail_level"`
	IncludeScreenshots bool   `json:"include_screenshots"`
}

type FormData struct {
	VideoIDs []string `json:"video_ids"`
	ProcessingOptions
}

// Message is the processing request published once per video.
type Message struct {
	VideoID             string            `json:"video_id"`
	Metadata            ProcessingOptions `json:"metadata"`
	ProcessingTimestamp time.Time         `json:"processing_timestamp"`
}

func (m Message) MessageKey() string {
	return m.VideoID
}
