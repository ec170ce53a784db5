package api

import (
	"github.com/cheahjs/replicate-image-bundler/internal/archive"
	"github.com/cheahjs/replicate-image-bundler/internal/pipeline"
)

// GenerationRequest represents an image generation submission. Omitted fields
// take the form defaults.
type GenerationRequest struct {
	Prompt            *string  `json:"prompt,omitempty"`
	NegativePrompt    *string  `json:"negative_prompt,omitempty"`
	Width             *int     `json:"width,omitempty"`
	Height            *int     `json:"height,omitempty"`
	NumOutputs        *int     `json:"num_outputs,omitempty"`
	Scheduler         *string  `json:"scheduler,omitempty"`
	NumInferenceSteps *int     `json:"num_inference_steps,omitempty"`
	GuidanceScale     *float64 `json:"guidance_scale,omitempty"`
	PromptStrength    *float64 `json:"prompt_strength,omitempty"`
	Refine            *string  `json:"refine,omitempty"`
	HighNoiseFrac     *float64 `json:"high_noise_frac,omitempty"`
}

// GenerationResponse represents the outcome of a completed run
type GenerationResponse struct {
	Created     int64          `json:"created"`
	RunID       string         `json:"run_id"`
	State       pipeline.State `json:"state"`
	Images      []string       `json:"images"`
	Diagnostics []Diagnostic   `json:"diagnostics"`
	Archive     ArchiveInfo    `json:"archive"`
}

// Diagnostic represents one image that could not be fetched
type Diagnostic struct {
	Image      int    `json:"image"`
	Locator    string `json:"locator"`
	StatusCode int    `json:"status_code,omitempty"`
	Reason     string `json:"reason"`
	Message    string `json:"message"`
}

// ArchiveInfo describes where the bundled images can be downloaded
type ArchiveInfo struct {
	ID       string          `json:"id"`
	URL      string          `json:"url"`
	FileName string          `json:"file_name"`
	MIMEType string          `json:"mime_type"`
	Size     int             `json:"size"`
	Entries  []archive.Entry `json:"entries"`
}

// ErrorResponse represents an API error body
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// ExamplePrompt represents an entry of the example gallery
type ExamplePrompt struct {
	Image  string `json:"image"`
	Prompt string `json:"prompt"`
}
