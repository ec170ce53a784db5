package replicate

import "encoding/json"

// PredictionInput represents the SDXL model input of a Replicate prediction
type PredictionInput struct {
	Prompt            string  `json:"prompt"`
	NegativePrompt    string  `json:"negative_prompt,omitempty"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	NumOutputs        int     `json:"num_outputs"`
	Scheduler         string  `json:"scheduler"`
	NumInferenceSteps int     `json:"num_inference_steps"`
	GuidanceScale     float64 `json:"guidance_scale"`
	PromptStrength    float64 `json:"prompt_strength"`
	Refine            string  `json:"refine"`
	HighNoiseFrac     float64 `json:"high_noise_frac"`
}

// PredictionRequest represents a Replicate create-prediction request
type PredictionRequest struct {
	Version string          `json:"version,omitempty"`
	Input   PredictionInput `json:"input"`
}

// Prediction represents a Replicate prediction as returned by the API
type Prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  json.RawMessage `json:"error"`
	URLs   PredictionURLs  `json:"urls"`
}

// PredictionURLs holds the links Replicate attaches to a prediction
type PredictionURLs struct {
	Get    string `json:"get"`
	Cancel string `json:"cancel"`
}

const (
	StatusStarting   = "starting"
	StatusProcessing = "processing"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"
)

func (p *Prediction) terminal() bool {
	switch p.Status {
	case StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	}
	return false
}
