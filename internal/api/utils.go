package api

import (
	"fmt"
	"time"

	"github.com/cheahjs/replicate-image-bundler/internal/archive"
	"github.com/cheahjs/replicate-image-bundler/internal/params"
	"github.com/cheahjs/replicate-image-bundler/internal/pipeline"
)

func convertRequest(request GenerationRequest) params.Input {
	in := params.Defaults()

	if request.Prompt != nil {
		in.Prompt = *request.Prompt
	}
	if request.NegativePrompt != nil {
		in.NegativePrompt = *request.NegativePrompt
	}
	if request.Width != nil {
		in.Width = *request.Width
	}
	if request.Height != nil {
		in.Height = *request.Height
	}
	if request.NumOutputs != nil {
		in.NumOutputs = *request.NumOutputs
	}
	if request.Scheduler != nil {
		in.Scheduler = *request.Scheduler
	}
	if request.NumInferenceSteps != nil {
		in.NumInferenceSteps = *request.NumInferenceSteps
	}
	if request.GuidanceScale != nil {
		in.GuidanceScale = *request.GuidanceScale
	}
	if request.PromptStrength != nil {
		in.PromptStrength = *request.PromptStrength
	}
	if request.Refine != nil {
		in.Refine = *request.Refine
	}
	if request.HighNoiseFrac != nil {
		in.HighNoiseFrac = *request.HighNoiseFrac
	}

	return in
}

func convertResult(result *pipeline.Result, archiveID string, baseURL string) GenerationResponse {
	response := GenerationResponse{
		Created:     time.Now().Unix(),
		RunID:       result.RunID,
		State:       result.State,
		Images:      result.Locators,
		Diagnostics: []Diagnostic{},
		Archive: ArchiveInfo{
			ID:       archiveID,
			URL:      fmt.Sprintf("%s/archives/%s", baseURL, archiveID),
			FileName: archive.FileName,
			MIMEType: archive.MIMEType,
			Size:     result.Archive.Size(),
			Entries:  result.Archive.Entries,
		},
	}
	if response.Images == nil {
		response.Images = []string{}
	}

	for _, failure := range result.Diagnostics {
		response.Diagnostics = append(response.Diagnostics, Diagnostic{
			Image:      failure.Index + 1,
			Locator:    failure.Locator,
			StatusCode: failure.StatusCode,
			Reason:     failure.Reason,
			Message:    failure.Error(),
		})
	}

	return response
}
