package params

import (
	"fmt"
	"strings"
)

// Schedulers accepted by the model, in the order the form offers them.
var Schedulers = []string{
	"K_EULER_ANCESTRAL",
	"DPMSolverMultistep",
	"HeunDiscrete",
	"KarrasDPM",
	"DDIM",
	"K_EULER",
	"PNDM",
}

const (
	RefineNone           = "None"
	RefineExpertEnsemble = "expert_ensemble_refiner"
)

// Refiners accepted by the model.
var Refiners = []string{RefineNone, RefineExpertEnsemble}

const (
	MinOutputs         = 1
	MaxOutputs         = 2
	MinInferenceSteps  = 1
	MaxInferenceSteps  = 8
	MaxGuidanceScale   = 7.0
	MaxPromptStrength  = 1.0
	MaxHighNoiseFrac   = 1.0
	defaultImageLength = 1024
)

// Input holds raw, unvalidated generation values as entered by a user.
type Input struct {
	Prompt            string
	NegativePrompt    string
	Width             int
	Height            int
	NumOutputs        int
	Scheduler         string
	NumInferenceSteps int
	GuidanceScale     float64
	PromptStrength    float64
	Refine            string
	HighNoiseFrac     float64
}

// ParameterSet is a validated generation configuration for a single run.
// It is only obtainable through New and is passed by value, so a run owns its copy.
type ParameterSet struct {
	Prompt            string
	NegativePrompt    string
	Width             int
	Height            int
	NumOutputs        int
	Scheduler         string
	NumInferenceSteps int
	GuidanceScale     float64
	PromptStrength    float64
	Refine            string
	HighNoiseFrac     float64
}

// Defaults returns the values the submission form starts with.
func Defaults() Input {
	return Input{
		Prompt:            "An astronaut riding a rainbow unicorn, cinematic, dramatic",
		NegativePrompt:    "draw, blurry, distorted",
		Width:             defaultImageLength,
		Height:            defaultImageLength,
		NumOutputs:        1,
		Scheduler:         Schedulers[0],
		NumInferenceSteps: 4,
		GuidanceScale:     0.0,
		PromptStrength:    0.8,
		Refine:            RefineNone,
		HighNoiseFrac:     0.8,
	}
}

// InvalidParameterError reports the first field that failed validation.
type InvalidParameterError struct {
	Field  string
	Value  any
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%v: %s", e.Field, e.Value, e.Reason)
}

// New validates in and returns the resulting ParameterSet. It performs no I/O.
func New(in Input) (ParameterSet, error) {
	if err := Validate(in); err != nil {
		return ParameterSet{}, err
	}
	return ParameterSet{
		Prompt:            in.Prompt,
		NegativePrompt:    in.NegativePrompt,
		Width:             in.Width,
		Height:            in.Height,
		NumOutputs:        in.NumOutputs,
		Scheduler:         in.Scheduler,
		NumInferenceSteps: in.NumInferenceSteps,
		GuidanceScale:     in.GuidanceScale,
		PromptStrength:    in.PromptStrength,
		Refine:            in.Refine,
		HighNoiseFrac:     in.HighNoiseFrac,
	}, nil
}

func Validate(in Input) error {
	if strings.TrimSpace(in.Prompt) == "" {
		return &InvalidParameterError{Field: "prompt", Value: in.Prompt, Reason: "must not be empty"}
	}
	if in.Width <= 0 {
		return &InvalidParameterError{Field: "width", Value: in.Width, Reason: "must be a positive integer"}
	}
	if in.Height <= 0 {
		return &InvalidParameterError{Field: "height", Value: in.Height, Reason: "must be a positive integer"}
	}
	if err := intInRange("num_outputs", in.NumOutputs, MinOutputs, MaxOutputs); err != nil {
		return err
	}
	if err := oneOf("scheduler", in.Scheduler, Schedulers); err != nil {
		return err
	}
	if err := intInRange("num_inference_steps", in.NumInferenceSteps, MinInferenceSteps, MaxInferenceSteps); err != nil {
		return err
	}
	if err := floatInRange("guidance_scale", in.GuidanceScale, 0, MaxGuidanceScale); err != nil {
		return err
	}
	if err := floatInRange("prompt_strength", in.PromptStrength, 0, MaxPromptStrength); err != nil {
		return err
	}
	if err := oneOf("refine", in.Refine, Refiners); err != nil {
		return err
	}
	return floatInRange("high_noise_frac", in.HighNoiseFrac, 0, MaxHighNoiseFrac)
}

func intInRange(field string, v, min, max int) error {
	if v < min || v > max {
		return &InvalidParameterError{Field: field, Value: v, Reason: fmt.Sprintf("must be between %d and %d", min, max)}
	}
	return nil
}

func floatInRange(field string, v, min, max float64) error {
	// written this way so NaN is rejected
	if !(v >= min && v <= max) {
		return &InvalidParameterError{Field: field, Value: v, Reason: fmt.Sprintf("must be between %.1f and %.1f", min, max)}
	}
	return nil
}

func oneOf(field, v string, allowed []string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return &InvalidParameterError{Field: field, Value: v, Reason: "must be one of " + strings.Join(allowed, ", ")}
}
