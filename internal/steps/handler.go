package steps

import (
	"context"
	"encoding/json"
	"fmt"

	"adloom/internal/session"
)

// Handler describes the contract the orchestrator needs from each workflow
// step.
type Handler interface {
	Name() session.Step
	Execute(ctx context.Context, runCtx *RunContext) (Result, error)
}

// RunContext carries the session inputs and the metadata accumulated by
// earlier steps.
type RunContext struct {
	SessionID    string
	UserID       string
	BrandContext string
	Meta         map[string]any
}

// Result is the output of one step execution. Data is folded into the
// session metadata bag and recorded as the log payload.
type Result struct {
	Data     map[string]any
	ToolName string
	Summary  string
}

// Script is one UGC ad script candidate produced by script generation.
type Script struct {
	ID           string `json:"id"`
	ConceptID    string `json:"concept_id,omitempty"`
	Hook         string `json:"hook"`
	Body         string `json:"body"`
	CallToAction string `json:"call_to_action"`
}

// Concept is one ad concept produced by concept generation.
type Concept struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Angle       string `json:"angle"`
	Description string `json:"description"`
}

// DecodeMetaKey extracts a typed value from the metadata bag via a JSON
// round trip. Missing keys leave target untouched and return false.
func (rc *RunContext) DecodeMetaKey(key string, target any) (bool, error) {
	if rc == nil || rc.Meta == nil {
		return false, nil
	}
	raw, ok := rc.Meta[key]
	if !ok {
		return false, nil
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return false, fmt.Errorf("encode metadata %q: %w", key, err)
	}
	if err := json.Unmarshal(encoded, target); err != nil {
		return false, fmt.Errorf("decode metadata %q: %w", key, err)
	}
	return true, nil
}

// Scripts returns the script candidates accumulated in metadata.
func (rc *RunContext) Scripts() ([]Script, error) {
	var scripts []Script
	if _, err := rc.DecodeMetaKey("scripts", &scripts); err != nil {
		return nil, err
	}
	return scripts, nil
}

// ApprovedScriptIDs returns the approval selection. The boolean reports
// whether an approval decision has been recorded at all; an empty slice
// with a true boolean means every script was approved.
func (rc *RunContext) ApprovedScriptIDs() ([]string, bool, error) {
	var ids []string
	resolved, err := rc.DecodeMetaKey("approved_scripts", &ids)
	if err != nil {
		return nil, false, err
	}
	return ids, resolved, nil
}
