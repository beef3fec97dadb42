package services

import "context"

type contextKey string

const (
	runIDKey    contextKey = "run_id"
	stageKey    contextKey = "stage"
	speciesKey  contextKey = "species"
	entityIDKey contextKey = "entity_id"
)

// WithRunID annotates context with the pipeline run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, runIDKey)
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, stageKey)
}

// WithSpecies annotates context with the species being processed.
func WithSpecies(ctx context.Context, species string) context.Context {
	if species == "" {
		return ctx
	}
	return context.WithValue(ctx, speciesKey, species)
}

// SpeciesFromContext returns the species name if present.
func SpeciesFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, speciesKey)
}

// WithEntityID annotates context with the entity identifier.
func WithEntityID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, entityIDKey, id)
}

// EntityIDFromContext returns the entity identifier if present.
func EntityIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, entityIDKey)
}

func stringValue(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v, ok := ctx.Value(key).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
