package model

import "time"

// RunKind labels what a pipeline run was doing.
type RunKind string

const (
	RunKindEnrich   RunKind = "enrich"
	RunKindGeometry RunKind = "geometry"
)

// FailureStage identifies where in the per-item flow a failure happened.
type FailureStage string

const (
	StageFetch   FailureStage = "fetch"
	StageDerive  FailureStage = "derive"
	StagePersist FailureStage = "persist"
)

// ItemFailure records a single item's terminal failure within a run.
// Failed items are retried naturally on the next run because they are
// never marked processed.
type ItemFailure struct {
	EntityID string       `json:"entity_id"`
	Stage    FailureStage `json:"stage"`
	Cause    string       `json:"cause"`
}

// RunReport summarizes one pipeline run. Individual item failures never
// fail the run wholesale; they are collected here.
type RunReport struct {
	ID         string        `json:"id"`
	Kind       RunKind       `json:"kind"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Selected   int           `json:"selected"`
	Skipped    int           `json:"skipped"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	Failures   []ItemFailure `json:"failures,omitempty"`
}
