// internal/workers/reports/generate-report/stage.go
package generatereport

// Stage is a step of the report pipeline.
type Stage string

const (
	StageInitializing    Stage = "initializing"
	StageUploadingPhotos Stage = "uploading_photos"
	StageBuildingPayload Stage = "building_payload"
	StageRendering       Stage = "rendering"
	StagePolling         Stage = "polling"
	StageNotifying       Stage = "notifying"
	StageDone            Stage = "done"
	StageFailed          Stage = "failed"
)

var stageTransitions = map[Stage][]Stage{
	StageInitializing:    {StageUploadingPhotos, StageFailed},
	StageUploadingPhotos: {StageBuildingPayload, StageFailed},
	StageBuildingPayload: {StageRendering, StageFailed},
	StageRendering:       {StagePolling, StageDone, StageFailed},
	StagePolling:         {StageNotifying, StageDone, StageFailed},
	StageNotifying:       {StageDone, StageFailed},
}

// CanTransitionTo reports whether the pipeline may move from s to next.
func (s Stage) CanTransitionTo(next Stage) bool {
	for _, allowed := range stageTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
