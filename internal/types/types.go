// Package types provides shared type definitions for the application.
package types

// State models the dictation lifecycle. Exactly one State is current at any
// time; transitions are owned by the controller.
type State string

const (
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StateProcessing State = "processing"
)

// StateReason provides a structured reason for state transitions, mainly for
// logging and the tray tooltip.
type StateReason string

const (
	ReasonRecordingStarted    StateReason = "recording_started"
	ReasonTranscribing        StateReason = "transcribing"
	ReasonRecordingCancelled  StateReason = "recording_cancelled"
	ReasonProcessingCancelled StateReason = "processing_cancelled"
	ReasonCaptureFailed       StateReason = "capture_failed"
	ReasonTextInjected        StateReason = "text_injected"
	ReasonEmptyTranscript     StateReason = "empty_transcript"
	ReasonTranscriptionFailed StateReason = "transcription_failed"
	ReasonInjectionFailed     StateReason = "injection_failed"
	ReasonResultDiscarded     StateReason = "result_discarded"
)
