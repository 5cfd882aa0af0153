package widget

import "chess-moves/api/internal/moves/types"

type Phase int

const (
	PhaseIdle Phase = iota
	PhasePending
	PhaseSuccess
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseSuccess:
		return "success"
	case PhaseFailed:
		return "failed"
	default:
		return "idle"
	}
}

// UploadState is replaced as a whole on every transition.
type UploadState struct {
	Phase   Phase
	Preview string
	Result  *types.MoveResult
	Error   string
}

func Idle() UploadState { return UploadState{Phase: PhaseIdle} }

func Pending(preview string) UploadState {
	return UploadState{Phase: PhasePending, Preview: preview}
}

func Succeeded(preview string, res types.MoveResult) UploadState {
	return UploadState{Phase: PhaseSuccess, Preview: preview, Result: &res}
}

func Failed(preview, msg string) UploadState {
	return UploadState{Phase: PhaseFailed, Preview: preview, Error: msg}
}
