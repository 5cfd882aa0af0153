package types

// Move is one suggested piece relocation. Square labels are taken as-is from
// the model; no chess validation is applied.
type Move struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Comments string `json:"comments"`
}

// MoveResult always serialises both keys; nil means no move for that side.
type MoveResult struct {
	WhiteBestMove *Move `json:"whiteBestMove"`
	BlackBestMove *Move `json:"blackBestMove"`
}

// MovesRequest is the POST /api/moves body.
type MovesRequest struct {
	ImageBase64 string `json:"imageBase64"`
	MIMEType    string `json:"mimeType,omitempty"`
}

// ErrorResponse is the JSON body of every non-200 /api/moves reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
