package moves

// Prompt is sent verbatim with every board image.
const Prompt = `Analyze the chess board image. Identify the single best legal move for white and the single best legal move for black based on the current position. ` +
	`Respond ONLY with a valid JSON object in the following format: ` +
	`{"whiteBestMove": {"from": "e2", "to": "e4", "comments": "Best opening move"}, "blackBestMove": {"from": "g8", "to": "f6", "comments": "Develop knight"}}. ` +
	`If the board is empty, unclear, or a side has no legal moves, represent that move as null, e.g., ` +
	`{"whiteBestMove": null, "blackBestMove": {"from": "g8", "to": "f6", "comments": "Develop knight"}}. ` +
	`Never omit either key.`
