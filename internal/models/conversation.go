package models

// Turn is one question/answer exchange.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Citation is a truncated preview of a chunk used to answer a question.
type Citation struct {
	ChunkID    string `json:"chunk_id"`
	ChunkIndex int    `json:"chunk_index"`
	Preview    string `json:"preview"`
}

// CitedSource groups the citations taken from one source document.
type CitedSource struct {
	Source    string      `json:"source"`
	Citations []*Citation `json:"citations"`
}

// Answer is the result of answering one question.
type Answer struct {
	Question string         `json:"question"`
	Text     string         `json:"answer"`
	Sources  []*CitedSource `json:"sources"`
	// Standalone is the rewritten question used for retrieval, when it differs from Question.
	Standalone string `json:"standalone_question,omitempty"`
	QueryTime  int64  `json:"query_time_ms"`
}
