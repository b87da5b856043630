package model

// ================ Config ================

type GeneratorModelConfig struct {
	Model       string  `envconfig:"GENERATOR_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"GENERATOR_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"GENERATOR_TEMPERATURE" default:"0.2"`
}

type GraderModelConfig struct {
	Model       string  `envconfig:"GRADER_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"GRADER_MAX_TOKENS" default:"512"`
	Temperature float32 `envconfig:"GRADER_TEMPERATURE" default:"0.0"`
}

type EmbeddingConfig struct {
	Model      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-004"`
	Dimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"768"`
}

type RetrievalConfig struct {
	TopK         int `envconfig:"RETRIEVAL_TOP_K" default:"3"`
	ChunkSize    int `envconfig:"RETRIEVAL_CHUNK_SIZE" default:"1200"`
	ChunkOverlap int `envconfig:"RETRIEVAL_CHUNK_OVERLAP" default:"200"`
}

type ConversationConfig struct {
	TTL      string `envconfig:"CONVERSATION_TTL" default:"15m"`
	MaxTurns int    `envconfig:"CONVERSATION_MAX_TURNS" default:"5"`
}

type WorkflowConfig struct {
	// RecursionCeiling bounds rewrite-and-retry cycles; once the counter
	// reaches it, the last generation is accepted regardless of grade.
	RecursionCeiling int `envconfig:"WORKFLOW_RECURSION_CEILING" default:"2"`
}

type AnalysisConfig struct {
	DatasetPath    string `envconfig:"ANALYSIS_DATASET" default:"files/clean_data.csv"`
	Interpreter    string `envconfig:"ANALYSIS_INTERPRETER" default:"python3"`
	TimeoutSeconds int    `envconfig:"ANALYSIS_TIMEOUT_SECONDS" default:"30"`
	MaxOutputBytes int    `envconfig:"ANALYSIS_MAX_OUTPUT_BYTES" default:"65536"`
}
