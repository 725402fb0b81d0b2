package config

// ApplyDefaults sets default values for any zero values in cfg.
// Prompts.FilterInstruction deliberately has no default: the relevance filter
// must fail rather than run with a fabricated instruction.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8090
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/attesta/data/db/attesta.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/attesta/data/indices/library"
	}
	if cfg.Storage.BlobDir == "" {
		cfg.Storage.BlobDir = "/usr/local/var/attesta/data/blobs"
	}
	if cfg.GenAI.BaseURL == "" {
		cfg.GenAI.BaseURL = "http://localhost:11434/v1"
	}
	if cfg.GenAI.APIKeyEnv == "" {
		cfg.GenAI.APIKeyEnv = "ATTESTA_GENAI_API_KEY"
	}
	if cfg.GenAI.Model == "" {
		cfg.GenAI.Model = "llama3.1"
	}
	if cfg.GenAI.FilterTemperature == 0 {
		cfg.GenAI.FilterTemperature = 0.2
	}
	if cfg.GenAI.GenerationTemperature == 0 {
		cfg.GenAI.GenerationTemperature = 0.6
	}
	if cfg.GenAI.RefineTemperature == 0 {
		cfg.GenAI.RefineTemperature = 0.7
	}
	if cfg.GenAI.MaxOutputTokens == 0 {
		cfg.GenAI.MaxOutputTokens = 8192
	}
	if cfg.Policy.DocumentCode == "" {
		cfg.Policy.DocumentCode = "QMS"
	}
	if cfg.Policy.ReviewIntervalMonths == 0 {
		cfg.Policy.ReviewIntervalMonths = 24
	}
	if cfg.Policy.OrganizationName == "" {
		cfg.Policy.OrganizationName = "Hospital Quality Management"
	}
	if cfg.Library.Extensions == nil {
		cfg.Library.Extensions = []string{".txt", ".md", ".pdf", ".docx", ".odt", ".rtf", ".xlsx", ".pptx", ".odp", ".ods"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Library.Directories) > 0 && cfg.Library.Recursive == nil {
		t := true
		cfg.Library.Recursive = &t
	}
}
