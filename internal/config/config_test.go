package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

var configEnvVars = []string{
	"LLM_BASE_URL", "LLM_MODEL", "LLM_API_KEY", "LLM_TEMPERATURE",
	"EMBEDDING_BASE_URL", "EMBEDDING_MODEL_NAME",
	"QDRANT_URL", "QDRANT_COLLECTION", "QDRANT_VECTOR_SIZE",
	"RETRIEVAL_K", "RETRIEVAL_QUERY_REWRITES", "CHUNK_SIZE", "CHUNK_OVERLAP",
	"DB_PATH", "UPLOAD_DIR", "CORPUS_DIR", "API_PORT", "CORS_ALLOWED_ORIGINS",
	"LOG_LEVEL", "LOG_FORMAT",
}

// isolateEnv clears every config variable for the test and moves into a temp
// directory without a .env file. Empty values count as unset for getEnv.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvVars {
		t.Setenv(key, "")
	}
	t.Chdir(t.TempDir())
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		wantErr     bool
		checkConfig func(*Config) bool
	}{
		{
			name: "valid config with all required fields",
			env:  map[string]string{"QDRANT_VECTOR_SIZE": "768"},
			checkConfig: func(cfg *Config) bool {
				return cfg.QdrantVectorSize == 768
			},
		},
		{
			name:    "missing QDRANT_VECTOR_SIZE",
			env:     map[string]string{},
			wantErr: true,
		},
		{
			name:    "invalid QDRANT_VECTOR_SIZE",
			env:     map[string]string{"QDRANT_VECTOR_SIZE": "invalid"},
			wantErr: true,
		},
		{
			name:    "zero QDRANT_VECTOR_SIZE",
			env:     map[string]string{"QDRANT_VECTOR_SIZE": "0"},
			wantErr: true,
		},
		{
			name:    "negative QDRANT_VECTOR_SIZE",
			env:     map[string]string{"QDRANT_VECTOR_SIZE": "-1"},
			wantErr: true,
		},
		{
			name: "default values for optional fields",
			env:  map[string]string{"QDRANT_VECTOR_SIZE": "768"},
			checkConfig: func(cfg *Config) bool {
				return cfg.LLMBaseURL == "http://localhost:8080" &&
					cfg.LLMModelName == "Llama-3.1-8B-Instruct" &&
					cfg.LLMAPIKey == "" &&
					cfg.LLMTemperature == 0 &&
					cfg.EmbeddingBaseURL == "http://localhost:8081" &&
					cfg.DBPath == "./data/pdfqa.db" &&
					cfg.UploadDir == "./data/uploads" &&
					cfg.CorpusDir == "" &&
					cfg.QdrantURL == "http://localhost:6333" &&
					cfg.QdrantCollection == "pdf_chunks" &&
					cfg.RetrievalK == 5 &&
					cfg.QueryRewrites == 0 &&
					cfg.ChunkSize == 1000 &&
					cfg.ChunkOverlap == 200 &&
					cfg.APIPort == "9000" &&
					cfg.CORSAllowedOrigins == nil &&
					cfg.LogLevel == slog.LevelInfo &&
					cfg.LogFormat == "text"
			},
		},
		{
			name: "custom optional values",
			env: map[string]string{
				"QDRANT_VECTOR_SIZE":       "384",
				"LLM_BASE_URL":             "http://custom:9090",
				"LLM_MODEL":                "custom-model",
				"LLM_TEMPERATURE":          "0.3",
				"RETRIEVAL_K":              "8",
				"RETRIEVAL_QUERY_REWRITES": "2",
				"CHUNK_SIZE":               "500",
				"CHUNK_OVERLAP":            "50",
				"CORS_ALLOWED_ORIGINS":     "http://a.test, ,http://b.test",
				"LOG_LEVEL":                "debug",
				"LOG_FORMAT":               "JSON",
			},
			checkConfig: func(cfg *Config) bool {
				return cfg.LLMBaseURL == "http://custom:9090" &&
					cfg.LLMModelName == "custom-model" &&
					cfg.LLMTemperature == float32(0.3) &&
					cfg.RetrievalK == 8 &&
					cfg.QueryRewrites == 2 &&
					cfg.ChunkSize == 500 &&
					cfg.ChunkOverlap == 50 &&
					reflect.DeepEqual(cfg.CORSAllowedOrigins, []string{"http://a.test", "http://b.test"}) &&
					cfg.LogLevel == slog.LevelDebug &&
					cfg.LogFormat == "json"
			},
		},
		{
			name:    "RETRIEVAL_K above maximum",
			env:     map[string]string{"QDRANT_VECTOR_SIZE": "768", "RETRIEVAL_K": "21"},
			wantErr: true,
		},
		{
			name:    "RETRIEVAL_K zero",
			env:     map[string]string{"QDRANT_VECTOR_SIZE": "768", "RETRIEVAL_K": "0"},
			wantErr: true,
		},
		{
			name:    "too many query rewrites",
			env:     map[string]string{"QDRANT_VECTOR_SIZE": "768", "RETRIEVAL_QUERY_REWRITES": "6"},
			wantErr: true,
		},
		{
			name:    "overlap not below chunk size",
			env:     map[string]string{"QDRANT_VECTOR_SIZE": "768", "CHUNK_SIZE": "100", "CHUNK_OVERLAP": "100"},
			wantErr: true,
		},
		{
			name:    "non-numeric chunk size",
			env:     map[string]string{"QDRANT_VECTOR_SIZE": "768", "CHUNK_SIZE": "big"},
			wantErr: true,
		},
		{
			name:    "temperature out of range",
			env:     map[string]string{"QDRANT_VECTOR_SIZE": "768", "LLM_TEMPERATURE": "3"},
			wantErr: true,
		},
		{
			name:    "invalid log level",
			env:     map[string]string{"QDRANT_VECTOR_SIZE": "768", "LOG_LEVEL": "loud"},
			wantErr: true,
		},
		{
			name:    "invalid log format",
			env:     map[string]string{"QDRANT_VECTOR_SIZE": "768", "LOG_FORMAT": "xml"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()

			if tt.wantErr {
				if err == nil {
					t.Errorf("Load() expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Fatalf("Load() unexpected error: %v", err)
			}

			if tt.checkConfig != nil && !tt.checkConfig(cfg) {
				t.Errorf("Load() config validation failed: %+v", cfg)
			}
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	isolateEnv(t)

	wd, _ := os.Getwd()
	if err := os.WriteFile(filepath.Join(wd, ".env"), []byte("QDRANT_VECTOR_SIZE=256\nAPI_PORT=7000\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	// godotenv never overrides a variable that is present, even when empty
	if err := os.Unsetenv("QDRANT_VECTOR_SIZE"); err != nil {
		t.Fatalf("Unsetenv() error = %v", err)
	}
	// Environment wins over .env
	t.Setenv("API_PORT", "7100")

	nested := filepath.Join(wd, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	t.Chdir(nested)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.QdrantVectorSize != 256 {
		t.Errorf("QdrantVectorSize = %d, want 256 from parent .env", cfg.QdrantVectorSize)
	}
	if cfg.APIPort != "7100" {
		t.Errorf("APIPort = %q, want environment value 7100", cfg.APIPort)
	}
}

func TestLoad_CreatesDataDirectory(t *testing.T) {
	isolateEnv(t)

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test", "db.db")
	uploadDir := filepath.Join(tmpDir, "uploads")

	t.Setenv("QDRANT_VECTOR_SIZE", "768")
	t.Setenv("DB_PATH", dbPath)
	t.Setenv("UPLOAD_DIR", uploadDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	for _, dir := range []string{filepath.Dir(dbPath), uploadDir} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			t.Errorf("Load() should create directory %s: %v", dir, err)
		}
	}

	if cfg.DBPath != dbPath {
		t.Errorf("Load() DBPath = %v, want %v", cfg.DBPath, dbPath)
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue string
		want         string
	}{
		{name: "env var set", value: "set-value", defaultValue: "default", want: "set-value"},
		{name: "empty env var uses default", value: "", defaultValue: "default", want: "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_ENV_VAR", tt.value)
			got := getEnv("TEST_ENV_VAR", tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv(%q, %q) = %q, want %q", "TEST_ENV_VAR", tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("TEST_INT", "")
	if got, err := getEnvInt("TEST_INT", 7); err != nil || got != 7 {
		t.Errorf("getEnvInt(unset) = %d, %v, want 7, nil", got, err)
	}
	t.Setenv("TEST_INT", "12")
	if got, err := getEnvInt("TEST_INT", 7); err != nil || got != 12 {
		t.Errorf("getEnvInt(12) = %d, %v, want 12, nil", got, err)
	}
	t.Setenv("TEST_INT", "x")
	if _, err := getEnvInt("TEST_INT", 7); err == nil {
		t.Error("getEnvInt(x) expected error")
	}
}
