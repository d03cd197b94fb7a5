package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnv loads a .env file if present (ignored if missing, exactly like
// forPelevin-hlcut's startup does with godotenv.Load) and overlays the
// enumerated recognized environment keys from §6 onto base, returning the
// merged Settings. Unrecognized environment variables are ignored; this is
// distinct from the JSON store's DisallowUnknownFields rejection because
// the environment is an open namespace shared with the OS and other tools.
func LoadEnv(base Settings) Settings {
	_ = godotenv.Load()

	cfg := base
	if v, ok := lookupInt("SYNC_SIZE_LIMIT_MB"); ok {
		cfg.SyncSizeLimitMB = v
	}
	if v, ok := os.LookupEnv("LANGUAGE_CODE"); ok {
		cfg.LanguageCode = v
	}
	if v, ok := lookupInt("MAX_CONCURRENT_JOBS"); ok {
		cfg.MaxConcurrentJobs = v
	}
	if v, ok := lookupInt("CHUNK_SIZE"); ok {
		cfg.ChunkSize = v
	}
	if v, ok := lookupInt("CHUNK_OVERLAP"); ok {
		cfg.ChunkOverlap = v
	}
	if v, ok := lookupInt("MAX_CHUNKS"); ok {
		cfg.MaxChunks = v
	}
	if v, ok := os.LookupEnv("TTS_DEFAULT_PROVIDER"); ok {
		cfg.TTSDefaultProvider = v
	}
	if v, ok := lookupBool("TTS_AUTO_COST_FIRST"); ok {
		cfg.TTSAutoCostFirst = v
	}
	if v, ok := os.LookupEnv("POST_EDITOR_MODEL"); ok {
		cfg.PostEditorModel = v
	}
	if v, ok := os.LookupEnv("REGION_LIST"); ok {
		cfg.RegionList = splitCSV(v)
	}
	if v, ok := lookupFloat("MAX_COST_USD_PER_JOB"); ok {
		cfg.MaxCostUSDPerJob = v
	}
	if v, ok := os.LookupEnv("TEMP_DIR"); ok {
		cfg.TempDir = v
	}
	if v, ok := lookupInt("ARTIFACT_TTL_SECONDS"); ok {
		cfg.ArtifactTTLSeconds = v
	}
	return cfg
}

func lookupInt(key string) (int, bool) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return v, true
}

func lookupFloat(key string) (float64, bool) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func lookupBool(key string) (bool, bool) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return false, false
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, false
	}
	return v, true
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
