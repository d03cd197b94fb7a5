// Package config holds the enumerated, typed settings record (§6) plus the
// JSON-file persistence pattern the teacher's config.Store used for a
// single user's preferences, generalized here to process-wide defaults for
// job submission and rate cards.
package config

// Settings is the closed set of recognized configuration keys from §6.
// Unknown keys are never accepted anywhere this struct is decoded from,
// because they would silently change billable behavior (§9).
type Settings struct {
	SyncSizeLimitMB    int      `json:"syncSizeLimitMb"`
	LanguageCode       string   `json:"languageCode"`
	MaxConcurrentJobs  int      `json:"maxConcurrentJobs"`
	ChunkSize          int      `json:"chunkSize"`
	ChunkOverlap       int      `json:"chunkOverlap"`
	MaxChunks          int      `json:"maxChunks"`
	TTSDefaultProvider string   `json:"ttsDefaultProvider"`
	TTSAutoCostFirst   bool     `json:"ttsAutoCostFirst"`
	PostEditorModel    string   `json:"postEditorModel"`
	RegionList         []string `json:"regionList"`
	MaxCostUSDPerJob   float64  `json:"maxCostUsdPerJob"` // 0 == unbounded
	TempDir            string   `json:"tempDir"`
	ArtifactTTLSeconds int      `json:"artifactTtlSeconds"`

	RateCards RateCardTable `json:"rateCards"`
}

// RateCardTable is a per-provider, per-quality-tier USD price per 1,000
// characters. Rate cards are configuration, not constants (§9 open
// question): they can be overridden per-deployment without a rebuild.
type RateCardTable map[string]map[string]float64

// PriceFor returns the configured rate, falling back to a conservative
// default when a provider/tier combination has no explicit entry.
func (t RateCardTable) PriceFor(provider, tier string) float64 {
	if byTier, ok := t[provider]; ok {
		if price, ok := byTier[tier]; ok {
			return price
		}
	}
	return 15.0
}

// DefaultSettings returns baseline configuration mirroring the teacher's
// DefaultSettings(), extended with every key spec.md §6 enumerates.
func DefaultSettings() Settings {
	return Settings{
		SyncSizeLimitMB:    10,
		LanguageCode:       "hu-HU",
		MaxConcurrentJobs:  5,
		ChunkSize:          4000,
		ChunkOverlap:       200,
		MaxChunks:          50,
		TTSDefaultProvider: "auto",
		TTSAutoCostFirst:   false,
		PostEditorModel:    "auto",
		RegionList:         []string{"us-east", "eu-west"},
		MaxCostUSDPerJob:   0,
		TempDir:            "",
		ArtifactTTLSeconds: 24 * 60 * 60,
		RateCards: RateCardTable{
			"openaitts": {"standard": 15.0, "enhanced": 30.0},
			"resonance": {"standard": 10.0, "enhanced": 20.0, "premium": 35.0, "studio": 60.0},
		},
	}
}
