package tts

import (
	"sort"

	"github.com/samber/lo"

	"media-dubber/internal/domain"
)

// Registry holds the closed set of provider variants keyed by id. The
// orchestrator only ever holds a Registry handle, never a concrete
// provider, per §9's provider-polymorphism design note.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds a registry from the given providers.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.ID()] = p
	}
	return r
}

// Get returns a provider by id.
func (r *Registry) Get(id string) (Provider, bool) {
	p, ok := r.providers[id]
	return p, ok
}

// List returns every registered provider, ordered by id for determinism.
func (r *Registry) List() []Provider {
	ids := lo.Keys(r.providers)
	sort.Strings(ids)
	return lo.Map(ids, func(id string, _ int) Provider { return r.providers[id] })
}

// SelectionRequest carries the caller's provider/voice preference from
// SynthesisOptions.
type SelectionRequest struct {
	Provider     string // explicit id, or "auto"
	VoiceID      string
	LanguageTag  string
	Quality      string
	CostFirst    bool
	CharCount    int
}

// Selection is the resolved (provider, voice) pair plus its quote.
type Selection struct {
	Provider Provider
	VoiceID  string
	Quote    domain.CostEstimate
}

// Resolve implements §4.6's provider-selection policy: an explicit
// provider+voice must exist verbatim (VoiceNotFound otherwise, never
// silently remapped); "auto" picks the cheapest supporting provider
// when cost_first is true, and otherwise the highest-tier voice, with
// lower cost breaking ties. Candidates are not grouped into cost bands,
// so a higher tier wins whatever its price.
func (r *Registry) Resolve(req SelectionRequest) (Selection, error) {
	if req.Provider != "" && req.Provider != "auto" {
		return r.resolveExplicit(req)
	}
	return r.resolveAuto(req)
}

func (r *Registry) resolveExplicit(req SelectionRequest) (Selection, error) {
	provider, ok := r.providers[req.Provider]
	if !ok {
		return Selection{}, domain.NewJobError(domain.ErrVoiceNotFound, domain.StageSynthesize,
			"unknown TTS provider: "+req.Provider, nil)
	}
	voice, ok := findVoice(provider, req.VoiceID)
	if !ok {
		return Selection{}, domain.NewJobError(domain.ErrVoiceNotFound, domain.StageSynthesize,
			"voice "+req.VoiceID+" does not exist on provider "+req.Provider, nil)
	}
	quote, err := provider.Quote(req.CharCount, voice.VoiceID, string(voice.Tier))
	if err != nil {
		return Selection{}, err
	}
	return Selection{Provider: provider, VoiceID: voice.VoiceID, Quote: quote}, nil
}

func (r *Registry) resolveAuto(req SelectionRequest) (Selection, error) {
	type candidate struct {
		provider Provider
		voice    domain.VoiceProfile
		quote    domain.CostEstimate
	}

	var candidates []candidate
	for _, provider := range r.List() {
		if !provider.Supports(req.LanguageTag) {
			continue
		}
		voice, ok := r.resolveVoiceForProvider(provider, req)
		if !ok {
			continue
		}
		quote, err := provider.Quote(req.CharCount, voice.VoiceID, string(voice.Tier))
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{provider: provider, voice: voice, quote: quote})
	}

	if len(candidates) == 0 {
		return Selection{}, domain.NewJobError(domain.ErrUnsupportedLang, domain.StageSynthesize,
			"no TTS provider supports language "+req.LanguageTag, nil)
	}

	if req.CostFirst {
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].quote.CostUSD < candidates[j].quote.CostUSD })
	} else {
		sort.Slice(candidates, func(i, j int) bool {
			if candidates[i].voice.Tier.Rank() != candidates[j].voice.Tier.Rank() {
				return candidates[i].voice.Tier.Rank() > candidates[j].voice.Tier.Rank()
			}
			return candidates[i].quote.CostUSD < candidates[j].quote.CostUSD
		})
	}

	best := candidates[0]
	return Selection{Provider: best.provider, VoiceID: best.voice.VoiceID, Quote: best.quote}, nil
}

// resolveVoiceForProvider returns the caller's requested voice on this
// provider if present, or its nearest cross-provider equivalent.
func (r *Registry) resolveVoiceForProvider(provider Provider, req SelectionRequest) (domain.VoiceProfile, bool) {
	if req.VoiceID != "" {
		if voice, ok := findVoice(provider, req.VoiceID); ok {
			return voice, true
		}
		source, ok := findVoiceAcrossProviders(r, req.VoiceID)
		if ok {
			return NearestVoice(provider.ListVoices(req.LanguageTag), source), true
		}
	}
	voices := provider.ListVoices(req.LanguageTag)
	if len(voices) == 0 {
		return domain.VoiceProfile{}, false
	}
	return voices[0], true
}

func findVoice(provider Provider, voiceID string) (domain.VoiceProfile, bool) {
	for _, v := range provider.ListVoices("") {
		if v.VoiceID == voiceID {
			return v, true
		}
	}
	return domain.VoiceProfile{}, false
}

func findVoiceAcrossProviders(r *Registry, voiceID string) (domain.VoiceProfile, bool) {
	for _, provider := range r.List() {
		if v, ok := findVoice(provider, voiceID); ok {
			return v, true
		}
	}
	return domain.VoiceProfile{}, false
}
