package resolve

// ResolvedBuffer is the per-buffer resolution state. It is owned exclusively
// by its buffer: created on open or explicit override, recomputed on
// qualifying edits, discarded on close. No cross-buffer sharing, so no
// locking.
type ResolvedBuffer struct {
	Language   string
	Root       string
	RootFound  bool
	Version    uint64
	Injections []Injection

	spanCache map[spanKey]string
}

type spanKey struct {
	span        Span
	fingerprint string
}

func NewResolvedBuffer(language string) *ResolvedBuffer {
	return &ResolvedBuffer{
		Language:  language,
		spanCache: make(map[spanKey]string),
	}
}

func (b *ResolvedBuffer) cachedSpan(key spanKey) (string, bool) {
	language, ok := b.spanCache[key]
	return language, ok
}

// replaceSpanCache keeps exactly the entries retained by the latest
// resolution pass. An edit that changed one region's span or content
// invalidates only that entry; untouched regions keep their memoized
// language.
func (b *ResolvedBuffer) replaceSpanCache(retained map[spanKey]string) {
	b.spanCache = retained
}

// CachedSpanCount reports how many resolved spans are memoized.
func (b *ResolvedBuffer) CachedSpanCount() int {
	return len(b.spanCache)
}

// InheritSpanCache seeds b with the memoized spans of a previous resolution
// of the same buffer, so recomputing into a fresh buffer keeps the
// per-span memoization. Entries are copied; the two buffers share no state.
func (b *ResolvedBuffer) InheritSpanCache(prev *ResolvedBuffer) {
	if prev == nil {
		return
	}
	for key, language := range prev.spanCache {
		b.spanCache[key] = language
	}
}
