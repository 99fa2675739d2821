// Package engine binds detection, the key service and the session
// cache into the two core operations: pseudonymize outbound text and
// depseudonymize the text that comes back.
package engine

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/regulens/pseudonymd/internal/detect"
	"github.com/regulens/pseudonymd/internal/logger"
	"github.com/regulens/pseudonymd/internal/sessioncache"
	"github.com/regulens/pseudonymd/pkg/config"
)

// mintAttempts bounds collision re-rolls. With 2^32 token values per
// type a collision inside one session is already freakish; five rolls
// make it unreachable.
const mintAttempts = 5

// KeyService encrypts real values for at-rest storage in reverse
// bindings. Implemented by keyvault.Service.
type KeyService interface {
	Encrypt(ctx context.Context, plaintext []byte) (string, error)
	Decrypt(ctx context.Context, ciphertext string) ([]byte, error)
}

// BindingStore holds session bindings. Implemented by
// sessioncache.Cache.
type BindingStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Decr(ctx context.Context, key string) error
	DeletePattern(ctx context.Context, prefix string) (int, error)
}

// Engine is safe for concurrent use; all state lives in the store.
type Engine struct {
	keys     KeyService
	store    BindingStore
	pipeline *detect.Pipeline
	limits   config.LimitsConfig
}

// New assembles an engine from its dependencies.
func New(keys KeyService, store BindingStore, pipeline *detect.Pipeline, limits config.LimitsConfig) *Engine {
	return &Engine{keys: keys, store: store, pipeline: pipeline, limits: limits}
}

// Stats summarizes one pseudonymization run for the response body.
type Stats struct {
	ByLayer            map[string]int `json:"detections_by_layer"`
	TotalUnique        int            `json:"total_unique_entities"`
	TotalSubstitutions int            `json:"total_substitutions"`
	Degraded           bool           `json:"degraded"`
}

// PseudonymizeResult is the outcome of one Pseudonymize call. Mapping
// pairs every token minted or reused during the call with its real
// value; it exists so the preview can highlight and must never be
// persisted by callers.
type PseudonymizeResult struct {
	SessionID string
	Text      string
	Mapping   map[string]string
	Stats     Stats
}

// DepseudonymizeResult is the outcome of one Depseudonymize call.
// Missing lists the distinct tokens that had no binding in the
// session; their occurrences are left in place.
type DepseudonymizeResult struct {
	Text     string
	Replaced int
	Missing  []string
}

// binding pairs a detection with its session token for substitution.
type binding struct {
	detection detect.Detection
	token     string
}

// Pseudonymize detects personal data in text and replaces every
// occurrence with session-scoped tokens. An empty sessionID starts a
// new session. Re-sending text in the same session yields the same
// tokens.
func (e *Engine) Pseudonymize(ctx context.Context, sessionID, text string) (*PseudonymizeResult, error) {
	if len(text) > e.limits.MaxTextLength {
		return nil, fmt.Errorf("%w: %d bytes over limit %d", ErrInputTooLarge, len(text), e.limits.MaxTextLength)
	}
	if sessionID == "" {
		sessionID = NewSessionID()
		logger.InfoCtx(ctx, "session started", "session_id", sessionID)
	}

	// OCR splits identifiers across whitespace; detection and
	// substitution both run on the rejoined text so spans line up.
	working := detect.RejoinSplitDigits(text)

	detected, err := e.pipeline.Detect(ctx, working)
	if err != nil {
		return nil, err
	}

	bindings := make([]binding, 0, len(detected.Detections))
	mapping := make(map[string]string, len(detected.Detections))
	for _, d := range detected.Detections {
		token, err := e.resolveToken(ctx, sessionID, d)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, binding{detection: d, token: token})
		mapping[token] = d.Value
	}

	out, substitutions := substituteAll(working, bindings)

	stats := Stats{
		ByLayer:            make(map[string]int, len(detected.ByLayer)),
		TotalUnique:        len(bindings),
		TotalSubstitutions: substitutions,
		Degraded:           detected.Degraded,
	}
	for layer, n := range detected.ByLayer {
		stats.ByLayer[string(layer)] = n
	}

	logger.InfoCtx(ctx, "text pseudonymized",
		"session_id", sessionID,
		"entities", stats.TotalUnique,
		"substitutions", stats.TotalSubstitutions,
		"degraded", stats.Degraded)

	return &PseudonymizeResult{SessionID: sessionID, Text: out, Mapping: mapping, Stats: stats}, nil
}

// resolveToken returns the session token for a detection, minting and
// persisting a new binding on first sight. The reverse binding is
// written before the forward one: a crash between the writes leaves a
// token that still depseudonymizes, never a forward entry pointing at
// an unrecoverable token.
func (e *Engine) resolveToken(ctx context.Context, sessionID string, d detect.Detection) (string, error) {
	canonical := d.Value
	if d.Type.CaseInsensitive() {
		canonical = detect.Fold(canonical)
	}
	forwardKey := sessioncache.ForwardKey(sessionID, string(d.Type), canonical)

	if token, ok, err := e.store.Get(ctx, forwardKey); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBindingFailed, err)
	} else if ok {
		return token, nil
	}

	ttl := e.limits.TTL()

	count, err := e.store.Incr(ctx, sessioncache.CountKey(sessionID), ttl)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBindingFailed, err)
	}
	if count > int64(e.limits.MaxPseudonymsPerSession) {
		if derr := e.store.Decr(ctx, sessioncache.CountKey(sessionID)); derr != nil {
			logger.WarnCtx(ctx, "count rollback failed", "session_id", sessionID, "error", derr)
		}
		return "", fmt.Errorf("%w: cap %d", ErrSessionFull, e.limits.MaxPseudonymsPerSession)
	}

	token, err := e.mintUnique(ctx, sessionID, d.Type)
	if err != nil {
		return "", e.rollback(ctx, sessionID, err, nil)
	}

	ciphertext, err := e.keys.Encrypt(ctx, []byte(d.Value))
	if err != nil {
		return "", e.rollback(ctx, sessionID, err, nil)
	}

	reverseKey := sessioncache.ReverseKey(sessionID, token)
	if err := e.store.Set(ctx, reverseKey, ciphertext, ttl); err != nil {
		return "", e.rollback(ctx, sessionID, err, nil)
	}
	if err := e.store.Set(ctx, forwardKey, token, ttl); err != nil {
		return "", e.rollback(ctx, sessionID, err, []string{reverseKey})
	}

	return token, nil
}

// rollback undoes a partial binding: reserved counter slot and any keys
// already written.
func (e *Engine) rollback(ctx context.Context, sessionID string, cause error, written []string) error {
	if len(written) > 0 {
		if err := e.store.Delete(ctx, written...); err != nil {
			logger.WarnCtx(ctx, "binding rollback failed", "session_id", sessionID, "error", err)
		}
	}
	if err := e.store.Decr(ctx, sessioncache.CountKey(sessionID)); err != nil {
		logger.WarnCtx(ctx, "count rollback failed", "session_id", sessionID, "error", err)
	}
	return fmt.Errorf("%w: %v", ErrBindingFailed, cause)
}

func (e *Engine) mintUnique(ctx context.Context, sessionID string, t detect.EntityType) (string, error) {
	for i := 0; i < mintAttempts; i++ {
		token, err := MintToken(t)
		if err != nil {
			return "", err
		}
		_, taken, err := e.store.Get(ctx, sessioncache.ReverseKey(sessionID, token))
		if err != nil {
			return "", err
		}
		if !taken {
			return token, nil
		}
	}
	return "", fmt.Errorf("token space exhausted after %d attempts", mintAttempts)
}

// substituteAll replaces every variant of every binding in text,
// longest variant first so partial forms never clobber full ones.
func substituteAll(text string, bindings []binding) (string, int) {
	type job struct {
		re    *regexp.Regexp
		token string
		size  int
	}

	var jobs []job
	for _, b := range bindings {
		variants := b.detection.Variants
		if len(variants) == 0 {
			variants = []string{b.detection.Value}
		}
		for _, v := range variants {
			jobs = append(jobs, job{
				re:    substitutionPattern(v, b.detection.Type.CaseInsensitive()),
				token: b.token,
				size:  len([]rune(v)),
			})
		}
	}

	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].size > jobs[j].size })

	total := 0
	for _, j := range jobs {
		n := 0
		text = j.re.ReplaceAllStringFunc(text, func(string) string {
			n++
			return j.token
		})
		total += n
	}
	return text, total
}

// accentClasses map each folded letter to the class matching its
// accented forms; (?i) covers case.
var accentClasses = map[rune]string{
	'a': `[aá]`, 'e': `[eé]`, 'i': `[ií]`,
	'o': `[oó]`, 'u': `[uúü]`, 'n': `[nñ]`,
}

// substitutionPattern compiles the matcher for one variant: exact text
// with every space bridging any whitespace run, word-bounded so a
// cedula never matches inside a longer digit run. Name-class variants
// additionally match regardless of case and diacritics: headers write
// bare uppercase while running text carries accents.
func substitutionPattern(value string, foldCase bool) *regexp.Regexp {
	if !foldCase {
		quoted := regexp.QuoteMeta(value)
		bridged := strings.ReplaceAll(quoted, " ", `\s+`)
		return regexp.MustCompile(`\b` + bridged + `\b`)
	}

	var b strings.Builder
	b.WriteString(`(?i)\b`)
	for _, r := range detect.Fold(value) {
		switch {
		case r == ' ':
			b.WriteString(`\s+`)
		case accentClasses[r] != "":
			b.WriteString(accentClasses[r])
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString(`\b`)
	return regexp.MustCompile(b.String())
}

// Depseudonymize restores real values for every known token in text.
// Unknown and undecryptable tokens stay in place and are listed as
// missing; the session may have expired, the text may quote another
// session's tokens, or the key version may be gone.
func (e *Engine) Depseudonymize(ctx context.Context, sessionID, text string) (*DepseudonymizeResult, error) {
	if sessionID == "" {
		return nil, ErrSessionMissing
	}

	tokens := TokenPattern.FindAllString(text, -1)

	// Resolve each distinct token once
	resolved := make(map[string]string)
	missing := make(map[string]struct{})
	for _, token := range tokens {
		if _, done := resolved[token]; done {
			continue
		}
		if _, gone := missing[token]; gone {
			continue
		}

		ciphertext, ok, err := e.store.Get(ctx, sessioncache.ReverseKey(sessionID, token))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBindingFailed, err)
		}
		if !ok {
			missing[token] = struct{}{}
			continue
		}

		// A ciphertext that will not decrypt (revoked key version,
		// corrupted binding) degrades that token only: it stays in the
		// text and the rest of the restore proceeds.
		plaintext, err := e.keys.Decrypt(ctx, ciphertext)
		if err != nil {
			logger.ErrorCtx(ctx, "binding decrypt failed, token left in place",
				"session_id", sessionID,
				"token", token,
				"error", err)
			missing[token] = struct{}{}
			continue
		}
		resolved[token] = string(plaintext)
	}

	replaced := 0
	out := TokenPattern.ReplaceAllStringFunc(text, func(token string) string {
		if value, ok := resolved[token]; ok {
			replaced++
			return value
		}
		return token
	})

	unknown := make([]string, 0, len(missing))
	for token := range missing {
		unknown = append(unknown, token)
	}
	sort.Strings(unknown)

	if len(unknown) > 0 {
		logger.WarnCtx(ctx, "unknown tokens left in place",
			"session_id", sessionID,
			"distinct", len(unknown))
	}

	return &DepseudonymizeResult{Text: out, Replaced: replaced, Missing: unknown}, nil
}

// Destroy removes every binding of a session and returns how many keys
// were deleted. Destroying an unknown session deletes nothing.
func (e *Engine) Destroy(ctx context.Context, sessionID string) (int, error) {
	if sessionID == "" {
		return 0, ErrSessionMissing
	}
	deleted, err := e.store.DeletePattern(ctx, sessioncache.SessionPrefix(sessionID))
	if err != nil {
		return 0, fmt.Errorf("session teardown failed: %w", err)
	}
	logger.InfoCtx(ctx, "session destroyed", "session_id", sessionID, "keys", deleted)
	return deleted, nil
}
