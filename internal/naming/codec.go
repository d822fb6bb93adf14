package naming

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/charmap"
)

// Codec assigns collision-free storage names to uploaded files and
// derives human-readable display names from them.
//
// Two schemes exist and are intentionally kept apart. The legacy flat
// scheme prefixes only a millisecond timestamp and is known to collide
// under rapid multi-file uploads; the grouped scheme adds a short
// random suffix to the timestamp so that files uploaded in the same
// millisecond still get distinct names.
type Codec struct {
	now func() time.Time
}

// New returns a Codec using the wall clock.
func New() *Codec {
	return &Codec{now: time.Now}
}

// NewWithClock returns a Codec with an injected clock, for tests.
func NewWithClock(now func() time.Time) *Codec {
	return &Codec{now: now}
}

// GroupStorageName returns a storage name for the grouped scheme:
// "<unix-millis>-<6 random chars>-<sanitized original name>".
func (c *Codec) GroupStorageName(originalName string) string {
	millis := c.now().UnixMilli()
	suffix := randomSuffix()
	return strings.Join([]string{formatMillis(millis), suffix, Sanitize(originalName)}, "-")
}

// FlatStorageName returns a storage name for the legacy flat scheme:
// "<unix-millis>-<sanitized original name>". Collisions within the
// same millisecond are possible; the grouped scheme exists to fix
// that, the flat scheme keeps its historical behavior.
func (c *Codec) FlatStorageName(originalName string) string {
	return formatMillis(c.now().UnixMilli()) + "-" + Sanitize(originalName)
}

// GroupID returns a fresh time-derived group id:
// "group-<unix-millis>-<6 random chars>". The suffix keeps ids unique
// under same-millisecond creates, so a failed create can always be
// retried with a fresh id.
func (c *Codec) GroupID() string {
	return "group-" + formatMillis(c.now().UnixMilli()) + "-" + randomSuffix()
}

var flatPrefix = regexp.MustCompile(`^\d+-`)

// DisplayNameFromFlat strips the leading "<digits>-" prefix the flat
// scheme prepends. It applies once and only to that scheme; grouped
// storage names carry their display name in metadata instead.
func DisplayNameFromFlat(storageName string) string {
	return flatPrefix.ReplaceAllString(storageName, "")
}

// ThumbName derives the thumbnail file name for a storage name: same
// stem, ".jpg" extension. Deterministic so a thumbnail can always be
// located without a separate index.
func ThumbName(storageName string) string {
	ext := filepath.Ext(storageName)
	return strings.TrimSuffix(storageName, ext) + ".jpg"
}

// RepairDisplayName undoes the single-byte mangling some transport
// layers apply to multipart file names. A UTF-8 name delivered as
// latin1 arrives with each byte widened to its own rune; encoding the
// runes back to latin1 bytes recovers the original UTF-8 sequence.
// Names that were decoded correctly in the first place pass through
// unchanged.
func RepairDisplayName(name string) string {
	hasHighRune := false
	for _, r := range name {
		if r > 0xFF {
			// Cannot be a latin1 misdecode.
			return name
		}
		if r > 0x7F {
			hasHighRune = true
		}
	}
	if !hasHighRune {
		// Pure ASCII survives any single-byte decode intact.
		return name
	}

	raw, err := charmap.ISO8859_1.NewEncoder().String(name)
	if err != nil {
		return name
	}
	if !utf8.ValidString(raw) || !strings.ContainsFunc(raw, func(r rune) bool { return r > 0x7F }) {
		return name
	}
	return raw
}

// Sanitize reduces an uploaded name to a single safe path element:
// any directory part is dropped and path separators, control
// characters and null bytes are replaced so the result can never
// escape the directory it is stored in.
func Sanitize(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == ".." || name == "/" || name == "" {
		return "unnamed"
	}

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r == '/' || r == '\\':
			b.WriteRune('_')
		case r < 0x20 || r == 0x7F:
			continue
		default:
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" || out == "." || out == ".." {
		return "unnamed"
	}
	return out
}

func formatMillis(millis int64) string {
	return strconv.FormatInt(millis, 10)
}

// randomSuffix returns 6 hex characters of fresh UUID entropy.
func randomSuffix() string {
	id := uuid.New()
	return strings.ReplaceAll(id.String(), "-", "")[:6]
}
