package cookies

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// MaxCookieSize is the per-cookie limit browsers are required to honour.
	MaxCookieSize = 4096

	// EstimatedAttributeSize approximates the bytes used by attributes
	// (Path, Expires, SameSite...) once serialized.
	EstimatedAttributeSize = 160

	ChunkSize = MaxCookieSize - EstimatedAttributeSize

	countSep        = "~"
	countHeaderSize = 8
)

// Chunk writes value under c.Name, split into c.Name.0, c.Name.1, ... when
// it does not fit in one cookie. Chunk 0 starts with the chunk count and
// countSep so Read can tell a truncated set from a complete one. Cookies in
// existing (the request's cookies) that belong to c but are not rewritten are
// expired, so a shrinking value leaves no stale chunks behind.
func (c Cookie) Chunk(value string, now, expires time.Time, existing map[string]string) []*http.Cookie {
	var out []*http.Cookie
	written := map[string]bool{}

	if len(c.Name)+1+len(value) <= ChunkSize {
		out = append(out, c.named(c.Name, value, now, expires))
		written[c.Name] = true
	} else {
		size := ChunkSize - len(c.Name) - 4 - countHeaderSize
		count := (len(value) + size - 1) / size
		for i := 0; i < count; i++ {
			n := min(size, len(value))
			part := value[:n]
			if i == 0 {
				part = strconv.Itoa(count) + countSep + part
			}
			name := c.Name + "." + strconv.Itoa(i)
			out = append(out, c.named(name, part, now, expires))
			written[name] = true
			value = value[n:]
		}
	}

	for _, name := range c.names(existing) {
		if !written[name] {
			out = append(out, c.expire(name))
		}
	}
	return out
}

// Read reassembles the value of c from the request's cookies. Chunks must
// run from .0 without gaps up to the count recorded in chunk 0; a missing
// chunk means no value.
func (c Cookie) Read(existing map[string]string) (string, bool) {
	indexes := c.chunkIndexes(existing)
	if len(indexes) == 0 {
		v, ok := existing[c.Name]
		return v, ok && v != ""
	}
	head, first, found := strings.Cut(existing[c.Name+".0"], countSep)
	if !found {
		return "", false
	}
	count, err := strconv.Atoi(head)
	if err != nil || count != len(indexes) {
		return "", false
	}
	var b strings.Builder
	b.WriteString(first)
	for want, idx := range indexes {
		if idx != want {
			return "", false
		}
		if idx > 0 {
			b.WriteString(existing[c.Name+"."+strconv.Itoa(idx)])
		}
	}
	return b.String(), true
}

// Clear expires c and every chunk of it present in existing. The bare name is
// always expired even when absent.
func (c Cookie) Clear(existing map[string]string) []*http.Cookie {
	out := []*http.Cookie{c.expire(c.Name)}
	for _, name := range c.names(existing) {
		if name != c.Name {
			out = append(out, c.expire(name))
		}
	}
	return out
}

// names lists the request cookies that belong to c, in a stable order.
func (c Cookie) names(existing map[string]string) []string {
	var names []string
	if _, ok := existing[c.Name]; ok {
		names = append(names, c.Name)
	}
	for _, idx := range c.chunkIndexes(existing) {
		names = append(names, c.Name+"."+strconv.Itoa(idx))
	}
	return names
}

func (c Cookie) chunkIndexes(existing map[string]string) []int {
	prefix := c.Name + "."
	var indexes []int
	for name := range existing {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		idx, err := strconv.Atoi(name[len(prefix):])
		if err != nil || idx < 0 {
			continue
		}
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	return indexes
}
