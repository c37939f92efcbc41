package nats

import (
	"errors"
	"fmt"

	"github.com/valyala/fastjson"
)

// DefaultSeverity is used for entries that carry none.
const DefaultSeverity = "info"

var errNoMessage = errors.New("entry has no message")

// Decoder turns payloads into entries. It is safe for concurrent use.
type Decoder struct {
	parsers fastjson.ParserPool
}

// Decode parses a single object or an array of objects. Elements that are
// malformed are skipped and counted; an error is returned only when the
// payload as a whole is unusable.
func (d *Decoder) Decode(data []byte, defaultService string) ([]EntryMessage, int, error) {
	p := d.parsers.Get()
	defer d.parsers.Put(p)

	v, err := p.ParseBytes(data)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid JSON: %w", err)
	}

	switch v.Type() {
	case fastjson.TypeObject:
		entry, err := decodeEntry(v, defaultService)
		if err != nil {
			return nil, 0, err
		}
		return []EntryMessage{entry}, 0, nil

	case fastjson.TypeArray:
		arr, _ := v.Array()
		entries := make([]EntryMessage, 0, len(arr))
		skipped := 0
		for _, item := range arr {
			if item.Type() != fastjson.TypeObject {
				skipped++
				continue
			}
			entry, err := decodeEntry(item, defaultService)
			if err != nil {
				skipped++
				continue
			}
			entries = append(entries, entry)
		}
		return entries, skipped, nil

	default:
		return nil, 0, fmt.Errorf("payload must be an object or array, got %s", v.Type())
	}
}

func decodeEntry(v *fastjson.Value, defaultService string) (EntryMessage, error) {
	entry := EntryMessage{
		Service:  firstString(v, "service"),
		Severity: firstString(v, "severity", "level"),
		Message:  firstString(v, "message", "msg"),
	}
	if entry.Message == "" {
		return entry, errNoMessage
	}
	if entry.Service == "" {
		entry.Service = defaultService
	}
	if entry.Severity == "" {
		entry.Severity = DefaultSeverity
	}
	return entry, nil
}

func firstString(v *fastjson.Value, keys ...string) string {
	for _, key := range keys {
		if b := v.GetStringBytes(key); len(b) > 0 {
			return string(b)
		}
	}
	return ""
}
