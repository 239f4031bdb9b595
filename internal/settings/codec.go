package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
)

var ErrMalformedValue = errors.New("malformed persisted value")

// legacyAliases maps canonical field names to the names older console
// builds saved. The canonical name wins when both are present.
var legacyAliases = map[Field]string{
	FieldTeam:    "teamName",
	FieldChannel: "channelName",
	FieldURL:     "alertmanagerurl",
}

// IsAbsent reports whether the host has never saved a value: no bytes,
// only whitespace, or JSON null. An empty object or array is a saved value.
func IsAbsent(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// Encode renders c in the canonical persisted shape: an object keyed by
// decimal id, ascending, with all four fields on every entry.
func Encode(c Collection) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, item := range c.Items() {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(strconv.Itoa(int(item.ID))))
		buf.WriteByte(':')

		raw, err := json.Marshal(item.Entry)
		if err != nil {
			return nil, fmt.Errorf("encoding entry %d: %w", item.ID, err)
		}
		buf.Write(raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Decode reads any persisted shape the console has produced: an object keyed
// by id or an array indexed by id, with canonical or legacy field names.
// Absent values decode to an empty collection.
func Decode(data []byte) (Collection, error) {
	if IsAbsent(data) {
		return Collection{}, nil
	}
	if !gjson.ValidBytes(data) {
		return Collection{}, fmt.Errorf("%w: invalid json", ErrMalformedValue)
	}

	root := gjson.ParseBytes(data)
	entries := make(map[EntryID]Entry)

	switch {
	case root.IsArray():
		for i, value := range root.Array() {
			e, err := decodeEntry(value)
			if err != nil {
				return Collection{}, fmt.Errorf("entry %d: %w", i, err)
			}
			entries[EntryID(i)] = e
		}

	case root.IsObject():
		var decodeErr error
		root.ForEach(func(key, value gjson.Result) bool {
			id, err := parseKey(key.String())
			if err != nil {
				decodeErr = err
				return false
			}
			if _, dup := entries[id]; dup {
				decodeErr = fmt.Errorf("%w: duplicate key %q", ErrMalformedValue, key.String())
				return false
			}
			e, err := decodeEntry(value)
			if err != nil {
				decodeErr = fmt.Errorf("entry %q: %w", key.String(), err)
				return false
			}
			entries[id] = e
			return true
		})
		if decodeErr != nil {
			return Collection{}, decodeErr
		}

	default:
		return Collection{}, fmt.Errorf("%w: expected object or array, got %s", ErrMalformedValue, root.Type)
	}

	return NewCollection(entries), nil
}

func parseKey(key string) (EntryID, error) {
	n, err := strconv.ParseInt(key, 10, 32)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: key %q is not an integer between 0 and %d", ErrMalformedValue, key, MaxEntryID)
	}
	return EntryID(n), nil
}

func decodeEntry(value gjson.Result) (Entry, error) {
	if !value.IsObject() {
		return Entry{}, fmt.Errorf("%w: expected object, got %s", ErrMalformedValue, value.Type)
	}

	var e Entry
	for _, f := range Fields {
		v, err := lookupField(value, f)
		if err != nil {
			return Entry{}, err
		}
		e = e.Set(f, v)
	}
	return e, nil
}

func lookupField(obj gjson.Result, f Field) (string, error) {
	res := obj.Get(gjson.Escape(string(f)))
	if !present(res) {
		if alias, ok := legacyAliases[f]; ok {
			res = obj.Get(gjson.Escape(alias))
		}
	}

	switch {
	case !present(res):
		return "", nil
	case res.Type == gjson.String:
		return res.Str, nil
	default:
		return "", fmt.Errorf("%w: field %s must be a string, got %s", ErrMalformedValue, f, res.Type)
	}
}

func present(res gjson.Result) bool {
	return res.Exists() && res.Type != gjson.Null
}
