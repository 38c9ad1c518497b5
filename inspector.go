package handling

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/bjaus/handling/internal/jsoncodec"
)

// ErrInvalidJSON is returned when the input is not valid JSON.
var ErrInvalidJSON = errors.New("handling: invalid JSON")

// MetadataPrefix addresses message headers in a View path:
// "metadata.tenant" reads the "tenant" header.
const MetadataPrefix = "metadata."

// Inspector examines raw bytes and returns a View for field queries.
type Inspector interface {
	Inspect(raw []byte) (View, error)
}

// View provides format-agnostic field access for discriminator matching.
type View interface {
	// HasField returns true if the path exists in the message.
	HasField(path string) bool

	// GetString returns the string value at path, or false if not found
	// or not a string.
	GetString(path string) (string, bool)

	// GetBytes returns the raw bytes at path, or false if not found.
	// For JSON, this returns the raw JSON value (including quotes for strings).
	GetBytes(path string) ([]byte, bool)
}

// JSONInspector returns an Inspector that uses gjson for field access.
func JSONInspector() Inspector {
	return jsonInspector{}
}

type jsonInspector struct{}

func (jsonInspector) Inspect(raw []byte) (View, error) {
	if !gjson.ValidBytes(raw) {
		return nil, ErrInvalidJSON
	}
	return jsonView{raw: raw}, nil
}

type jsonView struct {
	raw []byte
}

func (v jsonView) HasField(path string) bool {
	return gjson.GetBytes(v.raw, path).Exists()
}

func (v jsonView) GetString(path string) (string, bool) {
	r := gjson.GetBytes(v.raw, path)
	if !r.Exists() {
		return "", false
	}
	if r.Type != gjson.String {
		return "", false
	}
	return r.String(), true
}

func (v jsonView) GetBytes(path string) ([]byte, bool) {
	r := gjson.GetBytes(v.raw, path)
	if !r.Exists() {
		return nil, false
	}
	return []byte(r.Raw), true
}

// InspectMessage returns a View over msg. Paths starting with
// MetadataPrefix read headers; every other path is a gjson path into the
// JSON form of the payload. json.RawMessage and []byte payloads are read as
// they are, other payloads are encoded on first access.
func InspectMessage(msg Message) View {
	return &messageView{msg: msg}
}

type messageView struct {
	msg     Message
	payload View
}

func (v *messageView) body() View {
	if v.payload != nil {
		return v.payload
	}
	var raw []byte
	switch p := v.msg.Payload().(type) {
	case json.RawMessage:
		raw = p
	case []byte:
		raw = p
	case nil:
	default:
		raw, _ = jsoncodec.Marshal(p)
	}
	view, err := JSONInspector().Inspect(raw)
	if err != nil {
		view = emptyView{}
	}
	v.payload = view
	return view
}

func (v *messageView) HasField(path string) bool {
	if key, ok := strings.CutPrefix(path, MetadataPrefix); ok {
		_, found := v.msg.Metadata().Lookup(key)
		return found
	}
	return v.body().HasField(path)
}

func (v *messageView) GetString(path string) (string, bool) {
	if key, ok := strings.CutPrefix(path, MetadataPrefix); ok {
		return v.msg.Metadata().Lookup(key)
	}
	return v.body().GetString(path)
}

func (v *messageView) GetBytes(path string) ([]byte, bool) {
	if key, ok := strings.CutPrefix(path, MetadataPrefix); ok {
		s, found := v.msg.Metadata().Lookup(key)
		if !found {
			return nil, false
		}
		return []byte(s), true
	}
	return v.body().GetBytes(path)
}

type emptyView struct{}

func (emptyView) HasField(string) bool            { return false }
func (emptyView) GetString(string) (string, bool) { return "", false }
func (emptyView) GetBytes(string) ([]byte, bool)  { return nil, false }
