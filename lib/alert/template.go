// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package alert

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/tidwall/jsonc"
)

// defaultRecord is the built-in EVE alert. Only signature_id varies
// between rendered records.
const defaultRecord = `{"metadata":{"sensor_id":"test","sensor_version":"1.0","sent_at":0,"hash_sha256":"hash","read_at":0,"received_at":0},"timestamp":"2023-10-27T10:00:00.000000+0000","flow_id":123456789,"in_iface":"eth0","event_type":"alert","src_ip":"192.168.1.10","src_port":12345,"dest_ip":"10.0.0.1","dest_port":80,"proto":"TCP","alert":{"action":"allowed","gid":1,"signature_id":1000001,"rev":1,"signature":"Test Alert","category":"Misc","severity":3},"http":{"hostname":"example.com","url":"/","http_user_agent":"Mozilla/5.0","http_content_type":"text/html","http_method":"GET","protocol":"HTTP/1.1","status":200,"length":1024},"app_proto":"http","flow":{"pkts_toserver":10,"pkts_toclient":10,"bytes_toserver":1000,"bytes_toclient":5000,"start":"2023-10-27T10:00:00.000000+0000"}}`

// ErrNoSignatureID is returned when a template has no scalar
// alert.signature_id field to carry the record identifier.
var ErrNoSignatureID = errors.New("template has no alert.signature_id field")

// Template is a parsed alert record split around the signature_id
// value. A Template is immutable and safe for concurrent use.
type Template struct {
	prefix []byte
	suffix []byte
}

var defaultTemplate = mustParse([]byte(defaultRecord))

// Default returns the built-in EVE alert template.
func Default() *Template {
	return defaultTemplate
}

func mustParse(data []byte) *Template {
	template, err := Parse(data)
	if err != nil {
		panic("alert: built-in template invalid: " + err.Error())
	}
	return template
}

// Load reads a JSONC template file from disk.
func Load(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading alert template: %w", err)
	}
	template, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return template, nil
}

// Parse strips JSONC comments and trailing commas from data, compacts
// the JSON onto a single line, and locates alert.signature_id. The
// field's original value (number, string, or null) is replaced by the
// identifier on every render; key order is preserved.
func Parse(data []byte) (*Template, error) {
	stripped := jsonc.ToJSON(data)

	var compacted bytes.Buffer
	if err := json.Compact(&compacted, stripped); err != nil {
		return nil, fmt.Errorf("parsing alert template: %w", err)
	}
	document := compacted.Bytes()

	start, end, err := locateSignatureID(document)
	if err != nil {
		return nil, err
	}

	suffix := make([]byte, 0, len(document)-end+1)
	suffix = append(suffix, document[end:]...)
	suffix = append(suffix, '\n')

	return &Template{
		prefix: append([]byte(nil), document[:start]...),
		suffix: suffix,
	}, nil
}

// AppendRecord appends one framed record carrying signatureID to dst
// and returns the extended slice.
func (t *Template) AppendRecord(dst []byte, signatureID uint64) []byte {
	dst = append(dst, t.prefix...)
	dst = strconv.AppendUint(dst, signatureID, 10)
	return append(dst, t.suffix...)
}

// Size returns the length of a framed record carrying signatureID.
func (t *Template) Size(signatureID uint64) int {
	digits := 1
	for value := signatureID; value >= 10; value /= 10 {
		digits++
	}
	return len(t.prefix) + digits + len(t.suffix)
}

// locateSignatureID returns the byte span of the alert.signature_id
// value inside a compacted JSON document.
func locateSignatureID(document []byte) (int, int, error) {
	decoder := json.NewDecoder(bytes.NewReader(document))
	decoder.UseNumber()

	if err := expectDelim(decoder, '{'); err != nil {
		return 0, 0, fmt.Errorf("alert template must be a JSON object: %w", err)
	}

	for decoder.More() {
		key, err := nextKey(decoder)
		if err != nil {
			return 0, 0, err
		}
		if key != "alert" {
			if err := skipValue(decoder); err != nil {
				return 0, 0, err
			}
			continue
		}

		if err := expectDelim(decoder, '{'); err != nil {
			return 0, 0, fmt.Errorf("alert field must be an object: %w", err)
		}
		for decoder.More() {
			field, err := nextKey(decoder)
			if err != nil {
				return 0, 0, err
			}
			if field != "signature_id" {
				if err := skipValue(decoder); err != nil {
					return 0, 0, err
				}
				continue
			}

			keyEnd := int(decoder.InputOffset())
			value, err := decoder.Token()
			if err != nil {
				return 0, 0, fmt.Errorf("reading alert.signature_id: %w", err)
			}
			switch value.(type) {
			case json.Number, string, nil:
			default:
				return 0, 0, fmt.Errorf("%w: value must be a scalar, got %v", ErrNoSignatureID, value)
			}

			colon := bytes.IndexByte(document[keyEnd:], ':')
			if colon < 0 {
				return 0, 0, ErrNoSignatureID
			}
			return keyEnd + colon + 1, int(decoder.InputOffset()), nil
		}
		return 0, 0, ErrNoSignatureID
	}
	return 0, 0, ErrNoSignatureID
}

func expectDelim(decoder *json.Decoder, want json.Delim) error {
	token, err := decoder.Token()
	if err != nil {
		return err
	}
	if delim, ok := token.(json.Delim); !ok || delim != want {
		return fmt.Errorf("expected %q, got %v", want, token)
	}
	return nil
}

func nextKey(decoder *json.Decoder) (string, error) {
	token, err := decoder.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}
	key, ok := token.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", token)
	}
	return key, nil
}

func skipValue(decoder *json.Decoder) error {
	var discard json.RawMessage
	return decoder.Decode(&discard)
}
