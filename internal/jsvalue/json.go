package jsvalue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// FromJSON decodes a JSON document into heap values. Object key order is
// preserved, which encoding/json's map decoding would lose.
func (r *Realm) FromJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := r.decodeJSON(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("jsvalue: trailing data after JSON value")
	}
	return v, nil
}

func (r *Realm) decodeJSON(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("jsvalue: decode json: %w", err)
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := r.NewObject()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, fmt.Errorf("jsvalue: decode json: %w", err)
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("jsvalue: object key %v is not a string", kt)
				}
				v, err := r.decodeJSON(dec)
				if err != nil {
					return nil, err
				}
				obj.SetName(key, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("jsvalue: decode json: %w", err)
			}
			return obj, nil
		case '[':
			arr := r.NewArray()
			for dec.More() {
				v, err := r.decodeJSON(dec)
				if err != nil {
					return nil, err
				}
				arr.Push(v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("jsvalue: decode json: %w", err)
			}
			return arr, nil
		}
		return nil, fmt.Errorf("jsvalue: unexpected delimiter %q", t)
	case json.Number:
		f, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return nil, fmt.Errorf("jsvalue: number %s: %w", t, err)
		}
		return Number(f), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null{}, nil
	}
	return nil, fmt.Errorf("jsvalue: unexpected token %v", tok)
}
