package stdlib

import (
	"bytes"
	"encoding/json"
	"fmt"

	"sona/pkg/eval"
)

var jsonBridges = []registration{
	{"__native__json_encode", 1, jsonEncode},
	{"__native__json_pretty", 1, jsonPretty},
	{"__native__json_decode", 1, jsonDecode},
}

func jsonEncode(args ...eval.Object) (eval.Object, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, args[0], make(map[eval.Object]bool)); err != nil {
		return nil, err
	}
	return eval.NewString(buf.String()), nil
}

func jsonPretty(args ...eval.Object) (eval.Object, error) {
	var compact, out bytes.Buffer
	if err := encodeValue(&compact, args[0], make(map[eval.Object]bool)); err != nil {
		return nil, err
	}
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	return eval.NewString(out.String()), nil
}

// encodeValue writes dicts with their keys in insertion order; everything
// else goes through encoding/json. seen holds the containers being written,
// since JSON cannot express a value that contains itself.
func encodeValue(buf *bytes.Buffer, obj eval.Object, seen map[eval.Object]bool) error {
	switch v := obj.(type) {
	case *eval.Dict:
		if seen[v] {
			return fmt.Errorf("json: cannot encode a dict that contains itself")
		}
		seen[v] = true
		defer delete(seen, v)
		buf.WriteByte('{')
		for i, p := range v.Pairs() {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(p.Key.Inspect())
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := encodeValue(buf, p.Value, seen); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case *eval.Array:
		if seen[v] {
			return fmt.Errorf("json: cannot encode an array that contains itself")
		}
		seen[v] = true
		defer delete(seen, v)
		buf.WriteByte('[')
		for i, el := range v.Elements {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeValue(buf, el, seen); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	}
	data, err := json.Marshal(eval.ToNative(obj))
	if err != nil {
		return err
	}
	buf.Write(data)
	return nil
}

// jsonDecode keeps object keys in document order, unlike decoding into a
// map.
func jsonDecode(args ...eval.Object) (eval.Object, error) {
	text, err := stringArg(args, 0, "text")
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after JSON value at offset %d", dec.InputOffset())
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (eval.Object, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			dict := eval.NewDict()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				dict.SetString(keyTok.(string), val)
			}
			_, err := dec.Token()
			return dict, err
		case '[':
			var elements []eval.Object
			for dec.More() {
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				elements = append(elements, val)
			}
			_, err := dec.Token()
			return eval.NewArray(elements...), err
		}
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return eval.NewInteger(n), nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return eval.NewFloat(f), nil
	}
	return eval.FromNative(tok), nil
}
