// Package mapping loads the categorical encodings the model was trained
// with: neighborhood names to integer codes and crime type labels to the
// class codes the classifier emits.
package mapping

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// NeighborhoodMap maps a neighborhood name to its training encoding.
type NeighborhoodMap map[string]int

// CrimeTypeMap maps a model class code to its human-readable label.
type CrimeTypeMap map[int]string

// LoadNeighborhoods reads a JSON object of neighborhood name to integer
// code. Files saved by the training notebook on Windows come through as
// Windows-1252, so non-UTF-8 input is transcoded before parsing.
func LoadNeighborhoods(path string) (NeighborhoodMap, error) {
	data, err := readText(path)
	if err != nil {
		return nil, fmt.Errorf("read neighborhood mapping: %w", err)
	}

	var raw map[string]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse neighborhood mapping %s: %w", path, err)
	}

	result := make(NeighborhoodMap, len(raw))
	for name, code := range raw {
		if name == "" {
			return nil, fmt.Errorf("neighborhood mapping %s: empty name", path)
		}
		if code < 0 {
			return nil, fmt.Errorf("neighborhood mapping %s: negative code %d for %q", path, code, name)
		}
		result[name] = code
	}
	return result, nil
}

// LoadCrimeTypes reads a JSON object of crime type label to class code and
// inverts it. When two labels share a code the one that appears first in
// the file wins, so the object is walked token by token instead of through
// an unordered map.
func LoadCrimeTypes(path string) (CrimeTypeMap, error) {
	data, err := readText(path)
	if err != nil {
		return nil, fmt.Errorf("read crime type mapping: %w", err)
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	if err := expectDelim(decoder, '{'); err != nil {
		return nil, fmt.Errorf("parse crime type mapping %s: %w", path, err)
	}

	result := make(CrimeTypeMap)
	for decoder.More() {
		keyToken, err := decoder.Token()
		if err != nil {
			return nil, fmt.Errorf("parse crime type mapping %s: %w", path, err)
		}
		label, ok := keyToken.(string)
		if !ok {
			return nil, fmt.Errorf("parse crime type mapping %s: unexpected key %v", path, keyToken)
		}

		valueToken, err := decoder.Token()
		if err != nil {
			return nil, fmt.Errorf("parse crime type mapping %s: %w", path, err)
		}
		number, ok := valueToken.(json.Number)
		if !ok {
			return nil, fmt.Errorf("parse crime type mapping %s: value for %q is not a number", path, label)
		}
		code64, err := number.Int64()
		if err != nil {
			return nil, fmt.Errorf("parse crime type mapping %s: value for %q is not an integer", path, label)
		}

		code := int(code64)
		if _, exists := result[code]; !exists {
			result[code] = label
		}
	}

	if err := expectDelim(decoder, '}'); err != nil {
		return nil, fmt.Errorf("parse crime type mapping %s: %w", path, err)
	}
	return result, nil
}

func expectDelim(decoder *json.Decoder, want rune) error {
	token, err := decoder.Token()
	if err != nil {
		return err
	}
	delim, ok := token.(json.Delim)
	if !ok || rune(delim) != want {
		return fmt.Errorf("expected %q, got %v", want, token)
	}
	return nil
}

// readText loads a file and normalizes it to UTF-8, falling back to a
// Windows-1252 decode when the raw bytes are not valid UTF-8.
func readText(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if utf8.Valid(raw) {
		return raw, nil
	}
	decoded, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return decoded, nil
}
