package env

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
)

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

type Decoder struct {
	r io.Reader
}

func (d *Decoder) Decode(v *map[string]string) error {
	if *v == nil {
		*v = make(map[string]string)
	}
	scanner := bufio.NewScanner(d.r)

	var lineNr int
	for scanner.Scan() {
		lineNr++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		line = bytes.TrimPrefix(line, []byte("export "))

		key, value, ok := bytes.Cut(line, []byte("="))
		if !ok {
			return fmt.Errorf("invalid line %d: %s", lineNr, line)
		}
		name := strings.TrimSpace(string(key))
		if name == "" {
			return fmt.Errorf("invalid line %d: missing key", lineNr)
		}

		parsed, err := unquote(strings.TrimSpace(string(value)))
		if err != nil {
			return fmt.Errorf("invalid value for %s on line %d: %w", name, lineNr, err)
		}
		(*v)[name] = parsed
	}

	return scanner.Err()
}

func unquote(value string) (string, error) {
	if len(value) < 2 {
		return value, nil
	}
	switch value[0] {
	case '"':
		return strconv.Unquote(value)
	case '\'':
		if value[len(value)-1] != '\'' {
			return "", fmt.Errorf("unterminated quote")
		}
		return value[1 : len(value)-1], nil
	}
	return value, nil
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

type Encoder struct {
	w io.Writer
}

// Encode writes the entries sorted by key so the file stays stable across updates.
func (e *Encoder) Encode(v map[string]string) error {
	keys := make([]string, 0, len(v))
	for key := range v {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	for _, key := range keys {
		value := v[key]
		if strings.ContainsAny(value, " #\"'\n\t") {
			value = strconv.Quote(value)
		}
		if _, err := fmt.Fprintf(e.w, "%s=%s\n", key, value); err != nil {
			return err
		}
	}
	return nil
}
