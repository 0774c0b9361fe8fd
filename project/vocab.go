package project

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// ReadVocabFile reads a vocabulary file. Files ending in .zst are
// zstd-compressed.
func ReadVocabFile(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open vocabulary: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(filename, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open vocabulary: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	vocab, err := ReadVocab(r)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary %s: %w", filename, err)
	}
	return vocab, nil
}

// ReadVocab reads a vocabulary, either a JSON array of strings or one token
// per line. On a line, a token in double quotes is unquoted as a Go string
// so that it can hold spaces at its ends and newlines.
func ReadVocab(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		var vocab []string
		if err := json.Unmarshal(trimmed, &vocab); err != nil {
			return nil, err
		}
		return vocab, nil
	}

	var vocab []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineno := 0
	for sc.Scan() {
		lineno++
		line := sc.Text()
		if len(line) >= 2 && line[0] == '"' && line[len(line)-1] == '"' {
			tok, err := strconv.Unquote(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineno, err)
			}
			line = tok
		}
		vocab = append(vocab, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return vocab, nil
}

// WriteVocab writes vocab one token per line, quoting the tokens that would
// not survive a round trip otherwise.
func WriteVocab(w io.Writer, vocab []string) error {
	bw := bufio.NewWriter(w)
	for _, tok := range vocab {
		if tok != strings.TrimSpace(tok) || strings.ContainsAny(tok, "\n\r\"") || tok == "" {
			tok = strconv.Quote(tok)
		}
		if _, err := fmt.Fprintln(bw, tok); err != nil {
			return err
		}
	}
	return bw.Flush()
}
