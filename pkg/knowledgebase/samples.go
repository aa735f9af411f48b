/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: samples.go
Description: Text sample files for offline inference. Each non-empty line holds an answer
and a word, e.g. "+ .0.1." or "- .0.", lines starting with '#' are comments. Samples are
read into a knowledgebase and can be written back in the same form.
*/

package knowledgebase

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/kleascm/regular-learner/pkg/alphabet"
	"github.com/kleascm/regular-learner/pkg/answer"
)

type sample struct {
	line int
	Entry
}

// ReadSamples adds every sample line of r to kb. The first malformed or
// contradicting line is reported with its line number, and then nothing is
// added. A knowledgebase with alphabet size 0 takes its size from the largest
// symbol in the samples, up to MaxAlphabetSize; otherwise symbols outside the
// alphabet are refused.
func (kb *Knowledgebase) ReadSamples(r io.Reader) (int, error) {
	samples, err := parseSamples(r)
	if err != nil {
		return 0, err
	}

	kb.mu.Lock()
	defer kb.mu.Unlock()

	size := kb.alphabetSize
	if size == 0 {
		for _, smp := range samples {
			for _, s := range smp.Word {
				size = max(size, int(s)+1)
			}
		}
		if size > MaxAlphabetSize {
			return 0, fmt.Errorf("%w: samples use %d symbols", ErrAlphabetTooLarge, size)
		}
	}

	// check everything before the first write so a bad line leaves kb unchanged
	merged := make(map[string]answer.Answer, len(samples))
	for _, smp := range samples {
		if !smp.Word.Valid(size) {
			return 0, fmt.Errorf("line %d: %w: %s with alphabet size %d", smp.line, ErrSymbolOutOfRange, smp.Word, size)
		}
		key := smp.Word.Key()
		prev, seen := merged[key]
		if !seen {
			prev = answer.Unknown
			if h, ok := kb.walk(smp.Word); ok {
				prev = kb.nodes[h].answer
			}
		}
		next, err := answer.Merge(prev, smp.Answer)
		if err != nil {
			return 0, fmt.Errorf("line %d: word %s: %w", smp.line, smp.Word, err)
		}
		merged[key] = next
	}

	kb.alphabetSize = size
	for _, smp := range samples {
		h, err := kb.ensure(smp.Word)
		if err != nil {
			return 0, err
		}
		if err := kb.set(h, smp.Answer); err != nil {
			return 0, err
		}
	}
	return len(samples), nil
}

func parseSamples(r io.Reader) ([]sample, error) {
	var samples []sample
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) > 2 {
			return nil, fmt.Errorf("line %d: expected answer and word, got %q", line, text)
		}
		a, err := answer.Parse(fields[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		w := alphabet.Epsilon()
		if len(fields) == 2 {
			if w, err = alphabet.ParseWord(fields[1]); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
		samples = append(samples, sample{line: line, Entry: Entry{Word: w, Answer: a}})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read samples: %w", err)
	}
	return samples, nil
}

// WriteSamples writes every answered word in graded-lexicographic order
func (kb *Knowledgebase) WriteSamples(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for word, a := range kb.Knowledge() {
		sign := "-"
		if a == answer.True {
			sign = "+"
		}
		if _, err := fmt.Fprintf(bw, "%s %s\n", sign, word); err != nil {
			return err
		}
	}
	return bw.Flush()
}
