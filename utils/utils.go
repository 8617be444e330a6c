package utils

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/twmb/murmur3"
)

func HashString(s string) uint64 {
	return HashBytes([]byte(s))
}

func HashBytes(bytes ...[]byte) uint64 {
	hash := murmur3.New64()
	for _, b := range bytes {
		_, err := hash.Write(b)
		if err != nil {
			panic(err)
		}
	}
	return hash.Sum64()
}

// ShortHash returns the first n hex characters of the murmur3 hash of s.
func ShortHash(s string, n int) string {
	h := fmt.Sprintf("%016x", HashString(s))
	if n <= 0 || n > len(h) {
		return h
	}
	return h[:n]
}

// ReadMap reads "key|value" lines. Blank lines, lines starting with '#'
// and lines without a separator are skipped.
func ReadMap(filePath string) (map[string]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)

	result := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p := strings.SplitN(line, "|", 2)
		if len(p) != 2 {
			continue
		}
		result[strings.TrimSpace(p[0])] = strings.TrimSpace(p[1])
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// ErrPanic wraps a value recovered by RecoverWithError.
var ErrPanic = errors.New("got panic")

// RecoverWithError turns a panic in the deferring function into an error
// on err. Use it only with a named error result.
func RecoverWithError(err *error) {
	if rv := recover(); rv != nil {
		*err = fmt.Errorf("%w: %v", ErrPanic, rv)
	}
}
