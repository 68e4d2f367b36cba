package auth

import (
	"crypto/rand"
	_ "embed"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/aiokaizen/bear-vision/internal/lava/i18n"
	"github.com/aiokaizen/bear-vision/internal/lava/result"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// TemporaryPasswordLength is the length of generated passwords.
const TemporaryPasswordLength = 12

// maxSimilarity is the quick ratio above which a password is considered
// derived from a user attribute.
const maxSimilarity = 0.7

const (
	lowerAlphabet     = "abcdefghijklmnopqrstuvwxyz"
	upperAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits            = "1234567890"
	specialCharacters = "-_!?.^*@#$%"
)

//go:embed common_passwords.txt
var commonPasswordsFile string

var commonPasswords = sync.OnceValue(func() map[string]struct{} {
	set := make(map[string]struct{})
	for _, line := range strings.Split(commonPasswordsFile, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			set[strings.ToLower(line)] = struct{}{}
		}
	}
	return set
})

var nonWord = regexp.MustCompile(`\W+`)

// ValidatePassword checks password against the password rules. u, when
// set, provides the attributes the password must not resemble.
func ValidatePassword(l *i18n.Localizer, password string, u *User) result.Result {
	var errs []result.FieldError
	add := func(msg string) {
		errs = append(errs, result.FieldError{Field: "password", Message: msg})
	}

	if u != nil && similarToUser(password, u) {
		add(l.T("lava.auth.password_similar"))
	}
	if len([]rune(password)) < MinPasswordLength {
		add(l.T("lava.auth.password_too_short", MinPasswordLength))
	}
	if _, common := commonPasswords()[strings.ToLower(strings.TrimSpace(password))]; common {
		add(l.T("lava.auth.password_common"))
	}
	if isNumeric(password) {
		add(l.T("lava.auth.password_numeric"))
	}

	if len(errs) > 0 {
		return result.Error(l.T("lava.auth.invalid_password"), nil, errs, result.CodeInvalidPassword)
	}
	return result.Success(l.T("lava.auth.password_valid"), nil)
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func similarToUser(password string, u *User) bool {
	password = strings.ToLower(password)
	for _, attr := range []string{u.Username, u.FirstName, u.LastName, u.Email} {
		if attr == "" {
			continue
		}
		parts := append(nonWord.Split(attr, -1), attr)
		for _, part := range parts {
			if part == "" {
				continue
			}
			if quickRatio(password, strings.ToLower(part)) >= maxSimilarity {
				return true
			}
		}
	}
	return false
}

// quickRatio is 2*M/T where M counts the characters a and b share as
// multisets and T is the total length.
func quickRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	avail := make(map[rune]int, len(rb))
	for _, r := range rb {
		avail[r]++
	}
	matches := 0
	for _, r := range ra {
		if avail[r] > 0 {
			avail[r]--
			matches++
		}
	}
	return 2 * float64(matches) / float64(total)
}

// GeneratePassword returns a random password of length characters drawn from
// letters and digits, plus special characters when special is set.
func GeneratePassword(length int, special bool) (string, error) {
	pool := lowerAlphabet + upperAlphabet + digits
	if special {
		pool += specialCharacters
	}
	size := big.NewInt(int64(len(pool)))

	var b strings.Builder
	b.Grow(length)
	for range length {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("failed to generate password: %w", err)
		}
		b.WriteByte(pool[n.Int64()])
	}
	return b.String(), nil
}
