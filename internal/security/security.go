// Package security validates user-supplied tickers and keeps credentials out
// of logs and terminal output.
package security

import (
	"net/url"
	"regexp"
	"strings"

	"earnings-tracker/internal/errors"
)

// symbolPattern accepts US tickers with an optional class or exchange suffix
// (BRK.B, RDS-A, SHOP.TO).
var symbolPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9]{0,9}([.\-][A-Z0-9]{1,4})?$`)

// sensitiveParams are query parameters whose values are credentials.
var sensitiveParams = map[string]bool{
	"apikey":       true,
	"api_key":      true,
	"token":        true,
	"access_token": true,
	"key":          true,
	"secret":       true,
	"password":     true,
}

var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)((?:api[_-]?key|apikey|token|secret|password|x-api-key)["']?\s*[=:]\s*["']?)([^\s"'&,]+)`),
	regexp.MustCompile(`sk-[A-Za-z0-9_\-]{16,}`), // OpenAI keys
	regexp.MustCompile(`AIza[A-Za-z0-9_\-]{20,}`), // Google keys
}

// NormalizeSymbol uppercases and trims symbol and rejects anything that is
// not a plausible ticker.
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return "", errors.Wrap(errors.ErrInvalidInput, "symbol cannot be empty")
	}
	if !symbolPattern.MatchString(s) {
		return "", errors.Wrapf(errors.ErrInvalidInput, "invalid symbol %q", symbol)
	}
	return s, nil
}

// NormalizeSymbols applies NormalizeSymbol to every element, failing on the first bad one.
func NormalizeSymbols(symbols []string) ([]string, error) {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		n, err := NormalizeSymbol(s)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// MaskCredential masks a credential, keeping a short prefix and suffix of long values.
func MaskCredential(credential string) string {
	if len(credential) <= 12 {
		return "****"
	}
	return credential[:4] + "****" + credential[len(credential)-4:]
}

// MaskSecrets masks key=value credentials and known key formats in s.
func MaskSecrets(s string) string {
	s = sensitivePatterns[0].ReplaceAllStringFunc(s, func(match string) string {
		parts := sensitivePatterns[0].FindStringSubmatch(match)
		return parts[1] + MaskCredential(parts[2])
	})
	for _, p := range sensitivePatterns[1:] {
		s = p.ReplaceAllStringFunc(s, MaskCredential)
	}
	return s
}

// MaskURL hides the password and credential query parameters of raw.
// Unparseable input is masked as free text.
func MaskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return MaskSecrets(raw)
	}
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "****")
		}
	}
	q := u.Query()
	masked := false
	for k, vals := range q {
		if sensitiveParams[strings.ToLower(k)] {
			for i := range vals {
				vals[i] = MaskCredential(vals[i])
			}
			masked = true
		}
	}
	if masked {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

type maskedError struct {
	msg string
	err error
}

func (e *maskedError) Error() string { return e.msg }
func (e *maskedError) Unwrap() error { return e.err }

// MaskError returns err with credentials masked in its message. The original
// error stays reachable through errors.Is and errors.As.
func MaskError(err error) error {
	if err == nil {
		return nil
	}
	return &maskedError{msg: MaskSecrets(err.Error()), err: err}
}
