package storage

import (
	"fmt"
	"regexp"
)

var (
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9._]{1,30}$`)
	proxyRes   = []*regexp.Regexp{
		regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}:\d{1,5}$`),
		regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}:\d{1,5}:\w+:\w+$`),
		regexp.MustCompile(`^[\w.-]+:\d{1,5}$`),
		regexp.MustCompile(`^[\w.-]+:\d{1,5}:\w+:\w+$`),
	}
)

// ValidTarget reports whether the handle is a plausible platform username.
func ValidTarget(target string) bool {
	return usernameRe.MatchString(target)
}

// ValidProxy reports whether the proxy descriptor matches one of the
// accepted "host:port[:user:pass]" shapes.
func ValidProxy(proxy string) bool {
	for _, re := range proxyRes {
		if re.MatchString(proxy) {
			return true
		}
	}
	return false
}

// ValidateAccount checks the required fields of an account entry. It returns
// a nil error for usable accounts; soft issues come back as warnings.
func ValidateAccount(a Account) (warnings []string, err error) {
	if a.Username == "" {
		return nil, fmt.Errorf("account has no username")
	}
	if !usernameRe.MatchString(a.Username) {
		return nil, fmt.Errorf("account %q: invalid username format", a.Username)
	}
	if a.Password == "" {
		return nil, fmt.Errorf("account %q: no password", a.Username)
	}
	if len(a.Password) < 6 {
		warnings = append(warnings, fmt.Sprintf("account %q: password shorter than 6 characters", a.Username))
	}
	if a.Proxy != "" && !ValidProxy(a.Proxy) {
		warnings = append(warnings, fmt.Sprintf("account %q: unrecognized proxy format %q", a.Username, a.Proxy))
	}
	return warnings, nil
}
