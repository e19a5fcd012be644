package services

import (
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

// trimCutset matches the characters the host strips from form input lines.
const trimCutset = " \t\n\r\x00\x0B"

var (
	localPartRegexp   = regexp.MustCompile("^[a-zA-Z0-9!#$%&'*+/=?^_`{|}~.-]+$")
	domainLabelRegexp = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)
)

// NormalizeBannedEmails splits raw textarea input into lines, trims each
// line and keeps only syntactically valid emails in their original order.
// Case is preserved and duplicates are kept.
func NormalizeBannedEmails(raw string) []string {
	emails := []string{}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.Trim(line, trimCutset)
		if IsEmail(line) {
			emails = append(emails, line)
		}
	}
	return emails
}

// IsEmail reports whether s has a permissive local@domain shape. It does
// not check that the address exists or accepts mail.
func IsEmail(s string) bool {
	if len(s) < 6 {
		return false
	}
	at := strings.Index(s, "@")
	if at < 1 {
		return false
	}
	local, domain := s[:at], s[at+1:]

	if !localPartRegexp.MatchString(local) {
		return false
	}
	if strings.Contains(domain, "..") {
		return false
	}
	if strings.Trim(domain, trimCutset+".") != domain {
		return false
	}

	domain, ok := asciiDomain(domain)
	if !ok {
		return false
	}
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if strings.Trim(label, trimCutset+"-") != label {
			return false
		}
		if !domainLabelRegexp.MatchString(label) {
			return false
		}
	}
	return true
}

// asciiDomain converts an internationalized domain to its Punycode form.
// ASCII domains are returned unchanged.
func asciiDomain(domain string) (string, bool) {
	for _, r := range domain {
		if r > 127 {
			a, err := idna.Lookup.ToASCII(domain)
			if err != nil {
				return "", false
			}
			return a, true
		}
	}
	return domain, true
}
