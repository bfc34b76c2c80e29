package gitsync

import (
	"net/url"
	"strings"
)

const tokenUser = "x-access-token"

// CredentialedURL embeds token into an http(s) remote URL. Other URL forms
// (ssh, file, scp-like) are returned unchanged.
func CredentialedURL(remote, token string) string {
	if token == "" {
		return remote
	}
	u, err := url.Parse(remote)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return remote
	}
	u.User = url.UserPassword(tokenUser, token)
	return u.String()
}

// Redactor removes secrets from text before it is logged or returned.
type Redactor struct {
	secrets []string
}

// NewRedactor returns a Redactor hiding each non-empty secret, including its
// URL-escaped form.
func NewRedactor(secrets ...string) Redactor {
	var r Redactor
	for _, s := range secrets {
		if s == "" {
			continue
		}
		r.secrets = append(r.secrets, s)
		if escaped := url.UserPassword(tokenUser, s).String(); escaped != tokenUser+":"+s {
			r.secrets = append(r.secrets, strings.TrimPrefix(escaped, tokenUser+":"))
		}
	}
	return r
}

// Redact replaces every secret in s with "***".
func (r Redactor) Redact(s string) string {
	for _, secret := range r.secrets {
		s = strings.ReplaceAll(s, secret, "***")
	}
	return s
}
